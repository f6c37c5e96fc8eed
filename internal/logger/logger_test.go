package logger

import "testing"

func TestConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		json     bool
		debug    bool
		encoding string
		level    string
	}{
		{name: "console info", encoding: "console", level: "info"},
		{name: "json debug", json: true, debug: true, encoding: "json", level: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config(tt.json, tt.debug)
			if cfg.Encoding != tt.encoding || cfg.Level.String() != tt.level {
				t.Fatalf("unexpected config: %s/%s", cfg.Encoding, cfg.Level.String())
			}
			if len(cfg.OutputPaths) != 1 || cfg.OutputPaths[0] != "stderr" {
				t.Fatalf("logs must go to stderr, got %v", cfg.OutputPaths)
			}
			if cfg.DisableStacktrace == tt.debug {
				t.Fatalf("stack traces should only be kept in debug mode")
			}
		})
	}

	if _, err := New(true, false); err != nil {
		t.Fatalf("New: %v", err)
	}
}
