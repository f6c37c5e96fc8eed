package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	t.Setenv("RUBRIC_TEST_SECRET", " from-env ")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{name: "file wins", src: Source{File: file, Env: "RUBRIC_TEST_SECRET", Value: "inline"}, expect: "from-file"},
		{name: "env beats value", src: Source{Env: "RUBRIC_TEST_SECRET", Value: "inline"}, expect: "from-env"},
		{name: "value fallback", src: Source{Env: "RUBRIC_TEST_MISSING", Value: " inline "}, expect: "inline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	for _, src := range []Source{
		{Name: "api key"},
		{Name: "api key", File: empty, Value: "ignored"},
		{Name: "api key", File: filepath.Join(dir, "missing")},
	} {
		if _, err := Load(src); err == nil {
			t.Fatalf("expected error for %+v", src)
		}
	}
}
