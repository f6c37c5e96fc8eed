package logger

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func keyValues(fields []zap.Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.String
	}
	return out
}

func TestFieldBuilders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields []zap.Field
		want   map[string]string
	}{
		{
			name: "string fields drop blanks",
			fields: StringFields(
				StringField{Key: "  provider  ", Value: "  Gemini  "},
				StringField{Key: "ignored", Value: "   "},
				StringField{Key: "   ", Value: "empty key"},
			),
			want: map[string]string{"provider": "Gemini"},
		},
		{
			name:   "common",
			fields: CommonFields("  Gemini  ", "model-v1"),
			want:   map[string]string{FieldProvider: "Gemini", FieldModel: "model-v1"},
		},
		{
			name:   "common empty",
			fields: CommonFields("", ""),
			want:   map[string]string{},
		},
		{
			name:   "rubric",
			fields: RubricFields("backend-2024"),
			want:   map[string]string{FieldRubricID: "backend-2024"},
		},
		{
			name:   "application",
			fields: ApplicationFields(" 42 ", 7),
			want:   map[string]string{FieldRubricID: "42", FieldApplicationID: "7"},
		},
		{
			name:   "application without ids",
			fields: ApplicationFields("", 0),
			want:   map[string]string{},
		},
		{
			name:   "run without id",
			fields: RunFields("build", ""),
			want:   map[string]string{FieldRunKind: "build"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, keyValues(tt.fields)); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWithCommonFields(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	WithCommonFields(WithFields(zap.New(core), zap.String("foo", "bar")), "gemini", "model-x").Info("call")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	want := map[string]any{"foo": "bar", FieldProvider: "gemini", FieldModel: "model-x"}
	if diff := cmp.Diff(want, entries[0].ContextMap()); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}

	// nil loggers fall back to a no-op logger.
	WithCommonFields(nil, "gemini", "model-x").Info("dropped")
	WithFields(nil).Info("dropped")
}
