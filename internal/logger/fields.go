package logger

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared by every package.
const (
	FieldProvider      = "ai_provider"
	FieldModel         = "ai_model"
	FieldRubricID      = "rubric_id"
	FieldApplicationID = "application_id"
	FieldRunID         = "run_id"
	FieldRunKind       = "run_kind"
)

// StringField is a key/value pair that is dropped when either side is blank.
type StringField struct {
	Key   string
	Value string
}

// StringFields trims every pair and keeps the non-blank ones.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		key, value := strings.TrimSpace(f.Key), strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger. A nil logger becomes a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the AI provider and model behind a capability.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// RubricFields describes the rubric being built or evaluated against.
func RubricFields(rubricID string) []zap.Field {
	return StringFields(StringField{Key: FieldRubricID, Value: rubricID})
}

// ApplicationFields describes one applicant evaluation. Non-positive ids are left out.
func ApplicationFields(rubricID string, applicationID int) []zap.Field {
	fields := RubricFields(rubricID)
	if applicationID > 0 {
		fields = append(fields, zap.String(FieldApplicationID, strconv.Itoa(applicationID)))
	}
	return fields
}

// RunFields describes a background run.
func RunFields(kind, runID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRunKind, Value: kind},
		StringField{Key: FieldRunID, Value: runID},
	)
}
