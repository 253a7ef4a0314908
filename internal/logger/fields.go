package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldCompany = "company"
	FieldTitle   = "job_title"
	FieldSource  = "source"
	FieldJobID   = "canonical_job_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, falling back to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// PostingFields describes a single posting in log entries.
func PostingFields(company, title, source string) []zap.Field {
	return StringFields(
		StringField{Key: FieldCompany, Value: company},
		StringField{Key: FieldTitle, Value: title},
		StringField{Key: FieldSource, Value: source},
	)
}

// IdentityField shortens a canonical id to something readable in console logs.
func IdentityField(id string) zap.Field {
	if len(id) > 12 {
		id = id[:12]
	}
	return zap.String(FieldJobID, id)
}
