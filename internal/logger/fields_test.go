package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  company  ", Value: "  Acme Bio  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "company" || fields[0].String != "Acme Bio" {
		t.Fatalf("unexpected company field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestPostingFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := WithFields(zap.New(core), PostingFields("Acme Bio", "Bioinformatics Scientist", "")...)
	logger.Info("posting kept", IdentityField("0123456789abcdef0123"))

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldCompany] != "Acme Bio" || ctx[FieldTitle] != "Bioinformatics Scientist" {
		t.Fatalf("unexpected context: %v", ctx)
	}
	if _, ok := ctx[FieldSource]; ok {
		t.Fatalf("empty source must be omitted")
	}
	if ctx[FieldJobID] != "0123456789ab" {
		t.Fatalf("expected shortened id, got %q", ctx[FieldJobID])
	}
}

func TestWithFieldsNil(t *testing.T) {
	enriched := WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}

func TestNew(t *testing.T) {
	for _, json := range []bool{false, true} {
		logger, err := New(json, true)
		if err != nil {
			t.Fatalf("New(json=%v): %v", json, err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("debug logger must enable debug level")
		}
	}

	logger, err := New(false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("default logger must not enable debug level")
	}
}
