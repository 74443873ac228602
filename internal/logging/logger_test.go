package logging_test

import (
	"context"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewDefaults(t *testing.T) {
	logger, err := logging.New(logging.Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "concatenating")

	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	logger := logging.WithContext(ctx, logging.NewNop())
	if logger == nil {
		t.Fatal("expected logger")
	}
}
