package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected the attached logger back, got %v", got)
	}
}

func TestFromContext_MissingLogger(t *testing.T) {
	t.Parallel()

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil without an attached logger, got %v", got)
	}
}

func TestContextWithLogger_NilLoggerKeepsContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if derived := ContextWithLogger(ctx, nil); derived != ctx {
		t.Fatal("expected the original context when no logger is given")
	}
	if got := FromContext(ContextWithLogger(ctx, nil)); got != nil {
		t.Fatalf("expected nil logger, got %v", got)
	}
}
