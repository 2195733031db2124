package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRoundTrip(t *testing.T) {
	lg := slog.Default().With(slog.String("component", "test"))
	ctx := ContextWithLogger(context.Background(), lg)
	assert.Same(t, lg, LoggerFromContext(ctx))
}

func TestLoggerFromContext_Fallbacks(t *testing.T) {
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))
	assert.Same(t, slog.Default(), LoggerFromContext(nil)) //nolint:staticcheck // nil context path under test
	ctx := ContextWithLogger(context.Background(), nil)
	assert.Same(t, slog.Default(), LoggerFromContext(ctx))
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))

	assert.Empty(t, RequestIDFromContext(context.Background()))
	same := ContextWithRequestID(context.Background(), "")
	assert.Empty(t, RequestIDFromContext(same))
}
