// Package observability provides structured logging and run tracking
// for confaudit.
package observability

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID generates a new run ID and stores it in the context.
// Each CLI invocation should call this once at startup.
func WithRunID(ctx context.Context) context.Context {
	return context.WithValue(ctx, runIDKey{}, uuid.NewString())
}

// RunID retrieves the run ID from context, or "" if none was set.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}
