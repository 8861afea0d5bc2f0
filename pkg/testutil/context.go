package testutil

import (
	"context"
	"time"

	"esbilla/pkg/requestcontext"
)

// Context returns a context pinned to a fixed clock and carrying a request
// id, so timestamps in assertions are deterministic.
func Context(at time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), at)
	return requestcontext.WithRequestID(ctx, "test-request")
}
