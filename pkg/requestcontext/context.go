// Package requestcontext carries values that cross component boundaries
// without appearing in signatures: the clock, the request id and the
// visitor footprint.
//
// Readers fall back to a zero value (or the wall clock for Now), so code
// under test only injects what it asserts on:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"esbilla/pkg/domain"
)

type key int

const (
	keyFootprint key = iota
	keyRequestID
	keyTime
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

func Footprint(ctx context.Context) domain.Footprint {
	fp, _ := value[domain.Footprint](ctx, keyFootprint)
	return fp
}

func WithFootprint(ctx context.Context, fp domain.Footprint) context.Context {
	return context.WithValue(ctx, keyFootprint, fp)
}

func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, keyRequestID)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// Now is the pinned time if one was injected, otherwise time.Now.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, keyTime); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyTime, t)
}
