package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"esbilla/pkg/domain"
)

func TestZeroValuesWhenUnset(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Footprint(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestInjectedValues(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), at)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithFootprint(ctx, domain.Footprint("ESB-ABC123"))

	assert.Equal(t, at, Now(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, domain.Footprint("ESB-ABC123"), Footprint(ctx))
}
