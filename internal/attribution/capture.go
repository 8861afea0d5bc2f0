// Package attribution captures marketing identifiers before consent and
// either promotes them to durable storage or purges them once the visitor
// decides on marketing.
package attribution

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"esbilla/internal/page"
	"esbilla/internal/storage"
	"esbilla/pkg/domain"
	"esbilla/pkg/requestcontext"
)

const (
	// DataLayerEvent is pushed when a record is promoted.
	DataLayerEvent = "esbilla_attribution"
	// WindowEvent is dispatched alongside the dataLayer push.
	WindowEvent = "esbilla:attribution"
)

// Capturer owns the volatile and durable attribution slots. Exactly one of
// them holds a record at a time.
type Capturer struct {
	durable   storage.Store
	volatile  storage.Store
	window    *page.Window
	footprint func() domain.Footprint
	logger    *slog.Logger
}

type Option func(c *Capturer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Capturer) {
		c.logger = logger
	}
}

// WithFootprint supplies the visitor footprint stamped onto reads.
func WithFootprint(fn func() domain.Footprint) Option {
	return func(c *Capturer) {
		c.footprint = fn
	}
}

func New(durable, volatile storage.Store, w *page.Window, opts ...Option) *Capturer {
	c := &Capturer{
		durable:   durable,
		volatile:  volatile,
		window:    w,
		footprint: func() domain.Footprint { return "" },
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture extracts allow-listed identifiers from the page URL into volatile
// storage. It reports whether anything was captured.
func (c *Capturer) Capture(ctx context.Context) bool {
	query := c.window.Location.Query()
	ids := make(map[string]string)
	for _, k := range Keys {
		if v := query.Get(k); v != "" {
			ids[k] = v
		}
	}
	if len(ids) == 0 {
		return false
	}
	rec := Record{
		Identifiers: ids,
		CapturedAt:  requestcontext.Now(ctx),
		LandingURL:  c.window.Location.String(),
		Referrer:    c.window.Referrer,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		c.logger.WarnContext(ctx, "attribution encode failed", "error", err)
		return false
	}
	c.volatile.Set(storage.KeyTempAttribution, string(b))
	c.logger.DebugContext(ctx, "attribution captured", "keys", len(ids))
	return true
}

// Data returns the current record, durable first, stamped with the footprint.
// The stamp is never persisted.
func (c *Capturer) Data(ctx context.Context) (Record, bool) {
	if rec, ok := c.read(ctx, c.durable, storage.KeyAttribution); ok {
		rec.Footprint = c.footprint().String()
		return rec, true
	}
	if rec, ok := c.read(ctx, c.volatile, storage.KeyTempAttribution); ok {
		rec.Footprint = c.footprint().String()
		return rec, true
	}
	return Record{}, false
}

// HandleConsent resolves the record against a marketing decision. Granted
// moves volatile to durable and notifies the page; denied purges both slots.
// Safe to call with nothing captured.
func (c *Capturer) HandleConsent(ctx context.Context, granted bool) {
	if !granted {
		c.volatile.Remove(storage.KeyTempAttribution)
		c.durable.Remove(storage.KeyAttribution)
		return
	}

	raw, ok := c.volatile.Get(storage.KeyTempAttribution)
	if !ok {
		return
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt attribution record", "error", err)
		c.volatile.Remove(storage.KeyTempAttribution)
		return
	}
	c.durable.Set(storage.KeyAttribution, raw)
	c.volatile.Remove(storage.KeyTempAttribution)

	c.window.DataLayer.Push(map[string]any{
		"event":       DataLayerEvent,
		"attribution": rec.Map(),
	})
	c.window.DispatchEvent(WindowEvent, rec)
}

func (c *Capturer) read(ctx context.Context, s storage.Store, key string) (Record, bool) {
	raw, ok := s.Get(key)
	if !ok {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.logger.WarnContext(ctx, "ignoring corrupt attribution record", "key", key, "error", err)
		return Record{}, false
	}
	return rec, true
}
