// Package audit delivers consent log entries to the backend without ever
// blocking the caller that recorded the decision.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"esbilla/internal/backend"
	"esbilla/pkg/requestcontext"
)

const DefaultBuffer = 64

// Metrics counts entries that never reached the backend.
type Metrics interface {
	IncConsentLogDropped()
	IncConsentLogFailed()
}

type nopMetrics struct{}

func (nopMetrics) IncConsentLogDropped() {}
func (nopMetrics) IncConsentLogFailed()  {}

// Publisher queues log entries for a Worker. Emit never waits: when the queue
// is full the entry is dropped and counted.
type Publisher struct {
	inbox   chan backend.LogEntry
	logger  *slog.Logger
	metrics Metrics

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type PublisherOption func(p *Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithPublisherMetrics(m Metrics) PublisherOption {
	return func(p *Publisher) {
		if m != nil {
			p.metrics = m
		}
	}
}

func NewPublisher(buffer int, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	p := &Publisher{
		inbox:   make(chan backend.LogEntry, buffer),
		logger:  slog.Default(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues entry and reports whether it was accepted.
func (p *Publisher) Emit(ctx context.Context, entry backend.LogEntry) bool {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.IncConsentLogDropped()
		return false
	}
	select {
	case p.inbox <- entry:
		return true
	default:
		p.metrics.IncConsentLogDropped()
		p.logger.WarnContext(ctx, "consent log queue full, entry dropped",
			"action", entry.Action,
			"footprint", entry.FootprintID,
		)
		return false
	}
}

// Inbox is the channel a Worker drains.
func (p *Publisher) Inbox() <-chan backend.LogEntry {
	return p.inbox
}

// Close stops accepting entries. Queued entries stay readable so a Worker
// can drain them before returning.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
	})
}
