package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"esbilla/internal/backend"
	dErrors "esbilla/pkg/domain-errors"
)

// Sink receives log entries. *backend.Client satisfies it.
type Sink interface {
	LogConsent(ctx context.Context, entry backend.LogEntry) error
}

// Worker posts queued entries to a Sink. Delivery failures are retried a
// few times and then logged; they never stop the worker.
type Worker struct {
	sink       Sink
	inbox      <-chan backend.LogEntry
	logger     *slog.Logger
	metrics    Metrics
	newBackOff func() backoff.BackOff
}

type WorkerOption func(w *Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithWorkerMetrics(m Metrics) WorkerOption {
	return func(w *Worker) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithBackOff replaces the retry policy applied to each entry.
func WithBackOff(fn func() backoff.BackOff) WorkerOption {
	return func(w *Worker) {
		w.newBackOff = fn
	}
}

func NewWorker(sink Sink, inbox <-chan backend.LogEntry, opts ...WorkerOption) *Worker {
	w := &Worker{
		sink:    sink,
		inbox:   inbox,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return backoff.WithMaxRetries(b, 2)
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the inbox until it is closed or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.deliver(ctx, entry)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, entry backend.LogEntry) {
	op := func() error {
		err := w.sink.LogConsent(ctx, entry)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(w.newBackOff(), ctx)); err != nil {
		w.metrics.IncConsentLogFailed()
		w.logger.WarnContext(ctx, "consent log delivery failed",
			"action", entry.Action,
			"footprint", entry.FootprintID,
			"error", err,
		)
	}
}
