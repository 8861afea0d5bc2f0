// Package dispatch fans one consent decision out to the consent-mode signal,
// every vendor consent API present on the page, page-author listeners, the
// gating engine and the integration loader.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"esbilla/internal/page"
	"esbilla/internal/tenant"
	"esbilla/pkg/domain"
)

const (
	// WindowEvent is dispatched with the decision for page-author listeners.
	WindowEvent = "esbilla:consent"
	// DataLayerEvent is pushed for tag manager triggers.
	DataLayerEvent = "esbilla_consent_update"
	// MeasurementEvent is the single analytics event emitted per Apply.
	MeasurementEvent = "page_view"
)

// Gate releases gated scripts. *gating.Engine satisfies it.
type Gate interface {
	Unblock(d domain.Decision) int
}

// ScriptLoader activates vendor modules. *loader.Loader satisfies it.
type ScriptLoader interface {
	LoadDynamicScripts(ctx context.Context, d domain.Decision) int
}

type Metrics interface {
	IncDecisionApplied()
	IncMeasurementEvent()
	IncAdapterNotified(adapter string)
	IncDispatchStepFailed(step string)
}

type nopMetrics struct{}

func (nopMetrics) IncDecisionApplied()          {}
func (nopMetrics) IncMeasurementEvent()         {}
func (nopMetrics) IncAdapterNotified(string)    {}
func (nopMetrics) IncDispatchStepFailed(string) {}

// Dispatcher is the single path by which a decision takes effect, whether
// it was just made or replayed from storage.
type Dispatcher struct {
	window   *page.Window
	settings *tenant.Settings
	gate     Gate
	loader   ScriptLoader
	logger   *slog.Logger
	metrics  Metrics
	tracer   trace.Tracer

	mu       sync.RWMutex
	adapters []Adapter
}

type Option func(d *Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// WithAdapters replaces the built-in adapters.
func WithAdapters(adapters ...Adapter) Option {
	return func(d *Dispatcher) {
		d.adapters = append([]Adapter(nil), adapters...)
	}
}

func New(w *page.Window, settings *tenant.Settings, gate Gate, loader ScriptLoader, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		window:   w,
		settings: settings,
		gate:     gate,
		loader:   loader,
		logger:   slog.Default(),
		metrics:  nopMetrics{},
		tracer:   otel.Tracer("esbilla/dispatch"),
		adapters: DefaultAdapters(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends a vendor adapter.
func (d *Dispatcher) Register(a Adapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adapters = append(d.adapters, a)
}

// Adapters lists the registered adapter names.
func (d *Dispatcher) Adapters() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.adapters))
	for _, a := range d.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Apply runs every step in order. Steps are independent: a failing or
// panicking step is logged and the next one still runs. Nothing is
// persisted or logged to the backend here.
func (d *Dispatcher) Apply(ctx context.Context, dec domain.Decision) {
	ctx, span := d.tracer.Start(ctx, "dispatch.Apply", trace.WithAttributes(
		attribute.Bool("consent.analytics", dec.Analytics),
		attribute.Bool("consent.marketing", dec.Marketing),
		attribute.Bool("consent.functional", dec.Functional),
	))
	defer span.End()

	d.metrics.IncDecisionApplied()

	d.guard(ctx, "consent_mode", func() error {
		d.updateConsentMode(dec)
		return nil
	})
	d.guard(ctx, "measurement", func() error {
		return d.emitMeasurement(dec)
	})
	d.notifyAdapters(ctx, dec)
	d.guard(ctx, "broadcast", func() error {
		d.window.DataLayer.Push(map[string]any{
			"event":      DataLayerEvent,
			"analytics":  dec.Analytics,
			"marketing":  dec.Marketing,
			"functional": dec.Effective().Functional,
		})
		d.window.DispatchEvent(WindowEvent, dec)
		return nil
	})
	d.guard(ctx, "unblock", func() error {
		released := d.gate.Unblock(dec)
		span.SetAttributes(attribute.Int("scripts.released", released))
		return nil
	})
	d.guard(ctx, "load_dynamic_scripts", func() error {
		loaded := d.loader.LoadDynamicScripts(ctx, dec)
		span.SetAttributes(attribute.Int("vendors.loaded", loaded))
		return nil
	})
}

// ConsentModeValues maps a decision onto the consent-mode keys.
func ConsentModeValues(dec domain.Decision) map[string]string {
	functional := dec.Effective().Functional
	return map[string]string{
		page.AnalyticsStorage:       grantedOrDenied(dec.Analytics),
		page.AdStorage:              grantedOrDenied(dec.Marketing),
		page.AdUserData:             grantedOrDenied(dec.Marketing),
		page.AdPersonalization:      grantedOrDenied(dec.Marketing),
		page.FunctionalityStorage:   grantedOrDenied(functional),
		page.PersonalizationStorage: grantedOrDenied(functional),
	}
}

func (d *Dispatcher) updateConsentMode(dec domain.Decision) {
	values := ConsentModeValues(dec)
	d.window.ConsentMode.Update(values)
	if d.window.Has("gtag") {
		_, _ = d.window.Call("gtag", "consent", "update", values)
		return
	}
	d.window.DataLayer.Push([]any{"consent", "update", values})
}

// emitMeasurement is the only place the primary measurement event fires.
func (d *Dispatcher) emitMeasurement(dec domain.Decision) error {
	if !dec.Analytics && !d.settings.EnableG100() {
		return nil
	}
	if !d.window.Has("gtag") {
		return nil
	}
	d.metrics.IncMeasurementEvent()
	return call(d.window, "gtag", "event", MeasurementEvent)
}

func (d *Dispatcher) notifyAdapters(ctx context.Context, dec domain.Decision) {
	d.mu.RLock()
	adapters := append([]Adapter(nil), d.adapters...)
	d.mu.RUnlock()

	for _, a := range adapters {
		d.guard(ctx, "adapter:"+a.Name(), func() error {
			if !a.Present(d.window) {
				return nil
			}
			if err := a.Notify(ctx, d.window, dec); err != nil {
				return err
			}
			d.metrics.IncAdapterNotified(a.Name())
			return nil
		})
	}
}

func (d *Dispatcher) guard(ctx context.Context, step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.IncDispatchStepFailed(step)
			d.logger.ErrorContext(ctx, "consent dispatch step panicked", "step", step, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		d.metrics.IncDispatchStepFailed(step)
		d.logger.WarnContext(ctx, "consent dispatch step failed", "step", step, "error", err)
	}
}
