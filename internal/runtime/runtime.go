// Package runtime wires the consent components for one page and drives the
// boot sequence and user decisions.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"esbilla/internal/attribution"
	"esbilla/internal/backend"
	"esbilla/internal/crossdomain"
	"esbilla/internal/dispatch"
	"esbilla/internal/gating"
	"esbilla/internal/loader"
	"esbilla/internal/page"
	"esbilla/internal/storage"
	"esbilla/internal/tenant"
	"esbilla/pkg/domain"
)

// Outcome is what boot left on screen.
type Outcome string

const (
	OutcomeBanner    Outcome = "banner"
	OutcomeIndicator Outcome = "indicator"
	OutcomeFallback  Outcome = "fallback"
)

// Backend is the slice of the API the runtime calls. *backend.Client
// satisfies it.
type Backend interface {
	Manifest(ctx context.Context) (*backend.Manifest, error)
	SiteConfig(ctx context.Context, siteID string) (tenant.Config, error)
	Translations(ctx context.Context) (backend.Translations, error)
	Template(ctx context.Context, path string) (string, error)
	Stylesheet(ctx context.Context, path string) (string, error)
	Module(ctx context.Context, category, file string) ([]byte, error)
	Sync(ctx context.Context, req backend.SyncRequest) (*backend.SyncResponse, error)
}

// LogPublisher queues consent log entries. *audit.Publisher satisfies it.
type LogPublisher interface {
	Emit(ctx context.Context, entry backend.LogEntry) bool
}

// Metrics is every counter the runtime and its components report.
type Metrics interface {
	gating.Metrics
	loader.Metrics
	crossdomain.Metrics
	dispatch.Metrics
	IncBoot(outcome string)
	IncConsentSaved(action string)
}

type nopMetrics struct{}

func (nopMetrics) IncScriptsReleased(string)    {}
func (nopMetrics) IncModuleFetch(string)        {}
func (nopMetrics) IncSync(string)               {}
func (nopMetrics) IncDecisionApplied()          {}
func (nopMetrics) IncMeasurementEvent()         {}
func (nopMetrics) IncAdapterNotified(string)    {}
func (nopMetrics) IncDispatchStepFailed(string) {}
func (nopMetrics) IncBoot(string)               {}
func (nopMetrics) IncConsentSaved(string)       {}

// Deps are the collaborators owned by the embedding page.
type Deps struct {
	Window    *page.Window
	Settings  *tenant.Settings
	Backend   Backend
	Durable   storage.Store
	Volatile  storage.Store
	Publisher LogPublisher
}

// Runtime is the page-lifetime context shared by every component.
type Runtime struct {
	window    *page.Window
	settings  *tenant.Settings
	backend   Backend
	durable   storage.Store
	publisher LogPublisher

	gate       *gating.Engine
	capture    *attribution.Capturer
	sync       *crossdomain.Client
	loader     *loader.Loader
	dispatcher *dispatch.Dispatcher

	inline   *tenant.Config
	registry *loader.Registry
	adapters []dispatch.Adapter
	logger   *slog.Logger
	metrics  Metrics
	tracer   trace.Tracer

	mu           sync.Mutex
	footprint    domain.Footprint
	language     string
	languages    []string
	manifest     *backend.Manifest
	translations backend.Translations
	template     string
	view         Outcome
}

type Option func(r *Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(r *Runtime) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Runtime) {
		r.tracer = t
	}
}

// WithInlineConfig supplies page-author overrides directly instead of
// reading them from the document.
func WithInlineConfig(cfg tenant.Config) Option {
	return func(r *Runtime) {
		r.inline = &cfg
	}
}

// WithRegistry shares a module registry, e.g. one holding built-in modules.
func WithRegistry(reg *loader.Registry) Option {
	return func(r *Runtime) {
		r.registry = reg
	}
}

// WithAdapters replaces the built-in vendor consent adapters.
func WithAdapters(adapters ...dispatch.Adapter) Option {
	return func(r *Runtime) {
		r.adapters = adapters
	}
}

func New(deps Deps, opts ...Option) *Runtime {
	r := &Runtime{
		window:    deps.Window,
		settings:  deps.Settings,
		backend:   deps.Backend,
		durable:   deps.Durable,
		publisher: deps.Publisher,
		logger:    slog.Default(),
		metrics:   nopMetrics{},
		tracer:    otel.Tracer("esbilla/runtime"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = loader.NewRegistry()
	}

	doc := r.window.Document
	r.gate = gating.New(doc,
		gating.WithLogger(r.logger),
		gating.WithMetrics(r.metrics),
	)
	r.capture = attribution.New(deps.Durable, deps.Volatile, r.window,
		attribution.WithLogger(r.logger),
		attribution.WithFootprint(r.Footprint),
	)
	r.sync = crossdomain.New(r.backend, r.settings, r.window.Host(),
		crossdomain.WithLogger(r.logger),
		crossdomain.WithMetrics(r.metrics),
	)
	r.loader = loader.New(r.registry, loader.NewHTTPFetcher(r.backend), doc, r.settings,
		loader.WithLogger(r.logger),
		loader.WithMetrics(r.metrics),
	)
	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(r.logger),
		dispatch.WithMetrics(r.metrics),
		dispatch.WithTracer(r.tracer),
	}
	if r.adapters != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithAdapters(r.adapters...))
	}
	r.dispatcher = dispatch.New(r.window, r.settings, r.gate, r.loader, dispatchOpts...)
	return r
}

// Footprint returns the visitor identifier resolved at boot.
func (r *Runtime) Footprint() domain.Footprint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.footprint
}

// Language returns the active template language.
func (r *Runtime) Language() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.language
}

// View reports what is currently rendered.
func (r *Runtime) View() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Gate exposes the gating engine for diagnostics.
func (r *Runtime) Gate() *gating.Engine {
	return r.gate
}

// Dispatcher exposes the dispatcher so page code can register adapters.
func (r *Runtime) Dispatcher() *dispatch.Dispatcher {
	return r.dispatcher
}

// Attribution returns the attribution record visible to the page.
func (r *Runtime) Attribution(ctx context.Context) (attribution.Record, bool) {
	return r.capture.Data(ctx)
}
