// Package loader resolves vendor names to modules, fetching each remote
// module at most once per page, and injects the markup they render.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"esbilla/internal/page"
	"esbilla/internal/tenant"
	"esbilla/internal/tenant/models"
	"esbilla/pkg/domain"
	"esbilla/pkg/platform/sentinel"
	"esbilla/pkg/requestcontext"
)

const (
	// DynamicAttr marks scripts injected by the loader, as opposed to
	// page-authored ones. Its value is the vendor name.
	DynamicAttr = "data-esbilla-dynamic"

	// PrimaryAnalytics is the vendor allowed an anonymous pre-consent ping
	// when the tenant opts in.
	PrimaryAnalytics = "googleAnalytics"
)

// ErrModuleUnavailable is returned for modules whose single fetch attempt
// did not produce a registration.
var ErrModuleUnavailable = errors.New("module unavailable")

// DefaultExempt lists cookieless vendors that load without consent.
var DefaultExempt = []string{"plausible"}

// Fetch results reported to Metrics.
const (
	FetchOK     = "ok"
	FetchFailed = "failed"
)

type Metrics interface {
	IncModuleFetch(result string)
}

type nopMetrics struct{}

func (nopMetrics) IncModuleFetch(string) {}

type Loader struct {
	registry *Registry
	fetcher  Fetcher
	doc      *page.Document
	settings *tenant.Settings
	logger   *slog.Logger
	metrics  Metrics
	exempt   map[string]bool

	inflight singleflight.Group

	mu           sync.Mutex
	attempted    map[string]struct{}
	tagManagerOn bool
}

type Option func(l *Loader)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(l *Loader) {
		if m != nil {
			l.metrics = m
		}
	}
}

// WithExempt replaces the set of analytics vendors that load without consent.
func WithExempt(names ...string) Option {
	return func(l *Loader) {
		l.exempt = make(map[string]bool, len(names))
		for _, n := range names {
			l.exempt[n] = true
		}
	}
}

func New(reg *Registry, fetcher Fetcher, doc *page.Document, settings *tenant.Settings, opts ...Option) *Loader {
	l := &Loader{
		registry:  reg,
		fetcher:   fetcher,
		doc:       doc,
		settings:  settings,
		logger:    slog.Default(),
		metrics:   nopMetrics{},
		attempted: make(map[string]struct{}),
	}
	WithExempt(DefaultExempt...)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves name. A registry hit returns immediately; a module whose
// fetch was already attempted fails without refetching; otherwise exactly
// one fetch runs, shared by every concurrent caller.
func (l *Loader) Load(ctx context.Context, category domain.Category, name string) (Module, error) {
	if m, ok := l.registry.Get(name); ok {
		return m, nil
	}
	if l.wasAttempted(name) {
		return nil, fmt.Errorf("%w: %s: %w", ErrModuleUnavailable, name, sentinel.ErrAlreadyUsed)
	}

	v, err, _ := l.inflight.Do(name, func() (any, error) {
		if m, ok := l.registry.Get(name); ok {
			return m, nil
		}
		if l.wasAttempted(name) {
			return nil, fmt.Errorf("%w: %s: %w", ErrModuleUnavailable, name, sentinel.ErrAlreadyUsed)
		}

		fetchErr := l.fetcher.Fetch(ctx, category, name, l.registry)
		l.markAttempted(name)

		if m, ok := l.registry.Get(name); ok {
			l.metrics.IncModuleFetch(FetchOK)
			return m, nil
		}
		l.metrics.IncModuleFetch(FetchFailed)
		if fetchErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrModuleUnavailable, name, fetchErr)
		}
		return nil, fmt.Errorf("%w: %s did not register", ErrModuleUnavailable, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(Module), nil
}

// LoadDynamicScripts activates every configured vendor the decision allows.
// Vendors load concurrently; one failure never aborts its siblings. Returns
// the number of vendors whose markup was injected.
func (l *Loader) LoadDynamicScripts(ctx context.Context, d domain.Decision) int {
	cfg := l.settings.Config()

	var selected []models.Vendor
	for _, c := range domain.Categories {
		for _, v := range cfg.ScriptConfig.Vendors(c) {
			if l.shouldLoad(v, d, cfg.EnableG100) {
				selected = append(selected, v)
			}
		}
	}

	var (
		g      errgroup.Group
		loaded atomic.Int32
	)
	for _, v := range selected {
		g.Go(func() error {
			if err := l.activate(ctx, v); err != nil {
				l.logger.WarnContext(ctx, "vendor activation failed",
					"vendor", v.Name,
					"category", v.Category,
					"error", err,
				)
				return nil
			}
			loaded.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(loaded.Load())
}

func (l *Loader) shouldLoad(v models.Vendor, d domain.Decision, enableG100 bool) bool {
	if v.Category != domain.CategoryAnalytics {
		return d.Allows(v.Category)
	}
	if d.Analytics || l.exempt[v.Name] {
		return true
	}
	return v.Name == PrimaryAnalytics && enableG100
}

func (l *Loader) activate(ctx context.Context, v models.Vendor) error {
	m, err := l.Load(ctx, v.Category, v.Name)
	if err != nil {
		return err
	}
	markup, err := m.Render(v.Config)
	if err != nil {
		return err
	}
	_, err = l.Inject(markup, v.Name)
	return err
}

// Inject clones every script and noscript element of markup into the
// document head, tagged with DynamicAttr.
func (l *Loader) Inject(markup, vendor string) (int, error) {
	ctxNode := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctxNode)
	if err != nil {
		return 0, fmt.Errorf("parse %s markup: %w", vendor, err)
	}

	var picked []*html.Node
	for _, n := range nodes {
		collectScripts(n, &picked)
	}

	head := l.doc.Head()
	if head == nil {
		return 0, fmt.Errorf("inject %s: document has no head", vendor)
	}
	for _, n := range picked {
		clone := page.CloneElement(n, func(key string) bool { return key == DynamicAttr })
		clone.Attr = append(clone.Attr, html.Attribute{Key: DynamicAttr, Val: vendor})
		l.doc.AppendChild(head, clone)
	}
	return len(picked), nil
}

// InjectTagManager inserts the tag manager container loader once, served
// through the first-party gateway when one is configured. It must run after
// consent defaults are in place.
func (l *Loader) InjectTagManager(ctx context.Context, w *page.Window, gtm models.GTMConfig) bool {
	if gtm.ContainerID == "" {
		return false
	}
	l.mu.Lock()
	if l.tagManagerOn {
		l.mu.Unlock()
		return false
	}
	l.tagManagerOn = true
	l.mu.Unlock()

	host := "www.googletagmanager.com"
	if gtm.GatewayEnabled && gtm.GatewayDomain != "" {
		host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(gtm.GatewayDomain, "https://"), "http://"), "/")
	}

	w.DataLayer.Push(map[string]any{"gtm.start": requestcontext.Now(ctx).UnixMilli(), "event": "gtm.js"})
	script := page.NewElement(atom.Script,
		html.Attribute{Key: "async", Val: ""},
		html.Attribute{Key: "src", Val: "https://" + host + "/gtm.js?id=" + gtm.ContainerID},
		html.Attribute{Key: DynamicAttr, Val: "gtm"},
	)
	l.doc.AppendChild(l.doc.Head(), script)
	return true
}

// Attempted reports the module names whose fetch already ran.
func (l *Loader) Attempted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.attempted))
	for name := range l.attempted {
		out = append(out, name)
	}
	return out
}

func (l *Loader) wasAttempted(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.attempted[name]
	return ok
}

func (l *Loader) markAttempted(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempted[name] = struct{}{}
}

func collectScripts(n *html.Node, out *[]*html.Node) {
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Noscript) {
		*out = append(*out, n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectScripts(c, out)
	}
}
