// Package gating keeps regulated scripts from executing until their consent
// category is granted.
//
// A regulated script carries a category attribute and a disabling type:
//
//	<script type="text/plain" data-consent-category="analytics" src="..."></script>
//
// Each script moves discovered -> gated -> released, one way. Discovery comes
// from the boot scan or from live insertions; both feed Discover.
package gating

import (
	"io"
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"esbilla/internal/page"
	"esbilla/pkg/domain"
)

const (
	// CategoryAttr names the consent category of a regulated script.
	CategoryAttr = "data-consent-category"
	// ReleasedAttr marks a script re-created after consent.
	ReleasedAttr = "data-consent-released"
	// DisabledType is the type that keeps a browser from executing a script.
	DisabledType = "text/plain"
)

// Document is the slice of the page the engine needs. *page.Document
// satisfies it; documents that also implement page.Observable get live
// gating of inserted scripts.
type Document interface {
	FindAll(pred func(*html.Node) bool) []*html.Node
	ReplaceNode(old, repl *html.Node) bool
	SetAttr(n *html.Node, key, val string)
	Attr(n *html.Node, key string) (string, bool)
}

// Metrics records releases per category.
type Metrics interface {
	IncScriptsReleased(category string)
}

// Engine tracks the working set of still-gated scripts.
type Engine struct {
	doc     Document
	logger  *slog.Logger
	metrics Metrics

	mu           sync.Mutex
	gated        []*html.Node
	known        map[*html.Node]struct{}
	nonCompliant []*html.Node
	stop         func()
	started      bool
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func New(doc Document, opts ...Option) *Engine {
	e := &Engine{
		doc:    doc,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		known:  make(map[*html.Node]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start scans the document and installs the insertion observer. Without
// observation support the engine degrades to boot-time gating only.
// Calling Start again is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	for _, n := range e.doc.FindAll(isRegulated) {
		e.Discover(n)
	}

	obs, ok := e.doc.(page.Observable)
	if !ok {
		e.logger.Warn("document cannot report insertions; only scripts present at boot are gated")
		return
	}
	cancel := obs.Observe(e.Discover)
	e.mu.Lock()
	e.stop = cancel
	e.mu.Unlock()
}

// Stop removes the insertion observer.
func (e *Engine) Stop() {
	e.mu.Lock()
	stop := e.stop
	e.stop = nil
	e.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Discover is the ScriptDiscovered event. Unregulated and released nodes are
// ignored; everything else is disabled and joins the gated set once.
func (e *Engine) Discover(n *html.Node) {
	if !page.IsScript(n) {
		return
	}
	raw, ok := e.doc.Attr(n, CategoryAttr)
	if !ok {
		return
	}
	if _, released := e.doc.Attr(n, ReleasedAttr); released {
		return
	}

	if typ, _ := e.doc.Attr(n, "type"); typ != DisabledType {
		e.doc.SetAttr(n, "type", DisabledType)
		e.mu.Lock()
		e.nonCompliant = append(e.nonCompliant, n)
		e.mu.Unlock()
		e.logger.Warn("regulated script is missing type=\"text/plain\"; gated anyway",
			"category", raw,
			"src", attrOrEmpty(e.doc, n, "src"),
		)
	}
	if _, err := domain.ParseCategory(raw); err != nil {
		e.logger.Warn("regulated script has an unknown category and will stay gated",
			"category", raw,
			"src", attrOrEmpty(e.doc, n, "src"),
		)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.known[n]; seen {
		return
	}
	e.known[n] = struct{}{}
	e.gated = append(e.gated, n)
}

// Unblock releases every gated script whose category the decision grants
// and returns how many were released. Released scripts are never re-gated.
func (e *Engine) Unblock(d domain.Decision) int {
	granted := d.Granted()

	e.mu.Lock()
	var release, keep []*html.Node
	for _, n := range e.gated {
		raw, _ := e.doc.Attr(n, CategoryAttr)
		if granted[domain.Category(raw)] {
			release = append(release, n)
		} else {
			keep = append(keep, n)
		}
	}
	e.gated = keep
	e.mu.Unlock()

	for _, n := range release {
		raw, _ := e.doc.Attr(n, CategoryAttr)
		if !e.doc.ReplaceNode(n, executableClone(n)) {
			e.logger.Warn("gated script was detached before release", "category", raw)
			continue
		}
		if e.metrics != nil {
			e.metrics.IncScriptsReleased(raw)
		}
	}
	return len(release)
}

// Pending returns the still-gated scripts.
func (e *Engine) Pending() []*html.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*html.Node(nil), e.gated...)
}

// NonCompliant returns scripts that were found without the disabling type.
func (e *Engine) NonCompliant() []*html.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*html.Node(nil), e.nonCompliant...)
}

// executableClone copies n without the disabling type and category marker.
// External scripts keep their src; inline bodies are copied as children.
func executableClone(n *html.Node) *html.Node {
	clone := page.CloneElement(n, func(key string) bool {
		return key == "type" || key == CategoryAttr
	})
	clone.Attr = append(clone.Attr, html.Attribute{Key: ReleasedAttr, Val: "true"})
	return clone
}

// isRegulated runs under the document lock inside FindAll, so it reads
// attributes directly.
func isRegulated(n *html.Node) bool {
	if !page.IsScript(n) {
		return false
	}
	_, ok := page.Attr(n, CategoryAttr)
	return ok
}

func attrOrEmpty(doc Document, n *html.Node, key string) string {
	v, _ := doc.Attr(n, key)
	return v
}
