package page

import (
	"net"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Func is a page-global function installed by a vendor script, the Go
// counterpart of `window.fbq` or `window.gtag`.
type Func func(args ...any) any

// Event is a window-level notification.
type Event struct {
	Name   string
	Detail any
}

// Listener receives window events.
type Listener func(Event)

type scriptBehavior struct {
	match func(*html.Node) bool
	run   func(w *Window, n *html.Node)
}

// Window is the single page-lifetime context shared by every component. It
// replaces module-level globals: each page (and each test) gets its own.
type Window struct {
	Location    *url.URL
	Referrer    string
	Languages   []string
	UserAgent   string
	Document    *Document
	DataLayer   *DataLayer
	ConsentMode *ConsentMode

	mu        sync.RWMutex
	globals   map[string]Func
	listeners map[string][]Listener
	behaviors []scriptBehavior
}

// WindowOption configures a Window.
type WindowOption func(w *Window)

func WithReferrer(ref string) WindowOption {
	return func(w *Window) { w.Referrer = ref }
}

func WithLanguages(langs ...string) WindowOption {
	return func(w *Window) { w.Languages = langs }
}

func WithUserAgent(ua string) WindowOption {
	return func(w *Window) { w.UserAgent = ua }
}

// NewWindow binds doc to the page at rawURL and routes script execution
// through the window's registered behaviours.
func NewWindow(rawURL string, doc *Document, opts ...WindowOption) (*Window, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = NewDocument()
	}
	w := &Window{
		Location:    u,
		Document:    doc,
		DataLayer:   &DataLayer{},
		ConsentMode: NewConsentMode(),
		globals:     make(map[string]Func),
		listeners:   make(map[string][]Listener),
	}
	for _, opt := range opts {
		opt(w)
	}
	doc.SetExecutor(w.runScript)
	return w, nil
}

// Host returns the page hostname without port.
func (w *Window) Host() string {
	return w.Location.Hostname()
}

// IsLocalHost reports whether the page runs on localhost or a bare IP.
func (w *Window) IsLocalHost() bool {
	host := w.Host()
	return host == "localhost" || strings.HasSuffix(host, ".localhost") || net.ParseIP(host) != nil
}

// Define installs a global function.
func (w *Window) Define(name string, fn Func) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.globals[name] = fn
}

// Undefine removes a global function.
func (w *Window) Undefine(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.globals, name)
}

// Has is the duck-typed presence probe (`typeof x === 'function'`).
func (w *Window) Has(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.globals[name]
	return ok
}

// Call invokes a global function if present.
func (w *Window) Call(name string, args ...any) (any, bool) {
	w.mu.RLock()
	fn, ok := w.globals[name]
	w.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return fn(args...), true
}

// AddEventListener subscribes l to events named name.
func (w *Window) AddEventListener(name string, l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners[name] = append(w.listeners[name], l)
}

// DispatchEvent delivers an event to every listener synchronously.
func (w *Window) DispatchEvent(name string, detail any) {
	w.mu.RLock()
	ls := append([]Listener(nil), w.listeners[name]...)
	w.mu.RUnlock()
	ev := Event{Name: name, Detail: detail}
	for _, l := range ls {
		l(ev)
	}
}

// OnScript registers what happens when a matching script executes, e.g. a
// vendor tag defining its global API.
func (w *Window) OnScript(match func(*html.Node) bool, run func(w *Window, n *html.Node)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.behaviors = append(w.behaviors, scriptBehavior{match: match, run: run})
}

// ScriptSrcContains matches external scripts whose src contains substr.
func ScriptSrcContains(substr string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		src, ok := Attr(n, "src")
		return ok && strings.Contains(src, substr)
	}
}

// ScriptBodyContains matches inline scripts whose body contains substr.
func ScriptBodyContains(substr string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return strings.Contains(TextContent(n), substr)
	}
}

func (w *Window) runScript(n *html.Node) {
	w.mu.RLock()
	behaviors := append([]scriptBehavior(nil), w.behaviors...)
	w.mu.RUnlock()
	for _, b := range behaviors {
		if b.match(n) {
			b.run(w, n)
		}
	}
}
