package page

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Observable is implemented by documents that report subtree insertions.
// Observers run synchronously after the node is linked and before any
// inserted script executes.
type Observable interface {
	Observe(fn func(n *html.Node)) (cancel func())
}

// Document is a mutable HTML tree shared by every component of one page.
// All structural changes go through its methods so observers and the script
// executor see them in order.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	observers map[int]func(*html.Node)
	nextID    int
	executor  func(*html.Node)
	executed  []*html.Node
}

// ParseDocument parses a full HTML page. Scripts present in the source are
// not executed by parsing; only insertions execute.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, observers: make(map[int]func(*html.Node))}, nil
}

// ParseDocumentString is ParseDocument over a string.
func ParseDocumentString(s string) (*Document, error) {
	return ParseDocument(strings.NewReader(s))
}

// NewDocument returns an empty page.
func NewDocument() *Document {
	doc, _ := ParseDocumentString("<!DOCTYPE html><html><head></head><body></body></html>")
	return doc
}

// SetExecutor installs the hook invoked for every executable script inserted
// into the document.
func (d *Document) SetExecutor(fn func(*html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executor = fn
}

// Observe registers a subtree-insertion observer.
func (d *Document) Observe(fn func(n *html.Node)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.observers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.observers, id)
	}
}

// Head returns the <head> element, creating none if absent.
func (d *Document) Head() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findFirst(d.root, atom.Head)
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return findFirst(d.root, atom.Body)
}

// FindAll returns every element matching pred in document order.
func (d *Document) FindAll(pred func(*html.Node) bool) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*html.Node
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
	})
	return out
}

// FindByID returns the element with the given id attribute.
func (d *Document) FindByID(id string) *html.Node {
	nodes := d.FindAll(func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	})
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// AppendChild links child under parent, notifies observers and executes any
// inserted script that is still executable afterwards.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	parent.AppendChild(child)
	inserted := elements(child)
	d.mu.Unlock()
	d.afterInsert(inserted)
}

// ReplaceNode swaps old for repl in place.
func (d *Document) ReplaceNode(old, repl *html.Node) bool {
	d.mu.Lock()
	parent := old.Parent
	if parent == nil {
		d.mu.Unlock()
		return false
	}
	parent.InsertBefore(repl, old)
	parent.RemoveChild(old)
	inserted := elements(repl)
	d.mu.Unlock()
	d.afterInsert(inserted)
	return true
}

// RemoveNode unlinks n from its parent.
func (d *Document) RemoveNode(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// SetAttr sets or overwrites an attribute on n.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setAttr(n, key, val)
}

// Attr reads an attribute under the document lock.
func (d *Document) Attr(n *html.Node, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Attr(n, key)
}

// Executed returns the scripts that ran since the document was created.
func (d *Document) Executed() []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*html.Node(nil), d.executed...)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) afterInsert(inserted []*html.Node) {
	d.mu.Lock()
	observers := make([]func(*html.Node), 0, len(d.observers))
	for i := 0; i < d.nextID; i++ {
		if fn, ok := d.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	d.mu.Unlock()

	for _, n := range inserted {
		for _, fn := range observers {
			fn(n)
		}
	}

	for _, n := range inserted {
		d.mu.Lock()
		run := IsExecutableScript(n) && n.Parent != nil
		exec := d.executor
		if run {
			d.executed = append(d.executed, n)
		}
		d.mu.Unlock()
		if run && exec != nil {
			exec(n)
		}
	}
}

// IsScript reports whether n is a <script> element.
func IsScript(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.Script
}

var executableTypes = map[string]bool{
	"":                       true,
	"text/javascript":        true,
	"application/javascript": true,
	"application/ecmascript": true,
	"text/ecmascript":        true,
	"module":                 true,
}

// IsExecutableScript reports whether a browser would run n.
func IsExecutableScript(n *html.Node) bool {
	if !IsScript(n) {
		return false
	}
	typ, _ := Attr(n, "type")
	return executableTypes[strings.ToLower(strings.TrimSpace(typ))]
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// TextContent concatenates the text children of n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// NewElement builds a detached element with attributes in the given order.
func NewElement(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
		Attr:     append([]html.Attribute(nil), attrs...),
	}
}

// CloneElement copies n and its subtree, dropping attributes for which skip
// returns true. The copy is detached.
func CloneElement(n *html.Node, skip func(key string) bool) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	for _, a := range n.Attr {
		if skip != nil && skip(a.Key) {
			continue
		}
		out.Attr = append(out.Attr, a)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(CloneElement(c, nil))
	}
	return out
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.Type == html.ElementNode && c.DataAtom == a {
			found = c
		}
	})
	return found
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func elements(n *html.Node) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	})
	return out
}
