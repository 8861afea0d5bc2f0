package loader

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"sync"
)

// Module turns tenant-supplied vendor configuration into injectable markup.
type Module interface {
	Name() string
	Render(config any) (string, error)
}

// Registry is the page-lifetime module cache, keyed by module name.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds m. A name can be registered once.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s already registered", name)
	}
	r.modules[name] = m
	return nil
}

func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the registered module names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateModule renders an html/template with the vendor configuration as
// its data, so configuration values are escaped for the context they land in.
type TemplateModule struct {
	name string
	tmpl *template.Template
}

func NewTemplateModule(name, src string) (*TemplateModule, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse module %s: %w", name, err)
	}
	return &TemplateModule{name: name, tmpl: tmpl}, nil
}

// MustTemplateModule is NewTemplateModule for built-in sources.
func MustTemplateModule(name, src string) *TemplateModule {
	m, err := NewTemplateModule(name, src)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *TemplateModule) Name() string {
	return m.name
}

func (m *TemplateModule) Render(config any) (string, error) {
	var buf bytes.Buffer
	if err := m.tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("render module %s: %w", m.name, err)
	}
	return buf.String(), nil
}
