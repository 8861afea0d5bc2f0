package loader

import (
	"context"
	"encoding/json"

	"esbilla/pkg/domain"
	dErrors "esbilla/pkg/domain-errors"
)

// Fetcher retrieves a remote module. A successful fetch registers the module
// into reg as a side effect; the loader only trusts what reg holds afterwards.
type Fetcher interface {
	Fetch(ctx context.Context, category domain.Category, name string, reg *Registry) error
}

// ModuleSource downloads module documents. *backend.Client satisfies it.
type ModuleSource interface {
	Module(ctx context.Context, category, file string) ([]byte, error)
}

// moduleDocument is the wire form served at /modules/{category}/{name}.json.
type moduleDocument struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// HTTPFetcher fetches module documents from the backend and registers them
// as template modules under the name the document declares.
type HTTPFetcher struct {
	src ModuleSource
}

func NewHTTPFetcher(src ModuleSource) *HTTPFetcher {
	return &HTTPFetcher{src: src}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, category domain.Category, name string, reg *Registry) error {
	raw, err := f.src.Module(ctx, category.String(), name+".json")
	if err != nil {
		return err
	}
	var doc moduleDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadData, "decode module "+name)
	}
	if doc.Name == "" {
		return dErrors.New(dErrors.CodeBadData, "module "+name+" declares no name")
	}
	m, err := NewTemplateModule(doc.Name, doc.Template)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadData, "module "+name)
	}
	return reg.Register(m)
}
