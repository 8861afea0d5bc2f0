package mockapi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"esbilla/internal/backend"
	"esbilla/internal/tenant"
	dErrors "esbilla/pkg/domain-errors"
)

// Fixtures is everything the development backend serves. It is loaded from
// a single YAML file and swapped atomically on reload.
type Fixtures struct {
	Manifest     backend.Manifest             `yaml:"manifest"`
	Sites        map[string]tenant.Config     `yaml:"sites"`
	Tenants      map[string]TenantFixture     `yaml:"tenants"`
	Translations backend.Translations         `yaml:"translations"`
	Templates    map[string]string            `yaml:"templates"`
	Styles       map[string]string            `yaml:"styles"`
	Modules      map[string]map[string]string `yaml:"modules"`
}

// TenantFixture groups sites that share consent across domains.
type TenantFixture struct {
	Sites   []string `yaml:"sites"`
	Domains []string `yaml:"domains"`
}

// LoadFixtures reads and parses the fixture file at path.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes fixture YAML. Site configs without a siteId take the
// key they are listed under.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadData, "decode fixtures")
	}
	for id, cfg := range f.Sites {
		if cfg.SiteID == "" {
			cfg.SiteID = id
			f.Sites[id] = cfg
		}
	}
	return &f, nil
}

// tenantOf returns the tenant a site belongs to.
func (f *Fixtures) tenantOf(siteID string) (string, TenantFixture, bool) {
	for id, t := range f.Tenants {
		for _, s := range t.Sites {
			if s == siteID {
				return id, t, true
			}
		}
	}
	return "", TenantFixture{}, false
}
