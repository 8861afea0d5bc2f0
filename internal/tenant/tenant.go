// Package tenant holds the configuration a tenant supplies to the runtime and
// the page-lifetime settings object shared by every component.
package tenant

import (
	"encoding/json"
	"slices"
	"sync"

	"dario.cat/mergo"

	"esbilla/internal/tenant/models"
	dErrors "esbilla/pkg/domain-errors"
	"esbilla/pkg/platform/strings"
)

// Config is the tenant configuration document.
type Config = models.Config

// Legal is the tenant's legal footer details.
type Legal = models.Legal

// ParseInline decodes page-author overrides embedded in the host page.
func ParseInline(raw []byte) (Config, error) {
	var cfg Config
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid inline configuration")
	}
	return cfg, nil
}

// Merge overlays page-author overrides onto the fetched configuration.
// Non-empty override values win; maps merge key by key.
func Merge(base, overrides Config) (Config, error) {
	out := base
	out.Colors = cloneMap(base.Colors)
	out.Typography = cloneMap(base.Typography)
	out.Labels = cloneMap(base.Labels)
	if err := mergo.Merge(&out, overrides, mergo.WithOverride); err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "merge inline configuration")
	}
	out.AvailableLanguages = strings.Languages(out.AvailableLanguages)
	return out, nil
}

// Settings is the single configuration object of one page. Boot fills it,
// the sync client adds tenant-scoped fields, every other component reads it.
type Settings struct {
	mu       sync.RWMutex
	siteID   string
	apiBase  string
	config   Config
	tenantID string
	domains  []string
}

func NewSettings(siteID, apiBase string) *Settings {
	return &Settings{siteID: siteID, apiBase: apiBase}
}

func (s *Settings) SiteID() string {
	return s.siteID
}

func (s *Settings) APIBase() string {
	return s.apiBase
}

// Config returns the current tenant configuration.
func (s *Settings) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *Settings) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// TenantID returns the tenant learned from cross-domain sync, if any.
func (s *Settings) TenantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantID
}

// Domains returns the cooperating domains learned from cross-domain sync.
func (s *Settings) Domains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.domains)
}

// ApplySync records tenant-scoped fields; empty values leave state as is.
func (s *Settings) ApplySync(tenantID string, domains []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tenantID != "" {
		s.tenantID = tenantID
	}
	if len(domains) > 0 {
		s.domains = strings.Hosts(domains)
	}
}

// EnableG100 reports the tenant opt-in for anonymous pre-consent pings.
func (s *Settings) EnableG100() bool {
	return s.Config().EnableG100
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
