package models

import (
	"sort"

	"esbilla/pkg/domain"
)

// Config is the tenant configuration document served by the backend. Only
// the fields the runtime acts on are typed; presentation fields are carried
// through to the template untouched.
type Config struct {
	SiteID             string            `json:"siteId,omitempty" yaml:"siteId,omitempty"`
	Layout             string            `json:"layout,omitempty" yaml:"layout,omitempty"`
	Theme              string            `json:"theme,omitempty" yaml:"theme,omitempty"`
	Colors             map[string]string `json:"colors,omitempty" yaml:"colors,omitempty"`
	Typography         map[string]string `json:"typography,omitempty" yaml:"typography,omitempty"`
	Labels             map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Legal              Legal             `json:"legal" yaml:"legal"`
	Icon               string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	IndicatorPosition  string            `json:"panoyaPosition,omitempty" yaml:"panoyaPosition,omitempty"`
	DefaultLanguage    string            `json:"defaultLanguage,omitempty" yaml:"defaultLanguage,omitempty"`
	AvailableLanguages []string          `json:"availableLanguages,omitempty" yaml:"availableLanguages,omitempty"`
	Features           Features          `json:"features" yaml:"features"`
	EnableG100         bool              `json:"enableG100,omitempty" yaml:"enableG100,omitempty"`
	ScriptConfig       ScriptConfig      `json:"scriptConfig" yaml:"scriptConfig"`
}

// Legal feeds the generated legal notice.
type Legal struct {
	CompanyName  string `json:"companyName,omitempty" yaml:"companyName,omitempty"`
	PrivacyURL   string `json:"privacyUrl,omitempty" yaml:"privacyUrl,omitempty"`
	CookiesURL   string `json:"cookiesUrl,omitempty" yaml:"cookiesUrl,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty" yaml:"contactEmail,omitempty"`
}

type Features struct {
	LanguageSelector bool `json:"languageSelector,omitempty" yaml:"languageSelector,omitempty"`
	RememberLanguage bool `json:"rememberLanguage,omitempty" yaml:"rememberLanguage,omitempty"`
}

// ScriptConfig maps vendor names to opaque per-vendor configuration values.
type ScriptConfig struct {
	Analytics  map[string]any `json:"analytics,omitempty" yaml:"analytics,omitempty"`
	Marketing  map[string]any `json:"marketing,omitempty" yaml:"marketing,omitempty"`
	Functional map[string]any `json:"functional,omitempty" yaml:"functional,omitempty"`
	GTM        GTMConfig      `json:"gtm" yaml:"gtm"`
}

// GTMConfig configures the tag manager container, optionally served through
// a first-party gateway domain.
type GTMConfig struct {
	ContainerID    string `json:"containerId,omitempty" yaml:"containerId,omitempty"`
	GatewayEnabled bool   `json:"gatewayEnabled,omitempty" yaml:"gatewayEnabled,omitempty"`
	GatewayDomain  string `json:"gatewayDomain,omitempty" yaml:"gatewayDomain,omitempty"`
}

// Vendor is one configured vendor entry.
type Vendor struct {
	Category domain.Category
	Name     string
	Config   any
}

// Vendors returns the entries configured under c, sorted by name.
func (s ScriptConfig) Vendors(c domain.Category) []Vendor {
	var m map[string]any
	switch c {
	case domain.CategoryAnalytics:
		m = s.Analytics
	case domain.CategoryMarketing:
		m = s.Marketing
	case domain.CategoryFunctional:
		m = s.Functional
	}
	out := make([]Vendor, 0, len(m))
	for name, cfg := range m {
		out = append(out, Vendor{Category: c, Name: name, Config: cfg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
