package backend

import (
	"time"

	"esbilla/pkg/domain"
)

// Manifest lists the layouts, themes and languages the backend can serve.
type Manifest struct {
	Layouts         map[string]Layout         `json:"layouts" yaml:"layouts"`
	Themes          map[string]Theme          `json:"themes" yaml:"themes"`
	Languages       map[string]string         `json:"languages" yaml:"languages"`
	IndicatorStyles map[string]IndicatorStyle `json:"panoyaPositions" yaml:"panoyaPositions"`
}

type Layout struct {
	Template string   `json:"template" yaml:"template"`
	Styles   []string `json:"styles" yaml:"styles"`
}

type Theme struct {
	Styles []string `json:"styles" yaml:"styles"`
}

// IndicatorStyle positions the persistent indicator shown after a decision.
type IndicatorStyle struct {
	CSS map[string]string `json:"css" yaml:"css"`
}

// Translations maps language code to template key to text.
type Translations map[string]map[string]string

// SyncRequest is the cross-domain handshake body.
type SyncRequest struct {
	SiteID      string `json:"siteId"`
	FootprintID string `json:"footprintId,omitempty"`
	Domain      string `json:"domain"`
}

// SyncResponse is the server side of the handshake. Every field is optional.
type SyncResponse struct {
	TenantID    string       `json:"tenantId,omitempty"`
	Domains     []string     `json:"domains,omitempty"`
	LastConsent *LastConsent `json:"lastConsent,omitempty"`
}

// LastConsent is the most recent decision recorded for the footprint on any
// domain of the tenant.
type LastConsent struct {
	Choices  domain.Decision `json:"choices"`
	Language string          `json:"language,omitempty"`
}

// Action names the user gesture that produced a decision.
type Action string

const (
	ActionAcceptAll Action = "accept_all"
	ActionRejectAll Action = "reject_all"
	ActionCustomize Action = "customize"
)

// LogEntry is the consent log payload.
type LogEntry struct {
	SiteID      string          `json:"siteId"`
	FootprintID string          `json:"footprintId"`
	Choices     domain.Decision `json:"choices"`
	Action      Action          `json:"action"`
	Metadata    LogMetadata     `json:"metadata"`
	Timestamp   time.Time       `json:"timestamp"`
	Attribution map[string]any  `json:"attribution,omitempty"`
}

type LogMetadata struct {
	Domain    string `json:"domain"`
	PageURL   string `json:"pageUrl"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Language  string `json:"language,omitempty"`
}
