// Package crossdomain unifies a visitor's consent across the domains of one
// tenant by exchanging the footprint with the backend.
package crossdomain

import (
	"context"
	"log/slog"

	"esbilla/internal/backend"
	"esbilla/internal/tenant"
	"esbilla/pkg/domain"
)

// Sync outcomes reported to Metrics.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Backend performs the handshake request.
type Backend interface {
	Sync(ctx context.Context, req backend.SyncRequest) (*backend.SyncResponse, error)
}

type Metrics interface {
	IncSync(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) IncSync(string) {}

// Result is what the handshake learned. Every field is optional.
type Result struct {
	TenantID    string
	Domains     []string
	LastConsent *Consent
}

// Consent is a decision recorded for the same footprint on another domain.
type Consent struct {
	Decision domain.Decision
	Language string
}

type Client struct {
	backend  Backend
	settings *tenant.Settings
	domain   string
	logger   *slog.Logger
	metrics  Metrics
}

type Option func(c *Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New returns a client for the page served on host.
func New(b Backend, settings *tenant.Settings, host string, opts ...Option) *Client {
	c := &Client{
		backend:  b,
		settings: settings,
		domain:   host,
		logger:   slog.Default(),
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sync is best effort: any failure yields (nil, false) and local-only
// operation continues. On success tenant-scoped fields are recorded in the
// shared settings.
func (c *Client) Sync(ctx context.Context, fp domain.Footprint) (*Result, bool) {
	res, err := c.backend.Sync(ctx, backend.SyncRequest{
		SiteID:      c.settings.SiteID(),
		FootprintID: fp.String(),
		Domain:      c.domain,
	})
	if err != nil || res == nil {
		c.metrics.IncSync(OutcomeFailed)
		c.logger.DebugContext(ctx, "cross-domain sync skipped", "error", err)
		return nil, false
	}
	c.metrics.IncSync(OutcomeOK)

	c.settings.ApplySync(res.TenantID, res.Domains)

	out := &Result{TenantID: res.TenantID, Domains: res.Domains}
	if res.LastConsent != nil {
		out.LastConsent = &Consent{
			Decision: res.LastConsent.Choices,
			Language: res.LastConsent.Language,
		}
	}
	return out, true
}
