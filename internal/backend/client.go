// Package backend is the HTTP client for the configuration and consent API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"esbilla/internal/tenant"
	dErrors "esbilla/pkg/domain-errors"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client talks to one backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(c *Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root with no trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Manifest(ctx context.Context) (*Manifest, error) {
	var m Manifest
	if err := c.getJSON(ctx, "/api/manifest", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SiteConfig fetches the tenant configuration document for siteID.
func (c *Client) SiteConfig(ctx context.Context, siteID string) (tenant.Config, error) {
	if siteID == "" {
		return tenant.Config{}, dErrors.New(dErrors.CodeInvalidInput, "site id is required")
	}
	var cfg tenant.Config
	if err := c.getJSON(ctx, "/api/sites/"+url.PathEscape(siteID)+"/config", &cfg); err != nil {
		return tenant.Config{}, err
	}
	return cfg, nil
}

func (c *Client) Translations(ctx context.Context) (Translations, error) {
	var t Translations
	if err := c.getJSON(ctx, "/api/translations", &t); err != nil {
		return nil, err
	}
	return t, nil
}

// Template fetches a layout template by the path the manifest names.
func (c *Client) Template(ctx context.Context, path string) (string, error) {
	b, err := c.get(ctx, path)
	return string(b), err
}

// Stylesheet fetches one stylesheet by the path the manifest names.
func (c *Client) Stylesheet(ctx context.Context, path string) (string, error) {
	b, err := c.get(ctx, path)
	return string(b), err
}

// Module fetches a vendor module document.
func (c *Client) Module(ctx context.Context, category, file string) ([]byte, error) {
	return c.get(ctx, "/modules/"+url.PathEscape(category)+"/"+url.PathEscape(file))
}

// Sync performs the cross-domain handshake.
func (c *Client) Sync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	var res SyncResponse
	if err := c.postJSON(ctx, "/api/consent/sync", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LogConsent records a user decision. The response body is ignored.
func (c *Client) LogConsent(ctx context.Context, entry LogEntry) error {
	return c.postJSON(ctx, "/api/consent/log", entry, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	b, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadData, fmt.Sprintf("decode %s", path))
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "build request")
	}
	return c.do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(payload))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	b, err := c.do(req)
	if err != nil || out == nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadData, fmt.Sprintf("decode %s", path))
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("%s %s", req.Method, req.URL.Path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read response body")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s %s: not found", req.Method, req.URL.Path))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.DebugContext(req.Context(), "backend request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
		)
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode))
	}
	return body, nil
}

// resolve joins relative paths onto the base URL and passes absolute URLs
// through, so manifest entries may point at a CDN.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
