package storage

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultExpiryDays is the lifetime of durable cookies.
const DefaultExpiryDays = 365

var (
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrDisabled      = errors.New("storage disabled")
)

// Store is the uniform key/value contract the runtime persists through.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// CookieJar is the cookie half of the adapter (`document.cookie`).
type CookieJar interface {
	Cookie(name string) (string, bool)
	SetCookie(c *http.Cookie)
}

// LocalStore is the origin-local half of the adapter (localStorage or
// sessionStorage). Implementations may fail on quota or when disabled.
type LocalStore interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Adapter reads and writes both storages. The cookie is authoritative: reads
// prefer it and repair the local store when the two disagree. Local store
// failures are swallowed; the cookie is the durability floor.
type Adapter struct {
	cookies CookieJar
	local   LocalStore
	domain  string
	maxAge  int
	secure  bool
	logger  *slog.Logger
}

type Option func(a *Adapter)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithExpiryDays sets the cookie lifetime.
func WithExpiryDays(days int) Option {
	return func(a *Adapter) {
		a.maxAge = int((time.Duration(days) * 24 * time.Hour).Seconds())
	}
}

// WithSessionScope writes session cookies (no expiry), used for volatile data.
func WithSessionScope() Option {
	return func(a *Adapter) {
		a.maxAge = 0
	}
}

// WithSecure marks cookies Secure.
func WithSecure(secure bool) Option {
	return func(a *Adapter) {
		a.secure = secure
	}
}

// NewAdapter builds an adapter for a page served from host.
func NewAdapter(cookies CookieJar, local LocalStore, host string, opts ...Option) *Adapter {
	a := &Adapter{
		cookies: cookies,
		local:   local,
		domain:  CookieDomain(host),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	WithExpiryDays(DefaultExpiryDays)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Domain returns the cookie domain attribute, empty for host-only cookies.
func (a *Adapter) Domain() string {
	return a.domain
}

// Get returns the value for key, cookie first.
func (a *Adapter) Get(key string) (string, bool) {
	if raw, ok := a.cookies.Cookie(key); ok {
		value, err := url.QueryUnescape(raw)
		if err != nil {
			value = raw
		}
		a.repairLocal(key, value)
		return value, true
	}
	value, ok, err := a.local.GetItem(key)
	if err != nil {
		a.logger.Debug("local store read failed", "key", key, "error", err)
		return "", false
	}
	return value, ok
}

// Set writes key to both storages.
func (a *Adapter) Set(key, value string) {
	if err := a.local.SetItem(key, value); err != nil {
		a.logger.Debug("local store write failed", "key", key, "error", err)
	}
	c := a.cookie(key, url.QueryEscape(value))
	c.MaxAge = a.maxAge
	a.cookies.SetCookie(c)
}

// Remove deletes key from both storages.
func (a *Adapter) Remove(key string) {
	if err := a.local.RemoveItem(key); err != nil {
		a.logger.Debug("local store delete failed", "key", key, "error", err)
	}
	c := a.cookie(key, "")
	c.MaxAge = -1
	a.cookies.SetCookie(c)
}

// repairLocal overwrites the local store only when it differs from the cookie.
func (a *Adapter) repairLocal(key, value string) {
	current, ok, err := a.local.GetItem(key)
	if err != nil {
		return
	}
	if ok && current == value {
		return
	}
	if err := a.local.SetItem(key, value); err != nil {
		a.logger.Debug("local store repair failed", "key", key, "error", err)
	}
}

func (a *Adapter) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   a.domain,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secure,
	}
}

// CookieDomain computes the cross-subdomain cookie domain for host: its
// registrable parent domain. Localhost and IP hosts get no domain attribute.
func CookieDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return ""
	}
	if net.ParseIP(host) != nil {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
