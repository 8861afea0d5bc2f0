// Package mockapi is a development backend serving fixtures for the consent
// runtime: manifest, tenant configuration, translations, templates, styles,
// remote modules, the sync handshake and the consent log.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mssola/useragent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"esbilla/internal/backend"
	"esbilla/pkg/domain"
	dErrors "esbilla/pkg/domain-errors"
	"esbilla/pkg/platform/httputil"
	"esbilla/pkg/requestcontext"
)

// Metrics are the counters the backend reports.
type Metrics interface {
	IncConsentLogReceived(action, client string)
	IncSyncRequest(hit bool)
}

type nopMetrics struct{}

func (nopMetrics) IncConsentLogReceived(string, string) {}
func (nopMetrics) IncSyncRequest(bool)                  {}

// Server serves the current fixtures. Fixtures can be replaced while serving.
type Server struct {
	fixtures atomic.Pointer[Fixtures]
	store    Store
	logger   *slog.Logger
	metrics  Metrics
	gatherer prometheus.Gatherer
}

type Option func(s *Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

func New(f *Fixtures, store Store, opts ...Option) *Server {
	s := &Server{
		store:   store,
		logger:  slog.Default(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fixtures.Store(f)
	return s
}

// SetFixtures swaps the served fixtures.
func (s *Server) SetFixtures(f *Fixtures) {
	s.fixtures.Store(f)
}

// Reload re-reads the fixture file, keeping the current fixtures on error.
func (s *Server) Reload(path string) error {
	f, err := LoadFixtures(path)
	if err != nil {
		return err
	}
	s.SetFixtures(f)
	return nil
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestContext)
	r.Use(s.accessLog)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/manifest", s.handleManifest)
		r.Get("/sites/{siteID}/config", s.handleSiteConfig)
		r.Get("/translations", s.handleTranslations)
		r.Post("/consent/sync", s.handleSync)
		r.Post("/consent/log", s.handleLog)
	})
	r.Get("/templates/*", s.handleAsset("text/html; charset=utf-8", func(f *Fixtures) map[string]string { return f.Templates }))
	r.Get("/styles/*", s.handleAsset("text/css; charset=utf-8", func(f *Fixtures) map[string]string { return f.Styles }))
	r.Get("/modules/{category}/{file}", s.handleModule)
	return r
}

func (s *Server) handleManifest(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.fixtures.Load().Manifest)
}

func (s *Server) handleSiteConfig(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	cfg, ok := s.fixtures.Load().Sites[siteID]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown site "+siteID))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleTranslations(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.fixtures.Load().Translations)
}

func (s *Server) handleAsset(contentType string, pick func(*Fixtures) map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := pick(s.fixtures.Load())[r.URL.Path]
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, r.URL.Path))
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}
}

type moduleDoc struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".json")
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, r.URL.Path))
		return
	}
	tpl, ok := s.fixtures.Load().Modules[category][name]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown module "+category+"/"+name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, moduleDoc{Name: name, Template: tpl})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req backend.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.SiteID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "siteId is required"))
		return
	}
	tenantID, t, ok := s.fixtures.Load().tenantOf(req.SiteID)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "site has no tenant"))
		return
	}

	resp := backend.SyncResponse{TenantID: tenantID, Domains: t.Domains}
	if req.FootprintID != "" {
		last, err := s.store.Last(ctx, tenantID, req.FootprintID)
		if err != nil {
			s.logger.ErrorContext(ctx, "sync lookup failed", "error", err)
			httputil.WriteError(w, err)
			return
		}
		resp.LastConsent = last
	}
	s.metrics.IncSyncRequest(resp.LastConsent != nil)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var entry backend.LogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := validateEntry(entry); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ctx = requestcontext.WithFootprint(ctx, domain.Footprint(entry.FootprintID))

	uaString := entry.Metadata.UserAgent
	if uaString == "" {
		uaString = r.UserAgent()
	}
	client := describeClient(uaString)

	s.logger.InfoContext(ctx, "consent recorded",
		"site_id", entry.SiteID,
		"action", entry.Action,
		"domain", entry.Metadata.Domain,
		"client", client.family,
		"os", client.os,
		"mobile", client.mobile,
		"attributed", len(entry.Attribution) > 0,
	)
	s.metrics.IncConsentLogReceived(string(entry.Action), client.family)

	if tenantID, _, ok := s.fixtures.Load().tenantOf(entry.SiteID); ok {
		last := backend.LastConsent{Choices: entry.Choices, Language: entry.Metadata.Language}
		if err := s.store.Save(ctx, tenantID, entry.FootprintID, last); err != nil {
			s.logger.ErrorContext(ctx, "saving last consent failed", "error", err)
			httputil.WriteError(w, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func validateEntry(e backend.LogEntry) error {
	switch {
	case e.SiteID == "":
		return dErrors.New(dErrors.CodeInvalidInput, "siteId is required")
	case e.FootprintID == "":
		return dErrors.New(dErrors.CodeInvalidInput, "footprintId is required")
	case e.Action != backend.ActionAcceptAll && e.Action != backend.ActionRejectAll && e.Action != backend.ActionCustomize:
		return dErrors.New(dErrors.CodeInvalidInput, "unknown action "+string(e.Action))
	}
	return nil
}

type clientInfo struct {
	family string
	os     string
	mobile bool
}

// describeClient reduces a user agent to low-cardinality labels.
func describeClient(ua string) clientInfo {
	if ua == "" {
		return clientInfo{family: "unknown"}
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		return clientInfo{family: "bot", os: parsed.OS()}
	}
	name, _ := parsed.Browser()
	if name == "" {
		name = "unknown"
	}
	return clientInfo{family: name, os: parsed.OS(), mobile: parsed.Mobile()}
}

// requestContext stamps the request id and request time used by handlers.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		ctx = requestcontext.WithRequestID(ctx, middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		ctx := r.Context()
		s.logger.DebugContext(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(requestcontext.Now(ctx)),
		)
	})
}

// cors lets pages on any origin reach the backend during development.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
