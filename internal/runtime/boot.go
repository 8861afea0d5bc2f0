package runtime

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"esbilla/internal/dispatch"
	"esbilla/internal/page"
	"esbilla/internal/storage"
	"esbilla/internal/tenant"
	"esbilla/pkg/domain"
	"esbilla/pkg/platform/sentinel"
)

// InlineConfigID is the id of the optional JSON script holding page-author
// configuration overrides.
const InlineConfigID = "esbilla-config"

// Boot runs the boot sequence in its fixed order. Any failure, including a
// panic, is caught here once: the fallback stylesheet is injected and boot
// is not retried. Nothing propagates to the host page.
func (r *Runtime) Boot(ctx context.Context) (outcome Outcome) {
	ctx, span := r.tracer.Start(ctx, "runtime.Boot")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			outcome = r.fail(ctx, fmt.Errorf("boot panicked: %v", rec))
		}
		span.SetAttributes(attribute.String("boot.outcome", string(outcome)))
		r.metrics.IncBoot(string(outcome))
	}()

	r.gate.Start()
	r.capture.Capture(ctx)

	outcome, err := r.boot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "boot failed")
		return r.fail(ctx, err)
	}
	return outcome
}

func (r *Runtime) boot(ctx context.Context) (Outcome, error) {
	manifest, err := r.backend.Manifest(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch manifest: %w", err)
	}
	cfg, err := r.backend.SiteConfig(ctx, r.settings.SiteID())
	if err != nil {
		return "", fmt.Errorf("fetch tenant config: %w", err)
	}
	cfg, err = tenant.Merge(cfg, r.inlineConfig(ctx))
	if err != nil {
		return "", err
	}
	r.settings.SetConfig(cfg)
	r.setConsentDefaults(ctx, cfg)

	translations, err := r.backend.Translations(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch translations: %w", err)
	}

	storedLang, hasStoredLang := r.durable.Get(storage.KeyLanguage)
	languages := availableLanguages(cfg, translations)
	lang := pickLanguage(storedLang, r.window.Languages, cfg.DefaultLanguage, languages)

	fp := r.resolveFootprint(ctx)

	decision, hasDecision := r.storedDecision(ctx)
	if res, ok := r.sync.Sync(ctx, fp); ok && res.LastConsent != nil {
		if !hasDecision {
			decision, hasDecision = res.LastConsent.Decision, true
			r.durable.Set(storage.KeyConsent, decision.Encode())
		}
		if !hasStoredLang && res.LastConsent.Language != "" && contains(languages, res.LastConsent.Language) {
			lang = res.LastConsent.Language
		}
	}

	r.mu.Lock()
	r.manifest = manifest
	r.translations = translations
	r.languages = languages
	r.language = lang
	r.mu.Unlock()

	r.loadStyles(ctx, cfg)
	r.loadTemplate(ctx, cfg)

	if hasDecision {
		r.dispatcher.Apply(ctx, decision)
		r.capture.HandleConsent(ctx, decision.Marketing)
		r.render(ctx, OutcomeIndicator)
		return OutcomeIndicator, nil
	}
	r.render(ctx, OutcomeBanner)
	return OutcomeBanner, nil
}

func (r *Runtime) fail(ctx context.Context, err error) Outcome {
	r.logger.ErrorContext(ctx, "consent runtime boot failed", "error", err)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "fallback stylesheet injection panicked", "panic", fmt.Sprint(rec))
		}
	}()
	r.injectStyle(FallbackStylesheet, "fallback")
	r.mu.Lock()
	r.view = OutcomeFallback
	r.mu.Unlock()
	return OutcomeFallback
}

// inlineConfig returns page-author overrides: the option when given,
// otherwise the JSON script with InlineConfigID. Malformed overrides are
// ignored.
func (r *Runtime) inlineConfig(ctx context.Context) tenant.Config {
	if r.inline != nil {
		return *r.inline
	}
	n := r.window.Document.FindByID(InlineConfigID)
	if n == nil {
		return tenant.Config{}
	}
	cfg, err := tenant.ParseInline([]byte(page.TextContent(n)))
	if err != nil {
		r.logger.WarnContext(ctx, "ignoring inline configuration", "error", err)
		return tenant.Config{}
	}
	return cfg
}

// setConsentDefaults publishes the default-deny state for tag managers and
// then inserts the configured container.
func (r *Runtime) setConsentDefaults(ctx context.Context, cfg tenant.Config) {
	defaults := dispatch.ConsentModeValues(domain.RejectAll())
	if r.window.Has("gtag") {
		_, _ = r.window.Call("gtag", "consent", "default", defaults)
	} else {
		r.window.DataLayer.Push([]any{"consent", "default", defaults})
	}
	r.loader.InjectTagManager(ctx, r.window, cfg.ScriptConfig.GTM)
}

// resolveFootprint reads the stored footprint, creating one only when none
// is stored. A stored value is never regenerated, even when malformed.
func (r *Runtime) resolveFootprint(ctx context.Context) domain.Footprint {
	var fp domain.Footprint
	if v, ok := r.durable.Get(storage.KeyFootprint); ok && v != "" {
		fp = domain.Footprint(v)
		if !fp.IsWellFormed() {
			r.logger.DebugContext(ctx, "stored footprint is not well formed", "footprint", v)
		}
	} else {
		fp = domain.NewFootprint()
		r.durable.Set(storage.KeyFootprint, fp.String())
	}
	r.mu.Lock()
	r.footprint = fp
	r.mu.Unlock()
	return fp
}

// storedDecision reads the persisted decision. A corrupt value is discarded
// and reported as no decision, so the banner is shown again.
func (r *Runtime) storedDecision(ctx context.Context) (domain.Decision, bool) {
	raw, ok := r.durable.Get(storage.KeyConsent)
	if !ok || raw == "" {
		return domain.Decision{}, false
	}
	d, err := domain.ParseDecision(raw)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			r.logger.WarnContext(ctx, "discarding corrupt stored decision", "error", err)
			r.durable.Remove(storage.KeyConsent)
		}
		return domain.Decision{}, false
	}
	return d, true
}

// Decision returns the persisted decision, if any.
func (r *Runtime) Decision(ctx context.Context) (domain.Decision, bool) {
	return r.storedDecision(ctx)
}
