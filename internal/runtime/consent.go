package runtime

import (
	"context"

	"esbilla/internal/backend"
	"esbilla/internal/storage"
	"esbilla/pkg/domain"
	dErrors "esbilla/pkg/domain-errors"
	"esbilla/pkg/requestcontext"
)

// AcceptAll records and applies a decision granting every category.
func (r *Runtime) AcceptAll(ctx context.Context) {
	r.saveConsent(ctx, domain.AcceptAll(), backend.ActionAcceptAll)
}

// RejectAll records and applies a decision denying every category.
func (r *Runtime) RejectAll(ctx context.Context) {
	r.saveConsent(ctx, domain.RejectAll(), backend.ActionRejectAll)
}

// Customize records and applies a per-category decision.
func (r *Runtime) Customize(ctx context.Context, d domain.Decision) {
	r.saveConsent(ctx, d, backend.ActionCustomize)
}

// HandleAction routes a banner button action.
func (r *Runtime) HandleAction(ctx context.Context, action string) error {
	switch action {
	case string(backend.ActionAcceptAll):
		r.AcceptAll(ctx)
	case string(backend.ActionRejectAll):
		r.RejectAll(ctx)
	case "open":
		r.Reopen(ctx)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unknown action "+action)
	}
	return nil
}

// Reopen shows the banner again so the visitor can change a decision.
func (r *Runtime) Reopen(ctx context.Context) {
	r.render(ctx, OutcomeBanner)
}

// saveConsent persists, resolves attribution, logs and applies a user
// decision, in that order. Replays of stored decisions skip this path so
// they are never logged as new actions.
func (r *Runtime) saveConsent(ctx context.Context, d domain.Decision, action backend.Action) {
	r.durable.Set(storage.KeyConsent, d.Encode())
	r.capture.HandleConsent(ctx, d.Marketing)

	entry := backend.LogEntry{
		SiteID:      r.settings.SiteID(),
		FootprintID: r.Footprint().String(),
		Choices:     d,
		Action:      action,
		Metadata: backend.LogMetadata{
			Domain:    r.window.Host(),
			PageURL:   r.window.Location.String(),
			Referrer:  r.window.Referrer,
			UserAgent: r.window.UserAgent,
			Language:  r.Language(),
		},
		Timestamp: requestcontext.Now(ctx),
	}
	if d.Marketing {
		if rec, ok := r.capture.Data(ctx); ok {
			entry.Attribution = rec.Map()
		}
	}
	if r.publisher != nil {
		r.publisher.Emit(ctx, entry)
	}
	r.metrics.IncConsentSaved(string(action))

	r.dispatcher.Apply(ctx, d)
	r.render(ctx, OutcomeIndicator)
}

// SetLanguage switches the template language, remembering it when the
// tenant enables that feature, and re-renders the current view.
func (r *Runtime) SetLanguage(ctx context.Context, code string) error {
	r.mu.Lock()
	known := contains(r.languages, code)
	r.mu.Unlock()
	if !known {
		return dErrors.New(dErrors.CodeInvalidInput, "unsupported language "+code)
	}

	r.mu.Lock()
	r.language = code
	view := r.view
	r.mu.Unlock()

	if r.settings.Config().Features.RememberLanguage {
		r.durable.Set(storage.KeyLanguage, code)
	}
	r.render(ctx, view)
	return nil
}
