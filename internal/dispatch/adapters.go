package dispatch

import (
	"context"
	"fmt"

	"esbilla/internal/page"
	"esbilla/pkg/domain"
)

// Adapter forwards a decision to one vendor consent API. Present is the
// duck-typed probe; Notify runs only when it reports true.
type Adapter interface {
	Name() string
	Present(w *page.Window) bool
	Notify(ctx context.Context, w *page.Window, d domain.Decision) error
}

// globalAdapter is an Adapter keyed on one window global.
type globalAdapter struct {
	name   string
	global string
	notify func(w *page.Window, d domain.Decision) error
}

func (a globalAdapter) Name() string { return a.name }

func (a globalAdapter) Present(w *page.Window) bool { return w.Has(a.global) }

func (a globalAdapter) Notify(_ context.Context, w *page.Window, d domain.Decision) error {
	return a.notify(w, d)
}

// call invokes a global and surfaces an error value it returns.
func call(w *page.Window, name string, args ...any) error {
	out, ok := w.Call(name, args...)
	if !ok {
		return fmt.Errorf("%s is not defined", name)
	}
	if err, isErr := out.(error); isErr {
		return err
	}
	return nil
}

func grantRevoke(granted bool) string {
	if granted {
		return "grant"
	}
	return "revoke"
}

func grantedOrDenied(granted bool) string {
	if granted {
		return page.Granted
	}
	return page.Denied
}

func allowDeny(granted bool) string {
	if granted {
		return "allow"
	}
	return "deny"
}

// MetaPixel drives fbq('consent', ...).
func MetaPixel() Adapter {
	return globalAdapter{name: "meta_pixel", global: "fbq", notify: func(w *page.Window, d domain.Decision) error {
		return call(w, "fbq", "consent", grantRevoke(d.Marketing))
	}}
}

// MicrosoftUET pushes a consent update onto the UET queue.
func MicrosoftUET() Adapter {
	return globalAdapter{name: "microsoft_uet", global: "uetq", notify: func(w *page.Window, d domain.Decision) error {
		return call(w, "uetq", "consent", "update", map[string]string{"ad_storage": grantedOrDenied(d.Marketing)})
	}}
}

// Clarity drives clarity('consent', bool).
func Clarity() Adapter {
	return globalAdapter{name: "clarity", global: "clarity", notify: func(w *page.Window, d domain.Decision) error {
		return call(w, "clarity", "consent", d.Analytics)
	}}
}

// ShopifyGlobal is the customer privacy entry point of Shopify storefronts.
const ShopifyGlobal = "Shopify.customerPrivacy.setTrackingConsent"

// Shopify forwards the decision to the storefront customer privacy API.
func Shopify() Adapter {
	return globalAdapter{name: "shopify", global: ShopifyGlobal, notify: func(w *page.Window, d domain.Decision) error {
		eff := d.Effective()
		return call(w, ShopifyGlobal, map[string]bool{
			"analytics":    eff.Analytics,
			"marketing":    eff.Marketing,
			"preferences":  eff.Functional,
			"sale_of_data": eff.Marketing,
		})
	}}
}

// WPConsent maps categories onto the WordPress Consent API.
func WPConsent() Adapter {
	return globalAdapter{name: "wp_consent_api", global: "wp_set_consent", notify: func(w *page.Window, d domain.Decision) error {
		eff := d.Effective()
		pairs := []struct {
			category string
			granted  bool
		}{
			{"statistics", eff.Analytics},
			{"marketing", eff.Marketing},
			{"functional", eff.Functional},
			{"preferences", eff.Functional},
		}
		for _, p := range pairs {
			if err := call(w, "wp_set_consent", p.category, allowDeny(p.granted)); err != nil {
				return err
			}
		}
		return nil
	}}
}

// DefaultAdapters returns the built-in vendor adapters in notification order.
func DefaultAdapters() []Adapter {
	return []Adapter{MetaPixel(), MicrosoftUET(), Clarity(), Shopify(), WPConsent()}
}
