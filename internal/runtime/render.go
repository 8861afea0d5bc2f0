package runtime

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"esbilla/internal/page"
	"esbilla/internal/tenant"
)

const (
	// RootID is the id of the element holding the rendered view.
	RootID = "esbilla-root"
	// StyleAttr marks stylesheets injected by the runtime.
	StyleAttr = "data-esbilla-style"
	// ViewAttr on the root names the rendered view.
	ViewAttr = "data-esbilla-view"
)

// FallbackStylesheet keeps the page usable when the styled experience could
// not be loaded.
const FallbackStylesheet = `#esbilla-root{position:fixed;bottom:0;left:0;right:0;z-index:2147483647;` +
	`background:#fff;color:#222;font:14px/1.4 sans-serif;padding:12px;border-top:1px solid #ccc}` +
	`#esbilla-root button{margin-right:8px}`

// fallbackTemplate is used when the layout template cannot be fetched.
const fallbackTemplate = `<div class="esbilla-banner" role="dialog" aria-live="polite">` +
	`<p class="esbilla-title">{{title}}</p>` +
	`<p class="esbilla-description">{{description}}</p>` +
	`<button data-esbilla-action="accept_all">{{accept_all}}</button>` +
	`<button data-esbilla-action="reject_all">{{reject_all}}</button>` +
	`<button data-esbilla-action="customize">{{customize}}</button>` +
	`<p class="esbilla-legal">{{legal_notice}}</p>` +
	`</div>`

var defaultLabels = map[string]string{
	"title":              "We value your privacy",
	"description":        "We use cookies to measure traffic and personalise content. Choose which categories you allow.",
	"accept_all":         "Accept all",
	"reject_all":         "Reject all",
	"customize":          "Customize",
	"manage_preferences": "Cookie settings",
	"privacy_policy":     "Privacy policy",
	"cookie_policy":      "Cookie policy",
	"contact":            "Contact",
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// loadStyles fetches the layout and theme stylesheets. A failed stylesheet
// is skipped; it never fails boot.
func (r *Runtime) loadStyles(ctx context.Context, cfg tenant.Config) {
	r.mu.Lock()
	manifest := r.manifest
	r.mu.Unlock()

	var paths []string
	if layout, ok := manifest.Layouts[cfg.Layout]; ok {
		paths = append(paths, layout.Styles...)
	}
	if theme, ok := manifest.Themes[cfg.Theme]; ok {
		paths = append(paths, theme.Styles...)
	}
	for _, p := range paths {
		css, err := r.backend.Stylesheet(ctx, p)
		if err != nil {
			r.logger.WarnContext(ctx, "stylesheet unavailable", "path", p, "error", err)
			continue
		}
		r.injectStyle(css, p)
	}
	if vars := cssVariables(cfg); vars != "" {
		r.injectStyle(vars, "tenant")
	}
	if pos, ok := manifest.IndicatorStyles[cfg.IndicatorPosition]; ok && len(pos.CSS) > 0 {
		r.injectStyle("#esbilla-indicator{"+declarations(pos.CSS)+"}", "indicator")
	}
}

// loadTemplate fetches the layout template, falling back to the built-in one.
func (r *Runtime) loadTemplate(ctx context.Context, cfg tenant.Config) {
	r.mu.Lock()
	manifest := r.manifest
	r.mu.Unlock()

	tpl := fallbackTemplate
	if layout, ok := manifest.Layouts[cfg.Layout]; ok && layout.Template != "" {
		fetched, err := r.backend.Template(ctx, layout.Template)
		if err != nil {
			r.logger.WarnContext(ctx, "template unavailable, using built-in", "path", layout.Template, "error", err)
		} else {
			tpl = fetched
		}
	}
	r.mu.Lock()
	r.template = tpl
	r.mu.Unlock()
}

func (r *Runtime) injectStyle(css, source string) {
	style := page.NewElement(atom.Style, nethtml.Attribute{Key: StyleAttr, Val: source})
	style.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: css})
	r.window.Document.AppendChild(r.window.Document.Head(), style)
}

// render replaces the current view with view.
func (r *Runtime) render(ctx context.Context, view Outcome) {
	r.mu.Lock()
	tpl := r.template
	lang := r.language
	translations := r.translations[lang]
	r.view = view
	r.mu.Unlock()

	cfg := r.settings.Config()
	values := r.values(cfg, translations)

	var markup string
	switch view {
	case OutcomeBanner:
		markup = resolvePlaceholders(tpl, values)
	case OutcomeIndicator:
		markup = indicatorMarkup(cfg, values)
	default:
		return
	}

	nodes, err := nethtml.ParseFragment(strings.NewReader(markup), &nethtml.Node{
		Type: nethtml.ElementNode, DataAtom: atom.Div, Data: "div",
	})
	if err != nil {
		r.logger.WarnContext(ctx, "template parse failed", "error", err)
		return
	}

	root := page.NewElement(atom.Div,
		nethtml.Attribute{Key: "id", Val: RootID},
		nethtml.Attribute{Key: ViewAttr, Val: string(view)},
		nethtml.Attribute{Key: "lang", Val: lang},
	)
	for _, n := range nodes {
		root.AppendChild(n)
	}

	doc := r.window.Document
	if old := doc.FindByID(RootID); old != nil {
		doc.ReplaceNode(old, root)
		return
	}
	doc.AppendChild(doc.Body(), root)
}

// values merges the placeholder sources: tenant labels win over
// translations, which win over built-in labels.
func (r *Runtime) values(cfg tenant.Config, translations map[string]string) map[string]string {
	out := make(map[string]string, len(defaultLabels)+len(translations)+len(cfg.Labels)+1)
	for k, v := range defaultLabels {
		out[k] = html.EscapeString(v)
	}
	for k, v := range translations {
		out[k] = html.EscapeString(v)
	}
	for k, v := range cfg.Labels {
		out[k] = html.EscapeString(v)
	}
	out["legal_notice"] = legalNotice(cfg.Legal, out)
	return out
}

// resolvePlaceholders substitutes {{key}} occurrences. Unknown keys resolve
// to the empty string.
func resolvePlaceholders(tpl string, values map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		return values[key]
	})
}

// legalNotice builds the legal footer from the tenant's legal details.
// values are already escaped.
func legalNotice(l tenant.Legal, values map[string]string) string {
	var parts []string
	if l.CompanyName != "" {
		parts = append(parts, html.EscapeString(l.CompanyName))
	}
	if l.PrivacyURL != "" {
		parts = append(parts, link(l.PrivacyURL, values["privacy_policy"]))
	}
	if l.CookiesURL != "" {
		parts = append(parts, link(l.CookiesURL, values["cookie_policy"]))
	}
	if l.ContactEmail != "" {
		parts = append(parts, link("mailto:"+l.ContactEmail, values["contact"]))
	}
	return strings.Join(parts, " · ")
}

func link(href, text string) string {
	return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener">%s</a>`, html.EscapeString(href), text)
}

func indicatorMarkup(cfg tenant.Config, values map[string]string) string {
	icon := cfg.Icon
	if icon == "" {
		icon = "🍪"
	}
	position := cfg.IndicatorPosition
	if position == "" {
		position = "bottom-left"
	}
	return fmt.Sprintf(`<button id="esbilla-indicator" class="esbilla-panoya esbilla-panoya--%s" data-esbilla-action="open" aria-label="%s">%s</button>`,
		html.EscapeString(position), values["manage_preferences"], html.EscapeString(icon))
}

// cssVariables exposes tenant colors and typography as custom properties.
func cssVariables(cfg tenant.Config) string {
	vars := make(map[string]string, len(cfg.Colors)+len(cfg.Typography))
	for k, v := range cfg.Colors {
		vars["--esbilla-color-"+k] = v
	}
	for k, v := range cfg.Typography {
		vars["--esbilla-font-"+k] = v
	}
	if len(vars) == 0 {
		return ""
	}
	return ":root{" + declarations(vars) + "}"
}

var cssUnsafe = strings.NewReplacer("<", "", ">", "", "{", "", "}", "", ";", "")

func declarations(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(cssUnsafe.Replace(k))
		sb.WriteString(":")
		sb.WriteString(cssUnsafe.Replace(props[k]))
		sb.WriteString(";")
	}
	return sb.String()
}
