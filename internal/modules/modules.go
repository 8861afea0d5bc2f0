// Package modules ships the vendor modules known without a remote fetch.
// Their templates receive the tenant's opaque vendor configuration as data.
package modules

import (
	"esbilla/internal/loader"
	"esbilla/pkg/domain"
)

// Builtin describes one in-process module.
type Builtin struct {
	Name     string
	Category domain.Category
	Template string
}

var builtins = []Builtin{
	{
		Name:     "googleAnalytics",
		Category: domain.CategoryAnalytics,
		Template: `<script async src="https://www.googletagmanager.com/gtag/js?id={{.}}"></script>` +
			`<script>window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}gtag('js',new Date());gtag('config',{{.}});</script>`,
	},
	{
		Name:     "plausible",
		Category: domain.CategoryAnalytics,
		Template: `<script defer data-domain="{{.}}" src="https://plausible.io/js/script.js"></script>`,
	},
	{
		Name:     "microsoftClarity",
		Category: domain.CategoryAnalytics,
		Template: `<script async src="https://www.clarity.ms/tag/{{.}}"></script>`,
	},
	{
		Name:     "facebookPixel",
		Category: domain.CategoryMarketing,
		Template: `<script async src="https://connect.facebook.net/en_US/fbevents.js"></script>` +
			`<script>fbq('init',{{.}});fbq('track','PageView');</script>` +
			`<noscript><img height="1" width="1" style="display:none" src="https://www.facebook.com/tr?id={{.}}&ev=PageView&noscript=1"></noscript>`,
	},
	{
		Name:     "linkedinInsight",
		Category: domain.CategoryMarketing,
		Template: `<script>window._linkedin_partner_id={{.}};</script>` +
			`<script async src="https://snap.licdn.com/li.lms-analytics/insight.min.js"></script>`,
	},
	{
		Name:     "tiktokPixel",
		Category: domain.CategoryMarketing,
		Template: `<script async src="https://analytics.tiktok.com/i18n/pixel/events.js?sdkid={{.}}"></script>`,
	},
	{
		Name:     "crisp",
		Category: domain.CategoryFunctional,
		Template: `<script>window.$crisp=[];window.CRISP_WEBSITE_ID={{.}};</script>` +
			`<script async src="https://client.crisp.chat/l.js"></script>`,
	},
}

// All returns the built-in modules.
func All() []Builtin {
	return append([]Builtin(nil), builtins...)
}

// Register adds every built-in module to reg.
func Register(reg *loader.Registry) error {
	for _, b := range builtins {
		m, err := loader.NewTemplateModule(b.Name, b.Template)
		if err != nil {
			return err
		}
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}
