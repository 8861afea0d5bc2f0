package runtime

import (
	"sort"

	"golang.org/x/text/language"

	"esbilla/internal/backend"
	"esbilla/internal/tenant"
)

// availableLanguages lists the languages the banner can be shown in: the
// tenant's list when set, otherwise every translated language.
func availableLanguages(cfg tenant.Config, translations backend.Translations) []string {
	if len(cfg.AvailableLanguages) > 0 {
		return cfg.AvailableLanguages
	}
	langs := make([]string, 0, len(translations))
	for code := range translations {
		langs = append(langs, code)
	}
	sort.Strings(langs)
	return langs
}

// pickLanguage chooses stored preference, then the best browser match, then
// the tenant default.
func pickLanguage(stored string, browser []string, def string, available []string) string {
	if stored != "" && (len(available) == 0 || contains(available, stored)) {
		return stored
	}
	if def == "" && len(available) > 0 {
		def = available[0]
	}

	supported := []string{def}
	for _, code := range available {
		if code != def {
			supported = append(supported, code)
		}
	}
	var tags, desired []language.Tag
	var codes []string
	for _, code := range supported {
		t, err := language.Parse(code)
		if err != nil {
			continue
		}
		tags = append(tags, t)
		codes = append(codes, code)
	}
	for _, b := range browser {
		if t, err := language.Parse(b); err == nil {
			desired = append(desired, t)
		}
	}
	if len(tags) == 0 || len(desired) == 0 {
		return def
	}

	_, idx, conf := language.NewMatcher(tags).Match(desired...)
	if conf == language.No {
		return def
	}
	return codes[idx]
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
