// Package strings normalises the short string lists carried by tenant
// configuration, such as language codes and linked domains.
package strings

import (
	"strings"
)

// Clean trims each value, drops blanks and removes repeats, keeping the first
// occurrence. When fold is non-nil it is applied before comparison and its
// result is what the output holds.
func Clean(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold != nil {
			v = fold(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Languages normalises language codes to lowercase.
func Languages(codes []string) []string {
	return Clean(codes, strings.ToLower)
}

// Hosts normalises hostnames: lowercase, no trailing root dot.
func Hosts(hosts []string) []string {
	return Clean(hosts, func(h string) string {
		return strings.TrimSuffix(strings.ToLower(h), ".")
	})
}
