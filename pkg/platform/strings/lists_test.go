package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		fold   func(string) string
		expect []string
	}{
		{name: "nil stays nil", input: nil, expect: nil},
		{name: "empty stays empty", input: []string{}, expect: []string{}},
		{
			name:   "trims and drops blanks",
			input:  []string{" es ", "", "   ", "ast"},
			expect: []string{"es", "ast"},
		},
		{
			name:   "first occurrence wins",
			input:  []string{"en", "es", "en", "ast", "es"},
			expect: []string{"en", "es", "ast"},
		},
		{
			name:   "case kept without fold",
			input:  []string{"ES", "es"},
			expect: []string{"ES", "es"},
		},
		{
			name:   "fold applies before comparison",
			input:  []string{"ES", "es", " Es "},
			fold:   strings.ToLower,
			expect: []string{"es"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Clean(tt.input, tt.fold))
		})
	}
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, []string{"ast", "es", "en-gb"}, Languages([]string{"AST", " es", "ast", "en-GB"}))
}

func TestHosts(t *testing.T) {
	got := Hosts([]string{"Shop.Llagar.test.", "shop.llagar.test", " blog.llagar.test ", "."})
	assert.Equal(t, []string{"shop.llagar.test", "blog.llagar.test"}, got)
}
