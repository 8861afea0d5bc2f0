package modules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esbilla/internal/loader"
)

func TestRegister(t *testing.T) {
	reg := loader.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Len(t, reg.Names(), len(All()))

	t.Run("registering twice fails", func(t *testing.T) {
		assert.Error(t, Register(reg))
	})
}

func TestRender(t *testing.T) {
	reg := loader.NewRegistry()
	require.NoError(t, Register(reg))

	tests := []struct {
		module string
		config any
		want   []string
	}{
		{"googleAnalytics", "G-ABC123", []string{`gtag/js?id=G-ABC123`, `gtag('config',"G-ABC123")`}},
		{"plausible", "example.com", []string{`data-domain="example.com"`}},
		{"facebookPixel", "1234", []string{`fbq('init',"1234")`, `tr?id=1234&ev=PageView`}},
		{"microsoftClarity", "k1x9z", []string{`clarity.ms/tag/k1x9z`}},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			m, ok := reg.Get(tt.module)
			require.True(t, ok)
			out, err := m.Render(tt.config)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.True(t, strings.Contains(out, w), "%s not in %s", w, out)
			}
		})
	}

	t.Run("configuration cannot break out of script context", func(t *testing.T) {
		m, ok := reg.Get("crisp")
		require.True(t, ok)
		out, err := m.Render(`"; alert(1); "`)
		require.NoError(t, err)
		assert.NotContains(t, out, `=""; alert(1)`)
	})
}
