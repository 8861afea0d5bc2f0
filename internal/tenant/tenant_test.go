package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esbilla/internal/tenant/models"
	"esbilla/pkg/domain"
	dErrors "esbilla/pkg/domain-errors"
)

func TestMerge(t *testing.T) {
	base := Config{
		Layout:             "modal",
		Colors:             map[string]string{"primary": "#000", "text": "#333"},
		DefaultLanguage:    "es",
		AvailableLanguages: []string{"es", "ast"},
		ScriptConfig: models.ScriptConfig{
			Analytics: map[string]any{"googleAnalytics": "G-BASE"},
		},
	}

	t.Run("overrides win and maps merge per key", func(t *testing.T) {
		inline, err := ParseInline([]byte(`{"layout":"bar","colors":{"primary":"#fff"}}`))
		require.NoError(t, err)

		merged, err := Merge(base, inline)
		require.NoError(t, err)
		assert.Equal(t, "bar", merged.Layout)
		assert.Equal(t, "#fff", merged.Colors["primary"])
		assert.Equal(t, "#333", merged.Colors["text"])
		assert.Equal(t, "es", merged.DefaultLanguage)
	})

	t.Run("base is not mutated", func(t *testing.T) {
		inline, err := ParseInline([]byte(`{"colors":{"primary":"#f00"}}`))
		require.NoError(t, err)
		_, err = Merge(base, inline)
		require.NoError(t, err)
		assert.Equal(t, "#000", base.Colors["primary"])
	})

	t.Run("vendor maps merge", func(t *testing.T) {
		inline, err := ParseInline([]byte(`{"scriptConfig":{"analytics":{"plausible":"example.com"}}}`))
		require.NoError(t, err)
		merged, err := Merge(base, inline)
		require.NoError(t, err)
		vendors := merged.ScriptConfig.Vendors(domain.CategoryAnalytics)
		require.Len(t, vendors, 2)
		assert.Equal(t, "googleAnalytics", vendors[0].Name)
		assert.Equal(t, "plausible", vendors[1].Name)
	})

	t.Run("empty inline is a no-op", func(t *testing.T) {
		inline, err := ParseInline(nil)
		require.NoError(t, err)
		merged, err := Merge(base, inline)
		require.NoError(t, err)
		assert.Equal(t, base.Layout, merged.Layout)
	})

	t.Run("malformed inline is invalid input", func(t *testing.T) {
		_, err := ParseInline([]byte(`{"layout":`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestSettingsApplySync(t *testing.T) {
	s := NewSettings("site-1", "https://api.test")
	s.ApplySync("tenant-9", []string{"Example.com", " shop.example.com", "example.com"})
	assert.Equal(t, "tenant-9", s.TenantID())
	assert.Equal(t, []string{"example.com", "shop.example.com"}, s.Domains())

	s.ApplySync("", nil)
	assert.Equal(t, "tenant-9", s.TenantID())
	assert.Len(t, s.Domains(), 2)
}
