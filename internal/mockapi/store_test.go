package mockapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esbilla/internal/backend"
	"esbilla/pkg/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	last, err := store.Last(ctx, "llagar", "ESB-ABCDEF12")
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, store.Save(ctx, "llagar", "ESB-ABCDEF12", backend.LastConsent{Choices: domain.AcceptAll(), Language: "es"}))
	require.NoError(t, store.Save(ctx, "llagar", "ESB-ABCDEF12", backend.LastConsent{Choices: domain.RejectAll()}))

	last, err = store.Last(ctx, "llagar", "ESB-ABCDEF12")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, domain.RejectAll(), last.Choices, "last write wins")

	other, err := store.Last(ctx, "sidra", "ESB-ABCDEF12")
	require.NoError(t, err)
	assert.Nil(t, other, "tenants never share decisions")
}

func TestParseFixturesDefaultsSiteID(t *testing.T) {
	f, err := ParseFixtures([]byte("sites:\n  demo:\n    layout: modal\ntenants:\n  t1:\n    sites: [demo]\n"))
	require.NoError(t, err)
	assert.Equal(t, "demo", f.Sites["demo"].SiteID)

	id, _, ok := f.tenantOf("demo")
	assert.True(t, ok)
	assert.Equal(t, "t1", id)

	_, err = ParseFixtures([]byte("sites: [unclosed"))
	assert.Error(t, err)
}
