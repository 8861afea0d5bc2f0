package crossdomain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esbilla/internal/backend"
	"esbilla/internal/tenant"
	"esbilla/pkg/domain"
	dErrors "esbilla/pkg/domain-errors"
)

type stubBackend struct {
	got backend.SyncRequest
	res *backend.SyncResponse
	err error
}

func (s *stubBackend) Sync(_ context.Context, req backend.SyncRequest) (*backend.SyncResponse, error) {
	s.got = req
	return s.res, s.err
}

type outcomes map[string]int

func (o outcomes) IncSync(outcome string) { o[outcome]++ }

func TestSync(t *testing.T) {
	ctx := context.Background()

	t.Run("success records tenant fields", func(t *testing.T) {
		b := &stubBackend{res: &backend.SyncResponse{
			TenantID: "t-1",
			Domains:  []string{"example.com", "example.org"},
			LastConsent: &backend.LastConsent{
				Choices:  domain.Decision{Analytics: true},
				Language: "ast",
			},
		}}
		settings := tenant.NewSettings("site-1", "")
		m := outcomes{}
		c := New(b, settings, "www.example.com", WithMetrics(m))

		res, ok := c.Sync(ctx, domain.Footprint("ESB-00000001"))
		require.True(t, ok)
		assert.Equal(t, backend.SyncRequest{SiteID: "site-1", FootprintID: "ESB-00000001", Domain: "www.example.com"}, b.got)
		assert.Equal(t, "t-1", res.TenantID)
		require.NotNil(t, res.LastConsent)
		assert.True(t, res.LastConsent.Decision.Analytics)
		assert.Equal(t, "ast", res.LastConsent.Language)

		assert.Equal(t, "t-1", settings.TenantID())
		assert.Equal(t, []string{"example.com", "example.org"}, settings.Domains())
		assert.Equal(t, 1, m[OutcomeOK])
	})

	t.Run("empty footprint is sent as absent", func(t *testing.T) {
		b := &stubBackend{res: &backend.SyncResponse{}}
		_, ok := New(b, tenant.NewSettings("site-1", ""), "example.com").Sync(ctx, "")
		require.True(t, ok)
		assert.Empty(t, b.got.FootprintID)
	})

	t.Run("failure yields no result", func(t *testing.T) {
		b := &stubBackend{err: dErrors.New(dErrors.CodeUnavailable, "status 500")}
		settings := tenant.NewSettings("site-1", "")
		m := outcomes{}

		res, ok := New(b, settings, "example.com", WithMetrics(m)).Sync(ctx, "ESB-00000001")
		assert.False(t, ok)
		assert.Nil(t, res)
		assert.Empty(t, settings.TenantID())
		assert.Equal(t, 1, m[OutcomeFailed])
	})
}
