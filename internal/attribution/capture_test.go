package attribution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"esbilla/internal/page"
	"esbilla/internal/storage"
	"esbilla/pkg/domain"
	"esbilla/pkg/requestcontext"
)

type CaptureSuite struct {
	suite.Suite
	ctx      context.Context
	cookies  *storage.MemoryCookieJar
	durable  *storage.Adapter
	volatile *storage.Adapter
}

func TestCaptureSuite(t *testing.T) {
	suite.Run(t, new(CaptureSuite))
}

func (s *CaptureSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	s.cookies = storage.NewMemoryCookieJar()
	s.durable = storage.NewAdapter(s.cookies, storage.NewMemoryLocalStore(), "www.example.com")
	s.volatile = storage.NewAdapter(s.cookies, storage.NewMemoryLocalStore(), "www.example.com", storage.WithSessionScope())
}

func (s *CaptureSuite) capturer(rawURL string) (*Capturer, *page.Window) {
	w, err := page.NewWindow(rawURL, nil, page.WithReferrer("https://search.test/"))
	s.Require().NoError(err)
	c := New(s.durable, s.volatile, w, WithFootprint(func() domain.Footprint { return "ESB-0000CAFE" }))
	return c, w
}

func (s *CaptureSuite) TestCapture() {
	s.Run("allow-listed keys go to volatile storage only", func() {
		c, _ := s.capturer("https://www.example.com/landing?utm_source=x&gclid=abc&page=2")

		s.True(c.Capture(s.ctx))
		_, ok := s.durable.Get(storage.KeyAttribution)
		s.False(ok)

		rec, ok := c.Data(s.ctx)
		s.Require().True(ok)
		s.Equal(map[string]string{"utm_source": "x", "gclid": "abc"}, rec.Identifiers)
		s.Equal("https://search.test/", rec.Referrer)
		s.Equal("https://www.example.com/landing?utm_source=x&gclid=abc&page=2", rec.LandingURL)
		s.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), rec.CapturedAt)
		s.Equal("ESB-0000CAFE", rec.Footprint)
	})

	s.Run("no identifiers captures nothing", func() {
		s.SetupTest()
		c, _ := s.capturer("https://www.example.com/?page=2")
		s.False(c.Capture(s.ctx))
		_, ok := c.Data(s.ctx)
		s.False(ok)
	})

	s.Run("footprint stamp is not persisted", func() {
		s.SetupTest()
		c, _ := s.capturer("https://www.example.com/?fbclid=1")
		s.Require().True(c.Capture(s.ctx))
		c.Data(s.ctx)
		raw, ok := s.volatile.Get(storage.KeyTempAttribution)
		s.Require().True(ok)
		s.NotContains(raw, "ESB-0000CAFE")
	})
}

func (s *CaptureSuite) TestPromotionIsAMove() {
	c, w := s.capturer("https://www.example.com/?utm_source=newsletter")
	s.Require().True(c.Capture(s.ctx))
	before, _ := s.volatile.Get(storage.KeyTempAttribution)

	c.HandleConsent(s.ctx, true)

	after, ok := s.durable.Get(storage.KeyAttribution)
	s.True(ok)
	s.Equal(before, after)
	_, ok = s.volatile.Get(storage.KeyTempAttribution)
	s.False(ok)

	events := w.DataLayer.Events(DataLayerEvent)
	s.Require().Len(events, 1)
	attribution := events[0]["attribution"].(map[string]any)
	s.Equal("newsletter", attribution["utm_source"])
}

func (s *CaptureSuite) TestGrantWithNothingCapturedIsSilent() {
	c, w := s.capturer("https://www.example.com/")
	c.HandleConsent(s.ctx, true)
	s.Empty(w.DataLayer.Events(DataLayerEvent))
}

func (s *CaptureSuite) TestPurge() {
	s.Run("reject purges volatile and durable", func() {
		c, w := s.capturer("https://www.example.com/?utm_source=x")
		s.Require().True(c.Capture(s.ctx))
		s.durable.Set(storage.KeyAttribution, `{"utm_source":"old"}`)

		c.HandleConsent(s.ctx, false)

		_, ok := s.volatile.Get(storage.KeyTempAttribution)
		s.False(ok)
		_, ok = s.durable.Get(storage.KeyAttribution)
		s.False(ok)
		s.Empty(w.DataLayer.Events(DataLayerEvent))
	})

	s.Run("reject with nothing present is idempotent", func() {
		s.SetupTest()
		c, _ := s.capturer("https://www.example.com/")
		c.HandleConsent(s.ctx, false)
		c.HandleConsent(s.ctx, false)
		_, ok := c.Data(s.ctx)
		s.False(ok)
	})
}

func (s *CaptureSuite) TestCorruptVolatileIsDiscarded() {
	c, w := s.capturer("https://www.example.com/")
	s.volatile.Set(storage.KeyTempAttribution, "{not json")

	c.HandleConsent(s.ctx, true)

	_, ok := s.volatile.Get(storage.KeyTempAttribution)
	s.False(ok)
	_, ok = s.durable.Get(storage.KeyAttribution)
	s.False(ok)
	s.Empty(w.DataLayer.Events(DataLayerEvent))
}
