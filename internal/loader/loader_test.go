package loader_test

//go:generate mockgen -source=fetcher.go -destination=mocks/mocks.go -package=mocks Fetcher,ModuleSource

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/net/html"

	"esbilla/internal/loader"
	"esbilla/internal/loader/mocks"
	"esbilla/internal/page"
	"esbilla/internal/tenant"
	"esbilla/internal/tenant/models"
	"esbilla/pkg/domain"
	dErrors "esbilla/pkg/domain-errors"
	"esbilla/pkg/platform/sentinel"
	"esbilla/pkg/requestcontext"
)

const scriptTemplate = `<script async src="https://vendor.test/{{.}}.js"></script>`

type LoaderSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	fetcher  *mocks.MockFetcher
	registry *loader.Registry
	doc      *page.Document
	settings *tenant.Settings
	loader   *loader.Loader
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.fetcher = mocks.NewMockFetcher(s.ctrl)
	s.registry = loader.NewRegistry()
	s.doc = page.NewDocument()
	s.settings = tenant.NewSettings("site-1", "")
	s.loader = loader.New(s.registry, s.fetcher, s.doc, s.settings)
}

func (s *LoaderSuite) register(names ...string) {
	for _, name := range names {
		s.Require().NoError(s.registry.Register(loader.MustTemplateModule(name, scriptTemplate)))
	}
}

func registerOnFetch(_ context.Context, _ domain.Category, name string, reg *loader.Registry) error {
	return reg.Register(loader.MustTemplateModule(name, scriptTemplate))
}

func (s *LoaderSuite) injectedVendors() []string {
	var vendors []string
	for _, n := range s.doc.FindAll(page.IsScript) {
		if v, ok := page.Attr(n, loader.DynamicAttr); ok {
			vendors = append(vendors, v)
		}
	}
	sort.Strings(vendors)
	return vendors
}

func (s *LoaderSuite) TestLoadRegistryHitDoesNotFetch() {
	s.register("plausible")
	m, err := s.loader.Load(context.Background(), domain.CategoryAnalytics, "plausible")
	s.Require().NoError(err)
	s.Equal("plausible", m.Name())
}

func (s *LoaderSuite) TestLoadFetchesOnce() {
	s.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.CategoryMarketing, "facebookPixel", s.registry).
		DoAndReturn(registerOnFetch).
		Times(1)

	for range 3 {
		m, err := s.loader.Load(context.Background(), domain.CategoryMarketing, "facebookPixel")
		s.Require().NoError(err)
		s.Equal("facebookPixel", m.Name())
	}
}

func (s *LoaderSuite) TestFailedFetchIsMemoized() {
	s.fetcher.EXPECT().
		Fetch(gomock.Any(), gomock.Any(), "broken", gomock.Any()).
		Return(dErrors.New(dErrors.CodeUnavailable, "status 503")).
		Times(1)

	_, err := s.loader.Load(context.Background(), domain.CategoryAnalytics, "broken")
	s.ErrorIs(err, loader.ErrModuleUnavailable)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	_, err = s.loader.Load(context.Background(), domain.CategoryAnalytics, "broken")
	s.ErrorIs(err, loader.ErrModuleUnavailable)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	s.Equal([]string{"broken"}, s.loader.Attempted())
}

func (s *LoaderSuite) TestFetchWithoutRegistrationIsUnavailable() {
	s.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), "silent", gomock.Any()).Return(nil)

	_, err := s.loader.Load(context.Background(), domain.CategoryFunctional, "silent")
	s.ErrorIs(err, loader.ErrModuleUnavailable)
}

func (s *LoaderSuite) TestConcurrentLoadsShareOneFetch() {
	release := make(chan struct{})
	s.fetcher.EXPECT().
		Fetch(gomock.Any(), gomock.Any(), "linkedinInsight", gomock.Any()).
		DoAndReturn(func(ctx context.Context, c domain.Category, name string, reg *loader.Registry) error {
			<-release
			return registerOnFetch(ctx, c, name, reg)
		}).
		Times(1)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.loader.Load(context.Background(), domain.CategoryMarketing, "linkedinInsight")
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
}

func (s *LoaderSuite) TestLoadDynamicScriptsSelection() {
	s.register("googleAnalytics", "plausible", "matomo", "facebookPixel", "crisp")
	scripts := models.ScriptConfig{
		Analytics:  map[string]any{"googleAnalytics": "G-1", "plausible": "example.com", "matomo": "7"},
		Marketing:  map[string]any{"facebookPixel": "42"},
		Functional: map[string]any{"crisp": "abc"},
	}

	tests := []struct {
		name       string
		decision   domain.Decision
		enableG100 bool
		want       []string
	}{
		{
			name:     "reject all loads only cookieless vendors",
			decision: domain.RejectAll(),
			want:     []string{"plausible"},
		},
		{
			name:       "pre-consent opt-in adds the primary tag",
			decision:   domain.RejectAll(),
			enableG100: true,
			want:       []string{"googleAnalytics", "plausible"},
		},
		{
			name:     "analytics only",
			decision: domain.Decision{Analytics: true},
			want:     []string{"googleAnalytics", "matomo", "plausible"},
		},
		{
			name:     "functional follows its own flag",
			decision: domain.Decision{Functional: true},
			want:     []string{"crisp", "plausible"},
		},
		{
			name:     "accept all",
			decision: domain.AcceptAll(),
			want:     []string{"crisp", "facebookPixel", "googleAnalytics", "matomo", "plausible"},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.doc = page.NewDocument()
			s.settings.SetConfig(tenant.Config{ScriptConfig: scripts, EnableG100: tt.enableG100})
			l := loader.New(s.registry, s.fetcher, s.doc, s.settings)

			n := l.LoadDynamicScripts(context.Background(), tt.decision)
			s.Equal(len(tt.want), n)
			s.Equal(tt.want, s.injectedVendors())
		})
	}
}

func (s *LoaderSuite) TestVendorFailureDoesNotAbortSiblings() {
	s.register("crisp")
	s.settings.SetConfig(tenant.Config{ScriptConfig: models.ScriptConfig{
		Functional: map[string]any{"crisp": "abc", "intercom": "xyz"},
	}})
	s.fetcher.EXPECT().
		Fetch(gomock.Any(), domain.CategoryFunctional, "intercom", gomock.Any()).
		Return(errors.New("dial tcp: connection refused"))

	n := s.loader.LoadDynamicScripts(context.Background(), domain.Decision{Functional: true})
	s.Equal(1, n)
	s.Equal([]string{"crisp"}, s.injectedVendors())
}

func (s *LoaderSuite) TestInject() {
	markup := `<script>window.x = 1;</script><div><noscript><img src="https://px.test/p.gif"></noscript></div><p>ignored</p>`

	n, err := s.loader.Inject(markup, "facebookPixel")
	s.Require().NoError(err)
	s.Equal(2, n)

	head := s.doc.Head()
	var injected []*html.Node
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if v, ok := page.Attr(c, loader.DynamicAttr); ok {
			s.Equal("facebookPixel", v)
			injected = append(injected, c)
		}
	}
	s.Require().Len(injected, 2)
	s.Equal("script", injected[0].Data)
	s.Equal("noscript", injected[1].Data)
	s.Len(s.doc.Executed(), 1)
}

func (s *LoaderSuite) TestInjectTagManager() {
	w, err := page.NewWindow("https://shop.example.com/", s.doc)
	s.Require().NoError(err)
	at := time.UnixMilli(1_700_000_000_000)
	ctx := requestcontext.WithTime(context.Background(), at)

	s.False(s.loader.InjectTagManager(ctx, w, models.GTMConfig{}))

	gtm := models.GTMConfig{ContainerID: "GTM-ABC", GatewayEnabled: true, GatewayDomain: "https://metrics.example.com/"}
	s.True(s.loader.InjectTagManager(ctx, w, gtm))
	s.False(s.loader.InjectTagManager(ctx, w, gtm))

	scripts := s.doc.FindAll(page.ScriptSrcContains("gtm.js"))
	s.Require().Len(scripts, 1)
	src, _ := page.Attr(scripts[0], "src")
	s.Equal("https://metrics.example.com/gtm.js?id=GTM-ABC", src)

	events := w.DataLayer.Events("gtm.js")
	s.Require().Len(events, 1)
	s.Equal(at.UnixMilli(), events[0]["gtm.start"])
}

func TestHTTPFetcher(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockModuleSource(ctrl)
	f := loader.NewHTTPFetcher(src)
	ctx := context.Background()

	t.Run("registers the declared module", func(t *testing.T) {
		reg := loader.NewRegistry()
		src.EXPECT().Module(gomock.Any(), "analytics", "matomo.json").
			Return([]byte(`{"name":"matomo","template":"<script src=\"https://m.test/{{.}}.js\"></script>"}`), nil)

		require.NoError(t, f.Fetch(ctx, domain.CategoryAnalytics, "matomo", reg))
		m, ok := reg.Get("matomo")
		require.True(t, ok)
		out, err := m.Render("7")
		require.NoError(t, err)
		assert.Equal(t, `<script src="https://m.test/7.js"></script>`, out)
	})

	t.Run("malformed document is bad data", func(t *testing.T) {
		src.EXPECT().Module(gomock.Any(), "marketing", "x.json").Return([]byte(`{`), nil)
		err := f.Fetch(ctx, domain.CategoryMarketing, "x", loader.NewRegistry())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadData))
	})

	t.Run("nameless document is bad data", func(t *testing.T) {
		src.EXPECT().Module(gomock.Any(), "marketing", "y.json").Return([]byte(`{"template":""}`), nil)
		err := f.Fetch(ctx, domain.CategoryMarketing, "y", loader.NewRegistry())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadData))
	})
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := loader.NewRegistry()
	require.NoError(t, reg.Register(loader.MustTemplateModule("crisp", "")))
	assert.Error(t, reg.Register(loader.MustTemplateModule("crisp", "")))
	assert.Equal(t, []string{"crisp"}, reg.Names())
}
