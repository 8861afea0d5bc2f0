package dispatch

//go:generate mockgen -source=dispatcher.go -destination=mocks/dispatcher-mocks.go -package=mocks Gate,ScriptLoader
//go:generate mockgen -source=adapters.go -destination=mocks/adapter-mocks.go -package=mocks Adapter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"esbilla/internal/dispatch/mocks"
	"esbilla/internal/page"
	"esbilla/internal/tenant"
	"esbilla/pkg/domain"
)

type failureCounter struct {
	nopMetrics
	failed   map[string]int
	notified map[string]int
	events   int
}

func (f *failureCounter) IncDispatchStepFailed(step string) { f.failed[step]++ }
func (f *failureCounter) IncAdapterNotified(name string)    { f.notified[name]++ }
func (f *failureCounter) IncMeasurementEvent()              { f.events++ }

type DispatcherSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	gate     *mocks.MockGate
	loader   *mocks.MockScriptLoader
	window   *page.Window
	settings *tenant.Settings
	metrics  *failureCounter
	calls    map[string][][]any
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gate = mocks.NewMockGate(s.ctrl)
	s.loader = mocks.NewMockScriptLoader(s.ctrl)
	w, err := page.NewWindow("https://www.example.com/", page.NewDocument())
	s.Require().NoError(err)
	s.window = w
	s.settings = tenant.NewSettings("site-1", "")
	s.metrics = &failureCounter{failed: map[string]int{}, notified: map[string]int{}}
	s.calls = map[string][][]any{}
}

func (s *DispatcherSuite) dispatcher(opts ...Option) *Dispatcher {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	}
	return New(s.window, s.settings, s.gate, s.loader, append(base, opts...)...)
}

// stub defines a recording global.
func (s *DispatcherSuite) stub(names ...string) {
	for _, name := range names {
		s.window.Define(name, func(args ...any) any {
			s.calls[name] = append(s.calls[name], args)
			return nil
		})
	}
}

func (s *DispatcherSuite) expectTail(d domain.Decision) {
	s.gate.EXPECT().Unblock(d).Return(0)
	s.loader.EXPECT().LoadDynamicScripts(gomock.Any(), d).Return(0)
}

func (s *DispatcherSuite) measurementEvents() int {
	n := 0
	for _, args := range s.calls["gtag"] {
		if len(args) > 0 && args[0] == "event" {
			n++
		}
	}
	return n
}

func (s *DispatcherSuite) TestDefaultDenyBeforeApply() {
	for _, key := range page.ConsentModeKeys {
		s.Equal(page.Denied, s.window.ConsentMode.State(key), key)
	}
}

func (s *DispatcherSuite) TestApplyStepOrder() {
	var steps []string
	adapter := mocks.NewMockAdapter(s.ctrl)
	adapter.EXPECT().Name().Return("probe").AnyTimes()
	adapter.EXPECT().Present(s.window).Return(true)
	adapter.EXPECT().Notify(gomock.Any(), s.window, gomock.Any()).DoAndReturn(
		func(context.Context, *page.Window, domain.Decision) error {
			s.Equal(page.Granted, s.window.ConsentMode.State(page.AnalyticsStorage))
			steps = append(steps, "adapter")
			return nil
		})
	s.window.AddEventListener(WindowEvent, func(page.Event) { steps = append(steps, "event") })

	d := domain.AcceptAll()
	gomock.InOrder(
		s.gate.EXPECT().Unblock(d).DoAndReturn(func(domain.Decision) int {
			steps = append(steps, "unblock")
			return 2
		}),
		s.loader.EXPECT().LoadDynamicScripts(gomock.Any(), d).DoAndReturn(func(context.Context, domain.Decision) int {
			steps = append(steps, "load")
			return 3
		}),
	)

	s.dispatcher(WithAdapters(adapter)).Apply(context.Background(), d)
	s.Equal([]string{"adapter", "event", "unblock", "load"}, steps)
}

func (s *DispatcherSuite) TestConsentModeUpdate() {
	d := domain.Decision{Marketing: true}
	s.expectTail(d)
	s.dispatcher().Apply(context.Background(), d)

	s.Equal(page.Denied, s.window.ConsentMode.State(page.AnalyticsStorage))
	s.Equal(page.Granted, s.window.ConsentMode.State(page.AdStorage))
	s.Equal(page.Granted, s.window.ConsentMode.State(page.FunctionalityStorage))

	s.Run("mirrored to the data layer without gtag", func() {
		entries := s.window.DataLayer.Entries()
		s.Require().NotEmpty(entries)
		first, ok := entries[0].([]any)
		s.Require().True(ok)
		s.Equal("consent", first[0])
		s.Equal("update", first[1])
	})
}

func (s *DispatcherSuite) TestMeasurementEvent() {
	tests := []struct {
		name       string
		decision   domain.Decision
		enableG100 bool
		gtag       bool
		want       int
	}{
		{name: "analytics granted", decision: domain.Decision{Analytics: true}, gtag: true, want: 1},
		{name: "denied without opt-in", decision: domain.RejectAll(), gtag: true, want: 0},
		{name: "denied with opt-in", decision: domain.RejectAll(), enableG100: true, gtag: true, want: 1},
		{name: "no primary tag", decision: domain.AcceptAll(), want: 0},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.settings.SetConfig(tenant.Config{EnableG100: tt.enableG100})
			if tt.gtag {
				s.stub("gtag")
			}
			s.expectTail(tt.decision)

			s.dispatcher().Apply(context.Background(), tt.decision)
			s.Equal(tt.want, s.measurementEvents())
			s.Equal(tt.want, s.metrics.events)
		})
	}
}

func (s *DispatcherSuite) TestMeasurementAtMostOncePerApply() {
	s.stub("gtag")
	d := domain.AcceptAll()
	s.gate.EXPECT().Unblock(d).Return(0).Times(3)
	s.loader.EXPECT().LoadDynamicScripts(gomock.Any(), d).Return(0).Times(3)

	disp := s.dispatcher()
	for i := 1; i <= 3; i++ {
		disp.Apply(context.Background(), d)
		s.Equal(i, s.measurementEvents())
	}
}

func (s *DispatcherSuite) TestBuiltinAdapters() {
	s.stub("fbq", "uetq", "clarity", ShopifyGlobal, "wp_set_consent")
	d := domain.Decision{Analytics: true}
	s.expectTail(d)

	s.dispatcher().Apply(context.Background(), d)

	s.Equal([][]any{{"consent", "revoke"}}, s.calls["fbq"])
	s.Equal([][]any{{"consent", "update", map[string]string{"ad_storage": page.Denied}}}, s.calls["uetq"])
	s.Equal([][]any{{"consent", true}}, s.calls["clarity"])
	s.Equal([][]any{{map[string]bool{
		"analytics":    true,
		"marketing":    false,
		"preferences":  true,
		"sale_of_data": false,
	}}}, s.calls[ShopifyGlobal])
	s.Equal([][]any{
		{"statistics", "allow"},
		{"marketing", "deny"},
		{"functional", "allow"},
		{"preferences", "allow"},
	}, s.calls["wp_set_consent"])
	s.Len(s.metrics.notified, 5)
}

func (s *DispatcherSuite) TestAbsentAdaptersAreSkipped() {
	d := domain.AcceptAll()
	s.expectTail(d)
	s.dispatcher().Apply(context.Background(), d)
	s.Empty(s.metrics.notified)
	s.Empty(s.metrics.failed)
}

func (s *DispatcherSuite) TestFailingStepsDoNotBlockOthers() {
	failing := mocks.NewMockAdapter(s.ctrl)
	failing.EXPECT().Name().Return("failing").AnyTimes()
	failing.EXPECT().Present(gomock.Any()).Return(true)
	failing.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("vendor api rejected"))

	panicking := mocks.NewMockAdapter(s.ctrl)
	panicking.EXPECT().Name().Return("panicking").AnyTimes()
	panicking.EXPECT().Present(gomock.Any()).DoAndReturn(func(*page.Window) bool { panic("undefined is not a function") })

	s.stub("clarity")
	d := domain.AcceptAll()
	s.expectTail(d)

	s.dispatcher(WithAdapters(failing, panicking, Clarity())).Apply(context.Background(), d)

	s.Equal(1, s.metrics.failed["adapter:failing"])
	s.Equal(1, s.metrics.failed["adapter:panicking"])
	s.Len(s.calls["clarity"], 1)
}

func (s *DispatcherSuite) TestRegister() {
	disp := s.dispatcher()
	adapter := mocks.NewMockAdapter(s.ctrl)
	adapter.EXPECT().Name().Return("custom").AnyTimes()
	disp.Register(adapter)
	s.Equal([]string{"meta_pixel", "microsoft_uet", "clarity", "shopify", "wp_consent_api", "custom"}, disp.Adapters())
}
