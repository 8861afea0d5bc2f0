package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"esbilla/internal/audit"
	"esbilla/internal/backend"
	"esbilla/internal/loader"
	"esbilla/internal/modules"
	"esbilla/internal/page"
	"esbilla/internal/platform/metrics"
	"esbilla/internal/runtime"
	"esbilla/internal/storage"
	"esbilla/internal/tenant"
	"esbilla/pkg/domain"
)

// renderOptions drives one simulated page load.
type renderOptions struct {
	SiteID     string
	APIBase    string
	PageURL    string
	Referrer   string
	UserAgent  string
	Languages  []string
	Action     string
	Grant      []string
	Stored     string
	Builtins   bool
	ExpiryDays int
	QueueSize  int
	Flush      time.Duration
}

var renderOpts renderOptions

func init() {
	rootCmd.AddCommand(renderCmd)
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.SiteID, "site", "", "Site id (default from ESBILLA_SITE_ID)")
	f.StringVar(&renderOpts.APIBase, "api", "", "Backend base URL (default from ESBILLA_API_BASE)")
	f.StringVar(&renderOpts.PageURL, "url", "https://localhost/", "URL the page is served from")
	f.StringVar(&renderOpts.Referrer, "referrer", "", "Document referrer")
	f.StringVar(&renderOpts.UserAgent, "user-agent", "", "Visitor user agent")
	f.StringSliceVar(&renderOpts.Languages, "lang", nil, "Browser languages in preference order")
	f.StringVar(&renderOpts.Action, "action", "", "Decision taken after boot: accept_all, reject_all or customize")
	f.StringSliceVar(&renderOpts.Grant, "grant", nil, "Categories granted with --action=customize")
	f.StringVar(&renderOpts.Stored, "stored", "", "Decision JSON already stored by a previous visit")
	f.BoolVar(&renderOpts.Builtins, "builtin-modules", false, "Use built-in vendor modules instead of fetching them")
	f.DurationVar(&renderOpts.Flush, "flush-timeout", 5*time.Second, "How long to wait for consent logs to reach the backend")
}

var renderCmd = &cobra.Command{
	Use:   "render [page.html|-]",
	Short: "Boot the consent runtime against a page and print the result",
	Long:  "Loads an HTML page, runs the consent runtime against the backend, optionally applies a decision,\nand prints the resulting document. Consent logs are delivered before exiting.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	opts := renderOpts
	if opts.SiteID == "" {
		opts.SiteID = cfg.SiteID
	}
	if opts.APIBase == "" {
		opts.APIBase = cfg.APIBase
	}
	opts.ExpiryDays = cfg.ConsentExpiryDays
	opts.QueueSize = cfg.LogQueueSize

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	outcome, err := renderPage(cmd.Context(), opts, in, cmd.OutOrStdout(), log)
	if err != nil {
		return err
	}
	log.Info("page rendered", "outcome", outcome)
	return nil
}

// renderPage boots a runtime for the page read from in and writes the final
// document to out.
func renderPage(ctx context.Context, opts renderOptions, in io.Reader, out io.Writer, logger *slog.Logger) (runtime.Outcome, error) {
	if opts.SiteID == "" {
		return "", fmt.Errorf("a site id is required")
	}
	doc, err := page.ParseDocument(in)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	w, err := page.NewWindow(opts.PageURL, doc,
		page.WithReferrer(opts.Referrer),
		page.WithUserAgent(opts.UserAgent),
		page.WithLanguages(opts.Languages...),
	)
	if err != nil {
		return "", fmt.Errorf("page url: %w", err)
	}

	jar := storage.NewMemoryCookieJar()
	storeOpts := []storage.Option{storage.WithLogger(logger)}
	if opts.ExpiryDays > 0 {
		storeOpts = append(storeOpts, storage.WithExpiryDays(opts.ExpiryDays))
	}
	durable := storage.NewAdapter(jar, storage.NewMemoryLocalStore(), w.Host(), storeOpts...)
	volatile := storage.NewAdapter(jar, storage.NewMemoryLocalStore(), w.Host(),
		storage.WithLogger(logger), storage.WithSessionScope())
	if opts.Stored != "" {
		if _, err := domain.ParseDecision(opts.Stored); err != nil {
			return "", err
		}
		durable.Set(storage.KeyConsent, opts.Stored)
	}

	m := metrics.New(prometheus.NewRegistry())
	client := backend.New(opts.APIBase, backend.WithLogger(logger))

	queue := opts.QueueSize
	if queue <= 0 {
		queue = audit.DefaultBuffer
	}
	publisher := audit.NewPublisher(queue, audit.WithPublisherLogger(logger), audit.WithPublisherMetrics(m))
	worker := audit.NewWorker(client, publisher.Inbox(), audit.WithWorkerLogger(logger), audit.WithWorkerMetrics(m))

	flushTimeout := opts.Flush
	if flushTimeout <= 0 {
		flushTimeout = 5 * time.Second
	}
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	done := make(chan error, 1)
	go func() { done <- worker.Run(workerCtx) }()

	rtOpts := []runtime.Option{runtime.WithLogger(logger), runtime.WithMetrics(m)}
	if opts.Builtins {
		reg := loader.NewRegistry()
		if err := modules.Register(reg); err != nil {
			return "", err
		}
		rtOpts = append(rtOpts, runtime.WithRegistry(reg))
	}
	rt := runtime.New(runtime.Deps{
		Window:    w,
		Settings:  tenant.NewSettings(opts.SiteID, opts.APIBase),
		Backend:   client,
		Durable:   durable,
		Volatile:  volatile,
		Publisher: publisher,
	}, rtOpts...)

	outcome := rt.Boot(ctx)
	if err := applyAction(ctx, rt, opts); err != nil {
		return outcome, err
	}

	publisher.Close()
	select {
	case <-done:
	case <-time.After(flushTimeout):
		logger.Warn("consent log delivery timed out")
		cancelWorker()
		<-done
	}

	if err := doc.Render(out); err != nil {
		return outcome, err
	}
	logger.Debug("runtime state",
		"footprint", rt.Footprint(),
		"language", rt.Language(),
		"view", rt.View(),
		"pending_scripts", len(rt.Gate().Pending()),
	)
	return rt.View(), nil
}

func applyAction(ctx context.Context, rt *runtime.Runtime, opts renderOptions) error {
	switch opts.Action {
	case "":
		return nil
	case string(backend.ActionCustomize):
		var d domain.Decision
		for _, raw := range opts.Grant {
			c, err := domain.ParseCategory(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			switch c {
			case domain.CategoryAnalytics:
				d.Analytics = true
			case domain.CategoryMarketing:
				d.Marketing = true
			case domain.CategoryFunctional:
				d.Functional = true
			}
		}
		rt.Customize(ctx, d)
		return nil
	default:
		return rt.HandleAction(ctx, opts.Action)
	}
}
