package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"esbilla/internal/mockapi"
	"esbilla/internal/platform/httpserver"
	"esbilla/internal/platform/metrics"
	"esbilla/internal/platform/redis"
)

var (
	mockAddr     string
	mockFixtures string
	mockWatch    bool
	mockRedisURL string
)

func init() {
	rootCmd.AddCommand(mockapiCmd)
	mockapiCmd.Flags().StringVar(&mockAddr, "addr", "", "Listen address (default from ESBILLA_MOCK_ADDR)")
	mockapiCmd.Flags().StringVar(&mockFixtures, "fixtures", "", "Fixture YAML (default from ESBILLA_MOCK_FIXTURES)")
	mockapiCmd.Flags().BoolVar(&mockWatch, "watch", true, "Reload fixtures when the file changes")
	mockapiCmd.Flags().StringVar(&mockRedisURL, "redis-url", "", "Keep synced decisions in Redis instead of memory")
}

var mockapiCmd = &cobra.Command{
	Use:   "mockapi",
	Short: "Serve the development backend",
	Long:  "Serves manifest, tenant configuration, translations, templates, styles and modules from a fixture file,\nand records consent logs so the sync handshake works across the fixture's domains.",
	RunE:  runMockAPI,
}

func runMockAPI(cmd *cobra.Command, args []string) error {
	mc := cfg.Mock
	if mockAddr != "" {
		mc.Addr = mockAddr
	}
	if mockFixtures != "" {
		mc.FixturesPath = mockFixtures
	}
	if cmd.Flags().Changed("watch") {
		mc.Watch = mockWatch
	}
	rc := cfg.Redis
	if mockRedisURL != "" {
		rc.URL = mockRedisURL
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fixtures, err := mockapi.LoadFixtures(mc.FixturesPath)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	var store mockapi.Store = mockapi.NewMemoryStore()
	redisClient, err := redis.New(ctx, rc)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		store = mockapi.NewRedisStore(redisClient.Client, 0)
		log.Info("sync store: redis")
	}

	reg := prometheus.NewRegistry()
	srv := mockapi.New(fixtures, store,
		mockapi.WithLogger(log),
		mockapi.WithMetrics(metrics.New(reg)),
		mockapi.WithGatherer(reg),
	)

	if mc.Watch {
		reloader, err := mockapi.NewReloader(srv, mc.FixturesPath, log)
		if err != nil {
			log.Warn("hot-reload disabled", "error", err)
		} else {
			go func() { _ = reloader.Run(ctx) }()
		}
	}

	return httpserver.Run(ctx, httpserver.New(mc.Addr, srv.Router()), log)
}
