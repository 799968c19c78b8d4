package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpadapter "vendorgrid/internal/adapters/http"
	pg "vendorgrid/internal/adapters/postgres"
	"vendorgrid/internal/analytics"
	"vendorgrid/internal/catalog"
	"vendorgrid/internal/config"
	"vendorgrid/internal/ingest"
	"vendorgrid/internal/metrics"
	"vendorgrid/internal/monitor"
	claimsvc "vendorgrid/internal/services/claims"
	integrationsvc "vendorgrid/internal/services/integration"
	vendorsvc "vendorgrid/internal/services/vendors"
	"vendorgrid/internal/workers/ingestrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for Postgres adapters")
	}
	logger := cfg.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pg.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	cat, err := catalog.LoadFromFile(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("source catalog error: %v", err)
	}
	if cat.DefaultRateLimit == 0 {
		cat.DefaultRateLimit = cfg.RateLimitPerSource
	}

	reg := metrics.NewRegistry()

	manager := ingest.NewManager(cat, db, reg, logger, ingest.Options{
		Retry: ingest.RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   cfg.RetryDelay,
		},
		MaxConcurrent:      cfg.MaxConcurrentSources,
		BatchSize:          cfg.BatchSize,
		RateLimitPerSource: cfg.RateLimitPerSource,
	})

	mon := monitor.New(cfg.MonitorInterval, monitor.DefaultThresholds(),
		func(ctx context.Context) (monitor.Sample, error) {
			st := manager.Stats()
			return monitor.Sample{
				JobsRunning:      st.JobsRunning,
				JobsCompleted:    st.JobsCompleted,
				JobsFailed:       st.JobsFailed,
				APISuccessRate:   st.APISuccessRate,
				DataQualityScore: st.DataQualityScore,
			}, nil
		},
		func() []monitor.JobInfo {
			var out []monitor.JobInfo
			for _, j := range manager.Jobs().Summaries() {
				out = append(out, monitor.JobInfo{ID: j.ID, Status: j.Status, StartedAt: j.StartedAt})
			}
			return out
		},
		reg, logger)

	agg := analytics.New(cat, manager.Jobs().History)

	vendors := vendorsvc.New(db)
	vendors.SetNotifier(integrationsvc.NewNotifier(cfg.WebhookURL, cfg.WebhookTimeout, logger))
	claims := claimsvc.New(db, db)
	integ := integrationsvc.New(db)

	srv := httpadapter.New(manager, mon, agg, vendors, claims, integ, reg, nil, logger)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	go mon.Run(ctx)
	if cfg.PollInterval > 0 {
		go ingestrunner.Run(ctx, manager, cfg.PollInterval, logger)
		logger.Info("periodic ingestion enabled", "interval", cfg.PollInterval)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	logger.Info("listening", "addr", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
