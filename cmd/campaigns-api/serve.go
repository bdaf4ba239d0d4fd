package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/legacyfund/internal/config"
	"example.com/legacyfund/internal/rates"
	spg "example.com/legacyfund/internal/storage/postgres"
	transport "example.com/legacyfund/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := spg.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("db: connected")

	if err := db.RunMigration(ctx, cfg.MigrationPath); err != nil {
		return err
	}
	logger.Info("db: migration applied", zap.String("path", cfg.MigrationPath))

	provider, err := ratesProvider(db)
	if err != nil {
		return err
	}
	session := rates.NewSession(provider, logger)
	if _, err := session.Snapshot(ctx); err != nil {
		// non-USD bounds and submissions stay unavailable until a later fetch succeeds
		logger.Warn("rates: initial load failed", zap.Error(err))
	}
	go refreshRates(ctx, session, cfg.RatesCacheTTL)

	deps := &transport.ServerDeps{
		Cfg:       cfg,
		Rates:     session,
		Campaigns: spg.NewCampaigns(db),
		DB:        db,
		Logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	return srv.Shutdown(shutdownCtx)
}

// ratesProvider builds the configured source, fronted by Redis when configured.
func ratesProvider(db *spg.DB) (rates.Provider, error) {
	var provider rates.Provider
	switch cfg.RatesSource {
	case config.RatesFromHTTP:
		p, err := httpRates()
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		provider = spg.NewRatesTable(db)
	}

	if cfg.RedisURL == "" {
		return provider, nil
	}
	client, err := rates.Connect(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	logger.Info("rates: redis cache enabled", zap.Duration("ttl", cfg.RatesCacheTTL))
	return rates.NewRedisCache(client, provider, cfg.RatesCacheTTL, logger), nil
}

// refreshRates reloads the session snapshot every interval. A failed reload
// keeps the previous snapshot in service.
func refreshRates(ctx context.Context, session *rates.Session, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := session.Refresh(ctx); err != nil {
				logger.Warn("rates: refresh failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}

func httpRates() (*rates.HTTPProvider, error) {
	return rates.NewHTTPProvider(cfg.RatesURL,
		rates.WithAPIKey(cfg.RatesAPIKey),
		rates.WithMaxTries(cfg.RatesMaxRetries),
		rates.WithLogger(logger))
}
