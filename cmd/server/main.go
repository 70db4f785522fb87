package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/kinoapp/db"
	"github.com/Clark-Hu/kinoapp/internal/auth"
	"github.com/Clark-Hu/kinoapp/internal/config"
	httpserver "github.com/Clark-Hu/kinoapp/internal/http"
	"github.com/Clark-Hu/kinoapp/internal/logging"
	"github.com/Clark-Hu/kinoapp/internal/metadata"
	"github.com/Clark-Hu/kinoapp/internal/metrics"
	"github.com/Clark-Hu/kinoapp/internal/repository"
	"github.com/Clark-Hu/kinoapp/internal/service"
	"github.com/Clark-Hu/kinoapp/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
		TraceSQL:               logger.GetLevel() <= zerolog.DebugLevel,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	if cfg.DBAutoMigrate {
		if err := st.Migrate(dbCtx, db.Migrations); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := metrics.RegisterPoolStats(prometheus.DefaultRegisterer, st.Stats); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	metaClient, err := newMetadataClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("init metadata client: %w", err)
	}

	repo := repository.New(st)
	hasher := auth.NewHasher(cfg.PasswordHashIterations, cfg.SaltLength)
	svc := service.New(repo, hasher, logger, service.WithMetadata(metaClient))
	server := httpserver.New(cfg, st, svc, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	return serveErr
}

func newMetadataClient(cfg config.Config, logger zerolog.Logger) (metadata.Client, error) {
	if cfg.MetadataURL == "" {
		logger.Info().Msg("METADATA_URL not set; release dates default to the current date")
		return metadata.NopClient{}, nil
	}
	httpClient, err := metadata.NewHTTPClient(cfg.MetadataURL, cfg.MetadataAPIKey, time.Duration(cfg.MetadataTimeoutSecs)*time.Second, logger)
	if err != nil {
		return nil, err
	}
	return metadata.NewBreakerClient("metadata", httpClient, metadata.BreakerSettings{}, logger), nil
}
