package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/staticdeploy/internal/api"
	"github.com/edvin/staticdeploy/internal/config"
	"github.com/edvin/staticdeploy/internal/discovery"
	"github.com/edvin/staticdeploy/internal/logging"
	"github.com/edvin/staticdeploy/internal/registry"
	"github.com/edvin/staticdeploy/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("discovery-service"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewS3Store(logger, store.S3Options{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	reg := registry.New(logger, st)

	loop := discovery.NewLoop(logger, st, discovery.Options{
		TargetsDir:          cfg.TargetsDir,
		Interval:            cfg.DiscoveryInterval,
		Environment:         cfg.Environment,
		SiteURL:             cfg.SiteURL,
		PrometheusReloadURL: cfg.PrometheusReloadURL,
	})
	loopDone := make(chan struct{})
	go func() {
		loop.RunLoop(ctx)
		close(loopDone)
	}()

	srv := api.NewServer(logger, reg, loop)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting discovery service")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()
	<-loopDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
