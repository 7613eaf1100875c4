package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"

	"github.com/turngate-dev/turngate/internal/app"
	"github.com/turngate-dev/turngate/internal/config"
	"github.com/turngate-dev/turngate/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config_load_failed")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogJSON)
	zlog.Logger = logger

	ctx := context.Background()
	built, err := app.Build(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("build_failed")
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			zlog.Error().Err(err).Msg("cleanup_failed")
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}

	go func() {
		zlog.Info().Str("addr", cfg.BindAddr).Msg("server_listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("listen_failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zlog.Info().Msg("shutdown_signal_received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Warn().Err(err).Msg("graceful_shutdown_failed")
		_ = httpServer.Close()
	}

	zlog.Info().Msg("shutdown_complete")
}
