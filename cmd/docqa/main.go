package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa/internal/bootstrap"
	"docqa/internal/config"
	"docqa/internal/server"
	"docqa/internal/util"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// run owns every resource it opens and returns instead of exiting, so the
// deferred closes always execute.
func run(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) error {
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	rt, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("close runtime", "err", err)
		}
	}()

	limiters, err := bootstrap.OpenLimiters(cfg)
	if err != nil {
		return fmt.Errorf("init rate limiter: %w", err)
	}
	defer limiters.Close()

	httpServer, err := server.New(server.Config{
		App:            rt.App,
		UploadLimiter:  limiters.Upload,
		QALimiter:      limiters.QA,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("docqa server listening", "addr", addr, "database", cfg.DatabaseDriver, "provider", cfg.GenerationProvider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
