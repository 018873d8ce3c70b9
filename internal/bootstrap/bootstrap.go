// Package bootstrap builds the application graph from configuration. It is
// shared by the HTTP server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/ratelimit"
	"docqa/pkg/ai"
	"docqa/pkg/storage"
	"docqa/pkg/store"
)

// Runtime holds the constructed application and the resources it owns.
type Runtime struct {
	App   *app.App
	Store store.Store

	closers []func() error
}

// Close releases everything opened by New in reverse order.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New opens the store, the optional archive and the answer synthesizer.
// The store is initialized eagerly so startup fails fast on a bad database.
func New(ctx context.Context, cfg config.FileConfig) (*Runtime, error) {
	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Store: st}
	rt.closers = append(rt.closers, st.Close)
	if err := st.Init(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	archive, err := OpenArchive(ctx, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	gen, err := ai.NewGenerator(ai.GeneratorConfig{
		Provider:  cfg.GenerationProvider,
		BaseURL:   cfg.OpenAIBaseURL,
		APIKey:    cfg.GenerationAPIKey(),
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.GenerationMaxTokens,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	credentialVar := ai.CredentialEnvVarFor(cfg.GenerationProvider)
	appCore, err := app.New(app.Config{
		Store:            st,
		Answers:          ai.NewSynthesizer(gen, cfg.GenerationTimeout()),
		Archive:          archive,
		APIKey:           cfg.GenerationAPIKey(),
		RequireAPIKey:    credentialVar != "",
		CredentialEnvVar: credentialVar,
		ChunkSize:        cfg.ChunkSize,
		TopK:             cfg.TopK,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		MaxQuestionChars: cfg.MaxQuestionChars,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.App = appCore
	return rt, nil
}

// OpenStore returns the configured store backend without initializing it.
func OpenStore(cfg config.FileConfig) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite, "":
		path := cfg.DatabaseURL
		if path == "" {
			path = store.DefaultSQLitePath
		}
		return store.NewSQLiteStore(path), nil
	case config.DriverPostgres:
		return store.NewGormStore(cfg.DatabaseURL), nil
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.DatabaseDriver)
	}
}

// OpenArchive returns the configured raw upload archive, or nil when
// archiving is disabled.
func OpenArchive(ctx context.Context, cfg config.FileConfig) (storage.Archive, error) {
	switch cfg.ArchiveType {
	case config.ArchiveNone:
		return nil, nil
	case config.ArchiveFile:
		fs, err := storage.NewFileStore(cfg.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("init file archive: %w", err)
		}
		return fs, nil
	case config.ArchiveMinio:
		ms, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init minio archive: %w", err)
		}
		return ms, nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.ArchiveType)
	}
}

// Limiters holds the optional per-route limiters.
type Limiters struct {
	Upload *ratelimit.FixedWindowLimiter
	QA     *ratelimit.FixedWindowLimiter

	close func() error
}

// Close releases the shared Redis client.
func (l Limiters) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

// OpenLimiters connects to Redis when any rate limit is configured.
func OpenLimiters(cfg config.FileConfig) (Limiters, error) {
	if cfg.QARateLimitPerMinute <= 0 && cfg.UploadRateLimitPerMinute <= 0 {
		return Limiters{}, nil
	}
	client, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return Limiters{}, err
	}
	out := Limiters{close: client.Close}
	if cfg.UploadRateLimitPerMinute > 0 {
		out.Upload, err = ratelimit.NewFixedWindowLimiter(client, "docqa:ratelimit:upload", cfg.UploadRateLimitPerMinute, time.Minute)
		if err != nil {
			_ = client.Close()
			return Limiters{}, err
		}
	}
	if cfg.QARateLimitPerMinute > 0 {
		out.QA, err = ratelimit.NewFixedWindowLimiter(client, "docqa:ratelimit:qa", cfg.QARateLimitPerMinute, time.Minute)
		if err != nil {
			_ = client.Close()
			return Limiters{}, err
		}
	}
	slog.Info("rate limiting enabled", "upload_per_minute", cfg.UploadRateLimitPerMinute, "qa_per_minute", cfg.QARateLimitPerMinute)
	return out, nil
}
