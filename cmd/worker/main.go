package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"genworker/internal/blob"
	"genworker/internal/dispatch"
	"genworker/internal/domain"
	"genworker/internal/handlers"
	"genworker/internal/infra"
	"genworker/internal/jobstore"
	"genworker/internal/providers/genai"
	"genworker/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger("worker", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			logger.Fatal().Err(err).Msg("worker: migrations failed")
		}
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	store := jobstore.New(runner, logger)

	blobStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure blob store")
	}

	backend, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generation backend")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Str("model", backend.Model()).Msg("worker: gemini api key missing, using synthetic asset generation")
	}

	registry := dispatch.NewRegistry()
	registry.Register(domain.JobTypeGenerateImage, handlers.NewImageHandler(backend, blobStore, logger, cfg.SignURLTTL).Handle)
	registry.Register(domain.JobTypeAnalyzeMaterial, handlers.NewAnalyzeHandler(backend, blobStore, logger).Handle)

	w := worker.New(store, registry, logger, worker.Options{RefundOnFailure: cfg.RefundOnFailure})

	logger.Info().Dur("poll_interval", cfg.PollInterval).Msg("worker: started")
	if err := run(ctx, w, logger, cfg.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// run processes jobs one at a time until ctx is cancelled, sleeping through
// empty polls and claim failures.
func run(ctx context.Context, w *worker.Worker, logger infra.Logger, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		processed, err := w.ProcessNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error().Err(err).Msg("worker: job attempt failed")
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func newBlobStore(ctx context.Context, cfg *infra.Config) (blob.Store, error) {
	if cfg.MinioEndpoint == "" {
		return blob.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	}
	store, err := blob.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
