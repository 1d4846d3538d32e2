package main

import (
	"context"
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
	"genworker/internal/http/httpapi"
	"genworker/internal/infra"
	"genworker/internal/jobstore"
	"genworker/internal/providers/genai"
	"genworker/internal/worker"

	httphandlers "genworker/internal/http/handlers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger("api", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			logger.Fatal().Err(err).Msg("api: migrations failed")
		}
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	store := jobstore.New(runner, logger)

	blobStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure blob store")
	}

	backend, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure generation backend")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Str("model", backend.Model()).Msg("api: gemini api key missing, using synthetic asset generation")
	}

	registry := dispatch.NewRegistry()
	registry.Register(domain.JobTypeGenerateImage, handlers.NewImageHandler(backend, blobStore, logger, cfg.SignURLTTL).Handle)
	registry.Register(domain.JobTypeAnalyzeMaterial, handlers.NewAnalyzeHandler(backend, blobStore, logger).Handle)

	processor := worker.New(store, registry, logger, worker.Options{RefundOnFailure: cfg.RefundOnFailure})

	app := httphandlers.NewApp(logger, cfg.WorkerSecret, store, processor, registry)
	srv := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	logger.Info().Str("port", cfg.Port).Msg("api: listening")
	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api: server failed")
	}
	logger.Info().Msg("api: stopped")
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
