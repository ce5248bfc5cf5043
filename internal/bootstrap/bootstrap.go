// Package bootstrap provides dependency initialization for the gifstudio API.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maauso/gifstudio-api/internal/config"
	"github.com/maauso/gifstudio-api/internal/job"
	"github.com/maauso/gifstudio-api/internal/media"
	"github.com/maauso/gifstudio-api/internal/project"
	"github.com/maauso/gifstudio-api/internal/server"
	"github.com/maauso/gifstudio-api/internal/storage"
	"github.com/maauso/gifstudio-api/internal/studio"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Studio  *studio.Service
	Storage storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize media processor
	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)

	// Initialize repositories
	projects := project.NewMemoryRepository()
	jobs := job.NewMemoryRepository()

	svc := studio.NewService(
		projects,
		jobs,
		processor,
		store,
		logger,
		studio.WithMaxHistory(cfg.MaxHistory),
		studio.WithMaxConcurrentRenders(cfg.MaxConcurrentRenders),
		studio.WithPreviewSize(cfg.PreviewMaxDim),
		studio.WithMaxImportFrames(cfg.MaxImportFrames),
	)

	return &Dependencies{
		Studio:  svc,
		Storage: store,
	}, nil
}

// NewHTTPHandler builds the API router over the initialized dependencies.
func (d *Dependencies) NewHTTPHandler(cfg *config.Config, logger *slog.Logger) http.Handler {
	handlers := server.NewHandlers(d.Studio, logger, server.WithMaxBodyBytes(cfg.MaxBodyBytes))
	return server.NewRouter(handlers, logger, server.Config{AllowedOrigins: cfg.AllowedOrigins})
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("data_dir", s3Store.Root()),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", localStore.Root()),
	)
	return localStore, nil
}
