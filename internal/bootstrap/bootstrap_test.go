package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/gifstudio-api/internal/config"
	"github.com/maauso/gifstudio-api/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                 8080,
		AllowedOrigins:       []string{"*"},
		MaxBodyBytes:         1 << 20,
		DataDir:              t.TempDir(),
		MaxHistory:           20,
		PreviewMaxDim:        320,
		MaxImportFrames:      300,
		MaxConcurrentRenders: 2,
		FFmpegPath:           "ffmpeg",
		FFprobePath:          "ffprobe",
	}
}

func TestNewDependencies_LocalStorage(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(cfg, logger)
	require.NoError(t, err)

	require.NotNil(t, deps.Studio)
	assert.IsType(t, &storage.LocalStorage{}, deps.Storage)

	rec := httptest.NewRecorder()
	deps.NewHTTPHandler(cfg, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewDependencies_S3Storage(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(cfg, logger)
	require.NoError(t, err)

	assert.IsType(t, &storage.S3Storage{}, deps.Storage)
}
