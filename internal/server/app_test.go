package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/story-preview-gateway/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "stories.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
stories:
  - id: s1
    slug: hello-world
    status: approved
    title: Hello World
`), 0o600))

	return &config.Config{
		Server: config.ServerConfig{Port: 8080, ReadHeaderTimeoutMs: 1000, RequestTimeoutSeconds: 5},
		Site: config.SiteConfig{
			BaseURL:            "https://stories.example.com",
			Name:               "Stories",
			DefaultCoverURL:    "https://stories.example.com/default.png",
			DefaultDescription: "Read this story.",
		},
		Views:   config.ViewsConfig{IncrementTimeoutMs: 500, Async: true},
		Store:   config.StoreConfig{Backend: config.BackendMemory, SeedFile: seed},
		PubSub:  config.PubSubConfig{TopicName: "story-views"},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

func TestBuildMemoryBackendServesPreviews(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.ExtraSignatures = []string{"InternalFetcher"}

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close(context.Background())) })

	req := httptest.NewRequest(http.MethodGet, "/api/story?slug=hello-world", nil)
	req.Header.Set("User-Agent", "InternalFetcher/2.0")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<title>Hello World</title>")

	req = httptest.NewRequest(http.MethodGet, "/api/story?slug=hello-world", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://stories.example.com/story/hello-world", rec.Header().Get("Location"))

	require.NoError(t, app.resolver.Wait(context.Background()))
}

func TestBuildRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Backend: config.BackendRedis, Collection: "stories"}
	cfg.Redis = config.RedisConfig{Address: mr.Addr(), KeyPrefix: "story"}
	cfg.PubSub = config.PubSubConfig{}

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, app.Close(context.Background()))
}

func TestBuildFailsOnBadSeedFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(context.Background(), cfg)
	require.ErrorContains(t, err, "memory store seed failed")
}

func TestBuildFailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Backend: config.BackendRedis}
	cfg.Redis = config.RedisConfig{Address: addr}

	_, err := Build(context.Background(), cfg)
	require.ErrorContains(t, err, "redis store init failed")
}
