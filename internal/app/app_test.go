package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/config"
	"github.com/Corphon/AICodeReviewer/internal/di"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/Corphon/AICodeReviewer/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                 "0",
		GeminiModel:          config.DefaultModel,
		DataDir:              t.TempDir(),
		LogDir:               t.TempDir(),
		AllowedOrigins:       []string{"http://localhost:5173"},
		ChunkSize:            1000,
		ReviewTimeout:        time.Minute,
		MaxConcurrentReviews: 2,
		MaxInputBytes:        1 << 16,
		UserStore:            "file",
		AuthSecretKey:        "app-test-secret",
	}
}

func TestInitServices(t *testing.T) {
	cfg := testConfig(t)
	container := di.NewContainer()
	require.NoError(t, InitServices(cfg, container))
	defer cleanupServices(container)

	assert.Equal(t, []string{
		di.ServiceLLM, di.ServiceMetrics, di.ServiceReview, di.ServiceUser, di.ServiceUserStore,
	}, container.GetNames())

	reviewService, err := di.Resolve[*services.ReviewService](container, di.ServiceReview)
	require.NoError(t, err)
	assert.Equal(t, 1000, reviewService.ChunkSize())
}

func TestInitServices_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.UserStore = "mongo"
	assert.Error(t, InitServices(cfg, di.NewContainer()))
}

func TestNewReviewService_UsesGenerator(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChunkSize = 4

	var prompts []string
	gen := review.GeneratorFunc(func(ctx context.Context, req review.GenerateRequest) (string, error) {
		prompts = append(prompts, req.Prompt)
		return "ok", nil
	})

	svc, err := NewReviewService(cfg, gen)
	require.NoError(t, err)

	result, err := svc.Review(context.Background(), "let a=1;")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Len(t, prompts, 2)
}

func TestApp_ServesAndStops(t *testing.T) {
	application, err := New(testConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, application.GetDIContainer())
	assert.Equal(t, "0", application.GetConfig().Port)

	// 路由可直接通过 http.Handler 访问
	handler := application.server.(*http.Server).Handler
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	done := make(chan error, 1)
	go func() { done <- application.Run() }()
	application.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
