package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/Corphon/AICodeReviewer/internal/config"
	"github.com/Corphon/AICodeReviewer/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider 需要 api_key 才能初始化
type fakeProvider struct {
	model string
}

func (p *fakeProvider) Initialize(cfg map[string]string) error {
	if cfg["api_key"] == "" {
		return errors.New("api key required")
	}
	p.model = cfg["default_model"]
	return nil
}

func (p *fakeProvider) GetName() string { return "fake" }

func (p *fakeProvider) GetSupportedModels() []string { return []string{"fake-1"} }

func (p *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Text: "ok", ModelName: p.model}, nil
}

func init() {
	llm.Register("fake", func() llm.Provider { return &fakeProvider{} })
}

// initConfigStore 初始化配置系统，返回配置文件路径
func initConfigStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, config.InitConfig(&config.Config{
		DataDir:      dir,
		GeminiAPIKey: "stored-key",
		GeminiModel:  config.DefaultModel,
	}))
	return filepath.Join(dir, "config.json")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type llmConfigRequest struct {
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config"`
}

func TestUpdateLLMConfig_RequiresAdmin(t *testing.T) {
	configPath := initConfigStore(t)
	s := newTestServer(t)
	s.signup(t, "bob", "bob@example.com", "pw")
	bobToken := s.login(t, "bob@example.com", "pw")
	before := readFile(t, configPath)

	body := llmConfigRequest{Provider: "fake", Config: map[string]string{"default_model": "fake-1"}}

	w := s.do(t, http.MethodPut, "/api/llm/config", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPut, "/api/llm/config", body, "Authorization", "Bearer "+bobToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, before, readFile(t, configPath))
	assert.False(t, s.llm.IsReady())
}

func TestUpdateLLMConfig_RejectedChangesAreNotSaved(t *testing.T) {
	configPath := initConfigStore(t)
	s := newTestServer(t)
	s.signup(t, "root", "admin@example.com", "pw")
	adminToken := s.login(t, "admin@example.com", "pw")
	before := readFile(t, configPath)

	tests := []struct {
		name string
		body llmConfigRequest
	}{
		{
			name: "base url override",
			body: llmConfigRequest{Provider: "fake", Config: map[string]string{"base_url": "https://elsewhere.example"}},
		},
		{
			name: "unknown provider",
			body: llmConfigRequest{Provider: "nope", Config: map[string]string{"default_model": "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPut, "/api/llm/config", tt.body, "Authorization", "Bearer "+adminToken)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var resp APIResponse
			decode(t, w, &resp)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrorLLMConfigInvalid, resp.Error.Code)
		})
	}

	assert.Equal(t, before, readFile(t, configPath))
	assert.Equal(t, config.DefaultProvider, config.GetCurrentConfig().LLMProvider)
	assert.False(t, s.llm.IsReady())
}

func TestUpdateLLMConfig_Admin(t *testing.T) {
	initConfigStore(t)
	s := newTestServer(t)
	s.signup(t, "root", "admin@example.com", "pw")
	adminToken := s.login(t, "admin@example.com", "pw")

	body := llmConfigRequest{Provider: "fake", Config: map[string]string{"default_model": "fake-1"}}
	w := s.do(t, http.MethodPut, "/api/llm/config", body, "Authorization", "Bearer "+adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	saved := config.GetCurrentConfig()
	assert.Equal(t, "fake", saved.LLMProvider)
	assert.Equal(t, "stored-key", saved.LLMConfig["api_key"], "stored key is kept")
	assert.Equal(t, "fake-1", saved.LLMConfig["default_model"])

	status := s.llm.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, "fake", status.Provider)
	assert.Equal(t, "fake-1", status.Model)
}
