package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Corphon/AICodeReviewer/internal/config"
	"github.com/Corphon/AICodeReviewer/internal/llm"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider 可控的模型提供者
type stubProvider struct {
	mu       sync.Mutex
	requests []llm.CompletionRequest
	err      error
	model    string
}

func (p *stubProvider) Initialize(cfg map[string]string) error {
	if cfg["api_key"] == "" {
		return errors.New("api key required")
	}
	p.model = cfg["default_model"]
	return nil
}

func (p *stubProvider) GetName() string { return "stub" }

func (p *stubProvider) GetSupportedModels() []string { return []string{"stub-small", "stub-large"} }

func (p *stubProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{
		Text:       fmt.Sprintf("reply #%d", len(p.requests)),
		TokensUsed: 10,
	}, nil
}

func (p *stubProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func init() {
	llm.Register("stub", func() llm.Provider { return &stubProvider{} })
}

func TestLLMService_Generate(t *testing.T) {
	provider := &stubProvider{}
	svc := NewLLMServiceWithProvider("stub", provider, "stub-small")
	require.True(t, svc.IsReady())

	req := review.GenerateRequest{SystemInstruction: "sys", Prompt: "review this"}
	text, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "reply #1", text)

	require.Len(t, provider.requests, 1)
	assert.Equal(t, "sys", provider.requests[0].SystemPrompt)
	assert.Equal(t, "review this", provider.requests[0].Prompt)
	assert.Equal(t, "stub-small", provider.requests[0].Model)

	// 相同请求再次发给提供者
	again, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "reply #2", again)
	assert.Equal(t, 2, provider.calls())
}

func TestLLMService_IdenticalChunksEachReachProvider(t *testing.T) {
	provider := &stubProvider{}
	svc := NewLLMServiceWithProvider("stub", provider, "stub-small")

	orch, err := review.NewOrchestrator(svc, review.Options{ChunkSize: 5000})
	require.NoError(t, err)

	block := strings.Repeat("let x = 10;\n", 5000/len("let x = 10;\n")+1)[:5000]
	input := block + block + block[:2000]

	result := orch.Review(context.Background(), input)
	require.True(t, result.OK(), "review failed: %v", result.Err)
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 3, provider.calls())
	assert.Equal(t, provider.requests[0].Prompt, provider.requests[1].Prompt)
	assert.Equal(t, "reply #1\n\nreply #2\n\nreply #3", result.Text())
}

func TestLLMService_GenerateError(t *testing.T) {
	upstream := errors.New("429 resource exhausted")
	provider := &stubProvider{err: upstream}
	svc := NewLLMServiceWithProvider("stub", provider, "stub-small")

	_, err := svc.Generate(context.Background(), review.GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, upstream)
	assert.Contains(t, err.Error(), "stub completion failed")

	_, _ = svc.Generate(context.Background(), review.GenerateRequest{Prompt: "x"})
	assert.Equal(t, 2, provider.calls())
}

func TestLLMService_NotReady(t *testing.T) {
	svc := NewLLMService(&config.AppConfig{
		LLMProvider: "stub",
		LLMConfig:   map[string]string{"default_model": "stub-small"},
	})

	assert.False(t, svc.IsReady())
	assert.Equal(t, "API key not configured", svc.GetReadyState())

	_, err := svc.Generate(context.Background(), review.GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrLLMNotReady)

	assert.False(t, NewLLMService(nil).IsReady())
}

func TestLLMService_UpdateProvider(t *testing.T) {
	svc := NewLLMService(&config.AppConfig{
		LLMProvider: "stub",
		LLMConfig:   map[string]string{"api_key": "k", "default_model": "stub-small"},
	})
	require.True(t, svc.IsReady())
	assert.Equal(t, "stub", svc.GetProviderName())
	assert.Equal(t, "stub-small", svc.GetDefaultModel())

	require.NoError(t, svc.UpdateProvider("stub", map[string]string{"api_key": "k", "default_model": "stub-large"}))
	status := svc.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, "stub-large", status.Model)
	assert.Equal(t, []string{"stub-small", "stub-large"}, status.Models)

	err := svc.UpdateProvider("does-not-exist", map[string]string{"api_key": "k"})
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
	assert.False(t, svc.IsReady())
	assert.Contains(t, svc.GetReadyState(), "Configuration failed")
}
