// internal/llm/providers/google/google.go
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Corphon/AICodeReviewer/internal/llm"
	"google.golang.org/genai"
)

// ProviderName 注册名
const ProviderName = "google"

const defaultModel = "gemini-2.0-flash"

func init() {
	llm.Register(ProviderName, func() llm.Provider {
		return &Provider{
			models: []string{
				"gemini-2.0-flash",
				"gemini-2.5-flash",
				"gemini-2.5-pro",
			},
		}
	})
}

// Provider 基于 genai SDK 的 Gemini 提供者
type Provider struct {
	client       *genai.Client
	defaultModel string
	models       []string
	httpClient   *http.Client
}

// WithHTTPClient 使用自定义 HTTP 客户端（测试或代理场景）
func (p *Provider) WithHTTPClient(c *http.Client) *Provider {
	p.httpClient = c
	return p
}

// Initialize 支持的配置项: api_key, default_model, base_url
func (p *Provider) Initialize(config map[string]string) error {
	apiKey := config["api_key"]
	if apiKey == "" {
		return errors.New("google gemini API key not provided")
	}

	p.defaultModel = defaultModel
	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if baseURL := config["base_url"]; baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}
	p.client = client
	return nil
}

// GetName 提供者名称
func (p *Provider) GetName() string {
	return "google gemini"
}

// GetSupportedModels 推荐模型列表
func (p *Provider) GetSupportedModels() []string {
	return p.models
}

// CompleteText 单次生成
func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.client == nil {
		return nil, errors.New("google gemini provider not initialized")
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.TopP > 0 {
		cfg.TopP = genai.Ptr(req.TopP)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.StopWords) > 0 {
		cfg.StopSequences = req.StopWords
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("google gemini generate (%s): %w", model, err)
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.New("google gemini returned no candidates")
	}

	out := &llm.CompletionResponse{
		Text:         resp.Text(),
		FinishReason: string(resp.Candidates[0].FinishReason),
		ModelName:    model,
		ProviderName: p.GetName(),
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.PromptTokens = int(usage.PromptTokenCount)
		out.OutputTokens = int(usage.CandidatesTokenCount)
		out.TokensUsed = int(usage.TotalTokenCount)
	}
	return out, nil
}
