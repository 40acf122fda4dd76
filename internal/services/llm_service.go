// internal/services/llm_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/config"
	"github.com/Corphon/AICodeReviewer/internal/llm"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/Corphon/AICodeReviewer/internal/utils"
)

// ErrLLMNotReady 未配置可用的模型提供者
var ErrLLMNotReady = errors.New("llm service not ready")

// LLMService 持有当前的模型提供者，并作为审查编排器的生成端
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	isReady            bool
	readyState         string
	activeDefaultModel string

	metrics *utils.APIMetrics
}

// LLMStatus 对外展示的状态
type LLMStatus struct {
	Ready    bool     `json:"ready"`
	State    string   `json:"state"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Models   []string `json:"models,omitempty"`
}

// NewLLMService 按当前配置创建服务；配置不完整时返回未就绪的服务而不是错误
func NewLLMService(cfg *config.AppConfig) *LLMService {
	service := createBaseLLMService()

	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service
	}
	if cfg.LLMProvider == "" || cfg.LLMConfig["api_key"] == "" {
		service.providerName = cfg.LLMProvider
		service.readyState = "API key not configured"
		return service
	}

	if err := service.UpdateProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		utils.GetLogger().Warn("LLM提供者初始化失败", map[string]interface{}{
			"provider": cfg.LLMProvider,
			"error":    err,
		})
	}
	return service
}

// NewLLMServiceWithProvider 直接使用已初始化的提供者
func NewLLMServiceWithProvider(name string, provider llm.Provider, defaultModel string) *LLMService {
	service := createBaseLLMService()
	service.provider = provider
	service.providerName = name
	service.activeDefaultModel = defaultModel
	service.isReady = provider != nil
	if service.isReady {
		service.readyState = "Ready"
	}
	return service
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		readyState: "Uninitialized",
		metrics:    utils.NewAPIMetrics(utils.GetMetricsCollector()),
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderName 当前提供者名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// GetDefaultModel 当前默认模型
func (s *LLMService) GetDefaultModel() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.activeDefaultModel
}

// Status 汇总状态
func (s *LLMService) Status() LLMStatus {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	status := LLMStatus{
		Ready:    s.provider != nil && s.isReady,
		State:    s.readyState,
		Provider: s.providerName,
		Model:    s.activeDefaultModel,
	}
	if s.provider != nil {
		status.Models = s.provider.GetSupportedModels()
	}
	return status
}

// UpdateProvider 更新LLM服务的提供商
func (s *LLMService) UpdateProvider(providerName string, cfg map[string]string) error {
	provider, err := llm.GetProvider(providerName, cfg)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.SetProvider(providerName, provider, cfg["default_model"])
	return nil
}

// SetProvider 切换到已初始化的提供者
func (s *LLMService) SetProvider(providerName string, provider llm.Provider, defaultModel string) {
	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = defaultModel
	s.isReady = provider != nil
	s.readyState = "Ready"
	if provider == nil {
		s.readyState = "Uninitialized"
	}
}

// Generate 实现 review.Generator，每次调用都请求一次提供者
func (s *LLMService) Generate(ctx context.Context, req review.GenerateRequest) (string, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	providerName := s.providerName
	model := s.activeDefaultModel
	s.providerMutex.RUnlock()

	if provider == nil || !ready {
		return "", ErrLLMNotReady
	}

	start := time.Now()
	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemInstruction,
		Model:        model,
	})

	tokens := 0
	if resp != nil {
		tokens = resp.TokensUsed
	}
	s.metrics.RecordLLMRequest(providerName, model, tokens, time.Since(start), err)

	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", providerName, err)
	}
	return resp.Text, nil
}
