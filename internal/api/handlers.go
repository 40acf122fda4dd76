// internal/api/handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/auth"
	"github.com/Corphon/AICodeReviewer/internal/config"
	"github.com/Corphon/AICodeReviewer/internal/llm"
	"github.com/Corphon/AICodeReviewer/internal/services"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// restrictedLLMConfigKeys 只能通过环境变量或配置文件设置
var restrictedLLMConfigKeys = []string{"base_url"}

// Handler 处理API请求
type Handler struct {
	LLMService    *services.LLMService    // 模型服务
	ReviewService *services.ReviewService // 审查服务
	UserService   *services.UserService   // 用户服务
	Tokens        *auth.TokenConfig       // token 签名配置
	Metrics       *utils.MetricsCollector
	Response      *ResponseHelper // 响应助手

	upgrader  websocket.Upgrader
	wsLimits  wsLimits
	startedAt time.Time
}

// NewHandler 创建API处理器
func NewHandler(
	llmService *services.LLMService,
	reviewService *services.ReviewService,
	userService *services.UserService,
	tokens *auth.TokenConfig,
) *Handler {
	return &Handler{
		LLMService:    llmService,
		ReviewService: reviewService,
		UserService:   userService,
		Tokens:        tokens,
		Metrics:       utils.GetMetricsCollector(),
		Response:      NewResponseHelper(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		startedAt: time.Now(),
	}
}

// Health 存活检查，同时报告模型服务是否就绪
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"llm_ready":      h.LLMService.IsReady(),
		"llm_state":      h.LLMService.GetReadyState(),
		"chunk_size":     h.ReviewService.ChunkSize(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// GetMetrics 导出计数器、仪表和直方图
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, h.Metrics.GetMetrics())
}

// GetLLMStatus 获取LLM服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	cfg := config.GetCurrentConfig()
	status := h.LLMService.Status()

	h.Response.Success(c, gin.H{
		"ready":    status.Ready,
		"status":   status.State,
		"provider": status.Provider,
		"model":    status.Model,
		"config": gin.H{
			"provider":    cfg.LLMProvider,
			"has_api_key": cfg.LLMConfig["api_key"] != "",
			"model":       cfg.LLMConfig["default_model"],
		},
	})
}

// GetLLMModels 列出已注册提供者及其模型
func (h *Handler) GetLLMModels(c *gin.Context) {
	providers := llm.ListProviders()
	models := make(map[string][]string, len(providers))
	for _, name := range providers {
		models[name] = llm.GetSupportedModelsForProvider(name)
	}
	h.Response.Success(c, gin.H{
		"providers": providers,
		"models":    models,
	})
}

// UpdateLLMConfig 更新LLM配置并重新初始化提供者。
// 先用合并后的配置初始化提供者，成功后才写入配置文件
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider" binding:"required"`
		Config   map[string]string `json:"config" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	for _, key := range restrictedLLMConfigKeys {
		if _, ok := req.Config[key]; ok {
			h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "Configuration key not allowed", key)
			return
		}
	}

	// 使用合并后的配置（保留未修改的 api_key）
	merged := config.MergeLLMConfig(req.Config)
	provider, err := llm.GetProvider(req.Provider, merged)
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "Provider initialization failed", err.Error())
		return
	}

	if err := config.UpdateLLMConfig(req.Provider, merged); err != nil {
		h.Response.InternalError(c, "Failed to save configuration")
		return
	}
	h.LLMService.SetProvider(req.Provider, provider, merged["default_model"])

	utils.GetLogger().Info("🔧 LLM配置已更新", map[string]interface{}{
		"provider": req.Provider,
		"model":    merged["default_model"],
	})
	h.Response.Success(c, h.LLMService.Status(), "LLM configuration updated")
}
