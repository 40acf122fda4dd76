// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/auth"
	"github.com/Corphon/AICodeReviewer/internal/di"
	"github.com/Corphon/AICodeReviewer/internal/services"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/gin-gonic/gin"
)

// RouterConfig 路由层参数
type RouterConfig struct {
	AllowedOrigins []string
	MaxInputBytes  int64
	// 开启后删除用户需要管理员 token；修改LLM配置始终需要
	AdminOnly bool
	DebugMode bool

	Limiter         *RateLimiter
	ReviewRateLimit int
	RateLimitWindow time.Duration
}

// SetupRouter 从容器获取服务并配置HTTP路由
func SetupRouter(container *di.Container, tokens *auth.TokenConfig, cfg RouterConfig) (*gin.Engine, error) {
	llmService, err := di.Resolve[*services.LLMService](container, di.ServiceLLM)
	if err != nil {
		return nil, fmt.Errorf("LLM服务未正确初始化: %w", err)
	}
	reviewService, err := di.Resolve[*services.ReviewService](container, di.ServiceReview)
	if err != nil {
		return nil, fmt.Errorf("审查服务未正确初始化: %w", err)
	}
	userService, err := di.Resolve[*services.UserService](container, di.ServiceUser)
	if err != nil {
		return nil, fmt.Errorf("用户服务未正确初始化: %w", err)
	}

	handler := NewHandler(llmService, reviewService, userService, tokens)
	return NewRouter(handler, cfg), nil
}

// NewRouter 注册全部路由
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.ReviewRateLimit <= 0 {
		cfg.ReviewRateLimit = 30
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}

	handler.wsLimits = wsLimits{
		maxMessage: cfg.MaxInputBytes,
		limiter:    cfg.Limiter,
		rateLimit:  cfg.ReviewRateLimit,
		rateWindow: cfg.RateLimitWindow,
	}

	allowOrigin := originChecker(cfg.AllowedOrigins)
	handler.upgrader.CheckOrigin = func(r *http.Request) bool {
		return allowOrigin(r.Header.Get("Origin"))
	}

	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(),
		RequestLogger(utils.NewAPIMetrics(handler.Metrics)),
		corsMiddleware(allowOrigin),
		AuthMiddleware(handler.Tokens),
	)

	reviewMiddleware := []gin.HandlerFunc{BodyLimit(cfg.MaxInputBytes)}
	if cfg.Limiter != nil {
		reviewMiddleware = append(reviewMiddleware, RateLimitByIP(cfg.Limiter, cfg.ReviewRateLimit, cfg.RateLimitWindow))
	}

	var adminGuard gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.AdminOnly {
		adminGuard = RequireAdmin()
	}

	// ===============================
	// 审查路由
	// ===============================
	r.POST("/ai/get-review", append(append([]gin.HandlerFunc{}, reviewMiddleware...), handler.GetReview)...)
	r.GET("/ws/review", handler.ReviewWebSocket)

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.GetMetrics)

		reviewGroup := api.Group("/review", reviewMiddleware...)
		{
			reviewGroup.POST("", handler.GetReview)
			reviewGroup.POST("/classify", handler.ClassifyInput)
		}

		// ===============================
		// 用户相关路由
		// ===============================
		api.POST("/signup", handler.Signup)
		api.POST("/login", handler.Login)
		api.GET("/me", handler.CurrentUser)
		api.GET("/users", handler.ListUsers)
		api.DELETE("/users/:id", adminGuard, handler.DeleteUser)

		// ===============================
		// LLM配置相关路由
		// ===============================
		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", RequireAdmin(), handler.UpdateLLMConfig)
		}
	}

	return r
}

// corsMiddleware 实现跨域资源共享（允许列表）
func corsMiddleware(allowOrigin func(string) bool) gin.HandlerFunc {
	rh := NewResponseHelper()
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if !allowOrigin(origin) {
				rh.Error(c, http.StatusForbidden, ErrorOriginDenied, "Not allowed by CORS")
				return
			}
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Methods", strings.Join([]string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
			}, ", "))
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
