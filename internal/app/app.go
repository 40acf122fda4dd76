// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/api"
	"github.com/Corphon/AICodeReviewer/internal/auth"
	"github.com/Corphon/AICodeReviewer/internal/config"
	"github.com/Corphon/AICodeReviewer/internal/di"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/Corphon/AICodeReviewer/internal/services"
	"github.com/Corphon/AICodeReviewer/internal/storage"
	"github.com/Corphon/AICodeReviewer/internal/utils"

	// 注册 Gemini 提供者
	_ "github.com/Corphon/AICodeReviewer/internal/llm/providers/google"
)

const defaultShutdownTimeout = 30 * time.Second

// Server 可替换的 HTTP 服务器
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 应用程序实例
type App struct {
	config    *config.Config
	container *di.Container
	tokens    *auth.TokenConfig
	limiter   *api.RateLimiter
	server    Server
	stopChan  chan os.Signal

	shutdownTimeout time.Duration
}

// New 按依赖顺序初始化日志、配置、服务和路由
func New(cfg *config.Config) (*App, error) {
	for _, dir := range []string{cfg.DataDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
	}

	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "app.log")); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	if cfg.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	if err := config.InitConfig(cfg); err != nil {
		return nil, fmt.Errorf("初始化配置系统失败: %w", err)
	}

	container := di.NewContainer()
	if err := InitServices(cfg, container); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenConfig(cfg.AuthSecretKey, cfg.DebugMode)
	if err != nil {
		cleanupServices(container)
		return nil, err
	}

	limiter := api.NewRateLimiter(10 * time.Minute)
	router, err := api.SetupRouter(container, tokens, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxInputBytes:  cfg.MaxInputBytes,
		AdminOnly:      cfg.AdminOnlyUserAdmin,
		DebugMode:      cfg.DebugMode,
		Limiter:        limiter,
	})
	if err != nil {
		limiter.Stop()
		cleanupServices(container)
		return nil, fmt.Errorf("设置路由失败: %w", err)
	}

	return &App{
		config:    cfg,
		container: container,
		tokens:    tokens,
		limiter:   limiter,
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		stopChan:        make(chan os.Signal, 1),
		shutdownTimeout: defaultShutdownTimeout,
	}, nil
}

// InitServices 创建并注册全部服务
func InitServices(cfg *config.Config, container *di.Container) error {
	logger := utils.GetLogger()

	llmService := NewLLMService()
	container.Register(di.ServiceLLM, llmService)
	if !llmService.IsReady() {
		logger.Warn("⚠️ LLM服务未就绪，审查接口将返回错误", map[string]interface{}{
			"state": llmService.GetReadyState(),
		})
	}

	reviewService, err := NewReviewService(cfg, llmService)
	if err != nil {
		return err
	}
	container.Register(di.ServiceReview, reviewService)

	store, err := storage.OpenUserStore(cfg.UserStore, cfg.DataDir, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("打开用户存储失败: %w", err)
	}
	container.Register(di.ServiceUserStore, store)
	container.Register(di.ServiceUser, services.NewUserService(store, services.WithAdminEmail(cfg.AdminEmail)))
	container.Register(di.ServiceMetrics, utils.GetMetricsCollector())

	logger.Info("✅ 所有服务初始化完成", map[string]interface{}{
		"services":   container.GetNames(),
		"user_store": cfg.UserStore,
		"chunk_size": cfg.ChunkSize,
	})
	return nil
}

// NewLLMService 使用当前运行时配置创建模型服务
func NewLLMService() *services.LLMService {
	return services.NewLLMService(config.GetCurrentConfig())
}

// NewReviewService 组装编排器与审查服务，CLI 也复用这里
func NewReviewService(cfg *config.Config, generator review.Generator) (*services.ReviewService, error) {
	prompts, err := review.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("加载提示词失败: %w", err)
	}

	orchestrator, err := review.NewOrchestrator(generator, review.Options{
		ChunkSize: cfg.ChunkSize,
		Prompts:   &prompts,
	})
	if err != nil {
		return nil, fmt.Errorf("创建审查编排器失败: %w", err)
	}

	return services.NewReviewService(orchestrator, services.ReviewServiceConfig{
		Timeout:       cfg.ReviewTimeout,
		MaxConcurrent: cfg.MaxConcurrentReviews,
	}), nil
}

// Run 启动服务器并阻塞到收到停止信号或服务器出错
func (a *App) Run() error {
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)

	logger := utils.GetLogger()
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("🌐 服务器启动在端口 %s", a.config.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case sig := <-a.stopChan:
		logger.Info("🛑 正在关闭服务器...", map[string]interface{}{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	logger.Info("✅ 服务器优雅关闭完成", nil)
	return nil
}

// Stop 触发与收到 SIGTERM 相同的关闭流程
func (a *App) Stop() {
	select {
	case a.stopChan <- syscall.SIGTERM:
	default:
	}
}

// GetConfig 返回进程配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetDIContainer 返回服务容器
func (a *App) GetDIContainer() *di.Container {
	return a.container
}

func (a *App) cleanup() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.container != nil {
		cleanupServices(a.container)
	}
	_ = utils.GetLogger().Sync()
}

func cleanupServices(container *di.Container) {
	if store, err := di.Resolve[storage.UserStore](container, di.ServiceUserStore); err == nil {
		if err := store.Close(); err != nil {
			utils.GetLogger().Warn("关闭用户存储失败", map[string]interface{}{"error": err})
		}
	}
}
