// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
	sealKey       string
)

const (
	DefaultPort           = "5000"
	DefaultProvider       = "google"
	DefaultModel          = "gemini-2.0-flash"
	DefaultChunkSize      = 5000
	DefaultReviewTimeout  = 5 * time.Minute
	DefaultMaxConcurrency = 4
	DefaultMaxInputBytes  = 200000
)

// DefaultAllowedOrigins 前端开发地址与线上地址
var DefaultAllowedOrigins = []string{"http://localhost:5173", "https://aicodereviewer.vercel.app"}

// AppConfig 运行时可修改并持久化的配置
type AppConfig struct {
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// LLM相关配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`
}

// Config 从环境变量加载的进程配置
type Config struct {
	Port         string
	GeminiAPIKey string
	GeminiModel  string
	DataDir      string
	LogDir       string
	DebugMode    bool

	AllowedOrigins []string

	ChunkSize            int
	ReviewTimeout        time.Duration
	MaxConcurrentReviews int
	MaxInputBytes        int64
	PromptsFile          string

	UserStore  string // file | sqlite
	SQLitePath string

	AuthSecretKey      string
	AdminOnlyUserAdmin bool
	AdminEmail         string
	ConfigSealKey      string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// .env 文件可选
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")
	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		GeminiAPIKey:         getEnv("GOOGLE_GEMINI_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", DefaultModel),
		DataDir:              dataDir,
		LogDir:               getEnv("LOG_DIR", "logs"),
		DebugMode:            getEnvBool("DEBUG_MODE", false),
		AllowedOrigins:       getEnvList("ALLOWED_ORIGINS", DefaultAllowedOrigins),
		ChunkSize:            getEnvInt("CHUNK_SIZE", DefaultChunkSize),
		ReviewTimeout:        getEnvDuration("REVIEW_TIMEOUT", DefaultReviewTimeout),
		MaxConcurrentReviews: getEnvInt("MAX_CONCURRENT_REVIEWS", DefaultMaxConcurrency),
		MaxInputBytes:        int64(getEnvInt("MAX_INPUT_BYTES", DefaultMaxInputBytes)),
		PromptsFile:          getEnv("PROMPTS_FILE", ""),
		UserStore:            strings.ToLower(getEnv("USER_STORE", "file")),
		SQLitePath:           getEnv("SQLITE_PATH", filepath.Join(dataDir, "users.db")),
		AuthSecretKey:        getEnv("AUTH_SECRET_KEY", ""),
		AdminOnlyUserAdmin:   getEnvBool("ADMIN_ONLY_USER_ADMIN", false),
		AdminEmail:           getEnv("ADMIN_EMAIL", ""),
		ConfigSealKey:        getEnv("CONFIG_SEAL_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" {
		log.Println("警告: 未设置 GOOGLE_GEMINI_KEY，需要通过 /api/llm/config 配置后才能使用审查功能")
	}

	return cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE 必须为正数: %d", c.ChunkSize)
	}
	if c.MaxConcurrentReviews <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_REVIEWS 必须为正数: %d", c.MaxConcurrentReviews)
	}
	if c.MaxInputBytes <= 0 {
		return fmt.Errorf("MAX_INPUT_BYTES 必须为正数: %d", c.MaxInputBytes)
	}
	switch c.UserStore {
	case "file", "sqlite":
	default:
		return fmt.Errorf("未知的 USER_STORE: %s", c.UserStore)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("警告: %s=%q 不是整数，使用默认值 %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("警告: %s=%q 不是有效时长，使用默认值 %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvList 逗号分隔的列表
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// InitConfig 初始化配置管理器，合并 data 目录下已保存的 LLM 设置
func InitConfig(base *Config) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	configFile = filepath.Join(base.DataDir, "config.json")
	sealKey = base.ConfigSealKey

	currentConfig = &AppConfig{
		Port:        base.Port,
		DataDir:     base.DataDir,
		LogDir:      base.LogDir,
		DebugMode:   base.DebugMode,
		LLMProvider: DefaultProvider,
		LLMConfig: map[string]string{
			"api_key":       base.GeminiAPIKey,
			"default_model": base.GeminiModel,
		},
	}

	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if json.Unmarshal(data, &saved) == nil && saved.LLMProvider != "" {
			llmConfig, err := openLLMConfig(saved.LLMConfig)
			if err != nil {
				return fmt.Errorf("解密已保存的LLM配置失败: %w", err)
			}
			// 环境变量中的密钥优先
			if base.GeminiAPIKey != "" {
				llmConfig["api_key"] = base.GeminiAPIKey
			}
			currentConfig.LLMProvider = saved.LLMProvider
			currentConfig.LLMConfig = llmConfig
		}
	}

	return saveLocked()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		return &AppConfig{
			Port:        DefaultPort,
			LLMProvider: DefaultProvider,
			LLMConfig:   map[string]string{"default_model": DefaultModel},
		}
	}

	configCopy := *currentConfig
	configCopy.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
	for k, v := range currentConfig.LLMConfig {
		configCopy.LLMConfig[k] = v
	}
	return &configCopy
}

// UpdateLLMConfig 更新LLM配置并保存
func UpdateLLMConfig(provider string, llmConfig map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = mergeLLMConfigLocked(llmConfig)

	return saveLocked()
}

// MergeLLMConfig 返回与当前配置合并后的LLM配置，不写入文件
func MergeLLMConfig(llmConfig map[string]string) map[string]string {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return mergeLLMConfigLocked(llmConfig)
}

func mergeLLMConfigLocked(llmConfig map[string]string) map[string]string {
	merged := make(map[string]string, len(llmConfig)+1)
	for k, v := range llmConfig {
		merged[k] = v
	}
	// 未提供新密钥时保留旧密钥
	if merged["api_key"] == "" && currentConfig != nil {
		merged["api_key"] = currentConfig.LLMConfig["api_key"]
	}
	return merged
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	configMutex.Lock()
	defer configMutex.Unlock()
	return saveLocked()
}

func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	onDisk := *currentConfig
	sealed, err := sealLLMConfig(currentConfig.LLMConfig)
	if err != nil {
		return fmt.Errorf("加密LLM配置失败: %w", err)
	}
	onDisk.LLMConfig = sealed

	data, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0600)
}

// sealLLMConfig 持久化前加密 api_key（未设置 CONFIG_SEAL_KEY 时原样保存）
func sealLLMConfig(in map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	sealed, err := utils.SealSecret(out["api_key"], sealKey)
	if err != nil {
		return nil, err
	}
	if sealed != "" {
		out["api_key"] = sealed
	}
	return out, nil
}

func openLLMConfig(in map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	plain, err := utils.OpenSecret(out["api_key"], sealKey)
	if err != nil {
		return nil, err
	}
	if plain != "" {
		out["api_key"] = plain
	}
	return out, nil
}
