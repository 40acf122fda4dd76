// cmd/server/main.go
package main

import (
	"log"

	"github.com/Corphon/AICodeReviewer/internal/app"
	"github.com/Corphon/AICodeReviewer/internal/config"
)

func main() {
	log.Println("🚀 启动 AICodeReviewer 服务器...")

	// 1. 加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 初始化日志、配置系统、服务和路由
	application, err := app.New(baseConfig)
	if err != nil {
		log.Fatalf("❌ 初始化应用失败: %v", err)
	}

	// 3. 启动服务器，收到 SIGINT/SIGTERM 后优雅关闭
	if err := application.Run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
