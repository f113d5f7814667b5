package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/DevPulse/internal/app"
	"github.com/LJTian/DevPulse/internal/config"
	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/gin-gonic/gin"
)

// 只启动 HTTP 服务的入口，容器部署时使用；命令行工具见 cmd/devpulse
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log).Serve(ctx); err != nil {
		log.Error("server exit", logger.Error(err))
		os.Exit(1)
	}
}
