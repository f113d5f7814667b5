// Package app 把配置、数据源、pipeline、会话和 HTTP 服务组装在一起，供各个命令复用
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LJTian/DevPulse/internal/api"
	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/config"
	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/metrics"
	"github.com/LJTian/DevPulse/internal/pipeline"
	"github.com/LJTian/DevPulse/internal/session"
	"github.com/LJTian/DevPulse/internal/storage"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config   *config.Config
	Log      logger.Logger
	Metrics  *metrics.Metrics
	Pipeline *pipeline.Pipeline
	Session  *session.Session
}

// New 数据源与 mock 开关在这里解析一次，之后整个进程不再读取环境变量
func New(cfg *config.Config, log logger.Logger, opts ...collector.Option) *App {
	if log == nil {
		log = logger.NewNop()
	}
	for _, w := range cfg.Warnings {
		log.Warn("config: " + w)
	}

	collectorOpts := append([]collector.Option{
		collector.WithTimeout(cfg.HTTPTimeout),
		collector.WithWindowHours(cfg.WindowHours),
		collector.WithLogger(log),
	}, opts...)

	provider := collector.NewProvider(cfg.Provider, collector.Credentials{
		NewsAPIKey:  cfg.NewsAPIKey,
		GNewsAPIKey: cfg.GNewsAPIKey,
	}, collectorOpts...)
	mock := collector.NewMockSource(cfg.MockFixturePath, collectorOpts...)

	m := metrics.New()
	p := pipeline.New(provider, mock, pipeline.Options{
		MockConfigured: cfg.MockMode,
		ForcedMock:     cfg.ForcedMock,
		WindowHours:    cfg.WindowHours,
	}, pipeline.WithLogger(log), pipeline.WithMetrics(m))

	log.Info("app initialized",
		logger.String("provider", provider.Name()),
		logger.Bool("mock_configured", cfg.MockMode),
		logger.Bool("forced_mock", cfg.ForcedMock),
		logger.Int("window_hours", cfg.WindowHours),
	)

	return &App{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		Pipeline: p,
		Session:  session.New(p, storage.NewSnapshot(), log),
	}
}

// Engine 注册 API 路由，配置了 WEB_ROOT 时同时托管前端
func (a *App) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.Log))

	api.NewServer(a.Session, a.Metrics, a.Log).RegisterRoutes(r)
	api.RegisterStatic(r, a.Config.WebRoot)
	return r
}

// Serve 阻塞直到 ctx 结束或服务异常退出
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.AppPort,
		Handler:           a.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("starting api server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down api server")
	a.Session.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("elapsed", time.Since(start)),
		)
	}
}
