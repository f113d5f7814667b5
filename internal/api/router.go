package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/metrics"
	"github.com/LJTian/DevPulse/internal/session"
	"github.com/gin-gonic/gin"
)

type Server struct {
	session *session.Session
	metrics *metrics.Metrics
	log     logger.Logger
}

func NewServer(sess *session.Session, m *metrics.Metrics, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{session: sess, metrics: m, log: log}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/developments", s.listDevelopments)
		v1.POST("/refresh", s.refresh)
	}
}

// RegisterStatic 托管前端静态文件，未匹配 API 的 GET 均返回 index.html
func RegisterStatic(r *gin.Engine, webRoot string) {
	if webRoot == "" {
		return
	}
	assetsDir := filepath.Join(webRoot, "assets")
	indexFile := filepath.Join(webRoot, "index.html")
	r.Static("/assets", assetsDir)
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(indexFile)
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listDevelopments(c *gin.Context) {
	if err := s.session.EnsureLoaded(c.Request.Context()); err != nil {
		s.internalError(c, err)
		return
	}
	s.ok(c, s.session.View(c.Query("q")))
}

func (s *Server) refresh(c *gin.Context) {
	view, err := s.session.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, session.ErrSuperseded):
		// 被更新的刷新取代时返回当前快照
		view = s.session.View("")
	case err != nil:
		s.internalError(c, err)
		return
	}
	s.ok(c, view)
}

func (s *Server) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.Error("request failed", logger.String("path", c.FullPath()), logger.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
