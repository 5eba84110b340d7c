package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"case-coach/server/internal/casestore"
	"case-coach/server/internal/collab"
	"case-coach/server/internal/config"
	"case-coach/server/internal/notify"
	"case-coach/server/internal/orchestrator"
	"case-coach/server/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	config    *config.Config
	sessions  session.Store
	ctrl      *orchestrator.Controller
	publisher notify.Publisher
	gatherer  prometheus.Gatherer
	logger    *slog.Logger

	upgrader websocket.Upgrader
}

// NewServer 组装 HTTP 服务。publisher 为 nil 时不发布报告，gatherer 为 nil 时使用默认注册表。
func NewServer(cfg *config.Config, sessions session.Store, ctrl *orchestrator.Controller,
	publisher notify.Publisher, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:    cfg,
		sessions:  sessions,
		ctrl:      ctrl,
		publisher: publisher,
		gatherer:  gatherer,
		logger:    logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), s.corsMiddleware())

	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	engine.GET("/api/stages", s.handleStages)

	sessions := engine.Group("/api/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.POST("/:id/respond", s.handleRespond)
	sessions.GET("/:id/state", s.handleState)
	sessions.GET("/:id/report", s.handleReport)
	sessions.GET("/:id/stream", s.handleStream)
	if s.config.Interview.EnableDebug {
		sessions.POST("/:id/debug/position", s.handleDebugPosition)
	}
	return engine
}

// handleHealthz 返回服务健康状态。
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError 把领域错误映射为 HTTP 状态码；返回给前端的信息保持简洁。
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errEmptyText),
		errors.Is(err, orchestrator.ErrUnknownStage), errors.Is(err, orchestrator.ErrInvalidSubstep):
		status = http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrInterviewComplete):
		status = http.StatusConflict
	case errors.Is(err, orchestrator.ErrMissingCaseContent), errors.Is(err, collab.ErrMalformedOutput),
		errors.Is(err, casestore.ErrStageNotFound):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "session", c.Param("id"), "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) originAllowed(origin string) bool {
	return slices.Contains(s.config.Server.AllowedOrigins, origin)
}

// checkOrigin 同源或白名单中的来源允许升级 WebSocket。
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return s.originAllowed(origin)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
