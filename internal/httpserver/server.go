package httpserver

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/usetrack/internal/collector"
	"github.com/tinytelemetry/usetrack/internal/model"
)

// Server provides the HTTP capability surface instrumented UIs call into.
type Server struct {
	addr      string
	api       model.SessionAPI
	metrics   http.Handler
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, api model.SessionAPI, opts ...Option) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:   addr,
		api:    api,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("httpserver: serve: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/test-mode", s.handleGetTestMode)
	api.PUT("/test-mode", s.handleSetTestMode)
	api.GET("/task", s.handleGetTask)
	api.POST("/task", s.handleStartTask)
	api.DELETE("/task", s.handleEndTask)
	api.POST("/events/:kind", s.handleRecord)
	api.GET("/metrics", s.handleMetrics)
	api.GET("/session", s.handleSession)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	snap, err := s.api.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"test_mode": snap.TestMode,
		"tasks":     snap.Metrics.TaskCount,
	})
}

func (s *Server) handleGetTestMode(c *gin.Context) {
	snap, err := s.api.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": snap.TestMode})
}

func (s *Server) handleSetTestMode(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing enabled field"})
		return
	}
	if err := s.api.SetTestMode(*req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

func (s *Server) handleGetTask(c *gin.Context) {
	snap, err := s.api.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	if snap.CurrentTask == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, snap.CurrentTask)
}

func (s *Server) handleStartTask(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing name field"})
		return
	}
	task, err := s.api.StartTask(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleEndTask(c *gin.Context) {
	task, ended, err := s.api.EndTask()
	if err != nil {
		respondError(c, err)
		return
	}
	if !ended {
		// Double end is tolerated; UI teardown order is not guaranteed.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleRecord(c *gin.Context) {
	kind, ok := model.ParseEventKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event kind"})
		return
	}
	if err := s.api.Record(kind); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMetrics(c *gin.Context) {
	agg, err := s.api.AllMetrics()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_time_seconds": agg.TotalSeconds(),
		"total_clicks":       agg.TotalClicks,
		"total_errors":       agg.TotalErrors,
		"help_usage_percent": agg.HelpUsagePercent,
		"task_count":         agg.TaskCount,
	})
}

func (s *Server) handleSession(c *gin.Context) {
	snap, err := s.api.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, collector.ErrNotInTestMode), errors.Is(err, collector.ErrNoActiveTask):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, collector.ErrEmptyTaskName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("httpserver: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
