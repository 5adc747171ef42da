// Package api exposes the signal engine over HTTP: health, recent
// signals, aggregate stats, an on-demand scan trigger and a WebSocket
// stream of pipeline events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/traderboter/Back-to-OLD-method-sub000/internal/database"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/events"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/orchestrator"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	ProductionMode bool     `json:"production_mode"`
	Symbols        []string `json:"symbols"`
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}
}

// Server is the HTTP API server
type Server struct {
	cfg        ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	repo       *database.Repository
	orch       *orchestrator.Orchestrator
	hub        *WSHub
	logger     *logging.Logger
	startedAt  time.Time
}

// NewServer wires the router. repo may be nil when persistence is
// disabled; the signal endpoints then return 503.
func NewServer(cfg ServerConfig, orch *orchestrator.Orchestrator, repo *database.Repository, bus *events.EventBus, logger *logging.Logger) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		router:    gin.New(),
		repo:      repo,
		orch:      orch,
		hub:       NewWSHub(logger),
		logger:    logger.WithComponent("api"),
		startedAt: time.Now(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if bus != nil {
		s.hub.AttachBus(bus)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.hub.HandleWS)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/signals", s.handleRecentSignals)
		v1.GET("/stats", s.handleStats)
		v1.POST("/scan", s.handleScan)
	}
}

// Start runs the hub and the HTTP listener. Blocks until the listener
// stops.
func (s *Server) Start() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("http server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	}
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.repo.HealthCheck(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		} else {
			status["database"] = "ok"
		}
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleRecentSignals(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	signals, err := s.repo.RecentSignals(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("recent signals query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}

	stats, err := s.repo.GetStats(c.Request.Context())
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleScan triggers a scan over the request body's symbols, or the
// configured default set.
func (s *Server) handleScan(c *gin.Context) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = s.cfg.Symbols
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no symbols configured"})
		return
	}

	result := s.orch.ScanSymbols(c.Request.Context(), symbols)
	c.JSON(http.StatusOK, gin.H{
		"symbols":    result.Symbols,
		"signals":    result.Signals,
		"rejected":   result.Rejected,
		"errors":     result.Errors,
		"elapsed_ms": result.Elapsed.Milliseconds(),
	})
}
