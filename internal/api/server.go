package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/domain"
	"github.com/stroke-code-server/internal/middleware"
	"github.com/stroke-code-server/internal/service"
)

const (
	version         = "1.0.0"
	exportCacheSize = 256
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	session       *service.Session
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	upgrader      websocket.Upgrader
	tickInterval  time.Duration
	mcpHandler    http.Handler
	exports       *lru.Cache[string, []byte]
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithMCPHandler mounts an MCP transport handler at /mcp
func WithMCPHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.mcpHandler = h }
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, session *service.Session, logger *logrus.Logger, opts ...ServerOption) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if configManager.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	router.Use(corsMiddleware())

	server := &Server{
		configManager: configManager,
		session:       session,
		logger:        logger,
		router:        router,
		tickInterval:  cfg.Timer.TickInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	// Recorded cases never change, so a rendered export stays valid.
	exports, err := lru.New[string, []byte](exportCacheSize)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Export cache disabled")
	}
	server.exports = exports

	if server.tickInterval <= 0 {
		server.tickInterval = time.Second
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes(cfg.Server.RequestTimeout)
	return server
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(requestTimeout time.Duration) {
	s.router.GET("/health", s.handleHealth)

	if s.mcpHandler != nil {
		s.router.Any("/mcp", gin.WrapH(s.mcpHandler))
	}

	v1 := s.router.Group("/api/v1")

	// The websocket stream is long lived and stays outside the request timeout.
	v1.GET("/code/clock/ws", s.handleClockStream)

	timed := v1.Group("", middleware.RequestTimeout(requestTimeout))
	{
		timed.POST("/code/activate", s.handleActivate)
		timed.POST("/code/reset", s.handleReset)
		timed.GET("/code/clock", s.handleClock)

		timed.GET("/session", s.handleGetSession)
		timed.PUT("/session/nihss", s.handleSetNihss)
		timed.PUT("/session/aspects", s.handleSetAspects)
		timed.PUT("/session/checklist", s.handleSetChecklist)
		timed.PUT("/session/thrombectomy", s.handleSetCriteria)
		timed.PUT("/session/patient", s.handleSetPatient)
		timed.GET("/session/eligibility", s.handleEligibility)
		timed.GET("/session/dose", s.handleDose)

		timed.POST("/cases", s.handleFinalize)
		timed.GET("/cases", s.handleListCases)
		timed.GET("/cases/:id", s.handleGetCase)
		timed.GET("/cases/:id/export", s.handleExportCase)

		timed.POST("/notifications/test", s.handleTestNotification)
		timed.GET("/notifications/recipients", s.handleGetRecipients)
		timed.PUT("/notifications/recipients", s.handleSetRecipients)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version,
		"clock":     s.session.Timer().State(),
		"cases":     s.session.Recorder().Len(),
	})
}

// respondError writes a standardized error body
func respondError(c *gin.Context, status int, code, message string, err error) {
	apiErr := domain.NewAPIError(code, message, "", c.GetString(middleware.CorrelationIDKey))
	if err != nil {
		apiErr.Details = err.Error()
	}
	var incomplete *domain.IncompleteCaseError
	if errors.As(err, &incomplete) {
		apiErr.Missing = incomplete.Missing
	}
	c.AbortWithStatusJSON(status, apiErr)
}

// respondInputError maps a binding or validation failure to 400
func respondInputError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "Validation failed", err)
		return
	}
	respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Malformed request body", err)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
