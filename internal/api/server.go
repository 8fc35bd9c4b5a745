package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/metrics"
	"github.com/preventive-care-server/internal/middleware"
	"github.com/preventive-care-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Dependencies are the components the HTTP surface serves.
type Dependencies struct {
	Service *service.RecommendationService
	Bridge  *service.SchedulingBridge
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
	Checks  map[string]HealthCheck
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	router        *gin.Engine
	server        *http.Server
	clock         func() time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	server := &Server{
		configManager: configManager,
		deps:          deps,
		router:        router,
		clock:         time.Now,
	}

	server.setupRoutes(cfg)

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
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
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.deps.Logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(cfg *domain.Config) {
	s.router.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewClientRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		v1.Use(limiter.Middleware())
	}
	{
		v1.POST("/recommendations", s.handleRecommendations)
		v1.POST("/recommendations/explain", s.handleExplain)
		v1.POST("/scheduling/validate", s.handleValidateScheduling)
		v1.GET("/catalog", s.handleCatalog)
		v1.POST("/onboarding/steps", s.handleOnboardingSteps)
		v1.POST("/patients/:patientId/confirmations", s.handleConfirm)
		v1.GET("/patients/:patientId/confirmations", s.handleListConfirmations)
	}
}

// handleHealth reports each dependency; any failing check makes the response 503.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":          state,
		"timestamp":       s.clock().UTC(),
		"version":         Version,
		"catalog_version": s.deps.Service.Catalog().Version,
		"checks":          checks,
	})
}

// corsMiddleware adds CORS headers for the configured origins. An empty list allows none.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (origins["*"] || origins[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Correlation-ID")
			c.Header("Access-Control-Expose-Headers", "X-Correlation-ID")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
