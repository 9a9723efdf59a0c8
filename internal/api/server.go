package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"neurallempire-signal-engine/internal/auth"
	"neurallempire-signal-engine/internal/cache"
	"neurallempire-signal-engine/internal/engine"
	"neurallempire-signal-engine/internal/events"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per client
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// SignalReader is the slice of the repository the API reads verdicts through.
type SignalReader interface {
	GetSignalByID(ctx context.Context, id string) (*engine.TradingSignal, error)
	GetRecentSignals(ctx context.Context, limit int) ([]*engine.TradingSignal, error)
	GetSignalsBySymbol(ctx context.Context, symbol string, limit int) ([]*engine.TradingSignal, error)
	CountSignals(ctx context.Context) (total int64, approved int64, err error)
	HealthCheck(ctx context.Context) error
}

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	orchestrator *engine.Orchestrator
	repo         SignalReader
	signalCache  *cache.SignalCache // May be nil when Redis is disabled
	eventBus     *events.EventBus
	config       ServerConfig
	tokenManager *auth.TokenManager
	authEnabled  bool
	rateLimiter  *RateLimiter
	startedAt    time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string
	ProductionMode bool
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	orchestrator *engine.Orchestrator,
	repo SignalReader,
	signalCache *cache.SignalCache, // Can be nil if Redis is disabled
	eventBus *events.EventBus,
	tokenManager *auth.TokenManager, // Can be nil if auth is disabled
) *Server {
	// Set Gin mode
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:       router,
		orchestrator: orchestrator,
		repo:         repo,
		signalCache:  signalCache,
		eventBus:     eventBus,
		config:       config,
		tokenManager: tokenManager,
		authEnabled:  tokenManager != nil,
		rateLimiter:  NewRateLimiter(120, time.Minute), // 120 requests per minute per client
		startedAt:    time.Now(),
	}

	server.setupRoutes()

	// Initialize the WebSocket hub for real-time event broadcasting
	InitWebSocket(eventBus)

	return server
}

// rateLimitMiddleware limits requests per client IP
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !s.rateLimiter.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please slow down.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check and live stream stay public
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	v1.Use(s.rateLimitMiddleware())
	if s.authEnabled {
		v1.Use(auth.Middleware(s.tokenManager))
	}

	v1.POST("/signals/evaluate", s.handleEvaluate)
	v1.GET("/signals/recent", s.handleRecentSignals)
	v1.GET("/signals/symbol/:symbol", s.handleSignalsBySymbol)
	v1.GET("/signals/:id", s.handleSignalByID)
	v1.GET("/status", s.handleStatus)
}

// Start starts the HTTP server (blocks until shutdown)
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbHealthy := true
	if s.repo != nil {
		if err := s.repo.HealthCheck(ctx); err != nil {
			dbHealthy = false
		}
	}

	if !dbHealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
	})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   message,
	})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
