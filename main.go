package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"neurallempire-signal-engine/config"
	"neurallempire-signal-engine/internal/api"
	"neurallempire-signal-engine/internal/auth"
	"neurallempire-signal-engine/internal/cache"
	"neurallempire-signal-engine/internal/database"
	"neurallempire-signal-engine/internal/engine"
	"neurallempire-signal-engine/internal/events"
	"neurallempire-signal-engine/internal/logging"
	"neurallempire-signal-engine/internal/vault"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
	})
	logger.Info().Msg("Structured logging initialized")

	// Initialize event bus
	eventBus := events.NewEventBus()
	logger.Info().Msg("Event bus initialized")

	// Initialize Vault client for datastore credentials
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		log.Fatalf("Failed to initialize Vault client: %v", err)
	}
	if vaultClient.IsEnabled() {
		logger.Info().Str("address", cfg.VaultConfig.Address).Msg("Vault client initialized")
	}

	// Resolve database credentials: environment first, Vault overrides
	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "signal_engine"),
		Password: getEnv("DB_PASSWORD", "signal_engine_password"),
		Database: getEnv("DB_NAME", "signal_engine"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
	if vaultClient.IsEnabled() {
		lookupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		creds, err := vaultClient.GetCredentials(lookupCtx, "postgres")
		cancel()
		if err != nil {
			log.Printf("Warning: Vault lookup for postgres credentials failed: %v", err)
		} else {
			dbConfig.User = creds.Username
			dbConfig.Password = creds.Password
		}
	}

	// Initialize database
	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repository
	repo := database.NewRepository(db)

	// Initialize Redis cache and event publishing (optional)
	var signalCache *cache.SignalCache
	if cfg.RedisConfig.Enabled {
		redisCfg := cfg.RedisConfig
		if vaultClient.IsEnabled() {
			lookupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			creds, err := vaultClient.GetCredentials(lookupCtx, "redis")
			cancel()
			if err == nil {
				redisCfg.Password = creds.Password
			}
		}

		cacheService, err := cache.NewCacheService(redisCfg)
		if err != nil {
			log.Printf("Redis cache disabled: %v", err)
		} else {
			defer cacheService.Close()
			signalCache = cache.NewSignalCache(cacheService)

			// Mirror engine events onto the Redis channel for downstream services
			publisher := events.NewRedisPublisher(cacheService.GetClient(), events.DefaultChannel, logger)
			publisher.Attach(eventBus)
			logger.Info().Str("address", redisCfg.Address).Msg("Redis cache and event publisher initialized")
		}
	}

	// Initialize service-token auth (optional)
	var tokenManager *auth.TokenManager
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.JWTSecret == "" {
			log.Fatalf("AUTH_JWT_SECRET must be set when auth is enabled")
		}
		tokenManager = auth.NewTokenManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenDuration)
		logger.Info().Dur("token_duration", cfg.AuthConfig.TokenDuration).Msg("Service-token auth enabled")
	}

	// Initialize the signal orchestrator
	orchestrator := engine.NewOrchestrator(engine.Config{
		MaxOpenPositions:    cfg.EngineConfig.MaxOpenPositions,
		MaxPortfolioRiskPct: cfg.EngineConfig.MaxPortfolioRiskPct,
		StopLossPct:         cfg.EngineConfig.StopLossPct,
		TargetPct:           cfg.EngineConfig.TargetPct,
	}, repo, eventBus, logger)
	logger.Info().
		Int("max_open_positions", cfg.EngineConfig.MaxOpenPositions).
		Float64("max_portfolio_risk_pct", cfg.EngineConfig.MaxPortfolioRiskPct).
		Msg("Signal orchestrator initialized")

	// Initialize web server
	serverConfig := api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ProductionMode: true,
	}
	server := api.NewServer(serverConfig, orchestrator, repo, signalCache, eventBus, tokenManager)

	// Start web server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
	}()

	log.Println("Starting signal engine...")
	log.Printf("API available at http://%s:%d", serverConfig.Host, serverConfig.Port)

	// Publish engine started event
	eventBus.Publish(events.Event{
		Type: events.EventEngineStarted,
		Data: map[string]interface{}{
			"auth_enabled":  cfg.AuthConfig.Enabled,
			"cache_enabled": signalCache != nil,
		},
	})

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")

	// Publish engine stopped event
	eventBus.Publish(events.Event{
		Type: events.EventEngineStopped,
		Data: map[string]interface{}{},
	})

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down web server: %v", err)
	}

	log.Println("Shutdown complete")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
