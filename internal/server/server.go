// Package server
//
// @title Batsim Web Portal API
// @version 1.0
// @description Simulation-experiment portal API
// @host localhost:8000
// @BasePath /api
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/auth"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/config"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/models"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/storage"
)

// Server represents the portal HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	validator   *validator.Validate
	asynqClient *asynq.Client
	store       *storage.Store
	startedAt   time.Time
	version     string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Initialize JWT authentication. The secret comes from the environment when
	// set, otherwise it is auto-generated on first startup and persisted.
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		var sc models.ServerConfig
		if err := db.First(&sc).Error; err == nil {
			secret = sc.JWTSecret
			zlog.Debug().Msg("Loaded JWT secret from database")
		} else {
			secret, err = generateJWTSecret()
			if err != nil {
				return nil, err
			}
			if err := db.Create(&models.ServerConfig{JWTSecret: secret}).Error; err != nil {
				return nil, fmt.Errorf("failed to persist server config: %w", err)
			}
			zlog.Info().Msg("Generated and persisted new JWT secret")
		}
	}
	auth.InitializeJWT(secret, cfg.Auth.TokenExpiryHours)

	// Initialize validator
	validate := validator.New()

	// Register custom validators
	validate.RegisterValidation("entityname", func(fl validator.FieldLevel) bool {
		// Allow alphanumeric, hyphens, underscores and dots only (safe for filesystem paths)
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-' ||
				char == '_' ||
				char == '.') {
				return false
			}
		}
		return len(value) > 0
	})

	// Initialize Asynq client for enqueueing experiment runs
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	// Initialize file storage for workload/platform/strategy uploads
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:          db,
		config:      cfg,
		logger:      zlog,
		validator:   validate,
		asynqClient: asynqClient,
		store:       store,
		startedAt:   time.Now(),
		version:     version,
	}

	server.setupRouter()

	return server, nil
}

func generateJWTSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300 // 5 minutes
		busyTimeout     = 5000
		cacheSize       = 10000 // 10MB
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/auth/register", s.register)
	s.router.POST("/api/auth/login-json", s.loginJSON)

	// Authenticated API routes (JWT required)
	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.logger))
	{
		// Auth endpoints
		api.GET("/auth/me", s.getCurrentUser)

		// System probes
		api.GET("/system", s.getSystemStatus)
		api.GET("/system/resources", s.getSystemResources)

		// Workloads
		api.GET("/workloads", s.listWorkloads)
		api.GET("/workloads/:id", s.getWorkload)
		api.POST("/workloads", s.createWorkload)
		api.PUT("/workloads/:id", s.updateWorkload)
		api.PUT("/workloads/:id/file", s.replaceWorkloadFile)
		api.DELETE("/workloads/:id", s.deleteWorkload)
		api.GET("/workloads/:id/download", s.downloadWorkload)

		// Platforms
		api.GET("/platforms", s.listPlatforms)
		api.GET("/platforms/:id", s.getPlatform)
		api.POST("/platforms", s.createPlatform)
		api.PUT("/platforms/:id", s.updatePlatform)
		api.PUT("/platforms/:id/file", s.replacePlatformFile)
		api.DELETE("/platforms/:id", s.deletePlatform)
		api.GET("/platforms/:id/download", s.downloadPlatform)

		// Scenarios
		api.GET("/scenarios", s.listScenarios)
		api.GET("/scenarios/:id", s.getScenario)
		api.POST("/scenarios", s.createScenario)
		api.PUT("/scenarios/:id", s.updateScenario)
		api.DELETE("/scenarios/:id", s.deleteScenario)

		// Strategies
		api.GET("/strategies", s.listStrategies)
		api.GET("/strategies/:id", s.getStrategy)
		api.POST("/strategies", s.createStrategy)
		api.PUT("/strategies/:id", s.updateStrategy)
		api.PUT("/strategies/:id/file", s.replaceStrategyFile)
		api.DELETE("/strategies/:id", s.deleteStrategy)
		api.GET("/strategies/:id/download", s.downloadStrategy)

		// Experiments
		api.GET("/experiments", s.listExperiments)
		api.GET("/experiments/:id", s.getExperiment)
		api.POST("/experiments", s.createExperiment)
		api.PUT("/experiments/:id", s.updateExperiment)
		api.DELETE("/experiments/:id", s.deleteExperiment)
		api.POST("/experiments/:id/start", s.startExperiment)
		api.POST("/experiments/:id/stop", s.stopExperiment)
		api.GET("/experiments/:id/status", s.getExperimentStatus)

		// Results
		api.GET("/results", s.listResults)
		api.GET("/results/analytics", s.getResultAnalytics)
		api.GET("/results/experiment/:id", s.getResultsByExperiment)
		api.GET("/results/:id", s.getResult)
		api.DELETE("/results/:id", s.deleteResult)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "batsim-portal-api",
	})
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Router returns the configured HTTP handler (used by tests)
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.config.Server.Address

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
		// Timeouts sized for large workload/platform uploads
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      120 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	go func() {
		s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Close Asynq client
	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Asynq client")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
