// Package server
//
// @title Campusdesk API
// @version 1.0
// @description School management service API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
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
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campusdesk-dev/campusdesk/internal/cache"
	"github.com/campusdesk-dev/campusdesk/internal/config"
	"github.com/campusdesk-dev/campusdesk/internal/directory"
	"github.com/campusdesk-dev/campusdesk/internal/email"
	"github.com/campusdesk-dev/campusdesk/internal/models"
	"github.com/campusdesk-dev/campusdesk/internal/session"
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	db         *gorm.DB
	config     *config.Config
	logger     zerolog.Logger
	validator  *validator.Validate
	sessions   *session.Store
	directory  directory.UserDirectory
	dispatcher *email.Dispatcher
	version    string
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

	// Session records live in a cache backend; both backends expire
	// entries on their own
	var sessionCache cache.Cache
	switch cfg.Session.Store {
	case "redis":
		sessionCache = cache.NewRedis(cfg.Session.RedisAddr)
		zlog.Info().Str("addr", cfg.Session.RedisAddr).Msg("Using redis session store")
	default:
		sessionCache = cache.NewMemory(cfg.Session.TTL)
		zlog.Info().Msg("Using in-memory session store")
	}
	sessions := session.NewStore(sessionCache, cfg.Session.TTL)

	// The user directory defaults to the application database; an
	// external PostgreSQL directory takes over when configured
	var dir directory.UserDirectory = directory.NewGormDirectory(db)
	if cfg.Database.DirectoryURL != "" {
		pgDir, err := directory.NewPostgresDirectory(cfg.Database.DirectoryURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect user directory: %w", err)
		}
		dir = pgDir
		zlog.Info().Msg("Using external PostgreSQL user directory")
	}

	// Outside production, SMTP certificate validation is relaxed
	dispatcher := email.NewDispatcher(cfg.Email, !cfg.Server.IsProduction(), zlog)

	// Initialize validator
	validate := validator.New()

	// Register custom validators
	validate.RegisterValidation("rolename", func(fl validator.FieldLevel) bool {
		// Roles are plain lowercase words (safe to compare and display)
		value := fl.Field().String()
		if value == "" {
			return false
		}
		for _, char := range value {
			if !(char >= 'a' && char <= 'z') {
				return false
			}
		}
		return true
	})

	// Create server
	server := &Server{
		db:         db,
		config:     cfg,
		logger:     zlog,
		validator:  validate,
		sessions:   sessions,
		directory:  dir,
		dispatcher: dispatcher,
		version:    version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8    // Reduced for SQLite efficiency
		maxIdleConns    = 4    // Reduced proportionally
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	// Open database connection
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

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool settings
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply SQLite pragmas directly (connection string pragmas may not
	// work with all drivers). WAL mode must be set first.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
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
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware for the React SPA
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.config.Server.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/setup", s.setupFirstManager)
	s.router.POST("/api/auth/login", s.login)

	// Logout works on whatever session cookie the request carries;
	// both verbs are kept for client compatibility
	s.router.GET("/api/logout", s.logoutRedirect)
	s.router.POST("/api/logout", s.logoutJSON)

	// Password reset (unauthenticated by design)
	s.router.POST("/api/password-reset", s.requestPasswordReset)
	s.router.POST("/api/password-reset/confirm", s.confirmPasswordReset)

	// Authenticated API routes (valid session required)
	api := s.router.Group("/api")
	api.Use(SessionAuthMiddleware(s.sessions, s.directory, s.config.Session.CookieName, s.logger))
	{
		// Auth endpoints
		api.GET("/auth/user", s.getCurrentUser)

		// Management endpoints (manager role only)
		managed := api.Group("")
		managed.Use(RequireRole(models.RoleManager, s.logger))
		{
			managed.GET("/users", s.listUsers)
			managed.POST("/users", s.createUser)
			managed.POST("/users/:id/deactivate", s.deactivateUser)
			managed.POST("/users/:id/reactivate", s.reactivateUser)

			managed.POST("/settings/email/test", s.sendTestEmail)
		}
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
		"service":   "campusdesk-api",
	})
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Router exposes the underlying handler, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create HTTP server with production timeouts
	srv := &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second, // 5 minutes
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("addr", s.config.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		s.logger.Info().Msg("Closing database connection...")
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		} else {
			s.logger.Info().Msg("Database closed successfully")
		}
	}

	return nil
}
