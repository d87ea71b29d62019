package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"presence-be/internal/config"
	"presence-be/internal/container"
	"presence-be/internal/handler"
	"presence-be/internal/middleware"
	"presence-be/internal/repository"
	"presence-be/internal/service"
	"presence-be/pkg/database"
	"presence-be/pkg/logger"
	"presence-be/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db              *database.PostgresDB
	redisClient     *redis.Client
	presenceService service.PresenceService
	server          *http.Server
	log             *logger.Logger
	mu              sync.Mutex
	closed          bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Stop presence service (saves final snapshot)
	if r.presenceService != nil {
		r.log.Info("Stopping presence service...")
		if err := r.presenceService.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to stop presence service")
			errors = append(errors, fmt.Errorf("presence service shutdown: %w", err))
		} else {
			r.log.Info("Presence service stopped successfully")
		}
	}

	// Close Redis connection with health check
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.redisClient.Health(healthCtx); err != nil {
			r.log.WithError(err).Warn("Redis health check failed before closing")
		}
		healthCancel()

		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed successfully")
		}
	}

	// Close database connection pool with health check
	if r.db != nil {
		r.log.Info("Closing database connection pool...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.db.Health(healthCtx); err != nil {
			r.log.WithError(err).Warn("Database health check failed before closing")
		}
		healthCancel()

		r.db.Close()
		r.log.Info("Database connection pool closed successfully")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"ttl_seconds": cfg.VisitorTTLSeconds,
	}).Info("Starting presence-be server")

	// Create dependency injection container
	container, err := container.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	ctx := context.Background()

	// Initialize database connection for snapshots (optional)
	var db *database.PostgresDB
	var snapshotRepo repository.SnapshotRepository
	if cfg.DatabaseURL != "" {
		db, err = database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		snapshotRepo = repository.NewSnapshotRepository(db)
	} else {
		log.Info("Database URL not configured, running without snapshots")
	}

	// Wire the single counter instance behind the dispatcher
	dispatcher := handler.NewDispatcher()
	var presenceService service.PresenceService
	if container.HasRedis() {
		counterStore := repository.NewCounterStore(container.GetRedisClient(), log)
		presenceService = service.NewPresenceService(counterStore, snapshotRepo, log, cfg.VisitorTTLSeconds, cfg.SnapshotIntervalSeconds)

		if err := presenceService.Start(ctx); err != nil {
			log.WithError(err).Fatal("Failed to start presence service")
		}

		dispatcher.Register(cfg.CounterName, presenceService)
	}

	// Setup router
	router := setupRouter(container, dispatcher)

	// Create HTTP server with optimized timeouts for high load
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:              db,
		redisClient:     container.GetRedisClient(),
		presenceService: presenceService,
		server:          server,
		log:             log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	// Setup cleanup function that will be called regardless of how the program exits
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(container *container.Container, dispatcher *handler.Dispatcher) *chi.Mux {
	cfg := container.GetConfig()
	log := container.GetLogger()

	r := chi.NewRouter()

	// Front-door middlewares: CORS overlay on every response, trailing
	// slash normalization, request stamping
	r.Use(middleware.CORS(cfg.AllowedOrigin, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.StripSlashes)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Create handlers
	healthHandler := handler.NewHealthHandler(container)
	presenceHandler := handler.NewPresenceHandler(dispatcher, cfg.CounterName, log)

	// Health check
	r.Get("/health", healthHandler.Check)

	// Counter endpoints
	presenceHandler.RegisterRoutes(r)

	// Anything else gets the JSON not-found envelope, whatever the method
	r.NotFound(presenceHandler.NotFound)
	r.MethodNotAllowed(presenceHandler.NotFound)

	log.Info("Router configured successfully")
	return r
}
