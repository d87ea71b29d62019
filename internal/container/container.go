package container

import (
	"presence-be/internal/config"
	"presence-be/pkg/logger"
	"presence-be/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *logger.Logger) (*Container, error) {
	// Initialize Redis client if Redis URL is configured. A missing client
	// leaves the counter binding unregistered, which the front door reports
	// as a server error on every request.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, counter binding will be missing")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Warn("Redis URL not configured, counter binding will be missing")
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		RedisClient: redisClient,
	}, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
