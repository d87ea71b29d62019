package repository

import (
	"context"
	"fmt"
	"strconv"

	"presence-be/pkg/logger"
	"presence-be/pkg/redis"
)

// counterStore implements CounterStore on top of Redis
type counterStore struct {
	redisClient *redis.Client
	logger      *logger.Logger
}

// NewCounterStore creates a Redis-backed counter store
func NewCounterStore(redisClient *redis.Client, logger *logger.Logger) CounterStore {
	return &counterStore{
		redisClient: redisClient,
		logger:      logger,
	}
}

// LoadTotal retrieves the persisted lifetime total, defaulting to 0 when
// the key is absent or holds a non-numeric value
func (s *counterStore) LoadTotal(ctx context.Context) (int64, error) {
	val, err := s.redisClient.Get(ctx, s.redisClient.KeyBuilder.KeyTotal())
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load visitor total: %w", err)
	}

	total, parseErr := strconv.ParseInt(val, 10, 64)
	if parseErr != nil {
		s.logger.WithFields(map[string]interface{}{
			"value": val,
		}).Warn("Stored visitor total is not numeric, starting from zero")
		return 0, nil
	}
	return total, nil
}

// SaveTotal persists the lifetime total with no expiry
func (s *counterStore) SaveTotal(ctx context.Context, total int64) error {
	if err := s.redisClient.Set(ctx, s.redisClient.KeyBuilder.KeyTotal(), total, 0); err != nil {
		return fmt.Errorf("failed to save visitor total: %w", err)
	}
	return nil
}

// IncrementTotal atomically bumps the lifetime total
func (s *counterStore) IncrementTotal(ctx context.Context) (int64, error) {
	total, err := s.redisClient.Incr(ctx, s.redisClient.KeyBuilder.KeyTotal())
	if err != nil {
		return 0, fmt.Errorf("failed to increment visitor total: %w", err)
	}
	return total, nil
}

// IsSeen reports whether the durable seen-marker exists for the id
func (s *counterStore) IsSeen(ctx context.Context, visitorID string) (bool, error) {
	n, err := s.redisClient.Exists(ctx, s.redisClient.KeyBuilder.KeySeen(visitorID))
	if err != nil {
		return false, fmt.Errorf("failed to check seen marker: %w", err)
	}
	return n > 0, nil
}

// MarkSeen durably records the seen-marker for the id. No expiry: the
// marker is permanent so the total never double-counts an id.
func (s *counterStore) MarkSeen(ctx context.Context, visitorID string) error {
	if err := s.redisClient.Set(ctx, s.redisClient.KeyBuilder.KeySeen(visitorID), 1, 0); err != nil {
		return fmt.Errorf("failed to mark visitor as seen: %w", err)
	}
	return nil
}
