package repository

import (
	"context"

	"presence-be/internal/domain"
)

// CounterStore defines the durable key-value operations backing the
// presence counter. The store is authoritative across restarts; callers
// keep in-memory caches purely as an optimization.
type CounterStore interface {
	// LoadTotal retrieves the persisted lifetime total. A missing or
	// non-numeric value loads as 0 rather than erroring.
	LoadTotal(ctx context.Context) (int64, error)

	// SaveTotal persists the lifetime total under the fixed key
	SaveTotal(ctx context.Context, total int64) error

	// IncrementTotal atomically bumps the lifetime total and returns the
	// new value
	IncrementTotal(ctx context.Context) (int64, error)

	// IsSeen reports whether a durable seen-marker exists for the id
	IsSeen(ctx context.Context, visitorID string) (bool, error)

	// MarkSeen durably records that the id has been counted. Must be
	// persisted before the total is incremented for that id.
	MarkSeen(ctx context.Context, visitorID string) error
}

// SnapshotRepository defines the Postgres snapshot operations used to back
// up counter state
type SnapshotRepository interface {
	// CreateSnapshot upserts a snapshot for its date
	CreateSnapshot(ctx context.Context, snapshot *domain.PresenceSnapshot) error

	// GetLatestSnapshot retrieves the most recent snapshot, or nil if none
	// exists
	GetLatestSnapshot(ctx context.Context) (*domain.PresenceSnapshot, error)
}
