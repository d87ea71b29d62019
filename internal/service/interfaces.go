package service

import (
	"context"

	"presence-be/internal/domain"
)

// PresenceService defines the operations of the visitor-presence counter
type PresenceService interface {
	// Start loads the persisted total and begins periodic snapshots.
	// Must complete before any heartbeat or query is processed.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the service, saving a final snapshot
	Stop(ctx context.Context) error

	// Heartbeat records activity for a visitor id and returns the lifetime
	// unique-visitor total after applying it
	Heartbeat(ctx context.Context, visitorID string) (int64, error)

	// Online prunes expired visitors and reports the current presence state
	Online(ctx context.Context) (*domain.OnlineSnapshot, error)
}
