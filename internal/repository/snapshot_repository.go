package repository

import (
	"context"
	"fmt"

	"presence-be/internal/domain"
	"presence-be/pkg/database"

	"github.com/jackc/pgx/v5"
)

// snapshotRepository handles presence snapshot operations with PostgreSQL
type snapshotRepository struct {
	db *database.PostgresDB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.PostgresDB) SnapshotRepository {
	return &snapshotRepository{
		db: db,
	}
}

// CreateSnapshot upserts a snapshot for its date
func (r *snapshotRepository) CreateSnapshot(ctx context.Context, snapshot *domain.PresenceSnapshot) error {
	query := `
		INSERT INTO presence_snapshots (total_visitors, online_count, snapshot_date, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_visitors = EXCLUDED.total_visitors,
			online_count = EXCLUDED.online_count,
			created_at = EXCLUDED.created_at
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		snapshot.TotalVisitors,
		snapshot.OnlineCount,
		snapshot.SnapshotDate,
		snapshot.CreatedAt,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create presence snapshot: %w", err)
	}

	return nil
}

// GetLatestSnapshot retrieves the most recent presence snapshot
func (r *snapshotRepository) GetLatestSnapshot(ctx context.Context) (*domain.PresenceSnapshot, error) {
	query := `
		SELECT id, total_visitors, online_count, snapshot_date, created_at
		FROM presence_snapshots
		ORDER BY snapshot_date DESC, created_at DESC
		LIMIT 1
	`

	snapshot := &domain.PresenceSnapshot{}
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&snapshot.ID,
		&snapshot.TotalVisitors,
		&snapshot.OnlineCount,
		&snapshot.SnapshotDate,
		&snapshot.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			// No snapshots exist yet, return nil without error
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest presence snapshot: %w", err)
	}

	return snapshot, nil
}
