package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"presence-be/internal/domain"
	"presence-be/internal/repository"
	"presence-be/pkg/logger"
)

// ErrNotStarted is returned when a heartbeat or query arrives before Start
// has completed
var ErrNotStarted = errors.New("presence service not started")

// presenceService tracks online visitors and the lifetime unique total.
//
// The durable store is authoritative for the total and the seen-markers;
// the active map and seen-cache live only for the process lifetime. The
// mutex serializes the whole seen-check-then-increment sequence so the
// total is bumped at most once per id even under concurrent heartbeats.
type presenceService struct {
	store     repository.CounterStore
	snapshots repository.SnapshotRepository // nil when Postgres is not configured
	logger    *logger.Logger

	ttl              time.Duration
	snapshotInterval time.Duration
	nowFn            func() time.Time

	mu          sync.Mutex
	active      map[string]time.Time // visitor id -> last heartbeat
	seenCache   map[string]struct{}
	total       int64
	initialized bool

	snapshotTicker *time.Ticker
	stopSnapshot   chan struct{}
	isRunning      bool
}

// NewPresenceService creates a new presence service. snapshots may be nil,
// in which case the service runs Redis-only.
func NewPresenceService(store repository.CounterStore, snapshots repository.SnapshotRepository, logger *logger.Logger, ttlSeconds, snapshotIntervalSeconds int) PresenceService {
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	return &presenceService{
		store:            store,
		snapshots:        snapshots,
		logger:           logger,
		ttl:              time.Duration(ttlSeconds) * time.Second,
		snapshotInterval: time.Duration(snapshotIntervalSeconds) * time.Second,
		nowFn:            time.Now,
		active:           make(map[string]time.Time),
		seenCache:        make(map[string]struct{}),
		stopSnapshot:     make(chan struct{}),
	}
}

// Start loads the persisted total and begins the periodic snapshot routine.
// Readers and writers are rejected until it returns.
func (s *presenceService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	total, err := s.store.LoadTotal(ctx)
	if err != nil {
		return fmt.Errorf("failed to load visitor total: %w", err)
	}

	// The store is authoritative. A zero total with a configured snapshot
	// repository means Redis may have been wiped, so reseed from the
	// latest Postgres snapshot.
	if total == 0 && s.snapshots != nil {
		restored, restoreErr := s.restoreFromSnapshot(ctx)
		if restoreErr != nil {
			s.logger.WithError(restoreErr).Warn("Failed to restore from snapshot, continuing with fresh counter")
		} else if restored > 0 {
			total = restored
		}
	}

	s.total = total
	s.initialized = true

	if s.snapshots != nil {
		s.snapshotTicker = time.NewTicker(s.snapshotInterval)
		go s.snapshotRoutine(ctx)
	}

	s.isRunning = true
	s.logger.WithFields(map[string]interface{}{
		"total_visitors": total,
		"ttl_seconds":    int(s.ttl.Seconds()),
	}).Info("Presence service started")
	return nil
}

// Stop gracefully shuts down the service
func (s *presenceService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	if s.snapshotTicker != nil {
		s.snapshotTicker.Stop()
		close(s.stopSnapshot)
	}
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.saveSnapshot(ctx); err != nil {
			s.logger.WithError(err).Error("Failed to save final snapshot during shutdown")
		}
	}

	s.logger.Info("Presence service stopped")
	return nil
}

// Heartbeat records activity for a visitor id, prunes expired visitors and
// returns the lifetime total. The id must already be validated.
//
// Ordering matters for crash consistency: the seen-marker is durably
// written before the total is incremented, so a crash between the two
// under-counts that id but never double-counts it on replay.
func (s *presenceService) Heartbeat(ctx context.Context, visitorID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return 0, ErrNotStarted
	}

	now := s.nowFn()
	s.active[visitorID] = now
	s.pruneActive(now)

	if _, cached := s.seenCache[visitorID]; !cached {
		seen, err := s.store.IsSeen(ctx, visitorID)
		if err != nil {
			return 0, err
		}
		if !seen {
			if err := s.store.MarkSeen(ctx, visitorID); err != nil {
				return 0, err
			}
			total, err := s.store.IncrementTotal(ctx)
			if err != nil {
				return 0, err
			}
			s.total = total
			s.logger.WithFields(map[string]interface{}{
				"total_visitors": total,
			}).Debug("New unique visitor counted")
		}
		// Cache regardless so repeat heartbeats skip the storage round-trip
		s.seenCache[visitorID] = struct{}{}
	}

	return s.total, nil
}

// Online prunes expired visitors and reports the current presence state
func (s *presenceService) Online(ctx context.Context) (*domain.OnlineSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotStarted
	}

	s.pruneActive(s.nowFn())

	return &domain.OnlineSnapshot{
		Online:        len(s.active),
		TotalVisitors: s.total,
		WindowSeconds: int(s.ttl.Seconds()),
	}, nil
}

// pruneActive removes every visitor whose last heartbeat is older than the
// TTL window. Callers must hold the mutex.
func (s *presenceService) pruneActive(now time.Time) {
	threshold := now.Add(-s.ttl)
	for id, lastSeen := range s.active {
		if lastSeen.Before(threshold) {
			delete(s.active, id)
		}
	}
}

// restoreFromSnapshot seeds the store from the latest Postgres snapshot.
// Returns the restored total, 0 when no snapshot exists.
func (s *presenceService) restoreFromSnapshot(ctx context.Context) (int64, error) {
	snapshot, err := s.snapshots.GetLatestSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	if snapshot == nil {
		s.logger.Info("No presence snapshot found, starting with zero counter")
		return 0, nil
	}

	if err := s.store.SaveTotal(ctx, snapshot.TotalVisitors); err != nil {
		return 0, fmt.Errorf("failed to restore total to store: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"total_visitors": snapshot.TotalVisitors,
		"snapshot_date":  snapshot.SnapshotDate,
	}).Info("Restored visitor total from snapshot")

	return snapshot.TotalVisitors, nil
}

// saveSnapshot saves current counter state to PostgreSQL
func (s *presenceService) saveSnapshot(ctx context.Context) error {
	s.mu.Lock()
	now := s.nowFn()
	s.pruneActive(now)
	snapshot := &domain.PresenceSnapshot{
		TotalVisitors: s.total,
		OnlineCount:   int64(len(s.active)),
		SnapshotDate:  now,
		CreatedAt:     now,
	}
	s.mu.Unlock()

	if err := s.snapshots.CreateSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"total_visitors": snapshot.TotalVisitors,
		"online_count":   snapshot.OnlineCount,
	}).Debug("Presence snapshot saved")

	return nil
}

// snapshotRoutine runs periodic snapshots until Stop
func (s *presenceService) snapshotRoutine(ctx context.Context) {
	for {
		select {
		case <-s.snapshotTicker.C:
			if err := s.saveSnapshot(ctx); err != nil {
				s.logger.WithError(err).Error("Failed to save periodic snapshot")
			}
		case <-s.stopSnapshot:
			s.logger.Debug("Snapshot routine stopped")
			return
		case <-ctx.Done():
			s.logger.Debug("Snapshot routine cancelled")
			return
		}
	}
}
