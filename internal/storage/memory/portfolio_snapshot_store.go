package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// PortfolioSnapshotStore is an in-memory implementation of storage.PortfolioSnapshotStore.
type PortfolioSnapshotStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.PortfolioSnapshot
}

// NewPortfolioSnapshotStore creates a new in-memory portfolio snapshot store.
func NewPortfolioSnapshotStore() *PortfolioSnapshotStore {
	return &PortfolioSnapshotStore{
		nextID: 1,
		data:   make(map[int64]*domain.PortfolioSnapshot),
	}
}

// Compile-time interface check.
var _ storage.PortfolioSnapshotStore = (*PortfolioSnapshotStore)(nil)

// Insert adds a new snapshot and returns its assigned ID.
func (s *PortfolioSnapshotStore) Insert(_ context.Context, snap *domain.PortfolioSnapshot) (int64, error) {
	if snap == nil || snap.PortfolioID == 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap.ID = s.nextID
	s.nextID++
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	cp := *snap
	s.data[snap.ID] = &cp
	return snap.ID, nil
}

// ListByPortfolio retrieves snapshots for a portfolio ordered by creation time ASC.
func (s *PortfolioSnapshotStore) ListByPortfolio(_ context.Context, portfolioID int64) ([]*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PortfolioSnapshot
	for _, snap := range s.data {
		if snap.PortfolioID == portfolioID {
			cp := *snap
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
