package memory

import (
	"context"
	"sync"
	"time"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// PoolStateStore is an in-memory implementation of storage.PoolStateStore.
type PoolStateStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.PoolState
}

// NewPoolStateStore creates a new in-memory pool state store.
func NewPoolStateStore() *PoolStateStore {
	return &PoolStateStore{
		nextID: 1,
		data:   make(map[int64]*domain.PoolState),
	}
}

// Compile-time interface check.
var _ storage.PoolStateStore = (*PoolStateStore)(nil)

// Insert adds a new pool state snapshot and returns its assigned ID.
func (s *PoolStateStore) Insert(_ context.Context, ps *domain.PoolState) (int64, error) {
	if ps == nil || ps.PoolAddress == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps.ID = s.nextID
	s.nextID++
	if ps.CreatedAt.IsZero() {
		ps.CreatedAt = time.Now().UTC()
	}

	cp := *ps
	s.data[ps.ID] = &cp
	return ps.ID, nil
}

// GetByID retrieves a pool state by its ID. Returns ErrNotFound if not exists.
func (s *PoolStateStore) GetByID(_ context.Context, poolStateID int64) (*domain.PoolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps, exists := s.data[poolStateID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *ps
	return &cp, nil
}
