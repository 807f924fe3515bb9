package memory

import (
	"context"
	"sort"
	"sync"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// PortfolioStore is an in-memory implementation of storage.PortfolioStore.
// Shares its data with Ledger; construct both through NewBackend.
type PortfolioStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.Portfolio
}

// NewPortfolioStore creates a new in-memory portfolio store.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		nextID: 1,
		data:   make(map[int64]*domain.Portfolio),
	}
}

// Compile-time interface check.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)

// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(_ context.Context, portfolioID int64) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[portfolioID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *p
	return &cp, nil
}

// GetByWallet retrieves all portfolios owned by a wallet address,
// ordered by creation time ASC.
func (s *PortfolioStore) GetByWallet(_ context.Context, walletAddress string) ([]*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Portfolio
	for _, p := range s.data {
		if p.WalletAddress == walletAddress {
			cp := *p
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

// insert adds a portfolio and assigns its ID. Called by the Ledger with
// the store lock NOT held.
func (s *PortfolioStore) insert(p *domain.Portfolio) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++

	cp := *p
	s.data[p.ID] = &cp
	return p.ID
}

// update replaces a stored portfolio. Called by the Ledger.
func (s *PortfolioStore) update(p *domain.Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.data[p.ID] = &cp
}
