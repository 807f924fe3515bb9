package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.Trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		nextID: 1,
		data:   make(map[int64]*domain.Trade),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID int64) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *t
	return &cp, nil
}

// ListByPortfolio retrieves trades for a portfolio ordered newest-first,
// with limit/offset pagination.
func (s *TradeStore) ListByPortfolio(_ context.Context, portfolioID int64, limit, offset int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*domain.Trade
	for _, t := range s.data {
		if t.PortfolioID == portfolioID {
			all = append(all, t)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}

	result := make([]*domain.Trade, 0, len(all))
	for _, t := range all {
		cp := *t
		result = append(result, &cp)
	}
	return result, nil
}

// CountSince counts EXECUTED trades created at or after the cutoff.
func (s *TradeStore) CountSince(_ context.Context, portfolioID int64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, t := range s.data {
		if t.PortfolioID == portfolioID && t.Status == domain.TradeStatusExecuted && !t.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Stats computes aggregate statistics over all trades of a portfolio.
func (s *TradeStore) Stats(_ context.Context, portfolioID int64) (*domain.PortfolioStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.PortfolioStats{
		TotalPnl:   decimal.Zero,
		AveragePnl: decimal.Zero,
	}

	for _, t := range s.data {
		if t.PortfolioID != portfolioID {
			continue
		}
		stats.TotalTrades++
		if t.Pnl.IsPositive() {
			stats.WinningTrades++
		}
		stats.TotalPnl = stats.TotalPnl.Add(t.Pnl)
	}

	if stats.TotalTrades > 0 {
		stats.AveragePnl = stats.TotalPnl.Div(decimal.NewFromInt(int64(stats.TotalTrades)))
	}

	return stats, nil
}

// insert adds a trade and assigns its ID. Called by the Ledger.
func (s *TradeStore) insert(t *domain.Trade) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.nextID
	s.nextID++

	cp := *t
	s.data[t.ID] = &cp
	return t.ID
}
