package memory

import (
	"context"
	"sync"
	"time"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// Ledger implements storage.Ledger over the in-memory stores.
// ExecuteTrade serializes per portfolio with a dedicated mutex, the
// in-memory equivalent of the row-level lock the postgres backend takes.
type Ledger struct {
	portfolios *PortfolioStore
	trades     *TradeStore
	snapshots  *PortfolioSnapshotStore

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewLedger creates a ledger over the given in-memory stores.
func NewLedger(portfolios *PortfolioStore, trades *TradeStore, snapshots *PortfolioSnapshotStore) *Ledger {
	return &Ledger{
		portfolios: portfolios,
		trades:     trades,
		snapshots:  snapshots,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// Compile-time interface check.
var _ storage.Ledger = (*Ledger)(nil)

// portfolioLock returns the serialization mutex for one portfolio.
func (l *Ledger) portfolioLock(portfolioID int64) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()

	mu, ok := l.locks[portfolioID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[portfolioID] = mu
	}
	return mu
}

// CreatePortfolio inserts the portfolio together with its initial snapshot.
func (l *Ledger) CreatePortfolio(_ context.Context, p *domain.Portfolio, snap *domain.PortfolioSnapshot) (int64, error) {
	if p == nil || p.WalletAddress == "" {
		return 0, storage.ErrInvalidInput
	}

	now := time.Now().UTC()
	p.CurrentBalanceBase = p.InitialBalanceBase
	p.CurrentBalanceToken = p.InitialBalanceToken
	p.CreatedAt = now
	p.UpdatedAt = now

	id := l.portfolios.insert(p)

	if snap != nil {
		snap.PortfolioID = id
		snap.CreatedAt = now
		if _, err := l.snapshots.Insert(context.Background(), snap); err != nil {
			return 0, err
		}
	}

	return id, nil
}

// ExecuteTrade atomically inserts the EXECUTED trade and applies the
// balance deltas, holding the portfolio mutex for the whole
// read-compute-write sequence.
func (l *Ledger) ExecuteTrade(_ context.Context, t *domain.Trade) (*domain.Trade, error) {
	if t == nil || t.PortfolioID == 0 || !t.Direction.IsValid() {
		return nil, storage.ErrInvalidInput
	}

	mu := l.portfolioLock(t.PortfolioID)
	mu.Lock()
	defer mu.Unlock()

	p, err := l.portfolios.GetByID(context.Background(), t.PortfolioID)
	if err != nil {
		return nil, err
	}

	newBase, newToken := p.CurrentBalanceBase, p.CurrentBalanceToken
	switch t.Direction {
	case domain.DirectionBuy:
		newBase = newBase.Sub(t.AmountIn)
		newToken = newToken.Add(t.AmountOut)
	case domain.DirectionSell:
		newToken = newToken.Sub(t.AmountIn)
		newBase = newBase.Add(t.AmountOut)
	}

	if newBase.IsNegative() || newToken.IsNegative() {
		return nil, storage.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	stored := *t
	stored.Status = domain.TradeStatusExecuted
	stored.CreatedAt = now
	stored.ExecutedAt = &now

	l.trades.insert(&stored)

	p.CurrentBalanceBase = newBase
	p.CurrentBalanceToken = newToken
	p.TotalPnl = p.TotalPnl.Add(t.Pnl)
	p.TotalFees = p.TotalFees.Add(t.Fee)
	p.TradesCount++
	if t.Pnl.IsPositive() {
		p.WinningTradesCount++
	}
	p.UpdatedAt = now
	l.portfolios.update(p)

	return &stored, nil
}

// RecordFailedTrade inserts a trade row with status FAILED and no balance mutation.
func (l *Ledger) RecordFailedTrade(_ context.Context, t *domain.Trade) (*domain.Trade, error) {
	if t == nil || t.PortfolioID == 0 {
		return nil, storage.ErrInvalidInput
	}

	stored := *t
	stored.Status = domain.TradeStatusFailed
	stored.ExecutedAt = nil
	stored.CreatedAt = time.Now().UTC()

	l.trades.insert(&stored)
	return &stored, nil
}
