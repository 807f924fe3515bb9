package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// QuoteArchive implements storage.QuoteArchive using ClickHouse.
// Writes are best-effort: the oracle logs and swallows archive failures,
// so a ClickHouse outage never blocks price resolution.
type QuoteArchive struct {
	conn *Conn
}

// NewQuoteArchive creates a new QuoteArchive.
func NewQuoteArchive(conn *Conn) *QuoteArchive {
	return &QuoteArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.QuoteArchive = (*QuoteArchive)(nil)

// Insert archives a resolved quote for a token.
func (a *QuoteArchive) Insert(ctx context.Context, token string, q *domain.PriceQuote) error {
	if token == "" || q == nil {
		return storage.ErrInvalidInput
	}

	price, _ := q.Price.Float64()

	err := a.conn.Exec(ctx, `
		INSERT INTO price_quotes (token, price, confidence, source, quoted_at)
		VALUES (?, ?, ?, ?, ?)
	`, token, price, q.Confidence, q.Source, q.Timestamp.UTC().Truncate(time.Millisecond))
	if err != nil {
		return fmt.Errorf("insert price quote: %w", err)
	}

	return nil
}
