package price

import (
	"context"
	"errors"
	"time"

	"solana-paper-trading/internal/domain"
)

// ErrUpstreamUnavailable is returned when every configured price source
// failed to produce a quote.
var ErrUpstreamUnavailable = errors.New("no price source available")

// Source resolves prices for a token from one upstream provider.
// Implementations perform a single attempt per call; retry policy lives
// in the oracle fallback chain.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Price resolves the current price of a token.
	Price(ctx context.Context, token string) (*domain.PriceQuote, error)

	// HistoricalPrice resolves the price of a token at a point in time.
	HistoricalPrice(ctx context.Context, token string, at time.Time) (*domain.PriceQuote, error)

	// PriceHistory resolves hourly prices within [start, end].
	PriceHistory(ctx context.Context, token string, start, end time.Time) ([]*domain.PriceQuote, error)
}
