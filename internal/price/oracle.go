package price

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/observability"
	"solana-paper-trading/internal/storage"
)

// devSource marks quotes produced by the development-mode bypass.
const devSource = "aggregated-dev"

// devConfidence is the fixed confidence reported in development mode.
const devConfidence = 0.95

// DefaultCallTimeout bounds a single source call made by the oracle.
const DefaultCallTimeout = 10 * time.Second

// Oracle resolves prices through an ordered fallback chain of sources.
// The first source to return a non-empty result wins; per-source failures
// are logged and swallowed. When every source fails, the last error is
// returned wrapped in ErrUpstreamUnavailable.
type Oracle struct {
	sources []Source
	devMode bool
	timeout time.Duration
	archive storage.QuoteArchive
}

// OracleOption configures Oracle.
type OracleOption func(*Oracle)

// WithDevMode enables the development-mode bypass: every query resolves
// to price 1 without touching any upstream.
func WithDevMode(enabled bool) OracleOption {
	return func(o *Oracle) {
		o.devMode = enabled
	}
}

// WithCallTimeout bounds each individual source call.
func WithCallTimeout(d time.Duration) OracleOption {
	return func(o *Oracle) {
		o.timeout = d
	}
}

// WithArchive attaches a best-effort quote archive. Archive failures are
// logged and never block price resolution.
func WithArchive(a storage.QuoteArchive) OracleOption {
	return func(o *Oracle) {
		o.archive = a
	}
}

// NewOracle creates an oracle over an ordered list of sources.
func NewOracle(sources []Source, opts ...OracleOption) *Oracle {
	o := &Oracle{
		sources: sources,
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// devQuote builds the fixed development-mode quote.
func devQuote(ts time.Time) *domain.PriceQuote {
	return &domain.PriceQuote{
		Price:      decimal.NewFromInt(1),
		Timestamp:  ts,
		Confidence: devConfidence,
		Source:     devSource,
	}
}

// Price resolves the current price of a token.
func (o *Oracle) Price(ctx context.Context, token string) (*domain.PriceQuote, error) {
	if o.devMode {
		q := devQuote(time.Now().UTC())
		o.archiveQuote(ctx, token, q)
		return q, nil
	}

	var lastErr error
	for _, src := range o.sources {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		q, err := src.Price(callCtx, token)
		cancel()

		if err != nil {
			log.Printf("[price] source %s failed for %s: %v", src.Name(), token, err)
			observability.RecordPriceSourceFailure(src.Name())
			lastErr = err
			continue
		}
		if q != nil {
			o.archiveQuote(ctx, token, q)
			return q, nil
		}
	}

	return nil, o.exhausted(lastErr)
}

// HistoricalPrice resolves the price of a token at a point in time.
func (o *Oracle) HistoricalPrice(ctx context.Context, token string, at time.Time) (*domain.PriceQuote, error) {
	if o.devMode {
		return devQuote(at), nil
	}

	var lastErr error
	for _, src := range o.sources {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		q, err := src.HistoricalPrice(callCtx, token, at)
		cancel()

		if err != nil {
			log.Printf("[price] historical source %s failed for %s: %v", src.Name(), token, err)
			observability.RecordPriceSourceFailure(src.Name())
			lastErr = err
			continue
		}
		if q != nil {
			return q, nil
		}
	}

	return nil, o.exhausted(lastErr)
}

// PriceHistory resolves hourly prices within [start, end].
func (o *Oracle) PriceHistory(ctx context.Context, token string, start, end time.Time) ([]*domain.PriceQuote, error) {
	if o.devMode {
		var quotes []*domain.PriceQuote
		for current := start; !current.After(end); current = current.Add(time.Hour) {
			quotes = append(quotes, devQuote(current))
		}
		return quotes, nil
	}

	var lastErr error
	for _, src := range o.sources {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		quotes, err := src.PriceHistory(callCtx, token, start, end)
		cancel()

		if err != nil {
			log.Printf("[price] history source %s failed for %s: %v", src.Name(), token, err)
			observability.RecordPriceSourceFailure(src.Name())
			lastErr = err
			continue
		}
		if len(quotes) > 0 {
			return quotes, nil
		}
	}

	return nil, o.exhausted(lastErr)
}

// archiveQuote writes a resolved quote to the archive, best-effort.
func (o *Oracle) archiveQuote(ctx context.Context, token string, q *domain.PriceQuote) {
	if o.archive == nil {
		return
	}
	if err := o.archive.Insert(ctx, token, q); err != nil {
		log.Printf("[price] archive quote for %s: %v", token, err)
	}
}

// exhausted wraps the last source error in ErrUpstreamUnavailable.
func (o *Oracle) exhausted(lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, lastErr)
	}
	return ErrUpstreamUnavailable
}
