package price

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/observability"
)

// fakeSource returns canned quotes or a fixed error.
type fakeSource struct {
	name  string
	quote *domain.PriceQuote
	err   error
	calls int
}

func (f *fakeSource) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeSource) Price(_ context.Context, _ string) (*domain.PriceQuote, error) {
	f.calls++
	return f.quote, f.err
}

func (f *fakeSource) HistoricalPrice(_ context.Context, _ string, at time.Time) (*domain.PriceQuote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.quote == nil {
		return nil, nil
	}
	q := *f.quote
	q.Timestamp = at
	return &q, nil
}

func (f *fakeSource) PriceHistory(_ context.Context, _ string, _, _ time.Time) ([]*domain.PriceQuote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.quote == nil {
		return nil, nil
	}
	return []*domain.PriceQuote{f.quote}, nil
}

// fakeArchive records inserted quotes and can be made to fail.
type fakeArchive struct {
	inserted int
	err      error
}

func (a *fakeArchive) Insert(_ context.Context, _ string, _ *domain.PriceQuote) error {
	a.inserted++
	return a.err
}

func TestOracle_Price_FirstSuccessWins(t *testing.T) {
	failing := &fakeSource{err: errors.New("rate limited")}
	working := &fakeSource{quote: &domain.PriceQuote{
		Price:      decimal.RequireFromString("0.000042"),
		Timestamp:  time.Now().UTC(),
		Confidence: 0.9,
		Source:     "birdeye",
	}}
	unused := &fakeSource{quote: &domain.PriceQuote{Price: decimal.NewFromInt(99)}}

	oracle := NewOracle([]Source{failing, working, unused})

	q, err := oracle.Price(context.Background(), "BABA")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("0.000042")) {
		t.Errorf("unexpected price: %s", q.Price)
	}
	if q.Source != "birdeye" {
		t.Errorf("unexpected source: %s", q.Source)
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("unexpected call counts: failing=%d working=%d", failing.calls, working.calls)
	}
	if unused.calls != 0 {
		t.Errorf("later sources must not be called after a success, got %d calls", unused.calls)
	}
}

func TestOracle_Price_AllSourcesFail(t *testing.T) {
	boom := errors.New("upstream down")
	counter := observability.DefaultMetrics.PriceSourceFailures.WithLabelValues("flaky")
	before := testutil.ToFloat64(counter)

	oracle := NewOracle([]Source{
		&fakeSource{name: "flaky", err: errors.New("first failure")},
		&fakeSource{name: "flaky", err: boom},
	})

	_, err := oracle.Price(context.Background(), "BABA")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected last source error to be wrapped, got %v", err)
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("source failure counter: got +%v, want +2", got)
	}
}

func TestOracle_Price_NoSources(t *testing.T) {
	oracle := NewOracle(nil)

	_, err := oracle.Price(context.Background(), "BABA")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestOracle_DevMode(t *testing.T) {
	// Sources must never be touched in dev mode.
	src := &fakeSource{err: errors.New("should not be called")}
	oracle := NewOracle([]Source{src}, WithDevMode(true))
	ctx := context.Background()

	q, err := oracle.Price(ctx, "BABA")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !q.Price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("dev price: got %s, want 1", q.Price)
	}
	if q.Confidence != 0.95 {
		t.Errorf("dev confidence: got %v, want 0.95", q.Confidence)
	}
	if q.Source != "aggregated-dev" {
		t.Errorf("dev source: got %s", q.Source)
	}

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	hq, err := oracle.HistoricalPrice(ctx, "BABA", at)
	if err != nil {
		t.Fatalf("HistoricalPrice: %v", err)
	}
	if !hq.Timestamp.Equal(at) {
		t.Errorf("dev historical timestamp: got %v, want %v", hq.Timestamp, at)
	}

	if src.calls != 0 {
		t.Errorf("sources called in dev mode: %d", src.calls)
	}
}

func TestOracle_DevMode_PriceHistoryHourlySteps(t *testing.T) {
	oracle := NewOracle(nil, WithDevMode(true))

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Hour)

	quotes, err := oracle.PriceHistory(context.Background(), "BABA", start, end)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}

	// Inclusive hourly steps: 00:00 through 05:00.
	if len(quotes) != 6 {
		t.Fatalf("expected 6 hourly quotes, got %d", len(quotes))
	}
	for i, q := range quotes {
		want := start.Add(time.Duration(i) * time.Hour)
		if !q.Timestamp.Equal(want) {
			t.Errorf("quote %d timestamp: got %v, want %v", i, q.Timestamp, want)
		}
		if !q.Price.Equal(decimal.NewFromInt(1)) {
			t.Errorf("quote %d price: got %s, want 1", i, q.Price)
		}
	}
}

func TestOracle_Price_ArchiveBestEffort(t *testing.T) {
	working := &fakeSource{quote: &domain.PriceQuote{
		Price:     decimal.NewFromInt(2),
		Timestamp: time.Now().UTC(),
		Source:    "birdeye",
	}}
	archive := &fakeArchive{err: errors.New("clickhouse down")}

	oracle := NewOracle([]Source{working}, WithArchive(archive))

	// Archive failure must not fail the price call.
	q, err := oracle.Price(context.Background(), "BABA")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !q.Price.Equal(decimal.NewFromInt(2)) {
		t.Errorf("unexpected price: %s", q.Price)
	}
	if archive.inserted != 1 {
		t.Errorf("expected 1 archive attempt, got %d", archive.inserted)
	}
}
