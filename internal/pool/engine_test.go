package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/solana"
)

func testPoolState() *domain.PoolState {
	return &domain.PoolState{
		PoolAddress:  "pooladdr111",
		LpSupply:     d("1000000"),
		BaseReserve:  d("100"),
		TokenReserve: d("1000"),
		TokenPrice:   d("0.1"),
	}
}

func TestEngine_Initialize(t *testing.T) {
	source := &StaticSource{PoolState: testPoolState()}
	engine := NewEngine(source)
	ctx := context.Background()

	if engine.IsInitialized() {
		t.Error("engine should start uninitialized")
	}

	if !engine.Initialize(ctx) {
		t.Fatal("Initialize should succeed")
	}
	if !engine.IsInitialized() {
		t.Error("engine should be initialized")
	}

	// Idempotent: a second call succeeds without refetching.
	fetches := source.FetchCount()
	if !engine.Initialize(ctx) {
		t.Error("repeated Initialize should succeed")
	}
	if source.FetchCount() != fetches {
		t.Errorf("repeated Initialize refetched state: %d -> %d", fetches, source.FetchCount())
	}
}

func TestEngine_Initialize_Failure(t *testing.T) {
	source := &StaticSource{PoolState: testPoolState(), Err: errors.New("rpc down")}
	engine := NewEngine(source)

	if engine.Initialize(context.Background()) {
		t.Error("Initialize should report failure")
	}
	if engine.IsInitialized() {
		t.Error("engine must stay uninitialized after failure")
	}

	// Recovers once the source comes back.
	source.SetErr(nil)
	if !engine.Initialize(context.Background()) {
		t.Error("Initialize should succeed after source recovery")
	}
}

func TestEngine_Quote_RequiresInitialization(t *testing.T) {
	engine := NewEngine(&StaticSource{PoolState: testPoolState()})

	_, err := engine.Quote(context.Background(), d("1"), 100)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}

	_, err = engine.State(context.Background())
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("State: expected ErrNotInitialized, got %v", err)
	}
}

func TestEngine_Quote_InvalidAmount(t *testing.T) {
	engine := NewEngine(&StaticSource{PoolState: testPoolState()})
	ctx := context.Background()
	engine.Initialize(ctx)

	for _, amount := range []string{"0", "-5"} {
		if _, err := engine.Quote(ctx, d(amount), 100); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestEngine_Quote(t *testing.T) {
	source := &StaticSource{PoolState: testPoolState()}
	engine := NewEngine(source, WithFeeBps(0))
	ctx := context.Background()
	engine.Initialize(ctx)

	fetches := source.FetchCount()

	q, err := engine.Quote(ctx, d("10"), 0)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if source.FetchCount() != fetches+1 {
		t.Error("Quote must refresh pool state first")
	}

	wantOut := d("1000").Mul(d("10")).Div(d("110"))
	if !q.AmountOut.Equal(wantOut) {
		t.Errorf("amount out: got %s, want %s", q.AmountOut, wantOut)
	}
	if q.PriceImpact <= 0 || q.PriceImpact >= 1 {
		t.Errorf("impact out of (0,1): %v", q.PriceImpact)
	}
}

func TestEngine_Quote_SlippageTolerance(t *testing.T) {
	source := &StaticSource{PoolState: testPoolState()}
	engine := NewEngine(source, WithFeeBps(0))
	ctx := context.Background()
	engine.Initialize(ctx)

	full, err := engine.Quote(ctx, d("10"), 0)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// 100 bps tolerance: minimum out is 99% of the raw quote.
	min, err := engine.Quote(ctx, d("10"), 100)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	want := full.AmountOut.Mul(d("0.99"))
	if !min.AmountOut.Equal(want) {
		t.Errorf("min out: got %s, want %s", min.AmountOut, want)
	}
}

func TestEngine_Refresh_PropagatesSourceError(t *testing.T) {
	source := &StaticSource{PoolState: testPoolState()}
	engine := NewEngine(source)
	ctx := context.Background()
	engine.Initialize(ctx)

	source.SetErr(errors.New("rpc down"))
	if err := engine.Refresh(ctx); err == nil {
		t.Error("expected refresh error")
	}

	// Last good state survives a failed refresh.
	state, err := engine.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if !state.BaseReserve.Equal(d("100")) {
		t.Errorf("state lost after failed refresh: %s", state.BaseReserve)
	}
}

// fakeWS is a WSClient feeding canned notifications.
type fakeWS struct {
	ch chan solana.AccountNotification
}

func (f *fakeWS) SubscribeAccount(_ context.Context, _ string) (<-chan solana.AccountNotification, error) {
	return f.ch, nil
}

func (f *fakeWS) Close() error { return nil }

func TestWatcher_RefreshesOnNotification(t *testing.T) {
	source := &StaticSource{PoolState: testPoolState()}
	engine := NewEngine(source)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Initialize(ctx)
	fetches := source.FetchCount()

	ws := &fakeWS{ch: make(chan solana.AccountNotification, 1)}
	watcher := NewWatcher(ws, engine, "pooladdr111")

	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx)
	}()

	ws.ch <- solana.AccountNotification{Pubkey: "pooladdr111", Slot: 42}

	// Wait for the refresh to land.
	deadline := time.After(2 * time.Second)
	for source.FetchCount() <= fetches {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for refresh")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
