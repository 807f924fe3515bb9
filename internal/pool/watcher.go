package pool

import (
	"context"
	"fmt"
	"log"

	"solana-paper-trading/internal/observability"
	"solana-paper-trading/internal/solana"
)

// Watcher keeps the engine state fresh by refreshing on every on-chain
// change of the pool account.
type Watcher struct {
	ws          solana.WSClient
	engine      *Engine
	poolAddress string
}

// NewWatcher creates a pool account watcher.
func NewWatcher(ws solana.WSClient, engine *Engine, poolAddress string) *Watcher {
	return &Watcher{
		ws:          ws,
		engine:      engine,
		poolAddress: poolAddress,
	}
}

// Run subscribes to the pool account and refreshes the engine on each
// notification. Blocks until the context is cancelled or the
// subscription channel closes.
func (w *Watcher) Run(ctx context.Context) error {
	ch, err := w.ws.SubscribeAccount(ctx, w.poolAddress)
	if err != nil {
		return fmt.Errorf("subscribe pool account: %w", err)
	}

	log.Printf("[pool] watching account %s", w.poolAddress)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-ch:
			if !ok {
				return fmt.Errorf("pool subscription closed")
			}
			err := w.engine.Refresh(ctx)
			observability.RecordPoolRefresh(err)
			if err != nil {
				log.Printf("[pool] refresh after slot %d failed: %v", notif.Slot, err)
			}
		}
	}
}
