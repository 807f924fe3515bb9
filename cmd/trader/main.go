// Package main provides the paper-trading service:
// - Pool watcher (continuous): WebSocket account updates refresh pool reserves
// - Portfolio snapshots (scheduled): balance + price records for reporting
// - Trade executor wired over Postgres (or in-memory storage for development)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/observability"
	"solana-paper-trading/internal/pool"
	"solana-paper-trading/internal/price"
	"solana-paper-trading/internal/risk"
	"solana-paper-trading/internal/solana"
	"solana-paper-trading/internal/storage"
	chstore "solana-paper-trading/internal/storage/clickhouse"
	"solana-paper-trading/internal/storage/memory"
	"solana-paper-trading/internal/storage/migrations"
	pgstore "solana-paper-trading/internal/storage/postgres"
	"solana-paper-trading/internal/trading"
)

// Server holds all components of the paper-trading service.
type Server struct {
	// Configuration
	wallet           string
	tokenAddress     string
	snapshotInterval time.Duration

	// Components
	executor   *trading.Executor
	oracle     *price.Oracle
	engine     *pool.Engine
	portfolios storage.PortfolioStore
	snapshots  storage.PortfolioSnapshotStore
	logger     *log.Logger

	// State
	mu              sync.Mutex
	started         time.Time
	lastSnapshotRun time.Time
	snapshotRuns    int
}

// stores holds the storage implementations behind the executor.
type stores struct {
	trading trading.Stores
	archive storage.QuoteArchive
}

func main() {
	// Load .env file if exists; system env vars take precedence.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, quote archive)")
	birdeyeKey := flag.String("birdeye-api-key", os.Getenv("BIRDEYE_API_KEY"), "Birdeye API key")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	devMode := flag.Bool("dev-mode", false, "Serve synthetic prices and pool state, no upstream calls")

	poolAddress := flag.String("pool-address", os.Getenv("POOL_ADDRESS"), "AMM pool account address")
	baseVault := flag.String("base-vault", os.Getenv("POOL_BASE_VAULT"), "Pool base-currency vault address")
	tokenVault := flag.String("token-vault", os.Getenv("POOL_TOKEN_VAULT"), "Pool token vault address")
	lpMint := flag.String("lp-mint", os.Getenv("POOL_LP_MINT"), "Pool LP mint address (optional)")
	tokenAddress := flag.String("token-address", os.Getenv("TOKEN_ADDRESS"), "Traded token mint address")
	tokenSymbol := flag.String("token-symbol", "TKN", "Traded token symbol")
	feeBps := flag.Int("fee-bps", pool.DefaultFeeBps, "Pool trade fee in basis points")

	wallet := flag.String("wallet", os.Getenv("WALLET_ADDRESS"), "Owning wallet address (base58)")
	initialBase := flag.String("initial-base", "1", "Initial base-currency balance for a new portfolio")
	initialToken := flag.String("initial-token", "0", "Initial token balance for a new portfolio")

	maxPositionBase := flag.String("max-position-base", "0", "Max BUY size in base currency (0 disables)")
	maxPositionToken := flag.String("max-position-token", "0", "Max SELL size in tokens (0 disables)")
	maxDailyTrades := flag.Int("max-daily-trades", 0, "Max executed trades per UTC day (0 disables)")
	maxDrawdownPct := flag.String("max-drawdown-pct", "0", "Max drawdown percent before trading stops (0 disables)")

	snapshotInterval := flag.Duration("snapshot-interval", 5*time.Minute, "Portfolio snapshot interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[trader] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*devMode {
		if *rpcEndpoint == "" {
			logger.Fatal("--rpc-endpoint is required")
		}
		if *poolAddress == "" || *baseVault == "" || *tokenVault == "" {
			logger.Fatal("--pool-address, --base-vault and --token-vault are required")
		}
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if *wallet == "" {
		logger.Fatal("--wallet is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Price oracle
	var sources []price.Source
	if *birdeyeKey != "" {
		sources = append(sources, price.NewBirdeyeSource(*birdeyeKey))
	}
	oracleOpts := []price.OracleOption{price.WithDevMode(*devMode)}
	if st.archive != nil {
		oracleOpts = append(oracleOpts, price.WithArchive(st.archive))
	}
	oracle := price.NewOracle(sources, oracleOpts...)

	// Pool engine
	var rpc *solana.HTTPClient
	var stateSource pool.StateSource
	if *devMode {
		stateSource = &pool.StaticSource{PoolState: devPoolState(*poolAddress)}
	} else {
		rpc = solana.NewHTTPClient(*rpcEndpoint)
		stateSource = pool.NewRPCStateSource(rpc, pool.PoolAccounts{
			PoolAddress: *poolAddress,
			BaseVault:   *baseVault,
			TokenVault:  *tokenVault,
			LpMint:      *lpMint,
		})
	}
	engine := pool.NewEngine(stateSource, pool.WithFeeBps(*feeBps))
	if !engine.Initialize(ctx) {
		logger.Println("Pool not reachable at startup, will retry on first trade")
	}

	// Risk guard
	guard := risk.NewGuard(risk.Limits{
		MaxPositionBase:  mustDecimal(logger, "max-position-base", *maxPositionBase),
		MaxPositionToken: mustDecimal(logger, "max-position-token", *maxPositionToken),
		MaxDailyTrades:   *maxDailyTrades,
		MaxDrawdownPct:   mustDecimal(logger, "max-drawdown-pct", *maxDrawdownPct),
	})

	// Trade executor
	executor := trading.NewExecutor(trading.Config{
		BaseSymbol:   "SOL",
		TokenSymbol:  *tokenSymbol,
		TokenAddress: *tokenAddress,
	}, st.trading, oracle, engine, guard)

	// Ensure the wallet has a portfolio.
	if err := ensurePortfolio(ctx, executor, st.trading.Portfolios, *wallet,
		mustDecimal(logger, "initial-base", *initialBase),
		mustDecimal(logger, "initial-token", *initialToken), logger); err != nil {
		logger.Fatalf("Failed to prepare portfolio: %v", err)
	}

	// Create server
	server := &Server{
		wallet:           *wallet,
		tokenAddress:     *tokenAddress,
		snapshotInterval: *snapshotInterval,
		executor:         executor,
		oracle:           oracle,
		engine:           engine,
		portfolios:       st.trading.Portfolios,
		snapshots:        st.trading.Snapshots,
		logger:           logger,
		started:          time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Start pool watcher when a WebSocket endpoint is configured.
	if *wsEndpoint != "" && !*devMode {
		go func() {
			if err := runWatcher(ctx, *wsEndpoint, engine, *poolAddress, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("Pool watcher stopped: %v", err)
			}
		}()
	}

	// Run the snapshot loop in the foreground.
	err = server.runSnapshotLoop(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the storage backends and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		portfolios := memory.NewPortfolioStore()
		trades := memory.NewTradeStore()
		snapshots := memory.NewPortfolioSnapshotStore()
		st := &stores{
			trading: trading.Stores{
				Ledger:     memory.NewLedger(portfolios, trades, snapshots),
				Portfolios: portfolios,
				Trades:     trades,
				PoolStates: memory.NewPoolStateStore(),
				Snapshots:  snapshots,
			},
		}
		return st, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	st := &stores{
		trading: trading.Stores{
			Ledger:     pgstore.NewLedger(pool),
			Portfolios: pgstore.NewPortfolioStore(pool),
			Trades:     pgstore.NewTradeStore(pool),
			PoolStates: pgstore.NewPoolStateStore(pool),
			Snapshots:  pgstore.NewPortfolioSnapshotStore(pool),
		},
	}
	cleanup := func() { pool.Close() }

	// ClickHouse quote archive is optional.
	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		st.archive = chstore.NewQuoteArchive(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return st, cleanup, nil
}

// ensurePortfolio creates a portfolio for the wallet unless one exists.
func ensurePortfolio(ctx context.Context, executor *trading.Executor, portfolios storage.PortfolioStore, wallet string, initialBase, initialToken decimal.Decimal, logger *log.Logger) error {
	existing, err := portfolios.GetByWallet(ctx, wallet)
	if err != nil {
		return fmt.Errorf("look up wallet portfolios: %w", err)
	}
	if len(existing) > 0 {
		logger.Printf("Using portfolio %d for wallet %s", existing[0].ID, wallet)
		return nil
	}

	p, err := executor.CreatePortfolio(ctx, wallet, initialBase, initialToken, map[string]any{"created_by": "trader"})
	if err != nil {
		return err
	}
	logger.Printf("Created portfolio %d for wallet %s (base=%s token=%s)",
		p.ID, wallet, initialBase, initialToken)
	return nil
}

// runWatcher connects the WebSocket client and refreshes the pool engine
// on account notifications.
func runWatcher(ctx context.Context, wsEndpoint string, engine *pool.Engine, poolAddress string, logger *log.Logger) error {
	ws, err := solana.NewWSClient(ctx, wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	logger.Printf("Watching pool %s", poolAddress)
	return pool.NewWatcher(ws, engine, poolAddress).Run(ctx)
}

// runSnapshotLoop periodically snapshots every portfolio of the wallet.
func (s *Server) runSnapshotLoop(ctx context.Context) error {
	s.logger.Printf("Starting snapshot loop (interval: %v)...", s.snapshotInterval)

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.snapshotPortfolios(ctx)
		}
	}
}

// snapshotPortfolios writes one snapshot per portfolio at the current price.
func (s *Server) snapshotPortfolios(ctx context.Context) {
	quote, err := s.oracle.Price(ctx, s.tokenAddress)
	if err != nil {
		s.logger.Printf("Snapshot skipped, price unavailable: %v", err)
		return
	}

	portfolios, err := s.portfolios.GetByWallet(ctx, s.wallet)
	if err != nil {
		s.logger.Printf("Snapshot skipped, portfolio lookup failed: %v", err)
		return
	}

	for _, p := range portfolios {
		_, err := s.snapshots.Insert(ctx, &domain.PortfolioSnapshot{
			PortfolioID:   p.ID,
			BalanceBase:   p.CurrentBalanceBase,
			BalanceToken:  p.CurrentBalanceToken,
			TokenPriceUSD: quote.Price,
		})
		if err != nil {
			s.logger.Printf("Snapshot for portfolio %d failed: %v", p.ID, err)
		}
		observability.RecordSnapshot(err)
	}

	s.mu.Lock()
	s.lastSnapshotRun = time.Now()
	s.snapshotRuns++
	s.mu.Unlock()
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Wallet          string    `json:"wallet"`
	PoolInitialized bool      `json:"pool_initialized"`
	LastSnapshotRun time.Time `json:"last_snapshot_run,omitempty"`
	SnapshotRuns    int       `json:"snapshot_runs"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		Wallet:          s.wallet,
		PoolInitialized: s.engine.IsInitialized(),
		LastSnapshotRun: s.lastSnapshotRun,
		SnapshotRuns:    s.snapshotRuns,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// devPoolState returns synthetic reserves for offline development.
func devPoolState(poolAddress string) *domain.PoolState {
	if poolAddress == "" {
		poolAddress = "devpool"
	}
	return &domain.PoolState{
		PoolAddress:  poolAddress,
		LpSupply:     decimal.NewFromInt(1_000_000),
		BaseReserve:  decimal.NewFromInt(1_000),
		TokenReserve: decimal.NewFromInt(1_000_000),
		TokenPrice:   decimal.RequireFromString("0.001"),
	}
}

// mustDecimal parses a decimal flag value or exits.
func mustDecimal(logger *log.Logger, name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		logger.Fatalf("Invalid --%s value %q: %v", name, value, err)
	}
	return d
}
