// Package main runs the trading engine service: the pool scanner, the
// copy-trade mirror and the notification dispatcher, with health and
// metrics endpoints.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-trade-engine/internal/aggregator"
	"solana-trade-engine/internal/discovery"
	"solana-trade-engine/internal/executor"
	"solana-trade-engine/internal/mirror"
	"solana-trade-engine/internal/notify"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/referral"
	"solana-trade-engine/internal/scanner"
	"solana-trade-engine/internal/solana"
	"solana-trade-engine/internal/storage"
	chstore "solana-trade-engine/internal/storage/clickhouse"
	"solana-trade-engine/internal/storage/memory"
	"solana-trade-engine/internal/storage/migrations"
	pgstore "solana-trade-engine/internal/storage/postgres"
	"solana-trade-engine/internal/vault"
)

// engineStores holds every storage implementation the service wires.
// fills keeps its concrete type so /status can serve origin totals.
type engineStores struct {
	users   storage.UserStore
	jobs    storage.SnipeJobStore
	subs    storage.SubscriptionStore
	links   storage.ReferralStore
	records storage.SwapRecordStore
	cursors storage.MirrorCursorStore
	fills   *chstore.FillStore
}

func main() {
	// .env is optional; system env vars win.
	_ = godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	aggregatorURL := flag.String("aggregator-url", envOr("AGGREGATOR_URL", aggregator.DefaultBaseURL), "Swap aggregator base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for fill analytics (optional)")
	vaultKeyHex := flag.String("vault-key", os.Getenv("VAULT_KEY"), "Hex-encoded 32-byte wallet encryption key")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":9090"), "HTTP address for health/metrics/status")
	scanInterval := flag.Duration("scan-interval", scanner.DefaultInterval, "Pool scan interval")
	mirrorInterval := flag.Duration("mirror-interval", mirror.DefaultInterval, "Tracked wallet poll interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	vaultKey, err := hex.DecodeString(*vaultKeyHex)
	if err != nil || len(vaultKey) != vault.KeySize {
		logger.Fatalf("--vault-key must be %d hex-encoded bytes", vault.KeySize)
	}
	v, err := vault.New(vaultKey)
	if err != nil {
		logger.Fatalf("init vault: %v", err)
	}
	vault.Zeroize(vaultKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	agg := aggregator.NewHTTPClient(*aggregatorURL)

	dispatcher := notify.NewDispatcher(&notify.LogNotifier{}, notify.Options{})
	defer dispatcher.Stop()

	ledger := referral.NewLedger(referral.Options{
		Links:         stores.links,
		Notifications: dispatcher,
	})

	// A typed nil pointer must not reach the interface field.
	var fillSink storage.FillStore
	if stores.fills != nil {
		fillSink = stores.fills
	}

	exec := executor.New(executor.Options{
		Vault:      v,
		Aggregator: agg,
		RPC:        rpc,
		Users:      stores.users,
		Records:    stores.records,
		Fills:      fillSink,
		Referrals:  ledger,
	})

	poolSource, err := discovery.NewWSPoolSource(ctx, *wsEndpoint, rpc, nil)
	if err != nil {
		logger.Fatalf("connect pool source: %v", err)
	}
	defer poolSource.Close()

	scan := scanner.New(scanner.Options{
		Source:        poolSource,
		Jobs:          stores.jobs,
		Aggregator:    agg,
		Executor:      exec,
		Interval:      *scanInterval,
		Notifications: dispatcher,
	})

	mirrorSvc := mirror.NewService(mirror.Options{
		Subscriptions: stores.subs,
		Cursors:       stores.cursors,
		Users:         stores.users,
		RPC:           rpc,
		Aggregator:    agg,
		Executor:      exec,
		Interval:      *mirrorInterval,
		Notifications: dispatcher,
	})

	started := time.Now()

	// Double signal forces exit; a hung shutdown does too.
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("received second signal %v, forcing exit", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go serveHTTP(*httpAddr, started, *useMemory, stores.fills, logger)

	errCh := make(chan error, 2)
	go func() {
		if err := scan.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("scanner: %w", err)
		} else {
			errCh <- nil
		}
	}()
	go func() {
		if err := mirrorSvc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("mirror: %w", err)
		} else {
			errCh <- nil
		}
	}()

	logger.Println("engine running")

	var runErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && runErr == nil {
			runErr = err
			cancel()
		}
	}
	close(done)

	if runErr != nil {
		logger.Fatalf("engine error: %v", runErr)
	}
	logger.Println("shutdown complete")
}

// createStores builds the storage layer. ClickHouse is optional; when
// no DSN is given, fills are simply not recorded.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*engineStores, func(), error) {
	stores := &engineStores{}
	cleanup := func() {}

	if useMemory {
		users := memory.NewUserStore()
		stores.users = users
		stores.jobs = memory.NewSnipeJobStore()
		stores.subs = memory.NewSubscriptionStore()
		stores.links = memory.NewReferralStore(users)
		stores.records = memory.NewSwapRecordStore()
		stores.cursors = memory.NewMirrorCursorStore()
	} else {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
		}

		stores.users = pgstore.NewUserStore(pool)
		stores.jobs = pgstore.NewSnipeJobStore(pool)
		stores.subs = pgstore.NewSubscriptionStore(pool)
		stores.links = pgstore.NewReferralStore(pool)
		stores.records = pgstore.NewSwapRecordStore(pool)
		stores.cursors = pgstore.NewMirrorCursorStore(pool)
		cleanup = pool.Close
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.fills = chstore.NewFillStore(conn)

		pgCleanup := cleanup
		cleanup = func() {
			conn.Close()
			pgCleanup()
		}
	} else {
		logger.Println("no clickhouse dsn, fill analytics disabled")
	}

	return stores, cleanup, nil
}

// statusResponse is the JSON body of /status.
type statusResponse struct {
	Status    string                 `json:"status"`
	Uptime    string                 `json:"uptime"`
	Storage   string                 `json:"storage"`
	Analytics bool                   `json:"analytics"`
	Fills     []chstore.OriginTotals `json:"fills,omitempty"`
}

// serveHTTP exposes health, metrics and status. With analytics wired,
// /status includes per-origin fill totals for the last 24 hours.
func serveHTTP(addr string, started time.Time, useMemory bool, fills *chstore.FillStore, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		storageMode := "postgres"
		if useMemory {
			storageMode = "memory"
		}
		resp := statusResponse{
			Status:    "running",
			Uptime:    time.Since(started).String(),
			Storage:   storageMode,
			Analytics: fills != nil,
		}
		if fills != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			totals, err := fills.TotalsByOrigin(ctx, time.Now().Add(-24*time.Hour))
			cancel()
			if err != nil {
				logger.Printf("fill totals for /status: %v", err)
			} else {
				resp.Fills = totals
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	logger.Printf("http listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("http server error: %v", err)
	}
}

// envOr returns the env var value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
