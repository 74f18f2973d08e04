package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
)

func newFill(sig string, origin domain.SwapOrigin, fee uint64, executedAt time.Time) *domain.SwapRecord {
	return &domain.SwapRecord{
		TxSignature:   sig,
		UserID:        1,
		WalletAddress: "WalletAddr",
		InputMint:     "MintA",
		OutputMint:    "MintB",
		InAmount:      1_000_000,
		OutAmount:     900_000,
		FeeLamports:   fee,
		Origin:        origin,
		ExecutedAt:    executedAt,
	}
}

func TestFillStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFillStore(conn)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.InsertFillBulk(ctx, []*domain.SwapRecord{
		newFill("sig1", domain.SwapOriginUser, 10_000, now),
		newFill("sig2", domain.SwapOriginUser, 5_000, now),
		newFill("sig3", domain.SwapOriginSniper, 2_000, now),
	}))
	require.NoError(t, store.InsertFill(ctx, newFill("sig4", domain.SwapOriginMirror, 1_000, now)))

	// A replayed append of an existing signature counts once.
	require.NoError(t, store.InsertFill(ctx, newFill("sig1", domain.SwapOriginUser, 10_000, now)))

	totals, err := store.TotalsByOrigin(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, totals, 3)

	byOrigin := make(map[string]OriginTotals, len(totals))
	for _, tot := range totals {
		byOrigin[tot.Origin] = tot
	}
	require.Equal(t, uint64(2), byOrigin["user"].Fills)
	require.Equal(t, uint64(15_000), byOrigin["user"].FeeLamports)
	require.Equal(t, uint64(1), byOrigin["sniper"].Fills)
	require.Equal(t, uint64(2_000), byOrigin["sniper"].FeeLamports)
	require.Equal(t, uint64(1), byOrigin["mirror"].Fills)

	// Nothing in a window that predates every fill.
	empty, err := store.TotalsByOrigin(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestFillStore_EmptyBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFillStore(conn)
	require.NoError(t, store.InsertFillBulk(context.Background(), nil))
}
