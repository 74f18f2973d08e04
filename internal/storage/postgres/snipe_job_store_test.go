package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

func newJob(id string, userID int64, mint string) *domain.SnipeJob {
	return &domain.SnipeJob{
		ID:                id,
		UserID:            userID,
		TargetMint:        mint,
		BuyAmountLamports: 1_000_000,
		MaxSlippageBps:    100,
		Status:            domain.SnipeJobActive,
		CreatedAt:         time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSnipeJobStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserStore(pool)
	store := NewSnipeJobStore(pool)
	ctx := context.Background()

	_, err := users.CreateIfNotExists(ctx, newUser(1))
	require.NoError(t, err)

	job := newJob("j1", 1, "MintA")
	require.NoError(t, store.Insert(ctx, job))
	require.ErrorIs(t, store.Insert(ctx, job), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, job.TargetMint, got.TargetMint)
	require.Equal(t, job.BuyAmountLamports, got.BuyAmountLamports)
	require.Equal(t, domain.SnipeJobActive, got.Status)

	_, err = store.GetByID(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnipeJobStore_GetActiveByTarget(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserStore(pool)
	store := NewSnipeJobStore(pool)
	ctx := context.Background()

	_, err := users.CreateIfNotExists(ctx, newUser(1))
	require.NoError(t, err)

	require.NoError(t, store.Insert(ctx, newJob("exact", 1, "MintA")))
	require.NoError(t, store.Insert(ctx, newJob("wild", 1, domain.SnipeTargetAny)))
	require.NoError(t, store.Insert(ctx, newJob("other", 1, "MintB")))

	inactive := newJob("done", 1, "MintA")
	inactive.Status = domain.SnipeJobExecuted
	require.NoError(t, store.Insert(ctx, inactive))

	jobs, err := store.GetActiveByTarget(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, jobs, 2, "exact match plus wildcard")

	ids := []string{jobs[0].ID, jobs[1].ID}
	require.ElementsMatch(t, []string{"exact", "wild"}, ids)
}

func TestSnipeJobStore_UpdateStatusIf(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserStore(pool)
	store := NewSnipeJobStore(pool)
	ctx := context.Background()

	_, err := users.CreateIfNotExists(ctx, newUser(1))
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, newJob("j1", 1, "MintA")))

	ok, err := store.UpdateStatusIf(ctx, "j1", domain.SnipeJobActive, domain.SnipeJobTriggered)
	require.NoError(t, err)
	require.True(t, ok)

	// The job already left active; the second transition loses.
	ok, err = store.UpdateStatusIf(ctx, "j1", domain.SnipeJobActive, domain.SnipeJobTriggered)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.UpdateStatusIf(ctx, "missing", domain.SnipeJobActive, domain.SnipeJobTriggered)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnipeJobStore_AttemptsAndSignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserStore(pool)
	store := NewSnipeJobStore(pool)
	ctx := context.Background()

	_, err := users.CreateIfNotExists(ctx, newUser(1))
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, newJob("j1", 1, "MintA")))

	n, err := store.IncrementAttempts(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = store.IncrementAttempts(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = store.IncrementAttempts(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetTxSignature(ctx, "j1", "sig123"))
	got, err := store.GetByID(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, "sig123", got.TxSignature)
}

func TestSnipeJobStore_GetByUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserStore(pool)
	store := NewSnipeJobStore(pool)
	ctx := context.Background()

	_, err := users.CreateIfNotExists(ctx, newUser(1))
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		job := newJob(fmt.Sprintf("j%d", i), 1, "MintA")
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Insert(ctx, job))
	}

	jobs, err := store.GetByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	require.Equal(t, "j2", jobs[0].ID, "newest first")
	require.Equal(t, "j0", jobs[2].ID)
}
