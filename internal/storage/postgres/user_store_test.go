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

func newUser(id int64) *domain.User {
	return &domain.User{
		ID:           id,
		ReferralCode: fmt.Sprintf("code%d", id),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestUserStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUserStore(pool)
	ctx := context.Background()

	u := newUser(1)

	created, err := store.CreateIfNotExists(ctx, u)
	require.NoError(t, err)
	require.True(t, created, "first insert should create")

	created, err = store.CreateIfNotExists(ctx, u)
	require.NoError(t, err)
	require.False(t, created, "second insert should be a no-op")

	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, u.ReferralCode, got.ReferralCode)
	require.False(t, got.HasWallet())

	_, err = store.GetByID(ctx, 42)
	require.ErrorIs(t, err, storage.ErrNotFound)

	byCode, err := store.GetByReferralCode(ctx, u.ReferralCode)
	require.NoError(t, err)
	require.Equal(t, int64(1), byCode.ID)

	_, err = store.GetByReferralCode(ctx, "unknown")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserStore_UpdateWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUserStore(pool)
	ctx := context.Background()

	_, err := store.CreateIfNotExists(ctx, newUser(1))
	require.NoError(t, err)

	sealed := []byte{0x01, 0x02, 0x03}
	require.NoError(t, store.UpdateWallet(ctx, 1, "WalletAddr", sealed))

	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "WalletAddr", got.WalletAddress)
	require.Equal(t, sealed, got.EncryptedKey)
	require.True(t, got.HasWallet())

	err = store.UpdateWallet(ctx, 42, "WalletAddr", sealed)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserStore_AddReferralEarnings(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUserStore(pool)
	ctx := context.Background()

	_, err := store.CreateIfNotExists(ctx, newUser(1))
	require.NoError(t, err)

	require.NoError(t, store.AddReferralEarnings(ctx, 1, 2_500))
	require.NoError(t, store.AddReferralEarnings(ctx, 1, 1_000))

	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(3_500), got.ReferralEarned)

	err = store.AddReferralEarnings(ctx, 42, 100)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
