package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

func testUser(id int64) *domain.User {
	return &domain.User{
		ID:           id,
		ReferralCode: "code" + string(rune('0'+id)),
		CreatedAt:    time.Now(),
	}
}

func TestUserStore_CreateIfNotExists(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	created, err := store.CreateIfNotExists(ctx, testUser(1))
	if err != nil {
		t.Fatalf("CreateIfNotExists: %v", err)
	}
	if !created {
		t.Error("expected created=true for new user")
	}

	created, err = store.CreateIfNotExists(ctx, testUser(1))
	if err != nil {
		t.Fatalf("CreateIfNotExists repeat: %v", err)
	}
	if created {
		t.Error("expected created=false for existing user")
	}
}

func TestUserStore_GetByReferralCode(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	u := testUser(7)
	u.ReferralCode = "ref7"
	if _, err := store.CreateIfNotExists(ctx, u); err != nil {
		t.Fatalf("CreateIfNotExists: %v", err)
	}

	got, err := store.GetByReferralCode(ctx, "ref7")
	if err != nil {
		t.Fatalf("GetByReferralCode: %v", err)
	}
	if got.ID != 7 {
		t.Errorf("expected user 7, got %d", got.ID)
	}

	if _, err := store.GetByReferralCode(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStore_UpdateWallet(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	if _, err := store.CreateIfNotExists(ctx, testUser(1)); err != nil {
		t.Fatalf("CreateIfNotExists: %v", err)
	}

	key := []byte{1, 2, 3}
	if err := store.UpdateWallet(ctx, 1, "addr1", key); err != nil {
		t.Fatalf("UpdateWallet: %v", err)
	}

	// Mutating the caller's slice must not affect the stored copy.
	key[0] = 99

	got, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.WalletAddress != "addr1" {
		t.Errorf("address mismatch: %s", got.WalletAddress)
	}
	if got.EncryptedKey[0] != 1 {
		t.Error("stored key aliased to caller slice")
	}

	if err := store.UpdateWallet(ctx, 999, "addr", key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStore_AddReferralEarnings(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	if _, err := store.CreateIfNotExists(ctx, testUser(1)); err != nil {
		t.Fatalf("CreateIfNotExists: %v", err)
	}

	if err := store.AddReferralEarnings(ctx, 1, 100); err != nil {
		t.Fatalf("AddReferralEarnings: %v", err)
	}
	if err := store.AddReferralEarnings(ctx, 1, 250); err != nil {
		t.Fatalf("AddReferralEarnings: %v", err)
	}

	got, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ReferralEarned != 350 {
		t.Errorf("expected 350 earned, got %d", got.ReferralEarned)
	}
}
