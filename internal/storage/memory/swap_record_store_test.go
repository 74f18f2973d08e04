package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

func testRecord(sig string, userID int64, at time.Time) *domain.SwapRecord {
	return &domain.SwapRecord{
		TxSignature:   sig,
		UserID:        userID,
		WalletAddress: "addr",
		InputMint:     "MintA",
		OutputMint:    "MintB",
		InAmount:      1000,
		OutAmount:     900,
		FeeLamports:   10,
		Origin:        domain.SwapOriginUser,
		ExecutedAt:    at,
	}
}

func TestSwapRecordStore_InsertDuplicate(t *testing.T) {
	store := NewSwapRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("sig1", 1, time.Now())); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, testRecord("sig1", 1, time.Now())); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSwapRecordStore_GetByUser(t *testing.T) {
	store := NewSwapRecordStore()
	ctx := context.Background()

	base := time.Now()
	for i, sig := range []string{"s1", "s2", "s3"} {
		if err := store.Insert(ctx, testRecord(sig, 1, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Insert %s: %v", sig, err)
		}
	}
	if err := store.Insert(ctx, testRecord("other", 2, base)); err != nil {
		t.Fatalf("Insert other: %v", err)
	}

	recs, err := store.GetByUser(ctx, 1, 2)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	// Newest first
	if recs[0].TxSignature != "s3" || recs[1].TxSignature != "s2" {
		t.Errorf("wrong order: %s, %s", recs[0].TxSignature, recs[1].TxSignature)
	}
}

func TestSwapRecordStore_GetBySignature(t *testing.T) {
	store := NewSwapRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord("sig1", 1, time.Now())); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature: %v", err)
	}
	if got.UserID != 1 {
		t.Errorf("user mismatch: %d", got.UserID)
	}

	if _, err := store.GetBySignature(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
