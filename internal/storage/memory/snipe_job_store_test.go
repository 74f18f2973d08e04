package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

func testJob(id string, status domain.SnipeJobStatus) *domain.SnipeJob {
	return &domain.SnipeJob{
		ID:                id,
		UserID:            1,
		TargetMint:        "MintA",
		BuyAmountLamports: 1_000_000,
		MaxSlippageBps:    100,
		Status:            status,
		CreatedAt:         time.Now(),
	}
}

func TestSnipeJobStore_InsertDuplicate(t *testing.T) {
	store := NewSnipeJobStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testJob("j1", domain.SnipeJobPending)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, testJob("j1", domain.SnipeJobPending)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSnipeJobStore_GetActiveByTarget(t *testing.T) {
	store := NewSnipeJobStore()
	ctx := context.Background()

	active := testJob("j1", domain.SnipeJobActive)
	pending := testJob("j2", domain.SnipeJobPending)
	wildcard := testJob("j3", domain.SnipeJobActive)
	wildcard.TargetMint = domain.SnipeTargetAny
	other := testJob("j4", domain.SnipeJobActive)
	other.TargetMint = "MintB"

	for _, j := range []*domain.SnipeJob{active, pending, wildcard, other} {
		if err := store.Insert(ctx, j); err != nil {
			t.Fatalf("Insert %s: %v", j.ID, err)
		}
	}

	jobs, err := store.GetActiveByTarget(ctx, "MintA")
	if err != nil {
		t.Fatalf("GetActiveByTarget: %v", err)
	}

	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs (exact + wildcard), got %d", len(jobs))
	}
	seen := map[string]bool{}
	for _, j := range jobs {
		seen[j.ID] = true
	}
	if !seen["j1"] || !seen["j3"] {
		t.Errorf("wrong jobs matched: %v", seen)
	}
}

func TestSnipeJobStore_UpdateStatusIf(t *testing.T) {
	store := NewSnipeJobStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testJob("j1", domain.SnipeJobActive)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ok, err := store.UpdateStatusIf(ctx, "j1", domain.SnipeJobActive, domain.SnipeJobTriggered)
	if err != nil {
		t.Fatalf("UpdateStatusIf: %v", err)
	}
	if !ok {
		t.Fatal("expected transition to succeed")
	}

	// Second transition from the same status must lose.
	ok, err = store.UpdateStatusIf(ctx, "j1", domain.SnipeJobActive, domain.SnipeJobTriggered)
	if err != nil {
		t.Fatalf("UpdateStatusIf repeat: %v", err)
	}
	if ok {
		t.Error("expected second transition to fail")
	}

	if _, err := store.UpdateStatusIf(ctx, "missing", domain.SnipeJobActive, domain.SnipeJobTriggered); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnipeJobStore_IncrementAttempts(t *testing.T) {
	store := NewSnipeJobStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testJob("j1", domain.SnipeJobActive)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementAttempts(ctx, "j1")
		if err != nil {
			t.Fatalf("IncrementAttempts: %v", err)
		}
		if got != want {
			t.Errorf("expected %d attempts, got %d", want, got)
		}
	}
}
