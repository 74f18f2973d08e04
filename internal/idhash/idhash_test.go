package idhash

import "testing"

func TestComputeJobID(t *testing.T) {
	id := ComputeJobID(42, "MintA", 1_000_000, 1_700_000_000)

	if len(id) != 64 {
		t.Errorf("ComputeJobID() length = %d, want 64", len(id))
	}

	// Same inputs produce the same ID.
	if again := ComputeJobID(42, "MintA", 1_000_000, 1_700_000_000); again != id {
		t.Errorf("ComputeJobID() not deterministic: %s != %s", id, again)
	}

	// Any differing input produces a different ID.
	variants := []string{
		ComputeJobID(43, "MintA", 1_000_000, 1_700_000_000),
		ComputeJobID(42, "MintB", 1_000_000, 1_700_000_000),
		ComputeJobID(42, "MintA", 2_000_000, 1_700_000_000),
		ComputeJobID(42, "MintA", 1_000_000, 1_700_000_001),
	}
	for i, v := range variants {
		if v == id {
			t.Errorf("variant %d collided with base ID", i)
		}
	}
}

func TestComputeSubscriptionID(t *testing.T) {
	id := ComputeSubscriptionID(1, "trackedAddr", 1_700_000_000)

	if len(id) != 64 {
		t.Errorf("ComputeSubscriptionID() length = %d, want 64", len(id))
	}
	if again := ComputeSubscriptionID(1, "trackedAddr", 1_700_000_000); again != id {
		t.Error("ComputeSubscriptionID() not deterministic")
	}
	if other := ComputeSubscriptionID(2, "trackedAddr", 1_700_000_000); other == id {
		t.Error("different users produced the same subscription ID")
	}
}

func TestComputeReferralCode(t *testing.T) {
	code := ComputeReferralCode(42)

	if len(code) != ReferralCodeLen {
		t.Errorf("ComputeReferralCode() length = %d, want %d", len(code), ReferralCodeLen)
	}
	if again := ComputeReferralCode(42); again != code {
		t.Error("ComputeReferralCode() not deterministic")
	}
	if other := ComputeReferralCode(43); other == code {
		t.Error("different users produced the same referral code")
	}
}
