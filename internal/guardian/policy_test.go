package guardian

import (
	"testing"
)

func TestPolicyStore_RejectsInvalidUpdate(t *testing.T) {
	store, err := NewPolicyStore(DefaultPolicy())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	bad := DefaultPolicy()
	bad.ToxicityThreshold = 1.5
	if err := store.Replace(bad); err == nil {
		t.Fatal("Expected error for out-of-range threshold")
	}

	bad = DefaultPolicy()
	bad.SpamThreshold = 0
	if err := store.Replace(bad); err == nil {
		t.Fatal("Expected error for zero spam threshold")
	}

	bad = DefaultPolicy()
	bad.RestrictionSeconds = -1
	if err := store.Replace(bad); err == nil {
		t.Fatal("Expected error for negative restriction duration")
	}

	// the previous policy stays in effect
	if got := store.Snapshot(); got != DefaultPolicy() {
		t.Errorf("Policy changed after rejected updates: %+v", got)
	}
}

func TestPolicyStore_ReplaceAndToggle(t *testing.T) {
	store, err := NewPolicyStore(DefaultPolicy())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	next := DefaultPolicy()
	next.ToxicityThreshold = 0.5
	next.SpamThreshold = 8
	if err := store.Replace(next); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	got := store.Snapshot()
	if got.ToxicityThreshold != 0.5 || got.SpamThreshold != 8 {
		t.Errorf("Snapshot does not reflect update: %+v", got)
	}

	p := store.SetEnabled(false)
	if p.Enabled {
		t.Error("Expected pipeline disabled")
	}
	// toggle preserves the other fields
	if p.SpamThreshold != 8 {
		t.Errorf("Toggle must not touch other fields, got %+v", p)
	}
}

func TestNewPolicyStore_ClampsStartupThreshold(t *testing.T) {
	p := DefaultPolicy()
	p.ToxicityThreshold = 3.2
	store, err := NewPolicyStore(p)
	if err != nil {
		t.Fatalf("Expected startup clamp instead of error, got %v", err)
	}
	if got := store.Snapshot().ToxicityThreshold; got != 1 {
		t.Errorf("Expected threshold clamped to 1, got %v", got)
	}
}
