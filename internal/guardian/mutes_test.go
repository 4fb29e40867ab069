package guardian

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMuteScheduler_AutoReversal(t *testing.T) {
	restrictor := &fakeRestrictor{}
	audit := &fakeAudit{}
	s := NewMuteScheduler(restrictor, audit)
	userID := uuid.New()
	guildID := uuid.New()

	if err := s.Restrict(context.Background(), userID, guildID, 50*time.Millisecond); err != nil {
		t.Fatalf("Restrict failed: %v", err)
	}
	if _, ok := s.Active(userID); !ok {
		t.Fatal("Expected an active restriction")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, removed := restrictor.counts(); removed == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for auto-reversal")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := s.Active(userID); ok {
		t.Error("Expected no active restriction after expiry")
	}
	applied, removed := restrictor.counts()
	if applied != 1 || removed != 1 {
		t.Errorf("Expected exactly one apply and one remove, got %d/%d", applied, removed)
	}

	audit.mu.Lock()
	defer audit.mu.Unlock()
	if len(audit.records) != 1 || audit.records[0].Action != "auto_unmute" {
		t.Errorf("Expected a single auto_unmute audit record, got %v", audit.records)
	}
}

func TestMuteScheduler_ResetNotStack(t *testing.T) {
	restrictor := &fakeRestrictor{}
	audit := &fakeAudit{}
	s := NewMuteScheduler(restrictor, audit)
	userID := uuid.New()
	guildID := uuid.New()

	if err := s.Restrict(context.Background(), userID, guildID, time.Hour); err != nil {
		t.Fatalf("Restrict failed: %v", err)
	}
	first, _ := s.Active(userID)

	time.Sleep(20 * time.Millisecond)
	if err := s.Restrict(context.Background(), userID, guildID, time.Hour); err != nil {
		t.Fatalf("Second restrict failed: %v", err)
	}
	second, ok := s.Active(userID)
	if !ok {
		t.Fatal("Expected a single active restriction")
	}
	if !second.After(first) {
		t.Error("Expected the second restriction to reset the expiry forward")
	}

	applied, removed := restrictor.counts()
	if applied != 2 {
		t.Errorf("Expected capability re-applied on reset, got %d", applied)
	}
	if removed != 0 {
		t.Errorf("Superseding a restriction must not lift it, got %d removals", removed)
	}
}

func TestMuteScheduler_SupersededTimerNeverFires(t *testing.T) {
	restrictor := &fakeRestrictor{}
	audit := &fakeAudit{}
	s := NewMuteScheduler(restrictor, audit)
	userID := uuid.New()
	guildID := uuid.New()

	// short first mute, immediately superseded by a long one
	if err := s.Restrict(context.Background(), userID, guildID, 30*time.Millisecond); err != nil {
		t.Fatalf("Restrict failed: %v", err)
	}
	if err := s.Restrict(context.Background(), userID, guildID, time.Hour); err != nil {
		t.Fatalf("Second restrict failed: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, ok := s.Active(userID); !ok {
		t.Error("Long restriction must survive the stale timer window")
	}
	if _, removed := restrictor.counts(); removed != 0 {
		t.Errorf("Stale timer must not lift the restriction, got %d removals", removed)
	}
}

func TestMuteScheduler_Clear(t *testing.T) {
	restrictor := &fakeRestrictor{}
	audit := &fakeAudit{}
	s := NewMuteScheduler(restrictor, audit)
	userID := uuid.New()

	found, err := s.Clear(context.Background(), userID)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if found {
		t.Fatal("Clear on an unrestricted user should report not found")
	}

	if err := s.Restrict(context.Background(), userID, uuid.New(), time.Hour); err != nil {
		t.Fatalf("Restrict failed: %v", err)
	}
	found, err = s.Clear(context.Background(), userID)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if !found {
		t.Fatal("Expected Clear to find the restriction")
	}
	if _, ok := s.Active(userID); ok {
		t.Error("Expected no active restriction after Clear")
	}

	time.Sleep(50 * time.Millisecond)
	_, removed := restrictor.counts()
	if removed != 1 {
		t.Errorf("Expected exactly one removal, got %d", removed)
	}

	audit.mu.Lock()
	defer audit.mu.Unlock()
	if len(audit.records) != 1 || audit.records[0].Action != "manual_unmute" {
		t.Errorf("Expected a manual_unmute audit record, got %v", audit.records)
	}
}
