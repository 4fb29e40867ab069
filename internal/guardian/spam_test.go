package guardian

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSpamTracker_FlagsBurst(t *testing.T) {
	tracker := NewSpamTracker()
	userID := uuid.New()
	start := time.Now()

	// 5 messages within 2 seconds, threshold 5: the 5th flags
	for i := 0; i < 4; i++ {
		if tracker.Check(userID, start.Add(time.Duration(i)*400*time.Millisecond), 5) {
			t.Fatalf("message %d should not be flagged", i+1)
		}
	}
	if !tracker.Check(userID, start.Add(2*time.Second), 5) {
		t.Fatal("5th message within window should be flagged")
	}

	// 15 seconds later the window has expired
	if tracker.Check(userID, start.Add(17*time.Second), 5) {
		t.Fatal("message after window expiry should not be flagged")
	}
	if got := tracker.WindowSize(userID); got != 1 {
		t.Errorf("Expected window size 1 after expiry, got %d", got)
	}
}

func TestSpamTracker_SpacedMessagesNeverFlag(t *testing.T) {
	tracker := NewSpamTracker()
	userID := uuid.New()
	start := time.Now()

	for i := 0; i < 20; i++ {
		if tracker.Check(userID, start.Add(time.Duration(i)*10*time.Second), 2) {
			t.Fatalf("message %d spaced 10s apart should not be flagged", i+1)
		}
	}
}

func TestSpamTracker_UsersAreIndependent(t *testing.T) {
	tracker := NewSpamTracker()
	now := time.Now()
	spammer := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		tracker.Check(spammer, now, 3)
	}
	if tracker.Check(other, now, 3) {
		t.Fatal("other user's first message must not be flagged")
	}
}
