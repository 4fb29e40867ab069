package guardian

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// spamWindow is the trailing interval used for burst detection.
const spamWindow = 10 * time.Second

// SpamTracker keeps a sliding window of recent message timestamps per user.
// Windows are created lazily and bounded by age-based eviction on every check.
type SpamTracker struct {
	mu      sync.Mutex
	windows map[uuid.UUID][]time.Time
}

func NewSpamTracker() *SpamTracker {
	return &SpamTracker{windows: make(map[uuid.UUID][]time.Time)}
}

// Check records a message at now and reports whether the user's message count
// inside the trailing 10s window reached threshold. Timestamps older than the
// window are dropped first, so retention is strictly by age.
func (t *SpamTracker) Check(userID uuid.UUID, now time.Time, threshold int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	window := t.windows[userID]
	kept := window[:0]
	for _, ts := range window {
		if now.Sub(ts) < spamWindow {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.windows[userID] = kept

	return len(kept) >= threshold
}

// WindowSize reports how many timestamps are currently retained for a user.
func (t *SpamTracker) WindowSize(userID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows[userID])
}
