package guardian

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ViolationCount is one leaderboard entry.
type ViolationCount struct {
	UserID uuid.UUID `json:"user_id"`
	Count  int       `json:"count"`
}

// Ledger accumulates violation counts per user for the process lifetime.
// Counts only move through Record and Reset.
type Ledger struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int
	order  []uuid.UUID // first-violation order, keeps TopN ties deterministic
}

func NewLedger() *Ledger {
	return &Ledger{counts: make(map[uuid.UUID]int)}
}

// Record increments the user's violation count and returns the new value.
func (l *Ledger) Record(userID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.counts[userID]; !seen {
		l.order = append(l.order, userID)
	}
	l.counts[userID]++
	return l.counts[userID]
}

// Reset sets the user's count to zero.
func (l *Ledger) Reset(userID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.counts[userID]; seen {
		l.counts[userID] = 0
	}
}

// Get returns the user's count, zero for unseen users. Read-only.
func (l *Ledger) Get(userID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[userID]
}

// TopN returns up to n users ordered by count descending. Ties keep
// first-violation order.
func (l *Ledger) TopN(n int) []ViolationCount {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ViolationCount, 0, len(l.order))
	for _, id := range l.order {
		if c := l.counts[id]; c > 0 {
			out = append(out, ViolationCount{UserID: id, Count: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
