package guardian

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Policy holds the runtime moderation thresholds. Values are replaced as a
// whole through PolicyStore so readers always observe a consistent snapshot.
type Policy struct {
	Enabled                bool       `json:"enabled"`
	ToxicityThreshold      float64    `json:"toxicity_threshold"`
	SpamThreshold          int        `json:"spam_threshold"` // messages per 10s window
	AutoRestrictViolations int        `json:"auto_restrict_violations"`
	RestrictionSeconds     int        `json:"restriction_seconds"`
	ModLogChannelID        *uuid.UUID `json:"mod_log_channel_id,omitempty"`
}

// DefaultPolicy mirrors the shipped defaults.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:                true,
		ToxicityThreshold:      0.7,
		SpamThreshold:          5,
		AutoRestrictViolations: 3,
		RestrictionSeconds:     600,
	}
}

// RestrictionDuration returns the configured mute duration.
func (p Policy) RestrictionDuration() time.Duration {
	return time.Duration(p.RestrictionSeconds) * time.Second
}

// Validate checks field ranges. It is the gate for administrative updates;
// an invalid policy never replaces the current one.
func (p Policy) Validate() error {
	if p.ToxicityThreshold < 0 || p.ToxicityThreshold > 1 {
		return fmt.Errorf("toxicity_threshold must be between 0 and 1, got %v", p.ToxicityThreshold)
	}
	if p.SpamThreshold < 1 {
		return fmt.Errorf("spam_threshold must be at least 1, got %d", p.SpamThreshold)
	}
	if p.AutoRestrictViolations < 1 {
		return fmt.Errorf("auto_restrict_violations must be at least 1, got %d", p.AutoRestrictViolations)
	}
	if p.RestrictionSeconds < 0 {
		return fmt.Errorf("restriction_seconds must not be negative, got %d", p.RestrictionSeconds)
	}
	return nil
}

func clampThreshold(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PolicyStore is an atomically swapped policy value. Reads are lock-free and
// writes replace the whole policy, so multi-field updates are never torn.
type PolicyStore struct {
	// mu serializes writers; readers go through the atomic pointer only.
	mu sync.Mutex
	v  atomic.Pointer[Policy]
}

// NewPolicyStore seeds the store. Out-of-range toxicity thresholds from
// startup configuration are clamped into [0,1] rather than rejected.
func NewPolicyStore(p Policy) (*PolicyStore, error) {
	p.ToxicityThreshold = clampThreshold(p.ToxicityThreshold)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &PolicyStore{}
	s.v.Store(&p)
	return s, nil
}

// Snapshot returns a copy of the current policy.
func (s *PolicyStore) Snapshot() Policy {
	return *s.v.Load()
}

// Replace validates and swaps in a new policy. On error the previous policy
// remains in effect.
func (s *PolicyStore) Replace(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.v.Store(&p)
	s.mu.Unlock()
	return nil
}

// SetEnabled flips only the enabled flag, returning the new state.
func (s *PolicyStore) SetEnabled(enabled bool) Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *s.v.Load()
	p.Enabled = enabled
	s.v.Store(&p)
	return p
}
