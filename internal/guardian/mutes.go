package guardian

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MuteScheduler owns all outstanding timed restrictions. Each user has at
// most one live timer; restricting an already-restricted user resets the
// expiry instead of stacking. Timers are not persisted: a process restart
// abandons pending reversals.
type MuteScheduler struct {
	restrictor Restrictor
	audit      AuditSink

	mu     sync.Mutex
	active map[uuid.UUID]*restriction
	gen    uint64

	now func() time.Time // test hook
}

type restriction struct {
	guildID   uuid.UUID
	expiresAt time.Time
	gen       uint64
	timer     *time.Timer
}

func NewMuteScheduler(restrictor Restrictor, audit AuditSink) *MuteScheduler {
	return &MuteScheduler{
		restrictor: restrictor,
		audit:      audit,
		active:     make(map[uuid.UUID]*restriction),
		now:        time.Now,
	}
}

// Restrict applies the restriction capability and arms an expiry timer for d.
// An existing restriction for the user is superseded: its timer is cancelled
// and the generation counter invalidates any firing already in flight.
func (s *MuteScheduler) Restrict(ctx context.Context, userID, guildID uuid.UUID, d time.Duration) error {
	s.mu.Lock()
	if cur, ok := s.active[userID]; ok && cur.timer != nil {
		cur.timer.Stop()
	}
	s.gen++
	gen := s.gen
	expiresAt := s.now().Add(d)
	s.active[userID] = &restriction{guildID: guildID, expiresAt: expiresAt, gen: gen}
	s.mu.Unlock()

	if err := s.restrictor.ApplyRestriction(ctx, userID, guildID, expiresAt); err != nil {
		s.mu.Lock()
		if cur, ok := s.active[userID]; ok && cur.gen == gen {
			delete(s.active, userID)
		}
		s.mu.Unlock()
		return err
	}

	timer := time.AfterFunc(d, func() { s.expire(userID, gen) })
	s.mu.Lock()
	if cur, ok := s.active[userID]; ok && cur.gen == gen {
		cur.timer = timer
	} else {
		// superseded while applying; this timer must not fire
		timer.Stop()
	}
	s.mu.Unlock()
	return nil
}

// expire is the timer callback. Stale generations (superseded or cleared
// restrictions) are ignored.
func (s *MuteScheduler) expire(userID uuid.UUID, gen uint64) {
	s.mu.Lock()
	cur, ok := s.active[userID]
	if !ok || cur.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.active, userID)
	guildID := cur.guildID
	s.mu.Unlock()

	ctx := context.Background()
	if err := s.restrictor.RemoveRestriction(ctx, userID, guildID); err != nil {
		log.Printf("Failed to lift restriction for %s: %v", userID, err)
	}
	rec := AuditRecord{
		UserID:    userID,
		GuildID:   guildID,
		Action:    "auto_unmute",
		Reason:    "restriction duration expired",
		CreatedAt: s.now(),
	}
	if err := s.audit.Emit(ctx, rec); err != nil {
		log.Printf("Failed to emit unmute audit record for %s: %v", userID, err)
	}
}

// Clear cancels a user's restriction ahead of its expiry (administrative
// unmute). Returns false when no restriction was active.
func (s *MuteScheduler) Clear(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	cur, ok := s.active[userID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	if cur.timer != nil {
		cur.timer.Stop()
	}
	delete(s.active, userID)
	guildID := cur.guildID
	s.mu.Unlock()

	if err := s.restrictor.RemoveRestriction(ctx, userID, guildID); err != nil {
		return true, err
	}
	rec := AuditRecord{
		UserID:    userID,
		GuildID:   guildID,
		Action:    "manual_unmute",
		Reason:    "restriction cleared by administrator",
		CreatedAt: s.now(),
	}
	if err := s.audit.Emit(ctx, rec); err != nil {
		log.Printf("Failed to emit unmute audit record for %s: %v", userID, err)
	}
	return true, nil
}

// Active reports the expiry of a user's restriction, if one exists.
func (s *MuteScheduler) Active(userID uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.active[userID]
	if !ok {
		return time.Time{}, false
	}
	return cur.expiresAt, true
}
