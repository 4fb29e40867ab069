package guardian

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Shared fakes for engine and scheduler tests.

type fakeTransport struct {
	mu        sync.Mutex
	deleted   []uuid.UUID
	warnings  []string
	notices   []string
	deleteErr error
	warnErr   error
}

func (f *fakeTransport) DeleteMessage(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeTransport) SendWarning(_ context.Context, _ uuid.UUID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, text)
	return f.warnErr
}

func (f *fakeTransport) SendChannelNotice(_ context.Context, _ uuid.UUID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, text)
	return nil
}

type fakeRestrictor struct {
	mu      sync.Mutex
	applied []uuid.UUID
	removed []uuid.UUID
}

func (f *fakeRestrictor) ApplyRestriction(_ context.Context, userID, _ uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, userID)
	return nil
}

func (f *fakeRestrictor) RemoveRestriction(_ context.Context, userID, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeRestrictor) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied), len(f.removed)
}

type fakeAudit struct {
	mu      sync.Mutex
	records []AuditRecord
}

func (f *fakeAudit) Emit(_ context.Context, rec AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

type fakeClassifier struct {
	mu       sync.Mutex
	classify func(text string) Verdict
	seen     []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) Verdict {
	f.mu.Lock()
	f.seen = append(f.seen, text)
	fn := f.classify
	f.mu.Unlock()
	if fn == nil {
		return Verdict{}
	}
	return fn(text)
}

func newTestEngine(t *testing.T, pol Policy, cls *fakeClassifier) (*Engine, *fakeTransport, *fakeRestrictor, *fakeAudit) {
	t.Helper()
	store, err := NewPolicyStore(pol)
	if err != nil {
		t.Fatalf("Failed to build policy store: %v", err)
	}
	transport := &fakeTransport{}
	restrictor := &fakeRestrictor{}
	audit := &fakeAudit{}
	mutes := NewMuteScheduler(restrictor, audit)
	engine := NewEngine(store, NewSpamTracker(), NewLedger(), mutes, cls, transport, audit, nil)
	return engine, transport, restrictor, audit
}

func msgFrom(userID uuid.UUID, body string, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		ChannelID: uuid.New(),
		GuildID:   uuid.New(),
		SenderID:  userID,
		Body:      body,
		SentAt:    at,
	}
}

func TestEngine_ToxicEscalatesToRestriction(t *testing.T) {
	pol := DefaultPolicy()
	pol.AutoRestrictViolations = 3
	pol.RestrictionSeconds = 60
	cls := &fakeClassifier{classify: func(string) Verdict {
		return Verdict{Score: 0.95, Categories: []string{"harassment"}, Reason: "targeted insult"}
	}}
	engine, transport, restrictor, audit := newTestEngine(t, pol, cls)

	userID := uuid.New()
	now := time.Now()
	for i := 0; i < 3; i++ {
		// spaced out so the spam window never fills
		engine.Process(context.Background(), msgFrom(userID, "toxic message", now.Add(time.Duration(i)*30*time.Second)))
	}

	if got := engine.Ledger().Get(userID); got != 3 {
		t.Errorf("Expected 3 recorded violations, got %d", got)
	}
	applied, _ := restrictor.counts()
	if applied != 1 {
		t.Errorf("Expected exactly one restriction, got %d", applied)
	}
	if len(transport.deleted) != 3 {
		t.Errorf("Expected 3 deletions, got %d", len(transport.deleted))
	}
	if len(transport.warnings) != 3 {
		t.Errorf("Expected 3 warnings, got %d", len(transport.warnings))
	}
	if len(audit.records) != 3 {
		t.Fatalf("Expected 3 audit records, got %d", len(audit.records))
	}
	for i, rec := range audit.records {
		if rec.ViolationCount != i+1 {
			t.Errorf("Audit record %d: expected count %d, got %d", i, i+1, rec.ViolationCount)
		}
	}
}

func TestEngine_SpamSynthesizesVerdict(t *testing.T) {
	pol := DefaultPolicy()
	pol.SpamThreshold = 3
	cls := &fakeClassifier{}
	engine, transport, _, audit := newTestEngine(t, pol, cls)

	userID := uuid.New()
	now := time.Now()
	for i := 0; i < 3; i++ {
		engine.Process(context.Background(), msgFrom(userID, "hi", now.Add(time.Duration(i)*time.Second)))
	}

	if len(audit.records) != 1 {
		t.Fatalf("Expected 1 audit record, got %d", len(audit.records))
	}
	rec := audit.records[0]
	if rec.Category != "spam" || rec.Score != 0.9 {
		t.Errorf("Expected synthesized spam verdict, got category %q score %v", rec.Category, rec.Score)
	}
	if rec.Reason != "rapid message sending detected" {
		t.Errorf("Unexpected reason: %q", rec.Reason)
	}
	if len(transport.deleted) != 1 {
		t.Errorf("Expected 1 deletion, got %d", len(transport.deleted))
	}
	// the classifier is skipped for spam-flagged messages
	if len(cls.seen) != 2 {
		t.Errorf("Expected classifier calls for the 2 clean messages only, got %d", len(cls.seen))
	}
}

func TestEngine_FailedClassificationIsClean(t *testing.T) {
	cls := &fakeClassifier{classify: func(string) Verdict {
		return Verdict{Failed: true}
	}}
	engine, transport, _, audit := newTestEngine(t, DefaultPolicy(), cls)

	userID := uuid.New()
	engine.Process(context.Background(), msgFrom(userID, "whatever", time.Now()))

	if got := engine.Ledger().Get(userID); got != 0 {
		t.Errorf("Failed classification must not record a violation, got %d", got)
	}
	if len(transport.deleted) != 0 || len(audit.records) != 0 {
		t.Error("Failed classification must not trigger any action")
	}
}

func TestEngine_DisabledSkipsPipeline(t *testing.T) {
	pol := DefaultPolicy()
	pol.Enabled = false
	pol.SpamThreshold = 1
	cls := &fakeClassifier{classify: func(string) Verdict {
		return Verdict{Score: 1, Categories: []string{"threats"}}
	}}
	engine, transport, _, _ := newTestEngine(t, pol, cls)

	engine.Process(context.Background(), msgFrom(uuid.New(), "anything", time.Now()))

	if len(cls.seen) != 0 {
		t.Error("Classifier must not run while disabled")
	}
	if len(transport.deleted) != 0 {
		t.Error("No deletion expected while disabled")
	}
}

func TestEngine_LexicalFilterBypassesEnabledFlag(t *testing.T) {
	pol := DefaultPolicy()
	pol.Enabled = false
	cls := &fakeClassifier{}
	engine, transport, _, audit := newTestEngine(t, pol, cls)

	userID := uuid.New()
	engine.Process(context.Background(), msgFrom(userID, "this is Shit", time.Now()))

	if len(transport.deleted) != 1 {
		t.Fatalf("Expected lexical filter to delete even while disabled, got %d deletions", len(transport.deleted))
	}
	if len(transport.notices) != 1 {
		t.Fatalf("Expected an in-channel notice, got %d", len(transport.notices))
	}
	if !strings.Contains(transport.notices[0], "shit") {
		t.Errorf("Notice should name the word, got %q", transport.notices[0])
	}
	// the fast path never touches the ledger or the audit log
	if got := engine.Ledger().Get(userID); got != 0 {
		t.Errorf("Lexical filter must not count as a violation, got %d", got)
	}
	if len(audit.records) != 0 {
		t.Errorf("Lexical filter must not emit audit records, got %d", len(audit.records))
	}
}

func TestEngine_DeletionFailureStillCounts(t *testing.T) {
	cls := &fakeClassifier{classify: func(string) Verdict {
		return Verdict{Score: 0.9, Categories: []string{"hate_speech"}, Reason: "slur"}
	}}
	engine, transport, _, audit := newTestEngine(t, DefaultPolicy(), cls)
	transport.deleteErr = context.DeadlineExceeded
	transport.warnErr = context.DeadlineExceeded

	userID := uuid.New()
	engine.Process(context.Background(), msgFrom(userID, "bad", time.Now()))

	if got := engine.Ledger().Get(userID); got != 1 {
		t.Errorf("Violation must be recorded despite delivery failures, got %d", got)
	}
	if len(audit.records) != 1 {
		t.Errorf("Audit record must be emitted despite delivery failures, got %d", len(audit.records))
	}
}

func TestEngine_EnqueueKeepsPerUserOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 1)

	cls := &fakeClassifier{classify: func(text string) Verdict {
		mu.Lock()
		order = append(order, text)
		n := len(order)
		mu.Unlock()
		if n == 10 {
			done <- struct{}{}
		}
		return Verdict{}
	}}
	pol := DefaultPolicy()
	pol.SpamThreshold = 100
	engine, _, _, _ := newTestEngine(t, pol, cls)

	userID := uuid.New()
	now := time.Now()
	for i := 0; i < 10; i++ {
		engine.Enqueue(msgFrom(userID, string(rune('a'+i)), now))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lane to drain")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, text := range order {
		if text != string(rune('a'+i)) {
			t.Fatalf("Expected per-user arrival order, got %v", order)
		}
	}
}
