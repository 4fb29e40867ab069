package guardian

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// blockedWords is a hard-coded lexical filter evaluated before everything
// else, including the enabled flag. It deletes and warns in-channel without
// touching the ledger or the scored pipeline.
var blockedWords = []string{"shit"}

// Engine evaluates every inbound message and drives the consequence chain:
// delete, warn, and restrict once the violation count crosses the policy
// threshold.
type Engine struct {
	policy     *PolicyStore
	spam       *SpamTracker
	ledger     *Ledger
	mutes      *MuteScheduler
	classifier Classifier
	transport  ChatTransport
	audit      AuditSink
	words      WordList // optional per-channel banned words

	mu    sync.Mutex
	lanes map[uuid.UUID]*lane
}

// lane is a per-user FIFO mailbox. Messages for the same user are processed
// in arrival order by a single drainer; different users run concurrently.
type lane struct {
	queue []Message
	busy  bool
}

func NewEngine(policy *PolicyStore, spam *SpamTracker, ledger *Ledger, mutes *MuteScheduler,
	classifier Classifier, transport ChatTransport, audit AuditSink, words WordList) *Engine {
	return &Engine{
		policy:     policy,
		spam:       spam,
		ledger:     ledger,
		mutes:      mutes,
		classifier: classifier,
		transport:  transport,
		audit:      audit,
		words:      words,
		lanes:      make(map[uuid.UUID]*lane),
	}
}

// Ledger exposes the violation ledger for the administrative surface.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Mutes exposes the scheduler for the administrative surface.
func (e *Engine) Mutes() *MuteScheduler { return e.mutes }

// Enqueue hands a message to the sender's lane and returns immediately.
func (e *Engine) Enqueue(msg Message) {
	e.mu.Lock()
	l, ok := e.lanes[msg.SenderID]
	if !ok {
		l = &lane{}
		e.lanes[msg.SenderID] = l
	}
	l.queue = append(l.queue, msg)
	if l.busy {
		e.mu.Unlock()
		return
	}
	l.busy = true
	e.mu.Unlock()

	go e.drain(l)
}

func (e *Engine) drain(l *lane) {
	for {
		e.mu.Lock()
		if len(l.queue) == 0 {
			l.busy = false
			e.mu.Unlock()
			return
		}
		msg := l.queue[0]
		l.queue = l.queue[1:]
		e.mu.Unlock()

		e.Process(context.Background(), msg)
	}
}

// Process runs the full decision pipeline for one message. Callers that need
// per-user ordering should go through Enqueue.
func (e *Engine) Process(ctx context.Context, msg Message) {
	// Lexical fast path: always on, no ledger, no escalation.
	if word, hit := e.matchBlockedWord(ctx, msg); hit {
		if err := e.transport.DeleteMessage(ctx, msg.ID); err != nil {
			log.Printf("Failed to delete message %s: %v", msg.ID, err)
		}
		notice := fmt.Sprintf("A message was removed - don't use the word %q here.", word)
		if err := e.transport.SendChannelNotice(ctx, msg.ChannelID, notice); err != nil {
			log.Printf("Failed to send channel notice: %v", err)
		}
		return
	}

	pol := e.policy.Snapshot()
	if !pol.Enabled {
		return
	}

	if e.spam.Check(msg.SenderID, msg.SentAt, pol.SpamThreshold) {
		e.handleViolation(ctx, msg, pol, Verdict{
			Score:      0.9,
			Categories: []string{"spam"},
			Reason:     "rapid message sending detected",
		})
		return
	}

	verdict := e.classifier.Classify(ctx, msg.Body)
	if verdict.Failed || verdict.Score < pol.ToxicityThreshold {
		return
	}
	e.handleViolation(ctx, msg, pol, verdict)
}

func (e *Engine) matchBlockedWord(ctx context.Context, msg Message) (string, bool) {
	lower := strings.ToLower(msg.Body)
	for _, w := range blockedWords {
		if strings.Contains(lower, w) {
			return w, true
		}
	}
	if e.words != nil {
		words, err := e.words.BannedWords(ctx, msg.ChannelID)
		if err != nil {
			log.Printf("Failed to load banned words for channel %s: %v", msg.ChannelID, err)
			return "", false
		}
		for _, w := range words {
			if w != "" && strings.Contains(lower, strings.ToLower(w)) {
				return w, true
			}
		}
	}
	return "", false
}

// handleViolation performs the consequence chain. Deletion and warning are
// best-effort; the ledger increment and the restrict decision are not.
func (e *Engine) handleViolation(ctx context.Context, msg Message, pol Policy, verdict Verdict) {
	if err := e.transport.DeleteMessage(ctx, msg.ID); err != nil {
		log.Printf("Failed to delete message %s: %v", msg.ID, err)
	}

	count := e.ledger.Record(msg.SenderID)
	category := strings.Join(verdict.Categories, ", ")

	rec := AuditRecord{
		UserID:         msg.SenderID,
		GuildID:        msg.GuildID,
		ChannelID:      msg.ChannelID,
		MessageID:      msg.ID,
		Action:         "violation",
		Category:       category,
		Score:          verdict.Score,
		Reason:         verdict.Reason,
		ViolationCount: count,
		CreatedAt:      msg.SentAt,
	}
	if err := e.audit.Emit(ctx, rec); err != nil {
		log.Printf("Failed to emit audit record for %s: %v", msg.SenderID, err)
	}

	warning := fmt.Sprintf("Your message was removed for: %s\n%s\nViolations: %d/%d (auto-mute threshold)",
		category, verdict.Reason, count, pol.AutoRestrictViolations)
	if err := e.transport.SendWarning(ctx, msg.SenderID, warning); err != nil {
		// user may have direct messages disabled
		log.Printf("Failed to warn user %s: %v", msg.SenderID, err)
	}

	if count >= pol.AutoRestrictViolations {
		if err := e.mutes.Restrict(ctx, msg.SenderID, msg.GuildID, pol.RestrictionDuration()); err != nil {
			log.Printf("Failed to restrict user %s: %v", msg.SenderID, err)
		}
	}
}
