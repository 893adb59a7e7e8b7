package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finlitworks/finlit-platform/internal/content"
)

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// Event is pushed to subscribers on every timer tick and phase change.
type Event struct {
	Type          string `json:"type"` // "tick" or "phase"
	Phase         Phase  `json:"phase"`
	TimeRemaining int    `json:"time_remaining"`
	CurrentIndex  int    `json:"current_index"`
}

// Session is a single quiz attempt: navigation, answer ledger, countdown and
// terminal scoring. Every mutating operation takes the session mutex, so the
// timer goroutine and request handlers never race into inconsistent state.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID

	mu          sync.Mutex
	quiz        *content.Quiz
	index       int
	ledger      Ledger
	remaining   int
	phase       Phase
	startedAt   time.Time
	finishedAt  time.Time
	score       int
	verdicts    []Verdict
	timerCancel context.CancelFunc

	// onFinish runs exactly once per attempt, off the session lock.
	onFinish func(*Session)

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

func newSession(id, userID uuid.UUID, quiz *content.Quiz, onFinish func(*Session)) *Session {
	return &Session{
		ID:          id,
		UserID:      userID,
		quiz:        quiz,
		ledger:      NewLedger(),
		remaining:   quiz.TimeLimitMinutes * 60,
		phase:       PhaseActive,
		startedAt:   time.Now().UTC(),
		onFinish:    onFinish,
		subscribers: make(map[chan Event]struct{}),
	}
}

// start arms the countdown. Inert when the quiz has no time limit.
func (s *Session) start(ctx context.Context) {
	if s.quiz.TimeLimitMinutes <= 0 {
		return
	}

	tickCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.timerCancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				if !s.Tick() {
					return
				}
			}
		}
	}()
}

// Quiz returns the read-only quiz definition.
func (s *Session) Quiz() *content.Quiz {
	return s.quiz
}

// Phase returns the current lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentIndex returns the zero-based position within the quiz.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// CurrentQuestion returns the question at the current index.
func (s *Session) CurrentQuestion() content.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.Questions[s.index]
}

// TimeRemaining returns seconds left, 0 for untimed quizzes.
func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Entry exposes the ledger entry for a question.
func (s *Session) Entry(questionID int64) (*AnswerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Entry(questionID)
}

// SelectOption records a selection for the current question. It is a no-op
// once finished, and rejects options that do not belong to the question the
// user is looking at.
func (s *Session) SelectOption(optionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return
	}

	q := s.quiz.Questions[s.index]
	for _, opt := range q.Options {
		if opt.ID == optionID {
			s.ledger.Select(q.ID, optionID, q.Type)
			return
		}
	}
}

// Next advances one question, or finishes the session at the last index.
// Finishing is idempotent; a Next after the terminal transition is a no-op.
func (s *Session) Next() {
	s.mu.Lock()
	if s.phase != PhaseActive {
		s.mu.Unlock()
		return
	}
	if s.index >= len(s.quiz.Questions)-1 {
		s.finishLocked()
		return // finishLocked releases the mutex
	}
	s.index++
	s.mu.Unlock()
}

// Previous moves one question back. No wrap-around: a Previous at index 0
// leaves the index unchanged. Never triggers scoring.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive || s.index == 0 {
		return
	}
	s.index--
}

// Tick decrements the countdown by one second. Hitting zero forces the
// terminal transition immediately, regardless of position or answered count.
// Returns false once the timer should stop.
func (s *Session) Tick() bool {
	s.mu.Lock()
	if s.phase != PhaseActive || s.quiz.TimeLimitMinutes <= 0 {
		s.mu.Unlock()
		return false
	}

	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.finishLocked()
		return false
	}

	remaining, index := s.remaining, s.index
	s.mu.Unlock()

	s.publish(Event{Type: "tick", Phase: PhaseActive, TimeRemaining: remaining, CurrentIndex: index})
	return true
}

// Restart resets the attempt in place: fresh ledger, index 0, timer back to
// the original limit. The superseded timer is cancelled first so a stale tick
// can never mutate the new attempt. Valid from either phase.
func (s *Session) Restart(ctx context.Context) {
	s.mu.Lock()
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
	s.index = 0
	s.ledger = NewLedger()
	s.remaining = s.quiz.TimeLimitMinutes * 60
	s.phase = PhaseActive
	s.startedAt = time.Now().UTC()
	s.finishedAt = time.Time{}
	s.score = 0
	s.verdicts = nil
	s.mu.Unlock()

	s.publish(Event{Type: "phase", Phase: PhaseActive, TimeRemaining: s.TimeRemaining()})
	s.start(ctx)
}

// finishLocked performs the single terminal transition. Callers must hold the
// mutex; it is released here so the finish hook runs unlocked.
func (s *Session) finishLocked() {
	if s.phase == PhaseFinished {
		s.mu.Unlock()
		return
	}

	s.phase = PhaseFinished
	s.finishedAt = time.Now().UTC()
	s.score = ScorePercentage(s.quiz.Questions, s.ledger)
	s.verdicts = Evaluate(s.quiz.Questions, s.ledger)
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
	remaining, index := s.remaining, s.index
	s.mu.Unlock()

	s.publish(Event{Type: "phase", Phase: PhaseFinished, TimeRemaining: remaining, CurrentIndex: index})
	if s.onFinish != nil {
		go s.onFinish(s)
	}
}

// Results returns the score and verdicts; ok is false until finished.
func (s *Session) Results() (score int, verdicts []Verdict, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseFinished {
		return 0, nil, false
	}
	return s.score, s.verdicts, true
}

// StartedAt returns when the current attempt began.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// FinishedAt returns the terminal transition time (zero while active).
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

// Subscribe registers an event channel for timer and phase updates.
func (s *Session) Subscribe() chan Event {
	ch := make(chan Event, 8)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes an event channel.
func (s *Session) Unsubscribe(ch chan Event) {
	s.subMu.Lock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.subMu.Unlock()
}

// publish fans out an event without blocking; slow subscribers drop ticks.
func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
