package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finlitworks/finlit-platform/internal/content"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	attemptWriteTimeout  = 5 * time.Second
	snapshotWriteTimeout = 2 * time.Second

	defaultFinishedTTL = 30 * time.Minute
	reapInterval       = time.Minute
)

// QuizLoader fetches quiz definitions from the content layer.
type QuizLoader interface {
	GetQuizByIdentifier(ctx context.Context, slugOrID string) (*content.Quiz, error)
}

// AttemptStore persists finished attempts.
type AttemptStore interface {
	Insert(ctx context.Context, a *Attempt) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Attempt, error)
}

// SnapshotStorage mirrors live sessions into an external store and serves
// them back once the live session is gone.
type SnapshotStorage interface {
	Save(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// Manager owns the live sessions of this API instance. A session belongs to
// exactly one presentation; the manager only hands it out by id.
type Manager struct {
	loader      QuizLoader
	reporter    *Reporter
	attempts    AttemptStore
	snapshots   SnapshotStorage
	finishedTTL time.Duration
	logger      zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	// rootCtx parents every session timer so Close tears all of them down.
	rootCtx context.Context
	cancel  context.CancelFunc
}

func NewManager(loader QuizLoader, reporter *Reporter, attempts AttemptStore, snapshots SnapshotStorage, finishedTTL time.Duration, logger zerolog.Logger) *Manager {
	if finishedTTL <= 0 {
		finishedTTL = defaultFinishedTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		loader:      loader,
		reporter:    reporter,
		attempts:    attempts,
		snapshots:   snapshots,
		finishedTTL: finishedTTL,
		logger:      logger.With().Str("component", "session_manager").Logger(),
		sessions:    make(map[uuid.UUID]*Session),
		rootCtx:     ctx,
		cancel:      cancel,
	}
	go m.reapLoop()
	return m
}

// Start loads a quiz and creates an active session. Load failures are
// terminal for the attempt: not-found and zero-question quizzes surface as
// distinct errors and no session is created.
func (m *Manager) Start(ctx context.Context, slugOrID string, userID uuid.UUID) (*Session, error) {
	quiz, err := m.loader.GetQuizByIdentifier(ctx, slugOrID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, content.ErrNoQuestions
	}

	if quiz.RandomizeQuestions {
		quiz = shuffled(quiz)
	}

	sess := newSession(uuid.New(), userID, quiz, m.finishHook)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	sess.start(m.rootCtx)
	sessionsStarted.Inc()
	m.saveSnapshot(sess)

	m.logger.Info().
		Str("session_id", sess.ID.String()).
		Int64("quiz_id", quiz.ID).
		Int("questions", len(quiz.Questions)).
		Int("time_limit_minutes", quiz.TimeLimitMinutes).
		Msg("session started")

	return sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Restart resets a session to a fresh attempt over the same quiz.
func (m *Manager) Restart(id uuid.UUID) (*Session, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	sess.Restart(m.rootCtx)
	m.saveSnapshot(sess)
	return sess, nil
}

// Remove discards a session and its snapshot.
func (m *Manager) Remove(ctx context.Context, id uuid.UUID) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	sess.mu.Lock()
	if sess.timerCancel != nil {
		sess.timerCancel()
		sess.timerCancel = nil
	}
	sess.mu.Unlock()

	if m.snapshots != nil {
		if err := m.snapshots.Delete(ctx, id); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id.String()).Msg("snapshot delete failed")
		}
	}
}

// Snapshot returns the stored snapshot for a session that is no longer live.
func (m *Manager) Snapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	if m.snapshots == nil {
		return nil, nil
	}
	return m.snapshots.Get(ctx, id)
}

// Attempts returns a user's persisted attempt history.
func (m *Manager) Attempts(ctx context.Context, userID uuid.UUID, limit int) ([]Attempt, error) {
	if m.attempts == nil {
		return nil, nil
	}
	return m.attempts.ListByUser(ctx, userID, limit)
}

// Close cancels every live timer.
func (m *Manager) Close() {
	m.cancel()
}

func (m *Manager) reapLoop() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.rootCtx.Done():
			return
		case <-ticker.C:
			m.reapFinished(time.Now())
		}
	}
}

// reapFinished evicts sessions that finished more than finishedTTL ago.
// Their snapshots stay in Redis until the snapshot TTL runs out, so results
// remain readable through the snapshot path after eviction.
func (m *Manager) reapFinished(now time.Time) {
	cutoff := now.Add(-m.finishedTTL)

	m.mu.Lock()
	var evicted []uuid.UUID
	for id, sess := range m.sessions {
		if finishedAt := sess.FinishedAt(); !finishedAt.IsZero() && finishedAt.Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	for _, id := range evicted {
		m.logger.Debug().Str("session_id", id.String()).Msg("finished session evicted")
	}
}

// finishHook runs once per finished attempt, off the session lock: stats out
// through the reporter, the attempt row into Postgres, snapshot refreshed.
func (m *Manager) finishHook(sess *Session) {
	score, verdicts, ok := sess.Results()
	if !ok {
		return
	}

	sessionsFinished.Inc()
	if m.reporter != nil {
		m.reporter.Report(verdicts)
	}

	if m.attempts != nil {
		correct := 0
		for _, v := range verdicts {
			if v.Correct {
				correct++
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), attemptWriteTimeout)
		defer cancel()
		if _, err := m.attempts.Insert(ctx, &Attempt{
			SessionID:    sess.ID,
			UserID:       sess.UserID,
			QuizID:       sess.Quiz().ID,
			Score:        score,
			CorrectCount: correct,
			Total:        len(verdicts),
			StartedAt:    sess.StartedAt(),
			FinishedAt:   sess.FinishedAt(),
		}); err != nil {
			m.logger.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("attempt persist failed")
		}
	}

	m.saveSnapshot(sess)
}

func (m *Manager) saveSnapshot(sess *Session) {
	if m.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
	defer cancel()
	if err := m.snapshots.Save(ctx, snapshotOf(sess)); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("snapshot save failed")
	}
}

// shuffled deep-copies the question order so the stored quiz stays untouched.
func shuffled(quiz *content.Quiz) *content.Quiz {
	cp := *quiz
	cp.Questions = make([]content.Question, len(quiz.Questions))
	copy(cp.Questions, quiz.Questions)
	rand.Shuffle(len(cp.Questions), func(i, j int) {
		cp.Questions[i], cp.Questions[j] = cp.Questions[j], cp.Questions[i]
	})
	return &cp
}
