package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlitworks/finlit-platform/internal/content"
)

// testQuiz builds a three-question quiz: two single-choice and one
// multiple-choice with two correct options.
func testQuiz(timeLimitMinutes int) *content.Quiz {
	return &content.Quiz{
		ID:               7,
		Title:            "Budgeting Basics",
		Difficulty:       content.DifficultyBeginner,
		TimeLimitMinutes: timeLimitMinutes,
		Questions: []content.Question{
			singleQuestion(1, 12),
			multiQuestion(2, 21, 23),
			singleQuestion(3, 32),
		},
	}
}

func TestSessionSelectOptionRecordsForCurrentQuestion(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), nil)

	sess.SelectOption(12)
	entry, ok := sess.Entry(1)
	require.True(t, ok)
	assert.Equal(t, []int64{12}, entry.SelectedIDs())
}

func TestSessionSelectOptionRejectsForeignOption(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), nil)

	// Option 21 belongs to question 2; the session is on question 1.
	sess.SelectOption(21)
	_, ok := sess.Entry(2)
	assert.False(t, ok)
}

func TestSessionAnswersPersistAcrossNavigation(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), nil)

	sess.SelectOption(12)
	sess.Next()
	sess.SelectOption(21)
	sess.SelectOption(23)
	sess.Previous()

	require.Equal(t, 0, sess.CurrentIndex())
	entry, ok := sess.Entry(1)
	require.True(t, ok)
	assert.Equal(t, []int64{12}, entry.SelectedIDs())

	sess.Next()
	entry, ok = sess.Entry(2)
	require.True(t, ok)
	assert.Equal(t, []int64{21, 23}, entry.SelectedIDs())
}

func TestSessionPreviousAtFirstQuestionIsNoOp(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), nil)

	sess.Previous()
	assert.Equal(t, 0, sess.CurrentIndex())
	assert.Equal(t, PhaseActive, sess.Phase())
}

func TestSessionNextAtLastQuestionFinishes(t *testing.T) {
	var finishes atomic.Int32
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), func(*Session) {
		finishes.Add(1)
	})

	sess.SelectOption(12)
	sess.Next()
	sess.Next()
	require.Equal(t, 2, sess.CurrentIndex())
	require.Equal(t, PhaseActive, sess.Phase())

	sess.Next()
	assert.Equal(t, PhaseFinished, sess.Phase())

	// Further operations after the terminal transition are no-ops.
	sess.Next()
	sess.Previous()
	sess.SelectOption(32)
	assert.Equal(t, 2, sess.CurrentIndex())
	_, ok := sess.Entry(3)
	assert.False(t, ok)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), finishes.Load(), "finish hook fires exactly once")
}

func TestSessionResultsOnlyAfterFinish(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), nil)

	_, _, ok := sess.Results()
	assert.False(t, ok)

	sess.SelectOption(12) // question 1 correct
	sess.Next()
	sess.SelectOption(21) // question 2 partial, incorrect
	sess.Next()
	sess.Next() // finish, question 3 unanswered

	score, verdicts, ok := sess.Results()
	require.True(t, ok)
	assert.Equal(t, 33, score)
	require.Len(t, verdicts, 3)
	assert.True(t, verdicts[0].Correct)
	assert.False(t, verdicts[1].Correct)
	assert.False(t, verdicts[2].Correct)
	assert.False(t, sess.FinishedAt().IsZero())
}

func TestSessionTickCountsDownAndForcesFinish(t *testing.T) {
	var finishes atomic.Int32
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(1), func(*Session) {
		finishes.Add(1)
	})

	require.Equal(t, 60, sess.TimeRemaining())
	sess.SelectOption(12)

	for i := 0; i < 59; i++ {
		assert.True(t, sess.Tick())
	}
	require.Equal(t, 1, sess.TimeRemaining())
	require.Equal(t, PhaseActive, sess.Phase())

	assert.False(t, sess.Tick(), "final tick stops the timer")
	assert.Equal(t, PhaseFinished, sess.Phase())
	assert.Equal(t, 0, sess.TimeRemaining())

	// The attempt scores with whatever the ledger holds at expiry.
	score, _, ok := sess.Results()
	require.True(t, ok)
	assert.Equal(t, 33, score)

	assert.False(t, sess.Tick(), "ticks after finish are no-ops")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), finishes.Load())
}

func TestSessionTickOnUntimedQuizIsNoOp(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), nil)

	assert.False(t, sess.Tick())
	assert.Equal(t, PhaseActive, sess.Phase())
}

func TestSessionRestartResetsEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var finishes atomic.Int32
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(1), func(*Session) {
		finishes.Add(1)
	})

	sess.SelectOption(12)
	sess.Next()
	sess.Next()
	sess.Next() // finish
	require.Equal(t, PhaseFinished, sess.Phase())

	sess.Restart(ctx)

	assert.Equal(t, PhaseActive, sess.Phase())
	assert.Equal(t, 0, sess.CurrentIndex())
	assert.Equal(t, 60, sess.TimeRemaining())
	_, ok := sess.Entry(1)
	assert.False(t, ok, "restart clears the ledger")
	_, _, resultsOK := sess.Results()
	assert.False(t, resultsOK)

	// Finishing the second attempt fires the hook again: once per attempt.
	sess.Next()
	sess.Next()
	sess.Next()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), finishes.Load())
}

func TestSessionRestartWhileActive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := newSession(uuid.New(), uuid.Nil, testQuiz(1), nil)
	sess.SelectOption(12)
	sess.Next()

	sess.Restart(ctx)

	assert.Equal(t, 0, sess.CurrentIndex())
	assert.False(t, sess.Phase() == PhaseFinished)
	_, ok := sess.Entry(1)
	assert.False(t, ok)
}

func TestSessionSubscribeReceivesPhaseEvent(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(0), nil)
	ch := sess.Subscribe()
	defer sess.Unsubscribe(ch)

	sess.Next()
	sess.Next()
	sess.Next() // finish publishes a phase event

	select {
	case ev := <-ch:
		assert.Equal(t, "phase", ev.Type)
		assert.Equal(t, PhaseFinished, ev.Phase)
	case <-time.After(time.Second):
		t.Fatal("expected a phase event")
	}
}

func TestSessionTickPublishesToSubscribers(t *testing.T) {
	sess := newSession(uuid.New(), uuid.Nil, testQuiz(1), nil)
	ch := sess.Subscribe()
	defer sess.Unsubscribe(ch)

	sess.Tick()

	select {
	case ev := <-ch:
		assert.Equal(t, "tick", ev.Type)
		assert.Equal(t, 59, ev.TimeRemaining)
	case <-time.After(time.Second):
		t.Fatal("expected a tick event")
	}
}
