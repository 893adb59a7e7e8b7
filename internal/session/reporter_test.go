package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubStatSink struct {
	mu    sync.Mutex
	calls []statEvent
	err   error
}

func (s *stubStatSink) IncrementQuestionStat(_ context.Context, questionID int64, wasCorrect bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statEvent{questionID: questionID, correct: wasCorrect})
	return s.err
}

func (s *stubStatSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestReporterWritesOneStatPerVerdict(t *testing.T) {
	sink := &stubStatSink{}
	reporter := NewReporter(sink, 16, time.Second, zerolog.New(io.Discard))

	go reporter.Run()
	defer reporter.Stop()

	reporter.Report([]Verdict{
		{QuestionID: 1, Correct: true},
		{QuestionID: 2, Correct: false},
		{QuestionID: 3, Correct: true},
	})

	assert.Eventually(t, func() bool {
		return sink.callCount() == 3
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, statEvent{questionID: 1, correct: true}, sink.calls[0])
	assert.Equal(t, statEvent{questionID: 2, correct: false}, sink.calls[1])
}

func TestReporterDropsWhenQueueFull(t *testing.T) {
	sink := &stubStatSink{}
	reporter := NewReporter(sink, 2, time.Second, zerolog.New(io.Discard))
	// Worker not running: only the buffered events survive.

	reporter.Report([]Verdict{
		{QuestionID: 1}, {QuestionID: 2}, {QuestionID: 3}, {QuestionID: 4},
	})

	go reporter.Run()
	defer reporter.Stop()

	assert.Eventually(t, func() bool {
		return sink.callCount() == 2
	}, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, sink.callCount(), "overflow events are dropped, not queued")
}

func TestReporterSwallowsSinkErrors(t *testing.T) {
	sink := &stubStatSink{err: errors.New("db down")}
	reporter := NewReporter(sink, 16, time.Second, zerolog.New(io.Discard))

	go reporter.Run()
	defer reporter.Stop()

	reporter.Report([]Verdict{{QuestionID: 1, Correct: true}, {QuestionID: 2}})

	// Failures are logged and counted; the loop keeps draining.
	assert.Eventually(t, func() bool {
		return sink.callCount() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestReporterDefaultsQueueAndTimeout(t *testing.T) {
	reporter := NewReporter(&stubStatSink{}, 0, 0, zerolog.New(io.Discard))

	assert.Equal(t, 256, cap(reporter.queue))
	assert.Equal(t, 4*time.Second, reporter.timeout)
}
