package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StatSink receives per-question attempt counters (implemented by the
// content service over Postgres).
type StatSink interface {
	IncrementQuestionStat(ctx context.Context, questionID int64, wasCorrect bool) error
}

type statEvent struct {
	questionID int64
	correct    bool
}

// Reporter persists question stats in the background. Writes are fire and
// forget: each question is an independent write, a failure is logged and
// counted but never retried and never surfaced to the user.
type Reporter struct {
	sink      StatSink
	queue     chan statEvent
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
}

func NewReporter(sink StatSink, queueSize int, timeout time.Duration, logger zerolog.Logger) *Reporter {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Reporter{
		sink:      sink,
		queue:     make(chan statEvent, queueSize),
		logger:    logger.With().Str("component", "stats_reporter").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

// Report enqueues one event per verdict. Non-blocking: when the queue is
// full the event is dropped and counted rather than stalling the caller.
func (r *Reporter) Report(verdicts []Verdict) {
	for _, v := range verdicts {
		select {
		case r.queue <- statEvent{questionID: v.QuestionID, correct: v.Correct}:
		default:
			statQueueDrops.Inc()
			r.logger.Warn().Int64("question_id", v.QuestionID).Msg("stat queue full, dropping event")
		}
	}
}

// Run drains the queue until Stop is called.
func (r *Reporter) Run() {
	for {
		select {
		case <-r.shutdownC:
			r.logger.Info().Msg("stats reporter stopping")
			return
		case ev := <-r.queue:
			r.handle(ev)
		}
	}
}

func (r *Reporter) handle(ev statEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.sink.IncrementQuestionStat(ctx, ev.questionID, ev.correct); err != nil {
		statWriteFailures.Inc()
		r.logger.Warn().Err(err).Int64("question_id", ev.questionID).Msg("stat write failed")
	}
}

// Stop terminates the worker loop.
func (r *Reporter) Stop() {
	close(r.shutdownC)
}
