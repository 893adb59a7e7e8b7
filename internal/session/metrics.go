package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_started_total",
		Help: "Quiz sessions created.",
	})
	sessionsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_finished_total",
		Help: "Quiz sessions that reached the finished phase.",
	})
	statWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "question_stat_write_failures_total",
		Help: "Per-question stat increments that failed to persist.",
	})
	statQueueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "question_stat_queue_drops_total",
		Help: "Stat events dropped because the reporter queue was full.",
	})
)
