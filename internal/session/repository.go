package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Attempt is a finished quiz attempt persisted for history views.
type Attempt struct {
	ID           int64     `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	UserID       uuid.UUID `json:"user_id"`
	QuizID       int64     `json:"quiz_id"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correct_count"`
	Total        int       `json:"total"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// DBTX abstracts a pgx pool or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AttemptRepository stores finished attempts in Postgres.
type AttemptRepository struct {
	db DBTX
}

func NewAttemptRepository(db DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Insert records one finished attempt.
func (r *AttemptRepository) Insert(ctx context.Context, a *Attempt) (int64, error) {
	query := `
		INSERT INTO quiz_attempts (session_id, user_id, quiz_id, score, correct_count, total, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		a.SessionID, a.UserID, a.QuizID, a.Score, a.CorrectCount, a.Total, a.StartedAt, a.FinishedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

// ListByUser returns a user's attempt history, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, user_id, quiz_id, score, correct_count, total, started_at, finished_at
		FROM quiz_attempts
		WHERE user_id = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.UserID, &a.QuizID, &a.Score, &a.CorrectCount, &a.Total, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
