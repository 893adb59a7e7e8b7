package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts a pgx pool or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides access to glossary and quiz content in Postgres.
type Repository struct {
	db DBTX
}

// NewRepository creates a content repository over the provided pool.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

type txStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// inTx runs fn inside a transaction when the underlying DBTX can open one.
// Multi-statement writes go through here so a mid-write failure never leaves
// a question with a partial option set.
func (r *Repository) inTx(ctx context.Context, fn func(db DBTX) error) error {
	starter, ok := r.db.(txStarter)
	if !ok {
		return fn(r.db)
	}

	tx, err := starter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetQuiz loads a quiz with its questions and options in display order.
func (r *Repository) GetQuiz(ctx context.Context, id int64) (*Quiz, error) {
	query := `
		SELECT id, title, description, difficulty, time_limit_minutes, randomize_questions, created_at, updated_at
		FROM quizzes
		WHERE id = $1
	`

	var quiz Quiz
	err := r.db.QueryRow(ctx, query, id).Scan(
		&quiz.ID,
		&quiz.Title,
		&quiz.Description,
		&quiz.Difficulty,
		&quiz.TimeLimitMinutes,
		&quiz.RandomizeQuestions,
		&quiz.CreatedAt,
		&quiz.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	questions, err := r.questionsForQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	quiz.Questions = questions

	return &quiz, nil
}

// ListQuizzes returns quiz metadata without questions.
func (r *Repository) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	query := `
		SELECT id, title, description, difficulty, time_limit_minutes, randomize_questions, created_at, updated_at
		FROM quizzes
		ORDER BY title
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []Quiz
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(
			&q.ID,
			&q.Title,
			&q.Description,
			&q.Difficulty,
			&q.TimeLimitMinutes,
			&q.RandomizeQuestions,
			&q.CreatedAt,
			&q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (r *Repository) questionsForQuiz(ctx context.Context, quizID int64) ([]Question, error) {
	query := `
		SELECT id, quiz_id, question_text, question_type, category, difficulty, explanation
		FROM questions
		WHERE quiz_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &q.Category, &q.Difficulty, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		options, err := r.optionsForQuestion(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = options
	}
	return questions, nil
}

func (r *Repository) optionsForQuestion(ctx context.Context, questionID int64) ([]Option, error) {
	query := `
		SELECT id, question_id, option_text, option_order, is_correct
		FROM options
		WHERE question_id = $1
		ORDER BY option_order
	`

	rows, err := r.db.Query(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Order, &o.Correct); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// CreateQuiz inserts a quiz and returns its id.
func (r *Repository) CreateQuiz(ctx context.Context, quiz *Quiz) (int64, error) {
	query := `
		INSERT INTO quizzes (title, description, difficulty, time_limit_minutes, randomize_questions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		quiz.Title, quiz.Description, quiz.Difficulty, quiz.TimeLimitMinutes, quiz.RandomizeQuestions,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create quiz: %w", err)
	}
	return id, nil
}

// UpdateQuiz updates quiz metadata.
func (r *Repository) UpdateQuiz(ctx context.Context, quiz *Quiz) error {
	query := `
		UPDATE quizzes
		SET title = $1, description = $2, difficulty = $3, time_limit_minutes = $4,
		    randomize_questions = $5, updated_at = now()
		WHERE id = $6
	`

	tag, err := r.db.Exec(ctx, query,
		quiz.Title, quiz.Description, quiz.Difficulty, quiz.TimeLimitMinutes, quiz.RandomizeQuestions, quiz.ID,
	)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuizNotFound
	}
	return nil
}

// DeleteQuiz removes a quiz; questions and options cascade.
func (r *Repository) DeleteQuiz(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuizNotFound
	}
	return nil
}

// CreateQuestion inserts a question with its options.
func (r *Repository) CreateQuestion(ctx context.Context, q *Question) (int64, error) {
	query := `
		INSERT INTO questions (quiz_id, question_text, question_type, category, difficulty, explanation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.inTx(ctx, func(db DBTX) error {
		if err := db.QueryRow(ctx, query, q.QuizID, q.Text, q.Type, q.Category, q.Difficulty, q.Explanation).Scan(&id); err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		return insertOptions(ctx, db, id, q.Options)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ReplaceQuestion updates a question and rewrites its option set.
func (r *Repository) ReplaceQuestion(ctx context.Context, q *Question) error {
	query := `
		UPDATE questions
		SET question_text = $1, question_type = $2, category = $3, difficulty = $4, explanation = $5
		WHERE id = $6
	`

	return r.inTx(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx, query, q.Text, q.Type, q.Category, q.Difficulty, q.Explanation, q.ID)
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		if _, err := db.Exec(ctx, `DELETE FROM options WHERE question_id = $1`, q.ID); err != nil {
			return fmt.Errorf("clear options: %w", err)
		}
		return insertOptions(ctx, db, q.ID, q.Options)
	})
}

func insertOptions(ctx context.Context, db DBTX, questionID int64, options []Option) error {
	for _, opt := range options {
		if _, err := db.Exec(ctx,
			`INSERT INTO options (question_id, option_text, option_order, is_correct) VALUES ($1, $2, $3, $4)`,
			questionID, opt.Text, opt.Order, opt.Correct,
		); err != nil {
			return fmt.Errorf("create option: %w", err)
		}
	}
	return nil
}

// DeleteQuestion removes a question; options cascade.
func (r *Repository) DeleteQuestion(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// QuizIDForQuestion resolves which quiz a question belongs to.
func (r *Repository) QuizIDForQuestion(ctx context.Context, questionID int64) (int64, error) {
	var quizID int64
	err := r.db.QueryRow(ctx, `SELECT quiz_id FROM questions WHERE id = $1`, questionID).Scan(&quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, pgx.ErrNoRows
		}
		return 0, fmt.Errorf("quiz id for question: %w", err)
	}
	return quizID, nil
}

// ListTerms returns glossary terms, optionally filtered by category.
func (r *Repository) ListTerms(ctx context.Context, category string) ([]Term, error) {
	query := `
		SELECT id, word, definition, example, category, slug, created_at, updated_at
		FROM terms
		WHERE ($1 = '' OR category = $1)
		ORDER BY word
	`

	rows, err := r.db.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	return scanTerms(rows)
}

// SearchTerms matches words and definitions against a case-insensitive query.
func (r *Repository) SearchTerms(ctx context.Context, q string) ([]Term, error) {
	query := `
		SELECT id, word, definition, example, category, slug, created_at, updated_at
		FROM terms
		WHERE word ILIKE '%' || $1 || '%' OR definition ILIKE '%' || $1 || '%'
		ORDER BY word
	`

	rows, err := r.db.Query(ctx, query, q)
	if err != nil {
		return nil, fmt.Errorf("search terms: %w", err)
	}
	defer rows.Close()

	return scanTerms(rows)
}

// GetTermBySlug fetches one glossary term.
func (r *Repository) GetTermBySlug(ctx context.Context, slug string) (*Term, error) {
	query := `
		SELECT id, word, definition, example, category, slug, created_at, updated_at
		FROM terms
		WHERE slug = $1
	`

	var t Term
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&t.ID, &t.Word, &t.Definition, &t.Example, &t.Category, &t.Slug, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTermNotFound
		}
		return nil, fmt.Errorf("get term: %w", err)
	}
	return &t, nil
}

// CreateTerm inserts a glossary term.
func (r *Repository) CreateTerm(ctx context.Context, t *Term) (int64, error) {
	query := `
		INSERT INTO terms (word, definition, example, category, slug)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query, t.Word, t.Definition, t.Example, t.Category, t.Slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create term: %w", err)
	}
	return id, nil
}

// UpdateTerm updates a glossary term.
func (r *Repository) UpdateTerm(ctx context.Context, t *Term) error {
	query := `
		UPDATE terms
		SET word = $1, definition = $2, example = $3, category = $4, slug = $5, updated_at = now()
		WHERE id = $6
	`

	tag, err := r.db.Exec(ctx, query, t.Word, t.Definition, t.Example, t.Category, t.Slug, t.ID)
	if err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTermNotFound
	}
	return nil
}

// DeleteTerm removes a glossary term.
func (r *Repository) DeleteTerm(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM terms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTermNotFound
	}
	return nil
}

// IncrementQuestionStat bumps the attempt counters for one question.
func (r *Repository) IncrementQuestionStat(ctx context.Context, questionID int64, wasCorrect bool) error {
	query := `
		INSERT INTO question_stats (question_id, times_answered, times_correct)
		VALUES ($1, 1, CASE WHEN $2 THEN 1 ELSE 0 END)
		ON CONFLICT (question_id) DO UPDATE
		SET times_answered = question_stats.times_answered + 1,
		    times_correct = question_stats.times_correct + CASE WHEN $2 THEN 1 ELSE 0 END
	`

	if _, err := r.db.Exec(ctx, query, questionID, wasCorrect); err != nil {
		return fmt.Errorf("increment question stat: %w", err)
	}
	return nil
}

// GetQuestionStat reads the counters for one question. Missing rows read as zero.
func (r *Repository) GetQuestionStat(ctx context.Context, questionID int64) (QuestionStat, error) {
	query := `
		SELECT question_id, times_answered, times_correct
		FROM question_stats
		WHERE question_id = $1
	`

	var stat QuestionStat
	err := r.db.QueryRow(ctx, query, questionID).Scan(&stat.QuestionID, &stat.TimesAnswered, &stat.TimesCorrect)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuestionStat{QuestionID: questionID}, nil
		}
		return QuestionStat{}, fmt.Errorf("get question stat: %w", err)
	}
	return stat, nil
}

func scanTerms(rows pgx.Rows) ([]Term, error) {
	var terms []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Word, &t.Definition, &t.Example, &t.Category, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
