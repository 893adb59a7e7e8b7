package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB stands in for a pgxpool.Pool: it hands out fakeTx transactions and
// records every statement they run.
type fakeDB struct {
	execs     []string
	updateTag string // tag returned for UPDATE statements, default "UPDATE 1"
	failOn    string // statements containing this substring fail
	failAfter int    // number of matching statements that succeed first
	tx        *fakeTx
}

func (d *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (d *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{id: 1}
}

func (d *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	d.tx = &fakeTx{db: d}
	return d.tx, nil
}

type fakeTx struct {
	pgx.Tx

	db         *fakeDB
	matched    int
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.db.execs = append(t.db.execs, sql)
	if t.db.failOn != "" && strings.Contains(sql, t.db.failOn) {
		t.matched++
		if t.matched > t.db.failAfter {
			return pgconn.CommandTag{}, errors.New("exec failed")
		}
	}
	if strings.HasPrefix(strings.TrimSpace(sql), "UPDATE") {
		tag := t.db.updateTag
		if tag == "" {
			tag = "UPDATE 1"
		}
		return pgconn.NewCommandTag(tag), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	t.db.execs = append(t.db.execs, sql)
	return fakeRow{id: 42}
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeRow struct {
	id int64
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) > 0 {
		if p, ok := dest[0].(*int64); ok {
			*p = r.id
		}
	}
	return nil
}

func replaceableQuestion() *Question {
	return &Question{
		ID:     10,
		QuizID: 1,
		Text:   "What does APR stand for?",
		Type:   TypeSingleChoice,
		Options: []Option{
			{Text: "Annual Percentage Rate", Order: 1, Correct: true},
			{Text: "Average Payment Ratio", Order: 2},
		},
	}
}

func TestCreateQuestionCommitsOptionsWithQuestion(t *testing.T) {
	db := &fakeDB{}
	repo := NewRepository(db)

	q := replaceableQuestion()
	id, err := repo.CreateQuestion(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NotNil(t, db.tx)
	assert.True(t, db.tx.committed)
	assert.False(t, db.tx.rolledBack)
}

func TestCreateQuestionRollsBackOnOptionFailure(t *testing.T) {
	db := &fakeDB{failOn: "INSERT INTO options", failAfter: 1}
	repo := NewRepository(db)

	_, err := repo.CreateQuestion(context.Background(), replaceableQuestion())

	require.Error(t, err)
	require.NotNil(t, db.tx)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
}

func TestReplaceQuestionCommitsRewrite(t *testing.T) {
	db := &fakeDB{}
	repo := NewRepository(db)

	err := repo.ReplaceQuestion(context.Background(), replaceableQuestion())

	require.NoError(t, err)
	require.NotNil(t, db.tx)
	assert.True(t, db.tx.committed)

	require.Len(t, db.execs, 4)
	assert.Contains(t, db.execs[0], "UPDATE questions")
	assert.Contains(t, db.execs[1], "DELETE FROM options")
	assert.Contains(t, db.execs[2], "INSERT INTO options")
}

func TestReplaceQuestionRollsBackOnOptionFailure(t *testing.T) {
	db := &fakeDB{failOn: "INSERT INTO options", failAfter: 1}
	repo := NewRepository(db)

	err := repo.ReplaceQuestion(context.Background(), replaceableQuestion())

	require.Error(t, err)
	require.NotNil(t, db.tx)
	assert.False(t, db.tx.committed, "a half-written option set must not commit")
	assert.True(t, db.tx.rolledBack)
}

func TestReplaceQuestionUnknownIDRollsBack(t *testing.T) {
	db := &fakeDB{updateTag: "UPDATE 0"}
	repo := NewRepository(db)

	err := repo.ReplaceQuestion(context.Background(), replaceableQuestion())

	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.NotNil(t, db.tx)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
}
