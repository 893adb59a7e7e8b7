package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshotStore(t *testing.T) (*SnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshotStore(client, time.Hour, zerolog.New(io.Discard)), mr
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	ctx := context.Background()
	id := uuid.New()

	miss, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, miss)

	snap := Snapshot{
		SessionID:     id,
		QuizID:        7,
		Phase:         PhaseActive,
		CurrentIndex:  1,
		TimeRemaining: 42,
		Answers:       map[int64][]int64{1: {12}, 2: {21, 23}},
	}
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.QuizID)
	assert.Equal(t, 1, got.CurrentIndex)
	assert.Equal(t, []int64{21, 23}, got.Answers[2])
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, id))
	gone, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSnapshotStoreExpires(t *testing.T) {
	store, mr := newTestSnapshotStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Save(ctx, Snapshot{SessionID: id}))
	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotOfCapturesLedger(t *testing.T) {
	sess := newSession(uuid.New(), uuid.New(), testQuiz(1), nil)
	sess.SelectOption(12)
	sess.Next()
	sess.SelectOption(21)
	sess.SelectOption(23)

	snap := snapshotOf(sess)

	assert.Equal(t, sess.ID, snap.SessionID)
	assert.Equal(t, sess.UserID, snap.UserID)
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, 60, snap.TimeRemaining)
	assert.Equal(t, []int64{12}, snap.Answers[1])
	assert.Equal(t, []int64{21, 23}, snap.Answers[2])
}
