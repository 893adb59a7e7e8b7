package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Snapshot is the serializable view of a live session, kept in Redis so a
// restarted API instance can show users where an attempt left off.
type Snapshot struct {
	SessionID     uuid.UUID         `json:"session_id"`
	UserID        uuid.UUID         `json:"user_id"`
	QuizID        int64             `json:"quiz_id"`
	Phase         Phase             `json:"phase"`
	CurrentIndex  int               `json:"current_index"`
	TimeRemaining int               `json:"time_remaining"`
	Answers       map[int64][]int64 `json:"answers"`
	Score         int               `json:"score"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// SnapshotStore persists session snapshots with a TTL.
type SnapshotStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SnapshotStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SnapshotStore{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_snapshots").Logger(),
	}
}

func snapshotKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:snapshot:%s", sessionID.String())
}

// Save writes the snapshot, refreshing the TTL.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	snap.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, snapshotKey(snap.SessionID), data, s.ttl).Err()
}

// Get retrieves a snapshot; nil without error when none exists.
func (s *SnapshotStore) Get(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete drops a snapshot once the session is torn down.
func (s *SnapshotStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return s.redis.Del(ctx, snapshotKey(sessionID)).Err()
}

// snapshotOf captures a session under its own accessors.
func snapshotOf(s *Session) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[int64][]int64, len(s.ledger))
	for qid, entry := range s.ledger {
		answers[qid] = entry.SelectedIDs()
	}
	return Snapshot{
		SessionID:     s.ID,
		UserID:        s.UserID,
		QuizID:        s.quiz.ID,
		Phase:         s.phase,
		CurrentIndex:  s.index,
		TimeRemaining: s.remaining,
		Answers:       answers,
		Score:         s.score,
	}
}
