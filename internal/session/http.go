package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finlitworks/finlit-platform/internal/content"
	"github.com/finlitworks/finlit-platform/internal/identity"
	httperrors "github.com/finlitworks/finlit-platform/pkg/http/errors"
)

// HTTPHandlers exposes the session engine to the presentation layer.
type HTTPHandlers struct {
	manager *Manager
	logger  zerolog.Logger
}

func NewHTTPHandlers(manager *Manager, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager: manager,
		logger:  logger.With().Str("component", "session_http").Logger(),
	}
}

// optionView hides is_correct from clients while a session is live.
type optionView struct {
	ID     int64  `json:"id"`
	Text   string `json:"option_text"`
	Order  int    `json:"option_order"`
	Letter string `json:"letter"`
}

type questionView struct {
	ID          int64        `json:"id"`
	Text        string       `json:"question_text"`
	Type        string       `json:"question_type"`
	Category    string       `json:"category"`
	Difficulty  string       `json:"difficulty"`
	Options     []optionView `json:"options"`
	SelectedIDs []int64      `json:"selected_option_ids"`
}

type stateResponse struct {
	SessionID     uuid.UUID    `json:"session_id"`
	QuizID        int64        `json:"quiz_id"`
	QuizTitle     string       `json:"quiz_title"`
	Phase         Phase        `json:"phase"`
	CurrentIndex  int          `json:"current_index"`
	QuestionCount int          `json:"question_count"`
	TimeRemaining int          `json:"time_remaining"`
	Timed         bool         `json:"timed"`
	Question      questionView `json:"question"`
}

// StartSession handles POST /v1/sessions
func (h *HTTPHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quiz string `json:"quiz"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quiz == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "quiz identifier is required")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	sess, err := h.manager.Start(r.Context(), req.Quiz, userID)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrQuizNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "Quiz not found")
		case errors.Is(err, content.ErrNoQuestions):
			httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeQuizEmpty, "Quiz has no questions")
		default:
			h.logger.Error().Err(err).Str("quiz", req.Quiz).Msg("session start failed")
			httperrors.RespondBadGateway(w, httperrors.ErrCodeContentStoreUnavailable, "Content store unavailable, try again")
		}
		return
	}

	h.respondState(w, http.StatusCreated, sess)
}

// GetState handles GET /v1/sessions/{id}. When the live session has been
// evicted it falls back to the stored snapshot so clients can still see
// where the attempt left off.
func (h *HTTPHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid session id")
		return
	}

	sess, err := h.manager.Get(id)
	if err != nil {
		h.respondSnapshot(w, r, id)
		return
	}
	if sess.UserID != uuid.Nil && sess.UserID != identity.UserIDFromContext(r.Context()) {
		httperrors.RespondForbidden(w, httperrors.ErrCodeSessionNotOwned, "Session belongs to another user")
		return
	}
	h.respondState(w, http.StatusOK, sess)
}

// EndSession handles DELETE /v1/sessions/{id}
func (h *HTTPHandlers) EndSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.manager.Remove(r.Context(), sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// SelectOption handles POST /v1/sessions/{id}/select
func (h *HTTPHandlers) SelectOption(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		OptionID int64 `json:"option_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	if sess.Phase() == PhaseFinished {
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionFinished, "Session already finished")
		return
	}

	sess.SelectOption(req.OptionID)
	h.respondState(w, http.StatusOK, sess)
}

// Next handles POST /v1/sessions/{id}/next
func (h *HTTPHandlers) Next(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Next()
	h.respondState(w, http.StatusOK, sess)
}

// Previous handles POST /v1/sessions/{id}/previous
func (h *HTTPHandlers) Previous(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Previous()
	h.respondState(w, http.StatusOK, sess)
}

// Restart handles POST /v1/sessions/{id}/restart
func (h *HTTPHandlers) Restart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	sess, err := h.manager.Restart(sess.ID)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
		return
	}
	h.respondState(w, http.StatusOK, sess)
}

// Results handles GET /v1/sessions/{id}/results
func (h *HTTPHandlers) Results(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	score, verdicts, finished := sess.Results()
	if !finished {
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionNotScored, "Session is still active")
		return
	}

	correct := 0
	for _, v := range verdicts {
		if v.Correct {
			correct++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":       sess.ID,
		"quiz_id":          sess.Quiz().ID,
		"score_percentage": score,
		"correct_count":    correct,
		"question_count":   len(verdicts),
		"verdicts":         verdicts,
	})
}

// Attempts handles GET /v1/attempts, returning the caller's persisted history.
func (h *HTTPHandlers) Attempts(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	attempts, err := h.manager.Attempts(r.Context(), userID, 50)
	if err != nil {
		h.logger.Error().Err(err).Msg("attempt history fetch failed")
		httperrors.RespondInternalError(w, "Could not load attempt history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

// session resolves the {id} path value and enforces ownership for sessions
// started by an authenticated user.
func (h *HTTPHandlers) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid session id")
		return nil, false
	}

	sess, err := h.manager.Get(id)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
		return nil, false
	}

	if sess.UserID != uuid.Nil && sess.UserID != identity.UserIDFromContext(r.Context()) {
		httperrors.RespondForbidden(w, httperrors.ErrCodeSessionNotOwned, "Session belongs to another user")
		return nil, false
	}
	return sess, true
}

// respondSnapshot serves the last stored snapshot for a session that is no
// longer held in memory. 410 tells the client the live session is gone while
// the snapshot carries its final state.
func (h *HTTPHandlers) respondSnapshot(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	snap, err := h.manager.Snapshot(r.Context(), id)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", id.String()).Msg("snapshot read failed")
	}
	if snap == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
		return
	}

	if snap.UserID != uuid.Nil && snap.UserID != identity.UserIDFromContext(r.Context()) {
		httperrors.RespondForbidden(w, httperrors.ErrCodeSessionNotOwned, "Session belongs to another user")
		return
	}

	respondJSON(w, http.StatusGone, map[string]any{
		"error":    httperrors.ErrCodeSessionExpired,
		"message":  "Session is no longer live",
		"snapshot": snap,
	})
}

func (h *HTTPHandlers) respondState(w http.ResponseWriter, status int, sess *Session) {
	quiz := sess.Quiz()
	q := sess.CurrentQuestion()

	options := make([]optionView, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, optionView{ID: opt.ID, Text: opt.Text, Order: opt.Order, Letter: opt.Letter()})
	}

	var selected []int64
	if entry, ok := sess.Entry(q.ID); ok {
		selected = entry.SelectedIDs()
	}

	respondJSON(w, status, stateResponse{
		SessionID:     sess.ID,
		QuizID:        quiz.ID,
		QuizTitle:     quiz.Title,
		Phase:         sess.Phase(),
		CurrentIndex:  sess.CurrentIndex(),
		QuestionCount: len(quiz.Questions),
		TimeRemaining: sess.TimeRemaining(),
		Timed:         quiz.TimeLimitMinutes > 0,
		Question: questionView{
			ID:          q.ID,
			Text:        q.Text,
			Type:        q.Type,
			Category:    q.Category,
			Difficulty:  q.Difficulty,
			Options:     options,
			SelectedIDs: selected,
		},
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
