package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/finlitworks/finlit-platform/internal/content"
	httperrors "github.com/finlitworks/finlit-platform/pkg/http/errors"
)

// Store is the write surface the admin console needs.
type Store interface {
	CreateQuiz(ctx context.Context, quiz *content.Quiz) (int64, error)
	UpdateQuiz(ctx context.Context, quiz *content.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error
	CreateQuestion(ctx context.Context, q *content.Question) (int64, error)
	ReplaceQuestion(ctx context.Context, q *content.Question) error
	DeleteQuestion(ctx context.Context, id int64) error
	CreateTerm(ctx context.Context, t *content.Term) (int64, error)
	UpdateTerm(ctx context.Context, t *content.Term) error
	DeleteTerm(ctx context.Context, id int64) error
	GetQuestionStat(ctx context.Context, questionID int64) (content.QuestionStat, error)
	QuizIDForQuestion(ctx context.Context, questionID int64) (int64, error)
}

// HTTPHandlers implements the admin console API. Every route is mounted
// behind the admin middleware; handlers assume the caller is authorized.
type HTTPHandlers struct {
	store  Store
	cache  content.ReadCache
	logger zerolog.Logger
}

func NewHTTPHandlers(store Store, cache content.ReadCache, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "admin_http").Logger(),
	}
}

type quizRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	Difficulty         string `json:"difficulty"`
	TimeLimitMinutes   int    `json:"time_limit_minutes"`
	RandomizeQuestions bool   `json:"randomize_questions"`
}

func (r quizRequest) validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	switch r.Difficulty {
	case content.DifficultyBeginner, content.DifficultyIntermediate, content.DifficultyAdvanced:
	default:
		return errors.New("difficulty must be beginner, intermediate or advanced")
	}
	if r.TimeLimitMinutes < 0 {
		return errors.New("time_limit_minutes must not be negative")
	}
	return nil
}

// CreateQuiz handles POST /v1/admin/quizzes
func (h *HTTPHandlers) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if err := req.validate(); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		return
	}

	quiz := &content.Quiz{
		Title:              req.Title,
		Description:        req.Description,
		Difficulty:         req.Difficulty,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		RandomizeQuestions: req.RandomizeQuestions,
	}
	id, err := h.store.CreateQuiz(r.Context(), quiz)
	if err != nil {
		h.logger.Error().Err(err).Msg("create quiz failed")
		httperrors.RespondInternalError(w, "Could not create quiz")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "slug": quiz.Slug()})
}

// UpdateQuiz handles PUT /v1/admin/quizzes/{id}
func (h *HTTPHandlers) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if err := req.validate(); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		return
	}

	quiz := &content.Quiz{
		ID:                 id,
		Title:              req.Title,
		Description:        req.Description,
		Difficulty:         req.Difficulty,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		RandomizeQuestions: req.RandomizeQuestions,
	}
	if err := h.store.UpdateQuiz(r.Context(), quiz); err != nil {
		if errors.Is(err, content.ErrQuizNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "Quiz not found")
			return
		}
		h.logger.Error().Err(err).Int64("quiz_id", id).Msg("update quiz failed")
		httperrors.RespondInternalError(w, "Could not update quiz")
		return
	}

	h.invalidateQuiz(r.Context(), id)
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "slug": quiz.Slug()})
}

// DeleteQuiz handles DELETE /v1/admin/quizzes/{id}
func (h *HTTPHandlers) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteQuiz(r.Context(), id); err != nil {
		if errors.Is(err, content.ErrQuizNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "Quiz not found")
			return
		}
		h.logger.Error().Err(err).Int64("quiz_id", id).Msg("delete quiz failed")
		httperrors.RespondInternalError(w, "Could not delete quiz")
		return
	}

	h.invalidateQuiz(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

type questionRequest struct {
	Text        string `json:"question_text"`
	Type        string `json:"question_type"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Explanation string `json:"explanation"`
	Options     []struct {
		Text    string `json:"option_text"`
		Order   int    `json:"option_order"`
		Correct bool   `json:"is_correct"`
	} `json:"options"`
}

func (req questionRequest) toQuestion(quizID, questionID int64) content.Question {
	q := content.Question{
		ID:          questionID,
		QuizID:      quizID,
		Text:        req.Text,
		Type:        req.Type,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Explanation: req.Explanation,
	}
	for _, o := range req.Options {
		q.Options = append(q.Options, content.Option{Text: o.Text, Order: o.Order, Correct: o.Correct})
	}
	return q
}

// CreateQuestion handles POST /v1/admin/quizzes/{id}/questions
func (h *HTTPHandlers) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	q := req.toQuestion(quizID, 0)
	if err := content.ValidateQuestion(q); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		return
	}

	id, err := h.store.CreateQuestion(r.Context(), &q)
	if err != nil {
		h.logger.Error().Err(err).Int64("quiz_id", quizID).Msg("create question failed")
		httperrors.RespondInternalError(w, "Could not create question")
		return
	}

	h.invalidateQuiz(r.Context(), quizID)
	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// UpdateQuestion handles PUT /v1/admin/questions/{id}
func (h *HTTPHandlers) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	q := req.toQuestion(0, id)
	if err := content.ValidateQuestion(q); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		return
	}

	quizID, err := h.store.QuizIDForQuestion(r.Context(), id)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Question not found")
		return
	}

	if err := h.store.ReplaceQuestion(r.Context(), &q); err != nil {
		h.logger.Error().Err(err).Int64("question_id", id).Msg("update question failed")
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Question not found")
		return
	}

	h.invalidateQuiz(r.Context(), quizID)
	respondJSON(w, http.StatusOK, map[string]any{"id": id})
}

// DeleteQuestion handles DELETE /v1/admin/questions/{id}
func (h *HTTPHandlers) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	quizID, err := h.store.QuizIDForQuestion(r.Context(), id)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Question not found")
		return
	}

	if err := h.store.DeleteQuestion(r.Context(), id); err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Question not found")
		return
	}

	h.invalidateQuiz(r.Context(), quizID)
	w.WriteHeader(http.StatusNoContent)
}

// QuestionStats handles GET /v1/admin/questions/{id}/stats
func (h *HTTPHandlers) QuestionStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	stat, err := h.store.GetQuestionStat(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Int64("question_id", id).Msg("stat read failed")
		httperrors.RespondInternalError(w, "Could not read question stats")
		return
	}
	respondJSON(w, http.StatusOK, stat)
}

type termRequest struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
	Category   string `json:"category"`
}

func (r termRequest) validate() error {
	if r.Word == "" || r.Definition == "" {
		return errors.New("word and definition are required")
	}
	return nil
}

// CreateTerm handles POST /v1/admin/terms
func (h *HTTPHandlers) CreateTerm(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if err := req.validate(); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		return
	}

	term := &content.Term{
		Word:       req.Word,
		Definition: req.Definition,
		Example:    req.Example,
		Category:   req.Category,
		Slug:       content.Slugify(req.Word),
	}
	id, err := h.store.CreateTerm(r.Context(), term)
	if err != nil {
		h.logger.Error().Err(err).Msg("create term failed")
		httperrors.RespondInternalError(w, "Could not create term")
		return
	}

	h.invalidateTerms(r.Context())
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "slug": term.Slug})
}

// UpdateTerm handles PUT /v1/admin/terms/{id}
func (h *HTTPHandlers) UpdateTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if err := req.validate(); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		return
	}

	term := &content.Term{
		ID:         id,
		Word:       req.Word,
		Definition: req.Definition,
		Example:    req.Example,
		Category:   req.Category,
		Slug:       content.Slugify(req.Word),
	}
	if err := h.store.UpdateTerm(r.Context(), term); err != nil {
		if errors.Is(err, content.ErrTermNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeTermNotFound, "Term not found")
			return
		}
		h.logger.Error().Err(err).Int64("term_id", id).Msg("update term failed")
		httperrors.RespondInternalError(w, "Could not update term")
		return
	}

	h.invalidateTerms(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "slug": term.Slug})
}

// DeleteTerm handles DELETE /v1/admin/terms/{id}
func (h *HTTPHandlers) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteTerm(r.Context(), id); err != nil {
		if errors.Is(err, content.ErrTermNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeTermNotFound, "Term not found")
			return
		}
		h.logger.Error().Err(err).Int64("term_id", id).Msg("delete term failed")
		httperrors.RespondInternalError(w, "Could not delete term")
		return
	}

	h.invalidateTerms(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) invalidateQuiz(ctx context.Context, id int64) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateQuiz(ctx, id); err != nil {
		h.logger.Warn().Err(err).Int64("quiz_id", id).Msg("quiz cache invalidation failed")
	}
}

func (h *HTTPHandlers) invalidateTerms(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateTerms(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("terms cache invalidation failed")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
