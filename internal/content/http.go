package content

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	httperrors "github.com/finlitworks/finlit-platform/pkg/http/errors"
)

// HTTPHandlers serves the public read-only content endpoints.
type HTTPHandlers struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandlers(svc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		logger: logger.With().Str("component", "content_http").Logger(),
	}
}

// ListQuizzes handles GET /v1/quizzes
func (h *HTTPHandlers) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.svc.ListQuizzes(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list quizzes failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeContentStoreUnavailable, "Content store unavailable")
		return
	}

	type quizSummary struct {
		ID               int64  `json:"id"`
		Title            string `json:"title"`
		Slug             string `json:"slug"`
		Description      string `json:"description"`
		Difficulty       string `json:"difficulty"`
		TimeLimitMinutes int    `json:"time_limit_minutes"`
	}
	summaries := make([]quizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		summaries = append(summaries, quizSummary{
			ID:               q.ID,
			Title:            q.Title,
			Slug:             q.Slug(),
			Description:      q.Description,
			Difficulty:       q.Difficulty,
			TimeLimitMinutes: q.TimeLimitMinutes,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"quizzes": summaries})
}

// ListTerms handles GET /v1/terms?category=&q=
func (h *HTTPHandlers) ListTerms(w http.ResponseWriter, r *http.Request) {
	var (
		terms []Term
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		terms, err = h.svc.SearchTerms(r.Context(), q)
	} else {
		terms, err = h.svc.ListTerms(r.Context(), r.URL.Query().Get("category"))
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("list terms failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeContentStoreUnavailable, "Content store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"terms": terms})
}

// GetTerm handles GET /v1/terms/{slug}
func (h *HTTPHandlers) GetTerm(w http.ResponseWriter, r *http.Request) {
	term, err := h.svc.GetTermBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, ErrTermNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeTermNotFound, "Term not found")
			return
		}
		h.logger.Error().Err(err).Msg("get term failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeContentStoreUnavailable, "Content store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, term)
}

// Flashcards handles GET /v1/flashcards?category=&shuffle=
func (h *HTTPHandlers) Flashcards(w http.ResponseWriter, r *http.Request) {
	shuffle, _ := strconv.ParseBool(r.URL.Query().Get("shuffle"))
	cards, err := h.svc.Flashcards(r.Context(), r.URL.Query().Get("category"), shuffle)
	if err != nil {
		h.logger.Error().Err(err).Msg("flashcards failed")
		httperrors.RespondBadGateway(w, httperrors.ErrCodeContentStoreUnavailable, "Content store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
