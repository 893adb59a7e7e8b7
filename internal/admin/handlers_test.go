package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlitworks/finlit-platform/internal/content"
)

type stubAdminStore struct {
	quizzes      map[int64]*content.Quiz
	questionQuiz map[int64]int64 // question id -> quiz id
	createdTerm  *content.Term
}

func newStubAdminStore() *stubAdminStore {
	return &stubAdminStore{
		quizzes:      map[int64]*content.Quiz{},
		questionQuiz: map[int64]int64{10: 1},
	}
}

func (s *stubAdminStore) CreateQuiz(_ context.Context, quiz *content.Quiz) (int64, error) {
	quiz.ID = int64(len(s.quizzes) + 1)
	s.quizzes[quiz.ID] = quiz
	return quiz.ID, nil
}

func (s *stubAdminStore) UpdateQuiz(_ context.Context, quiz *content.Quiz) error {
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return content.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *stubAdminStore) DeleteQuiz(_ context.Context, id int64) error {
	if _, ok := s.quizzes[id]; !ok {
		return content.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}

func (s *stubAdminStore) CreateQuestion(context.Context, *content.Question) (int64, error) {
	return 10, nil
}

func (s *stubAdminStore) ReplaceQuestion(context.Context, *content.Question) error { return nil }
func (s *stubAdminStore) DeleteQuestion(context.Context, int64) error              { return nil }

func (s *stubAdminStore) CreateTerm(_ context.Context, t *content.Term) (int64, error) {
	s.createdTerm = t
	return 5, nil
}

func (s *stubAdminStore) UpdateTerm(context.Context, *content.Term) error { return nil }
func (s *stubAdminStore) DeleteTerm(context.Context, int64) error         { return nil }

func (s *stubAdminStore) GetQuestionStat(_ context.Context, questionID int64) (content.QuestionStat, error) {
	return content.QuestionStat{QuestionID: questionID, TimesAnswered: 12, TimesCorrect: 9}, nil
}

func (s *stubAdminStore) QuizIDForQuestion(_ context.Context, questionID int64) (int64, error) {
	if quizID, ok := s.questionQuiz[questionID]; ok {
		return quizID, nil
	}
	return 0, content.ErrQuizNotFound
}

type spyCache struct {
	content.ReadCache
	quizInvalidations []int64
	termInvalidations int
}

func (c *spyCache) InvalidateQuiz(_ context.Context, id int64) error {
	c.quizInvalidations = append(c.quizInvalidations, id)
	return nil
}

func (c *spyCache) InvalidateTerms(context.Context) error {
	c.termInvalidations++
	return nil
}

func newTestRouter(store Store, cache content.ReadCache) http.Handler {
	h := NewHTTPHandlers(store, cache, zerolog.New(io.Discard))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/admin/quizzes", h.CreateQuiz)
	mux.HandleFunc("PUT /v1/admin/quizzes/{id}", h.UpdateQuiz)
	mux.HandleFunc("DELETE /v1/admin/quizzes/{id}", h.DeleteQuiz)
	mux.HandleFunc("POST /v1/admin/quizzes/{id}/questions", h.CreateQuestion)
	mux.HandleFunc("PUT /v1/admin/questions/{id}", h.UpdateQuestion)
	mux.HandleFunc("DELETE /v1/admin/questions/{id}", h.DeleteQuestion)
	mux.HandleFunc("GET /v1/admin/questions/{id}/stats", h.QuestionStats)
	mux.HandleFunc("POST /v1/admin/terms", h.CreateTerm)
	return mux
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateQuizReturnsSlug(t *testing.T) {
	router := newTestRouter(newStubAdminStore(), nil)

	rec := doRequest(t, router, http.MethodPost, "/v1/admin/quizzes",
		`{"title":"Budgeting Basics","difficulty":"beginner","time_limit_minutes":10}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "budgeting-basics", resp["slug"])
}

func TestCreateQuizValidation(t *testing.T) {
	router := newTestRouter(newStubAdminStore(), nil)

	rec := doRequest(t, router, http.MethodPost, "/v1/admin/quizzes",
		`{"title":"","difficulty":"beginner"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/v1/admin/quizzes",
		`{"title":"X","difficulty":"impossible"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/v1/admin/quizzes", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateQuizNotFound(t *testing.T) {
	router := newTestRouter(newStubAdminStore(), nil)

	rec := doRequest(t, router, http.MethodPut, "/v1/admin/quizzes/99",
		`{"title":"X","difficulty":"beginner"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateQuestionValidatesCorrectOptions(t *testing.T) {
	cache := &spyCache{}
	router := newTestRouter(newStubAdminStore(), cache)

	// single_choice with two correct options is rejected.
	rec := doRequest(t, router, http.MethodPost, "/v1/admin/quizzes/1/questions", `{
		"question_text":"What is APR?","question_type":"single_choice",
		"options":[
			{"option_text":"A","option_order":1,"is_correct":true},
			{"option_text":"B","option_order":2,"is_correct":true}
		]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, cache.quizInvalidations)

	rec = doRequest(t, router, http.MethodPost, "/v1/admin/quizzes/1/questions", `{
		"question_text":"What is APR?","question_type":"single_choice",
		"options":[
			{"option_text":"A","option_order":1,"is_correct":true},
			{"option_text":"B","option_order":2,"is_correct":false}
		]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []int64{1}, cache.quizInvalidations)
}

func TestUpdateQuestionInvalidatesParentQuiz(t *testing.T) {
	cache := &spyCache{}
	router := newTestRouter(newStubAdminStore(), cache)

	rec := doRequest(t, router, http.MethodPut, "/v1/admin/questions/10", `{
		"question_text":"Updated","question_type":"true_false",
		"options":[
			{"option_text":"True","option_order":1,"is_correct":true},
			{"option_text":"False","option_order":2,"is_correct":false}
		]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{1}, cache.quizInvalidations, "parent quiz resolved and invalidated")
}

func TestDeleteQuestionUnknownID(t *testing.T) {
	router := newTestRouter(newStubAdminStore(), nil)

	rec := doRequest(t, router, http.MethodDelete, "/v1/admin/questions/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuestionStats(t *testing.T) {
	router := newTestRouter(newStubAdminStore(), nil)

	rec := doRequest(t, router, http.MethodGet, "/v1/admin/questions/10/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stat content.QuestionStat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stat))
	assert.Equal(t, int64(12), stat.TimesAnswered)
	assert.Equal(t, int64(9), stat.TimesCorrect)
}

func TestCreateTermDerivesSlug(t *testing.T) {
	store := newStubAdminStore()
	cache := &spyCache{}
	router := newTestRouter(store, cache)

	rec := doRequest(t, router, http.MethodPost, "/v1/admin/terms",
		`{"word":"Compound Interest","definition":"Interest on interest","category":"saving"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, store.createdTerm)
	assert.Equal(t, "compound-interest", store.createdTerm.Slug)
	assert.Equal(t, 1, cache.termInvalidations)
}

func TestPathIDRejectsGarbage(t *testing.T) {
	router := newTestRouter(newStubAdminStore(), nil)

	rec := doRequest(t, router, http.MethodDelete, "/v1/admin/questions/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/v1/admin/questions/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
