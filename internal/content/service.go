package content

import (
	"context"
	"math/rand"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "content_cache_lookups_total",
	Help: "Content cache lookups by outcome.",
}, []string{"kind", "outcome"})

// Store defines the persistence surface the service needs.
type Store interface {
	GetQuiz(ctx context.Context, id int64) (*Quiz, error)
	ListQuizzes(ctx context.Context) ([]Quiz, error)
	ListTerms(ctx context.Context, category string) ([]Term, error)
	SearchTerms(ctx context.Context, q string) ([]Term, error)
	GetTermBySlug(ctx context.Context, slug string) (*Term, error)
	IncrementQuestionStat(ctx context.Context, questionID int64, wasCorrect bool) error
}

// ReadCache caches quiz and term reads (implemented by the Redis-backed Cache).
type ReadCache interface {
	GetQuiz(ctx context.Context, id int64) (*Quiz, error)
	SetQuiz(ctx context.Context, quiz Quiz) error
	InvalidateQuiz(ctx context.Context, id int64) error
	GetTerms(ctx context.Context, category string) ([]Term, error)
	SetTerms(ctx context.Context, category string, terms []Term) error
	InvalidateTerms(ctx context.Context) error
}

// Service orchestrates content reads with a cache in front of Postgres.
type Service struct {
	store  Store
	cache  ReadCache
	logger zerolog.Logger
}

func NewService(store Store, cache ReadCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "content_service").Logger(),
	}
}

// GetQuiz returns a quiz with questions and options, cache first.
func (s *Service) GetQuiz(ctx context.Context, id int64) (*Quiz, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetQuiz(ctx, id); err == nil && cached != nil {
			cacheLookups.WithLabelValues("quiz", "hit").Inc()
			return cached, nil
		}
		cacheLookups.WithLabelValues("quiz", "miss").Inc()
	}

	quiz, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetQuiz(ctx, *quiz); err != nil {
			s.logger.Warn().Err(err).Int64("quiz_id", id).Msg("quiz cache write failed")
		}
	}
	return quiz, nil
}

// GetQuizByIdentifier resolves a quiz by slug, falling back to a numeric id
// for backward compatibility with older clients.
func (s *Service) GetQuizByIdentifier(ctx context.Context, slugOrID string) (*Quiz, error) {
	if id, err := strconv.ParseInt(slugOrID, 10, 64); err == nil {
		return s.GetQuiz(ctx, id)
	}

	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		if q.Slug() == slugOrID {
			return s.GetQuiz(ctx, q.ID)
		}
	}
	return nil, ErrQuizNotFound
}

// ListQuizzes returns quiz metadata only; answers never leave this layer here.
func (s *Service) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

// ListTerms returns glossary terms, cache first when unfiltered by search.
func (s *Service) ListTerms(ctx context.Context, category string) ([]Term, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetTerms(ctx, category); err == nil && cached != nil {
			cacheLookups.WithLabelValues("terms", "hit").Inc()
			return cached, nil
		}
		cacheLookups.WithLabelValues("terms", "miss").Inc()
	}

	terms, err := s.store.ListTerms(ctx, category)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(terms) > 0 {
		if err := s.cache.SetTerms(ctx, category, terms); err != nil {
			s.logger.Warn().Err(err).Str("category", category).Msg("terms cache write failed")
		}
	}
	return terms, nil
}

// SearchTerms matches the query against words and definitions.
func (s *Service) SearchTerms(ctx context.Context, q string) ([]Term, error) {
	return s.store.SearchTerms(ctx, q)
}

// GetTermBySlug fetches one glossary term.
func (s *Service) GetTermBySlug(ctx context.Context, slug string) (*Term, error) {
	return s.store.GetTermBySlug(ctx, slug)
}

// Flashcards projects glossary terms into front/back review cards.
// Shuffling happens server-side so every deal is independent.
func (s *Service) Flashcards(ctx context.Context, category string, shuffle bool) ([]Flashcard, error) {
	terms, err := s.ListTerms(ctx, category)
	if err != nil {
		return nil, err
	}

	cards := make([]Flashcard, 0, len(terms))
	for _, t := range terms {
		cards = append(cards, Flashcard{
			TermID:   t.ID,
			Front:    t.Word,
			Back:     t.Definition,
			Example:  t.Example,
			Category: t.Category,
		})
	}

	if shuffle {
		rand.Shuffle(len(cards), func(i, j int) {
			cards[i], cards[j] = cards[j], cards[i]
		})
	}
	return cards, nil
}

// IncrementQuestionStat records one attempt against a question.
func (s *Service) IncrementQuestionStat(ctx context.Context, questionID int64, wasCorrect bool) error {
	return s.store.IncrementQuestionStat(ctx, questionID, wasCorrect)
}
