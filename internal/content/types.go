package content

import (
	"errors"
	"strings"
	"time"
)

// Difficulty constants for quizzes and questions.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Question type constants.
const (
	TypeSingleChoice   = "single_choice"
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
)

var (
	ErrQuizNotFound = errors.New("quiz not found")
	ErrTermNotFound = errors.New("term not found")
	ErrNoQuestions  = errors.New("quiz has no questions")
)

// Term is a glossary entry; flashcards are a projection over terms.
type Term struct {
	ID         int64     `json:"id"`
	Word       string    `json:"word"`
	Definition string    `json:"definition"`
	Example    string    `json:"example,omitempty"`
	Category   string    `json:"category"`
	Slug       string    `json:"slug"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Quiz is a read-only definition during a session; edited via the admin console.
type Quiz struct {
	ID                 int64      `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Difficulty         string     `json:"difficulty"`
	TimeLimitMinutes   int        `json:"time_limit_minutes"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	Questions          []Question `json:"questions,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Slug derives the URL identifier from the quiz title.
func (q Quiz) Slug() string {
	return Slugify(q.Title)
}

// Question belongs to a quiz; Options are ordered by Option.Order.
type Question struct {
	ID          int64    `json:"id"`
	QuizID      int64    `json:"quiz_id"`
	Text        string   `json:"question_text"`
	Type        string   `json:"question_type"`
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"`
	Explanation string   `json:"explanation,omitempty"`
	Options     []Option `json:"options"`
}

// CorrectOptionIDs returns the ids of all options marked correct.
func (q Question) CorrectOptionIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, opt := range q.Options {
		if opt.Correct {
			ids[opt.ID] = struct{}{}
		}
	}
	return ids
}

// Option is one answer choice. Order is 1-based and defines the display
// letter (A, B, C, ...).
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"option_text"`
	Order      int    `json:"option_order"`
	Correct    bool   `json:"is_correct,omitempty"`
}

// Letter renders the display letter for the option's position.
func (o Option) Letter() string {
	if o.Order < 1 || o.Order > 26 {
		return ""
	}
	return string(rune('A' + o.Order - 1))
}

// QuestionStat aggregates attempt counters per question.
type QuestionStat struct {
	QuestionID    int64 `json:"question_id"`
	TimesAnswered int64 `json:"times_answered"`
	TimesCorrect  int64 `json:"times_correct"`
}

// Flashcard is a term projected into front/back form for review.
type Flashcard struct {
	TermID   int64  `json:"term_id"`
	Front    string `json:"front"`
	Back     string `json:"back"`
	Example  string `json:"example,omitempty"`
	Category string `json:"category"`
}

// Slugify lowercases and hyphenates a title into a URL identifier.
// Runs of non-alphanumeric characters collapse into a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ValidateQuestion enforces the correct-option invariants for a question type.
func ValidateQuestion(q Question) error {
	correct := 0
	for _, opt := range q.Options {
		if opt.Correct {
			correct++
		}
	}
	switch q.Type {
	case TypeSingleChoice, TypeTrueFalse:
		if correct != 1 {
			return errors.New("single_choice and true_false questions need exactly one correct option")
		}
	case TypeMultipleChoice:
		if correct < 1 {
			return errors.New("multiple_choice questions need at least one correct option")
		}
	default:
		return errors.New("unknown question type " + q.Type)
	}
	if len(q.Options) < 2 {
		return errors.New("questions need at least two options")
	}
	return nil
}
