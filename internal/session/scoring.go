package session

import (
	"math"

	"github.com/finlitworks/finlit-platform/internal/content"
)

// Verdict is the per-question outcome of a finished attempt.
type Verdict struct {
	QuestionID  int64   `json:"question_id"`
	Correct     bool    `json:"correct"`
	Selected    []int64 `json:"selected_option_ids"`
	Explanation string  `json:"explanation,omitempty"`
}

// IsCorrect reports whether the selection is exactly the set of correct
// options. Set equality, no partial credit: for multiple choice one missing
// or one extra selection scores as incorrect.
func IsCorrect(q content.Question, selected map[int64]struct{}) bool {
	correct := q.CorrectOptionIDs()
	if len(selected) != len(correct) {
		return false
	}
	for id := range selected {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return len(correct) > 0
}

// ScorePercentage maps the ledger onto [0,100], rounded to the nearest
// integer. An empty question set scores 0 by convention; sessions are never
// created without at least one question.
func ScorePercentage(questions []content.Question, ledger Ledger) int {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		if IsCorrect(q, ledger.SelectionFor(q.ID)) {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(questions))))
}

// Evaluate produces per-question verdicts in quiz order.
func Evaluate(questions []content.Question, ledger Ledger) []Verdict {
	verdicts := make([]Verdict, 0, len(questions))
	for _, q := range questions {
		var selected []int64
		if entry, ok := ledger.Entry(q.ID); ok {
			selected = entry.SelectedIDs()
		}
		verdicts = append(verdicts, Verdict{
			QuestionID:  q.ID,
			Correct:     IsCorrect(q, ledger.SelectionFor(q.ID)),
			Selected:    selected,
			Explanation: q.Explanation,
		})
	}
	return verdicts
}
