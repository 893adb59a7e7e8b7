package session

import (
	"sort"

	"github.com/finlitworks/finlit-platform/internal/content"
)

// AnswerEntry records the user's current selection for one question.
// A question with no entry (or an empty set) counts as unanswered.
type AnswerEntry struct {
	QuestionID int64
	Selected   map[int64]struct{}
}

// SelectedIDs returns the selection as a sorted slice for stable output.
func (e *AnswerEntry) SelectedIDs() []int64 {
	ids := make([]int64, 0, len(e.Selected))
	for id := range e.Selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Ledger holds per-question selections for an in-progress attempt.
// Entries persist for the life of the attempt; only a restart clears them.
type Ledger map[int64]*AnswerEntry

func NewLedger() Ledger {
	return make(Ledger)
}

// Select applies one selection. Multiple-choice questions toggle the option's
// membership; single-choice and true/false replace the whole set.
func (l Ledger) Select(questionID, optionID int64, questionType string) {
	entry, ok := l[questionID]
	if !ok {
		entry = &AnswerEntry{QuestionID: questionID, Selected: make(map[int64]struct{})}
		l[questionID] = entry
	}

	if questionType == content.TypeMultipleChoice {
		if _, selected := entry.Selected[optionID]; selected {
			delete(entry.Selected, optionID)
		} else {
			entry.Selected[optionID] = struct{}{}
		}
		return
	}

	entry.Selected = map[int64]struct{}{optionID: {}}
}

// Entry returns the entry for a question. The second return is false when the
// question has never been touched.
func (l Ledger) Entry(questionID int64) (*AnswerEntry, bool) {
	entry, ok := l[questionID]
	return entry, ok
}

// Answered reports whether the question has a non-empty selection.
func (l Ledger) Answered(questionID int64) bool {
	entry, ok := l[questionID]
	return ok && len(entry.Selected) > 0
}

// SelectionFor returns the selected ids for a question, nil when unanswered.
func (l Ledger) SelectionFor(questionID int64) map[int64]struct{} {
	if entry, ok := l[questionID]; ok {
		return entry.Selected
	}
	return nil
}
