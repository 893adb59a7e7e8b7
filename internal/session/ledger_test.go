package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finlitworks/finlit-platform/internal/content"
)

func TestLedgerSingleChoiceReplacesSelection(t *testing.T) {
	ledger := NewLedger()

	ledger.Select(1, 10, content.TypeSingleChoice)
	ledger.Select(1, 11, content.TypeSingleChoice)

	entry, ok := ledger.Entry(1)
	assert.True(t, ok)
	assert.Equal(t, []int64{11}, entry.SelectedIDs())
}

func TestLedgerTrueFalseReplacesSelection(t *testing.T) {
	ledger := NewLedger()

	ledger.Select(1, 10, content.TypeTrueFalse)
	ledger.Select(1, 11, content.TypeTrueFalse)
	ledger.Select(1, 10, content.TypeTrueFalse)

	entry, _ := ledger.Entry(1)
	assert.Equal(t, []int64{10}, entry.SelectedIDs())
}

func TestLedgerMultipleChoiceTogglesMembership(t *testing.T) {
	ledger := NewLedger()

	ledger.Select(2, 20, content.TypeMultipleChoice)
	ledger.Select(2, 21, content.TypeMultipleChoice)
	ledger.Select(2, 22, content.TypeMultipleChoice)
	ledger.Select(2, 21, content.TypeMultipleChoice) // deselect

	entry, ok := ledger.Entry(2)
	assert.True(t, ok)
	assert.Equal(t, []int64{20, 22}, entry.SelectedIDs())
}

func TestLedgerToggleCanEmptyTheSelection(t *testing.T) {
	ledger := NewLedger()

	ledger.Select(2, 20, content.TypeMultipleChoice)
	ledger.Select(2, 20, content.TypeMultipleChoice)

	// The entry survives but the question counts as unanswered again.
	entry, ok := ledger.Entry(2)
	assert.True(t, ok)
	assert.Empty(t, entry.SelectedIDs())
	assert.False(t, ledger.Answered(2))
}

func TestLedgerAnswered(t *testing.T) {
	ledger := NewLedger()

	assert.False(t, ledger.Answered(5))
	ledger.Select(5, 50, content.TypeSingleChoice)
	assert.True(t, ledger.Answered(5))
}

func TestLedgerEntriesAreIndependentPerQuestion(t *testing.T) {
	ledger := NewLedger()

	ledger.Select(1, 10, content.TypeSingleChoice)
	ledger.Select(2, 20, content.TypeMultipleChoice)
	ledger.Select(2, 21, content.TypeMultipleChoice)

	assert.Equal(t, map[int64]struct{}{10: {}}, ledger.SelectionFor(1))
	assert.Equal(t, map[int64]struct{}{20: {}, 21: {}}, ledger.SelectionFor(2))
	assert.Nil(t, ledger.SelectionFor(3))
}
