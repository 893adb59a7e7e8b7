package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finlitworks/finlit-platform/internal/content"
)

func multiQuestion(id int64, correct ...int64) content.Question {
	correctSet := make(map[int64]struct{}, len(correct))
	for _, c := range correct {
		correctSet[c] = struct{}{}
	}
	q := content.Question{ID: id, Type: content.TypeMultipleChoice}
	for i, optID := range []int64{id*10 + 1, id*10 + 2, id*10 + 3, id*10 + 4} {
		_, isCorrect := correctSet[optID]
		q.Options = append(q.Options, content.Option{
			ID: optID, QuestionID: id, Order: i + 1, Correct: isCorrect,
		})
	}
	return q
}

func singleQuestion(id, correctOpt int64) content.Question {
	q := content.Question{ID: id, Type: content.TypeSingleChoice}
	for i, optID := range []int64{id*10 + 1, id*10 + 2, id*10 + 3} {
		q.Options = append(q.Options, content.Option{
			ID: optID, QuestionID: id, Order: i + 1, Correct: optID == correctOpt,
		})
	}
	return q
}

func selection(ids ...int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestIsCorrectRequiresExactSet(t *testing.T) {
	// Correct options are A (11) and C (13).
	q := multiQuestion(1, 11, 13)

	assert.True(t, q.Options[0].Correct)
	assert.True(t, IsCorrect(q, selection(11, 13)), "exact set is correct")
	assert.False(t, IsCorrect(q, selection(11)), "missing one is incorrect")
	assert.False(t, IsCorrect(q, selection(11, 13, 14)), "one extra is incorrect")
	assert.False(t, IsCorrect(q, selection()), "empty selection is incorrect")
	assert.False(t, IsCorrect(q, nil), "unanswered is incorrect")
}

func TestIsCorrectSingleChoice(t *testing.T) {
	q := singleQuestion(2, 22)

	assert.True(t, IsCorrect(q, selection(22)))
	assert.False(t, IsCorrect(q, selection(21)))
	assert.False(t, IsCorrect(q, nil))
}

func TestIsCorrectQuestionWithoutCorrectOptions(t *testing.T) {
	q := content.Question{ID: 3, Type: content.TypeSingleChoice, Options: []content.Option{
		{ID: 31, Order: 1}, {ID: 32, Order: 2},
	}}

	// A misconfigured question never scores as correct, even for an
	// empty selection that technically matches the empty correct set.
	assert.False(t, IsCorrect(q, nil))
	assert.False(t, IsCorrect(q, selection()))
}

func TestScorePercentageRounds(t *testing.T) {
	questions := []content.Question{
		singleQuestion(1, 12),
		singleQuestion(2, 22),
		singleQuestion(3, 32),
	}

	ledger := NewLedger()
	ledger.Select(1, 12, content.TypeSingleChoice)

	// 1 of 3 correct: 33.33 rounds to 33.
	assert.Equal(t, 33, ScorePercentage(questions, ledger))

	ledger.Select(2, 22, content.TypeSingleChoice)
	// 2 of 3 correct: 66.67 rounds to 67.
	assert.Equal(t, 67, ScorePercentage(questions, ledger))
}

func TestScorePercentageSevenOfTen(t *testing.T) {
	questions := make([]content.Question, 0, 10)
	ledger := NewLedger()
	for i := int64(1); i <= 10; i++ {
		q := singleQuestion(i, i*10+2)
		questions = append(questions, q)
		if i <= 7 {
			ledger.Select(i, i*10+2, content.TypeSingleChoice)
		} else {
			ledger.Select(i, i*10+1, content.TypeSingleChoice)
		}
	}

	assert.Equal(t, 70, ScorePercentage(questions, ledger))
}

func TestScorePercentageBounds(t *testing.T) {
	questions := []content.Question{singleQuestion(1, 12), singleQuestion(2, 22)}

	assert.Equal(t, 0, ScorePercentage(questions, NewLedger()))

	ledger := NewLedger()
	ledger.Select(1, 12, content.TypeSingleChoice)
	ledger.Select(2, 22, content.TypeSingleChoice)
	assert.Equal(t, 100, ScorePercentage(questions, ledger))

	assert.Equal(t, 0, ScorePercentage(nil, NewLedger()))
}

func TestEvaluateProducesVerdictsInQuizOrder(t *testing.T) {
	questions := []content.Question{
		singleQuestion(1, 12),
		multiQuestion(2, 21, 23),
		singleQuestion(3, 32),
	}
	questions[2].Explanation = "because compounding"

	ledger := NewLedger()
	ledger.Select(1, 12, content.TypeSingleChoice)
	ledger.Select(2, 21, content.TypeMultipleChoice)

	verdicts := Evaluate(questions, ledger)

	assert.Len(t, verdicts, 3)
	assert.Equal(t, int64(1), verdicts[0].QuestionID)
	assert.True(t, verdicts[0].Correct)
	assert.Equal(t, []int64{12}, verdicts[0].Selected)

	assert.False(t, verdicts[1].Correct, "partial multi selection is incorrect")
	assert.Equal(t, []int64{21}, verdicts[1].Selected)

	assert.False(t, verdicts[2].Correct)
	assert.Nil(t, verdicts[2].Selected, "untouched question has no selection")
	assert.Equal(t, "because compounding", verdicts[2].Explanation)
}
