package orchestrator

import (
	"fmt"

	"github.com/berth-dev/interview/internal/questionbank"
)

// localState is the client-side fallback interview: the role's bank
// questions and a cursor into them. It is seeded at most once per run.
type localState struct {
	questions []string
	cursor    int
}

func seedLocal(bank *questionbank.Bank, role string) *localState {
	return &localState{questions: bank.QuestionsOrDefault(role)}
}

// next returns the next unasked bank question.
func (l *localState) next() (question, bool) {
	if l.cursor >= len(l.questions) {
		return question{}, false
	}
	l.cursor++
	return question{
		ID:    fmt.Sprintf("local-%d", l.cursor),
		Text:  l.questions[l.cursor-1],
		Local: true,
	}, true
}
