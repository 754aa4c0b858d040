package coordinator

import (
	"fmt"
	"strings"

	"github.com/berth-dev/interview/internal/session"
)

// conversationContext renders the question/answer history for a follow-up
// request. Questions without an answer yet are included so the generator
// sees what was asked.
func conversationContext(s *session.Session) string {
	answered := make(map[string][]string, len(s.Answers))
	for _, a := range s.Answers {
		answered[a.QuestionID] = append(answered[a.QuestionID], a.Transcript)
	}

	var b strings.Builder
	for i, q := range s.Questions {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, q.Text)
		for _, t := range answered[q.ID] {
			fmt.Fprintf(&b, "A%d: %s\n", i+1, t)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// recommendationDigest is the conversation plus accumulated key points.
func recommendationDigest(s *session.Session) string {
	var b strings.Builder
	b.WriteString(conversationContext(s))
	if len(s.KeyPoints) > 0 {
		b.WriteString("\n\nKey points:\n")
		for _, p := range s.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if len(s.Answers) == 0 {
		b.WriteString("\n\nThe candidate gave no answers.")
	}
	return strings.TrimSpace(b.String())
}
