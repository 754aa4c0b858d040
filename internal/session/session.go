// Package session holds the interview session model and the store that owns
// sessions for the lifetime of a coordinator process.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/berth-dev/interview/internal/scorer"
)

var (
	// ErrNotFound is returned when a session id is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrFinished is returned when mutating a finished session.
	ErrFinished = errors.New("session already finished")
	// ErrUnknownQuestion is returned when an answer references a question
	// that is not part of the session.
	ErrUnknownQuestion = errors.New("unknown question id")
)

// State is the lifecycle position of a session.
type State string

const (
	StateCreated        State = "created"
	StateAwaitingAnswer State = "awaiting_answer"
	StateFinished       State = "finished"
)

// Question is one question asked during a session.
type Question struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	AskedAt time.Time `json:"askedAt"`
}

// Answer is the candidate's transcript for a question.
type Answer struct {
	QuestionID string    `json:"questionId"`
	Transcript string    `json:"transcript"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// Session is one candidate's interview run. Questions, Answers and KeyPoints
// are append-only; Recommendation is set exactly once together with Ended.
// Callers mutate a Session only through its methods, under Store.With.
type Session struct {
	ID                   string                 `json:"id"`
	Role                 string                 `json:"role"`
	ResumeText           string                 `json:"resumeText"`
	DurationMinSuggested int                    `json:"durationMinSuggested"`
	StartedAt            time.Time              `json:"startedAt"`
	EndsAt               time.Time              `json:"endsAt"`
	Questions            []Question             `json:"questions"`
	Answers              []Answer               `json:"answers"`
	KeyPoints            []string               `json:"keyPoints"`
	Recommendation       *scorer.Recommendation `json:"recommendation,omitempty"`
	Ended                bool                   `json:"ended"`
	EndedAt              time.Time              `json:"endedAt,omitempty"`
}

// New creates a session with its timestamps stamped from now.
func New(id, role, resumeText string, durationMin int, now time.Time) *Session {
	return &Session{
		ID:                   id,
		Role:                 role,
		ResumeText:           resumeText,
		DurationMinSuggested: durationMin,
		StartedAt:            now,
		EndsAt:               now.Add(time.Duration(durationMin) * time.Minute),
		Questions:            []Question{},
		Answers:              []Answer{},
		KeyPoints:            []string{},
	}
}

// State derives the lifecycle state.
func (s *Session) State() State {
	switch {
	case s.Ended:
		return StateFinished
	case len(s.Questions) == 0:
		return StateCreated
	default:
		return StateAwaitingAnswer
	}
}

// NextQuestionID returns the id the next appended question will receive.
// Ids adopted from clients may occupy the "qN" space, so taken ids are
// skipped.
func (s *Session) NextQuestionID() string {
	for n := len(s.Questions) + 1; ; n++ {
		id := fmt.Sprintf("q%d", n)
		if !s.HasQuestion(id) {
			return id
		}
	}
}

// HasQuestion reports whether id belongs to one of the session's questions.
func (s *Session) HasQuestion(id string) bool {
	_, ok := s.Question(id)
	return ok
}

// Question returns the question with the given id.
func (s *Session) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// LastQuestion returns the most recently asked question.
func (s *Session) LastQuestion() (Question, bool) {
	if len(s.Questions) == 0 {
		return Question{}, false
	}
	return s.Questions[len(s.Questions)-1], true
}

// AppendQuestion adds a question. An empty id is assigned NextQuestionID.
func (s *Session) AppendQuestion(q Question) (Question, error) {
	if s.Ended {
		return Question{}, ErrFinished
	}
	if q.ID == "" {
		q.ID = s.NextQuestionID()
	}
	if s.HasQuestion(q.ID) {
		return Question{}, fmt.Errorf("session: duplicate question id %q", q.ID)
	}
	s.Questions = append(s.Questions, q)
	return q, nil
}

// AppendAnswer adds an answer for an existing question.
func (s *Session) AppendAnswer(a Answer) error {
	if s.Ended {
		return ErrFinished
	}
	if !s.HasQuestion(a.QuestionID) {
		return fmt.Errorf("session: answer for %q: %w", a.QuestionID, ErrUnknownQuestion)
	}
	s.Answers = append(s.Answers, a)
	return nil
}

// AppendKeyPoints adds key points, skipping blanks.
func (s *Session) AppendKeyPoints(points ...string) {
	for _, p := range points {
		if p != "" {
			s.KeyPoints = append(s.KeyPoints, p)
		}
	}
}

// Finish records the recommendation and marks the session ended. It fails
// with ErrFinished when called twice.
func (s *Session) Finish(rec scorer.Recommendation, now time.Time) error {
	if s.Ended {
		return ErrFinished
	}
	s.Recommendation = &rec
	s.Ended = true
	s.EndedAt = now
	return nil
}

// Clone returns a deep copy safe to hand outside the store.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = append([]Question(nil), s.Questions...)
	c.Answers = append([]Answer(nil), s.Answers...)
	c.KeyPoints = append([]string(nil), s.KeyPoints...)
	if s.Recommendation != nil {
		rec := *s.Recommendation
		rec.Strengths = append([]string(nil), rec.Strengths...)
		rec.Weaknesses = append([]string(nil), rec.Weaknesses...)
		c.Recommendation = &rec
	}
	return &c
}

// Pairs returns each answer joined with the text of its question, in answer
// order.
func (s *Session) Pairs() []scorer.Answer {
	out := make([]scorer.Answer, 0, len(s.Answers))
	for _, a := range s.Answers {
		q, _ := s.Question(a.QuestionID)
		out = append(out, scorer.Answer{QuestionID: a.QuestionID, Question: q.Text, Transcript: a.Transcript})
	}
	return out
}
