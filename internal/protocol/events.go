// Package protocol defines the event messages exchanged between the
// candidate-facing client and the session coordinator. Events are
// transport-agnostic JSON envelopes.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/berth-dev/interview/internal/scorer"
	"github.com/berth-dev/interview/internal/session"
)

// Type names an event.
type Type string

const (
	// client -> coordinator
	TypeCreateSession   Type = "create_session"
	TypeCandidateAnswer Type = "candidate_answer"
	TypeFinishInterview Type = "finish_interview"

	// coordinator -> client
	TypeSessionCreated Type = "session_created"
	TypeFollowup       Type = "followup"
	TypeFinished       Type = "finished"
	TypeError          Type = "error"
)

// Event is the wire envelope.
type Event struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CreateSession requests a new session.
type CreateSession struct {
	Role        string `json:"role"`
	Resume      string `json:"resume"`
	DurationMin int    `json:"durationMin"`
}

// SessionCreated acknowledges a session with its opening question.
type SessionCreated struct {
	SessionID     string           `json:"sessionId"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	FirstQuestion session.Question `json:"firstQuestion"`
}

// CandidateAnswer submits a spoken answer. QuestionText is set only when
// the question came from the client's local bank and is unknown to the
// coordinator.
type CandidateAnswer struct {
	SessionID    string `json:"sessionId"`
	QuestionID   string `json:"questionId"`
	Transcript   string `json:"transcript"`
	QuestionText string `json:"questionText,omitempty"`
}

// Followup carries the next question. A nil Followup or one with empty text
// means there is no further question. InReplyTo names the question whose
// answer produced this follow-up.
type Followup struct {
	Followup  *session.Question `json:"followup,omitempty"`
	InReplyTo string            `json:"inReplyTo,omitempty"`
}

// HasQuestion reports whether f carries a non-empty question.
func (f Followup) HasQuestion() bool {
	return f.Followup != nil && strings.TrimSpace(f.Followup.Text) != ""
}

// FinishInterview requests finalization.
type FinishInterview struct {
	SessionID string `json:"sessionId"`
}

// SessionDigest is the session history sent with Finished.
type SessionDigest struct {
	Questions []session.Question `json:"questions"`
	Answers   []session.Answer   `json:"answers"`
	KeyPoints []string           `json:"keyPoints"`
}

// Finished is the terminal event for a session.
type Finished struct {
	SessionID      string                `json:"sessionId,omitempty"`
	Recommendation scorer.Recommendation `json:"recommendation"`
	Session        SessionDigest         `json:"session"`
}

// Error reports a failed request, for example an unknown session id.
type Error struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// New wraps payload in an envelope of type t.
func New(t Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("protocol: encoding %s: %w", t, err)
	}
	return Event{Type: t, Payload: data}, nil
}

// NewError builds an error event. It cannot fail.
func NewError(sessionID, message string) Event {
	ev, _ := New(TypeError, Error{Message: message, SessionID: sessionID})
	return ev
}

// Decode unmarshals the payload of e into T.
func Decode[T any](e Event) (T, error) {
	var v T
	if len(e.Payload) == 0 {
		return v, fmt.Errorf("protocol: %s event has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("protocol: decoding %s: %w", e.Type, err)
	}
	return v, nil
}

// DigestOf builds a SessionDigest from a session.
func DigestOf(s *session.Session) SessionDigest {
	return SessionDigest{
		Questions: s.Questions,
		Answers:   s.Answers,
		KeyPoints: s.KeyPoints,
	}
}
