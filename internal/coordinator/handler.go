package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/berth-dev/interview/internal/protocol"
)

// Handle applies one client event and returns the reply event. Failures are
// returned as error events; Handle itself never fails.
func (c *Coordinator) Handle(ctx context.Context, ev protocol.Event) protocol.Event {
	reply, _ := c.HandleEvent(ctx, ev)
	return reply
}

// HandleEvent is Handle that also returns the underlying error, so callers
// can map it onto a transport status.
func (c *Coordinator) HandleEvent(ctx context.Context, ev protocol.Event) (protocol.Event, error) {
	reply, err := c.handle(ctx, ev)
	if err != nil {
		return protocol.NewError(sessionIDOf(ev), err.Error()), err
	}
	return reply, nil
}

func (c *Coordinator) handle(ctx context.Context, ev protocol.Event) (protocol.Event, error) {
	switch ev.Type {
	case protocol.TypeCreateSession:
		req, err := protocol.Decode[protocol.CreateSession](ev)
		if err != nil {
			return protocol.Event{}, err
		}
		if strings.TrimSpace(req.Role) == "" {
			return protocol.Event{}, fmt.Errorf("coordinator: create_session: %w", ErrRoleRequired)
		}
		s, q, err := c.CreateSession(ctx, req.Role, req.Resume, req.DurationMin)
		if err != nil {
			return protocol.Event{}, err
		}
		return protocol.New(protocol.TypeSessionCreated, protocol.SessionCreated{
			SessionID:     s.ID,
			Start:         s.StartedAt,
			End:           s.EndsAt,
			FirstQuestion: q,
		})

	case protocol.TypeCandidateAnswer:
		req, err := protocol.Decode[protocol.CandidateAnswer](ev)
		if err != nil {
			return protocol.Event{}, err
		}
		next, err := c.RecordAdoptedAnswer(ctx, req.SessionID, req.QuestionID, req.QuestionText, req.Transcript)
		if err != nil {
			return protocol.Event{}, err
		}
		return protocol.New(protocol.TypeFollowup, protocol.Followup{Followup: next, InReplyTo: req.QuestionID})

	case protocol.TypeFinishInterview:
		req, err := protocol.Decode[protocol.FinishInterview](ev)
		if err != nil {
			return protocol.Event{}, err
		}
		rec, s, err := c.Finalize(ctx, req.SessionID)
		if err != nil {
			return protocol.Event{}, err
		}
		return protocol.New(protocol.TypeFinished, protocol.Finished{
			SessionID:      s.ID,
			Recommendation: rec,
			Session:        protocol.DigestOf(s),
		})

	default:
		return protocol.Event{}, fmt.Errorf("coordinator: %w %q", ErrUnsupportedEvent, ev.Type)
	}
}

type sessionRef struct {
	SessionID string `json:"sessionId"`
}

// sessionIDOf extracts the sessionId field common to most payloads.
func sessionIDOf(ev protocol.Event) string {
	ref, _ := protocol.Decode[sessionRef](ev)
	return ref.SessionID
}
