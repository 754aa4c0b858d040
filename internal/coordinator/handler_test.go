package coordinator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/berth-dev/interview/internal/protocol"
)

func TestHandleEventRejections(t *testing.T) {
	tests := []struct {
		name string
		ev   protocol.Event
		want error
	}{
		{"blank role", mustEvent(t, protocol.TypeCreateSession, protocol.CreateSession{Role: "  "}), ErrRoleRequired},
		{"client-bound type", protocol.Event{Type: protocol.TypeFinished}, ErrUnsupportedEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			reply, err := f.coord.HandleEvent(context.Background(), tt.ev)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if statusFor(err) != 400 {
				t.Errorf("status: got %d, want 400", statusFor(err))
			}
			msg, derr := protocol.Decode[protocol.Error](reply)
			if reply.Type != protocol.TypeError || derr != nil {
				t.Fatalf("reply: %+v (%v)", reply, derr)
			}
			if !strings.HasPrefix(msg.Message, "coordinator: ") {
				t.Errorf("message %q lacks the coordinator prefix", msg.Message)
			}
			if f.coord.Store().Len() != 0 {
				t.Errorf("no session should be created")
			}
		})
	}
}
