package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/berth-dev/interview/internal/generator"
	"github.com/berth-dev/interview/internal/protocol"
	"github.com/berth-dev/interview/internal/session"
)

func newTestServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewHandler(f.coord, nil))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, ev protocol.Event) (int, protocol.Event) {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(ts.URL+"/events", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /events: %v", err)
	}
	defer resp.Body.Close()
	var reply protocol.Event
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return resp.StatusCode, reply
}

func mustEvent(t *testing.T, typ protocol.Type, payload any) protocol.Event {
	t.Helper()
	ev, err := protocol.New(typ, payload)
	if err != nil {
		t.Fatalf("protocol.New: %v", err)
	}
	return ev
}

func TestServerInterviewFlow(t *testing.T) {
	f := newFixture(t)
	f.gen.Reply(generator.KindOpening, `{"question": "Tell me about a bug you found."}`)
	f.gen.Reply(generator.KindFollowup, `{"followup": "How did you reproduce it?", "keyPoints": ["repro"]}`)
	f.gen.Reply(generator.KindRecommendation, `{"tier": "Coach", "score": 58, "summary": "Solid basics."}`)
	ts := newTestServer(t, f)

	status, reply := post(t, ts, mustEvent(t, protocol.TypeCreateSession, protocol.CreateSession{Role: "QA Engineer", DurationMin: 20}))
	if status != http.StatusOK || reply.Type != protocol.TypeSessionCreated {
		t.Fatalf("create: %d %s", status, reply.Type)
	}
	created, err := protocol.Decode[protocol.SessionCreated](reply)
	if err != nil {
		t.Fatalf("decode session_created: %v", err)
	}
	if created.FirstQuestion.Text != "Tell me about a bug you found." {
		t.Errorf("first question: %q", created.FirstQuestion.Text)
	}

	status, reply = post(t, ts, mustEvent(t, protocol.TypeCandidateAnswer, protocol.CandidateAnswer{
		SessionID: created.SessionID, QuestionID: created.FirstQuestion.ID, Transcript: "a race in the cache",
	}))
	if status != http.StatusOK || reply.Type != protocol.TypeFollowup {
		t.Fatalf("answer: %d %s", status, reply.Type)
	}
	fu, _ := protocol.Decode[protocol.Followup](reply)
	if !fu.HasQuestion() || fu.InReplyTo != created.FirstQuestion.ID {
		t.Errorf("followup: %+v", fu)
	}

	status, reply = post(t, ts, mustEvent(t, protocol.TypeFinishInterview, protocol.FinishInterview{SessionID: created.SessionID}))
	if status != http.StatusOK || reply.Type != protocol.TypeFinished {
		t.Fatalf("finish: %d %s", status, reply.Type)
	}
	fin, _ := protocol.Decode[protocol.Finished](reply)
	if fin.Recommendation.Score != 58 || len(fin.Session.Answers) != 1 || len(fin.Session.KeyPoints) != 1 {
		t.Errorf("finished: %+v", fin)
	}

	resp, err := http.Get(ts.URL + "/sessions/" + created.SessionID)
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	defer resp.Body.Close()
	var snap session.Session
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if !snap.Ended || snap.ID != created.SessionID {
		t.Errorf("snapshot: %+v", snap)
	}
}

func TestServerErrors(t *testing.T) {
	f := newFixture(t)
	ts := newTestServer(t, f)

	tests := []struct {
		name   string
		ev     protocol.Event
		status int
	}{
		{"unknown session", mustEvent(t, protocol.TypeCandidateAnswer, protocol.CandidateAnswer{SessionID: "ghost", QuestionID: "q1"}), http.StatusNotFound},
		{"finish unknown", mustEvent(t, protocol.TypeFinishInterview, protocol.FinishInterview{SessionID: "ghost"}), http.StatusNotFound},
		{"missing role", mustEvent(t, protocol.TypeCreateSession, protocol.CreateSession{}), http.StatusBadRequest},
		{"unsupported", protocol.Event{Type: protocol.TypeFollowup}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reply := post(t, ts, tt.ev)
			if status != tt.status {
				t.Errorf("status: got %d, want %d", status, tt.status)
			}
			if reply.Type != protocol.TypeError {
				t.Errorf("type: got %s, want error", reply.Type)
			}
		})
	}

	resp, err := http.Get(ts.URL + "/sessions/ghost")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET unknown session: %d", resp.StatusCode)
	}
}

func TestServerHealth(t *testing.T) {
	ts := newTestServer(t, newFixture(t))
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}
}
