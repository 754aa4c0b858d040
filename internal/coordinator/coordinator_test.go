package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berth-dev/interview/internal/generator"
	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/questionbank"
	"github.com/berth-dev/interview/internal/scorer"
	"github.com/berth-dev/interview/internal/session"
	"github.com/berth-dev/interview/internal/testutil"
)

var t0 = time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC)

type fixture struct {
	coord   *Coordinator
	gen     *testutil.ScriptedGenerator
	persist *testutil.MemoryPersister
	logBuf  *bytes.Buffer
	scored  int
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gen:     testutil.NewScriptedGenerator(),
		persist: &testutil.MemoryPersister{},
		logBuf:  &bytes.Buffer{},
		clock:   t0,
	}
	seq := 0
	f.coord = New(Options{
		Generator: f.gen,
		Persister: f.persist,
		Logger:    log.NewWriterLogger(f.logBuf),
		Now:       func() time.Time { return f.clock },
		NewID: func() string {
			seq++
			return fmt.Sprintf("sess-%d", seq)
		},
		Score: func(a []scorer.Answer, role string, kw []string) scorer.Recommendation {
			f.scored++
			return scorer.Score(a, role, kw)
		},
	})
	return f
}

func (f *fixture) create(t *testing.T, role string) (*session.Session, session.Question) {
	t.Helper()
	s, q, err := f.coord.CreateSession(context.Background(), role, "", 30)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s, q
}

func TestCreateSessionGeneratorUnreachable(t *testing.T) {
	f := newFixture(t)
	s, q := f.create(t, "Backend Engineer")

	want := "Tell me about your experience relevant to the role of Backend Engineer."
	if q.Text != want {
		t.Errorf("opening question: got %q, want %q", q.Text, want)
	}
	if q.ID != "q1" {
		t.Errorf("question id: got %q, want q1", q.ID)
	}
	if s.ID != "sess-1" {
		t.Errorf("session id: got %q", s.ID)
	}
	if !s.StartedAt.Equal(t0) || !s.EndsAt.Equal(t0.Add(30*time.Minute)) {
		t.Errorf("timestamps: started %v ends %v", s.StartedAt, s.EndsAt)
	}
	if f.coord.Store().Len() != 1 {
		t.Errorf("store should hold the session")
	}
	if !strings.Contains(f.logBuf.String(), log.EventGeneratorFallback) {
		t.Errorf("expected a generator_fallback log event, got %s", f.logBuf.String())
	}
}

func TestCreateSessionOpeningQuestion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strict json", `{"question": "Walk me through your last API design."}`, "Walk me through your last API design."},
		{"fenced", "Sure!\n```json\n{\"question\": \"How do you test flaky suites?\"}\n```", "How do you test flaky suites?"},
		{"prose only", "Tell me something interesting.", DefaultOpeningQuestion("QA Engineer")},
		{"empty question", `{"question": "  "}`, DefaultOpeningQuestion("QA Engineer")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gen.Reply(generator.KindOpening, tt.raw)
			_, q := f.create(t, "QA Engineer")
			if q.Text != tt.want {
				t.Errorf("got %q, want %q", q.Text, tt.want)
			}
		})
	}
}

func TestRecordAnswerUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.RecordAnswer(context.Background(), "nope", "q1", "hi")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
}

func TestRecordAnswerFollowup(t *testing.T) {
	f := newFixture(t)
	f.gen.Reply(generator.KindFollowup,
		`{"followup": "Which cache did you pick?", "keyPoints": ["caching", "", "sql", "latency", "extra"]}`)
	s, q := f.create(t, "Backend Engineer")

	next, err := f.coord.RecordAnswer(context.Background(), s.ID, q.ID, "I used caching and SQL to reduce latency")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if next == nil || next.Text != "Which cache did you pick?" || next.ID != "q2" {
		t.Fatalf("follow-up: got %+v", next)
	}

	snap, _ := f.coord.Snapshot(s.ID)
	if len(snap.Questions) != 2 || len(snap.Answers) != 1 {
		t.Errorf("questions %d answers %d", len(snap.Questions), len(snap.Answers))
	}
	if got := strings.Join(snap.KeyPoints, ","); got != "caching,sql,latency" {
		t.Errorf("key points: got %q", got)
	}

	reqs := f.gen.Requests()
	last := reqs[len(reqs)-1]
	if !strings.Contains(last.Context, "A1: I used caching") {
		t.Errorf("follow-up context missing answer: %q", last.Context)
	}
}

func TestRecordAnswerUnparsedUsesFirstLine(t *testing.T) {
	f := newFixture(t)
	f.gen.Reply(generator.KindFollowup, "\n  What went wrong next?\nThanks!")
	s, q := f.create(t, "QA Engineer")

	next, err := f.coord.RecordAnswer(context.Background(), s.ID, q.ID, "a flaky test")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if next == nil || next.Text != "What went wrong next?" {
		t.Fatalf("got %+v, want first line", next)
	}
}

func TestRecordAnswerNoFollowup(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"null followup", `{"followup": null, "keyPoints": []}`},
		{"empty followup", `{"followup": "", "keyPoints": ["done"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gen.Reply(generator.KindFollowup, tt.reply)
			s, q := f.create(t, "QA Engineer")
			next, err := f.coord.RecordAnswer(context.Background(), s.ID, q.ID, "answer")
			if err != nil {
				t.Fatalf("RecordAnswer: %v", err)
			}
			if next != nil {
				t.Errorf("expected no follow-up, got %+v", next)
			}
			snap, _ := f.coord.Snapshot(s.ID)
			if snap.Ended || len(snap.Answers) != 1 || len(snap.Questions) != 1 {
				t.Errorf("session state: %+v", snap)
			}
		})
	}
}

func TestRecordAnswerGeneratorDownUsesBank(t *testing.T) {
	f := newFixture(t)
	s, q := f.create(t, "QA Engineer")
	ctx := context.Background()
	bank, _ := questionbank.Default().Questions("QA Engineer")

	next, err := f.coord.RecordAnswer(ctx, s.ID, q.ID, "I start with the riskiest paths.")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if next == nil || next.Text != bank[0] || next.ID != "q2" {
		t.Fatalf("got %+v, want bank question %q as q2", next, bank[0])
	}

	next, err = f.coord.RecordAnswer(ctx, s.ID, next.ID, "A plan per release.")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if next == nil || next.Text != bank[1] {
		t.Fatalf("got %+v, want the next unasked bank question %q", next, bank[1])
	}
	if !strings.Contains(f.logBuf.String(), log.EventGeneratorFallback) {
		t.Errorf("expected a generator_fallback log event")
	}
	snap, _ := f.coord.Snapshot(s.ID)
	if snap.Ended {
		t.Error("session should stay open")
	}
}

func TestRecordAnswerGeneratorDownBankExhausted(t *testing.T) {
	f := newFixture(t)
	f.coord.bank = questionbank.New(questionbank.Role{
		Name:      "Tester",
		Questions: []string{"Only question?"},
	})
	s, q := f.create(t, "Tester")
	ctx := context.Background()

	next, err := f.coord.RecordAnswer(ctx, s.ID, q.ID, "first")
	if err != nil || next == nil || next.Text != "Only question?" {
		t.Fatalf("first answer: got %+v, %v", next, err)
	}
	next, err = f.coord.RecordAnswer(ctx, s.ID, next.ID, "second")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if next != nil {
		t.Errorf("expected no follow-up once the bank is exhausted, got %+v", next)
	}
}

func TestRecordAnswerQuestionIDs(t *testing.T) {
	f := newFixture(t)
	s, _ := f.create(t, "QA Engineer")
	ctx := context.Background()

	if _, err := f.coord.RecordAnswer(ctx, s.ID, "q9", "orphan"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("unknown question: got %v, want ErrUnknownQuestion", err)
	}

	if _, err := f.coord.RecordAdoptedAnswer(ctx, s.ID, "local-1", "How do you triage bugs?", "by severity"); err != nil {
		t.Fatalf("RecordAdoptedAnswer: %v", err)
	}
	snap, _ := f.coord.Snapshot(s.ID)
	q, ok := snap.Question("local-1")
	if !ok || q.Text != "How do you triage bugs?" {
		t.Errorf("adopted question missing: %+v", snap.Questions)
	}
	for _, a := range snap.Answers {
		if !snap.HasQuestion(a.QuestionID) {
			t.Errorf("answer %q has no question", a.QuestionID)
		}
	}
}

func TestFinalizeParsed(t *testing.T) {
	f := newFixture(t)
	f.gen.Reply(generator.KindRecommendation,
		`{"tier": "Proceed", "score": 82, "summary": "Strong.", "strengths": ["depth"], "weaknesses": []}`)
	s, q := f.create(t, "Backend Engineer")
	ctx := context.Background()
	if _, err := f.coord.RecordAnswer(ctx, s.ID, q.ID, "answer"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	rec, snap, err := f.coord.Finalize(ctx, s.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if rec.Tier != scorer.TierProceed || rec.Score != 82 || rec.Summary != "Strong." {
		t.Errorf("recommendation: %+v", rec)
	}
	if !snap.Ended || snap.Recommendation == nil {
		t.Errorf("snapshot not finished: %+v", snap)
	}
	if err := f.coord.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	saved := f.persist.Saved()
	if len(saved) != 1 || saved[0].SessionID != s.ID || saved[0].Tier != "Proceed" || saved[0].Score != 82 {
		t.Errorf("persisted: %+v", saved)
	}
}

func TestFinalizeUnparsed(t *testing.T) {
	f := newFixture(t)
	f.gen.Reply(generator.KindRecommendation, "The candidate seems fine overall.")
	s, _ := f.create(t, "QA Engineer")

	rec, _, err := f.coord.Finalize(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if rec.Tier != scorer.TierUndetermined || rec.Score != 50 || rec.Summary != "The candidate seems fine overall." {
		t.Errorf("got %+v", rec)
	}
	if f.scored != 0 {
		t.Errorf("heuristic scorer should not run on parse failure")
	}
}

func TestFinalizeGeneratorDownUsesHeuristic(t *testing.T) {
	f := newFixture(t)
	s, q := f.create(t, "Backend Engineer")
	ctx := context.Background()
	if _, err := f.coord.RecordAnswer(ctx, s.ID, q.ID, "I used caching and SQL to reduce latency"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	rec, _, err := f.coord.Finalize(ctx, s.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if f.scored != 1 {
		t.Errorf("scorer calls: got %d, want 1", f.scored)
	}
	if rec.Score != 16 || rec.Tier != scorer.TierNeedsDevelopment {
		t.Errorf("got %+v", rec)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	f := newFixture(t)
	f.gen.Reply(generator.KindRecommendation, `{"tier": "Coach", "score": 55, "summary": "ok"}`)
	s, q := f.create(t, "QA Engineer")
	ctx := context.Background()

	first, _, err := f.coord.Finalize(ctx, s.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	second, _, err := f.coord.Finalize(ctx, s.ID)
	if err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
	if first.Tier != second.Tier || first.Score != second.Score || first.Summary != second.Summary {
		t.Errorf("recommendation changed: %+v vs %+v", first, second)
	}
	if n := f.gen.Count(generator.KindRecommendation); n != 1 {
		t.Errorf("recommendation requests: got %d, want 1", n)
	}
	if _, err := f.coord.RecordAnswer(ctx, s.ID, q.ID, "late"); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("answer after finish: got %v, want ErrSessionFinished", err)
	}
	_ = f.coord.Close(ctx)
	if len(f.persist.Saved()) != 1 {
		t.Errorf("persisted %d records, want 1", len(f.persist.Saved()))
	}
}

func TestFinalizePersistenceFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.persist.Err = errors.New("disk full")
	s, _ := f.create(t, "QA Engineer")
	ctx := context.Background()

	if _, _, err := f.coord.Finalize(ctx, s.ID); err != nil {
		t.Fatalf("Finalize should ignore persistence failure: %v", err)
	}
	if err := f.coord.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(f.logBuf.String(), log.EventPersistenceFailed) {
		t.Errorf("expected persistence_failed event, got %s", f.logBuf.String())
	}
}

func TestConcurrentSessionsIndependent(t *testing.T) {
	f := newFixture(t)
	f.gen.Reply(generator.KindFollowup, `{"followup": "Next?", "keyPoints": []}`)
	var ids []string
	for i := 0; i < 8; i++ {
		s, _ := f.create(t, "QA Engineer")
		ids = append(ids, s.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			q := "q1"
			for i := 0; i < 5; i++ {
				next, err := f.coord.RecordAnswer(context.Background(), id, q, "answer")
				if err != nil {
					t.Errorf("%s: %v", id, err)
					return
				}
				q = next.ID
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		snap, _ := f.coord.Snapshot(id)
		if len(snap.Answers) != 5 || len(snap.Questions) != 6 {
			t.Errorf("%s: %d answers, %d questions", id, len(snap.Answers), len(snap.Questions))
		}
	}
}

func TestFromOutput(t *testing.T) {
	score := func(n int) *int { return &n }
	tests := []struct {
		name      string
		out       generator.RecommendationOutput
		wantTier  scorer.Tier
		wantScore int
	}{
		{"valid", generator.RecommendationOutput{Tier: "Coach", Score: score(60)}, scorer.TierCoach, 60},
		{"missing score", generator.RecommendationOutput{Tier: "Proceed"}, scorer.TierProceed, 50},
		{"clamped", generator.RecommendationOutput{Tier: "Proceed", Score: score(140)}, scorer.TierProceed, 100},
		{"unknown tier derives", generator.RecommendationOutput{Tier: "Hire", Score: score(30)}, scorer.TierNeedsDevelopment, 30},
		{"nothing usable", generator.RecommendationOutput{}, scorer.TierUndetermined, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := fromOutput(tt.out)
			if rec.Tier != tt.wantTier || rec.Score != tt.wantScore {
				t.Errorf("got %s/%d, want %s/%d", rec.Tier, rec.Score, tt.wantTier, tt.wantScore)
			}
			if rec.Strengths == nil || rec.Weaknesses == nil {
				t.Errorf("lists should be non-nil")
			}
		})
	}
}

func TestReap(t *testing.T) {
	f := newFixture(t)
	open, _ := f.create(t, "QA Engineer")
	done, _ := f.create(t, "QA Engineer")
	ctx := context.Background()
	if _, _, err := f.coord.Finalize(ctx, done.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	f.clock = t0.Add(10 * time.Minute)
	fin, ev := f.coord.Reap(ctx, ReaperOptions{AutoFinalize: true, Retention: time.Hour})
	if len(fin) != 0 || len(ev) != 0 {
		t.Fatalf("nothing is due yet: finalized %v evicted %v", fin, ev)
	}

	f.clock = t0.Add(31 * time.Minute)
	fin, _ = f.coord.Reap(ctx, ReaperOptions{AutoFinalize: true, Retention: time.Hour})
	if len(fin) != 1 || fin[0] != open.ID {
		t.Fatalf("auto-finalized %v, want [%s]", fin, open.ID)
	}

	f.clock = t0.Add(2 * time.Hour)
	_, ev = f.coord.Reap(ctx, ReaperOptions{Retention: time.Hour})
	if len(ev) != 2 || f.coord.Store().Len() != 0 {
		t.Errorf("evicted %v, store len %d", ev, f.coord.Store().Len())
	}
	_ = f.coord.Close(ctx)
}

func TestRunReaperStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.coord.RunReaper(ctx, ReaperOptions{Retention: time.Minute, Interval: time.Millisecond})
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunReaper: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunReaper did not return")
	}
}
