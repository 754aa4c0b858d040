// Package coordinator owns interview sessions on the server side. It asks the
// generator for questions, follow-ups and recommendations, and degrades to
// deterministic defaults whenever the generator misbehaves.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/berth-dev/interview/internal/generator"
	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/persistence"
	"github.com/berth-dev/interview/internal/questionbank"
	"github.com/berth-dev/interview/internal/scorer"
	"github.com/berth-dev/interview/internal/session"
	"github.com/berth-dev/interview/internal/telemetry"
)

// Errors returned to callers. The first three alias the session sentinels so
// errors.Is works against either name.
var (
	ErrSessionNotFound = session.ErrNotFound
	ErrSessionFinished = session.ErrFinished
	ErrUnknownQuestion = session.ErrUnknownQuestion

	// ErrRoleRequired rejects a create_session without a role.
	ErrRoleRequired = errors.New("role is required")
	// ErrUnsupportedEvent rejects event types the coordinator does not accept.
	ErrUnsupportedEvent = errors.New("unsupported event type")
)

// maxKeyPoints caps the key points kept from one follow-up reply.
const maxKeyPoints = 3

// undeterminedScore is used when the generator's recommendation cannot be
// parsed.
const undeterminedScore = 50

// Options configures a Coordinator. Zero values select working defaults.
type Options struct {
	Generator generator.Generator
	Bank      *questionbank.Bank
	Persister persistence.Persister
	Recorder  telemetry.Recorder
	Logger    *log.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string

	// Score is the fallback scorer used when the generator is unavailable
	// at finalization.
	Score func(answers []scorer.Answer, role string, keywords []string) scorer.Recommendation
}

// Coordinator implements the session operations. It is safe for concurrent
// use; operations on one session are serialized, different sessions proceed
// in parallel.
type Coordinator struct {
	store     *session.Store
	gen       generator.Generator
	bank      *questionbank.Bank
	persister persistence.Persister
	rec       telemetry.Recorder
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
	score     func([]scorer.Answer, string, []string) scorer.Recommendation

	persistWG sync.WaitGroup
}

// New creates a Coordinator with an empty session store.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		store:     session.NewStore(),
		gen:       opts.Generator,
		bank:      opts.Bank,
		persister: opts.Persister,
		rec:       opts.Recorder,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		score:     opts.Score,
	}
	if c.gen == nil {
		c.gen = generator.Func(func(context.Context, generator.Request) (string, error) {
			return "", fmt.Errorf("%w: no generator configured", generator.ErrUnavailable)
		})
	}
	if c.bank == nil {
		c.bank = questionbank.Default()
	}
	if c.persister == nil {
		c.persister = persistence.Noop{}
	}
	if c.rec == nil {
		c.rec = telemetry.Noop{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.score == nil {
		c.score = scorer.Score
	}
	return c
}

// Store exposes the underlying session store.
func (c *Coordinator) Store() *session.Store {
	return c.store
}

// DefaultOpeningQuestion is asked when the generator cannot supply one.
func DefaultOpeningQuestion(role string) string {
	return fmt.Sprintf("Tell me about your experience relevant to the role of %s.", role)
}

// CreateSession starts a session and returns a snapshot of it together with
// the opening question. Generator failure never fails session creation.
func (c *Coordinator) CreateSession(ctx context.Context, role, resumeText string, durationMin int) (*session.Session, session.Question, error) {
	now := c.now()
	s := session.New(c.newID(), role, resumeText, durationMin, now)

	text, usedDefault := c.openingQuestion(ctx, s)
	q, err := s.AppendQuestion(session.Question{Text: text, AskedAt: now})
	if err != nil {
		return nil, session.Question{}, fmt.Errorf("coordinator: opening question: %w", err)
	}
	snapshot := s.Clone()
	if err := c.store.Put(s); err != nil {
		return nil, session.Question{}, fmt.Errorf("coordinator: storing session: %w", err)
	}

	c.rec.SessionCreated(ctx, role, usedDefault)
	c.logger.Log(log.LogEvent{
		Event:     log.EventSessionCreated,
		SessionID: s.ID,
		Role:      role,
		Data:      map[string]interface{}{"default_question": usedDefault, "duration_min": durationMin},
	})
	return snapshot, q, nil
}

func (c *Coordinator) openingQuestion(ctx context.Context, s *session.Session) (string, bool) {
	raw, err := c.gen.Generate(ctx, generator.Request{
		Kind:       generator.KindOpening,
		Role:       s.Role,
		ResumeText: s.ResumeText,
	})
	if err != nil {
		c.fallback(ctx, s.ID, generator.KindOpening, err)
		return DefaultOpeningQuestion(s.Role), true
	}
	res := generator.Parse[generator.OpeningOutput](raw)
	if text := strings.TrimSpace(res.Value.Question); res.Parsed && text != "" {
		return text, false
	}
	c.fallback(ctx, s.ID, generator.KindOpening, &generator.Error{Kind: generator.KindOpening, Err: generator.ErrMalformedOutput})
	return DefaultOpeningQuestion(s.Role), true
}

// RecordAnswer appends the candidate's answer and asks the generator for a
// follow-up. It returns the follow-up, or nil when there is none.
func (c *Coordinator) RecordAnswer(ctx context.Context, id, questionID, transcript string) (*session.Question, error) {
	return c.recordAnswer(ctx, id, questionID, "", transcript)
}

// RecordAdoptedAnswer is RecordAnswer for a question the client asked on its
// own. When questionID is unknown to the session, the question is appended
// with questionText before the answer is recorded.
func (c *Coordinator) RecordAdoptedAnswer(ctx context.Context, id, questionID, questionText, transcript string) (*session.Question, error) {
	return c.recordAnswer(ctx, id, questionID, questionText, transcript)
}

func (c *Coordinator) recordAnswer(ctx context.Context, id, questionID, questionText, transcript string) (*session.Question, error) {
	var next *session.Question
	err := c.store.With(id, func(s *session.Session) error {
		if s.Ended {
			return ErrSessionFinished
		}
		now := c.now()
		if !s.HasQuestion(questionID) && strings.TrimSpace(questionText) != "" {
			if _, err := s.AppendQuestion(session.Question{ID: questionID, Text: questionText, AskedAt: now}); err != nil {
				return err
			}
			c.logger.Log(log.LogEvent{Event: log.EventQuestionAdopted, SessionID: id, QuestionID: questionID})
		}
		if err := s.AppendAnswer(session.Answer{QuestionID: questionID, Transcript: transcript, AnsweredAt: now}); err != nil {
			return err
		}
		c.logger.Log(log.LogEvent{Event: log.EventAnswerRecorded, SessionID: id, QuestionID: questionID})

		text, points, ok := c.followup(ctx, s)
		s.AppendKeyPoints(points...)
		if !ok || text == "" {
			return nil
		}
		q, err := s.AppendQuestion(session.Question{Text: text, AskedAt: c.now()})
		if err != nil {
			return err
		}
		next = &q
		c.logger.Log(log.LogEvent{Event: log.EventFollowupGenerated, SessionID: id, QuestionID: q.ID})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: recording answer for %s: %w", id, err)
	}
	return next, nil
}

// followup returns the follow-up text and key points. When the generator
// fails the next unasked bank question for the role is used instead, so the
// interview continues; ok is false only when that bank is exhausted too.
func (c *Coordinator) followup(ctx context.Context, s *session.Session) (text string, points []string, ok bool) {
	raw, err := c.gen.Generate(ctx, generator.Request{
		Kind:       generator.KindFollowup,
		Role:       s.Role,
		ResumeText: s.ResumeText,
		Context:    conversationContext(s),
	})
	if err != nil {
		c.fallback(ctx, s.ID, generator.KindFollowup, err)
		text = c.nextBankQuestion(s)
		return text, nil, text != ""
	}

	res := generator.Parse[generator.FollowupOutput](raw)
	if !res.Parsed {
		return generator.FirstLine(raw), nil, true
	}
	for _, p := range res.Value.KeyPoints {
		if p = strings.TrimSpace(p); p != "" && len(points) < maxKeyPoints {
			points = append(points, p)
		}
	}
	return res.Value.FollowupText(), points, true
}

// nextBankQuestion returns the first bank question for the session's role
// that has not been asked yet, or "" when none is left.
func (c *Coordinator) nextBankQuestion(s *session.Session) string {
	asked := make(map[string]bool, len(s.Questions))
	for _, q := range s.Questions {
		asked[strings.TrimSpace(q.Text)] = true
	}
	for _, text := range c.bank.QuestionsOrDefault(s.Role) {
		if !asked[strings.TrimSpace(text)] {
			return text
		}
	}
	return ""
}

// Finalize ends the session and returns its recommendation. Calling it on a
// finished session returns the stored recommendation without regenerating.
func (c *Coordinator) Finalize(ctx context.Context, id string) (scorer.Recommendation, *session.Session, error) {
	var (
		rec      scorer.Recommendation
		snapshot *session.Session
		fresh    bool
	)
	err := c.store.With(id, func(s *session.Session) error {
		if s.Ended {
			rec = *s.Recommendation
			snapshot = s.Clone()
			return nil
		}
		rec = c.recommend(ctx, s)
		if err := s.Finish(rec, c.now()); err != nil {
			return err
		}
		snapshot = s.Clone()
		fresh = true
		return nil
	})
	if err != nil {
		return scorer.Recommendation{}, nil, fmt.Errorf("coordinator: finalizing %s: %w", id, err)
	}

	if fresh {
		c.rec.SessionFinalized(ctx, string(rec.Tier), rec.Score)
		c.logger.Log(log.LogEvent{
			Event:     log.EventSessionFinalized,
			SessionID: id,
			Role:      snapshot.Role,
			Tier:      string(rec.Tier),
			Score:     rec.Score,
		})
		c.persist(ctx, snapshot)
	}
	return rec, snapshot, nil
}

func (c *Coordinator) recommend(ctx context.Context, s *session.Session) scorer.Recommendation {
	raw, err := c.gen.Generate(ctx, generator.Request{
		Kind:       generator.KindRecommendation,
		Role:       s.Role,
		ResumeText: s.ResumeText,
		Context:    recommendationDigest(s),
	})
	if err != nil {
		c.fallback(ctx, s.ID, generator.KindRecommendation, err)
		return c.score(s.Pairs(), s.Role, c.bank.Keywords(s.Role))
	}

	res := generator.Parse[generator.RecommendationOutput](raw)
	if !res.Parsed {
		return scorer.Recommendation{
			Tier:       scorer.TierUndetermined,
			Score:      undeterminedScore,
			Summary:    raw,
			Strengths:  []string{},
			Weaknesses: []string{},
		}
	}
	return fromOutput(res.Value)
}

// fromOutput normalizes a parsed recommendation: a missing score becomes 50,
// scores are clamped to 0..100, and an unknown tier is derived from the
// score.
func fromOutput(out generator.RecommendationOutput) scorer.Recommendation {
	score := undeterminedScore
	if out.Score != nil {
		score = max(0, min(100, *out.Score))
	}
	tier := scorer.Tier(strings.TrimSpace(out.Tier))
	if !tier.Valid() {
		tier = scorer.TierUndetermined
		if out.Score != nil {
			tier = scorer.TierFor(score)
		}
	}
	rec := scorer.Recommendation{
		Tier:       tier,
		Score:      score,
		Summary:    strings.TrimSpace(out.Summary),
		Strengths:  out.Strengths,
		Weaknesses: out.Weaknesses,
	}
	if rec.Strengths == nil {
		rec.Strengths = []string{}
	}
	if rec.Weaknesses == nil {
		rec.Weaknesses = []string{}
	}
	return rec
}

// persist hands the finished session to the Persister without blocking the
// caller. Failures are logged.
func (c *Coordinator) persist(ctx context.Context, s *session.Session) {
	record := persistence.Record{
		SessionID:  s.ID,
		Role:       s.Role,
		ResumeText: s.ResumeText,
		StartedAt:  s.StartedAt,
		EndsAt:     s.EndsAt,
		KeyPoints:  s.KeyPoints,
	}
	if s.Recommendation != nil {
		record.Summary = s.Recommendation.Summary
		record.Tier = string(s.Recommendation.Tier)
		record.Score = s.Recommendation.Score
	}

	ctx = context.WithoutCancel(ctx)
	c.persistWG.Add(1)
	go func() {
		defer c.persistWG.Done()
		if err := c.persister.Save(ctx, record); err != nil {
			c.logger.Log(log.LogEvent{
				Event:     log.EventPersistenceFailed,
				SessionID: record.SessionID,
				Error:     err.Error(),
			})
		}
	}()
}

// Snapshot returns a deep copy of the session.
func (c *Coordinator) Snapshot(id string) (*session.Session, error) {
	s, err := c.store.Snapshot(id)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	return s, nil
}

// Close waits for in-flight persistence writes or for ctx to end.
func (c *Coordinator) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.persistWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("coordinator: waiting for persistence: %w", ctx.Err())
	}
}

func (c *Coordinator) fallback(ctx context.Context, id string, kind generator.Kind, err error) {
	reason := "unavailable"
	if errors.Is(err, generator.ErrMalformedOutput) {
		reason = "malformed"
	}
	c.rec.GeneratorFallback(ctx, kind.String())
	c.logger.Log(log.LogEvent{
		Event:     log.EventGeneratorFallback,
		SessionID: id,
		Kind:      kind.String(),
		Reason:    reason,
		Error:     err.Error(),
	})
}
