// Package orchestrator drives one candidate's interview on the client side.
// It talks to the coordinator when it can and falls back to the local
// question bank and heuristic scorer when the coordinator is unreachable or
// slow, without abandoning the remote session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/protocol"
	"github.com/berth-dev/interview/internal/questionbank"
	"github.com/berth-dev/interview/internal/scorer"
	"github.com/berth-dev/interview/internal/session"
	"github.com/berth-dev/interview/internal/speech"
	"github.com/berth-dev/interview/internal/telemetry"
	"github.com/berth-dev/interview/internal/transport"
)

// Mode is where the next question comes from.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Source names who produced the final recommendation.
const (
	SourceCoordinator = "coordinator"
	SourceLocal       = "local"
)

// Reference delays. DefaultConnectTimeout bounds the start-up health check.
const (
	DefaultConnectTimeout  = 3 * time.Second
	DefaultFollowupTimeout = 5 * time.Second
	DefaultFinishTimeout   = 6 * time.Second
)

// DefaultStopPhrases end the interview when spoken as a whole answer.
var DefaultStopPhrases = []string{"finish", "end interview", "stop"}

// Options configures an Orchestrator.
type Options struct {
	// Channel connects to the coordinator. Nil runs fully local.
	Channel  transport.Channel
	Speaker  speech.Speaker
	Listener speech.Listener
	Bank     *questionbank.Bank

	ConnectTimeout  time.Duration
	FollowupTimeout time.Duration
	FinishTimeout   time.Duration
	// Duration requests finish at the first answer after it elapses. Zero
	// disables the timer.
	Duration    time.Duration
	DurationMin int
	StopPhrases []string

	Logger   *log.Logger
	Recorder telemetry.Recorder
	Now      func() time.Time
	Score    func(answers []scorer.Answer, role string, keywords []string) scorer.Recommendation
}

// Result is the outcome of one interview run.
type Result struct {
	SessionID string
	Role      string
	// Mode at completion.
	Mode Mode
	// Source is SourceCoordinator or SourceLocal.
	Source         string
	Recommendation scorer.Recommendation
	Questions      []session.Question
	Answers        []scorer.Answer
	KeyPoints      []string
	// LocalQuestions counts questions taken from the local bank.
	LocalQuestions int
	// Errors are messages from coordinator error events.
	Errors []string
}

// Orchestrator runs interviews. Each Run is independent.
type Orchestrator struct {
	opts Options
}

// New creates an Orchestrator, filling defaults for unset options.
func New(opts Options) (*Orchestrator, error) {
	if opts.Speaker == nil || opts.Listener == nil {
		return nil, fmt.Errorf("orchestrator: speaker and listener are required: %w", speech.ErrUnavailable)
	}
	if opts.Bank == nil {
		opts.Bank = questionbank.Default()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.FollowupTimeout <= 0 {
		opts.FollowupTimeout = DefaultFollowupTimeout
	}
	if opts.FinishTimeout <= 0 {
		opts.FinishTimeout = DefaultFinishTimeout
	}
	if opts.StopPhrases == nil {
		opts.StopPhrases = DefaultStopPhrases
	}
	if opts.Recorder == nil {
		opts.Recorder = telemetry.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Score == nil {
		opts.Score = scorer.Score
	}
	if opts.DurationMin <= 0 && opts.Duration > 0 {
		opts.DurationMin = int(opts.Duration.Round(time.Minute) / time.Minute)
	}
	return &Orchestrator{opts: opts}, nil
}

// question is one question the client will ask.
type question struct {
	ID    string
	Text  string
	Local bool
}

// waiting is the remote reply the run is blocked on, if any.
type waiting int

const (
	waitNone waiting = iota
	waitCreate
	waitFollowup
	waitFinish
)

// loop events
type (
	spoken struct {
		phase uint64
		err   error
	}
	heard struct {
		phase      uint64
		transcript string
		err        error
	}
)

// run is the state of one interview. It is owned by the loop goroutine.
type run struct {
	opts   Options
	ctx    context.Context
	role   string
	resume string

	inbox  chan any
	done   chan struct{}
	device speech.Device
	watch  watchdog

	mode      Mode
	sessionID string
	phase     uint64
	current   question
	waiting   waiting
	pending   string
	finishing bool
	deadline  time.Time

	local    *localState
	asked    []session.Question
	answers  []scorer.Answer
	result   *Result
	errs     []string
	fatal    error
	engaged  bool
	localAsk int
}

// Run conducts one interview for role and returns when a recommendation has
// been presented. It fails only when speech is unavailable or ctx ends.
func (o *Orchestrator) Run(ctx context.Context, role, resumeText string) (*Result, error) {
	r := &run{
		opts:   o.opts,
		ctx:    ctx,
		role:   role,
		resume: resumeText,
		inbox:  make(chan any, 8),
		done:   make(chan struct{}),
		mode:   ModeRemote,
	}
	r.watch.post = r.post
	if o.opts.Duration > 0 {
		r.deadline = o.opts.Now().Add(o.opts.Duration)
	}
	defer func() {
		close(r.done)
		r.watch.clear()
		r.device.Cancel()
	}()

	r.start()
	return r.loop()
}

func (r *run) post(ev any) {
	select {
	case r.inbox <- ev:
	case <-r.done:
	}
}

func (r *run) loop() (*Result, error) {
	var remote <-chan protocol.Event
	if r.opts.Channel != nil {
		remote = r.opts.Channel.Events()
	}
	for r.result == nil && r.fatal == nil {
		select {
		case <-r.ctx.Done():
			return r.partial(), r.ctx.Err()
		case ev, ok := <-remote:
			if !ok {
				remote = nil
				continue
			}
			r.onRemote(ev)
		case ev := <-r.inbox:
			switch ev := ev.(type) {
			case spoken:
				r.onSpoken(ev)
			case heard:
				r.onHeard(ev)
			case watchdogFired:
				r.onWatchdog(ev)
			}
		}
	}
	if r.fatal != nil {
		return r.partial(), r.fatal
	}
	r.opts.Logger.Log(log.LogEvent{
		Event:     log.EventInterviewCompleted,
		SessionID: r.result.SessionID,
		Role:      r.role,
		Mode:      string(r.result.Mode),
		Tier:      string(r.result.Recommendation.Tier),
		Score:     r.result.Recommendation.Score,
		Reason:    r.result.Source,
	})
	return r.result, nil
}

// start requests a remote session, or goes local when there is no live
// channel.
func (r *run) start() {
	r.opts.Logger.Log(log.LogEvent{Event: log.EventInterviewStarted, Role: r.role})

	ch := r.opts.Channel
	if ch == nil {
		r.engageLocal("no coordinator")
		r.askNextLocal()
		return
	}
	pingCtx, cancel := context.WithTimeout(r.ctx, r.opts.ConnectTimeout)
	err := ch.Ping(pingCtx)
	cancel()
	if err != nil {
		r.engageLocal("coordinator unreachable")
		r.askNextLocal()
		return
	}

	ev, err := protocol.New(protocol.TypeCreateSession, protocol.CreateSession{
		Role:        r.role,
		Resume:      r.resume,
		DurationMin: r.opts.DurationMin,
	})
	if err == nil {
		err = ch.Send(r.ctx, ev)
	}
	if err != nil {
		r.engageLocal("create_session not sent")
		r.askNextLocal()
		return
	}
	r.waiting = waitCreate
	r.watch.arm(watchCreate, r.opts.FollowupTimeout)
}

// ask speaks q and then listens for the answer.
func (r *run) ask(q question) {
	r.phase++
	r.current = q
	r.waiting = waitNone
	r.asked = append(r.asked, session.Question{ID: q.ID, Text: q.Text, AskedAt: r.opts.Now()})
	if q.Local {
		r.localAsk++
	}

	phase := r.phase
	ctx, end := r.device.Begin(r.ctx)
	go func() {
		defer end()
		err := r.opts.Speaker.Speak(ctx, q.Text)
		r.post(spoken{phase: phase, err: err})
	}()
}

func (r *run) onSpoken(ev spoken) {
	if ev.phase != r.phase {
		return
	}
	if ev.err != nil {
		r.speechFailed("speaking", ev.err)
		return
	}
	r.listen()
}

func (r *run) listen() {
	phase := r.phase
	ctx, end := r.device.Begin(r.ctx)
	go func() {
		defer end()
		text, err := r.opts.Listener.Listen(ctx)
		r.post(heard{phase: phase, transcript: text, err: err})
	}()
}

func (r *run) onHeard(ev heard) {
	if ev.phase != r.phase {
		return
	}
	if errors.Is(ev.err, io.EOF) {
		r.requestFinish()
		return
	}
	if ev.err != nil {
		r.speechFailed("listening", ev.err)
		return
	}
	if strings.TrimSpace(ev.transcript) == "" {
		r.listen()
		return
	}
	if r.isStopPhrase(ev.transcript) {
		r.requestFinish()
		return
	}
	r.onAnswerCaptured(strings.TrimSpace(ev.transcript))
}

// speechFailed ends the run unless the error is just a cancelled phase.
func (r *run) speechFailed(what string, err error) {
	if errors.Is(err, context.Canceled) && r.ctx.Err() == nil {
		return
	}
	r.fatal = fmt.Errorf("orchestrator: %s: %w", what, err)
}

func (r *run) onAnswerCaptured(transcript string) {
	q := r.current
	r.phase++
	r.answers = append(r.answers, scorer.Answer{QuestionID: q.ID, Question: q.Text, Transcript: transcript})

	if r.mode == ModeRemote {
		if err := r.sendAnswer(q, transcript); err != nil {
			r.engageLocal("answer not sent")
			r.mode = ModeLocal
		} else if !r.expired() {
			r.pending = q.ID
			r.waiting = waitFollowup
			r.watch.arm(watchFollowup, r.opts.FollowupTimeout)
			return
		}
	}

	if r.expired() {
		r.requestFinish()
		return
	}
	r.askNextLocal()
}

func (r *run) sendAnswer(q question, transcript string) error {
	payload := protocol.CandidateAnswer{
		SessionID:  r.sessionID,
		QuestionID: q.ID,
		Transcript: transcript,
	}
	if q.Local {
		payload.QuestionText = q.Text
	}
	ev, err := protocol.New(protocol.TypeCandidateAnswer, payload)
	if err != nil {
		return err
	}
	return r.opts.Channel.Send(r.ctx, ev)
}

// askNextLocal asks the next bank question, or completes locally once the
// bank is exhausted.
func (r *run) askNextLocal() {
	if r.local == nil {
		r.local = seedLocal(r.opts.Bank, r.role)
	}
	q, ok := r.nextLocal()
	if !ok {
		r.requestFinish()
		return
	}
	r.ask(q)
}

// nextLocal returns the next bank question whose text has not been asked in
// this run. The coordinator may already have served bank questions itself.
func (r *run) nextLocal() (question, bool) {
	for {
		q, ok := r.local.next()
		if !ok || !r.wasAsked(q.Text) {
			return q, ok
		}
	}
}

func (r *run) wasAsked(text string) bool {
	text = strings.TrimSpace(text)
	for _, q := range r.asked {
		if strings.TrimSpace(q.Text) == text {
			return true
		}
	}
	return false
}

// engageLocal seeds the local bank once and records why.
func (r *run) engageLocal(reason string) {
	if r.local == nil {
		r.local = seedLocal(r.opts.Bank, r.role)
	}
	if r.engaged {
		return
	}
	r.engaged = true
	r.opts.Recorder.LocalModeEngaged(r.ctx, reason)
	r.opts.Logger.Log(log.LogEvent{
		Event:     log.EventLocalModeEngaged,
		SessionID: r.sessionID,
		Role:      r.role,
		Reason:    reason,
	})
	if r.sessionID == "" {
		r.mode = ModeLocal
	}
}

// requestFinish finalizes remotely with a watchdog, or scores locally.
func (r *run) requestFinish() {
	if r.finishing {
		return
	}
	r.finishing = true
	r.phase++
	r.device.Cancel()
	r.watch.clear()
	r.pending = ""

	if r.mode == ModeLocal || r.sessionID == "" {
		r.completeLocal()
		return
	}
	ev, err := protocol.New(protocol.TypeFinishInterview, protocol.FinishInterview{SessionID: r.sessionID})
	if err == nil {
		err = r.opts.Channel.Send(r.ctx, ev)
	}
	if err != nil {
		r.completeLocal()
		return
	}
	r.waiting = waitFinish
	r.watch.arm(watchFinish, r.opts.FinishTimeout)
}

// completeLocal presents the heuristic recommendation over every captured
// answer.
func (r *run) completeLocal() {
	r.watch.clear()
	r.waiting = waitNone
	rec := r.opts.Score(r.answers, r.role, r.opts.Bank.Keywords(r.role))
	r.complete(SourceLocal, rec, nil)
}

func (r *run) complete(source string, rec scorer.Recommendation, keyPoints []string) {
	res := r.partial()
	res.Source = source
	res.Recommendation = rec
	res.KeyPoints = keyPoints
	r.result = res
}

func (r *run) partial() *Result {
	return &Result{
		SessionID:      r.sessionID,
		Role:           r.role,
		Mode:           r.mode,
		Questions:      append([]session.Question(nil), r.asked...),
		Answers:        append([]scorer.Answer(nil), r.answers...),
		LocalQuestions: r.localAsk,
		Errors:         append([]string(nil), r.errs...),
	}
}

func (r *run) expired() bool {
	return !r.deadline.IsZero() && !r.opts.Now().Before(r.deadline)
}

func (r *run) isStopPhrase(transcript string) bool {
	t := normalizePhrase(transcript)
	if t == "" {
		return false
	}
	for _, p := range r.opts.StopPhrases {
		if t == normalizePhrase(p) {
			return true
		}
	}
	return false
}

// normalizePhrase lowercases s, drops punctuation and collapses whitespace.
func normalizePhrase(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
