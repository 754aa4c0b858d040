package orchestrator

import (
	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/protocol"
)

func (r *run) onRemote(ev protocol.Event) {
	switch ev.Type {
	case protocol.TypeSessionCreated:
		r.onSessionCreated(ev)
	case protocol.TypeFollowup:
		r.onFollowup(ev)
	case protocol.TypeFinished:
		r.onFinished(ev)
	case protocol.TypeError:
		r.onError(ev)
	default:
		r.ignore(ev, "unexpected event")
	}
}

func (r *run) onSessionCreated(ev protocol.Event) {
	if r.waiting != waitCreate {
		r.ignore(ev, "session_created after local mode engaged")
		return
	}
	created, err := protocol.Decode[protocol.SessionCreated](ev)
	if err != nil || created.SessionID == "" {
		r.ignore(ev, "malformed session_created")
		return
	}
	r.watch.clear()
	r.sessionID = created.SessionID
	r.mode = ModeRemote
	r.ask(question{ID: created.FirstQuestion.ID, Text: created.FirstQuestion.Text})
}

// onFollowup accepts a follow-up only for the answer still awaiting one.
// Once the follow-up watchdog has moved on to a local question, a late
// follow-up is dropped.
func (r *run) onFollowup(ev protocol.Event) {
	if r.waiting != waitFollowup || r.pending == "" {
		r.ignore(ev, "followup with no pending answer")
		return
	}
	f, err := protocol.Decode[protocol.Followup](ev)
	if err != nil {
		r.ignore(ev, "malformed followup")
		return
	}
	if f.InReplyTo != "" && f.InReplyTo != r.pending {
		r.ignore(ev, "followup for an earlier answer")
		return
	}
	r.watch.clear()
	r.pending = ""
	r.waiting = waitNone

	if !f.HasQuestion() {
		r.requestFinish()
		return
	}
	r.mode = ModeRemote
	r.ask(question{ID: f.Followup.ID, Text: f.Followup.Text})
}

func (r *run) onFinished(ev protocol.Event) {
	if r.waiting != waitFinish {
		r.ignore(ev, "finished after local result")
		return
	}
	fin, err := protocol.Decode[protocol.Finished](ev)
	if err != nil {
		r.ignore(ev, "malformed finished")
		return
	}
	r.watch.clear()
	r.waiting = waitNone
	r.complete(SourceCoordinator, fin.Recommendation, fin.Session.KeyPoints)
}

// onError records the message and continues locally from wherever the run
// was waiting.
func (r *run) onError(ev protocol.Event) {
	msg := "coordinator error"
	if e, err := protocol.Decode[protocol.Error](ev); err == nil && e.Message != "" {
		msg = e.Message
	}
	r.errs = append(r.errs, msg)
	r.opts.Logger.Log(log.LogEvent{
		Event:     log.EventRemoteError,
		SessionID: r.sessionID,
		Role:      r.role,
		Error:     msg,
	})

	was := r.waiting
	r.watch.clear()
	r.pending = ""
	r.waiting = waitNone
	r.engageLocal("coordinator error")
	r.mode = ModeLocal

	switch was {
	case waitCreate, waitFollowup:
		if r.expired() {
			r.requestFinish()
			return
		}
		r.askNextLocal()
	case waitFinish:
		r.completeLocal()
	}
}

func (r *run) onWatchdog(f watchdogFired) {
	if !r.watch.current(f) {
		return
	}
	r.watch.clear()
	r.opts.Recorder.WatchdogFired(r.ctx, string(f.kind))
	r.opts.Logger.Log(log.LogEvent{
		Event:     log.EventWatchdogFired,
		SessionID: r.sessionID,
		Role:      r.role,
		Kind:      string(f.kind),
	})

	switch f.kind {
	case watchCreate:
		r.waiting = waitNone
		r.engageLocal("create timed out")
		r.askNextLocal()

	case watchFollowup:
		// The remote session stays open; exactly one local question is
		// asked and its answer goes back to the coordinator.
		r.waiting = waitNone
		r.pending = ""
		r.engageLocal("followup timed out")
		r.askNextLocal()

	case watchFinish:
		r.completeLocal()
	}
}

func (r *run) ignore(ev protocol.Event, reason string) {
	r.opts.Logger.Log(log.LogEvent{
		Event:     log.EventLateEventIgnored,
		SessionID: r.sessionID,
		Kind:      string(ev.Type),
		Reason:    reason,
	})
}
