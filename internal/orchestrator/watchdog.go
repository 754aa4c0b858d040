package orchestrator

import "time"

// watchdogKind names what a watchdog is waiting for.
type watchdogKind string

const (
	watchCreate   watchdogKind = "create"
	watchFollowup watchdogKind = "followup"
	watchFinish   watchdogKind = "finish"
)

// watchdogFired is posted to the loop when a timer expires. token
// identifies the arming; expiries of cleared or re-armed watchdogs carry a
// stale token and are dropped.
type watchdogFired struct {
	kind  watchdogKind
	token uint64
}

// watchdog holds at most one armed timer, so the create, follow-up and
// finish watchdogs are mutually exclusive.
type watchdog struct {
	post  func(any)
	token uint64
	kind  watchdogKind
	timer *time.Timer
}

func (w *watchdog) arm(kind watchdogKind, d time.Duration) {
	w.clear()
	w.token++
	w.kind = kind
	token := w.token
	w.timer = time.AfterFunc(d, func() {
		w.post(watchdogFired{kind: kind, token: token})
	})
}

// clear stops the armed timer. A timer that already fired is invalidated by
// bumping the token.
func (w *watchdog) clear() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.kind = ""
	w.token++
}

// current reports whether f belongs to the armed watchdog.
func (w *watchdog) current(f watchdogFired) bool {
	return w.timer != nil && f.token == w.token && f.kind == w.kind
}
