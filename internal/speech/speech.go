// Package speech is the boundary to text-to-speech and speech-to-text. The
// engines themselves are external; Device models the single audio resource
// they share.
package speech

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable means the audio resource cannot be used at all. It is not
// recoverable within an interview.
var ErrUnavailable = errors.New("speech resource unavailable")

// Speaker plays text and blocks until playback completes or ctx ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Listener captures one transcript and blocks until it is available or ctx
// ends. io.EOF means the candidate has no more input.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// State of a Device.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Device arbitrates the audio resource between speaking and listening. At
// most one phase is active; starting a phase cancels the previous one.
type Device struct {
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	phase  uint64
}

// Begin starts a phase derived from ctx, cancelling any in-flight phase. The
// returned end func returns the device to Idle if the phase is still
// current; calling it more than once is harmless.
func (d *Device) Begin(ctx context.Context) (context.Context, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	phaseCtx, cancel := context.WithCancel(ctx)
	d.phase++
	id := d.phase
	d.state = Active
	d.cancel = cancel

	return phaseCtx, func() {
		cancel()
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.phase == id {
			d.state = Idle
			d.cancel = nil
		}
	}
}

// Cancel aborts the current phase, if any.
func (d *Device) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.state = Idle
}

// State returns the current state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
