package transport

import (
	"context"
	"sync"

	"github.com/berth-dev/interview/internal/protocol"
)

// Handler answers one event, as coordinator.Coordinator.Handle does.
type Handler func(ctx context.Context, ev protocol.Event) protocol.Event

// Loopback is an in-process Channel that calls a Handler directly, one
// event at a time in Send order.
type Loopback struct {
	handle Handler
	out    chan protocol.Event
	events chan protocol.Event
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ Channel = (*Loopback)(nil)

// NewLoopback creates a Loopback around h.
func NewLoopback(h Handler) *Loopback {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loopback{
		handle: h,
		out:    make(chan protocol.Event, queueSize),
		events: make(chan protocol.Event, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	l.wg.Add(1)
	go l.sendLoop()
	return l
}

// Ping always succeeds until Close.
func (l *Loopback) Ping(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Send queues ev for the handler.
func (l *Loopback) Send(ctx context.Context, ev protocol.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.out <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (l *Loopback) sendLoop() {
	defer l.wg.Done()
	for ev := range l.out {
		if l.ctx.Err() != nil {
			continue
		}
		reply := l.handle(l.ctx, ev)
		select {
		case l.events <- reply:
		case <-l.ctx.Done():
		}
	}
}

// Events implements Channel.
func (l *Loopback) Events() <-chan protocol.Event {
	return l.events
}

// Close stops delivery and closes Events.
func (l *Loopback) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.out)
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
	close(l.events)
	return nil
}
