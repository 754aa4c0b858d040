// Package transport carries protocol events between the client and the
// coordinator. Sends are asynchronous; replies arrive on Events().
package transport

import (
	"context"
	"errors"

	"github.com/berth-dev/interview/internal/protocol"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("transport: channel closed")
	// ErrQueueFull is returned by Send when too many events are pending.
	ErrQueueFull = errors.New("transport: send queue full")
)

// queueSize bounds pending outbound and undelivered inbound events.
const queueSize = 64

// Channel is the client side of the coordinator connection. A transport
// failure produces no event; callers detect silence with their own timers.
type Channel interface {
	// Ping reports whether the coordinator is reachable.
	Ping(ctx context.Context) error
	// Send queues ev and returns without waiting for the reply.
	Send(ctx context.Context, ev protocol.Event) error
	// Events delivers coordinator events. It is closed by Close.
	Events() <-chan protocol.Event
	Close() error
}
