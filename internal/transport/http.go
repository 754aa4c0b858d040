package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/protocol"
)

// HTTPOptions configures an HTTPChannel.
type HTTPOptions struct {
	// BaseURL is the coordinator root, e.g. http://127.0.0.1:7420.
	BaseURL string
	// Timeout bounds each request. Generator calls run inside requests, so
	// it should exceed the generator timeout.
	Timeout time.Duration
	Logger  *log.Logger
}

// HTTPChannel posts events to the coordinator's /events endpoint from a
// single sender goroutine, so the coordinator sees them in Send order, and
// publishes each reply.
type HTTPChannel struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger

	out    chan outbound
	events chan protocol.Event
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type outbound struct {
	typ  protocol.Type
	body []byte
}

var _ Channel = (*HTTPChannel)(nil)

// NewHTTPChannel creates a channel to the coordinator at opts.BaseURL.
func NewHTTPChannel(opts HTTPOptions) *HTTPChannel {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &HTTPChannel{
		baseURL: base,
		logger:  opts.Logger,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		out:    make(chan outbound, queueSize),
		events: make(chan protocol.Event, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	c.wg.Add(1)
	go c.sendLoop()
	return c
}

// Ping checks GET /health.
func (c *HTTPChannel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("transport: building ping: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("transport: ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: ping: status %s", resp.Status)
	}
	return nil
}

// Send queues ev for posting. The request outlives ctx; it is cancelled
// only by Close.
func (c *HTTPChannel) Send(ctx context.Context, ev protocol.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("transport: encoding %s: %w", ev.Type, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.out <- outbound{typ: ev.Type, body: body}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *HTTPChannel) sendLoop() {
	defer c.wg.Done()
	for msg := range c.out {
		reply, err := c.roundTrip(msg.body)
		if err != nil {
			c.logger.Log(log.LogEvent{Event: log.EventRemoteError, Kind: string(msg.typ), Error: err.Error()})
			continue
		}
		select {
		case c.events <- reply:
		case <-c.ctx.Done():
		}
	}
}

// roundTrip posts one event. Non-2xx replies that carry an event (such as
// an error event for an unknown session) are returned as events.
func (c *HTTPChannel) roundTrip(body []byte) (protocol.Event, error) {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return protocol.Event{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.Event{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var reply protocol.Event
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil || reply.Type == "" {
		return protocol.Event{}, fmt.Errorf("status %s: undecodable reply", resp.Status)
	}
	return reply, nil
}

// Events implements Channel.
func (c *HTTPChannel) Events() <-chan protocol.Event {
	return c.events
}

// Close cancels in-flight requests and closes Events.
func (c *HTTPChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.out)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	close(c.events)
	return nil
}
