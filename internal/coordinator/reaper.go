package coordinator

import (
	"context"
	"time"

	"github.com/berth-dev/interview/internal/log"
	"github.com/berth-dev/interview/internal/session"
)

// ReaperOptions configures periodic session maintenance.
type ReaperOptions struct {
	// AutoFinalize finalizes open sessions whose EndsAt has passed.
	AutoFinalize bool
	// Retention evicts finished sessions this long after they ended. Zero
	// keeps them for the lifetime of the process.
	Retention time.Duration
	Interval  time.Duration
}

// Reap runs one maintenance pass and returns the ids it auto-finalized and
// the ids it evicted.
func (c *Coordinator) Reap(ctx context.Context, opts ReaperOptions) (finalized, evicted []string) {
	now := c.now()
	if opts.AutoFinalize {
		var due []string
		c.store.Range(func(s *session.Session) bool {
			if !s.Ended && !s.EndsAt.IsZero() && now.After(s.EndsAt) {
				due = append(due, s.ID)
			}
			return true
		})
		for _, id := range due {
			if _, _, err := c.Finalize(ctx, id); err != nil {
				continue
			}
			finalized = append(finalized, id)
			c.logger.Log(log.LogEvent{Event: log.EventSessionAutoFinish, SessionID: id})
		}
	}

	evicted = c.store.Reap(now, opts.Retention)
	for _, id := range evicted {
		c.logger.Log(log.LogEvent{Event: log.EventSessionReaped, SessionID: id})
	}
	return finalized, evicted
}

// RunReaper runs Reap every opts.Interval until ctx is done. With neither
// auto-finalize nor retention configured it just waits for ctx.
func (c *Coordinator) RunReaper(ctx context.Context, opts ReaperOptions) error {
	if !opts.AutoFinalize && opts.Retention <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Reap(ctx, opts)
		}
	}
}
