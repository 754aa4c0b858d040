// Package persistence stores finished interviews. The coordinator hands a
// Record over at finalization; storage failures never reach the candidate.
package persistence

import (
	"context"
	"time"
)

// Record is one finished interview, keyed by session id.
type Record struct {
	SessionID  string    `json:"sessionId"`
	Role       string    `json:"role"`
	ResumeText string    `json:"resumeText"`
	StartedAt  time.Time `json:"startedAt"`
	EndsAt     time.Time `json:"endsAt"`
	Summary    string    `json:"summary"`
	Tier       string    `json:"tier"`
	Score      int       `json:"score"`
	KeyPoints  []string  `json:"keyPoints"`
}

// Persister saves finished interviews.
type Persister interface {
	Save(ctx context.Context, rec Record) error
}

// Noop accepts and drops every record.
type Noop struct{}

// Save does nothing.
func (Noop) Save(context.Context, Record) error { return nil }
