// Package log provides structured event logging.
// This file appends JSON events to log.jsonl.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventServerStarted      = "server_started"
	EventSessionCreated     = "session_created"
	EventGeneratorFallback  = "generator_fallback"
	EventAnswerRecorded     = "answer_recorded"
	EventFollowupGenerated  = "followup_generated"
	EventQuestionAdopted    = "question_adopted"
	EventSessionFinalized   = "session_finalized"
	EventPersistenceFailed  = "persistence_failed"
	EventSessionReaped      = "session_reaped"
	EventSessionAutoFinish  = "session_auto_finalized"
	EventInterviewStarted   = "interview_started"
	EventLocalModeEngaged   = "local_mode_engaged"
	EventWatchdogFired      = "watchdog_fired"
	EventLateEventIgnored   = "late_event_ignored"
	EventRemoteError        = "remote_error"
	EventInterviewCompleted = "interview_completed"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time       time.Time              `json:"time"`
	Event      string                 `json:"event"`
	SessionID  string                 `json:"session,omitempty"`
	Role       string                 `json:"role,omitempty"`
	QuestionID string                 `json:"question,omitempty"`
	Kind       string                 `json:"kind,omitempty"`
	Mode       string                 `json:"mode,omitempty"`
	Tier       string                 `json:"tier,omitempty"`
	Score      int                    `json:"score,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Logger writes append-only JSONL events. A nil *Logger discards events.
type Logger struct {
	path string
	w    io.Writer
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to .interview/log.jsonl inside dir.
// Creates the .interview/ directory if it does not already exist.
// Does not truncate an existing log file.
func NewLogger(dir string) (*Logger, error) {
	stateDir := filepath.Join(dir, ".interview")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create .interview directory: %w", err)
	}

	return &Logger{
		path: filepath.Join(stateDir, "log.jsonl"),
	}, nil
}

// NewWriterLogger creates a Logger that writes JSON lines to w.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Path returns the log file path, or "" for writer-backed loggers.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single LogEvent as one JSON line.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
// Thread-safe via mutex.
func (l *Logger) Append(event LogEvent) error {
	if l == nil {
		return nil
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w != nil {
		if _, err := l.w.Write(data); err != nil {
			return fmt.Errorf("write log event: %w", err)
		}
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}

	return nil
}

// Log appends event and drops any write error. Logging never interrupts an
// interview.
func (l *Logger) Log(event LogEvent) {
	_ = l.Append(event)
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	if l == nil || l.path == "" {
		return []LogEvent{}, nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	events := []LogEvent{}
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}
