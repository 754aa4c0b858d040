package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Script is a Listener that replays fixed transcripts in order, then
// reports io.EOF.
type Script struct {
	mu    sync.Mutex
	lines []string
	next  int
}

// NewScript creates a Script from transcripts.
func NewScript(lines ...string) *Script {
	return &Script{lines: lines}
}

// LoadScript reads one transcript per line from path. Blank lines and lines
// starting with # are skipped.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("speech: opening script: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("speech: reading script: %w", err)
	}
	return NewScript(lines...), nil
}

// Listen returns the next transcript.
func (s *Script) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

// Remaining returns how many transcripts have not been consumed.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) - s.next
}

// Recorder is a Speaker that keeps everything it was asked to say and
// optionally echoes it to W.
type Recorder struct {
	W io.Writer

	mu     sync.Mutex
	spoken []string
}

// Speak records text.
func (r *Recorder) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	if r.W != nil {
		fmt.Fprintf(r.W, "Interviewer: %s\n", text)
	}
	return nil
}

// Spoken returns the recorded utterances.
func (r *Recorder) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}
