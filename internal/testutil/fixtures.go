// Package testutil provides test helpers shared by interview packages.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/berth-dev/interview/internal/generator"
	"github.com/berth-dev/interview/internal/persistence"
)

// TempFiles creates a temporary directory with the given files and returns
// its path. Files is a map of relative path -> content. Directories are
// created as needed. The directory is removed when the test finishes.
func TempFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// ErrScripted is the error returned by a ScriptedGenerator told to fail.
var ErrScripted = errors.New("scripted generator failure")

// ScriptedGenerator replies with canned output per request kind. Replies for
// a kind are consumed in order; the last one repeats. A kind with no replies
// fails with ErrUnavailable.
type ScriptedGenerator struct {
	mu       sync.Mutex
	replies  map[generator.Kind][]string
	failing  map[generator.Kind]bool
	requests []generator.Request
}

// NewScriptedGenerator returns an empty generator; every call fails until
// replies are added.
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{
		replies: make(map[generator.Kind][]string),
		failing: make(map[generator.Kind]bool),
	}
}

// Reply queues raw output for kind.
func (g *ScriptedGenerator) Reply(kind generator.Kind, raw ...string) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[kind] = append(g.replies[kind], raw...)
	return g
}

// Fail makes every call for kind fail.
func (g *ScriptedGenerator) Fail(kind generator.Kind) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing[kind] = true
	return g
}

// Generate implements generator.Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, req generator.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", generator.ErrUnavailable, err)
	}
	queue := g.replies[req.Kind]
	if g.failing[req.Kind] || len(queue) == 0 {
		return "", &generator.Error{Kind: req.Kind, Err: fmt.Errorf("%w: %w", generator.ErrUnavailable, ErrScripted)}
	}
	raw := queue[0]
	if len(queue) > 1 {
		g.replies[req.Kind] = queue[1:]
	}
	return raw, nil
}

// Requests returns the requests received so far.
func (g *ScriptedGenerator) Requests() []generator.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generator.Request(nil), g.requests...)
}

// Count returns how many requests of kind were received.
func (g *ScriptedGenerator) Count(kind generator.Kind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// MemoryPersister records saved interviews in memory. Err, when set, is
// returned from every Save.
type MemoryPersister struct {
	mu    sync.Mutex
	saved []persistence.Record
	Err   error
}

// Save records rec.
func (p *MemoryPersister) Save(_ context.Context, rec persistence.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.saved = append(p.saved, rec)
	return nil
}

// Saved returns the recorded interviews.
func (p *MemoryPersister) Saved() []persistence.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]persistence.Record(nil), p.saved...)
}
