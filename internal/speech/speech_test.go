package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDeviceBeginCancelsPrevious(t *testing.T) {
	var d Device
	if d.State() != Idle {
		t.Fatalf("new device should be idle")
	}

	first, endFirst := d.Begin(context.Background())
	if d.State() != Active {
		t.Fatalf("Begin should activate the device")
	}
	second, endSecond := d.Begin(context.Background())

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("first phase was not cancelled")
	}
	if second.Err() != nil {
		t.Fatal("second phase should still be live")
	}

	endFirst()
	if d.State() != Active {
		t.Error("ending a stale phase must not idle the device")
	}
	endSecond()
	endSecond()
	if d.State() != Idle {
		t.Error("ending the current phase should idle the device")
	}
}

func TestDeviceCancel(t *testing.T) {
	var d Device
	ctx, _ := d.Begin(context.Background())
	d.Cancel()
	if ctx.Err() == nil {
		t.Error("Cancel should end the phase")
	}
	if d.State() != Idle {
		t.Error("Cancel should idle the device")
	}
}

func TestScript(t *testing.T) {
	s := NewScript("one", "two")
	ctx := context.Background()
	for _, want := range []string{"one", "two"} {
		got, err := s.Listen(ctx)
		if err != nil || got != want {
			t.Fatalf("Listen: got %q, %v; want %q", got, err, want)
		}
	}
	if _, err := s.Listen(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("exhausted script: got %v, want io.EOF", err)
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.txt")
	content := "# warm-up\nI build APIs\n\n  I tune SQL  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if s.Remaining() != 2 {
		t.Fatalf("Remaining: got %d, want 2", s.Remaining())
	}
	if got, _ := s.Listen(context.Background()); got != "I build APIs" {
		t.Errorf("first line: %q", got)
	}
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("\nfirst answer\nsecond answer"), &out)
	ctx := context.Background()

	if err := c.Speak(ctx, "What is a race condition?"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if !strings.Contains(out.String(), "Interviewer: What is a race condition?") {
		t.Errorf("output: %q", out.String())
	}

	for _, want := range []string{"first answer", "second answer"} {
		got, err := c.Listen(ctx)
		if err != nil || got != want {
			t.Fatalf("Listen: got %q, %v; want %q", got, err, want)
		}
	}
	if _, err := c.Listen(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("end of input: got %v, want io.EOF", err)
	}
}

func TestConsoleListenHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := NewConsole(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Listen(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", err)
	}
}

func TestRecorder(t *testing.T) {
	var out bytes.Buffer
	r := &Recorder{W: &out}
	_ = r.Speak(context.Background(), "hello")
	if got := r.Spoken(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("Spoken: %v", got)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("echo missing")
	}
}
