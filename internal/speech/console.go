package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	interviewerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))
	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Console speaks by printing and listens by reading lines. It stands in for
// real TTS/STT engines in the terminal.
type Console struct {
	out    io.Writer
	lines  chan lineResult
	once   sync.Once
	reader *bufio.Reader
	plain  bool
}

type lineResult struct {
	text string
	err  error
}

// NewConsole reads transcripts from in and prints questions to out. Styling
// is dropped when out is not a terminal.
func NewConsole(in io.Reader, out io.Writer) *Console {
	plain := true
	if f, ok := out.(*os.File); ok {
		plain = !term.IsTerminal(int(f.Fd()))
	}
	return &Console{
		out:    out,
		lines:  make(chan lineResult),
		reader: bufio.NewReader(in),
		plain:  plain,
	}
}

// RequireTTY fails with ErrUnavailable when f is not an interactive
// terminal.
func RequireTTY(f *os.File) error {
	if !term.IsTerminal(int(f.Fd())) {
		return fmt.Errorf("%w: %s is not a terminal", ErrUnavailable, f.Name())
	}
	return nil
}

// Speak prints text as the interviewer.
func (c *Console) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	label, body := "Interviewer:", text
	if !c.plain {
		label, body = interviewerStyle.Render(label), questionStyle.Render(text)
	}
	if _, err := fmt.Fprintf(c.out, "%s %s\n", label, body); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Listen returns the next non-empty line. A line read after ctx ended is
// delivered to the next Listen call.
func (c *Console) Listen(ctx context.Context) (string, error) {
	c.once.Do(func() { go c.readLoop() })

	prompt := "> "
	if !c.plain {
		prompt = promptStyle.Render(prompt)
	}
	fmt.Fprint(c.out, prompt)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return r.text, r.err
	}
}

func (c *Console) readLoop() {
	defer close(c.lines)
	for {
		line, err := c.reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if text != "" {
			c.lines <- lineResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				c.lines <- lineResult{err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
			}
			return
		}
	}
}
