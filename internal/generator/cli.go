package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIClient generates text by spawning the claude CLI in print mode.
type CLIClient struct {
	// Command is the executable to run; defaults to "claude".
	Command string
	Model   string
	Timeout time.Duration
}

// cliOutput is the subset of `claude --output-format json` we read.
type cliOutput struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

// Generate runs one CLI invocation for req and returns the result text.
func (c *CLIClient) Generate(ctx context.Context, req Request) (string, error) {
	system, user, err := BuildPrompt(req)
	if err != nil {
		return "", &Error{Kind: req.Kind, Err: err}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.command(), c.args(system, user)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", unavailable(req.Kind, fmt.Errorf("claude timed out after %s", timeout))
		}
		return "", unavailable(req.Kind, fmt.Errorf("claude exited with error: %w; stderr: %s", err, strings.TrimSpace(stderr.String())))
	}

	var out cliOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		// Older CLI versions print the bare result.
		return stdout.String(), nil
	}
	if out.IsError {
		return "", unavailable(req.Kind, fmt.Errorf("claude reported an error: %s", out.Result))
	}
	return out.Result, nil
}

func (c *CLIClient) command() string {
	if c.Command == "" {
		return "claude"
	}
	return c.Command
}

func (c *CLIClient) args(system, user string) []string {
	args := []string{
		"-p", user,
		"--append-system-prompt", system,
		"--output-format", "json",
	}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	return args
}
