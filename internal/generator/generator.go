// Package generator is the boundary to the language model that writes
// interview questions, follow-ups and recommendations. Output is treated as
// untrusted text that is expected, but not guaranteed, to be JSON.
package generator

import (
	"context"
	"errors"
	"fmt"
)

// Kind selects what the generator is asked to produce.
type Kind int

const (
	KindOpening Kind = iota
	KindFollowup
	KindRecommendation
)

func (k Kind) String() string {
	switch k {
	case KindOpening:
		return "opening"
	case KindFollowup:
		return "followup"
	case KindRecommendation:
		return "recommendation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request is one generation call. Context carries the pre-rendered
// conversation or digest for follow-up and recommendation calls.
type Request struct {
	Kind       Kind
	Role       string
	ResumeText string
	Context    string
}

// Generator produces raw text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var (
	// ErrUnavailable means the generator could not be reached or timed out.
	ErrUnavailable = errors.New("generator unavailable")
	// ErrMalformedOutput means the generator replied with unusable text.
	ErrMalformedOutput = errors.New("generator output malformed")
)

// Error records which call failed and why.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generator %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func unavailable(kind Kind, err error) error {
	return &Error{Kind: kind, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
}
