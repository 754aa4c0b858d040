package generator

import (
	"encoding/json"
	"strings"
)

// Result is the outcome of parsing generator output: either Parsed with a
// structured Value, or Unparsed with only Raw available. Call sites must
// handle the Unparsed arm with their own heuristic.
type Result[T any] struct {
	Value  T
	Raw    string
	Parsed bool
}

// Parse decodes raw as T. It tries the whole text first, then the first
// JSON object embedded in it (code fences and surrounding prose stripped).
func Parse[T any](raw string) Result[T] {
	res := Result[T]{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return res
	}
	if err := json.Unmarshal([]byte(trimmed), &res.Value); err == nil {
		res.Parsed = true
		return res
	}

	var zero T
	res.Value = zero
	cleaned := cleanJSONOutput(trimmed)
	if cleaned == trimmed {
		return res
	}
	if err := json.Unmarshal([]byte(cleaned), &res.Value); err == nil {
		res.Parsed = true
		return res
	}
	res.Value = zero
	return res
}

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// cleanJSONOutput extracts JSON from model output, handling cases where the
// model includes explanatory text before/after the JSON or wraps it in
// markdown code fences.
func cleanJSONOutput(s string) string {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "```json"); idx != -1 {
		s = s[idx+7:]
		if endIdx := strings.Index(s, "```"); endIdx != -1 {
			s = s[:endIdx]
		}
		return strings.TrimSpace(s)
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		// Skip optional language identifier on same line.
		if nlIdx := strings.Index(s, "\n"); nlIdx != -1 && nlIdx < 20 {
			s = s[nlIdx+1:]
		}
		if endIdx := strings.Index(s, "```"); endIdx != -1 {
			s = s[:endIdx]
		}
		return strings.TrimSpace(s)
	}

	// Look for '{"' to avoid matching braces in prose like "{see below}".
	start := strings.Index(s, `{"`)
	if start == -1 {
		start = strings.Index(s, "{")
	}
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}

	return s
}

// OpeningOutput is the structured reply to a KindOpening request.
type OpeningOutput struct {
	Question string `json:"question"`
}

// FollowupOutput is the structured reply to a KindFollowup request. A nil
// or blank Followup means the generator has no further question.
type FollowupOutput struct {
	Followup  *string  `json:"followup"`
	KeyPoints []string `json:"keyPoints"`
}

// FollowupText returns the trimmed follow-up text, or "" when absent.
func (o FollowupOutput) FollowupText() string {
	if o.Followup == nil {
		return ""
	}
	return strings.TrimSpace(*o.Followup)
}

// RecommendationOutput is the structured reply to a KindRecommendation
// request.
type RecommendationOutput struct {
	Tier       string   `json:"tier"`
	Score      *int     `json:"score"`
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}
