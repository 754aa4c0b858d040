package generator

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/berth-dev/interview/prompts"
)

var templates = map[Kind]*template.Template{
	KindOpening:        template.Must(template.New("opening").Parse(prompts.OpeningTemplate)),
	KindFollowup:       template.Must(template.New("followup").Parse(prompts.FollowupTemplate)),
	KindRecommendation: template.Must(template.New("recommendation").Parse(prompts.RecommendationTemplate)),
}

// BuildPrompt renders the system and user prompts for req.
func BuildPrompt(req Request) (system, user string, err error) {
	tmpl, ok := templates[req.Kind]
	if !ok {
		return "", "", fmt.Errorf("generator: no template for %s", req.Kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, req); err != nil {
		return "", "", fmt.Errorf("generator: rendering %s prompt: %w", req.Kind, err)
	}
	return prompts.InterviewerSystemPrompt, buf.String(), nil
}
