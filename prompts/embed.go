package prompts

import _ "embed"

//go:embed interviewer/system.md
var InterviewerSystemPrompt string

//go:embed interviewer/opening.md.tmpl
var OpeningTemplate string

//go:embed interviewer/followup.md.tmpl
var FollowupTemplate string

//go:embed interviewer/recommendation.md.tmpl
var RecommendationTemplate string
