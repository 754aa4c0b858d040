// Package scorer produces interview recommendations. It defines the shared
// Recommendation type and the deterministic heuristic used when no
// generator-backed recommendation is available.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/berth-dev/interview/internal/questionbank"
)

// Tier is the recommendation outcome.
type Tier string

const (
	TierProceed          Tier = "Proceed"
	TierCoach            Tier = "Coach"
	TierNeedsDevelopment Tier = "NeedsDevelopment"
	// TierUndetermined marks a recommendation whose generator output could
	// not be parsed.
	TierUndetermined Tier = "Undetermined"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierProceed, TierCoach, TierNeedsDevelopment, TierUndetermined:
		return true
	}
	return false
}

// Recommendation is the final verdict for an interview.
type Recommendation struct {
	Tier       Tier     `json:"tier"`
	Score      int      `json:"score"`
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Answer is one question/transcript pair fed to the scorer.
type Answer struct {
	QuestionID string `json:"questionId,omitempty" yaml:"question_id"`
	Question   string `json:"question,omitempty" yaml:"question"`
	Transcript string `json:"transcript" yaml:"transcript"`
}

// Thresholds used by Score.
const (
	detailedWordsThreshold = 30
	keywordThreshold       = 50
	coverageThreshold      = 6
	wordCap                = 120
	proceedThreshold       = 70
	coachThreshold         = 45
	defaultKeywordScore    = 50
)

// Strength and weakness phrases.
const (
	StrengthDetailed    = "detailed answers"
	StrengthTerminology = "relevant terminology"
	WeaknessBrief       = "answers too brief"
	WeaknessTerminology = "more domain terms needed"
	WeaknessCoverage    = "insufficient topic coverage"
)

// Metrics are the intermediate values Score derives from the answers.
type Metrics struct {
	AnswerCount    int
	TotalWords     int
	AvgWords       int
	KeywordMatches int
	KeywordCount   int
	KeywordScore   int
}

// Measure computes the scoring metrics for answers against keywords.
func Measure(answers []Answer, keywords []string) Metrics {
	transcripts := make([]string, len(answers))
	for i, a := range answers {
		transcripts[i] = a.Transcript
	}
	joined := strings.Join(transcripts, " ")

	m := Metrics{
		AnswerCount:  len(answers),
		TotalWords:   len(strings.Fields(joined)),
		KeywordCount: len(keywords),
	}
	if m.AnswerCount > 0 {
		m.AvgWords = int(math.Round(float64(m.TotalWords) / float64(m.AnswerCount)))
	}

	if len(keywords) == 0 {
		m.KeywordScore = defaultKeywordScore
		return m
	}

	lower := strings.ToLower(joined)
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if strings.Contains(lower, k) {
			m.KeywordMatches++
		}
	}
	m.KeywordScore = int(math.Round(100 * float64(m.KeywordMatches) / float64(max(1, m.KeywordCount))))
	return m
}

// Score is the deterministic heuristic recommendation. It is pure and never
// fails; identical inputs yield identical output.
func Score(answers []Answer, role string, keywords []string) Recommendation {
	m := Measure(answers, keywords)

	words := float64(min(m.AvgWords, wordCap))
	score := int(math.Round(words*60/wordCap + float64(m.KeywordScore)*0.4))
	score = max(0, min(100, score))

	strengths := []string{}
	weaknesses := []string{}
	if m.AvgWords > detailedWordsThreshold {
		strengths = append(strengths, StrengthDetailed)
	} else {
		weaknesses = append(weaknesses, WeaknessBrief)
	}
	if m.KeywordScore > keywordThreshold {
		strengths = append(strengths, StrengthTerminology)
	} else {
		weaknesses = append(weaknesses, WeaknessTerminology)
	}
	if m.AnswerCount < coverageThreshold {
		weaknesses = append(weaknesses, WeaknessCoverage)
	}

	return Recommendation{
		Tier:       TierFor(score),
		Score:      score,
		Summary:    summarize(role, m, score),
		Strengths:  strengths,
		Weaknesses: weaknesses,
	}
}

// ScoreRole scores answers against the built-in keyword set for role.
func ScoreRole(answers []Answer, role string) Recommendation {
	return Score(answers, role, questionbank.Default().Keywords(role))
}

// TierFor maps a 0-100 score onto a tier.
func TierFor(score int) Tier {
	switch {
	case score >= proceedThreshold:
		return TierProceed
	case score >= coachThreshold:
		return TierCoach
	default:
		return TierNeedsDevelopment
	}
}

func summarize(role string, m Metrics, score int) string {
	if role == "" {
		role = "the role"
	}
	kw := "no role keywords were defined"
	if m.KeywordCount > 0 {
		kw = fmt.Sprintf("%d of %d role keywords were mentioned", m.KeywordMatches, m.KeywordCount)
	}
	return fmt.Sprintf("Heuristic assessment for %s: %d answers averaging %d words; %s. Overall score %d/100.",
		role, m.AnswerCount, m.AvgWords, kw, score)
}
