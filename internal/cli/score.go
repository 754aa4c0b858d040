// score.go implements "interview score": offline heuristic scoring of a
// transcript file.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/berth-dev/interview/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score FILE",
	Short: "Score a transcript with the heuristic scorer",
	Long: `Score a YAML or JSON transcript without a language model:

  role: Backend Engineer
  answers:
    - question: How do you design an API?
      transcript: I start from the resources and their invariants...`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

var (
	scoreRole string
	scoreJSON bool
)

func init() {
	scoreCmd.Flags().StringVar(&scoreRole, "role", "", "Override the role named in the file")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the recommendation as JSON")
}

// transcriptFile is the on-disk shape read by "interview score". JSON is
// accepted because it is valid YAML.
type transcriptFile struct {
	Role    string `yaml:"role"`
	Answers []struct {
		Question   string `yaml:"question"`
		Transcript string `yaml:"transcript"`
	} `yaml:"answers"`
}

func loadTranscript(path string) (string, []scorer.Answer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading transcript: %w", err)
	}
	var tf transcriptFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return "", nil, fmt.Errorf("parsing transcript: %w", err)
	}
	answers := make([]scorer.Answer, 0, len(tf.Answers))
	for i, a := range tf.Answers {
		answers = append(answers, scorer.Answer{
			QuestionID: fmt.Sprintf("q%d", i+1),
			Question:   a.Question,
			Transcript: a.Transcript,
		})
	}
	return tf.Role, answers, nil
}

func runScore(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	role, answers, err := loadTranscript(args[0])
	if err != nil {
		return err
	}
	if scoreRole != "" {
		role = scoreRole
	}

	rec := scorer.Score(answers, role, e.bank.Keywords(role))
	out := cmd.OutOrStdout()
	if scoreJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Fprintf(out, "%s: %s (%d/100)\n", role, rec.Tier, rec.Score)
	fmt.Fprintf(out, "%s\n", rec.Summary)
	for _, s := range rec.Strengths {
		fmt.Fprintf(out, "  + %s\n", s)
	}
	for _, w := range rec.Weaknesses {
		fmt.Fprintf(out, "  - %s\n", w)
	}
	return nil
}
