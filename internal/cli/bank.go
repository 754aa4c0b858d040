// bank.go implements "interview bank" for inspecting the local question bank.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var bankCmd = &cobra.Command{
	Use:   "bank [role]",
	Short: "List fallback roles or a role's questions",
	Long: `Without arguments, list the roles in the local question bank. With a
role, print its questions in the order the client asks them and the
keywords the heuristic scorer looks for.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBank,
}

func runBank(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, role := range e.bank.Roles() {
			qs, _ := e.bank.Questions(role)
			fmt.Fprintf(out, "  %-20s %2d questions\n", role, len(qs))
		}
		return nil
	}

	role := args[0]
	qs, ok := e.bank.Questions(role)
	if !ok {
		return fmt.Errorf("unknown role %q; known roles: %s", role, strings.Join(e.bank.Roles(), ", "))
	}
	for i, q := range qs {
		fmt.Fprintf(out, "%2d. %s\n", i+1, q)
	}
	if kw := e.bank.Keywords(role); len(kw) > 0 {
		fmt.Fprintf(out, "\nKeywords: %s\n", strings.Join(kw, ", "))
	}
	return nil
}
