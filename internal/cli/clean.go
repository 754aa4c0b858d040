// clean.go implements "interview clean" for pruning persisted interviews.
package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/interview/internal/persistence"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Prune old interviews from the history database",
	RunE:  runClean,
}

var (
	cleanOlderThan int
	cleanKeep      int
	cleanDryRun    bool
)

func init() {
	cleanCmd.Flags().IntVar(&cleanOlderThan, "older-than", 0, "Remove interviews started more than N days ago")
	cleanCmd.Flags().IntVar(&cleanKeep, "keep", 0, "Keep only the N most recent interviews")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanOlderThan <= 0 && cleanKeep <= 0 {
		return errors.New("specify --older-than or --keep")
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if !e.cfg.Persistence.Enabled {
		return errors.New("persistence is disabled in config")
	}
	db, err := persistence.OpenSQLite(cmd.Context(), resolve(e.root, e.cfg.Persistence.Path))
	if err != nil {
		return err
	}
	defer db.Close()

	var pruned []string
	if cleanOlderThan > 0 {
		pruned, err = db.PruneBefore(cmd.Context(), time.Now().AddDate(0, 0, -cleanOlderThan), cleanDryRun)
	} else {
		pruned, err = db.PruneKeepRecent(cmd.Context(), cleanKeep, cleanDryRun)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(pruned) == 0 {
		fmt.Fprintln(out, "Nothing to clean.")
		return nil
	}
	verb := "Removed"
	if cleanDryRun {
		verb = "Would remove"
	}
	for _, id := range pruned {
		fmt.Fprintf(out, "  %s\n", id)
	}
	fmt.Fprintf(out, "%s %d interview(s).\n", verb, len(pruned))
	return nil
}
