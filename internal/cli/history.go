// history.go implements "interview history" over the persisted interviews.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berth-dev/interview/internal/persistence"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List finished interviews or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum interviews to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
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
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		rec, err := db.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	recs, err := db.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No finished interviews yet.")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(out, "  %s  %-20s  %-16s %3d  %s\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Role, r.Tier, r.Score, r.SessionID)
	}
	return nil
}
