// init.go implements the "interview init" command.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/berth-dev/interview/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .interview/config.yaml",
	Long: `Create the .interview/ directory with a default configuration for the
coordinator, the generator backend, the client watchdogs, persistence and
telemetry.`,
	RunE: runInit,
}

var forceInit bool

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := projectRoot()
	if err != nil {
		return err
	}

	path := filepath.Join(config.Dir(dir), "config.yaml")
	if _, statErr := os.Stat(path); statErr == nil && !forceInit {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}

	if err := config.WriteConfig(dir, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s to use an API key without storing it in the file.\n", config.APIKeyEnv)
	return nil
}
