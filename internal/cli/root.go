// Package cli defines Cobra command definitions for the interview CLI.
// This file contains the root command, version flag, and help output.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	rootDir string
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "interview",
	Short: "Timed AI interview sessions with an offline fallback",
	Long: `Interview runs timed, turn-based interviews: an opening question, the
candidate's answer, an AI follow-up, and so on until time or the candidate
ends the session, followed by a recommendation with a score and feedback.

The coordinator ("interview serve") owns sessions and talks to the language
model. The client ("interview run") asks the questions and keeps going from a
local question bank when the coordinator is slow or unreachable.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Write log events to stderr instead of .interview/log.jsonl")
	rootCmd.PersistentFlags().StringVar(&rootDir, "dir", "", "Project directory holding .interview/ (default: current directory)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rehearseCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanCmd)
}
