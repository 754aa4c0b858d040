// run.go implements the "interview run" command: the candidate-facing client.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/interview/internal/orchestrator"
	"github.com/berth-dev/interview/internal/speech"
	"github.com/berth-dev/interview/internal/telemetry"
	"github.com/berth-dev/interview/internal/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Conduct an interview in the terminal",
	Long: `Ask interview questions in the terminal and read the candidate's answers.
Questions come from the coordinator; when it is unreachable or slow the
client continues from the local question bank and scores the interview
itself. Say "finish" (or another configured stop phrase) to end early.`,
	RunE: runRun,
}

// clientFlags are shared by run and rehearse.
type clientFlags struct {
	role        string
	resumeFile  string
	scriptFile  string
	durationMin int
	offline     bool
	coordinator string
}

var runFlags clientFlags

func (f *clientFlags) register(cmd *cobra.Command, remote bool) {
	cmd.Flags().StringVar(&f.role, "role", "", "Role the candidate is interviewing for (picked interactively when omitted)")
	cmd.Flags().StringVar(&f.resumeFile, "resume", "", "Plain-text resume file")
	cmd.Flags().StringVar(&f.scriptFile, "script", "", "Read answers from a file instead of the terminal")
	cmd.Flags().IntVar(&f.durationMin, "duration", 0, "Interview length in minutes (overrides client.duration_min)")
	if remote {
		cmd.Flags().BoolVar(&f.offline, "offline", false, "Skip the coordinator and interview from the local bank")
		cmd.Flags().StringVar(&f.coordinator, "coordinator", "", "Coordinator URL (overrides client.coordinator_url)")
	}
}

func init() {
	runFlags.register(runCmd, true)
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ch transport.Channel
	if !runFlags.offline {
		url := e.cfg.Client.CoordinatorURL
		if runFlags.coordinator != "" {
			url = runFlags.coordinator
		}
		httpCh := transport.NewHTTPChannel(transport.HTTPOptions{
			BaseURL: url,
			Timeout: e.cfg.Generator.CallTimeout()*3 + 10*time.Second,
			Logger:  e.logger,
		})
		defer httpCh.Close()
		ch = httpCh
	}

	recorder, err := telemetry.New(ctx, e.telemetryConfig())
	if err != nil {
		return err
	}
	defer closeRecorder(recorder)

	res, err := interview(ctx, e, &runFlags, ch, recorder)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

// interview runs the orchestrator with console speech.
func interview(ctx context.Context, e *env, f *clientFlags, ch transport.Channel, recorder telemetry.Recorder) (*orchestrator.Result, error) {
	role, err := chooseRole(f.role, e.bank)
	if err != nil {
		return nil, err
	}

	resume := ""
	if f.resumeFile != "" {
		data, err := os.ReadFile(f.resumeFile)
		if err != nil {
			return nil, fmt.Errorf("reading resume: %w", err)
		}
		resume = string(data)
	}

	console := speech.NewConsole(os.Stdin, os.Stdout)
	var listener speech.Listener = console
	if f.scriptFile != "" {
		script, err := speech.LoadScript(f.scriptFile)
		if err != nil {
			return nil, err
		}
		listener = script
	} else if err := speech.RequireTTY(os.Stdin); err != nil {
		return nil, fmt.Errorf("%w (use --script to supply answers)", err)
	}

	clientCfg := e.cfg.Client
	if f.durationMin > 0 {
		clientCfg.DurationMin = f.durationMin
	}
	o, err := orchestrator.New(orchestrator.Options{
		Channel:         ch,
		Speaker:         console,
		Listener:        listener,
		Bank:            e.bank,
		ConnectTimeout:  clientCfg.ConnectDeadline(),
		FollowupTimeout: clientCfg.FollowupWatchdog(),
		FinishTimeout:   clientCfg.FinishWatchdog(),
		Duration:        clientCfg.Duration(),
		DurationMin:     clientCfg.DurationMin,
		StopPhrases:     clientCfg.StopPhrases,
		Logger:          e.logger,
		Recorder:        recorder,
	})
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, role, resume)
}

func printResult(res *orchestrator.Result) {
	rec := res.Recommendation
	fmt.Println()
	fmt.Println("Interview complete")
	fmt.Printf("  Role:           %s\n", res.Role)
	if res.SessionID != "" {
		fmt.Printf("  Session:        %s\n", res.SessionID)
	}
	fmt.Printf("  Questions:      %d (%d from the local bank)\n", len(res.Questions), res.LocalQuestions)
	fmt.Printf("  Scored by:      %s\n", res.Source)
	fmt.Printf("  Recommendation: %s (%d/100)\n", rec.Tier, rec.Score)
	if rec.Summary != "" {
		fmt.Printf("\n%s\n", rec.Summary)
	}
	printList("Strengths", rec.Strengths)
	printList("Weaknesses", rec.Weaknesses)
	printList("Key points", res.KeyPoints)
	if len(res.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nCoordinator errors: %s\n", strings.Join(res.Errors, "; "))
	}
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}
