// rehearse.go implements "interview rehearse": coordinator and client in one
// process.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/berth-dev/interview/internal/coordinator"
	"github.com/berth-dev/interview/internal/orchestrator"
	"github.com/berth-dev/interview/internal/transport"
)

var rehearseCmd = &cobra.Command{
	Use:   "rehearse",
	Short: "Run a coordinator and an interview together",
	Long: `Start an embedded coordinator on a random localhost port and interview
against it. Useful for practice and for trying generator settings.`,
	RunE: runRehearse,
}

var (
	rehearseFlags     clientFlags
	rehearseInProcess bool
)

func init() {
	rehearseFlags.register(rehearseCmd, false)
	rehearseCmd.Flags().BoolVar(&rehearseInProcess, "in-process", false, "Call the coordinator directly instead of over HTTP")
}

func runRehearse(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := e.newStack(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	if rehearseInProcess {
		ch := transport.NewLoopback(st.coord.Handle)
		defer ch.Close()
		res, err := interview(ctx, e, &rehearseFlags, ch, st.recorder)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	}

	srv, err := coordinator.NewServer(st.coord, "127.0.0.1:0", e.logger)
	if err != nil {
		return err
	}
	ch := transport.NewHTTPChannel(transport.HTTPOptions{
		BaseURL: srv.URL(),
		Timeout: e.cfg.Generator.CallTimeout()*3 + 10*time.Second,
		Logger:  e.logger,
	})
	defer ch.Close()

	var res *orchestrator.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		var err error
		res, err = interview(gctx, e, &rehearseFlags, ch, st.recorder)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rehearse: %w", err)
	}
	printResult(res)
	return nil
}
