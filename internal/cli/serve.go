// serve.go implements the "interview serve" command running the coordinator.
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
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session coordinator",
	Long: `Serve the coordinator protocol over HTTP (POST /events, GET /health,
GET /sessions/{id}). Finished interviews are stored in SQLite when
persistence is enabled.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides coordinator.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	addr := e.cfg.Coordinator.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := e.newStack(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	srv, err := coordinator.NewServer(st.coord, addr, e.logger)
	if err != nil {
		return err
	}
	fmt.Printf("Coordinator listening on %s\n", srv.URL())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return st.coord.RunReaper(gctx, e.reaperOptions())
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	fmt.Println("Coordinator stopped.")
	return nil
}
