package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/smile-viewer/internal"
	"github.com/iksnae/smile-viewer/internal/stub"
	"github.com/spf13/cobra"
)

var (
	stubAddr            string
	stubDB              string
	stubCaptureInterval time.Duration
	stubSmileEvery      int
	stubFailStart       bool
)

// stubCmd represents the stub command
var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve a local stand-in for the smile-detection service",
	Long: `Serve the smile-detection HTTP contract locally.

The stub renders synthetic frames instead of reading a webcam and reports a
smile on every --smile-every-th detection, saving the frame as a snapshot in
sqlite. Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := stub.OpenStore(stubDB)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer store.Close()

		stubCfg := stub.DefaultConfig()
		stubCfg.CaptureInterval = stubCaptureInterval
		stubCfg.SmileEvery = stubSmileEvery
		stubCfg.FailStart = stubFailStart
		service := stub.New(store, stubCfg)
		defer service.Close()

		listener, err := net.Listen("tcp", stubAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", stubAddr, err)
		}
		return serveStub(ctx, listener, service)
	},
}

// serveStub serves handler on listener until ctx is cancelled
func serveStub(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	internal.LogInfo("Stub service listening on http://%s", listener.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("stub server failed: %w", err)
	case <-ctx.Done():
	}

	internal.LogInfo("Shutting down stub service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("stub shutdown failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(stubCmd)
	stubCmd.Flags().StringVar(&stubAddr, "addr", "127.0.0.1:5000", "Address to listen on")
	stubCmd.Flags().StringVar(&stubDB, "db", ":memory:", "SQLite database for saved smiles")
	stubCmd.Flags().DurationVar(&stubCaptureInterval, "capture-interval", time.Second, "Time between synthetic frames")
	stubCmd.Flags().IntVar(&stubSmileEvery, "smile-every", 3, "Report a smile on every n-th detection, 0 never smiles")
	stubCmd.Flags().BoolVar(&stubFailStart, "fail-start", false, "Answer start-camera with 500 Failed to open camera")
}
