package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/iksnae/smile-viewer/internal"
	"github.com/iksnae/smile-viewer/internal/metrics"
	"github.com/iksnae/smile-viewer/internal/viewer"
	"github.com/spf13/cobra"
)

var (
	watchInterval       time.Duration
	watchStallThreshold int
	watchLogFile        string
	watchMetricsAddr    string
	watchStopOnExit     bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the interactive camera viewer",
	Long: `Open the interactive viewer.

Press s to start the remote camera and x to stop it. While the camera runs the
viewer polls the detection status once per interval and shows the latest live
frame. Stopping refreshes the list of past smiles; use ↑/↓ and enter to show
one, esc to go back to the live feed, q to quit.

Logs are written to --log-file (or discarded) while the viewer owns the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("interval") {
			cfg.PollInterval = watchInterval
		}
		if flags.Changed("stall-threshold") {
			cfg.StallThreshold = watchStallThreshold
		}
		if flags.Changed("log-file") {
			cfg.LogFile = watchLogFile
		}
		if flags.Changed("metrics-addr") {
			cfg.MetricsAddr = watchMetricsAddr
		}
		if flags.Changed("stop-on-exit") {
			cfg.StopOnExit = watchStopOnExit
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		restoreLogs, err := redirectLogs(cfg.LogFile)
		if err != nil {
			return err
		}
		defer restoreLogs()

		opts := viewer.OptionsFromConfig(cfg)
		if cfg.MetricsAddr != "" {
			opts.Metrics = metrics.New()
			shutdown := serveMetrics(cfg.MetricsAddr, opts.Metrics)
			defer shutdown()
		}

		model := viewer.New(client, opts)
		program := tea.NewProgram(model,
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()),
		)
		_, runErr := program.Run()
		if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
			return fmt.Errorf("viewer failed: %w", runErr)
		}

		// Run may also return through a cancelled context without a quit key
		model.Shutdown()
		if model.ExitedWhileRunning() && cfg.StopOnExit {
			stopOnExit(client, cfg.RequestTimeout)
		}
		return nil
	},
}

// redirectLogs points the logger at path, or discards logs when path is
// empty. The returned func restores stderr.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		internal.SetLogOutput(io.Discard)
		return func() { internal.SetLogOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, &internal.ConfigError{Path: path, Err: err}
	}
	internal.SetLogOutput(f)
	return func() {
		internal.SetLogOutput(os.Stderr)
		_ = f.Close()
	}, nil
}

// serveMetrics exposes m on addr until the returned func is called
func serveMetrics(addr string, m *metrics.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			internal.LogError("Metrics server failed: %v", err)
		}
	}()
	internal.LogInfo("Serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

type cameraStopper interface {
	StopCamera(ctx context.Context) error
}

// stopOnExit releases the remote camera when the viewer quit mid-session
func stopOnExit(remote cameraStopper, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := remote.StopCamera(ctx); err != nil {
		internal.LogWarn("Could not stop the camera on exit: %v", err)
		return
	}
	internal.LogInfo("Camera stopped on exit")
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval (default 1s)")
	watchCmd.Flags().IntVar(&watchStallThreshold, "stall-threshold", 0, "Failed polls before the feed is shown as stalled, 0 disables")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Write logs to this file while the viewer runs")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().BoolVar(&watchStopOnExit, "stop-on-exit", true, "Stop the camera when quitting during a session")
}
