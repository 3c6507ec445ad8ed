package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/smile-viewer/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// probeStatus is the outcome of one healthcheck step
type probeStatus int

const (
	probeOK probeStatus = iota
	probeWarn
	probeFailed
)

type probe struct {
	title string
	run   func(ctx context.Context, client *internal.Client) (probeStatus, string, []string)
}

var healthProbes = []probe{
	{
		title: "Reaching the service root",
		run: func(ctx context.Context, client *internal.Client) (probeStatus, string, []string) {
			if err := client.Ping(ctx); err != nil {
				return probeFailed, "Service not reachable", []string{err.Error()}
			}
			return probeOK, "Service is up", []string{"URL: " + client.BaseURL()}
		},
	},
	{
		title: "Checking smile detection",
		run: func(ctx context.Context, client *internal.Client) (probeStatus, string, []string) {
			result, err := client.DetectSmile(ctx)
			if err != nil {
				return probeFailed, "detect-smile failed", []string{err.Error()}
			}
			return probeOK, "detect-smile answers", []string{
				fmt.Sprintf("smile_detected: %t", result.SmileDetected),
				fmt.Sprintf("coordinates: %q", result.Coordinates),
			}
		},
	},
	{
		title: "Listing saved smiles",
		run: func(ctx context.Context, client *internal.Client) (probeStatus, string, []string) {
			records, err := client.ListSnapshots(ctx)
			if err != nil {
				return probeFailed, "get-smiles failed", []string{err.Error()}
			}
			details := []string{}
			for i, rec := range records {
				if i == 5 {
					details = append(details, fmt.Sprintf("... and %d more", len(records)-5))
					break
				}
				details = append(details, fmt.Sprintf("[%d] %s", i+1, rec.Timestamp))
			}
			return probeOK, fmt.Sprintf("Found %d saved smile(s)", len(records)), details
		},
	},
	{
		title: "Fetching the live frame",
		run: func(ctx context.Context, client *internal.Client) (probeStatus, string, []string) {
			token := internal.NewFrameTokens(time.Now).Next()
			data, _, err := client.FetchImage(ctx, client.FrameURL(token))
			var remoteErr *internal.RemoteError
			if errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusInternalServerError {
				return probeWarn, "No live frame yet (camera not started?)", nil
			}
			if err != nil {
				return probeFailed, "get-frame failed", []string{err.Error()}
			}
			return probeOK, "Live frame available", []string{fmt.Sprintf("%d bytes", len(data))}
		},
	},
}

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the smile-detection service answers",
	Long: `Check the health of the smile-detection service by verifying:
  • The service root answers
  • detect-smile returns a decodable result
  • get-smiles returns a decodable list
  • get-frame serves an image (a warning until the camera has started)

This command is useful for debugging connectivity before opening the viewer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		return runHealthcheck(cmd.Context(), cmd.OutOrStdout(), client)
	},
}

func runHealthcheck(ctx context.Context, out io.Writer, client *internal.Client) error {
	_, _ = fmt.Fprintln(out, sectionStyle.Render("🔍 Smile Service Health Check"))
	_, _ = fmt.Fprintln(out)

	failed, warned := 0, 0
	for i, p := range healthProbes {
		_, _ = fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("Step %d: %s...", i+1, p.title)))

		stepCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		status, summary, details := p.run(stepCtx, client)
		cancel()

		switch status {
		case probeOK:
			_, _ = fmt.Fprintln(out, successStyle.Render("✅ "+summary))
		case probeWarn:
			warned++
			_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  "+summary))
		default:
			failed++
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ "+summary))
		}
		if healthcheckDetails || status == probeFailed {
			for _, d := range details {
				_, _ = fmt.Fprintf(out, "   %s\n", d)
			}
		}
		_, _ = fmt.Fprintln(out)
	}

	_, _ = fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
	_, _ = fmt.Fprintln(out)
	switch {
	case failed > 0:
		_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
		return fmt.Errorf("health check failed: %d step(s) failed", failed)
	case warned > 0:
		_, _ = fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Health check passed with %d warning(s)", warned)))
	default:
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
