package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/smile-viewer/internal"
	"github.com/spf13/cobra"
)

var (
	fetchOutput string
	fetchLive   bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <timestamp>",
	Short: "Download a saved smile or the live frame",
	Long: `Download the image of a saved smile, identified by its timestamp as shown
by 'smile-viewer history'. With --live the current camera frame is fetched
instead, using a fresh cache-busting token.

Use -o - to write the image to stdout.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if fetchLive {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var locator, filename string
		if fetchLive {
			token := internal.NewFrameTokens(time.Now).Next()
			locator = client.FrameURL(token)
			filename = fmt.Sprintf("frame_%s.jpg", token)
		} else {
			records, err := listSnapshots(ctx, client)
			if err != nil {
				return fmt.Errorf("failed to list smiles: %w", err)
			}
			rec, ok := internal.FindSnapshot(records, args[0])
			if !ok {
				return fmt.Errorf("smile not found: %s (use 'smile-viewer history' to see saved smiles)", args[0])
			}
			locator = client.SnapshotURL(rec.Filename)
			filename = filepath.Base(rec.Filename)
		}

		data, err := fetchImage(ctx, client, locator)
		if err != nil {
			return err
		}

		if fetchOutput == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}

		if err := os.MkdirAll(fetchOutput, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(fetchOutput, filename)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		internal.PrintSuccess(fmt.Sprintf("Saved %s (%d bytes)", path, len(data)))
		return nil
	},
}

func fetchImage(ctx context.Context, client *internal.Client, locator string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	data, contentType, err := client.FetchImage(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	internal.LogDebug("Fetched %d bytes of %s from %s", len(data), contentType, locator)
	return data, nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchOutput, "out", "o", ".", "Output directory, or - for stdout")
	fetchCmd.Flags().BoolVar(&fetchLive, "live", false, "Fetch the current live frame")
}
