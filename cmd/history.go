package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/smile-viewer/internal"
	"github.com/spf13/cobra"
)

var (
	historyLimit   int
	historyOffline bool
	historyClear   bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"list"},
	Short:   "List saved smiles",
	Long: `List every smile snapshot the service has saved, newest first.

Each successful listing is cached under ~/.smile-viewer/cache. When the service
cannot be reached the cached list is shown instead; --offline skips the service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cache, err := historyCache()
		if err != nil {
			return err
		}

		if historyClear {
			if err := cache.ClearCache(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			internal.PrintSuccess("Cleared cached smile lists")
			return nil
		}

		if historyOffline {
			return showCachedSnapshots(out, cache, nil)
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		var records []internal.SnapshotRecord
		err = internal.ShowProgress(cmd.Context(), "Fetching past smiles", func() error {
			var listErr error
			records, listErr = listSnapshots(cmd.Context(), client)
			return listErr
		})
		if err != nil {
			return showCachedSnapshots(out, cache, fmt.Errorf("failed to list smiles: %w", err))
		}

		if err := cache.SaveCatalog(cfg.BaseURL, records, time.Now()); err != nil {
			internal.LogWarn("Could not cache the smile list: %v", err)
		}
		displaySnapshots(out, limitSnapshots(records))
		return nil
	},
}

func historyCache() (*internal.CacheManager, error) {
	dir, err := internal.DefaultCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return internal.NewCacheManager(dir), nil
}

// showCachedSnapshots prints the cached list for the configured service.
// fetchErr is the reason the service was skipped; it is returned when there
// is nothing cached to fall back to.
func showCachedSnapshots(out io.Writer, cache *internal.CacheManager, fetchErr error) error {
	catalog, ok, err := cache.LoadCatalog(cfg.BaseURL)
	if err != nil {
		internal.LogWarn("Could not read the smile cache: %v", err)
	}
	if !ok {
		if fetchErr != nil {
			return fetchErr
		}
		return fmt.Errorf("no cached smiles for %s, run history while the service is up", cfg.BaseURL)
	}

	if fetchErr != nil {
		internal.PrintWarning(fetchErr.Error())
	}
	_, _ = fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("⚠️  Showing the list cached at %s", catalog.Metadata.FetchedAt.Local().Format("2006-01-02 15:04:05"))))
	displaySnapshots(out, limitSnapshots(catalog.Snapshots))
	return nil
}

func limitSnapshots(records []internal.SnapshotRecord) []internal.SnapshotRecord {
	if historyLimit > 0 && len(records) > historyLimit {
		return records[:historyLimit]
	}
	return records
}

func displaySnapshots(out io.Writer, records []internal.SnapshotRecord) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("📋 No smiles saved yet"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %s smile(s)", countStyle.Render(fmt.Sprint(len(records))))))
	_, _ = fmt.Fprintln(out)

	// Use tabwriter for aligned columns
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("#")+"\t"+titleStyle.Render("Timestamp")+"\t"+titleStyle.Render("Filename")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 72))

	for i, rec := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n", idStyle.Render(fmt.Sprint(i+1)), rec.Timestamp, dateStyle.Render(rec.Filename))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("💡 Tip: download one with ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(fmt.Sprintf("smile-viewer fetch %q", records[0].Timestamp)))
}

// listSnapshots fetches the list with the configured timeout
func listSnapshots(ctx context.Context, client *internal.Client) ([]internal.SnapshotRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	return client.ListSnapshots(ctx)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most this many smiles (0 shows all)")
	historyCmd.Flags().BoolVar(&historyOffline, "offline", false, "Show the cached list without contacting the service")
	historyCmd.Flags().BoolVar(&historyClear, "clear-cache", false, "Remove every cached smile list and exit")
}
