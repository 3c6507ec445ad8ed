package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/iksnae/smile-viewer/internal"
	"github.com/spf13/cobra"
)

var (
	verbose        bool
	configPath     string
	envFile        string
	baseURL        string
	requestTimeout time.Duration
	version        string = "dev"
	commit         string = "unknown"
	date           string = "unknown"

	// cfg is loaded once per invocation by PersistentPreRunE
	cfg = internal.DefaultConfig()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smile-viewer",
	Short: "Watch a remote smile-detection camera from the terminal",
	Long: `A terminal client for a remote smile-detection camera service.

The service owns the camera, runs the detector and keeps a gallery of every
smile it has seen. smile-viewer starts and stops its camera, shows the live
detection status while a session runs, and lets you browse past smiles.

Features:
  • Interactive viewer with live detection status
  • Browse, fetch and export saved smile snapshots
  • Health check for every service endpoint
  • Built-in stub service for demos and offline use

Quick Start:
  smile-viewer stub &                    # Serve a local stand-in service
  smile-viewer watch                     # Open the viewer
  smile-viewer history                   # List saved smiles
  smile-viewer export --format md        # Export the list as Markdown`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

// loadConfig layers the config file, the environment and the persistent flags
func loadConfig(cmd *cobra.Command) error {
	loaded, err := internal.LoadConfig(configPath, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		loaded.BaseURL = baseURL
	}
	if flags.Changed("timeout") {
		loaded.RequestTimeout = requestTimeout
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	level, err := internal.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	internal.SetLogLevel(level)
	if verbose {
		internal.SetVerbose(true)
	}
	internal.LogDebug("Using service at %s", cfg.BaseURL)
	return nil
}

// newClient builds a client for the configured service
func newClient() (*internal.Client, error) {
	client, err := internal.NewClient(cfg.BaseURL, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/"+internal.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file with SMILE_VIEWER_* settings")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the smile-detection service")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 0, "Timeout for each request to the service")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
