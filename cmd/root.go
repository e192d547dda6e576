package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	apiURL     string
	configPath string
	logFile    string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	// cfg is loaded before any subcommand runs
	cfg *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fssva",
	Short: "Chat with the FSS virtual assistant from the terminal",
	Long: `A terminal client for the FSS virtual assistant.

Sign in with your organisation account, then chat with the assistant,
browse and search your conversations, and export them for safekeeping.

Features:
  • Streamed replies with live preview
  • Three assistant intents: Regulatory, Internal, Speech
  • Session list with rename, delete and search
  • Offline transcript cache for reading past conversations
  • Export in multiple formats (JSONL, Markdown, YAML, JSON)

Quick Start:
  fssva login                       # Sign in
  fssva chat                        # Start chatting
  fssva ask "What is Basel III?"    # One-shot question
  fssva list                        # List your sessions
  fssva export --format md          # Export everything as Markdown`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if apiURL != "" {
			loaded.APIURL = apiURL
		}
		if logFile != "" {
			loaded.LogFile = logFile
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if loaded.LogFile != "" {
			internal.SetLogFile(loaded.LogFile)
		}
		cfg = loaded
		internal.LogDebug("Using API %s, data dir %s", cfg.APIURL, cfg.DataDir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		internal.SyncLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Assistant API base URL (overrides FSSVA_API_URL)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file (rotated)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
