package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
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

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that fssva can reach the assistant",
	Long: `Check the health of fssva by verifying:
  • Configuration
  • Stored credential
  • Assistant API reachability
  • Local transcript cache

This command is useful for debugging sign-in and network issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		a := newApp(cfg)
		defer a.close()

		fmt.Fprintln(out, sectionStyle.Render("🔍 FSS Virtual Assistant Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking configuration..."))
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if healthcheckVerbose {
			fmt.Fprintf(out, "   API: %s\n", cfg.APIURL)
			fmt.Fprintf(out, "   Data dir: %s\n", cfg.DataDir)
			fmt.Fprintf(out, "   Flush interval: %s\n", cfg.FlushInterval)
		}
		if a.auth != nil && cfg.ClientID == "" {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No client id configured; 'fssva login' will not work (set FSSVA_CLIENT_ID)"))
		}
		fmt.Fprintln(out)

		// Step 2: Credential
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking credential..."))
		credentialOK := true
		if _, err := a.creds.Token(ctx); err != nil {
			credentialOK = false
			if errors.Is(err, internal.ErrNotLoggedIn) {
				fmt.Fprintln(out, errorStyle.Render("❌ Not signed in; run 'fssva login'"))
			} else {
				fmt.Fprintln(out, errorStyle.Render("❌ Credential unusable:"), err)
			}
		} else if a.auth == nil {
			fmt.Fprintln(out, successStyle.Render("✅ Static token configured"))
		} else {
			fmt.Fprintln(out, successStyle.Render("✅ Signed in"))
			if id, err := a.auth.Identity(); err == nil && healthcheckVerbose {
				fmt.Fprintf(out, "   Account: %s\n", id.Email)
			}
		}
		fmt.Fprintln(out)

		// Step 3: API
		fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting the assistant API..."))
		sessionCount := -1
		if credentialOK {
			sessions, err := a.client.ListSessions(ctx)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ API request failed:"), err)
			} else {
				sessionCount = len(sessions)
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ API reachable, %d session(s)", sessionCount)))
			}
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Skipped without a credential"))
		}
		fmt.Fprintln(out)

		// Step 4: Cache
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking transcript cache..."))
		if a.cache == nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Transcript cache unavailable; offline commands will not work"))
		} else if stats, err := a.cache.Stats(ctx); err != nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Transcript cache unreadable:"), err)
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %d session(s), %d message(s) cached", stats.Sessions, stats.Messages)))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   Database: %s\n", a.cache.Path())
				if !stats.LastFetched.IsZero() {
					fmt.Fprintf(out, "   Last updated: %s\n", stats.LastFetched.Local().Format("2006-01-02 15:04"))
				}
			}
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if sessionCount < 0 {
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			return errors.New("health check failed: the assistant API is not usable")
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}
