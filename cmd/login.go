package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/spf13/cobra"
)

var (
	noBrowser bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your organisation account",
	Long: `Sign in through the identity provider in your browser.

The token is stored under the data directory and refreshed automatically.
After signing in the assistant API is told about the account; if that fails
the stored token is discarded again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if a.auth != nil {
			openURL := func(url string) error {
				fmt.Fprintf(out, "Open this link to sign in:\n\n  %s\n\n", url)
				if noBrowser {
					return nil
				}
				if err := openBrowser(url); err != nil {
					internal.LogWarn("%v", err)
				}
				return nil
			}
			if _, err := a.auth.Login(ctx, openURL); err != nil {
				return fmt.Errorf("sign-in failed: %w", err)
			}
		}

		if err := a.client.Login(ctx); err != nil {
			internal.LogError("Login sync failed: %v", err)
			if clearErr := a.creds.Clear(); clearErr != nil {
				internal.LogWarn("Failed to discard credential: %v", clearErr)
			}
			return fmt.Errorf("signed in, but the assistant rejected the account: %w", err)
		}

		who := "the configured token"
		if a.auth != nil {
			if id, err := a.auth.Identity(); err == nil && id.Email != "" {
				who = id.Email
			}
		}
		internal.PrintSuccess(fmt.Sprintf("Signed in as %s", who))
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget local transcripts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.close()

		if err := a.creds.Clear(); err != nil {
			return fmt.Errorf("failed to clear credential: %w", err)
		}
		if a.cache != nil {
			if err := a.cache.Clear(); err != nil {
				return fmt.Errorf("failed to clear transcript cache: %w", err)
			}
		}
		if err := internal.SaveUIState(cfg.StatePath(), internal.UIState{}); err != nil {
			internal.LogWarn("Failed to reset UI state: %v", err)
		}
		internal.PrintSuccess("Signed out")
		return nil
	},
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.close()
		out := cmd.OutOrStdout()

		if a.auth == nil {
			fmt.Fprintln(out, "Using a static token from configuration")
			return nil
		}

		id, err := a.auth.Identity()
		if errors.Is(err, internal.ErrNotLoggedIn) {
			return errors.New("not signed in; run 'fssva login'")
		}
		if err != nil {
			return fmt.Errorf("failed to read identity: %w", err)
		}

		fmt.Fprintln(out, titleStyle.Render(id.Name))
		if id.Email != "" {
			fmt.Fprintf(out, "  Email:   %s\n", id.Email)
		}
		fmt.Fprintf(out, "  Subject: %s\n", id.Subject)
		if !id.ExpiresAt.IsZero() {
			state := "valid"
			if time.Now().After(id.ExpiresAt) {
				state = "expired, will refresh on next use"
			}
			fmt.Fprintf(out, "  Token:   %s (%s)\n", id.ExpiresAt.Local().Format("2006-01-02 15:04"), state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	loginCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in link instead of opening a browser")
}
