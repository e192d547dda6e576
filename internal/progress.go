package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")).
				Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// Output targets, swapped in tests
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ProgressStep represents a single step in a multi-step process
type ProgressStep struct {
	Message string
	Fn      func() error
}

// ShowProgress runs fn behind a spinner. Off a terminal the message is
// logged instead.
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(stderr) {
		LogInfo(message)
		return fn()
	}
	return spin(ctx, stderr, message, fn)
}

// ShowProgressWithSteps runs steps in order, stopping at the first failure
func ShowProgressWithSteps(ctx context.Context, steps []ProgressStep) error {
	for i, step := range steps {
		msg := fmt.Sprintf("[%d/%d] %s", i+1, len(steps), step.Message)
		if err := ShowProgress(ctx, msg, step.Fn); err != nil {
			return fmt.Errorf("%s: %w", step.Message, err)
		}
	}
	return nil
}

func spin(ctx context.Context, w io.Writer, message string, fn func() error) error {
	done := make(chan error, 1)
	stop := make(chan struct{})
	spinnerDone := make(chan struct{})

	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", progressStyle.Render(spinnerFrames[i%len(spinnerFrames)]), message)
			}
		}
	}()

	go func() {
		done <- fn()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	close(stop)
	<-spinnerDone

	if err != nil {
		fmt.Fprintf(w, "\r%s %s\n", errorStyle.Render("✗"), message)
		return err
	}
	fmt.Fprintf(w, "\r%s %s\n", successStyle.Render("✓"), message)
	return nil
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// IsTerminal reports whether stdout is a terminal
func IsTerminal() bool {
	return isTerminal(stdout)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if isTerminal(stdout) {
		fmt.Fprintf(stdout, "%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Fprintln(stdout, message)
	}
}

// PrintError prints an error message
func PrintError(message string) {
	if isTerminal(stderr) {
		fmt.Fprintf(stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(stderr, "%s\n", message)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if isTerminal(stdout) {
		fmt.Fprintf(stdout, "%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Fprintln(stdout, message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if isTerminal(stderr) {
		fmt.Fprintf(stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(stderr, "WARNING: %s\n", message)
	}
}

// RoleLabel returns the styled speaker label shown before a message
func RoleLabel(role Role) string {
	switch role {
	case RoleUser:
		return userLabelStyle.Render("You")
	case RoleAssistant:
		return assistantLabelStyle.Render("Assistant")
	default:
		return mutedStyle.Render("System")
	}
}

// Muted renders secondary text such as hints and timestamps
func Muted(s string) string {
	return mutedStyle.Render(s)
}
