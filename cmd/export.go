package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/internal/export"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const exportConcurrency = 4

var (
	format        string
	outputDir     string
	exportOffline bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [session-id...]",
	Short: "Export sessions to files",
	Long: `Export chat sessions to various formats (jsonl, md, yaml, json).

Without arguments every session is exported. With --offline the sessions
are read from the local transcript cache instead of the assistant.
Use 'fssva list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		a := newApp(cfg)
		defer a.close()
		ctx := cmd.Context()

		var (
			ids      = args
			source   historySource = a.client
			label    = "remote"
			sessions []*internal.Session
		)
		if exportOffline {
			cache, err := a.requireCache()
			if err != nil {
				return err
			}
			source, label = cache, "cache"
		}

		steps := []internal.ProgressStep{
			{
				Message: "Loading session list",
				Fn: func() error {
					if len(ids) > 0 {
						return nil
					}
					var listErr error
					ids, listErr = listIDs(ctx, a)
					return listErr
				},
			},
			{
				Message: "Fetching conversations",
				Fn: func() error {
					var fetchErr error
					sessions, fetchErr = collectSessions(ctx, source, label, ids)
					if fetchErr != nil {
						return fetchErr
					}
					if !exportOffline && a.cache != nil {
						recordAll(a.cache, sessions)
					}
					return nil
				},
			},
		}
		if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
			return loginHint(err)
		}
		if len(sessions) == 0 {
			internal.PrintInfo("No sessions to export")
			return nil
		}

		// Ensure output directory exists
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		var written int
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(sessions), outputDir), func() error {
			var writeErr error
			written, writeErr = writeExports(outputDir, exporter, sessions)
			return writeErr
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", written, outputDir))
		return nil
	},
}

// historySource loads one session's history
type historySource interface {
	GetSession(ctx context.Context, id string) (*internal.SessionDetail, error)
}

func listIDs(ctx context.Context, a *app) ([]string, error) {
	var sessions []internal.ChatSession
	if exportOffline {
		var err error
		if sessions, err = a.cache.ListSessions(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := a.fetchSessions(ctx); err != nil {
			return nil, err
		}
		sessions = a.store.Sessions()
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids, nil
}

// collectSessions fetches the histories of ids concurrently, keeping their order
func collectSessions(ctx context.Context, source historySource, label string, ids []string) ([]*internal.Session, error) {
	sessions := make([]*internal.Session, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			detail, err := source.GetSession(gctx, id)
			if err != nil {
				return fmt.Errorf("session %s: %w", id, err)
			}
			sessions[i] = internal.NewSession(detail, label)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func recordAll(cache *internal.TranscriptCache, sessions []*internal.Session) {
	for _, s := range sessions {
		detail := &internal.SessionDetail{
			ChatSession: internal.ChatSession{ID: s.ID, Title: s.Metadata.Title, Intent: s.Metadata.Intent},
			Messages:    s.Messages,
		}
		if ts, err := internal.ParseTimestamp(s.Metadata.CreatedAt); err == nil {
			detail.CreatedAt = ts
		}
		if err := cache.RecordSession(detail); err != nil {
			internal.LogWarn("Failed to cache session %s: %v", s.ID, err)
		}
	}
}

// writeExports writes one file per session. Failures are logged and skipped;
// the error reports how many were lost.
func writeExports(dir string, exporter export.Exporter, sessions []*internal.Session) (int, error) {
	var (
		written int
		failed  []string
	)
	for _, session := range sessions {
		if session == nil {
			internal.LogWarn("Skipping nil session")
			continue
		}
		path := filepath.Join(dir, export.Filename(session, exporter))
		if err := writeExport(path, exporter, session); err != nil {
			internal.LogError("Failed to export session %s: %v", session.ID, err)
			failed = append(failed, session.ID)
			continue
		}
		written++
	}
	if len(failed) > 0 {
		return written, fmt.Errorf("failed to export %d session(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return written, nil
}

func writeExport(path string, exporter export.Exporter, session *internal.Session) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "Export from the local transcript cache")
}
