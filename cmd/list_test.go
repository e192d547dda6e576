package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/testutil"
)

func TestListCommand(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	dataDir := setupEnv(t, api)
	if err := internal.SaveUIState(dataDir+"/state.yaml", internal.UIState{LastRoute: "/app/sess-retention"}); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	for _, want := range []string{"Found 3 session(s)", "sess-basel", "Basel III capital buffers", "Regulatory", "Governor speech on inflation", "→"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	reqs := api.Requests()
	if len(reqs) != 1 || reqs[0].Auth != "Bearer test-token" || reqs[0].RequestID == "" {
		t.Errorf("requests = %+v, want one authenticated GET /sessions with a request id", reqs)
	}
}

func TestListCommand_ClearCache(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	dataDir := setupEnv(t, api)

	cache, err := internal.OpenTranscriptCache(cachePath(dataDir))
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.RecordSession(internal.CreateTestDetail("sess-basel", "Basel", internal.IntentRegulatory, internal.UserMessage("hi"))); err != nil {
		t.Fatal(err)
	}
	cache.Close()

	if _, err := runCommand(t, "", "list", "--clear-cache"); err != nil {
		t.Fatalf("list --clear-cache error = %v", err)
	}

	cache, err = internal.OpenTranscriptCache(cachePath(dataDir))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	stats, err := cache.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Sessions != 0 || stats.Messages != 0 {
		t.Errorf("cache stats after clear = %+v, want empty", stats)
	}
}

func TestListCommand_Unauthorized(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	api.RequireToken("another-token")
	setupEnv(t, api)

	_, err := runCommand(t, "", "list")
	if err == nil || !strings.Contains(err.Error(), "fssva login") {
		t.Errorf("list error = %v, want a hint to log in", err)
	}
}

func TestDisplaySessions_Empty(t *testing.T) {
	var buf bytes.Buffer
	displaySessions(&buf, nil, "", time.Now())
	if !strings.Contains(buf.String(), "No sessions yet") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatCreated(t *testing.T) {
	now := time.Date(2025, 3, 20, 15, 0, 0, 0, time.Local)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "—"},
		{"today", time.Date(2025, 3, 20, 13, 0, 0, 0, time.Local), "Today 13:00"},
		{"this week", time.Date(2025, 3, 17, 15, 0, 0, 0, time.Local), "Mon 15:00"},
		{"this year", time.Date(2025, 2, 18, 15, 0, 0, 0, time.Local), "Feb 18 15:00"},
		{"long ago", time.Date(2024, 2, 14, 15, 0, 0, 0, time.Local), "2024-02-14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCreated(tt.t, now); got != tt.want {
				t.Errorf("formatCreated() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a much longer title", 10, "a much ..."},
		{"Überprüfung der Eigenkapitalregeln", 10, "Überprü..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
