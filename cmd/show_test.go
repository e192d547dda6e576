package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/testutil"
)

func TestShowCommand(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	out, err := runCommand(t, "", "show", "sess-basel")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	for _, want := range []string{"Basel III capital buffers", "Regulatory", "remote", "You", "Assistant", "capital conservation buffer"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestShowCommand_OfflineAfterOnline(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	if _, err := runCommand(t, "", "show", "sess-retention"); err != nil {
		t.Fatalf("show error = %v", err)
	}
	api.Close()

	out, err := runCommand(t, "", "show", "sess-retention", "--offline")
	if err != nil {
		t.Fatalf("show --offline error = %v", err)
	}
	if !strings.Contains(out, "retained for seven years") || !strings.Contains(out, "cache") {
		t.Errorf("show --offline output = %q, want the cached transcript", out)
	}
}

func TestShowCommand_OfflineNotCached(t *testing.T) {
	setupEnv(t, nil)

	_, err := runCommand(t, "", "show", "sess-basel", "--offline")
	if err == nil || !strings.Contains(err.Error(), "not in the local cache") {
		t.Errorf("show --offline error = %v, want a not-cached error", err)
	}
}

func TestShowCommand_NotFound(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	_, err := runCommand(t, "", "show", "missing")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("show error = %v, want the 404 status", err)
	}
}

func TestShowCommand_Limit(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	out, err := runCommand(t, "", "show", "sess-basel", "-n", "1")
	if err != nil {
		t.Fatalf("show -n 1 error = %v", err)
	}
	if strings.Contains(out, "You\n") {
		t.Errorf("show -n 1 printed the user message:\n%s", out)
	}
	if !strings.Contains(out, "capital conservation buffer") {
		t.Errorf("show -n 1 output missing the last message:\n%s", out)
	}
}

func TestShowCommand_EmptySession(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	out, err := runCommand(t, "", "show", "sess-speech")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "No messages yet") {
		t.Errorf("show output = %q", out)
	}
}

func TestRenameCommand(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	if _, err := runCommand(t, "", "rename", "sess-basel", "Capital", "buffers"); err != nil {
		t.Fatalf("rename error = %v", err)
	}
	for _, s := range api.Sessions() {
		if s.ID == "sess-basel" && s.Title != "Capital buffers" {
			t.Errorf("title = %q, want %q", s.Title, "Capital buffers")
		}
	}

	if _, err := runCommand(t, "", "rename", "missing", "x"); err == nil {
		t.Error("rename of a missing session should fail")
	}
}

func TestRenameCommand_UpdatesCachedTitle(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	dataDir := setupEnv(t, api)

	if _, err := runCommand(t, "", "show", "sess-basel"); err != nil {
		t.Fatalf("show error = %v", err)
	}
	if _, err := runCommand(t, "", "rename", "sess-basel", "Capital", "buffers"); err != nil {
		t.Fatalf("rename error = %v", err)
	}
	if _, err := runCommand(t, "", "rename", "sess-speech", "Inflation", "speech"); err != nil {
		t.Fatalf("rename error = %v", err)
	}

	cache, err := internal.OpenTranscriptCache(cachePath(dataDir))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	ctx := context.Background()

	got, err := cache.GetSession(ctx, "sess-basel")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Title != "Capital buffers" || len(got.Messages) != 2 {
		t.Errorf("cached session = %+v, want renamed with its 2 messages", got)
	}
	if _, err := cache.GetSession(ctx, "sess-speech"); !errors.Is(err, internal.ErrNotCached) {
		t.Errorf("renaming an uncached session cached it (err = %v)", err)
	}
}

func TestDeleteCommand_RefetchesList(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	if _, err := runCommand(t, "", "delete", "--yes", "sess-retention"); err != nil {
		t.Fatalf("delete error = %v", err)
	}

	var got []string
	for _, r := range api.Requests() {
		got = append(got, r.Method+" "+r.Path)
	}
	want := []string{"DELETE /sessions/sess-retention", "GET /sessions"}
	if strings.Join(got, ", ") != strings.Join(want, ", ") {
		t.Errorf("requests = %v, want %v", got, want)
	}
}

func TestDeleteCommand(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	out, err := runCommand(t, "n\n", "delete", "sess-speech")
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if !strings.Contains(out, "Cancelled") || len(api.Sessions()) != 3 {
		t.Errorf("declined delete removed the session (output %q)", out)
	}

	if _, err := runCommand(t, "y\n", "delete", "sess-speech"); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if len(api.Sessions()) != 2 {
		t.Errorf("sessions = %d, want 2 after delete", len(api.Sessions()))
	}

	if _, err := runCommand(t, "", "delete", "--yes", "sess-basel"); err != nil {
		t.Fatalf("delete --yes error = %v", err)
	}
	if len(api.Sessions()) != 1 {
		t.Errorf("sessions = %d, want 1 after delete --yes", len(api.Sessions()))
	}
}

func TestIsYes(t *testing.T) {
	tests := map[string]bool{"y": true, "YES\n": true, " y ": true, "": false, "n": false, "yep": false}
	for in, want := range tests {
		if got := isYes(in); got != want {
			t.Errorf("isYes(%q) = %v, want %v", in, got, want)
		}
	}
}
