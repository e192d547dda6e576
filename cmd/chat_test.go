package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/internal/chat"
	"github.com/joao-cainglet/fss-va-2025/testutil"
)

func TestChatCommand_FirstMessageCreatesSession(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	dataDir := setupEnv(t, api)

	out, err := runCommand(t, "What is CET1?\n/quit\n", "chat", "--new")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	for _, want := range []string{"pick a suggestion", "1. Summarise the latest regulatory updates", "You asked: What is CET1?"} {
		if !strings.Contains(out, want) {
			t.Errorf("chat output missing %q:\n%s", want, out)
		}
	}

	state, err := internal.LoadUIState(dataDir + "/state.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if state.LastRoute != "/app/sess-new-1" {
		t.Errorf("last route = %q, want /app/sess-new-1", state.LastRoute)
	}

	// the next chat resumes the same session
	out, err = runCommand(t, "/quit\n", "chat")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "What is CET1?") || !strings.Contains(out, "You asked: What is CET1?") {
		t.Errorf("resumed chat output = %q, want the previous history", out)
	}
}

func TestChatCommand_OpenSessionArgument(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	out, err := runCommand(t, "", "chat", "sess-retention")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "Data retention policy") || !strings.Contains(out, "retained for seven years") {
		t.Errorf("chat output = %q", out)
	}
	if !strings.Contains(out, "[Internal] ›") {
		t.Errorf("prompt should show the session intent:\n%s", out)
	}
}

func TestChatCommand_Suggestion(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	out, err := runCommand(t, "2\n/quit\n", "chat", "--new")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "You asked: Find our internal policy on data retention") {
		t.Errorf("chat output = %q", out)
	}
	created := api.Sessions()[0]
	if created.Intent != "Internal" {
		t.Errorf("suggestion session intent = %q, want Internal", created.Intent)
	}
}

func TestChatCommand_IntentSwitch(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	script := strings.Join([]string{
		"/intent speech", // empty chat: applied directly
		"hello",
		"/intent internal", // live session: needs confirmation
		"n",
		"/intent regulatory",
		"y",
		"/intent Regulatory",
		"/quit",
	}, "\n") + "\n"
	out, err := runCommand(t, script, "chat", "--new")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	for _, want := range []string{
		"Intent set to Speech.",
		"Switching to Internal starts a new chat. Continue? [y/N]",
		"Kept the current chat.",
		"Started a new Regulatory chat.",
		"Already using Regulatory.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("chat output missing %q:\n%s", want, out)
		}
	}
	if api.Sessions()[0].Intent != "Speech" {
		t.Errorf("first session intent = %q, want Speech", api.Sessions()[0].Intent)
	}
}

func TestChatCommand_SearchAndCommands(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	dataDir := setupEnv(t, api)

	script := "/search governor\nretention\n/open sess-basel\n/sessions\n/bogus\n/help\n"
	out, err := runCommand(t, script, "chat", "--new")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	for _, want := range []string{
		"sess-speech",
		"search ›",
		"sess-retention",
		"capital conservation buffer",
		"Found 3 session(s)",
		"Unknown command /bogus",
		"/intent <name>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("chat output missing %q:\n%s", want, out)
		}
	}

	state, err := internal.LoadUIState(dataDir + "/state.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if state.LastRoute != string(chat.SessionRoute("sess-basel")) {
		t.Errorf("last route = %q", state.LastRoute)
	}
}

func TestChatCommand_OpenMissingSession(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, api)

	out, err := runCommand(t, "/quit\n", "chat", "nope")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "That conversation could not be found.") {
		t.Errorf("chat output = %q", out)
	}
}

func TestReplyPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &replyPrinter{w: &buf}

	p.onView(chat.View{Preview: "Hel"})
	p.onView(chat.View{Preview: "Hello"})
	p.onView(chat.View{Preview: ""})
	p.onView(chat.View{Preview: "unrelated"})
	p.finish("Hello, world")

	if got := buf.String(); got != "Hello, world\n" {
		t.Errorf("printed %q, want %q", got, "Hello, world\n")
	}

	buf.Reset()
	p.finish("")
	if buf.Len() != 0 {
		t.Errorf("finish without a reply printed %q", buf.String())
	}
}
