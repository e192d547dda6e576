package cmd

import (
	"strings"
	"testing"

	"github.com/joao-cainglet/fss-va-2025/testutil"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "version flag",
			args: []string{"--version"},
			want: "dev (commit: unknown",
		},
		{
			name: "help flag",
			args: []string{"--help"},
			want: "fssva chat",
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestRootCommand_SubcommandsRegistered(t *testing.T) {
	want := []string{"login", "logout", "whoami", "list", "show", "rename", "delete", "search", "chat", "ask", "export", "healthcheck"}
	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRootCommand_APIURLFlagOverridesEnvironment(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	setupEnv(t, nil)
	t.Setenv("FSSVA_API_URL", "http://127.0.0.1:1")

	out, err := runCommand(t, "", "list", "--api-url", api.URL)
	if err != nil {
		t.Fatalf("list --api-url error = %v", err)
	}
	if !strings.Contains(out, "Basel III capital buffers") {
		t.Errorf("output = %q, want the fake API's sessions", out)
	}
}

func TestRootCommand_InvalidConfiguration(t *testing.T) {
	setupEnv(t, nil)

	_, err := runCommand(t, "", "list", "--api-url", "ftp://example.com")
	if err == nil || !strings.Contains(err.Error(), "http://") {
		t.Errorf("list with bad api url error = %v, want a validation error", err)
	}
}

func TestRootCommand_ConfigFile(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.SampleSessions()...)
	dataDir := setupEnv(t, nil)
	path := testutil.WriteFile(t, dataDir, "config.yaml", []byte("api_url: "+api.URL+"\n"))

	out, err := runCommand(t, "", "list", "--config", path)
	if err != nil {
		t.Fatalf("list --config error = %v", err)
	}
	if !strings.Contains(out, "Data retention policy") {
		t.Errorf("output = %q, want the fake API's sessions", out)
	}
}
