package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joao-cainglet/fss-va-2025/testutil"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a streaming reply
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// setupEnv points the CLI at api with a static token and a private data dir
func setupEnv(t *testing.T, api *testutil.FakeAPI) string {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "FSSVA_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	dataDir := testutil.CreateTempDir(t)
	t.Setenv("FSSVA_DATA_DIR", dataDir)
	t.Setenv("FSSVA_STATIC_TOKEN", "test-token")
	t.Setenv("FSSVA_FLUSH_INTERVAL", "5ms")
	if api != nil {
		t.Setenv("FSSVA_API_URL", api.URL)
	}
	return dataDir
}

// resetFlags restores every flag variable, since cobra keeps values between runs
func resetFlags() {
	verbose, apiURL, configPath, logFile = false, "", "", ""
	listClearCache = false
	showOffline, showLimit = false, 0
	searchDeep, searchOffline = false, false
	chatFresh = false
	askIntent, askSession = "", ""
	format, outputDir, exportOffline = "jsonl", "./exports", false
	deleteYes = false
	noBrowser = false
	healthcheckVerbose = false
	cfg = nil
}

// runCommand executes the root command with args, feeding stdin
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	out := &syncBuffer{}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func cachePath(dataDir string) string {
	return filepath.Join(dataDir, "transcripts.db")
}
