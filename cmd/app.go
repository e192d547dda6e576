package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/internal/api"
	"github.com/joao-cainglet/fss-va-2025/internal/auth"
	"github.com/joao-cainglet/fss-va-2025/internal/chat"
	"github.com/joao-cainglet/fss-va-2025/internal/store"
	"github.com/joao-cainglet/fss-va-2025/internal/stream"
)

// app bundles the services a command needs
type app struct {
	cfg    *internal.Config
	auth   *auth.Manager // nil when a static token is configured
	creds  api.CredentialSource
	client *api.Client
	store  *store.Store
	cache  *internal.TranscriptCache // nil if the cache could not be opened
}

func newApp(cfg *internal.Config) *app {
	a := &app{cfg: cfg}
	if cfg.StaticToken != "" {
		internal.LogDebug("Using static token from configuration")
		a.creds = auth.NewStaticCredentials(cfg.StaticToken)
	} else {
		a.auth = auth.NewManager(auth.SettingsFromConfig(cfg))
		a.creds = a.auth
	}

	cache, err := internal.OpenTranscriptCache(cfg.CachePath())
	if err != nil {
		internal.LogWarn("Transcript cache unavailable: %v", err)
	} else {
		a.cache = cache
	}

	a.client = api.New(cfg.APIURL, a.creds,
		api.WithTimeout(cfg.RequestTimeout),
		api.OnUnauthorized(a.forgetTranscripts),
	)
	a.store = store.New(a.client)
	return a
}

// close releases the cache database
func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			internal.LogWarn("Failed to close transcript cache: %v", err)
		}
	}
}

// forgetTranscripts runs when the API rejects the credential
func (a *app) forgetTranscripts() {
	internal.LogWarn("Credential rejected; clearing local transcripts")
	if a.cache == nil {
		return
	}
	if err := a.cache.Clear(); err != nil {
		internal.LogWarn("Failed to clear transcript cache: %v", err)
	}
}

// requireCache fails when the offline cache is not available
func (a *app) requireCache() (*internal.TranscriptCache, error) {
	if a.cache == nil {
		return nil, fmt.Errorf("transcript cache is not available at %s", a.cfg.CachePath())
	}
	return a.cache, nil
}

// recorder returns the cache as a chat recorder, or nil without a cache
func (a *app) recorder() chat.Recorder {
	if a.cache == nil {
		return nil
	}
	return a.cache
}

// newController builds a chat controller reporting routes to nav
func (a *app) newController(nav chat.Navigator) *chat.Controller {
	opts := []chat.Option{
		chat.WithEngine(stream.NewEngine(stream.WithInterval(a.cfg.FlushInterval))),
	}
	if nav != nil {
		opts = append(opts, chat.WithNavigator(nav))
	}
	if rec := a.recorder(); rec != nil {
		opts = append(opts, chat.WithRecorder(rec))
	}
	return chat.New(a.client, a.store, opts...)
}

// fetchSessions loads the session list, turning a missing login into a hint
func (a *app) fetchSessions(ctx context.Context) error {
	if err := a.store.FetchAll(ctx); err != nil {
		return loginHint(err)
	}
	return nil
}

// loginHint rewrites authentication failures into an actionable message
func loginHint(err error) error {
	if internal.IsUnauthorized(err) {
		return fmt.Errorf("%s Run 'fssva login'. (%w)", internal.ErrorMessage(err), err)
	}
	return err
}

// openBrowser asks the desktop to open url
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return errors.Join(errors.New("could not open a browser"), err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
