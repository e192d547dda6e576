// Package chat drives the chat panel: session creation on the first message,
// history loading, reply streaming, and intent switching.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/internal/store"
	"github.com/joao-cainglet/fss-va-2025/internal/stream"
)

// ErrClosed is returned by operations on a closed Controller
var ErrClosed = errors.New("chat controller closed")

// Backend is the part of the API the controller calls
type Backend interface {
	CreateSession(ctx context.Context, title string, intent internal.Intent) (*internal.ChatSession, error)
	GetSession(ctx context.Context, id string) (*internal.SessionDetail, error)
	StreamReply(ctx context.Context, sessionID, query string) (io.ReadCloser, error)
}

// Recorder keeps a local copy of transcripts
type Recorder interface {
	RecordSession(detail *internal.SessionDetail) error
	AppendMessages(session internal.ChatSession, msgs ...internal.Message) error
}

// IntentResult tells the caller what RequestIntent did
type IntentResult int

const (
	// IntentUnchanged means the requested intent was already current
	IntentUnchanged IntentResult = iota
	// IntentApplied means the intent changed immediately
	IntentApplied
	// IntentNeedsConfirmation means the switch waits for ConfirmNewChat
	IntentNeedsConfirmation
)

// Controller owns the chat panel state. All methods are safe for concurrent
// use. Subscribers must not call mutating methods from their callback.
type Controller struct {
	backend Backend
	store   *store.Store
	engine  *stream.Engine
	nav     Navigator
	rec     Recorder

	mu         sync.Mutex
	view       View
	meta       internal.ChatSession
	gen        uint64
	cancelLoad context.CancelFunc
	closed     bool
	version    uint64
	subs       map[int]func(View)
	nextSub    int

	notifyMu  sync.Mutex
	delivered uint64

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures a Controller
type Option func(*Controller)

// WithEngine sets the stream engine
func WithEngine(e *stream.Engine) Option {
	return func(c *Controller) { c.engine = e }
}

// WithNavigator sets where route changes are reported
func WithNavigator(nav Navigator) Option {
	return func(c *Controller) { c.nav = nav }
}

// WithRecorder keeps transcripts in r
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

// New creates a Controller showing an empty chat
func New(backend Backend, st *store.Store, opts ...Option) *Controller {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:  backend,
		store:    st,
		view:     newChatView(),
		subs:     make(map[int]func(View)),
		bgCtx:    bgCtx,
		bgCancel: bgCancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = stream.NewEngine()
	}
	if c.nav == nil {
		c.nav = NewRouter(NewChatRoute, nil)
	}
	return c
}

// View returns a snapshot of the panel
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

// Subscribe registers fn to receive the latest snapshot after changes.
// Snapshots are delivered in order; intermediate ones may be skipped.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Navigate moves the panel to route and reports it to the navigator.
// Opening a session blocks until its history is loaded.
func (c *Controller) Navigate(ctx context.Context, route Route) error {
	switch {
	case route == NewChatRoute:
		c.nav.Navigate(route)
		c.NewChat()
		return nil
	case route == SearchRoute:
		c.nav.Navigate(route)
		c.leave()
		return nil
	case route.SessionID() != "":
		c.nav.Navigate(route)
		return c.Open(ctx, route.SessionID())
	default:
		return fmt.Errorf("cannot navigate to %q", route)
	}
}

// NewChat clears the panel and resets the intent. An in-flight turn is
// abandoned: its reply still streams to completion so the server keeps it,
// but it no longer reaches the view.
func (c *Controller) NewChat() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.abandonLocked()
	c.view = newChatView()
	c.meta = internal.ChatSession{}
	c.version++
	c.mu.Unlock()

	c.store.SetActive("")
	c.notify()
}

// Open shows session id, loading its history and intent. An in-flight turn
// on another session is abandoned as in NewChat; opening the session a turn
// is streaming into is a no-op.
func (c *Controller) Open(ctx context.Context, id string) error {
	if id == "" {
		c.NewChat()
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if id == c.view.SessionID && (c.view.State.Busy() || c.view.Loading) {
		c.mu.Unlock()
		return nil
	}
	c.abandonLocked()
	gen := c.gen
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.view = View{
		State:     StateIdleLoaded,
		SessionID: id,
		Intent:    c.view.Intent,
		Loading:   true,
	}
	c.meta = internal.ChatSession{ID: id}
	c.version++
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()
	defer cancel()
	defer c.releaseLoad(gen)
	c.notify()

	internal.LogDebug("Loading session %s", id)
	detail, err := c.backend.GetSession(loadCtx, id)
	if err != nil {
		if !c.update(gen, func(v *View) {
			v.Loading = false
			v.State = StateError
			v.Error = internal.ErrorMessage(err)
		}) {
			// superseded by another navigation
			return nil
		}
		internal.LogError("Failed to load session %s: %v", id, err)
		return err
	}

	applied := c.update(gen, func(v *View) {
		v.Loading = false
		v.Messages = append([]internal.Message(nil), detail.Messages...)
		if detail.Intent != "" {
			v.Intent = detail.Intent
		}
		c.meta = detail.ChatSession
	})
	if !applied {
		return nil
	}

	c.store.SetActive(id)
	if c.rec != nil {
		if err := c.rec.RecordSession(detail); err != nil {
			internal.LogWarn("Failed to cache session %s: %v", id, err)
		}
	}
	return nil
}

// Send submits text as the next user message and blocks until the reply has
// been streamed, even when the panel navigates away meanwhile. Only ctx and
// Close cut the stream short. Blank text returns internal.ErrEmptyMessage and
// a send while a turn is in flight returns internal.ErrTurnInFlight; neither
// changes state.
func (c *Controller) Send(ctx context.Context, text string) error {
	return c.send(ctx, text, "")
}

// SendSuggestion sends a suggestion card. On an empty chat the card's intent
// becomes the chat's intent first.
func (c *Controller) SendSuggestion(ctx context.Context, s internal.Suggestion) error {
	return c.send(ctx, s.Text, s.Intent)
}

func (c *Controller) send(ctx context.Context, text string, intent internal.Intent) error {
	if strings.TrimSpace(text) == "" {
		return internal.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.view.State.Busy() || c.view.Loading {
		c.mu.Unlock()
		return internal.ErrTurnInFlight
	}
	if intent != "" && c.view.SessionID == "" {
		c.view.Intent = intent
	}
	turnCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.bgCtx, cancel)
	gen := c.gen
	meta := c.meta
	sessionID := c.view.SessionID
	intent = c.view.Intent

	c.view.Messages = append(c.view.Messages, internal.UserMessage(text))
	c.view.Preview = ""
	c.view.Error = ""
	if sessionID == "" {
		c.view.State = StateAwaitingFirstReply
	} else {
		c.view.State = StateStreaming
	}
	c.version++
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()
	defer cancel()
	defer stop()
	c.notify()

	if sessionID == "" {
		session, err := c.backend.CreateSession(turnCtx, text, intent)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.update(gen, func(v *View) { v.State = StateIdleNew })
				return err
			}
			internal.LogError("Failed to create session: %v", err)
			c.update(gen, func(v *View) {
				v.State = StateError
				v.Error = internal.ErrorMessage(err)
			})
			return err
		}
		sessionID = session.ID
		meta = *session
		internal.LogInfo("Created session %s", session.ID)
		if c.update(gen, func(v *View) {
			v.SessionID = session.ID
			v.State = StateStreaming
			c.meta = *session
		}) {
			c.store.SetActive(session.ID)
			c.nav.Navigate(SessionRoute(session.ID))
		}
		c.refreshSessions()
	}

	body, err := c.backend.StreamReply(turnCtx, sessionID, text)
	if err != nil {
		c.failTurn(gen, err)
		return err
	}

	reply, err := c.engine.Run(turnCtx, sessionID, body, &turnSink{c: c, gen: gen})
	if err != nil {
		c.failTurn(gen, err)
		return err
	}
	c.update(gen, func(v *View) {
		v.State = StateIdleLoaded
		v.Preview = ""
	})

	if c.rec != nil {
		if err := c.rec.AppendMessages(meta, internal.UserMessage(text), reply); err != nil {
			internal.LogWarn("Failed to cache turn for %s: %v", sessionID, err)
		}
	}
	return nil
}

// RequestIntent asks to switch the chat's intent. On an empty chat the switch
// applies at once; once a session exists it only takes effect through
// ConfirmNewChat, which starts a new chat.
func (c *Controller) RequestIntent(intent internal.Intent) (IntentResult, error) {
	parsed, err := internal.ParseIntent(string(intent))
	if err != nil {
		return IntentUnchanged, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return IntentUnchanged, ErrClosed
	}
	var result IntentResult
	switch {
	case parsed == c.view.Intent:
		result = IntentUnchanged
	case c.view.SessionID == "" && c.view.State != StateAwaitingFirstReply:
		c.view.Intent = parsed
		c.view.PendingIntent = ""
		c.version++
		result = IntentApplied
	default:
		c.view.PendingIntent = parsed
		c.version++
		result = IntentNeedsConfirmation
	}
	c.mu.Unlock()

	c.notify()
	return result, nil
}

// ConfirmNewChat accepts a pending intent switch: the chat is cleared and the
// new intent applied. Returns false when nothing was pending.
func (c *Controller) ConfirmNewChat() bool {
	c.mu.Lock()
	pending := c.view.PendingIntent
	if c.closed || pending == "" {
		c.mu.Unlock()
		return false
	}
	c.abandonLocked()
	c.view = newChatView()
	c.view.Intent = pending
	c.meta = internal.ChatSession{}
	c.version++
	c.mu.Unlock()

	c.store.SetActive("")
	c.nav.Navigate(NewChatRoute)
	c.notify()
	return true
}

// DeclineNewChat drops a pending intent switch
func (c *Controller) DeclineNewChat() {
	c.mu.Lock()
	if c.closed || c.view.PendingIntent == "" {
		c.mu.Unlock()
		return
	}
	c.view.PendingIntent = ""
	c.version++
	c.mu.Unlock()
	c.notify()
}

// Close cancels any in-flight turn or load and waits for background work to
// end. No state changes after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.abandonLocked()
	c.bgCancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// leave abandons the panel without resetting it, as when the search view
// replaces it.
func (c *Controller) leave() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.abandonLocked()
	if c.view.State.Busy() {
		if c.view.SessionID == "" {
			c.view.State = StateIdleNew
		} else {
			c.view.State = StateIdleLoaded
		}
	}
	c.view.Preview = ""
	c.version++
	c.mu.Unlock()
	c.notify()
}

// abandonLocked makes effects of the current turn or history load stale and
// cancels a pending history load. A streaming turn is left to drain.
// c.mu must be held.
func (c *Controller) abandonLocked() {
	c.gen++
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
}

// releaseLoad forgets the cancel func of load gen if it is still current
func (c *Controller) releaseLoad(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.cancelLoad = nil
	}
}

func (c *Controller) failTurn(gen uint64, err error) {
	if errors.Is(err, context.Canceled) {
		internal.LogDebug("Turn cancelled")
	} else {
		internal.LogError("Reply failed: %v", err)
	}
	c.update(gen, func(v *View) {
		v.State = StateIdleLoaded
		v.Preview = ""
		v.Error = internal.ErrorMessage(err)
	})
}

func (c *Controller) refreshSessions() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		_ = c.store.FetchAll(c.bgCtx)
	}()
}

// update applies fn when gen is still current, then notifies subscribers.
// It reports whether fn ran.
func (c *Controller) update(gen uint64, fn func(v *View)) bool {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return false
	}
	fn(&c.view)
	c.version++
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.version == c.delivered {
		c.mu.Unlock()
		return
	}
	c.delivered = c.version
	snapshot := c.view.clone()
	subs := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// turnSink feeds engine output into the view of the turn that started it
type turnSink struct {
	c   *Controller
	gen uint64
}

func (s *turnSink) Preview(text string) {
	s.c.update(s.gen, func(v *View) { v.Preview = text })
}

func (s *turnSink) Commit(msg internal.Message) {
	s.c.update(s.gen, func(v *View) { v.Messages = append(v.Messages, msg) })
}
