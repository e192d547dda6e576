package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/joao-cainglet/fss-va-2025/internal/chat"
	"github.com/joao-cainglet/fss-va-2025/internal/search"
	"github.com/spf13/cobra"
)

var (
	chatFresh bool
)

const chatHelp = `Commands:
  /new              start a new chat
  /open <id>        open a session
  /intent <name>    switch intent (Regulatory, Internal, Speech)
  /sessions         list your sessions
  /search <query>   find sessions by title
  /help             show this help
  /quit             leave

On an empty chat, type a number to send one of the suggestions.`

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Chat with the assistant",
	Long: `Start an interactive chat.

Without a session id the chat resumes where you left off last time, unless
--new is given. Type /help inside the chat for the available commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.close()
		ctx := cmd.Context()

		if err := a.fetchSessions(ctx); err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		start := chat.NewChatRoute
		switch {
		case len(args) == 1:
			start = chat.SessionRoute(args[0])
		case !chatFresh:
			start = lastRoute()
		}

		router := chat.NewRouter(chat.NewChatRoute, rememberRoute)
		ctrl := a.newController(router)
		defer ctrl.Close()

		r := newREPL(a, ctrl, router, cmd.OutOrStdout(), readLines(cmd.InOrStdin()))
		return r.run(ctx, start)
	},
}

// lastRoute returns the route saved by the previous chat, or a new chat
func lastRoute() chat.Route {
	state, err := internal.LoadUIState(cfg.StatePath())
	if err != nil {
		internal.LogDebug("Ignoring UI state: %v", err)
		return chat.NewChatRoute
	}
	route, err := chat.ParseRoute(state.LastRoute)
	if err != nil || route == chat.SearchRoute {
		return chat.NewChatRoute
	}
	return route
}

func rememberRoute(route chat.Route) {
	if err := internal.SaveUIState(cfg.StatePath(), internal.UIState{LastRoute: string(route)}); err != nil {
		internal.LogWarn("Failed to save UI state: %v", err)
	}
}

// readLines feeds input lines into a channel that is closed at EOF
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// replyPrinter writes a streamed reply as its preview grows
type replyPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	shown string
}

func (p *replyPrinter) onView(v chat.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extend(v.Preview)
}

// finish writes whatever part of reply the previews did not cover
func (p *replyPrinter) finish(reply string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extend(reply)
	if p.shown != "" {
		fmt.Fprintln(p.w)
	}
	p.shown = ""
}

// extend prints text past what is already shown. Text that does not
// continue the shown reply is ignored.
func (p *replyPrinter) extend(text string) {
	if len(text) <= len(p.shown) || !strings.HasPrefix(text, p.shown) {
		return
	}
	fmt.Fprint(p.w, text[len(p.shown):])
	p.shown = text
}

type repl struct {
	app     *app
	ctrl    *chat.Controller
	router  *chat.Router
	out     io.Writer
	lines   <-chan string
	md      *markdownRenderer
	printer *replyPrinter
}

func newREPL(a *app, ctrl *chat.Controller, router *chat.Router, out io.Writer, lines <-chan string) *repl {
	r := &repl{
		app:     a,
		ctrl:    ctrl,
		router:  router,
		out:     out,
		lines:   lines,
		md:      newMarkdownRenderer(),
		printer: &replyPrinter{w: out},
	}
	ctrl.Subscribe(r.printer.onView)
	return r
}

func (r *repl) run(ctx context.Context, start chat.Route) error {
	fmt.Fprintln(r.out, internal.Muted("Type /help for commands, /quit to leave."))
	if err := r.ctrl.Navigate(ctx, start); err != nil {
		r.printError(err)
	}
	r.showView()

	for {
		fmt.Fprint(r.out, r.prompt())
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok = <-r.lines:
			if !ok {
				fmt.Fprintln(r.out)
				return nil
			}
		}

		if quit := r.handle(ctx, strings.TrimSpace(line)); quit || ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) prompt() string {
	if r.router.Current() == chat.SearchRoute {
		return "search › "
	}
	return fmt.Sprintf("[%s] › ", r.ctrl.View().Intent)
}

// handle runs one input line and reports whether the user asked to leave
func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "/") {
		return r.command(ctx, line)
	}
	if r.router.Current() == chat.SearchRoute {
		r.search(line)
		return false
	}
	if n, err := strconv.Atoi(line); err == nil && r.ctrl.View().ShowSuggestions() {
		suggestions := internal.Suggestions()
		if n >= 1 && n <= len(suggestions) {
			fmt.Fprintln(r.out, internal.RoleLabel(internal.RoleUser)+" "+suggestions[n-1].Text)
			r.turn(func() error { return r.ctrl.SendSuggestion(ctx, suggestions[n-1]) })
			return false
		}
	}
	r.turn(func() error { return r.ctrl.Send(ctx, line) })
	return false
}

func (r *repl) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/new":
		_ = r.ctrl.Navigate(ctx, chat.NewChatRoute)
		r.showView()
	case "/open":
		if arg == "" {
			fmt.Fprintln(r.out, "Usage: /open <session-id>")
			return false
		}
		if err := r.ctrl.Navigate(ctx, chat.SessionRoute(arg)); err != nil {
			r.printError(err)
			return false
		}
		r.showView()
	case "/intent":
		r.switchIntent(ctx, arg)
	case "/sessions":
		if err := r.app.fetchSessions(ctx); err != nil {
			r.printError(err)
		}
		displaySessions(r.out, r.app.store.Sessions(), r.ctrl.View().SessionID, time.Now())
	case "/search":
		_ = r.ctrl.Navigate(ctx, chat.SearchRoute)
		r.search(arg)
		fmt.Fprintln(r.out, internal.Muted("Type to search again, /open <id> to open a session or /new to start one."))
	default:
		fmt.Fprintf(r.out, "Unknown command %s. Type /help for the list.\n", name)
	}
	return false
}

func (r *repl) switchIntent(ctx context.Context, name string) {
	intent, err := internal.ParseIntent(name)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}

	result, err := r.ctrl.RequestIntent(intent)
	if err != nil {
		r.printError(err)
		return
	}
	switch result {
	case chat.IntentUnchanged:
		fmt.Fprintf(r.out, "Already using %s.\n", intent)
	case chat.IntentApplied:
		fmt.Fprintf(r.out, "Intent set to %s.\n", intent)
	case chat.IntentNeedsConfirmation:
		fmt.Fprintf(r.out, "Switching to %s starts a new chat. Continue? [y/N] ", intent)
		var answer string
		select {
		case answer = <-r.lines:
		case <-ctx.Done():
		}
		if isYes(answer) && r.ctrl.ConfirmNewChat() {
			fmt.Fprintf(r.out, "Started a new %s chat.\n", intent)
			r.showView()
			return
		}
		r.ctrl.DeclineNewChat()
		fmt.Fprintln(r.out, "Kept the current chat.")
	}
}

func (r *repl) search(query string) {
	matches := search.FilterByTitle(r.app.store.Sessions(), query)
	results := make([]search.Match, len(matches))
	for i, s := range matches {
		results[i] = search.Match{Session: s, InTitle: true}
	}
	displayMatches(r.out, results, query)
}

// turn runs one send and prints the streamed reply
func (r *repl) turn(send func() error) {
	fmt.Fprintln(r.out, internal.RoleLabel(internal.RoleAssistant))
	err := send()

	view := r.ctrl.View()
	reply := ""
	if err == nil {
		if n := len(view.Messages); n > 0 && view.Messages[n-1].Role == internal.RoleAssistant {
			reply = view.Messages[n-1].Content
		}
	}
	r.printer.finish(reply)

	switch {
	case err == nil:
	case errors.Is(err, internal.ErrEmptyMessage), errors.Is(err, context.Canceled):
	case errors.Is(err, internal.ErrTurnInFlight):
		fmt.Fprintln(r.out, "Still answering the previous message.")
	default:
		r.printError(err)
	}
	fmt.Fprintln(r.out)
}

// showView prints the current chat: its history, or the suggestion cards
func (r *repl) showView() {
	view := r.ctrl.View()
	if view.Error != "" {
		return
	}
	if view.SessionID != "" {
		if s, ok := r.app.store.Find(view.SessionID); ok {
			printSessionHeader(r.out, s, "")
		}
		printMessages(r.out, r.md, view.Messages)
		return
	}
	if view.ShowSuggestions() {
		fmt.Fprintf(r.out, "New %s chat. Ask anything, or pick a suggestion:\n", view.Intent)
		for i, s := range internal.Suggestions() {
			fmt.Fprintf(r.out, "  %d. %s %s\n", i+1, s.Text, internal.Muted("("+string(s.Intent)+")"))
		}
		fmt.Fprintln(r.out)
	}
}

func (r *repl) printError(err error) {
	msg := internal.ErrorMessage(err)
	if msg == "" {
		return
	}
	if internal.IsUnauthorized(err) {
		msg += " Run 'fssva login'."
	}
	fmt.Fprintln(r.out, errorStyle.Render("✗ "+msg))
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatFresh, "new", false, "Start a new chat instead of resuming the last one")
}
