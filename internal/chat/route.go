package chat

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Route is a view address, mirroring the paths of the web client
type Route string

const (
	// NewChatRoute is the empty chat panel
	NewChatRoute Route = "/app"
	// SearchRoute is the search view
	SearchRoute Route = "/search"
)

// SessionRoute is the address of an existing session
func SessionRoute(id string) Route {
	return Route(string(NewChatRoute) + "/" + url.PathEscape(id))
}

// SessionID returns the session a route points at, or "" for other routes
func (r Route) SessionID() string {
	prefix := string(NewChatRoute) + "/"
	if !strings.HasPrefix(string(r), prefix) {
		return ""
	}
	id, err := url.PathUnescape(strings.TrimPrefix(string(r), prefix))
	if err != nil {
		return ""
	}
	return id
}

// ParseRoute validates a path. "/" is treated as the new chat route.
func ParseRoute(path string) (Route, error) {
	path = strings.TrimRight(strings.TrimSpace(path), "/")
	switch {
	case path == "" || path == string(NewChatRoute):
		return NewChatRoute, nil
	case path == string(SearchRoute):
		return SearchRoute, nil
	case strings.HasPrefix(path, string(NewChatRoute)+"/"):
		r := Route(path)
		if r.SessionID() == "" || strings.Contains(r.SessionID(), "/") {
			return "", fmt.Errorf("invalid session route: %q", path)
		}
		return r, nil
	default:
		return "", fmt.Errorf("unknown route: %q", path)
	}
}

// Navigator moves the view to a route. Implementations must not call back
// into the Controller synchronously.
type Navigator interface {
	Navigate(route Route)
}

// Router remembers the current route and reports changes
type Router struct {
	mu       sync.Mutex
	current  Route
	onChange func(Route)
}

// NewRouter starts at initial and calls onChange (may be nil) on every move
func NewRouter(initial Route, onChange func(Route)) *Router {
	return &Router{current: initial, onChange: onChange}
}

// Navigate records route as current
func (r *Router) Navigate(route Route) {
	r.mu.Lock()
	changed := r.current != route
	r.current = route
	fn := r.onChange
	r.mu.Unlock()

	if changed && fn != nil {
		fn(route)
	}
}

// Current returns the current route
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
