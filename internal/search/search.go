// Package search backs the search view: a title filter over the session
// list and an optional deep search through message contents.
package search

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/joao-cainglet/fss-va-2025/internal"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	defaultTTL         = 5 * time.Minute
	snippetRadius      = 30
	maxSnippets        = 3
)

// DetailSource loads a session's history. Both the API client and the
// local transcript cache satisfy it.
type DetailSource interface {
	GetSession(ctx context.Context, id string) (*internal.SessionDetail, error)
}

// Match is one search hit
type Match struct {
	Session  internal.ChatSession
	InTitle  bool
	Snippets []string
}

// FilterByTitle keeps the sessions whose title contains query, ignoring
// case. An empty query keeps everything.
func FilterByTitle(sessions []internal.ChatSession, query string) []internal.ChatSession {
	needle := fold(strings.TrimSpace(query))
	out := make([]internal.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if len(needle) == 0 || indexRunes(fold(s.Title), needle) >= 0 {
			out = append(out, s)
		}
	}
	return out
}

// Searcher runs deep searches, memoising fetched histories
type Searcher struct {
	source      DetailSource
	details     *cache.Cache
	concurrency int
}

// Option configures a Searcher
type Option func(*Searcher)

// WithConcurrency bounds the number of histories fetched at once
func WithConcurrency(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTTL sets how long a fetched history is reused
func WithTTL(ttl time.Duration) Option {
	return func(s *Searcher) { s.details = cache.New(ttl, 2*ttl) }
}

// New creates a Searcher reading histories from source
func New(source DetailSource, opts ...Option) *Searcher {
	s := &Searcher{
		source:      source,
		details:     cache.New(defaultTTL, 2*defaultTTL),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops the memoised history of one session
func (s *Searcher) Invalidate(id string) {
	s.details.Delete(id)
}

// Flush drops every memoised history
func (s *Searcher) Flush() {
	s.details.Flush()
}

// Deep matches query against the titles and message contents of sessions.
// Matches keep the order of sessions. A session whose history cannot be
// fetched is still matched by title; an unauthorized response or a
// cancelled context aborts the search.
func (s *Searcher) Deep(ctx context.Context, sessions []internal.ChatSession, query string) ([]Match, error) {
	needle := fold(strings.TrimSpace(query))
	if len(needle) == 0 {
		matches := make([]Match, len(sessions))
		for i, sess := range sessions {
			matches[i] = Match{Session: sess, InTitle: true}
		}
		return matches, nil
	}

	results := make([]Match, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, sess := range sessions {
		results[i] = Match{Session: sess, InTitle: indexRunes(fold(sess.Title), needle) >= 0}
		g.Go(func() error {
			detail, err := s.detail(gctx, sess.ID)
			if err != nil {
				if internal.IsUnauthorized(err) || gctx.Err() != nil {
					return err
				}
				internal.LogWarn("Skipping contents of session %s: %v", sess.ID, err)
				return nil
			}
			results[i].Snippets = snippets(detail.Messages, needle)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for _, m := range results {
		if m.InTitle || len(m.Snippets) > 0 {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (s *Searcher) detail(ctx context.Context, id string) (*internal.SessionDetail, error) {
	if cached, ok := s.details.Get(id); ok {
		return cached.(*internal.SessionDetail), nil
	}
	detail, err := s.source.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.details.Set(id, detail, cache.DefaultExpiration)
	return detail, nil
}

func snippets(msgs []internal.Message, needle []rune) []string {
	var out []string
	for _, msg := range msgs {
		text := []rune(strings.Join(strings.Fields(msg.Content), " "))
		at := indexRunes(fold(string(text)), needle)
		if at < 0 {
			continue
		}
		out = append(out, excerpt(text, at, len(needle)))
		if len(out) == maxSnippets {
			break
		}
	}
	return out
}

func excerpt(text []rune, at, n int) string {
	start := max(at-snippetRadius, 0)
	end := min(at+n+snippetRadius, len(text))

	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(string(text[start:end]))
	if end < len(text) {
		b.WriteString("…")
	}
	return b.String()
}

// fold lower-cases rune by rune so offsets line up with the original text
func fold(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
