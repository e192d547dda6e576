// Package stream ingests a streamed assistant reply. Text is accumulated in
// full and published to a preview at most once per flush interval, however
// fast chunks arrive.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/joao-cainglet/fss-va-2025/internal"
)

// DefaultInterval is the preview flush period
const DefaultInterval = 50 * time.Millisecond

const readBufferSize = 32 * 1024

// Sink observes a turn. Preview receives the whole preview text after each
// flush and "" once the turn is finalized. Commit receives the finalized reply.
type Sink interface {
	Preview(text string)
	Commit(msg internal.Message)
}

// Engine consumes reply streams
type Engine struct {
	interval  time.Duration
	newTicker TickerFunc
}

// Option configures an Engine
type Option func(*Engine)

// WithInterval sets the flush interval
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithTicker replaces the flush ticker, mostly for tests
func WithTicker(fn TickerFunc) Option {
	return func(e *Engine) { e.newTicker = fn }
}

// NewEngine creates an Engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{interval: DefaultInterval, newTicker: NewTicker}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Interval returns the flush interval
func (e *Engine) Interval() time.Duration {
	return e.interval
}

type readResult struct {
	chunk []byte
	err   error
}

// Run reads body to the end and reports progress to sink.
//
// On end of data the pending text is flushed, sink.Commit receives the
// assistant message, and the preview is cleared. On a read or decode error
// nothing is committed and a *internal.StreamError is returned. When ctx is
// cancelled Run returns ctx.Err() without touching sink again. In every case
// the ticker is stopped and body is closed before Run returns.
func (e *Engine) Run(ctx context.Context, sessionID string, body io.ReadCloser, sink Sink) (internal.Message, error) {
	ticker := e.newTicker(e.interval)
	defer ticker.Stop()

	results := make(chan readResult)
	done := make(chan struct{})
	readerExited := make(chan struct{})
	go readLoop(body, results, done, readerExited)
	defer func() {
		close(done)
		body.Close()
		<-readerExited
	}()

	var (
		full    strings.Builder
		pending strings.Builder
		preview string
	)
	dec := NewDecoder()

	flush := func() {
		if pending.Len() == 0 {
			return
		}
		preview += pending.String()
		pending.Reset()
		sink.Preview(preview)
	}

	accept := func(text string) {
		full.WriteString(text)
		pending.WriteString(text)
	}

	for {
		select {
		case <-ctx.Done():
			return internal.Message{}, ctx.Err()

		case <-ticker.C():
			if ctx.Err() != nil {
				return internal.Message{}, ctx.Err()
			}
			flush()

		case res := <-results:
			if res.chunk != nil {
				text, err := dec.Decode(res.chunk)
				if err != nil {
					return internal.Message{}, &internal.StreamError{SessionID: sessionID, Op: "decode", Err: err}
				}
				accept(text)
				continue
			}

			if !errors.Is(res.err, io.EOF) {
				return internal.Message{}, &internal.StreamError{SessionID: sessionID, Op: "read", Err: res.err}
			}

			tail, err := dec.Flush()
			if err != nil {
				return internal.Message{}, &internal.StreamError{SessionID: sessionID, Op: "decode", Err: err}
			}
			accept(tail)

			if ctx.Err() != nil {
				return internal.Message{}, ctx.Err()
			}
			flush()
			msg := internal.AssistantMessage(full.String())
			sink.Commit(msg)
			sink.Preview("")
			return msg, nil
		}
	}
}

// readLoop forwards chunks until a read error (io.EOF included) or until done
// is closed.
func readLoop(body io.Reader, results chan<- readResult, done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	buf := make([]byte, readBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case results <- readResult{chunk: chunk}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case results <- readResult{err: err}:
			case <-done:
			}
			return
		}
	}
}
