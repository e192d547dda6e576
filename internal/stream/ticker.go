package stream

import (
	"sync"
	"time"
)

// Ticker is the scheduled callback driving preview flushes. Stop must release
// everything the ticker holds and may be called more than once.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d
type TickerFunc func(d time.Duration) Ticker

// NewTicker returns a Ticker backed by time.Ticker
func NewTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

type timeTicker struct {
	t *time.Ticker
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// ManualTicker fires only when Tick is called. It lets tests control flush
// timing exactly.
type ManualTicker struct {
	ch chan time.Time

	mu       sync.Mutex
	started  int
	stopped  int
	interval time.Duration
}

// NewManualTicker creates a ManualTicker
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// Factory returns a TickerFunc that hands out this ticker
func (m *ManualTicker) Factory() TickerFunc {
	return func(d time.Duration) Ticker {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.started++
		m.interval = d
		return m
	}
}

// Tick delivers one tick, blocking until the consumer takes it
func (m *ManualTicker) Tick() {
	m.ch <- time.Now()
}

// TryTick delivers a tick if the consumer is ready within d
func (m *ManualTicker) TryTick(d time.Duration) bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(d):
		return false
	}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
}

// Running reports whether a started ticker has not been stopped yet
func (m *ManualTicker) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started > m.stopped
}

// Interval returns the interval the ticker was last created with
func (m *ManualTicker) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}
