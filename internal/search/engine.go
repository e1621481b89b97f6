package search

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the delay between the last keystroke and the search.
const DefaultDebounce = 300 * time.Millisecond

// SearchFunc computes results for one query.
type SearchFunc func(ctx context.Context, query string) ([]Result, error)

// Outcome is a delivered search result.
type Outcome struct {
	Query      string
	Generation uint64
	Results    []Result
	Err        error
}

// Engine debounces queries and delivers only the outcome of the most recent
// one. Every Submit starts a new generation and cancels the previous
// search, so a superseded search can never be delivered.
type Engine struct {
	delay  time.Duration
	search SearchFunc

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	pending    bool
	closed     bool
	out        chan Outcome
}

// NewEngine creates an Engine that runs fn after delay.
func NewEngine(delay time.Duration, fn SearchFunc) *Engine {
	if delay < 0 {
		delay = 0
	}
	return &Engine{
		delay:  delay,
		search: fn,
		out:    make(chan Outcome, 1),
	}
}

// Results delivers outcomes. Only the latest undelivered outcome is kept.
// The channel is closed by Close.
func (e *Engine) Results() <-chan Outcome {
	return e.out
}

// Searching reports whether a search is waiting or running.
func (e *Engine) Searching() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Submit replaces the current query and returns its generation. A blank
// query delivers an empty outcome right away.
func (e *Engine) Submit(query string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.generation
	}

	e.generation++
	gen := e.generation
	e.stopLocked()

	if strings.TrimSpace(query) == "" {
		e.deliverLocked(Outcome{Query: query, Generation: gen})
		return gen
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.pending = true
	go e.run(ctx, gen, query)
	return gen
}

// Close cancels any pending search and closes the results channel.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.stopLocked()
	close(e.out)
}

func (e *Engine) run(ctx context.Context, gen uint64, query string) {
	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	results, err := e.search(ctx, query)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.generation || ctx.Err() != nil {
		return
	}
	e.stopLocked()
	e.deliverLocked(Outcome{Query: query, Generation: gen, Results: results, Err: err})
}

func (e *Engine) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.pending = false
}

// deliverLocked replaces any undelivered outcome with o. Senders hold the
// lock, so the send after draining never blocks.
func (e *Engine) deliverLocked(o Outcome) {
	select {
	case <-e.out:
	default:
	}
	e.out <- o
}
