// Package search turns keystrokes into debounced task searches and keeps
// only the newest result on display.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"task-board/broker"
	"task-board/domain"
)

// DefaultDebounce is the quiet period required before a search is issued.
const DefaultDebounce = 300 * time.Millisecond

// Searcher runs a query against the task collection.
type Searcher interface {
	SearchTasks(ctx context.Context, query string) []domain.Task
}

// Path is the search box state: the current query, the visible results and
// the pending debounce timer.
//
// Each issued search gets a generation number. A result is shown only if no
// newer search was issued (or the box cleared) while it was running, so a
// slow early search never replaces a faster later one.
type Path struct {
	searcher  Searcher
	logger    *log.Logger
	debounce  time.Duration
	highlight *Highlighter

	mu      sync.Mutex
	query   string
	results []domain.Task
	timer   *time.Timer
	pending uint64
	issued  uint64
	closed  bool

	changes *broker.Broker[struct{}]
}

// Option customises a Path.
type Option func(*Path)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(p *Path) { p.debounce = d }
}

// WithHighlighter sets where Select records the chosen task.
func WithHighlighter(h *Highlighter) Option {
	return func(p *Path) { p.highlight = h }
}

// NewPath creates a Path backed by s.
func NewPath(s Searcher, logger *log.Logger, opts ...Option) *Path {
	if s == nil || logger == nil {
		panic("search.NewPath: searcher and logger are required")
	}
	p := &Path{
		searcher: s,
		logger:   logger,
		debounce: DefaultDebounce,
		changes:  broker.New[struct{}](1),
	}
	for _, o := range opts {
		o(p)
	}
	if p.highlight == nil {
		p.highlight = NewHighlighter(DefaultHighlightTTL)
	}
	p.highlight.OnChange(p.signal)
	return p
}

// Input records a change to the search box. It restarts the debounce timer;
// a blank value clears the results at once and discards any search still in
// flight.
func (p *Path) Input(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.query = value
	p.cancelPending()
	if strings.TrimSpace(value) == "" {
		p.issued++
		p.setResults(nil)
		return
	}
	token := p.pending
	p.timer = time.AfterFunc(p.debounce, func() { p.fire(token, value) })
}

func (p *Path) fire(token uint64, query string) {
	p.mu.Lock()
	if p.closed || token != p.pending {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.issued++
	gen := p.issued
	p.mu.Unlock()

	results := p.searcher.SearchTasks(context.Background(), query)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.issued || p.closed {
		p.logger.WithFields(log.Fields{"query": query, "generation": gen, "latest": p.issued}).Debug("search.stale_result_dropped")
		return
	}
	p.logger.WithFields(log.Fields{"query": query, "generation": gen, "results": len(results)}).Debug("search.applied")
	p.setResults(results)
}

// Select handles a click on a result: the task is highlighted and the box
// is cleared. Subscribers are signalled when the highlight is set and again
// when it expires.
func (p *Path) Select(taskID string) {
	p.highlight.Set(taskID)
	p.mu.Lock()
	p.query = ""
	p.cancelPending()
	p.issued++
	p.setResults(nil)
	p.mu.Unlock()
}

// Query returns the current search box text.
func (p *Path) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Results returns a copy of the displayed results.
func (p *Path) Results() []domain.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Task, len(p.results))
	copy(out, p.results)
	return out
}

// Visible reports whether the result list is shown.
func (p *Path) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results) > 0
}

// Highlighted returns the id of the highlighted task, if any.
func (p *Path) Highlighted() string {
	return p.highlight.Current()
}

// Subscribe returns a channel signalled whenever the displayed results or
// the highlight change, and a func that stops delivery.
func (p *Path) Subscribe() (<-chan struct{}, func()) {
	return p.changes.Subscribe()
}

// Close stops the debounce timer and drops any result still in flight.
func (p *Path) Close() {
	p.mu.Lock()
	p.cancelPending()
	p.closed = true
	p.mu.Unlock()
	p.highlight.Close()
}

// cancelPending must be called with mu held.
func (p *Path) cancelPending() {
	p.pending++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// setResults must be called with mu held.
func (p *Path) setResults(results []domain.Task) {
	p.results = append([]domain.Task(nil), results...)
	p.signal()
}

func (p *Path) signal() {
	p.changes.Publish(struct{}{})
}
