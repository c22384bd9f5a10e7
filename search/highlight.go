package search

import (
	"sync"
	"time"
)

// DefaultHighlightTTL is how long a selected task stays highlighted.
const DefaultHighlightTTL = 2500 * time.Millisecond

// Highlighter remembers the most recently selected task for a short while.
type Highlighter struct {
	ttl time.Duration

	mu       sync.Mutex
	id       string
	seq      uint64
	timer    *time.Timer
	onChange func()
}

// NewHighlighter creates a Highlighter. A non-positive ttl selects
// DefaultHighlightTTL.
func NewHighlighter(ttl time.Duration) *Highlighter {
	if ttl <= 0 {
		ttl = DefaultHighlightTTL
	}
	return &Highlighter{ttl: ttl}
}

// OnChange registers fn to run, outside the highlighter's lock, whenever the
// highlighted id is set or cleared.
func (h *Highlighter) OnChange(fn func()) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// Set highlights id, replacing any earlier highlight and its timer.
func (h *Highlighter) Set(id string) {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.seq++
	seq := h.seq
	h.id = id
	h.timer = time.AfterFunc(h.ttl, func() { h.expire(seq) })
	fn := h.onChange
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (h *Highlighter) expire(seq uint64) {
	h.mu.Lock()
	if h.seq != seq {
		h.mu.Unlock()
		return
	}
	h.id = ""
	h.timer = nil
	fn := h.onChange
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Current returns the highlighted id or "".
func (h *Highlighter) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

// Close clears the highlight and stops its timer.
func (h *Highlighter) Close() {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.seq++
	cleared := h.id != ""
	h.id = ""
	fn := h.onChange
	h.mu.Unlock()
	if cleared && fn != nil {
		fn()
	}
}
