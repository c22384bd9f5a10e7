// Package notify holds transient user-facing messages that expire on their
// own unless dismissed first.
package notify

import (
	"sync"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"task-board/broker"
	"task-board/domain"
)

// DefaultTTL is how long a notification stays before it is removed.
const DefaultTTL = 3 * time.Second

// Queue owns the notification list. Entries are kept in arrival order.
type Queue struct {
	logger *log.Logger
	ttl    time.Duration

	mu     sync.Mutex
	items  []domain.Notification
	timers map[string]*time.Timer
	closed bool

	changes *broker.Broker[struct{}]
}

// NewQueue creates a Queue. A non-positive ttl selects DefaultTTL.
func NewQueue(logger *log.Logger, ttl time.Duration) *Queue {
	if logger == nil {
		panic("notify.NewQueue: logger is nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		logger:  logger,
		ttl:     ttl,
		timers:  make(map[string]*time.Timer),
		changes: broker.New[struct{}](1),
	}
}

// Post appends a message and schedules its removal.
func (q *Queue) Post(message string, kind domain.Kind) domain.Notification {
	n := domain.Notification{ID: "toast-" + xid.New().String(), Message: message, Kind: kind}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if !q.closed {
		q.timers[n.ID] = time.AfterFunc(q.ttl, func() { q.expire(n.ID) })
	}
	q.notify()
	q.logger.WithFields(log.Fields{"id": n.ID, "kind": kind, "message": message}).Debug("notification.posted")
	return n
}

func (q *Queue) Success(message string) domain.Notification { return q.Post(message, domain.KindSuccess) }
func (q *Queue) Error(message string) domain.Notification   { return q.Post(message, domain.KindError) }
func (q *Queue) Info(message string) domain.Notification    { return q.Post(message, domain.KindInfo) }

// Dismiss removes the notification with the given id. Unknown ids, including
// ones that already expired, are ignored.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	q.remove(id)
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.timers, id)
	q.remove(id)
}

// remove must be called with mu held.
func (q *Queue) remove(id string) {
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			q.notify()
			return
		}
	}
}

// List returns a copy of the current notifications.
func (q *Queue) List() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Subscribe returns a channel signalled whenever the list changes. Signals
// coalesce, so a reader should re-read List after each receive.
func (q *Queue) Subscribe() (<-chan struct{}, func()) {
	return q.changes.Subscribe()
}

// Close stops pending expiry timers. Notifications posted afterwards never
// expire on their own.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.closed = true
}

func (q *Queue) notify() {
	q.changes.Publish(struct{}{})
}
