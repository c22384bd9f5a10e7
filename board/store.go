// Package board owns the task collection and the operations that change it.
// Every mutation runs under the loading coordinator and reports its outcome
// through the notification queue.
package board

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"task-board/broker"
	"task-board/domain"
	"task-board/loading"
	"task-board/notify"
)

const (
	msgCreated = "Task created successfully"
	msgMoved   = "Task moved successfully"
	msgDeleted = "Task deleted successfully"
)

// Delays holds the simulated latency of each operation.
type Delays struct {
	Initialize loading.Range
	Create     loading.Range
	Move       loading.Range
	Delete     loading.Range
	Search     loading.Range
}

// DefaultDelays returns the latency profile of the simulated backend.
func DefaultDelays() Delays {
	return Delays{
		Initialize: loading.Millis(500, 800),
		Create:     loading.Millis(800, 1200),
		Move:       loading.Millis(400, 700),
		Delete:     loading.Millis(300, 500),
		Search:     loading.Millis(200, 400),
	}
}

// Publisher receives the board after every completed mutation.
type Publisher interface {
	Publish(ctx context.Context, b domain.Board) error
}

// Store is the single owner of the task collection. Callers only ever get
// copies.
type Store struct {
	loading   *loading.Coordinator
	notes     *notify.Queue
	logger    *log.Logger
	tracer    trace.Tracer
	delays    Delays
	publisher Publisher
	now       func() time.Time
	newID     func() string

	pubMu        sync.Mutex
	mu           sync.RWMutex
	tasks        []domain.Task
	version      uint64
	initialized  bool
	initializing bool

	changes *broker.Broker[struct{}]
}

// Option customises a Store.
type Option func(*Store)

func WithDelays(d Delays) Option            { return func(s *Store) { s.delays = d } }
func WithPublisher(p Publisher) Option      { return func(s *Store) { s.publisher = p } }
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }
func WithIDs(newID func() string) Option    { return func(s *Store) { s.newID = newID } }

// New creates an empty Store. Call Initialize to load the sample board.
func New(lc *loading.Coordinator, nq *notify.Queue, logger *log.Logger, opts ...Option) *Store {
	if lc == nil || nq == nil || logger == nil {
		panic("board.New: coordinator, queue and logger are required")
	}
	s := &Store{
		loading: lc,
		notes:   nq,
		logger:  logger,
		tracer:  otel.Tracer("task-board/board"),
		delays:  DefaultDelays(),
		now:     time.Now,
		newID:   newTaskID,
		tasks:   []domain.Task{},
		changes: broker.New[struct{}](1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newTaskID() string {
	return "task-" + uuid.NewString()
}

// Initialize loads the sample board once. Later and concurrent calls return
// without doing anything.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized || s.initializing {
		s.mu.Unlock()
		return nil
	}
	s.initializing = true
	s.mu.Unlock()

	err := s.loading.WithLoading(ctx, "initialize", s.delays.Initialize, func(context.Context) error {
		seed := domain.SeedTasks(s.now(), s.newID)
		s.update(func([]domain.Task) ([]domain.Task, bool) { return seed, true })
		return nil
	})

	s.mu.Lock()
	s.initializing = false
	s.initialized = err == nil
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.logger.WithField("tasks", len(s.Tasks())).Info("board.initialized")
	s.publish(ctx)
	return nil
}

// Initialized reports whether the sample board has been loaded.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// CreateTask appends a new Todo task. A blank title or unknown priority is
// rejected with a *domain.ValidationError before anything changes. An empty
// priority selects medium.
func (s *Store) CreateTask(ctx context.Context, title, description string, priority domain.Priority) (domain.Task, error) {
	t, err := domain.ValidateTitle(title)
	if err != nil {
		return domain.Task{}, err
	}
	p, err := domain.ParsePriority(string(priority))
	if err != nil {
		return domain.Task{}, err
	}

	task, err := loading.Do(ctx, s.loading, "create", s.delays.Create, func(context.Context) (domain.Task, error) {
		task := domain.Task{
			ID:          s.newID(),
			Title:       t,
			Description: strings.TrimSpace(description),
			Priority:    p,
			Status:      domain.StatusTodo,
			CreatedAt:   s.now(),
		}
		s.update(func(cur []domain.Task) ([]domain.Task, bool) {
			return append(cur[:len(cur):len(cur)], task), true
		})
		return task, nil
	})
	if err != nil {
		return domain.Task{}, err
	}

	s.logger.WithFields(log.Fields{"id": task.ID, "priority": task.Priority}).Info("task.created")
	s.notes.Success(msgCreated)
	s.publish(ctx)
	return task, nil
}

// MoveTaskForward advances a task one stage. A task that actually moves is
// given a new id, so callers must re-resolve it from the returned task. Done
// tasks keep their id and status. The bool is false when no task has the id.
func (s *Store) MoveTaskForward(ctx context.Context, id string) (domain.Task, bool, error) {
	res, err := loading.Do(ctx, s.loading, "move", s.delays.Move, func(context.Context) (moveResult, error) {
		var res moveResult
		s.update(func(cur []domain.Task) ([]domain.Task, bool) {
			for i := range cur {
				if cur[i].ID != id {
					continue
				}
				res.found = true
				next, ok := cur[i].Status.Next()
				if !ok {
					res.task = cur[i]
					return cur, false
				}
				out := make([]domain.Task, len(cur))
				copy(out, cur)
				out[i].ID = s.newID()
				out[i].Status = next
				res.task = out[i]
				return out, true
			}
			return cur, false
		})
		return res, nil
	})
	if err != nil {
		return domain.Task{}, false, err
	}
	moved, found := res.task, res.found

	if found {
		s.logger.WithFields(log.Fields{"id": id, "newId": moved.ID, "status": moved.Status}).Info("task.moved")
	} else {
		s.logger.WithField("id", id).Debug("move: unknown task")
	}
	s.notes.Success(msgMoved)
	s.publish(ctx)
	return moved, found, nil
}

type moveResult struct {
	task  domain.Task
	found bool
}

// DeleteTask removes the task with the given id. It reports whether a task
// was removed; an unknown id is not an error.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	removed, err := loading.Do(ctx, s.loading, "delete", s.delays.Delete, func(context.Context) (bool, error) {
		var removed bool
		s.update(func(cur []domain.Task) ([]domain.Task, bool) {
			out := make([]domain.Task, 0, len(cur))
			for _, t := range cur {
				if t.ID == id {
					removed = true
					continue
				}
				out = append(out, t)
			}
			return out, removed
		})
		return removed, nil
	})
	if err != nil {
		return false, err
	}

	s.logger.WithFields(log.Fields{"id": id, "removed": removed}).Info("task.deleted")
	s.notes.Success(msgDeleted)
	s.publish(ctx)
	return removed, nil
}

// SearchTasks returns tasks whose title or description contains query,
// ignoring case. It waits out its own simulated delay, bypassing the loading
// coordinator, and matches against the collection as it stands afterwards.
// A blank query, or ctx ending during the delay, yields no results.
func (s *Store) SearchTasks(ctx context.Context, query string) []domain.Task {
	ctx, span := s.tracer.Start(ctx, "board.search")
	defer span.End()

	out := []domain.Task{}
	select {
	case <-ctx.Done():
		span.SetAttributes(attribute.Bool("cancelled", true))
		return out
	case <-time.After(s.delays.Search.Sample()):
	}

	if strings.TrimSpace(query) != "" {
		s.mu.RLock()
		for _, t := range s.tasks {
			if domain.Matches(t, query) {
				out = append(out, t)
			}
		}
		s.mu.RUnlock()
	}
	span.SetAttributes(attribute.Int("query_len", len(query)), attribute.Int("results", len(out)))
	return out
}

// GetTaskByID looks a task up without side effects.
func (s *Store) GetTaskByID(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Tasks returns every task in insertion order.
func (s *Store) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// ByStatus returns the tasks in one workflow stage.
func (s *Store) ByStatus(status domain.Status) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Filter(s.tasks, status)
}

func (s *Store) TodoTasks() []domain.Task       { return s.ByStatus(domain.StatusTodo) }
func (s *Store) InProgressTasks() []domain.Task { return s.ByStatus(domain.StatusInProgress) }
func (s *Store) DoneTasks() []domain.Task       { return s.ByStatus(domain.StatusDone) }

// Snapshot returns the collection, its status views and the busy flag as
// one consistent value.
func (s *Store) Snapshot() domain.Board {
	s.mu.RLock()
	b := domain.Partition(s.tasks)
	b.Version = s.version
	s.mu.RUnlock()
	b.Busy = s.loading.Busy()
	return b
}

// Subscribe returns a channel signalled after every committed change, and a
// func that stops delivery.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	return s.changes.Subscribe()
}

// update swaps the collection for the one fn returns. fn must not modify
// its argument in place; handed-out copies share no memory with it anyway,
// but the swap is what keeps each change atomic.
func (s *Store) update(fn func([]domain.Task) ([]domain.Task, bool)) {
	s.mu.Lock()
	next, changed := fn(s.tasks)
	if changed {
		s.tasks = next
		s.version++
	}
	s.mu.Unlock()
	if changed {
		s.changes.Publish(struct{}{})
	}
}

// publish hands the current board to the publisher. Snapshots are taken and
// published one at a time, so the publisher sees versions in order and the
// last one it receives is never older than the last committed change.
func (s *Store) publish(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if err := s.publisher.Publish(ctx, s.Snapshot()); err != nil {
		s.logger.WithError(err).Error("publish board snapshot")
	}
}
