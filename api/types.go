package api

import (
	"context"

	"task-board/domain"
)

// Board is the task store as used by the handlers.
type Board interface {
	CreateTask(ctx context.Context, title, description string, priority domain.Priority) (domain.Task, error)
	MoveTaskForward(ctx context.Context, id string) (domain.Task, bool, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
	SearchTasks(ctx context.Context, query string) []domain.Task
	GetTaskByID(id string) (domain.Task, bool)
	Tasks() []domain.Task
	ByStatus(status domain.Status) []domain.Task
	Snapshot() domain.Board
	Subscribe() (<-chan struct{}, func())
}

// Notifications is the notification queue as used by the handlers.
type Notifications interface {
	List() []domain.Notification
	Dismiss(id string)
	Subscribe() (<-chan struct{}, func())
}

// SearchBox is the debounced search state shared with the renderer.
type SearchBox interface {
	Input(value string)
	Select(taskID string)
	Query() string
	Results() []domain.Task
	Visible() bool
	Highlighted() string
	Subscribe() (<-chan struct{}, func())
}

// BusySource reports loading edges.
type BusySource interface {
	Subscribe() (<-chan bool, func())
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type moveResponse struct {
	Task  domain.Task `json:"task"`
	Moved bool        `json:"moved"`
}

type searchInputRequest struct {
	Query string `json:"query"`
}

type selectRequest struct {
	TaskID string `json:"taskId"`
}

// searchResult is a task as the result list shows it, with its column name.
type searchResult struct {
	domain.Task
	StatusLabel string `json:"statusLabel"`
}

type searchBoxState struct {
	Query       string         `json:"query"`
	Results     []searchResult `json:"results"`
	Visible     bool           `json:"visible"`
	Highlighted string         `json:"highlighted,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func searchBoxSnapshot(s SearchBox) searchBoxState {
	tasks := s.Results()
	results := make([]searchResult, len(tasks))
	for i, t := range tasks {
		results[i] = searchResult{Task: t, StatusLabel: t.Status.Label()}
	}
	return searchBoxState{
		Query:       s.Query(),
		Results:     results,
		Visible:     s.Visible(),
		Highlighted: s.Highlighted(),
	}
}
