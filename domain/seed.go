package domain

import "time"

const day = 24 * time.Hour

// SeedTasks returns the sample board loaded on first initialization.
func SeedTasks(now time.Time, newID func() string) []Task {
	seed := []struct {
		title, description string
		priority           Priority
		status             Status
		age                time.Duration
	}{
		{"Setup project repository", "Initialize Git repo and configure CI/CD pipeline", PriorityHigh, StatusDone, 7 * day},
		{"Design database schema", "Create ERD and define table structures for user and task entities", PriorityHigh, StatusDone, 5 * day},
		{"Implement user authentication", "Add login, registration, and JWT token handling", PriorityHigh, StatusInProgress, 3 * day},
		{"Create API endpoints", "Build REST API for task CRUD operations", PriorityMedium, StatusTodo, 2 * day},
		{"Write unit tests", "Add test coverage for services and components", PriorityLow, StatusTodo, 1 * day},
	}
	tasks := make([]Task, 0, len(seed))
	for _, s := range seed {
		tasks = append(tasks, Task{
			ID:          newID(),
			Title:       s.title,
			Description: s.description,
			Priority:    s.priority,
			Status:      s.status,
			CreatedAt:   now.Add(-s.age),
		})
	}
	return tasks
}
