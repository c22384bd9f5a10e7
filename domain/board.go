package domain

// Board is a read-only snapshot of the task collection and its status
// partition, as handed to observers after each change.
type Board struct {
	Version    uint64 `json:"version"`
	Busy       bool   `json:"busy"`
	Tasks      []Task `json:"tasks"`
	Todo       []Task `json:"todo"`
	InProgress []Task `json:"inProgress"`
	Done       []Task `json:"done"`
}

// Filter returns the tasks in the given stage, preserving insertion order.
func Filter(tasks []Task, status Status) []Task {
	out := []Task{}
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Partition projects tasks into a Board. The views are computed, never
// stored separately, so they always cover the collection exactly once.
func Partition(tasks []Task) Board {
	all := make([]Task, len(tasks))
	copy(all, tasks)
	return Board{
		Tasks:      all,
		Todo:       Filter(tasks, StatusTodo),
		InProgress: Filter(tasks, StatusInProgress),
		Done:       Filter(tasks, StatusDone),
	}
}
