package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"task-board/domain"
)

func demoCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted session against the in-process board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return runDemo(cmd.Context(), a, logger)
		},
	}
}

// runDemo walks a task from creation to Done, then searches for and deletes
// it, checking the board after every step.
func runDemo(ctx context.Context, a *app, logger *log.Logger) error {
	stopBusy := logBusy(a, logger)
	defer stopBusy()

	if err := a.store.Initialize(ctx); err != nil {
		return err
	}
	logCounts(logger, "initialized", a.store.Snapshot())

	task, err := a.store.CreateTask(ctx, "Write docs", "", domain.PriorityMedium)
	if err != nil {
		return err
	}
	if !contains(a.store.TodoTasks(), task.ID) {
		return fmt.Errorf("created task %s missing from todo", task.ID)
	}
	logCounts(logger, "created", a.store.Snapshot())

	for i := 0; i < 2; i++ {
		moved, found, err := a.store.MoveTaskForward(ctx, task.ID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("task %s vanished", task.ID)
		}
		logger.WithFields(log.Fields{"from": task.ID, "to": moved.ID, "status": moved.Status}).Info("demo.moved")
		task = moved
	}
	if task.Status != domain.StatusDone || contains(a.store.TodoTasks(), task.ID) || contains(a.store.InProgressTasks(), task.ID) {
		return fmt.Errorf("task %s ended as %s", task.ID, task.Status)
	}
	logCounts(logger, "moved", a.store.Snapshot())

	hits := a.store.SearchTasks(ctx, "DOCS")
	logger.WithFields(log.Fields{"query": "DOCS", "hits": len(hits)}).Info("demo.searched")
	if !contains(hits, task.ID) {
		return fmt.Errorf("search missed task %s", task.ID)
	}

	if _, err := a.store.DeleteTask(ctx, task.ID); err != nil {
		return err
	}
	if _, ok := a.store.GetTaskByID(task.ID); ok {
		return fmt.Errorf("task %s still present after delete", task.ID)
	}
	logCounts(logger, "deleted", a.store.Snapshot())

	for _, n := range a.notes.List() {
		logger.WithFields(log.Fields{"id": n.ID, "kind": n.Kind}).Info(n.Message)
	}
	return nil
}

func logBusy(a *app, logger *log.Logger) func() {
	ch, stop := a.loading.Subscribe()
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case busy := <-ch:
				logger.WithField("busy", busy).Debug("demo.busy")
			case <-quit:
				return
			}
		}
	}()
	return func() {
		stop()
		close(quit)
		<-done
	}
}

func logCounts(logger *log.Logger, step string, b domain.Board) {
	logger.WithFields(log.Fields{
		"step":       step,
		"version":    b.Version,
		"todo":       len(b.Todo),
		"inProgress": len(b.InProgress),
		"done":       len(b.Done),
	}).Info("demo.board")
}

func contains(tasks []domain.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
