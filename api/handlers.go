// Package api exposes the board core to an out-of-process renderer over
// HTTP and server-sent events.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"task-board/domain"
)

// Deps groups the core components served by the API.
type Deps struct {
	Board         Board
	Notifications Notifications
	Search        SearchBox
	Busy          BusySource
	Logger        *log.Logger
}

// Register wires up all routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Board == nil || d.Notifications == nil || d.Search == nil || d.Busy == nil || d.Logger == nil {
		panic("api.Register: missing dependency")
	}
	e.JSONSerializer = SonicSerializer{}
	e.Use(RequestMetrics(d.Logger))

	e.GET("/api/board", getBoard(d.Board))
	e.GET("/api/tasks", getTasks(d.Board))
	e.GET("/api/tasks/:id", getTask(d.Board))
	e.POST("/api/tasks", postTask(d.Board))
	e.POST("/api/tasks/:id/move", moveTask(d.Board))
	e.DELETE("/api/tasks/:id", deleteTask(d.Board))
	e.GET("/api/search", searchTasks(d.Board))
	e.GET("/api/searchbox", getSearchBox(d.Search))
	e.PUT("/api/searchbox", putSearchBox(d.Search))
	e.POST("/api/searchbox/select", selectResult(d.Search))
	e.GET("/api/notifications", getNotifications(d.Notifications))
	e.DELETE("/api/notifications/:id", dismissNotification(d.Notifications))
	e.GET("/stream", stream(d))
	e.GET("/healthz", healthz)
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func getBoard(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.Snapshot())
	}
}

func getTasks(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := c.QueryParam("status")
		if status == "" {
			return c.JSON(http.StatusOK, tasksResponse{Tasks: b.Tasks()})
		}
		s, err := domain.ParseStatus(status)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: b.ByStatus(s)})
	}
}

func getTask(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, ok := b.GetTaskByID(c.Param("id"))
		if !ok {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
		}
		return c.JSON(http.StatusOK, t)
	}
}

func postTask(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		t, err := b.CreateTask(c.Request().Context(), req.Title, req.Description, domain.Priority(req.Priority))
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error()})
			}
			return err
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func moveTask(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, found, err := b.MoveTaskForward(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		if !found {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
		}
		return c.JSON(http.StatusOK, moveResponse{Task: t, Moved: t.ID != c.Param("id")})
	}
}

func deleteTask(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := b.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func searchTasks(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, tasksResponse{Tasks: b.SearchTasks(c.Request().Context(), c.QueryParam("q"))})
	}
}

func getSearchBox(s SearchBox) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, searchBoxSnapshot(s))
	}
}

func putSearchBox(s SearchBox) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req searchInputRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		s.Input(req.Query)
		return c.NoContent(http.StatusAccepted)
	}
}

func selectResult(s SearchBox) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req selectRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.TaskID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "taskId is required"})
		}
		s.Select(req.TaskID)
		return c.JSON(http.StatusOK, searchBoxSnapshot(s))
	}
}

func getNotifications(n Notifications) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, n.List())
	}
}

func dismissNotification(n Notifications) echo.HandlerFunc {
	return func(c echo.Context) error {
		n.Dismiss(c.Param("id"))
		return c.NoContent(http.StatusNoContent)
	}
}
