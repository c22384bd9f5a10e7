package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

var keepaliveInterval = 30 * time.Second

// stream pushes the board, notifications and search box to the renderer as
// server-sent events, re-sending a section whenever it changes.
func stream(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		boardCh, stopBoard := d.Board.Subscribe()
		defer stopBoard()
		notesCh, stopNotes := d.Notifications.Subscribe()
		defer stopNotes()
		searchCh, stopSearch := d.Search.Subscribe()
		defer stopSearch()
		busyCh, stopBusy := d.Busy.Subscribe()
		defer stopBusy()

		send := func(event string, v any) error {
			data, err := sonic.Marshal(v)
			if err != nil {
				return err
			}
			w := c.Response()
			for _, part := range [][]byte{[]byte("event: " + event + "\ndata: "), data, []byte("\n\n")} {
				if _, err := w.Write(part); err != nil {
					return err
				}
			}
			flusher.Flush()
			return nil
		}

		if err := send("board", d.Board.Snapshot()); err != nil {
			return nil
		}
		if err := send("notifications", d.Notifications.List()); err != nil {
			return nil
		}
		if err := send("search", searchBoxSnapshot(d.Search)); err != nil {
			return nil
		}

		ctx := c.Request().Context()
		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()
		for {
			var err error
			select {
			case <-ctx.Done():
				return nil
			case <-boardCh:
				err = send("board", d.Board.Snapshot())
			case <-busyCh:
				err = send("board", d.Board.Snapshot())
			case <-notesCh:
				err = send("notifications", d.Notifications.List())
			case <-searchCh:
				err = send("search", searchBoxSnapshot(d.Search))
			case <-ticker.C:
				if _, err = c.Response().Write([]byte(":keepalive\n\n")); err == nil {
					flusher.Flush()
				}
			}
			if err != nil {
				c.Logger().Error(err)
				return nil
			}
		}
	}
}
