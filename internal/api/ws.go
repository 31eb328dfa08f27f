package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkSameOrigin,
}

// checkSameOrigin rejects cross-origin browser upgrades. Requests
// without an Origin header (the CLI, tests, non-browser clients) are
// allowed through.
func checkSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// streamJobs upgrades the connection and forwards job status events for
// the calling user until the client disconnects.
func (s *Server) streamJobs(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	if s.hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "job updates are disabled")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := s.hub.Subscribe(owner)
	defer s.hub.Unsubscribe(sub)

	// Drain client frames so close messages are noticed promptly.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debug("websocket write failed", "user_id", owner, "error", err)
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return nil
			}
		case <-gone:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
