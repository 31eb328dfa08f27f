package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eskarasu/merge-videos/internal/dispatch"
	"github.com/eskarasu/merge-videos/internal/notify"
	"github.com/eskarasu/merge-videos/internal/workflow"
)

// Server hosts the HTTP API and the websocket update stream.
type Server struct {
	echo      *echo.Echo
	service   *workflow.Service
	hub       *notify.Hub
	mediaRoot string
	logger    *slog.Logger
}

// NewServer wires the routes onto a fresh echo instance.
func NewServer(service *workflow.Service, hub *notify.Hub, mediaRoot string, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("api requires the workflow service")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		service:   service,
		hub:       hub,
		mediaRoot: mediaRoot,
		logger:    logger,
	}

	e.POST("/api/jobs", s.createJob)
	e.GET("/api/jobs", s.listJobs)
	e.GET("/api/jobs/:id", s.getJob)
	e.POST("/api/jobs/:id/retry", s.retryJob)
	e.GET("/api/jobs/:id/download", s.downloadJob)
	e.GET("/ws/jobs", s.streamJobs)

	return s, nil
}

// Start begins serving on bind and blocks until shutdown.
func (s *Server) Start(bind string) error {
	return s.echo.Start(bind)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ownerID extracts the calling user's identifier from the X-User-ID
// header, falling back to the user_id query parameter.
func ownerID(c echo.Context) (int64, error) {
	raw := strings.TrimSpace(c.Request().Header.Get("X-User-ID"))
	if raw == "" {
		raw = strings.TrimSpace(c.QueryParam("user_id"))
	}
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "missing X-User-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid user identifier %q", raw))
	}
	return id, nil
}

// mapError converts workflow and transport errors into HTTP responses.
func mapError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
