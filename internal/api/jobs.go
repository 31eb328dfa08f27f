package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eskarasu/merge-videos/internal/queue"
	"github.com/eskarasu/merge-videos/internal/workflow"
)

type clipView struct {
	Position     int    `json:"position"`
	OriginalName string `json:"original_name"`
}

type jobView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	HasOutput    bool       `json:"has_output"`
	OutputURL    string     `json:"output_url"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Clips        []clipView `json:"clips,omitempty"`
}

type createResponse struct {
	Job    jobView `json:"job"`
	TaskID string  `json:"task_id"`
}

func newJobView(job *queue.Job) jobView {
	view := jobView{
		ID:           job.ID.String(),
		Name:         job.Name,
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
		HasOutput:    job.HasOutput(),
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
	if view.HasOutput {
		view.OutputURL = queue.DownloadPath(job.ID)
	}
	for _, clip := range job.Clips {
		view.Clips = append(view.Clips, clipView{Position: clip.Position, OriginalName: clip.OriginalName})
	}
	return view
}

func parseJobID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return id, nil
}

// createJob accepts a multipart upload (name field plus one or more
// "files" parts, in merge order), creates the job, and enqueues it.
func (s *Server) createJob(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form required")
	}
	files := form.File["files"]

	uploads := make([]workflow.Upload, 0, len(files))
	closers := make([]func() error, 0, len(files))
	defer func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}()
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload "+header.Filename)
		}
		closers = append(closers, file.Close)
		uploads = append(uploads, workflow.Upload{Name: header.Filename, Content: file})
	}

	ctx := c.Request().Context()
	job, err := s.service.CreateJob(ctx, owner, c.FormValue("name"), uploads)
	if err != nil {
		return mapError(err)
	}

	token, err := s.service.EnqueueJob(ctx, owner, job.ID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusAccepted, createResponse{Job: newJobView(job), TaskID: token})
}

func (s *Server) listJobs(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	jobs, err := s.service.ListJobs(c.Request().Context(), owner)
	if err != nil {
		return mapError(err)
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) getJob(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	jobID, err := parseJobID(c)
	if err != nil {
		return err
	}

	job, err := s.service.GetJob(c.Request().Context(), owner, jobID, true)
	if err != nil {
		return mapError(err)
	}
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return c.JSON(http.StatusOK, newJobView(job))
}

func (s *Server) retryJob(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	jobID, err := parseJobID(c)
	if err != nil {
		return err
	}

	token, err := s.service.EnqueueJob(c.Request().Context(), owner, jobID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"task_id": token})
}

func (s *Server) downloadJob(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	jobID, err := parseJobID(c)
	if err != nil {
		return err
	}

	job, err := s.service.GetJob(c.Request().Context(), owner, jobID, false)
	if err != nil {
		return mapError(err)
	}
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	if !job.HasOutput() {
		return echo.NewHTTPError(http.StatusNotFound, "no downloadable output for this job")
	}

	absolute := filepath.Join(s.mediaRoot, filepath.FromSlash(job.OutputFile))
	if _, err := os.Stat(absolute); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "output file missing on disk")
	}

	downloadName := strings.ReplaceAll(strings.TrimSpace(job.Name), " ", "_") + ".mp4"
	return c.Attachment(absolute, downloadName)
}
