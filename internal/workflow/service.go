package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/eskarasu/merge-videos/internal/queue"
)

// Repository is the persistence capability the lifecycle engine runs on.
// Implementations must scope job lookups to the requesting user and
// treat SetStatus on a vanished job as a silent no-op.
type Repository interface {
	CreateJob(ctx context.Context, ownerID int64, name string) (*queue.Job, error)
	AddClip(ctx context.Context, jobID uuid.UUID, content io.Reader, position int, originalName string) (*queue.Clip, error)
	GetUserJob(ctx context.Context, userID int64, jobID uuid.UUID, includeClips bool) (*queue.Job, error)
	ListUserJobs(ctx context.Context, userID int64) ([]*queue.Job, error)
	ListJobClips(ctx context.Context, jobID uuid.UUID) ([]*queue.Clip, error)
	SetStatus(ctx context.Context, jobID uuid.UUID, status queue.Status, errorMessage string) error
	SetOutputFile(ctx context.Context, jobID uuid.UUID, outputFile string) error
}

// Merger produces a single concatenated file from ordered input paths.
type Merger interface {
	Merge(ctx context.Context, clipPaths []string, outputPath string) error
}

// Queue schedules asynchronous execution of a job by identifier.
type Queue interface {
	Enqueue(ownerID int64, jobID uuid.UUID) (string, error)
}

// Service wires the capabilities into the merge-job use cases. Construct
// it once at process start and share it between the request path and the
// worker pool.
type Service struct {
	repo      Repository
	merger    Merger
	queue     Queue
	mediaRoot string
	logger    *slog.Logger
}

// NewService constructs the use-case layer. mediaRoot is the directory
// merged outputs are written under.
func NewService(repo Repository, merger Merger, q Queue, mediaRoot string, logger *slog.Logger) (*Service, error) {
	if repo == nil || merger == nil || q == nil {
		return nil, errors.New("workflow requires repository, merger, and queue")
	}
	if mediaRoot == "" {
		return nil, errors.New("workflow requires a media root")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		merger:    merger,
		queue:     q,
		mediaRoot: mediaRoot,
		logger:    logger,
	}, nil
}

// ListJobs returns userID's jobs, newest first, clips omitted.
func (s *Service) ListJobs(ctx context.Context, userID int64) ([]*queue.Job, error) {
	return s.repo.ListUserJobs(ctx, userID)
}

// GetJob returns one of userID's jobs, or nil when it does not exist or
// belongs to someone else.
func (s *Service) GetJob(ctx context.Context, userID int64, jobID uuid.UUID, includeClips bool) (*queue.Job, error) {
	return s.repo.GetUserJob(ctx, userID, jobID, includeClips)
}
