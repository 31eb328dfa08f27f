package workflow

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/eskarasu/merge-videos/internal/queue"
)

// Upload is one file submitted for merging, in submission order.
type Upload struct {
	Name    string
	Content io.Reader
}

// CreateJob validates the submitted files, persists a pending job, and
// attaches the clips with positions 1..N in submission order. Validation
// failures persist nothing.
func (s *Service) CreateJob(ctx context.Context, ownerID int64, name string, uploads []Upload) (*queue.Job, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: at least one video file must be uploaded", ErrInvalidInput)
	}

	jobName := strings.TrimSpace(name)
	if jobName == "" {
		jobName = queue.DefaultJobName
	}

	filenames := make([]string, len(uploads))
	for i, upload := range uploads {
		filename := strings.TrimSpace(upload.Name)
		if filename == "" {
			filename = fmt.Sprintf("clip_%d.mp4", i+1)
		}
		ext := strings.ToLower(path.Ext(filename))
		if !queue.IsSupportedExtension(ext) {
			return nil, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidInput, ext)
		}
		filenames[i] = filename
	}

	job, err := s.repo.CreateJob(ctx, ownerID, jobName)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	for i, upload := range uploads {
		if _, err := s.repo.AddClip(ctx, job.ID, upload.Content, i+1, filenames[i]); err != nil {
			return nil, fmt.Errorf("attach clip %d: %w", i+1, err)
		}
	}

	persisted, err := s.repo.GetUserJob(ctx, ownerID, job.ID, true)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, fmt.Errorf("%w: created job could not be read back", ErrNotFound)
	}

	s.logger.Info("merge job created",
		"job_id", persisted.ID.String(),
		"owner_id", ownerID,
		"clips", len(persisted.Clips),
	)
	return persisted, nil
}
