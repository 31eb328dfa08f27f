package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/eskarasu/merge-videos/internal/queue"
)

// ProcessJob executes the merge for an owner's job on a worker. The job
// moves to running, its clips are concatenated in position order, and
// the job settles as completed (with its output recorded first) or
// failed (with the executor's message). Executor errors propagate after
// the status is settled so the scheduler's own failure handling still
// sees them; the job is never left in running by this path.
//
// A job with no clips fails immediately without invoking the executor.
func (s *Service) ProcessJob(ctx context.Context, ownerID int64, jobID uuid.UUID) (*queue.Job, error) {
	job, err := s.repo.GetUserJob(ctx, ownerID, jobID, false)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	// Terminal statuses are settled on a context that survives worker
	// cancellation: a shutdown that kills the merge must still be able
	// to record the failure, or the job stays running forever and the
	// re-enqueue guard locks it out of retries.
	settleCtx := context.WithoutCancel(ctx)

	clips, err := s.repo.ListJobClips(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		const message = "no clips available to merge"
		if setErr := s.repo.SetStatus(settleCtx, jobID, queue.StatusFailed, message); setErr != nil {
			return nil, fmt.Errorf("record empty-job failure: %w", setErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, message)
	}

	if err := s.repo.SetStatus(ctx, jobID, queue.StatusRunning, ""); err != nil {
		return nil, fmt.Errorf("set job running: %w", err)
	}

	outputRel := queue.OutputStoragePath(ownerID, jobID)
	outputAbs := filepath.Join(s.mediaRoot, filepath.FromSlash(outputRel))

	clipPaths := make([]string, len(clips))
	for i, clip := range clips {
		clipPaths[i] = clip.FilePath
	}

	if err := s.merger.Merge(ctx, clipPaths, outputAbs); err != nil {
		if setErr := s.repo.SetStatus(settleCtx, jobID, queue.StatusFailed, err.Error()); setErr != nil {
			s.logger.Error("failed to record merge failure", "job_id", jobID.String(), "error", setErr)
		}
		return nil, err
	}

	// Output pointer first, then status, so a completed job always has
	// its output visible.
	if err := s.repo.SetOutputFile(settleCtx, jobID, outputRel); err != nil {
		return nil, fmt.Errorf("record output file: %w", err)
	}
	if err := s.repo.SetStatus(settleCtx, jobID, queue.StatusCompleted, ""); err != nil {
		return nil, fmt.Errorf("set job completed: %w", err)
	}

	completed, err := s.repo.GetUserJob(settleCtx, ownerID, jobID, true)
	if err != nil {
		return nil, err
	}
	if completed == nil {
		return nil, fmt.Errorf("%w: job vanished after completion", ErrNotFound)
	}

	s.logger.Info("merge job completed",
		"job_id", jobID.String(),
		"owner_id", ownerID,
		"output", outputRel,
	)
	return completed, nil
}
