package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eskarasu/merge-videos/internal/queue"
)

// EnqueueJob submits an owner's job for asynchronous processing and
// returns the queue's task token.
//
// A running job cannot be enqueued again, and neither can a completed
// job that already has an output; both are user errors, not silent
// re-runs. Any other state is forced back to pending (clearing a prior
// failure's message) before submission, which is how retries work. If
// the queue transport cannot accept the job, the job is rolled forward
// to failed with the transport's message and the original error is
// returned.
func (s *Service) EnqueueJob(ctx context.Context, ownerID int64, jobID uuid.UUID) (string, error) {
	job, err := s.repo.GetUserJob(ctx, ownerID, jobID, false)
	if err != nil {
		return "", err
	}
	if job == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	switch {
	case job.Status == queue.StatusRunning:
		return "", fmt.Errorf("%w: job is already processing", ErrInvalidInput)
	case job.Status == queue.StatusCompleted && job.HasOutput():
		return "", fmt.Errorf("%w: job is already completed", ErrInvalidInput)
	}

	if err := s.repo.SetStatus(ctx, jobID, queue.StatusPending, ""); err != nil {
		return "", fmt.Errorf("reset job to pending: %w", err)
	}

	token, err := s.queue.Enqueue(ownerID, jobID)
	if err != nil {
		// Recorded on a cancellation-proof context so a shutdown racing
		// the enqueue still leaves the job queryable as failed.
		if setErr := s.repo.SetStatus(context.WithoutCancel(ctx), jobID, queue.StatusFailed, err.Error()); setErr != nil {
			s.logger.Error("failed to record enqueue failure", "job_id", jobID.String(), "error", setErr)
		}
		return "", err
	}

	s.logger.Info("merge job enqueued", "job_id", jobID.String(), "owner_id", ownerID, "task", token)
	return token, nil
}
