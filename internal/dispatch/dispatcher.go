package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrUnavailable indicates the queue cannot accept work right now:
// the dispatcher is stopped or its buffer is full.
var ErrUnavailable = errors.New("job queue unavailable")

// ProcessFunc executes one job on a worker. Errors are logged so the
// scheduler side observes failures; the job's own status has already
// been settled by the workflow layer at that point.
type ProcessFunc func(ctx context.Context, ownerID int64, jobID uuid.UUID) error

type task struct {
	token   string
	ownerID int64
	jobID   uuid.UUID
}

// Dispatcher runs a fixed-size worker pool over a buffered task queue.
type Dispatcher struct {
	logger   *slog.Logger
	workers  int
	capacity int

	mu      sync.Mutex
	tasks   chan task
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New constructs a dispatcher; Start must be called before Enqueue
// will accept work.
func New(logger *slog.Logger, workers, capacity int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 2
	}
	if capacity <= 0 {
		capacity = 64
	}
	return &Dispatcher{logger: logger, workers: workers, capacity: capacity}
}

// Start launches the worker pool. process is invoked once per dequeued
// task until Stop is called or ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context, process ProcessFunc) error {
	if process == nil {
		return errors.New("dispatch requires a process function")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("dispatcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.tasks = make(chan task, d.capacity)
	d.running.Store(true)

	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.runWorker(runCtx, process)
	}
	return nil
}

// Enqueue submits a job for asynchronous processing and returns an
// opaque task token. It never blocks on execution.
func (d *Dispatcher) Enqueue(ownerID int64, jobID uuid.UUID) (string, error) {
	// Hold the lock so Stop cannot close the channel mid-send.
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return "", ErrUnavailable
	}

	t := task{token: uuid.NewString(), ownerID: ownerID, jobID: jobID}
	select {
	case d.tasks <- t:
		return t.token, nil
	default:
		return "", ErrUnavailable
	}
}

// Stop terminates the worker pool and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return
	}
	d.running.Store(false)
	cancel := d.cancel
	d.cancel = nil
	close(d.tasks)
	d.mu.Unlock()

	d.wg.Wait()
	if cancel != nil {
		cancel()
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, process ProcessFunc) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-d.tasks:
			if !ok {
				return
			}
			logger := d.logger.With("task", t.token, "job_id", t.jobID.String(), "owner_id", t.ownerID)
			logger.Info("processing merge job")
			if err := process(ctx, t.ownerID, t.jobID); err != nil {
				logger.Error("merge job failed", "error", err)
				continue
			}
			logger.Info("merge job processed")
		}
	}
}
