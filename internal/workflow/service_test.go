package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/eskarasu/merge-videos/internal/queue"
	"github.com/eskarasu/merge-videos/internal/testsupport"
	"github.com/eskarasu/merge-videos/internal/workflow"
)

type fakeMerger struct {
	mu     sync.Mutex
	calls  [][]string
	output string
	err    error
}

func (m *fakeMerger) Merge(ctx context.Context, clipPaths []string, outputPath string) error {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), clipPaths...))
	m.output = outputPath
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("merged"), 0o644)
}

func (m *fakeMerger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type fakeQueue struct {
	mu        sync.Mutex
	tasks     []uuid.UUID
	err       error
	onEnqueue func()
}

func (q *fakeQueue) Enqueue(ownerID int64, jobID uuid.UUID) (string, error) {
	if q.onEnqueue != nil {
		q.onEnqueue()
	}
	if q.err != nil {
		return "", q.err
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, jobID)
	q.mu.Unlock()
	return uuid.NewString(), nil
}

type harness struct {
	store   *queue.Store
	service *workflow.Service
	merger  *fakeMerger
	queue   *fakeQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	merger := &fakeMerger{}
	q := &fakeQueue{}
	service, err := workflow.NewService(store, merger, q, cfg.Paths.MediaDir, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return &harness{store: store, service: service, merger: merger, queue: q}
}

func upload(name, content string) workflow.Upload {
	return workflow.Upload{Name: name, Content: strings.NewReader(content)}
}

func TestCreateJobPersistsClipsInOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 1, "Vacation", []workflow.Upload{
		upload("intro.mp4", "aaa"),
		upload("middle.mov", "bbb"),
		upload("outro.mkv", "ccc"),
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if len(job.Clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(job.Clips))
	}
	for i, want := range []string{"intro.mp4", "middle.mov", "outro.mkv"} {
		if job.Clips[i].Position != i+1 || job.Clips[i].OriginalName != want {
			t.Fatalf("clip %d unexpected: %#v", i, job.Clips[i])
		}
	}
}

func TestCreateJobDefaultsNameAndFilename(t *testing.T) {
	h := newHarness(t)

	job, err := h.service.CreateJob(context.Background(), 1, "   ", []workflow.Upload{
		upload("", "content"),
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.Name != queue.DefaultJobName {
		t.Fatalf("expected default name, got %q", job.Name)
	}
	if job.Clips[0].OriginalName != "clip_1.mp4" {
		t.Fatalf("expected generated filename, got %q", job.Clips[0].OriginalName)
	}
}

func TestCreateJobRejectsEmptyUploadSet(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.CreateJob(context.Background(), 1, "Empty", nil)
	if !errors.Is(err, workflow.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateJobRejectsUnsupportedExtensionBeforePersisting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.CreateJob(ctx, 1, "Bad", []workflow.Upload{
		upload("ok.mp4", "a"),
		upload("notes.txt", "b"),
	})
	if !errors.Is(err, workflow.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	jobs, err := h.service.ListJobs(ctx, 1)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("rejected upload must not persist a job, found %d", len(jobs))
	}
}

func TestEnqueueJobResetsToPendingAndSubmits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 1, "Retry Me", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := h.store.SetStatus(ctx, job.ID, queue.StatusFailed, "previous failure"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	token, err := h.service.EnqueueJob(ctx, 1, job.ID)
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a task token")
	}

	fetched, err := h.store.GetUserJob(ctx, 1, job.ID, false)
	if err != nil {
		t.Fatalf("GetUserJob failed: %v", err)
	}
	if fetched.Status != queue.StatusPending || fetched.ErrorMessage != "" {
		t.Fatalf("expected clean pending job, got %#v", fetched)
	}
	if len(h.queue.tasks) != 1 || h.queue.tasks[0] != job.ID {
		t.Fatalf("expected one queued task for job, got %v", h.queue.tasks)
	}
}

func TestEnqueueJobGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 1, "Guarded", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if err := h.store.SetStatus(ctx, job.ID, queue.StatusRunning, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if _, err := h.service.EnqueueJob(ctx, 1, job.ID); !errors.Is(err, workflow.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for running job, got %v", err)
	}

	if err := h.store.SetOutputFile(ctx, job.ID, queue.OutputStoragePath(1, job.ID)); err != nil {
		t.Fatalf("SetOutputFile failed: %v", err)
	}
	if err := h.store.SetStatus(ctx, job.ID, queue.StatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if _, err := h.service.EnqueueJob(ctx, 1, job.ID); !errors.Is(err, workflow.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for completed job, got %v", err)
	}
}

func TestEnqueueJobCompletedWithoutOutputIsRetryable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 1, "Odd State", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := h.store.SetStatus(ctx, job.ID, queue.StatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	if _, err := h.service.EnqueueJob(ctx, 1, job.ID); err != nil {
		t.Fatalf("completed job without output should be retryable: %v", err)
	}
}

func TestEnqueueJobUnknownJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.EnqueueJob(context.Background(), 1, uuid.New())
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnqueueJobTransportFailureMarksFailed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 1, "Doomed", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	queueErr := errors.New("broker unavailable")
	h.queue.err = queueErr
	if _, err := h.service.EnqueueJob(ctx, 1, job.ID); !errors.Is(err, queueErr) {
		t.Fatalf("expected transport error to propagate, got %v", err)
	}

	fetched, err := h.store.GetUserJob(ctx, 1, job.ID, false)
	if err != nil {
		t.Fatalf("GetUserJob failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed || fetched.ErrorMessage != "broker unavailable" {
		t.Fatalf("expected failed job with transport message, got %#v", fetched)
	}
}

func TestProcessJobCompletesAndRecordsOutput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 2, "Merge", []workflow.Upload{
		upload("one.mp4", "1"),
		upload("two.mp4", "2"),
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	processed, err := h.service.ProcessJob(ctx, 2, job.ID)
	if err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}
	if processed.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", processed.Status)
	}
	if !processed.HasOutput() {
		t.Fatal("completed job must expose an output")
	}
	if processed.OutputFile != queue.OutputStoragePath(2, job.ID) {
		t.Fatalf("unexpected output path: %s", processed.OutputFile)
	}

	if h.merger.callCount() != 1 {
		t.Fatalf("expected one merge invocation, got %d", h.merger.callCount())
	}
	paths := h.merger.calls[0]
	if len(paths) != 2 {
		t.Fatalf("expected 2 clip paths, got %d", len(paths))
	}
	if !strings.Contains(paths[0], "0001_one.mp4") || !strings.Contains(paths[1], "0002_two.mp4") {
		t.Fatalf("clips not merged in position order: %v", paths)
	}
	if _, err := os.Stat(h.merger.output); err != nil {
		t.Fatalf("expected merged output on disk: %v", err)
	}
}

func TestProcessJobMergeFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 2, "Broken", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	h.merger.err = errors.New("codec mismatch")
	if _, err := h.service.ProcessJob(ctx, 2, job.ID); err == nil || !strings.Contains(err.Error(), "codec mismatch") {
		t.Fatalf("expected merge error to propagate, got %v", err)
	}

	fetched, err := h.store.GetUserJob(ctx, 2, job.ID, false)
	if err != nil {
		t.Fatalf("GetUserJob failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", fetched.Status)
	}
	if fetched.ErrorMessage != "codec mismatch" {
		t.Fatalf("expected recorded merge error, got %q", fetched.ErrorMessage)
	}
	if fetched.HasOutput() {
		t.Fatal("failed job must not expose an output")
	}
}

type cancellingMerger struct {
	cancel context.CancelFunc
}

func (m *cancellingMerger) Merge(ctx context.Context, clipPaths []string, outputPath string) error {
	// Simulates a daemon shutdown killing the external tool mid-merge.
	m.cancel()
	return fmt.Errorf("ffmpeg execution failed: %v", ctx.Err())
}

func TestProcessJobCancelledMidMergeStillLandsFailed(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := h.service.CreateJob(ctx, 2, "Interrupted", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	merger := &cancellingMerger{cancel: cancel}
	service, err := workflow.NewService(h.store, merger, h.queue, h.store.MediaRoot(), nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := service.ProcessJob(ctx, 2, job.ID); err == nil {
		t.Fatal("expected merge error to propagate")
	}

	fetched, err := h.store.GetUserJob(context.Background(), 2, job.ID, false)
	if err != nil {
		t.Fatalf("GetUserJob failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("job must not stay running after cancellation, got %s", fetched.Status)
	}
	if fetched.ErrorMessage == "" {
		t.Fatal("expected recorded failure message")
	}

	// The failed job remains retryable.
	if _, err := h.service.EnqueueJob(context.Background(), 2, job.ID); err != nil {
		t.Fatalf("failed job should re-enqueue after cancellation: %v", err)
	}
}

func TestEnqueueJobCancelledTransportFailureRecorded(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := h.service.CreateJob(ctx, 1, "Shutdown Race", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	queueErr := errors.New("job queue unavailable")
	h.queue.err = queueErr
	h.queue.onEnqueue = cancel

	if _, err := h.service.EnqueueJob(ctx, 1, job.ID); !errors.Is(err, queueErr) {
		t.Fatalf("expected transport error, got %v", err)
	}

	fetched, err := h.store.GetUserJob(context.Background(), 1, job.ID, false)
	if err != nil {
		t.Fatalf("GetUserJob failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed || fetched.ErrorMessage != "job queue unavailable" {
		t.Fatalf("expected recorded transport failure, got %#v", fetched)
	}
}

func TestProcessJobWithoutClipsFailsWithoutMerging(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, h.store, 2, "No Clips")

	_, err := h.service.ProcessJob(ctx, 2, job.ID)
	if !errors.Is(err, workflow.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if h.merger.callCount() != 0 {
		t.Fatal("merger must not run for an empty job")
	}

	fetched, err := h.store.GetUserJob(ctx, 2, job.ID, false)
	if err != nil {
		t.Fatalf("GetUserJob failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed || fetched.ErrorMessage != "no clips available to merge" {
		t.Fatalf("unexpected empty-job outcome: %#v", fetched)
	}
}

func TestProcessJobUnknownJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.ProcessJob(context.Background(), 2, uuid.New())
	if !errors.Is(err, workflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetJobScopesToOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.service.CreateJob(ctx, 1, "Mine", []workflow.Upload{upload("a.mp4", "a")})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	other, err := h.service.GetJob(ctx, 99, job.ID, false)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if other != nil {
		t.Fatal("expected nil for another owner's job")
	}
}
