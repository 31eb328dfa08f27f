package testsupport

import (
	"context"
	"strings"
	"testing"

	"github.com/eskarasu/merge-videos/internal/config"
	"github.com/eskarasu/merge-videos/internal/notify"
	"github.com/eskarasu/merge-videos/internal/queue"
)

// MustOpenStore opens a queue.Store with notifications discarded and
// registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	return MustOpenStoreWithPublisher(t, cfg, notify.Noop{})
}

// MustOpenStoreWithPublisher opens a queue.Store using the provided
// publisher and registers cleanup.
func MustOpenStoreWithPublisher(t testing.TB, cfg *config.Config, publisher notify.Publisher) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, publisher)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, ownerID int64, name string) *queue.Job {
	t.Helper()

	job, err := store.CreateJob(context.Background(), ownerID, name)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}

// AddClip attaches a clip with inline content for tests.
func AddClip(t testing.TB, store *queue.Store, job *queue.Job, position int, name, content string) *queue.Clip {
	t.Helper()

	clip, err := store.AddClip(context.Background(), job.ID, strings.NewReader(content), position, name)
	if err != nil {
		t.Fatalf("store.AddClip: %v", err)
	}
	return clip
}
