package queue_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/eskarasu/merge-videos/internal/queue"
)

func TestParseStatus(t *testing.T) {
	for _, status := range queue.AllStatuses() {
		parsed, ok := queue.ParseStatus(strings.ToUpper(string(status)))
		if !ok || parsed != status {
			t.Fatalf("expected %s to round-trip, got %s ok=%v", status, parsed, ok)
		}
	}

	if _, ok := queue.ParseStatus("archived"); ok {
		t.Fatal("unknown status must not parse")
	}
	if _, ok := queue.ParseStatus(""); ok {
		t.Fatal("empty status must not parse")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if queue.StatusPending.IsTerminal() || queue.StatusRunning.IsTerminal() {
		t.Fatal("pending and running are not terminal")
	}
	if !queue.StatusCompleted.IsTerminal() || !queue.StatusFailed.IsTerminal() {
		t.Fatal("completed and failed are terminal")
	}
}

func TestIsSupportedExtension(t *testing.T) {
	for _, ext := range []string{".mp4", ".MOV", " .mkv ", ".webm"} {
		if !queue.IsSupportedExtension(ext) {
			t.Fatalf("expected %q to be supported", ext)
		}
	}
	for _, ext := range []string{".txt", ".wav", "", "mp4"} {
		if queue.IsSupportedExtension(ext) {
			t.Fatalf("expected %q to be rejected", ext)
		}
	}
}

func TestClipStoragePath(t *testing.T) {
	jobID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	got := queue.ClipStoragePath(9, jobID, 3, "my holiday clip.MP4")
	want := "uploads/user_9/job_aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee/clips/0003_my_holiday_clip.mp4"
	if got != want {
		t.Fatalf("unexpected clip path:\n got %s\nwant %s", got, want)
	}

	// A bare extension upload still yields a usable stem.
	got = queue.ClipStoragePath(9, jobID, 1, ".mp4")
	if !strings.HasSuffix(got, "0001_clip.mp4") {
		t.Fatalf("expected fallback stem, got %s", got)
	}
}

func TestOutputStoragePath(t *testing.T) {
	jobID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	got := queue.OutputStoragePath(4, jobID)
	want := "merged_outputs/user_4/aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee.mp4"
	if got != want {
		t.Fatalf("unexpected output path: %s", got)
	}
}

func TestJobHasOutput(t *testing.T) {
	job := queue.Job{}
	if job.HasOutput() {
		t.Fatal("empty output must not count")
	}
	job.OutputFile = "   "
	if job.HasOutput() {
		t.Fatal("blank output must not count")
	}
	job.OutputFile = "merged_outputs/user_1/x.mp4"
	if !job.HasOutput() {
		t.Fatal("expected HasOutput for recorded file")
	}
}
