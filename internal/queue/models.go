package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a merge job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultJobName is assigned when a job is created with a blank display name.
const DefaultJobName = "Video Merge"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// SupportedExtensions is the allow-list of input container extensions
// accepted at job creation. Keys are lowercase and include the dot.
var SupportedExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".avi":  {},
	".webm": {},
	".m4v":  {},
}

// IsSupportedExtension reports whether ext names an accepted video container.
func IsSupportedExtension(ext string) bool {
	_, ok := SupportedExtensions[strings.ToLower(strings.TrimSpace(ext))]
	return ok
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is an end state of a merge attempt.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one user-initiated request to merge an ordered set of clips
// into a single output file.
type Job struct {
	ID           uuid.UUID
	OwnerID      int64
	Name         string
	Status       Status
	OutputFile   string // media-root-relative; empty until a merge has completed
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Clips        []Clip
}

// HasOutput reports whether a merged output has been recorded for the job.
func (j Job) HasOutput() bool {
	return strings.TrimSpace(j.OutputFile) != ""
}

// IsFinished reports whether the job reached a terminal state.
func (j Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// Clip is one input video file with a fixed position in its job's merge order.
// Clips are immutable once created; positions form a dense 1..N sequence
// matching upload order.
type Clip struct {
	ID           int64
	JobID        uuid.UUID
	Position     int
	OriginalName string
	FilePath     string // absolute path of the stored upload
	CreatedAt    time.Time
}
