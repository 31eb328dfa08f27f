package queue

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ClipStoragePath returns the media-root-relative storage path for an
// uploaded clip, keyed by owner, job, and zero-padded position so that
// a directory listing reproduces the merge order.
func ClipStoragePath(ownerID int64, jobID uuid.UUID, position int, originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	stem := strings.TrimSuffix(path.Base(originalName), path.Ext(originalName))
	stem = strings.ReplaceAll(strings.TrimSpace(stem), " ", "_")
	if stem == "" {
		stem = "clip"
	}
	return path.Join(
		"uploads",
		fmt.Sprintf("user_%d", ownerID),
		fmt.Sprintf("job_%s", jobID),
		"clips",
		fmt.Sprintf("%04d_%s%s", position, stem, ext),
	)
}

// OutputStoragePath returns the media-root-relative path of a job's
// merged output file.
func OutputStoragePath(ownerID int64, jobID uuid.UUID) string {
	return path.Join("merged_outputs", fmt.Sprintf("user_%d", ownerID), jobID.String()+".mp4")
}

// DownloadPath returns the HTTP path clients use to retrieve a job's output.
func DownloadPath(jobID uuid.UUID) string {
	return "/api/jobs/" + jobID.String() + "/download"
}
