package workflow

import "errors"

// ErrInvalidInput indicates user input violated a business constraint:
// a bad extension, an empty upload set, or a disallowed re-enqueue.
// These are surfaced directly to the caller and never retried.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound indicates the job does not exist or is not owned by the
// caller. The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("job not found")
