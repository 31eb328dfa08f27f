// Package api exposes the merge-job use cases over HTTP: multipart job
// creation, listing, detail, retry, output download, and a websocket
// stream of job-status updates.
//
// Requests carry the calling user's identifier in the X-User-ID header
// (or user_id query parameter for websocket clients). Authentication is
// out of scope; the identifier stands in for the session an upstream
// proxy would establish. Ownership checks themselves live below the
// API, in the repository.
package api
