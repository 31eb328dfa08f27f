// Package notify pushes job-status updates to subscribed clients.
//
// The Hub is a bounded, error-absorbing side channel: publishers never
// block and never fail, events are drained by a single goroutine and
// fanned out to every subscriber registered under the owning user, so
// one connection sees updates for all of that user's jobs. When the
// buffer or a subscriber falls behind, events are dropped rather than
// stalling a status transition.
package notify
