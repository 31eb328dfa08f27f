// Package queue persists merge jobs and their clips in SQLite and is the
// single source of truth for job lifecycle data.
//
// The Store is the concrete repository behind the workflow layer: job
// creation, clip attachment (with per-job write locking so concurrent
// uploads cannot collide on clip positions), owner-scoped lookups, and
// atomic status/output updates. Status updates publish a best-effort
// owner-keyed notification with a minimal job projection.
//
// The store has no opinion about which status transitions are legal;
// that state machine lives in the workflow package. A job left in
// "running" by a crashed worker is not detected or reclaimed here;
// there is no heartbeat or lease yet, which is a known operational gap.
package queue
