// Package dispatch schedules merge-job processing on a background
// worker pool, decoupling request handling from job execution.
//
// Enqueue is fire-and-forget: it hands the job reference to the pool
// and returns an opaque task token without waiting for execution. When
// the pool is stopped or saturated it reports ErrUnavailable instead of
// blocking. Delivery is at-least-once; callers guard re-processing at
// the enqueue boundary, not here.
package dispatch
