// Package workflow orchestrates the merge-job lifecycle: create,
// enqueue, process, and query.
//
// The Service owns the status state machine. Legal edges are
// pending → running → {completed, failed}, plus failed → pending and
// completed → pending through an explicit re-enqueue. Every other
// transition is rejected before it happens: enqueueing a running job or
// a completed job that already has an output is a user error, and a
// job with zero clips fails at processing time without ever reaching
// running.
//
// Storage, the concatenation engine, and the task queue are injected as
// capability interfaces so the state machine tests without real
// databases, tools, or brokers. A worker that dies between setting
// running and settling a terminal status leaves the job stuck in
// running; detecting that is an operational concern this package does
// not attempt to solve.
package workflow
