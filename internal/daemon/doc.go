// Package daemon coordinates the long-running merge service process.
//
// It wires configuration, job storage, the worker dispatcher, the update
// hub, and the HTTP API into a single lifecycle with flock-based locking
// to prevent multiple instances.
//
// Keep orchestration logic here: job semantics live in workflow, storage
// in queue, and transport in api. The daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
