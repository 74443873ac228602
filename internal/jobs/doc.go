// Package jobs provides the in-memory job registry and the bounded worker
// pool that executes background merges. The registry is the source of truth
// for job status, progress, and cooperative cancellation; the pool enforces
// the concurrency and queue limits configured for the daemon.
package jobs
