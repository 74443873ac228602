// Package daemon wires the clip library, merge engine, and event hub into
// a single background process and serves the HTTP and websocket API.
//
// The daemon enforces single-instance execution with a lock file and owns
// the lifecycle of every long-running component: the SQLite-backed library
// store, the bounded merge worker pool, and the API server.
package daemon
