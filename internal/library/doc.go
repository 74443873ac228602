// Package library persists audio item metadata in SQLite and owns the
// backing files those records reference.
//
// The Store is the single source of truth for both lifecycle tracks:
// uploaded clips (which hold a dense 1-based order and a content hash used
// for duplicate detection) and merge results (unordered, carrying their
// source ids and gain provenance). Deleting a record deletes its file.
//
// Every mutation runs inside one transaction so two concurrent requests can
// never interleave a read-modify-write; WAL journaling makes the collection
// crash-safe without snapshot-replace tricks.
package library
