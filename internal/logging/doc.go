// Package logging centralizes slog construction and the structured field
// conventions used across clipforge. Loggers write to stdout and the
// configured log file; context-derived fields (job_id, stage) keep worker
// and request logs correlated.
package logging
