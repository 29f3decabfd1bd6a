// Package errors provides the structured error type shared by the pipeline,
// its collaborators and the command line tool. Every AppError carries a
// machine-readable code that tells callers which failure tier it belongs to:
// isolated per-item failures, fatal systemic failures, or configuration
// problems caught before a run starts.
package errors
