// Package bootstrap runs a finite job with a typed configuration, a
// configured logger and start/stop hooks.
//
// RunTask turns SIGINT/SIGTERM into cancellation of the task context and
// always runs the stop hooks afterwards, so telemetry is flushed even when
// the job is interrupted.
package bootstrap
