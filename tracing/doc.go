// Package tracing is a thin wrapper around OpenTelemetry tracing so the rest
// of the code-base can start and end spans without importing the upstream
// packages directly.  Applications that do not need tracing can skip Init;
// spans become no-ops.
package tracing
