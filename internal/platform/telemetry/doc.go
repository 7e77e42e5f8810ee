// Package telemetry configures OpenTelemetry tracing for the process.
//
// The task engine starts one span per executed work item through the global
// tracer provider; SetupTracing decides whether those spans go anywhere.
package telemetry
