// Package api exposes the task engine over HTTP: liveness and readiness
// probes, Prometheus metrics, an engine statistics snapshot and a demo job
// endpoint. It translates HTTP concerns into engine operations and maps
// engine errors onto status codes.
package api
