// Package testutils provides helpers shared by tests across the module.
//
// It centralizes environment handling so that unit tests can isolate
// themselves from the developer's shell and integration tests can skip
// cleanly when their backing service is not configured.
package testutils
