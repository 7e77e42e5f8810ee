// Package logger provides structured logging functionality for the application
// using Go's standard library log/slog package.
//
// Setup builds the process logger from configuration. WithLogger and
// FromContext carry a request- or work-item-scoped logger through a context,
// so code deep in a call chain logs with the identifiers of the operation it
// serves.
package logger
