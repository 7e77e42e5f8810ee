// Package postgres stores task completion events in a PostgreSQL outbox
// table. It handles connection pooling, the embedded schema migrations and
// the mapping of driver errors onto package errors.
package postgres
