// Package task runs deferred units of work off the request path.
//
// An Engine owns a bounded or unbounded TaskQueue and a WorkerPool of
// MaxConcurrentWorkers goroutines. Callers hand work to Enqueue and get back a
// Future that always resolves: with the work's value, with its error, or with
// one of the engine's own failures (dropped, canceled, aborted at shutdown).
// Full-queue behavior is chosen per engine: wait for space, drop the oldest
// queued item, or reject the new one. The host process owns the engine's
// lifecycle through Start and Stop.
//
// KeyedEngine layers sequential-per-key execution on top by routing each key
// to its own single-worker engine.
package task
