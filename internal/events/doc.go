// Package events provides the completion events raised by background work and
// the interfaces used to route them.
//
// Work enqueued on a task engine can attach a callback that turns its result
// into an Event. The engine hands that event to an EventEmitter, which may be
// the in-process InMemoryEventEmitter, a message bus publisher or a database
// outbox. Handlers never learn which engine or work item produced an event
// beyond its SourceID.
package events
