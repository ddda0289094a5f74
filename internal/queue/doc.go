// Package queue holds job state for the daemon and persists it across
// restarts.
//
// The Store keeps an ordered in-memory list of jobs and rewrites a JSON
// snapshot of the non-terminal ones after every mutation, so a restart can
// restore in-flight work. Jobs persisted as processing come back as
// restoring and are reconciled against the remote service before normal
// scheduling resumes. Snapshot writes are atomic (temp file + rename) and
// their failures are logged but never fail the mutation: durability
// degrades, the session continues.
//
// The Hub fans lifecycle events (queued, started, completed, ...) out to
// subscribers such as the websocket feed and the notifier without letting a
// slow consumer block the scheduler.
package queue
