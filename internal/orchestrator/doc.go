// Package orchestrator schedules queued jobs onto worker processes.
//
// The Manager watches the queue, admits pending jobs up to the configured
// concurrency cap and runs each one through the worker binary: optional
// credential preflight, document upload and generation, artifact download
// and validation. Results are written back to the queue store and announced
// through the event hub and the notification service.
//
// On start the Manager first resolves jobs a previous session left in the
// restoring state: it asks the remote service what survived and either
// downloads the finished artifact, resumes watching a still-running
// generation, requeues the job for a fresh run, or records the remote
// failure. Recovered jobs occupy capacity unconditionally, so a restart can
// briefly run more jobs than the cap allows; new admissions wait until
// occupancy drains below the limit.
//
// Submission, removal and clearing are exposed here as well so every surface
// (CLI over IPC, HTTP API, inbox watcher) mutates the queue through one
// place that keeps capacity accounting honest.
package orchestrator
