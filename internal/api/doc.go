// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue models into transport-friendly DTOs
// that dashboards and other consumers can render without coupling to internal
// types.
//
// # Key Types
//
// Job: transport representation of a queue entry with sources, remote
// workspace handle, and outcome fields.
//
// SchedulerStatus: orchestrator running state, capacity, and queue counts.
//
// DaemonStatus: aggregated runtime information including readiness checks.
//
// Event: queue lifecycle notification for the websocket feed.
//
// # Converters
//
// FromJob: queue.Job -> Job with formatted timestamps.
//
// FromStatusSummary: orchestrator.StatusSummary -> SchedulerStatus.
//
// FromEvent: queue.Event -> Event with the embedded job converted.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, queue.EventType) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds. The DTOs are deliberately
// decoupled from the snapshot schema so the on-disk queue format can evolve
// without breaking API consumers.
package api
