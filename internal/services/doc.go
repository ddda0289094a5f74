// Package services defines shared utilities consumed by the orchestrator and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, worker command names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy (launch, protocol, silent, remote, timeout, persistence)
//     distinguishable with errors.Is.
//
// Use these helpers when wiring new orchestration logic so operational
// behaviour (error handling, observability) stays uniform across components.
package services
