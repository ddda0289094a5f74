// Package daemon coordinates the long-running Deckhand process and its
// outward surfaces.
//
// It wires configuration, the queue store, the orchestrator manager, the
// optional HTTP API, and the optional inbox watcher into a single lifecycle
// with flock-based locking to prevent multiple instances. The daemon exposes
// queue maintenance helpers for the IPC layer, aggregates preflight results
// into status reports, and owns the websocket event feed.
//
// Keep coordination logic here: job scheduling lives in the orchestrator
// package while the daemon focuses on startup, shutdown, and wiring.
package daemon
