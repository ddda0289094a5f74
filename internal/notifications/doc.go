// Package notifications delivers job lifecycle events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Orchestrator code depends only on the Service interface, so
// alternative transports slot in without touching job handling.
package notifications
