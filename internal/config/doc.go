// Package config loads, normalizes, and validates Deckhand configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from the standard per-user location. The
// Config type centralizes every knob the daemon and CLI need: data and output
// directories, worker binary and timeouts, the queue concurrency cap, and
// notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors. The
// concurrency cap is clamped, not rejected, because the daemon rereads it
// while running.
package config
