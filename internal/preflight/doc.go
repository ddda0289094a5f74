// Package preflight provides readiness checks for the external pieces
// Deckhand depends on: the worker binary, filesystem paths, and stored
// worker credentials.
//
// These checks run in two contexts:
//   - The daemon evaluates RunAll at startup and on every status request so
//     clients see why jobs would fail before any job is admitted.
//   - The CLI "deckhand status" command renders the same results when the
//     daemon is offline, using only the local configuration.
//
// Checks are gated by configuration -- unset optional paths are skipped.
package preflight
