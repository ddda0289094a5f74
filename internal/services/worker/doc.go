// Package worker drives the external worker binary that automates the
// remote slide-generation service.
//
// Each command spawns one short-lived OS process. The worker speaks
// newline-delimited JSON on stdout; every line is forwarded to the caller's
// event callback and the last parsed object stands as the command's result.
// Non-JSON stdout is ignored, and stderr is drained into a bounded tail kept
// for diagnostics. Methods return an error only for failures to launch, a
// silent exit, or a blown time budget; errors the worker reports travel in
// the Response error field, preserving the worker's wording.
package worker
