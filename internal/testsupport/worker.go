package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteWorkerStub writes an executable shell script that stands in for the
// worker binary and returns its absolute path. The body receives the worker
// command line unchanged, so stubs can branch on $1 (check-auth, process,
// find-workspace, check-status, download, login) and emit protocol lines.
func WriteWorkerStub(t testing.TB, dir, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	target := filepath.Join(dir, "deckhand-worker")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write worker stub: %v", err)
	}
	return target
}
