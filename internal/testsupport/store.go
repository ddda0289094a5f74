package testsupport

import (
	"context"
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewPendingJob appends a pending job for the given source document.
func NewPendingJob(t testing.TB, store *queue.Store, primarySource string) *queue.Job {
	t.Helper()

	job, err := store.Add(context.Background(), queue.NewJob(primarySource))
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return job
}
