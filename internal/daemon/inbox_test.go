package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
	"deckhand/internal/testsupport"
)

func newInboxFixture(t *testing.T) (*inboxWatcher, *queue.Store, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithInboxDir())
	store := testsupport.MustOpenStore(t, cfg)
	mgr := orchestrator.NewManager(func() *config.Config { return cfg }, store, stubWorkerDriver{}, logging.NewNop())
	w := newInboxWatcher(cfg, mgr, store, logging.NewNop())
	if w == nil {
		t.Fatal("expected an inbox watcher for a configured inbox")
	}
	w.settle = 50 * time.Millisecond
	t.Cleanup(w.Stop)
	return w, store, cfg
}

func dropFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("document body"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func waitForJobs(t *testing.T, store *queue.Store, want int) []*queue.Job {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		jobs, err := store.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(jobs) == want {
			return jobs
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d jobs, have %d", want, len(jobs))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestInboxWatcherQueuesDroppedFile(t *testing.T) {
	w, store, cfg := newInboxFixture(t)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	path := dropFile(t, cfg.Paths.InboxDir, "report.md")

	jobs := waitForJobs(t, store, 1)
	if jobs[0].PrimarySource != path {
		t.Fatalf("unexpected primary source %q", jobs[0].PrimarySource)
	}
	if jobs[0].Status != queue.StatusPending {
		t.Fatalf("unexpected status %s", jobs[0].Status)
	}
}

func TestInboxWatcherQueuesExistingFilesOnStart(t *testing.T) {
	w, store, cfg := newInboxFixture(t)

	path := dropFile(t, cfg.Paths.InboxDir, "backlog.pdf")

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	jobs := waitForJobs(t, store, 1)
	if jobs[0].PrimarySource != path {
		t.Fatalf("unexpected primary source %q", jobs[0].PrimarySource)
	}
}

func TestInboxWatcherSkipsAlreadyQueuedSources(t *testing.T) {
	w, store, cfg := newInboxFixture(t)

	path := dropFile(t, cfg.Paths.InboxDir, "known.md")
	testsupport.NewPendingJob(t, store, path)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(4 * w.settle)
	jobs := waitForJobs(t, store, 1)
	if jobs[0].PrimarySource != path {
		t.Fatalf("unexpected primary source %q", jobs[0].PrimarySource)
	}
}

func TestInboxWatcherIgnoresTemporaryFiles(t *testing.T) {
	w, store, cfg := newInboxFixture(t)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dropFile(t, cfg.Paths.InboxDir, ".partial-upload.md")
	dropFile(t, cfg.Paths.InboxDir, "draft.tmp")
	dropFile(t, cfg.Paths.InboxDir, "deck.crdownload")
	dropFile(t, cfg.Paths.InboxDir, "notes.md~")
	time.Sleep(4 * w.settle)
	waitForJobs(t, store, 0)

	// A regular document still goes through, so the watcher was alive
	// the whole time.
	path := dropFile(t, cfg.Paths.InboxDir, "real.md")
	jobs := waitForJobs(t, store, 1)
	if jobs[0].PrimarySource != path {
		t.Fatalf("unexpected primary source %q", jobs[0].PrimarySource)
	}
}

func TestInboxWatcherNilWhenUnconfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := orchestrator.NewManager(func() *config.Config { return cfg }, store, stubWorkerDriver{}, logging.NewNop())

	w := newInboxWatcher(cfg, mgr, store, logging.NewNop())
	if w != nil {
		t.Fatal("expected no watcher without an inbox directory")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("nil watcher Start: %v", err)
	}
	w.Stop()
}

func TestEligibleInboxName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"report.md", true},
		{"deck.pdf", true},
		{"Mixed Case Notes.docx", true},
		{".DS_Store", false},
		{".hidden.md", false},
		{"draft.tmp", false},
		{"slides.PART", false},
		{"deck.crdownload", false},
		{"notes.md~", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := eligibleInboxName(tc.name); got != tc.want {
			t.Errorf("eligibleInboxName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
