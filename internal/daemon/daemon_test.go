package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/daemon"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
	"deckhand/internal/services/worker"
	"deckhand/internal/testsupport"
)

// stubDriver answers every worker command with a benign default; daemon
// tests exercise lifecycle and wiring, not job handling.
type stubDriver struct{}

func (stubDriver) CheckAuth(context.Context) (*worker.Response, error) {
	ok := true
	return &worker.Response{Authenticated: &ok}, nil
}

func (stubDriver) Process(context.Context, worker.ProcessRequest, func(worker.Response)) (*worker.Response, error) {
	return &worker.Response{Status: worker.GenerationCompleted}, nil
}

func (stubDriver) FindWorkspace(context.Context, string) (*worker.Response, error) {
	return &worker.Response{}, nil
}

func (stubDriver) CheckStatus(context.Context, string, string) (*worker.Response, error) {
	return &worker.Response{GenerationStatus: worker.GenerationProcessing}, nil
}

func (stubDriver) Download(context.Context, string, string, string, string) (*worker.Response, error) {
	return &worker.Response{}, nil
}

func (stubDriver) Login(context.Context, func(worker.Response)) (*worker.Response, error) {
	return &worker.Response{}, nil
}

func newTestDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *queue.Store) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	hub := queue.NewHub(logging.NewNop())
	store.SetHub(hub)
	mgr := orchestrator.NewManager(func() *config.Config { return cfg }, store, stubDriver{}, logging.NewNop(),
		orchestrator.WithHub(hub))
	d, err := daemon.New(cfg, store, logging.NewNop(), mgr, hub)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d, store
}

func sourceFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("source document"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if !status.Scheduler.Running {
		t.Fatal("expected scheduler to report running")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, _ := newTestDaemon(t, cfg)
	err := second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance start to fail")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonStatusReportsEnvironment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)

	ctx := context.Background()
	testsupport.NewPendingJob(t, store, sourceFile(t, "notes.md"))

	status := d.Status(ctx)
	if status.Running {
		t.Fatal("daemon should not report running before Start")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("unexpected pid %d", status.PID)
	}
	if status.SnapshotPath != cfg.QueueSnapshotPath() {
		t.Fatalf("unexpected snapshot path %q", status.SnapshotPath)
	}
	if status.LockFilePath != cfg.LockFilePath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.Scheduler.Stats[queue.StatusPending] != 1 {
		t.Fatalf("unexpected scheduler stats: %+v", status.Scheduler.Stats)
	}

	found := false
	for _, check := range status.Checks {
		if check.Name != "Queue snapshot" {
			continue
		}
		found = true
		if !check.Passed {
			t.Fatalf("snapshot check failed: %s", check.Detail)
		}
	}
	if !found {
		t.Fatal("expected a queue snapshot check")
	}
}

func TestDaemonQueueAccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg)

	ctx := context.Background()
	source := sourceFile(t, "chapter.pdf")
	job, err := d.Submit(ctx, orchestrator.SubmitRequest{PrimarySource: source})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	jobs, err := d.ListQueue(ctx, nil)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}

	got, err := d.GetQueueJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetQueueJob: %v", err)
	}
	if got == nil || got.PrimarySource != source {
		t.Fatalf("unexpected job: %+v", got)
	}

	health, err := d.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if health.Total != 1 || health.Pending != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}

	removed, err := d.RemoveJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if !removed {
		t.Fatal("expected job to be removed")
	}

	cleared, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if cleared != 0 {
		t.Fatalf("expected empty queue, cleared %d", cleared)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg)

	ok, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if ok {
		t.Fatal("expected notification to be skipped without a topic")
	}
	if detail != "ntfy topic not configured" {
		t.Fatalf("unexpected detail %q", detail)
	}
}
