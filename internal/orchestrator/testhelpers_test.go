package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
	"deckhand/internal/services/worker"
	"deckhand/internal/testsupport"
)

// stubDriver satisfies worker.Driver with per-method hooks. Calls are
// recorded under the mutex so tests can assert ordering.
type stubDriver struct {
	mu sync.Mutex

	authFn    func(ctx context.Context) (*worker.Response, error)
	authCalls int

	processFn    func(ctx context.Context, req worker.ProcessRequest, onEvent func(worker.Response)) (*worker.Response, error)
	processCalls []worker.ProcessRequest

	findFn    func(ctx context.Context, jobID string) (*worker.Response, error)
	findCalls []string

	statusFn    func(ctx context.Context, workspaceID, taskID string) (*worker.Response, error)
	statusCalls int

	downloadFn    func(ctx context.Context, workspaceID, outputDir, nameStem, artifactID string) (*worker.Response, error)
	downloadCalls []downloadCall

	loginFn func(ctx context.Context, onEvent func(worker.Response)) (*worker.Response, error)
}

type downloadCall struct {
	workspaceID string
	outputDir   string
	nameStem    string
	artifactID  string
}

func boolPtr(v bool) *bool { return &v }

func (d *stubDriver) CheckAuth(ctx context.Context) (*worker.Response, error) {
	d.mu.Lock()
	d.authCalls++
	fn := d.authFn
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return &worker.Response{Authenticated: boolPtr(true)}, nil
}

func (d *stubDriver) Process(ctx context.Context, req worker.ProcessRequest, onEvent func(worker.Response)) (*worker.Response, error) {
	d.mu.Lock()
	d.processCalls = append(d.processCalls, req)
	fn := d.processFn
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx, req, onEvent)
	}
	return &worker.Response{Status: worker.GenerationCompleted}, nil
}

func (d *stubDriver) FindWorkspace(ctx context.Context, jobID string) (*worker.Response, error) {
	d.mu.Lock()
	d.findCalls = append(d.findCalls, jobID)
	fn := d.findFn
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx, jobID)
	}
	return &worker.Response{}, nil
}

func (d *stubDriver) CheckStatus(ctx context.Context, workspaceID, taskID string) (*worker.Response, error) {
	d.mu.Lock()
	d.statusCalls++
	fn := d.statusFn
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx, workspaceID, taskID)
	}
	return &worker.Response{GenerationStatus: worker.GenerationProcessing}, nil
}

func (d *stubDriver) Download(ctx context.Context, workspaceID, outputDir, nameStem, artifactID string) (*worker.Response, error) {
	d.mu.Lock()
	d.downloadCalls = append(d.downloadCalls, downloadCall{workspaceID, outputDir, nameStem, artifactID})
	fn := d.downloadFn
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx, workspaceID, outputDir, nameStem, artifactID)
	}
	return &worker.Response{}, nil
}

func (d *stubDriver) Login(ctx context.Context, onEvent func(worker.Response)) (*worker.Response, error) {
	d.mu.Lock()
	fn := d.loginFn
	d.mu.Unlock()
	if fn != nil {
		return fn(ctx, onEvent)
	}
	return &worker.Response{Authenticated: boolPtr(true)}, nil
}

func (d *stubDriver) processed() []worker.ProcessRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]worker.ProcessRequest(nil), d.processCalls...)
}

func (d *stubDriver) downloads() []downloadCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]downloadCall(nil), d.downloadCalls...)
}

func (d *stubDriver) authChecks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authCalls
}

func (d *stubDriver) statusChecks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusCalls
}

// completingProcess returns a Process hook that drops a valid PDF into the
// requested output directory and reports it as the final result.
func completingProcess(t testing.TB) func(context.Context, worker.ProcessRequest, func(worker.Response)) (*worker.Response, error) {
	return func(_ context.Context, req worker.ProcessRequest, _ func(worker.Response)) (*worker.Response, error) {
		out := filepath.Join(req.OutputDir, req.JobID+".pdf")
		testsupport.WriteSamplePDF(t, out)
		return &worker.Response{Status: worker.GenerationCompleted, OutputPath: out}, nil
	}
}

type stubCreds struct {
	fresh  bool
	reason string
}

func (s *stubCreds) Fresh(context.Context) (bool, string) { return s.fresh, s.reason }

func (s *stubCreds) Clear(context.Context) error { return nil }

type recordingNotifier struct {
	mu        sync.Mutex
	completes []string
	failures  []string
	authAsks  []string
	tests     int
}

func (n *recordingNotifier) NotifyJobComplete(_ context.Context, fileName, outputPath string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completes = append(n.completes, fileName)
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(_ context.Context, fileName, errMsg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, errMsg)
	return nil
}

func (n *recordingNotifier) NotifyAuthRequired(_ context.Context, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.authAsks = append(n.authAsks, reason)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tests++
	return nil
}

func (n *recordingNotifier) completed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.completes...)
}

func (n *recordingNotifier) failed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failures...)
}

func (n *recordingNotifier) authRequests() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.authAsks...)
}

func startManager(t *testing.T, cfg *config.Config, store *queue.Store, driver worker.Driver, opts ...orchestrator.Option) *orchestrator.Manager {
	t.Helper()

	mgr := orchestrator.NewManager(func() *config.Config { return cfg }, store, driver, logging.NewNop(), opts...)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

// sourceFile drops a small document into dir and returns its path.
func sourceFile(t testing.TB, dir, name string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("source document"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

// seedRestoringJob persists a job as a previous session would have left it.
func seedRestoringJob(t *testing.T, store *queue.Store, source, workspaceID string) *queue.Job {
	t.Helper()

	job := queue.NewJob(source)
	job.Status = queue.StatusRestoring
	job.WorkspaceID = workspaceID
	stored, err := store.Add(context.Background(), job)
	if err != nil {
		t.Fatalf("seed restoring job: %v", err)
	}
	return stored
}

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()

	ctx := context.Background()
	deadline := time.After(15 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %s to reach %s", id, want)
		default:
		}
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}
