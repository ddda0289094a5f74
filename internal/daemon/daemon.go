package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/preflight"
	"deckhand/internal/queue"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	manager *orchestrator.Manager
	hub     *queue.Hub

	lockPath string
	lock     *flock.Flock

	api   *apiServer
	inbox *inboxWatcher

	running atomic.Bool
	stopped chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Scheduler    orchestrator.StatusSummary
	AuthFresh    bool
	AuthDetail   string
	SnapshotPath string
	LockFilePath string
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies. The hub may be nil
// when no event consumers are wired.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, mgr *orchestrator.Manager, hub *queue.Hub) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, logger, and orchestrator manager")
	}

	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		manager:  mgr,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		stopped:  make(chan struct{}),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	d.inbox = newInboxWatcher(cfg, mgr, store, logger)
	return d, nil
}

// Start launches the orchestrator and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another deckhand daemon instance is already running")
	}

	// A restarted daemon needs a fresh stop signal.
	select {
	case <-d.stopped:
		d.stopped = make(chan struct{})
	default:
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.manager.Start(d.ctx); err != nil {
		d.rollbackStart()
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.manager.Stop()
		d.rollbackStart()
		return fmt.Errorf("start api server: %w", err)
	}
	if err := d.inbox.Start(d.ctx); err != nil {
		d.api.stop()
		d.manager.Stop()
		d.rollbackStart()
		return fmt.Errorf("start inbox watcher: %w", err)
	}

	d.logPreflight(d.ctx)

	d.running.Store(true)
	d.logger.Info("deckhand daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) rollbackStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	_ = d.lock.Unlock()
}

// logPreflight reports failed environment checks once at startup so operators
// see doomed configurations before the first job does.
func (d *Daemon) logPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed || result.Optional {
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "jobs will fail until this is resolved"))
	}
}

// Stop stops background processing and releases the daemon lock. The first
// call wins; concurrent callers return without waiting.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.inbox.Stop()
	d.api.stop()
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.logger.Info("deckhand daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
	close(d.stopped)
}

// Stopped is closed once Stop completes, letting the daemon process exit
// when shutdown was requested over IPC rather than by signal.
func (d *Daemon) Stopped() <-chan struct{} {
	return d.stopped
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.hub != nil {
		d.hub.Close()
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListQueue returns queue entries filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// GetQueueJob fetches a single queue entry by id. A missing id yields nil.
func (d *Daemon) GetQueueJob(ctx context.Context, id string) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// Submit validates and enqueues a new job.
func (d *Daemon) Submit(ctx context.Context, req orchestrator.SubmitRequest) (*queue.Job, error) {
	return d.manager.Submit(ctx, req)
}

// RemoveJob removes a job from the queue regardless of state.
func (d *Daemon) RemoveJob(ctx context.Context, id string) (bool, error) {
	return d.manager.Remove(ctx, id)
}

// ClearQueue removes all jobs.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.manager.ClearAll(ctx)
}

// ClearCompleted removes completed jobs.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.manager.ClearCompleted(ctx)
}

// ClearFailed removes failed jobs.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.manager.ClearFailed(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("queue store unavailable")
	}
	return d.store.Health(ctx)
}

// AuthStatus reports whether stored worker credentials look usable.
func (d *Daemon) AuthStatus(ctx context.Context) (bool, string) {
	return d.manager.CredentialStatus(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.manager.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.manager.Status(ctx)
	if err != nil {
		d.logger.Warn("scheduler status unavailable", logging.Error(err))
	}
	authFresh, authDetail := d.manager.CredentialStatus(ctx)

	checks := preflight.RunAll(ctx, d.cfg)
	snapshot := d.store.CheckSnapshot()
	checks = append(checks, snapshotCheck(snapshot))

	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Scheduler:    summary,
		AuthFresh:    authFresh,
		AuthDetail:   authDetail,
		SnapshotPath: snapshot.Path,
		LockFilePath: d.lockPath,
		Checks:       checks,
	}
}

func snapshotCheck(health queue.SnapshotHealth) preflight.Result {
	result := preflight.Result{
		Name:        "Queue snapshot",
		Description: "Durable queue state on disk",
	}
	if health.LastWriteError != "" {
		result.Detail = fmt.Sprintf("%s (write failing: %s)", health.Path, health.LastWriteError)
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("%s (%d jobs)", health.Path, health.Jobs)
	return result
}
