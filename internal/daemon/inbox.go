package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
)

// Browsers and copy tools write through temp names; those never become jobs.
var inboxIgnoredSuffixes = []string{".part", ".partial", ".tmp", ".crdownload", ".download"}

// inboxWatcher submits documents dropped into the configured inbox directory,
// the daemon analog of drag-and-drop submission. Events are debounced so a
// file still being copied settles before it is queued.
type inboxWatcher struct {
	dir     string
	logger  *slog.Logger
	manager *orchestrator.Manager
	store   *queue.Store

	settle time.Duration

	mu      sync.Mutex
	running bool
	seen    map[string]struct{}

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newInboxWatcher(cfg *config.Config, mgr *orchestrator.Manager, store *queue.Store, logger *slog.Logger) *inboxWatcher {
	if cfg == nil || mgr == nil {
		return nil
	}
	dir := strings.TrimSpace(cfg.Paths.InboxDir)
	if dir == "" {
		return nil
	}

	watcherLogger := logger
	if watcherLogger != nil {
		watcherLogger = logging.NewComponentLogger(watcherLogger, "inbox")
	}
	return &inboxWatcher{
		dir:     dir,
		logger:  watcherLogger,
		manager: mgr,
		store:   store,
		settle:  time.Second,
		seen:    make(map[string]struct{}),
	}
}

func (w *inboxWatcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("inbox watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch inbox %q: %w", w.dir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.watcher = watcher
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx, watcher)

	w.log().Info("inbox watcher started",
		logging.String(logging.FieldEventType, "inbox_watch_start"),
		logging.String("dir", w.dir))
	return nil
}

func (w *inboxWatcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	watcher := w.watcher
	w.running = false
	w.cancel = nil
	w.watcher = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		_ = watcher.Close()
	}
	w.wg.Wait()
}

func (w *inboxWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()

	w.scanExisting(ctx)

	// Debounce timer starts drained; each event pushes the deadline out.
	timer := time.NewTimer(w.settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(pending, event.Name)
				w.forget(event.Name)
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !eligibleInboxName(filepath.Base(event.Name)) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.settle)
		case <-timer.C:
			settled := pending
			pending = make(map[string]struct{})
			for path := range settled {
				w.submit(ctx, path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.log(), "inbox watch error", "inbox_watch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "dropped documents may not be picked up"))
		}
	}
}

// scanExisting queues documents that arrived while the daemon was down.
// Files already referenced by a job, in any state, are left alone; use the
// CLI to regenerate a deck from the same source.
func (w *inboxWatcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logging.WarnWithContext(w.log(), "inbox scan failed", "inbox_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "documents already in the inbox will not be queued"))
		return
	}

	known := w.knownSources(ctx)
	for _, entry := range entries {
		if entry.IsDir() || !eligibleInboxName(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, ok := known[path]; ok {
			w.remember(path)
			continue
		}
		w.submit(ctx, path)
	}
}

func (w *inboxWatcher) knownSources(ctx context.Context) map[string]struct{} {
	if w.store == nil {
		return nil
	}
	jobs, err := w.store.List(ctx)
	if err != nil {
		return nil
	}
	known := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		known[job.PrimarySource] = struct{}{}
	}
	return known
}

func (w *inboxWatcher) submit(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	if _, ok := w.seen[path]; ok {
		w.mu.Unlock()
		return
	}
	w.seen[path] = struct{}{}
	w.mu.Unlock()

	job, err := w.manager.Submit(ctx, orchestrator.SubmitRequest{PrimarySource: path})
	if err != nil {
		w.forget(path)
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.WarnWithContext(w.log(), "inbox submit failed", "inbox_submit_failed",
			logging.String("source", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "document will not be processed"))
		return
	}
	w.log().Info("inbox document queued",
		logging.String(logging.FieldEventType, "inbox_submit"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", path))
}

func (w *inboxWatcher) remember(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[path] = struct{}{}
}

func (w *inboxWatcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, path)
}

func (w *inboxWatcher) log() *slog.Logger {
	if w.logger == nil {
		return logging.NewNop()
	}
	return w.logger
}

func eligibleInboxName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, "~") {
		return false
	}
	lower := strings.ToLower(name)
	for _, suffix := range inboxIgnoredSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return true
}
