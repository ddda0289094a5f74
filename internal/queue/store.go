package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"deckhand/internal/config"
	"deckhand/internal/logging"
)

// Store manages queue persistence backed by a JSON snapshot file.
//
// The in-memory job list is the source of truth for the running daemon;
// the snapshot exists so a restart can pick up non-terminal jobs. One mutex
// serializes list mutations and snapshot writes, and a flock guards the file
// against a second process.
type Store struct {
	mu   sync.Mutex
	jobs []*Job

	path     string
	fileLock *flock.Flock
	logger   *slog.Logger
	hub      *Hub

	lastPersistErr error
}

// SnapshotHealth captures diagnostic information about the queue snapshot.
type SnapshotHealth struct {
	Path           string
	Exists         bool
	Jobs           int
	LastWriteError string
}

// Open loads the queue snapshot if present and returns a ready store.
// Jobs found in processing state are reclassified to restoring so the
// recovery pass can reconcile them against the remote service before the
// scheduler runs.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	path := cfg.QueueSnapshotPath()
	store := &Store{
		path:     path,
		fileLock: flock.New(path + ".lock"),
		logger:   logging.NewComponentLogger(logger, "queue"),
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// SetHub attaches an event hub that receives lifecycle events for every
// mutation. Call before the daemon starts publishing work.
func (s *Store) SetHub(hub *Hub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub = hub
}

// Close releases the store. Non-terminal jobs intentionally stay in the
// snapshot so the next start can restore them.
func (s *Store) Close() error {
	return nil
}

// Add appends a job to the queue and persists the snapshot. A missing ID,
// status, or creation time is filled in; a duplicate ID is rejected.
func (s *Store) Add(ctx context.Context, job *Job) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	if strings.TrimSpace(job.PrimarySource) == "" {
		return nil, errors.New("job primary source is required")
	}

	stored := job.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = StatusPending
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	if s.indexOf(stored.ID) >= 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("duplicate job id %s", stored.ID)
	}
	s.jobs = append(s.jobs, stored)
	s.persistLocked()
	result := stored.Clone()
	s.mu.Unlock()

	s.publish(EventQueued, result, "")
	return result, nil
}

// Update replaces the stored job matching job.ID and persists the snapshot.
// It reports false without error when the job is no longer present, so late
// results for removed jobs land harmlessly.
func (s *Store) Update(ctx context.Context, job *Job) (bool, error) {
	if job == nil {
		return false, errors.New("job is nil")
	}

	s.mu.Lock()
	idx := s.indexOf(job.ID)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	previous := s.jobs[idx].Status
	s.jobs[idx] = job.Clone()
	s.persistLocked()
	result := s.jobs[idx].Clone()
	s.mu.Unlock()

	if eventType, ok := transitionEvent(previous, result.Status); ok {
		s.publish(eventType, result, "")
	}
	return true, nil
}

// Remove deletes a job by identifier. Removing an in-flight job only drops
// the bookkeeping; any spawned worker process keeps running and its late
// result becomes an Update no-op.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	removed := s.jobs[idx].Clone()
	s.jobs = append(s.jobs[:idx], s.jobs[idx+1:]...)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(EventRemoved, removed, "")
	return true, nil
}

// GetByID fetches a job by identifier, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, nil
	}
	return s.jobs[idx].Clone(), nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	wanted := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if len(wanted) > 0 {
			if _, ok := wanted[job.Status]; !ok {
				continue
			}
		}
		jobs = append(jobs, job.Clone())
	}
	s.mu.Unlock()

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// NextPending returns the oldest pending job, or nil when none waits.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	jobs, err := s.List(ctx, StatusPending)
	if err != nil || len(jobs) == 0 {
		return nil, err
	}
	return jobs[0], nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make(map[Status]int, len(allStatuses))
	for _, job := range s.jobs {
		stats[job.Status]++
	}
	return stats, nil
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusRestoring:
			health.Restoring += count
		case StatusCompleted:
			health.Completed += count
		case StatusError:
			health.Errored += count
		}
	}
	return health, nil
}

// CheckSnapshot returns diagnostic information about the snapshot file.
func (s *Store) CheckSnapshot() SnapshotHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	health := SnapshotHealth{Path: s.path, Jobs: len(s.jobs)}
	if _, err := os.Stat(s.path); err == nil {
		health.Exists = true
	}
	if s.lastPersistErr != nil {
		health.LastWriteError = s.lastPersistErr.Error()
	}
	return health
}

// Clear removes all jobs from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.clear(func(*Job) bool { return true })
}

// ClearCompleted removes only completed jobs from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.clear(func(job *Job) bool { return job.Status == StatusCompleted })
}

// ClearFailed removes only errored jobs from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.clear(func(job *Job) bool { return job.Status == StatusError })
}

func (s *Store) clear(match func(*Job) bool) (int64, error) {
	s.mu.Lock()
	kept := s.jobs[:0]
	var removed []*Job
	for _, job := range s.jobs {
		if match(job) {
			removed = append(removed, job)
			continue
		}
		kept = append(kept, job)
	}
	s.jobs = kept
	if len(removed) > 0 {
		s.persistLocked()
	}
	s.mu.Unlock()

	for _, job := range removed {
		s.publish(EventRemoved, job, "")
	}
	return int64(len(removed)), nil
}

func (s *Store) indexOf(id string) int {
	for i, job := range s.jobs {
		if job.ID == id {
			return i
		}
	}
	return -1
}

// load reads the snapshot from disk. A missing file means an empty queue;
// an unreadable one is set aside so a bad shutdown cannot wedge startup.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read queue snapshot: %w", err)
	}

	var jobs []*Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		quarantine := s.path + ".corrupt"
		if renameErr := os.Rename(s.path, quarantine); renameErr != nil {
			quarantine = "(rename failed)"
		}
		logging.WarnWithContext(s.logger, "queue snapshot unreadable, starting empty", "queue_snapshot_corrupt",
			logging.Error(err),
			logging.String("path", s.path),
			logging.String("moved_to", quarantine),
			logging.String("impact", "previously queued jobs were dropped"))
		return nil
	}

	restored := 0
	for _, job := range jobs {
		if job == nil || job.ID == "" {
			continue
		}
		if job.Status == StatusProcessing {
			job.Status = StatusRestoring
			restored++
		}
		s.jobs = append(s.jobs, job)
	}
	if len(s.jobs) > 0 {
		s.logger.Info("queue snapshot loaded",
			logging.Int("jobs", len(s.jobs)),
			logging.Int("restoring", restored),
			logging.String("path", s.path))
	}
	return nil
}

// persistLocked rewrites the snapshot with all non-terminal jobs. Callers
// hold s.mu. Failures degrade durability for this session only, so they are
// logged and swallowed rather than surfaced to the mutation that tripped them.
func (s *Store) persistLocked() {
	snapshot := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.IsTerminal() {
			continue
		}
		snapshot = append(snapshot, job)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err == nil {
		err = s.writeSnapshotFile(data)
	}
	s.lastPersistErr = err
	if err != nil {
		logging.WarnWithContext(s.logger, "queue snapshot write failed", "queue_snapshot_write_failed",
			logging.Error(err),
			logging.String("path", s.path),
			logging.String("impact", "queue state will not survive a restart"))
	}
}

func (s *Store) writeSnapshotFile(data []byte) error {
	if err := s.fileLock.Lock(); err != nil {
		return fmt.Errorf("acquire snapshot lock: %w", err)
	}
	defer func() { _ = s.fileLock.Unlock() }()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename snapshot temp file: %w", err)
	}
	return nil
}

func (s *Store) publish(eventType EventType, job *Job, message string) {
	s.mu.Lock()
	hub := s.hub
	s.mu.Unlock()
	if hub == nil {
		return
	}
	hub.Publish(Event{Type: eventType, Job: job, Message: message, Time: time.Now().UTC()})
}

// transitionEvent maps a status change to the lifecycle event subscribers see.
func transitionEvent(previous, next Status) (EventType, bool) {
	if previous == next {
		return "", false
	}
	switch next {
	case StatusProcessing:
		return EventStarted, true
	case StatusPending:
		return EventRequeued, true
	case StatusCompleted:
		return EventCompleted, true
	case StatusError:
		return EventFailed, true
	default:
		return "", false
	}
}
