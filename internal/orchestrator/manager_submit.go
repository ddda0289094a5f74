package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"deckhand/internal/logging"
	"deckhand/internal/queue"
	"deckhand/internal/services"
)

// SubmitRequest describes a new job. PrimarySource is required; everything
// else is optional.
type SubmitRequest struct {
	PrimarySource        string
	AdditionalSources    []string
	SourceURLs           []string
	CustomPrompt         string
	DeleteRemoteArtifact *bool
}

// Submit validates the request, persists a pending job and wakes the
// scheduler.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (*queue.Job, error) {
	primary, err := absSourcePath(req.PrimarySource)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "submit", "invalid primary source", err)
	}

	var additional []string
	for _, src := range req.AdditionalSources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		path, err := absSourcePath(src)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "orchestrator", "submit", "invalid additional source", err)
		}
		additional = append(additional, path)
	}

	var urls []string
	for _, raw := range req.SourceURLs {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, services.Wrap(services.ErrValidation, "orchestrator", "submit",
				fmt.Sprintf("source url must start with http:// or https://: %s", url), nil)
		}
		urls = append(urls, url)
	}

	job := queue.NewJob(primary)
	job.AdditionalSources = additional
	job.SourceURLs = urls
	job.CustomPrompt = strings.TrimSpace(req.CustomPrompt)
	job.DeleteRemoteArtifact = req.DeleteRemoteArtifact

	stored, err := m.store.Add(ctx, job)
	if err != nil {
		return nil, err
	}

	m.logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String(logging.FieldJobID, stored.ID),
		logging.String("source", stored.PrimarySource))
	m.Nudge()
	return stored, nil
}

// absSourcePath normalizes a source document path and checks that it points
// at an existing regular file.
func absSourcePath(raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", errors.New("source path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("source file does not exist: %s", abs)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source path is a directory: %s", abs)
	}
	return abs, nil
}

// Remove deletes a job in any state. A processing job's capacity is freed
// immediately; its worker process keeps running and its eventual result is
// discarded.
func (m *Manager) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := m.store.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		m.releaseActive(id)
	}
	return removed, nil
}

// ClearCompleted removes finished jobs and reports how many were dropped.
func (m *Manager) ClearCompleted(ctx context.Context) (int64, error) {
	return m.store.ClearCompleted(ctx)
}

// ClearFailed removes errored jobs and reports how many were dropped.
func (m *Manager) ClearFailed(ctx context.Context) (int64, error) {
	return m.store.ClearFailed(ctx)
}

// ClearAll empties the queue outright, freeing the capacity of any jobs
// currently in flight.
func (m *Manager) ClearAll(ctx context.Context) (int64, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	cleared, err := m.store.Clear(ctx)
	if err != nil {
		return cleared, err
	}
	for _, job := range jobs {
		m.releaseActive(job.ID)
	}
	return cleared, nil
}
