package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deckhand/internal/logging"
	"deckhand/internal/queue"
	"deckhand/internal/services"
	"deckhand/internal/services/worker"
)

const (
	defaultPollInterval    = 30
	defaultPollMaxAttempts = 60
)

// startPolling hands a recovered job to a watcher goroutine that checks the
// remote generation until it settles. The job takes a capacity slot
// unconditionally; recovered work never waits behind new admissions.
func (m *Manager) startPolling(ctx context.Context, job *queue.Job, taskID string) {
	m.sem.Occupy()
	s := m.trackActive(job.ID)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.finishJob(job.ID, s)
		m.pollJob(ctx, job, taskID)
	}()
}

func (m *Manager) pollJob(ctx context.Context, job *queue.Job, taskID string) {
	cfg := m.provider()
	logger := m.jobLogger(job.ID)

	interval := cfg.Queue.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := cfg.Queue.PollMaxAttempts
	if attempts <= 0 {
		attempts = defaultPollMaxAttempts
	}

	logger.Info("polling remote generation",
		logging.String(logging.FieldEventType, "poll_start"),
		logging.String(logging.FieldNotebookID, job.WorkspaceID),
		logging.Int("interval_seconds", interval),
		logging.Int("max_attempts", attempts))

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			logger.Debug("polling interrupted by shutdown")
			return
		case <-time.After(time.Duration(interval) * time.Second):
		}

		resp, err := m.driver.CheckStatus(ctx, job.WorkspaceID, taskID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("status check failed, will retry",
				logging.Int("attempt", attempt),
				logging.Error(err))
			continue
		}
		if resp.Error != "" {
			logger.Warn("status check reported an error, will retry",
				logging.Int("attempt", attempt),
				logging.String("error_message", resp.Error))
			continue
		}

		switch {
		case resp.GenerationFailed() || resp.GenerationStatus == worker.GenerationFailed:
			m.failJob(ctx, job, "remote generation failed",
				services.Wrap(services.ErrRemoteState, "orchestrator", "check-status", "generation failed on the remote service", nil))
			return
		case resp.GenerationComplete() || resp.GenerationStatus == worker.GenerationCompleted:
			if id := strings.TrimSpace(resp.TaskID); id != "" {
				taskID = id
			}
			m.downloadArtifact(ctx, job, taskID)
			return
		default:
			m.publishProgress(job, fmt.Sprintf("generation in progress (check %d/%d)", attempt, attempts))
		}
	}

	m.failJob(ctx, job, "generation did not finish within the polling budget",
		services.Wrap(services.ErrPollTimeout, "orchestrator", "check-status",
			fmt.Sprintf("gave up after %d checks", attempts), nil))
}
