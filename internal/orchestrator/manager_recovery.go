package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"deckhand/internal/logging"
	"deckhand/internal/queue"
	"deckhand/internal/services"
	"deckhand/internal/services/worker"
)

// recover resolves every job a previous session left behind, once per
// start, before normal scheduling begins. Lookups run concurrently under
// the same cap as normal admission. A lookup failure fails that job only;
// it never aborts the pass.
func (m *Manager) recover(ctx context.Context) {
	jobs, err := m.store.List(ctx, queue.StatusRestoring)
	if err != nil {
		m.setLastError(err)
		m.logger.Error("failed to list restorable jobs", logging.Error(err))
		return
	}
	if len(jobs) == 0 {
		return
	}

	limit := m.currentLimit()
	m.logger.Info("recovering interrupted jobs",
		logging.String(logging.FieldEventType, "recovery_start"),
		logging.Int("jobs", len(jobs)),
		logging.Int("limit", limit))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, job := range jobs {
		job := job // per-iteration copy; the closures below outlive the loop
		g.Go(func() error {
			m.recoverJob(groupCtx, job)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) recoverJob(ctx context.Context, job *queue.Job) {
	logger := m.jobLogger(job.ID)

	resp, err := m.driver.FindWorkspace(ctx, job.ID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Stays restoring; the next start retries the lookup.
			logger.Debug("recovery interrupted by shutdown")
			return
		}
		m.failJob(ctx, job, failureMessage(err), err)
		return
	}
	if resp.Error != "" {
		m.failJob(ctx, job, resp.Error,
			services.Wrap(services.ErrRemoteState, "orchestrator", "find-workspace", "workspace lookup reported an error", nil))
		return
	}

	workspaceID := strings.TrimSpace(resp.NotebookID)
	if workspaceID == "" {
		// The previous session died before the workspace existed; the job
		// starts over from scratch.
		job.WorkspaceID = ""
		m.requeueJob(ctx, job, "no remote workspace found")
		return
	}
	job.WorkspaceID = workspaceID

	switch {
	case resp.GenerationStatus == worker.GenerationFailed || resp.GenerationFailed():
		m.failJob(ctx, job, "remote generation failed",
			services.Wrap(services.ErrRemoteState, "orchestrator", "find-workspace", "generation failed on the remote service", nil))
	case resp.GenerationStatus == worker.GenerationCompleted || resp.GenerationComplete():
		if updated := m.persistRestoring(ctx, job, logger); !updated {
			return
		}
		logger.Info("finished artifact found, downloading",
			logging.String(logging.FieldNotebookID, workspaceID))
		m.downloadArtifact(ctx, job, strings.TrimSpace(resp.TaskID))
	case resp.GenerationStatus == worker.GenerationNoArtifact:
		m.requeueJob(ctx, job, "workspace has no artifact")
	case strings.TrimSpace(resp.TaskID) != "":
		job.Status = queue.StatusProcessing
		if updated := m.persistRestoring(ctx, job, logger); !updated {
			return
		}
		logger.Info("generation still running, resuming watch",
			logging.String(logging.FieldNotebookID, workspaceID))
		m.startPolling(ctx, job, strings.TrimSpace(resp.TaskID))
	default:
		// A workspace with neither artifact nor trackable task gets a
		// fresh run.
		m.requeueJob(ctx, job, "workspace has no trackable generation")
	}
}

// persistRestoring writes the recovery findings back to the store before a
// follow-up action. A false return means the job was removed mid-recovery.
func (m *Manager) persistRestoring(ctx context.Context, job *queue.Job, logger *slog.Logger) bool {
	updated, err := m.store.Update(ctx, job)
	if err != nil {
		logger.Error("failed to persist recovery state", logging.Error(err))
	}
	if !updated {
		logger.Debug("job removed during recovery, dropping")
	}
	return updated
}

// requeueJob returns a job to the pending queue for a fresh run.
func (m *Manager) requeueJob(ctx context.Context, job *queue.Job, reason string) {
	logger := m.jobLogger(job.ID)
	job.Status = queue.StatusPending
	job.OutputPath = ""
	job.ErrorMessage = ""
	updated, err := m.store.Update(ctx, job)
	if err != nil {
		logger.Error("failed to requeue job", logging.Error(err))
		return
	}
	if !updated {
		return
	}
	logger.Info("job requeued",
		logging.String(logging.FieldEventType, "job_requeued"),
		logging.String("reason", reason))
	m.Nudge()
}
