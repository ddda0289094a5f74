package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"deckhand/internal/artifact"
	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/queue"
	"deckhand/internal/services"
	"deckhand/internal/services/worker"
)

func (m *Manager) runJob(ctx context.Context, job *queue.Job) {
	cfg := m.provider()
	logger := m.jobLogger(job.ID)

	started := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source", job.PrimarySource))

	if !m.preflightAuth(ctx, logger, job) {
		return
	}

	prompt := strings.TrimSpace(job.CustomPrompt)
	if prompt == "" {
		prompt = strings.TrimSpace(cfg.Generation.DefaultPrompt)
	}
	deleteRemote := cfg.Generation.DeleteNotebookAfterDownload
	if job.DeleteRemoteArtifact != nil {
		deleteRemote = *job.DeleteRemoteArtifact
	}

	req := worker.ProcessRequest{
		JobID:             job.ID,
		PrimarySource:     job.PrimarySource,
		OutputDir:         cfg.Paths.OutputDir,
		SystemPrompt:      prompt,
		AdditionalSources: job.AdditionalSources,
		SourceURLs:        job.SourceURLs,
		DeleteNotebook:    deleteRemote,
	}

	resp, err := m.driver.Process(ctx, req, func(ev worker.Response) {
		m.onWorkerEvent(ctx, job, ev)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("job interrupted by shutdown")
			return
		}
		m.failJob(ctx, job, failureMessage(err), err)
		return
	}

	switch {
	case resp.Error != "":
		m.failJob(ctx, job, resp.Error,
			services.Wrap(services.ErrRemoteState, "orchestrator", "process", "worker reported an error", nil))
	case resp.OutputPath != "":
		logger.Info("worker run finished",
			logging.String("output_path", resp.OutputPath),
			logging.Duration("run_duration", time.Since(started)))
		m.completeJob(ctx, cfg, job, resp.OutputPath)
	default:
		m.failJob(ctx, job, "worker finished without producing an output file",
			services.Wrap(services.ErrWorkerProtocol, "orchestrator", "process", "final response missing output path", nil))
	}
}

// preflightAuth gates the browser spawn on credential state. A fresh
// storage-state file skips the check-auth round trip; a stale one gets one
// definitive check so expired credentials fail the job fast instead of
// stalling in a login redirect.
func (m *Manager) preflightAuth(ctx context.Context, logger *slog.Logger, job *queue.Job) bool {
	if m.creds == nil {
		return true
	}
	fresh, reason := m.creds.Fresh(ctx)
	if fresh {
		return true
	}
	logger.Info("credentials stale, verifying with worker", logging.String("reason", reason))

	resp, err := m.driver.CheckAuth(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		m.failJob(ctx, job, failureMessage(err), err)
		return false
	}
	if resp.AuthOK() {
		return true
	}

	m.failJob(ctx, job, "not authenticated; run deckhand auth login", errors.New("worker rejected stored credentials"))
	m.notifyAuthRequired(ctx, reason)
	return false
}

// onWorkerEvent handles one protocol line from a live process run: capture
// the workspace id the moment any event carries it, and forward progress to
// subscribers.
func (m *Manager) onWorkerEvent(ctx context.Context, job *queue.Job, ev worker.Response) {
	if id := strings.TrimSpace(ev.NotebookID); id != "" && job.WorkspaceID != id {
		job.WorkspaceID = id
		if _, err := m.store.Update(ctx, job); err != nil {
			m.jobLogger(job.ID).Warn("failed to persist workspace id", logging.Error(err))
		} else {
			m.jobLogger(job.ID).Debug("workspace id recorded",
				logging.String(logging.FieldNotebookID, id))
		}
	}
	if msg := strings.TrimSpace(ev.Detail()); msg != "" {
		m.publishProgress(job, msg)
	}
}

func (m *Manager) publishProgress(job *queue.Job, message string) {
	if m.hub == nil {
		return
	}
	event := queue.Event{Type: queue.EventProgress, Message: message, Time: time.Now().UTC()}
	if job != nil {
		event.Job = job.Clone()
	}
	m.hub.Publish(event)
}

// downloadArtifact fetches the finished deck for a job whose generation
// completed outside a live process run (recovery or polling).
func (m *Manager) downloadArtifact(ctx context.Context, job *queue.Job, artifactID string) {
	cfg := m.provider()
	logger := m.jobLogger(job.ID)

	stem := artifact.Stem(job.PrimarySource)
	resp, err := m.driver.Download(ctx, job.WorkspaceID, cfg.Paths.OutputDir, stem, artifactID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("download interrupted by shutdown")
			return
		}
		m.failJob(ctx, job, failureMessage(err), err)
		return
	}
	switch {
	case resp.Error != "":
		m.failJob(ctx, job, resp.Error,
			services.Wrap(services.ErrRemoteState, "orchestrator", "download", "worker reported an error", nil))
	case resp.OutputPath != "":
		m.completeJob(ctx, cfg, job, resp.OutputPath)
	default:
		m.failJob(ctx, job, "download finished without an output path",
			services.Wrap(services.ErrWorkerProtocol, "orchestrator", "download", "final response missing output path", nil))
	}
}

func (m *Manager) completeJob(ctx context.Context, cfg *config.Config, job *queue.Job, outputPath string) {
	logger := m.jobLogger(job.ID)

	if err := artifact.ValidatePDF(outputPath); err != nil {
		if cfg.Generation.StrictArtifactValidation {
			m.failJob(ctx, job, fmt.Sprintf("downloaded file failed validation: %v", err), err)
			return
		}
		logging.WarnWithContext(logger, "artifact validation failed, keeping download", "artifact_validation_failed",
			logging.String("output_path", outputPath),
			logging.Error(err))
	}

	job.SetCompleted(outputPath)
	updated, err := m.store.Update(ctx, job)
	if err != nil {
		logger.Error("failed to persist job completion", logging.Error(err))
	}
	if !updated {
		logger.Debug("job removed while in flight, result discarded")
		return
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("output_path", job.OutputPath))
	m.notifyComplete(ctx, job)
}

func (m *Manager) failJob(ctx context.Context, job *queue.Job, message string, cause error) {
	logger := m.jobLogger(job.ID)

	job.SetFailed(message)
	updated, err := m.store.Update(ctx, job)
	if err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	if cause == nil {
		cause = errors.New(message)
	}
	m.setLastError(cause)
	logging.ErrorWithContext(logger, "job failed", "job_failure",
		logging.String("error_message", message),
		logging.Error(cause))
	if !updated {
		logger.Debug("job removed while in flight, result discarded")
		return
	}
	m.notifyFailed(ctx, job)
}

// failureMessage translates a worker client error into the message stored
// on the job. A silent exit keeps the fixed label; everything else carries
// the error text through verbatim.
func failureMessage(err error) string {
	if errors.Is(err, services.ErrWorkerSilent) {
		return "unknown error"
	}
	return err.Error()
}

func (m *Manager) notifyComplete(ctx context.Context, job *queue.Job) {
	if m.notifier == nil {
		return
	}
	name := filepath.Base(job.PrimarySource)
	if err := m.notifier.NotifyJobComplete(ctx, name, job.OutputPath); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send completion notification")
		} else {
			m.logger.Debug("completion notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyFailed(ctx context.Context, job *queue.Job) {
	if m.notifier == nil {
		return
	}
	name := filepath.Base(job.PrimarySource)
	if err := m.notifier.NotifyJobFailed(ctx, name, job.ErrorMessage); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			m.logger.Debug("failure notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyAuthRequired(ctx context.Context, reason string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyAuthRequired(ctx, reason); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Debug("auth notification failed", logging.Error(err))
	}
}
