package api

import (
	"time"

	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:            job.ID,
		PrimarySource: job.PrimarySource,
		CustomPrompt:  job.CustomPrompt,
		Status:        string(job.Status),
		WorkspaceID:   job.WorkspaceID,
		OutputPath:    job.OutputPath,
		ErrorMessage:  job.ErrorMessage,
	}
	if len(job.AdditionalSources) > 0 {
		dto.AdditionalSources = append([]string(nil), job.AdditionalSources...)
	}
	if len(job.SourceURLs) > 0 {
		dto.SourceURLs = append([]string(nil), job.SourceURLs...)
	}
	if job.DeleteRemoteArtifact != nil {
		v := *job.DeleteRemoteArtifact
		dto.DeleteRemoteArtifact = &v
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts an orchestrator status summary to API payload.
func FromStatusSummary(summary orchestrator.StatusSummary) SchedulerStatus {
	status := SchedulerStatus{
		Running:    summary.Running,
		Active:     summary.Active,
		Limit:      summary.Limit,
		QueueStats: MergeQueueStats(summary.Stats),
	}
	if summary.LastError != "" {
		status.LastError = summary.LastError
	}
	return status
}

// FromEvent converts a queue lifecycle event for streaming consumers.
func FromEvent(event queue.Event) Event {
	out := Event{
		Type:    string(event.Type),
		Message: event.Message,
		Time:    FormatTime(event.Time),
	}
	if event.Job != nil {
		job := FromJob(event.Job)
		out.Job = &job
	}
	return out
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
