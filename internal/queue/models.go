package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a queued job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusRestoring  Status = "restoring"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusRestoring,
	StatusCompleted,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job is one unit of work: a primary document plus optional supporting
// material, driven through the remote generation service by a worker process.
//
// JSON tags double as the snapshot schema; renaming a field is a breaking
// change for queues written by earlier builds.
type Job struct {
	ID                   string    `json:"id"`
	PrimarySource        string    `json:"primarySource"`
	AdditionalSources    []string  `json:"additionalSources,omitempty"`
	SourceURLs           []string  `json:"sourceURLs,omitempty"`
	CustomPrompt         string    `json:"customPrompt,omitempty"`
	DeleteRemoteArtifact *bool     `json:"deleteRemoteArtifactAfterDownload,omitempty"`
	Status               Status    `json:"status"`
	WorkspaceID          string    `json:"remoteWorkspaceId,omitempty"`
	OutputPath           string    `json:"outputPath,omitempty"`
	ErrorMessage         string    `json:"error,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// NewJob constructs a pending job for the given primary source document.
// Optional fields are set by the caller before Store.Add.
func NewJob(primarySource string) *Job {
	return &Job{
		ID:            uuid.NewString(),
		PrimarySource: strings.TrimSpace(primarySource),
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers can mutate freely without
// touching store-owned state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.AdditionalSources != nil {
		cp.AdditionalSources = append([]string(nil), j.AdditionalSources...)
	}
	if j.SourceURLs != nil {
		cp.SourceURLs = append([]string(nil), j.SourceURLs...)
	}
	if j.DeleteRemoteArtifact != nil {
		v := *j.DeleteRemoteArtifact
		cp.DeleteRemoteArtifact = &v
	}
	return &cp
}

// IsTerminal reports whether the job has reached a final state.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminalStatus reports whether a status is final.
func IsTerminalStatus(status Status) bool {
	return status == StatusCompleted || status == StatusError
}

// SetCompleted marks the job completed with the downloaded artifact path.
// The error message is cleared so terminal jobs carry exactly one outcome.
func (j *Job) SetCompleted(outputPath string) {
	j.Status = StatusCompleted
	j.OutputPath = outputPath
	j.ErrorMessage = ""
}

// SetFailed marks the job failed with the given message and clears any
// partial output path.
func (j *Job) SetFailed(message string) {
	j.Status = StatusError
	j.ErrorMessage = message
	j.OutputPath = ""
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Restoring  int
	Completed  int
	Errored    int
}
