package api

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job is the transport representation of a queue entry.
type Job struct {
	ID                   string   `json:"id"`
	PrimarySource        string   `json:"primarySource"`
	AdditionalSources    []string `json:"additionalSources,omitempty"`
	SourceURLs           []string `json:"sourceUrls,omitempty"`
	CustomPrompt         string   `json:"customPrompt,omitempty"`
	DeleteRemoteArtifact *bool    `json:"deleteRemoteArtifact,omitempty"`
	Status               string   `json:"status"`
	WorkspaceID          string   `json:"workspaceId,omitempty"`
	OutputPath           string   `json:"outputPath,omitempty"`
	ErrorMessage         string   `json:"errorMessage,omitempty"`
	CreatedAt            string   `json:"createdAt,omitempty"`
}

// SchedulerStatus summarises the orchestrator for status consumers.
type SchedulerStatus struct {
	Running    bool           `json:"running"`
	Active     int            `json:"active"`
	Limit      int            `json:"limit"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
}

// CheckStatus reports the outcome of one daemon readiness check.
type CheckStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Ready       bool   `json:"ready"`
	Detail      string `json:"detail,omitempty"`
}

// AuthStatus reports stored credential freshness.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Detail        string `json:"detail,omitempty"`
}

// DaemonStatus is the aggregated runtime picture of a running daemon.
type DaemonStatus struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	SnapshotPath string          `json:"snapshotPath"`
	LockFilePath string          `json:"lockFilePath"`
	Scheduler    SchedulerStatus `json:"scheduler"`
	Auth         AuthStatus      `json:"auth"`
	Checks       []CheckStatus   `json:"checks"`
}

// SubmitRequest is the payload for queueing a new job.
type SubmitRequest struct {
	PrimarySource        string   `json:"primarySource"`
	AdditionalSources    []string `json:"additionalSources,omitempty"`
	SourceURLs           []string `json:"sourceUrls,omitempty"`
	CustomPrompt         string   `json:"customPrompt,omitempty"`
	DeleteRemoteArtifact *bool    `json:"deleteRemoteArtifact,omitempty"`
}

// QueueListResponse wraps a queue listing.
type QueueListResponse struct {
	Items []Job `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item Job `json:"item"`
}

// QueueStatsResponse reports queue counts keyed by status string.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// Event mirrors a queue lifecycle event for streaming consumers.
type Event struct {
	Type    string `json:"type"`
	Job     *Job   `json:"job,omitempty"`
	Message string `json:"message,omitempty"`
	Time    string `json:"time"`
}

// EventSnapshot is the first frame on the event stream, carrying the queue
// contents at connect time so consumers can render without an extra fetch.
type EventSnapshot struct {
	Type  string `json:"type"`
	Items []Job  `json:"items"`
}
