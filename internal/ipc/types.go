package ipc

import "deckhand/internal/api"

// Job mirrors the HTTP API queue DTO for internal IPC callers.
type Job = api.Job

// CheckStatus mirrors the HTTP API environment check DTO.
type CheckStatus = api.CheckStatus

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/scheduler status information.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	QueueStats     map[string]int `json:"queue_stats"`
	ActiveJobs     int            `json:"active_jobs"`
	MaxConcurrency int            `json:"max_concurrency"`
	LastError      string         `json:"last_error"`
	LockPath       string         `json:"lock_path"`
	SnapshotPath   string         `json:"snapshot_path"`
	AuthFresh      bool           `json:"auth_fresh"`
	AuthDetail     string         `json:"auth_detail"`
	Checks         []CheckStatus  `json:"checks"`
}

// QueueAddRequest submits a new document for processing.
type QueueAddRequest struct {
	PrimarySource        string   `json:"primary_source"`
	AdditionalSources    []string `json:"additional_sources,omitempty"`
	SourceURLs           []string `json:"source_urls,omitempty"`
	CustomPrompt         string   `json:"custom_prompt,omitempty"`
	DeleteRemoteArtifact *bool    `json:"delete_remote_artifact,omitempty"`
}

// QueueAddResponse returns the queued job.
type QueueAddResponse struct {
	Job Job `json:"job"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []Job `json:"items"`
}

// QueueDescribeRequest fetches a single job by id.
type QueueDescribeRequest struct {
	ID string `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Item Job `json:"item"`
}

// QueueRemoveRequest removes one job by id.
type QueueRemoveRequest struct {
	ID string `json:"id"`
}

// QueueRemoveResponse reports whether the job existed.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueClearRequest removes all jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed jobs.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed jobs.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Restoring  int `json:"restoring"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// AuthStatusRequest fetches stored credential freshness.
type AuthStatusRequest struct{}

// AuthStatusResponse reports credential freshness.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Detail        string `json:"detail"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
