package worker

// Response is one parsed protocol line from the worker. The worker emits a
// JSON object per stdout line; whichever subset of fields a line carries,
// the whole object replaces the previous line as the candidate final result.
// Error lines carry only the error field.
type Response struct {
	Status           string `json:"status,omitempty"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
	Authenticated    *bool  `json:"authenticated,omitempty"`
	NotebookID       string `json:"notebook_id,omitempty"`
	TaskID           string `json:"task_id,omitempty"`
	GenerationStatus string `json:"generation_status,omitempty"`
	IsComplete       *bool  `json:"is_complete,omitempty"`
	IsFailed         *bool  `json:"is_failed,omitempty"`
	OutputPath       string `json:"output_path,omitempty"`
}

// Generation status values reported by find-workspace and check-status.
const (
	GenerationCompleted  = "completed"
	GenerationProcessing = "processing"
	GenerationFailed     = "failed"
	GenerationNoArtifact = "no_artifact"
)

// AuthOK reports whether the worker confirmed valid credentials.
func (r *Response) AuthOK() bool {
	return r != nil && r.Authenticated != nil && *r.Authenticated
}

// GenerationComplete reports whether the remote service finished generating.
func (r *Response) GenerationComplete() bool {
	return r != nil && r.IsComplete != nil && *r.IsComplete
}

// GenerationFailed reports whether the remote service gave up on generating.
func (r *Response) GenerationFailed() bool {
	return r != nil && r.IsFailed != nil && *r.IsFailed
}

// Detail returns the most useful human-readable text on the response.
func (r *Response) Detail() string {
	if r == nil {
		return ""
	}
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}
