package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWorkerLaunch marks failures to start the worker process at all.
	ErrWorkerLaunch = errors.New("worker launch error")
	// ErrWorkerProtocol marks structured error fields reported by the worker.
	ErrWorkerProtocol = errors.New("worker protocol error")
	// ErrWorkerSilent marks worker runs that exited without any parseable response.
	ErrWorkerSilent = errors.New("worker silent exit")
	// ErrRemoteState marks generation failures reported by the remote service.
	ErrRemoteState = errors.New("remote generation error")
	// ErrWorkerTimeout marks worker commands cut off by their time budget.
	ErrWorkerTimeout = errors.New("worker timeout")
	// ErrPollTimeout marks polling runs that exhausted their attempt budget.
	ErrPollTimeout = errors.New("poll timeout")
	// ErrPersistence marks snapshot read/write failures; callers log and continue.
	ErrPersistence = errors.New("persistence error")
	// ErrValidation marks rejected inputs and malformed submissions.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups for jobs that no longer exist.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrWorkerSilent
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Terminal reports whether the error dooms the affected job. Persistence
// failures degrade durability only and never fail a job.
func Terminal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrPersistence)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
