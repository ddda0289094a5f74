package orchestrator

import (
	"context"

	"deckhand/internal/queue"
)

// StatusSummary is a point-in-time view of the orchestrator.
type StatusSummary struct {
	Running   bool
	Active    int
	Limit     int
	LastError string
	Stats     map[queue.Status]int
}

// Status reports scheduler state alongside queue counts.
func (m *Manager) Status(ctx context.Context) (StatusSummary, error) {
	m.mu.Lock()
	running := m.running
	lastErr := ""
	if m.lastErr != nil {
		lastErr = m.lastErr.Error()
	}
	m.mu.Unlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		return StatusSummary{}, err
	}
	return StatusSummary{
		Running:   running,
		Active:    m.sem.Acquired(),
		Limit:     m.sem.Limit(),
		LastError: lastErr,
		Stats:     stats,
	}, nil
}

// CredentialStatus reports whether stored credentials look fresh enough to
// use, with a human-readable hint when they do not.
func (m *Manager) CredentialStatus(ctx context.Context) (bool, string) {
	return m.creds.Fresh(ctx)
}

// TestNotification pushes a test message through the configured notifier.
func (m *Manager) TestNotification(ctx context.Context) error {
	return m.notifier.TestNotification(ctx)
}
