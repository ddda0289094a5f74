// Package auth tracks worker credential freshness.
//
// The worker authenticates against the remote service with a browser
// storage-state file written by the interactive login flow. The daemon never
// reads the credentials themselves; it only judges whether the file looks
// recent enough to be worth spawning a browser session for.
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"deckhand/internal/config"
)

// Provider reports whether stored worker credentials look usable and
// discards them on logout.
type Provider interface {
	// Fresh reports whether stored credentials look usable. The reason
	// explains a false result in user-facing terms.
	Fresh(ctx context.Context) (bool, string)
	// Clear discards stored credentials. Clearing credentials that do not
	// exist is not an error.
	Clear(ctx context.Context) error
}

// FileProvider judges freshness from the worker's storage-state file:
// present, readable, and younger than the configured age limit.
type FileProvider struct {
	path       string
	maxAgeDays int
	now        func() time.Time
}

// NewFileProvider builds a Provider for the configured storage-state path.
func NewFileProvider(cfg *config.Config) *FileProvider {
	return &FileProvider{
		path:       cfg.Auth.StorageStatePath,
		maxAgeDays: cfg.Auth.MaxAgeDays,
		now:        time.Now,
	}
}

// Path returns the storage-state location, for status displays.
func (p *FileProvider) Path() string {
	return p.path
}

func (p *FileProvider) Fresh(ctx context.Context) (bool, string) {
	info, err := os.Stat(p.path)
	if os.IsNotExist(err) {
		return false, "no stored credentials; run deckhand auth login"
	}
	if err != nil {
		return false, fmt.Sprintf("credentials unreadable: %v", err)
	}
	if info.IsDir() {
		return false, "credential path is a directory, not a storage-state file"
	}

	f, err := os.Open(p.path)
	if err != nil {
		return false, fmt.Sprintf("credentials unreadable: %v", err)
	}
	_ = f.Close()

	if p.maxAgeDays > 0 {
		age := p.now().Sub(info.ModTime())
		limit := time.Duration(p.maxAgeDays) * 24 * time.Hour
		if age > limit {
			days := int(age.Hours() / 24)
			return false, fmt.Sprintf("credentials are %d days old (limit %d); run deckhand auth login", days, p.maxAgeDays)
		}
	}
	return true, ""
}

func (p *FileProvider) Clear(ctx context.Context) error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
