package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"deckhand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.InboxDir = ""
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Auth.StorageStatePath = filepath.Join(base, "storage_state.json")
	cfgVal.Worker.Binary = filepath.Join(base, "bin", "deckhand-worker")
	cfgVal.Queue.PollInterval = 1
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMaxConcurrency overrides the admission cap on the test config.
func WithMaxConcurrency(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.MaxConcurrency = limit
	}
}

// WithInboxDir enables the watched inbox under the test base directory.
func WithInboxDir() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "inbox")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir inbox dir: %v", err)
		}
		b.cfg.Paths.InboxDir = dir
	}
}

// WithWorkerScript writes an executable worker stub with the given shell body
// and points the config's worker binary at it. The script body runs under
// /bin/sh with the original worker arguments.
func WithWorkerScript(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Binary = WriteWorkerStub(b.t, filepath.Join(b.baseDir, "bin"), script)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
