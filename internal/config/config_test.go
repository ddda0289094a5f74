package config_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"deckhand/internal/config"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "deckhand")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "Downloads") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.InboxDir != "" {
		t.Fatalf("expected inbox watching disabled by default, got %q", cfg.Paths.InboxDir)
	}
	if cfg.Queue.MaxConcurrency != 3 {
		t.Fatalf("unexpected default concurrency: %d", cfg.Queue.MaxConcurrency)
	}
	if cfg.Queue.PollInterval != 30 || cfg.Queue.PollMaxAttempts != 60 {
		t.Fatalf("unexpected poll defaults: %d/%d", cfg.Queue.PollInterval, cfg.Queue.PollMaxAttempts)
	}
	if cfg.Worker.Binary != "deckhand-worker" {
		t.Fatalf("unexpected worker binary: %q", cfg.Worker.Binary)
	}
	if cfg.Generation.DeleteNotebookAfterDownload {
		t.Fatal("expected delete-after-download disabled by default")
	}
	if cfg.QueueSnapshotPath() != filepath.Join(wantData, "queue.json") {
		t.Fatalf("unexpected snapshot path: %q", cfg.QueueSnapshotPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "deckhand.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Worker struct {
			Binary         string `toml:"binary"`
			ProcessTimeout int    `toml:"process_timeout"`
		} `toml:"worker"`
		Queue struct {
			MaxConcurrency int `toml:"max_concurrency"`
		} `toml:"queue"`
		Generation struct {
			DefaultPrompt string `toml:"default_prompt"`
		} `toml:"generation"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "decks")
	custom.Worker.Binary = "/opt/deckhand/worker"
	custom.Worker.ProcessTimeout = 900
	custom.Queue.MaxConcurrency = 2
	custom.Generation.DefaultPrompt = "Summarize into ten slides."
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != custom.Paths.OutputDir {
		t.Fatalf("expected output dir override, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Worker.Binary != "/opt/deckhand/worker" {
		t.Fatalf("expected worker binary override, got %q", cfg.Worker.Binary)
	}
	if cfg.Worker.ProcessTimeout != 900 {
		t.Fatalf("expected process timeout 900, got %d", cfg.Worker.ProcessTimeout)
	}
	if cfg.Queue.MaxConcurrency != 2 {
		t.Fatalf("expected concurrency 2, got %d", cfg.Queue.MaxConcurrency)
	}
	if cfg.Generation.DefaultPrompt != "Summarize into ten slides." {
		t.Fatalf("unexpected default prompt: %q", cfg.Generation.DefaultPrompt)
	}
}

func TestConcurrencyClampedNotRejected(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "deckhand.toml")

	for _, tc := range []struct {
		name  string
		value int
		want  int
	}{
		{"above range", 12, 5},
		{"below range", -3, 1},
		{"unset", 0, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			body := "[queue]\nmax_concurrency = " + strconv.Itoa(tc.value) + "\n"
			if tc.value == 0 {
				body = ""
			}
			if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if cfg.Queue.MaxConcurrency != tc.want {
				t.Fatalf("expected concurrency %d, got %d", tc.want, cfg.Queue.MaxConcurrency)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "max_concurrency") {
		t.Fatalf("sample config missing concurrency knob: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.Binary = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty worker binary")
	}

	cfg = config.Default()
	cfg.Worker.ProcessTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}

	cfg = config.Default()
	cfg.Queue.MaxConcurrency = 9
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range concurrency")
	}

	cfg = config.Default()
	cfg.Queue.PollMaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero poll budget")
	}

	cfg = config.Default()
	cfg.Paths.InboxDir = "/tmp/decks"
	cfg.Paths.OutputDir = "/tmp/decks"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when inbox equals output dir")
	}
}
