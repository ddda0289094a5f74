package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/daemon"
	"deckhand/internal/ipc"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
	"deckhand/internal/services/worker"
	"deckhand/internal/testsupport"
)

// stubDriver parks every generation run until shutdown so seeded queue state
// holds still while commands run against it.
type stubDriver struct{}

func (stubDriver) CheckAuth(context.Context) (*worker.Response, error) {
	ok := true
	return &worker.Response{Authenticated: &ok}, nil
}

func (stubDriver) Process(ctx context.Context, _ worker.ProcessRequest, _ func(worker.Response)) (*worker.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stubDriver) FindWorkspace(context.Context, string) (*worker.Response, error) {
	return &worker.Response{}, nil
}

func (stubDriver) CheckStatus(context.Context, string, string) (*worker.Response, error) {
	return &worker.Response{GenerationStatus: worker.GenerationProcessing}, nil
}

func (stubDriver) Download(context.Context, string, string, string, string) (*worker.Response, error) {
	return &worker.Response{}, nil
}

func (stubDriver) Login(context.Context, func(worker.Response)) (*worker.Response, error) {
	return &worker.Response{}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

// setupCLITestEnv builds a live IPC endpoint over a real store. The daemon
// is created but never started, so the scheduler cannot move seeded jobs
// while a test inspects them.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(homeDir, ".config", "deckhand", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	hub := queue.NewHub(logger)
	store.SetHub(hub)
	mgr := orchestrator.NewManager(func() *config.Config { return cfg }, store, stubDriver{}, logger,
		orchestrator.WithHub(hub))

	d, err := daemon.New(cfg, store, logger, mgr, hub)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\noutput_dir = %q\napi_bind = %q\n\n[worker]\nbinary = %q\n\n[auth]\nstorage_state_path = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.OutputDir,
		cfg.Paths.APIBind,
		cfg.Worker.Binary,
		cfg.Auth.StorageStatePath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeSampleDocument(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("# sample\n"), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}
