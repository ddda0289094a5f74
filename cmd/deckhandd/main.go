// Command deckhandd runs the deck generation daemon: durable job queue,
// scheduler, inbox watcher, HTTP API, and the Unix-socket IPC surface the
// deckhand CLI talks to. It exits on SIGINT/SIGTERM or when a stop request
// arrives over IPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"deckhand/internal/config"
	"deckhand/internal/daemon"
	"deckhand/internal/ipc"
	"deckhand/internal/logging"
	"deckhand/internal/orchestrator"
	"deckhand/internal/queue"
	"deckhand/internal/services/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deckhandd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the deckhand config file")
	flag.Parse()

	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	hub := queue.NewHub(logger)
	defer hub.Close()
	store.SetHub(hub)

	driver, err := worker.New(cfg.WorkerBinary(), worker.TimeoutsFromConfig(cfg), worker.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("configure worker client: %w", err)
	}

	manager := orchestrator.NewManager(func() *config.Config { return cfg }, store, driver, logger,
		orchestrator.WithHub(hub))

	d, err := daemon.New(cfg, store, logger, manager, hub)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// The scheduler starts before the socket appears so a reachable socket
	// always means a running daemon. A second instance fails here on the
	// lock without disturbing the live instance's socket or pid file.
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := cfg.PIDFilePath()
	if err := writePIDFile(pidPath); err != nil {
		d.Stop()
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		d.Stop()
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	select {
	case <-signalCtx.Done():
		logger.Info("deckhandd shutting down",
			logging.String(logging.FieldEventType, "daemon_signal_exit"))
	case <-d.Stopped():
		logger.Info("deckhandd exiting after stop request",
			logging.String(logging.FieldEventType, "daemon_ipc_exit"))
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
