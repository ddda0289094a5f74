package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/services"
)

// Worker subcommands. The command word is always argv[1] of the spawned
// process; one process serves exactly one command and then exits.
const (
	cmdLogin         = "login"
	cmdCheckAuth     = "check-auth"
	cmdProcess       = "process"
	cmdFindWorkspace = "find-workspace"
	cmdCheckStatus   = "check-status"
	cmdDownload      = "download"
)

// stderr is drained for diagnostics only; keep a bounded tail.
const maxStderrLines = 40

// Timeouts bounds each worker command category.
type Timeouts struct {
	// Process covers the full generate-and-download pipeline.
	Process time.Duration
	// Command covers short lookups (check-auth, find-workspace, check-status, download).
	Command time.Duration
	// Login covers the interactive browser login flow.
	Login time.Duration
}

// TimeoutsFromConfig builds command timeouts from configured seconds.
func TimeoutsFromConfig(cfg *config.Config) Timeouts {
	if cfg == nil {
		return Timeouts{}
	}
	return Timeouts{
		Process: time.Duration(cfg.Worker.ProcessTimeout) * time.Second,
		Command: time.Duration(cfg.Worker.CommandTimeout) * time.Second,
		Login:   time.Duration(cfg.Worker.LoginTimeout) * time.Second,
	}
}

// Executor abstracts worker process execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// Driver defines the behaviour job handling requires from the worker.
type Driver interface {
	CheckAuth(ctx context.Context) (*Response, error)
	Process(ctx context.Context, req ProcessRequest, onEvent func(Response)) (*Response, error)
	FindWorkspace(ctx context.Context, jobID string) (*Response, error)
	CheckStatus(ctx context.Context, workspaceID, taskID string) (*Response, error)
	Download(ctx context.Context, workspaceID, outputDir, nameStem, artifactID string) (*Response, error)
	Login(ctx context.Context, onEvent func(Response)) (*Response, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(c *Client) {
		if executor != nil {
			c.exec = executor
		}
	}
}

// WithLogger attaches a logger for protocol diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "worker")
		}
	}
}

// Client drives the external worker binary, one OS process per command.
//
// All command methods share one result contract: the returned error covers
// launch failures, silent exits, and timeouts; anything the worker itself
// reported, including its error field, arrives in the Response so callers
// can surface worker messages verbatim.
type Client struct {
	binary   string
	timeouts Timeouts
	exec     Executor
	logger   *slog.Logger
}

// New constructs a worker client.
func New(binary string, timeouts Timeouts, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("worker binary required")
	}
	client := &Client{
		binary:   binary,
		timeouts: timeouts,
		exec:     commandExecutor{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ProcessRequest describes one document-to-slides run.
type ProcessRequest struct {
	JobID             string
	PrimarySource     string
	OutputDir         string
	SystemPrompt      string
	AdditionalSources []string
	SourceURLs        []string
	DeleteNotebook    bool
}

// CheckAuth verifies stored credentials without touching any notebook.
func (c *Client) CheckAuth(ctx context.Context) (*Response, error) {
	return c.run(ctx, c.timeouts.Command, cmdCheckAuth, nil, nil)
}

// Process runs the full pipeline for one job: create a remote workspace,
// upload sources, generate, download. Every protocol line is forwarded to
// onEvent before it becomes the candidate final response.
func (c *Client) Process(ctx context.Context, req ProcessRequest, onEvent func(Response)) (*Response, error) {
	if strings.TrimSpace(req.PrimarySource) == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", cmdProcess, "primary source required", nil)
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", cmdProcess, "output directory required", nil)
	}
	if strings.TrimSpace(req.JobID) == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", cmdProcess, "job id required", nil)
	}

	args := []string{req.PrimarySource, req.OutputDir, "--job-id", req.JobID}
	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	for _, source := range req.AdditionalSources {
		args = append(args, "--source-file", source)
	}
	for _, url := range req.SourceURLs {
		args = append(args, "--source-url", url)
	}
	if req.DeleteNotebook {
		args = append(args, "--delete-notebook")
	}
	return c.run(ctx, c.timeouts.Process, cmdProcess, args, onEvent)
}

// FindWorkspace looks up the remote workspace a previous run created for the
// job. An empty NotebookID on the response means no workspace exists.
func (c *Client) FindWorkspace(ctx context.Context, jobID string) (*Response, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", cmdFindWorkspace, "job id required", nil)
	}
	return c.run(ctx, c.timeouts.Command, cmdFindWorkspace, []string{jobID}, nil)
}

// CheckStatus polls the generation state of a running task.
func (c *Client) CheckStatus(ctx context.Context, workspaceID, taskID string) (*Response, error) {
	if strings.TrimSpace(workspaceID) == "" || strings.TrimSpace(taskID) == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", cmdCheckStatus, "workspace id and task id required", nil)
	}
	return c.run(ctx, c.timeouts.Command, cmdCheckStatus, []string{workspaceID, taskID}, nil)
}

// Download fetches the finished slide deck. nameStem, when set, becomes the
// output file name stem (the worker appends _slides.pdf and uniquifies);
// artifactID pins a specific artifact when recovery knows one.
func (c *Client) Download(ctx context.Context, workspaceID, outputDir, nameStem, artifactID string) (*Response, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", cmdDownload, "workspace id required", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "worker", cmdDownload, "output directory required", nil)
	}

	args := []string{workspaceID, outputDir}
	if nameStem != "" {
		args = append(args, "--name", nameStem)
	}
	if artifactID != "" {
		args = append(args, "--artifact-id", artifactID)
	}
	return c.run(ctx, c.timeouts.Command, cmdDownload, args, nil)
}

// Login runs the interactive browser login flow. Events stream to onEvent so
// a CLI can relay "complete the login in the browser" prompts.
func (c *Client) Login(ctx context.Context, onEvent func(Response)) (*Response, error) {
	return c.run(ctx, c.timeouts.Login, cmdLogin, nil, onEvent)
}

func (c *Client) run(ctx context.Context, timeout time.Duration, command string, args []string, onEvent func(Response)) (*Response, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		latest *Response
		tail   []string
	)
	onStdout := func(line string) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		var resp Response
		if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
			c.logger.Debug("ignoring non-protocol worker output",
				logging.String(logging.FieldCommand, command),
				logging.String("line", trimmed))
			return
		}
		mu.Lock()
		latest = &resp
		mu.Unlock()
		if onEvent != nil {
			onEvent(resp)
		}
	}
	onStderr := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		if len(tail) == maxStderrLines {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}

	runErr := c.exec.Run(runCtx, c.binary, append([]string{command}, args...), onStdout, onStderr)

	mu.Lock()
	resp := latest
	diagnostic := strings.TrimSpace(strings.Join(tail, "\n"))
	mu.Unlock()

	if runErr != nil {
		if errors.Is(runErr, services.ErrWorkerLaunch) {
			return nil, runErr
		}
		if ctxErr := runCtx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return resp, services.Wrap(services.ErrWorkerTimeout, "worker", command, "command exceeded its time budget", ctxErr)
			}
			// Cancellation (daemon shutdown) propagates untouched so the
			// caller can leave the job alone instead of failing it.
			return resp, ctxErr
		}
	}

	if resp == nil {
		c.logger.Error("worker exited without a response",
			logging.String(logging.FieldCommand, command),
			logging.String("stderr", diagnostic),
			logging.Error(runErr))
		return nil, services.Wrap(services.ErrWorkerSilent, "worker", command, "worker exited without a response", runErr)
	}

	if runErr != nil && diagnostic != "" {
		// The process failed after speaking; the parsed response stays
		// authoritative but the stderr tail may explain the exit.
		c.logger.Debug("worker exit error after protocol output",
			logging.String(logging.FieldCommand, command),
			logging.String("stderr", diagnostic),
			logging.Error(runErr))
	}
	return resp, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrWorkerLaunch, "worker", "start", "failed to start worker process", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan worker output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait worker: %w", err)
	}
	return nil
}
