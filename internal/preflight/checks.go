package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"deckhand/internal/auth"
	"deckhand/internal/config"
)

// CheckWorkerBinary verifies that the worker executable is resolvable. Bare
// command names are searched on PATH; explicit paths are checked directly.
func CheckWorkerBinary(command string) Result {
	result := Result{
		Name:        "Worker binary",
		Description: "Drives the remote notebook service",
	}
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		result.Detail = "command not configured"
		return result
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", cmd)
		return result
	}
	result.Passed = true
	result.Detail = resolved
	return result
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, description, path string) Result {
	result := Result{Name: name, Description: description}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Detail = fmt.Sprintf("%s (error: does not exist)", path)
			return result
		}
		result.Detail = fmt.Sprintf("%s (error: stat: %v)", path, err)
		return result
	}
	if !info.IsDir() {
		result.Detail = fmt.Sprintf("%s (error: is not a directory)", path)
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		result.Detail = fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("%s (read/write ok)", path)
	return result
}

// CheckCredentials reports whether stored worker credentials look usable.
// The check is optional: the daemon runs without credentials, jobs simply
// fail their auth preflight until someone logs in.
func CheckCredentials(ctx context.Context, cfg *config.Config) Result {
	result := Result{
		Name:        "Worker credentials",
		Description: "Stored browser session for the notebook service",
		Optional:    true,
	}
	provider := auth.NewFileProvider(cfg)
	fresh, reason := provider.Fresh(ctx)
	if !fresh {
		result.Detail = reason
		return result
	}
	result.Passed = true
	result.Detail = provider.Path()
	return result
}
