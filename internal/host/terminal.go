package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
)

// Terminal spawns shell commands. Commands run in the background and outlive the
// request that started them; their output goes to the configured writers.
type Terminal struct {
	shell  string
	stdout io.Writer
	stderr io.Writer
}

// NewTerminal creates a Terminal using $SHELL, or /bin/sh when it is unset.
func NewTerminal() *Terminal {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Terminal{shell: shell, stdout: os.Stdout, stderr: os.Stderr}
}

// Run starts command and returns once it has been spawned.
func (t *Terminal) Run(ctx context.Context, command string) error {
	logger := contextutil.LoggerFromContext(ctx)

	cmd := exec.Command(t.shell, "-c", command)
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", command, err)
	}
	logger.InfoContext(ctx, "spawned command", "command", command, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("command failed", "command", command, "error", err)
			return
		}
		logger.Info("command finished", "command", command)
	}()
	return nil
}
