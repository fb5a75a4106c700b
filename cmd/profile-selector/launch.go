package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"

	"profile-selector/pkg/manager"
)

// runLaunch runs spec attached to this terminal. Interactive terminals get
// the command under a PTY sized like ours; otherwise stdio is passed through.
func runLaunch(ctx context.Context, spec manager.LaunchSpec, logger *log.Logger) error {
	if len(spec.Argv) == 0 {
		return errors.New("empty command")
	}
	manager.RestoreTerminalForExec()
	flushTTYInput()
	manager.Logf(logger, "[SELECTOR] launch %s: %s", spec.Title, spec.CommandLine())

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		return cmd.Run()
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		if errors.Is(err, pty.ErrUnsupported) {
			cmd = exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
			cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
			return cmd.Run()
		}
		return fmt.Errorf("pty start: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	stop := watchPTYResize(ptmx)
	defer stop()

	fd := int(os.Stdin.Fd())
	if old, err := term.MakeRaw(fd); err == nil {
		defer func() { _ = term.Restore(fd, old) }()
	}

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()
	// Returns when the child closes its side of the PTY.
	_, _ = io.Copy(os.Stdout, ptmx)

	return cmd.Wait()
}

// exitCode maps a launch error to a process exit status.
func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if status, ok := ee.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}
	return 1
}
