package manager

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// tmuxwrap.go
//
// Socket-aware tmux command runner.
//
// The TMUX environment variable contains the server socket path plus metadata:
//
//	TMUX=/private/tmp/tmux-502/default,35218,0
//
// The socket path is the portion before the first comma. Using `tmux -S <socket>`
// forces commands to the server the selector was started from.

var ErrNotInTmux = errors.New("not in tmux")

// TmuxSocketPathFromEnv parses $TMUX and returns the socket path portion.
// If TMUX is empty or malformed, returns "".
func TmuxSocketPathFromEnv() string {
	t := strings.TrimSpace(os.Getenv("TMUX"))
	if t == "" {
		return ""
	}
	if i := strings.IndexByte(t, ','); i >= 0 {
		return t[:i]
	}
	return t
}

// InTmux reports whether the process runs inside a tmux client.
func InTmux() bool {
	return TmuxSocketPathFromEnv() != ""
}

// TmuxCmd creates an exec.Cmd to run tmux with socket-awareness when possible.
func TmuxCmd(args ...string) (*exec.Cmd, error) {
	if len(args) == 0 {
		return nil, errors.New("tmux: empty args")
	}
	full := make([]string, 0, len(args)+2)
	if socket := TmuxSocketPathFromEnv(); socket != "" {
		full = append(full, "-S", socket)
	}
	full = append(full, args...)
	cmd := exec.Command("tmux", full...)
	cmd.Stdin = nil
	return cmd, nil
}

// TmuxOutput runs a tmux command and returns stdout (trimmed) or an error containing stderr.
func TmuxOutput(args ...string) (string, error) {
	cmd, err := TmuxCmd(args...)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return "", fmt.Errorf("tmux %s: %s", strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// TmuxRun runs a tmux command and returns a rich error message on failure.
func TmuxRun(args ...string) error {
	_, err := TmuxOutput(args...)
	return err
}

// tmuxNewWindowArgs builds the new-window invocation for spec.
func tmuxNewWindowArgs(spec LaunchSpec) []string {
	args := []string{"new-window"}
	if spec.Title != "" {
		args = append(args, "-n", spec.Title)
	}
	return append(args, spec.CommandLine())
}

// OpenTmuxWindow runs spec in a new window of the current tmux session.
func OpenTmuxWindow(spec LaunchSpec) error {
	if !InTmux() {
		return ErrNotInTmux
	}
	if len(spec.Argv) == 0 {
		return errors.New("tmux: empty command")
	}
	return TmuxRun(tmuxNewWindowArgs(spec)...)
}

// LaunchSpec is a resolved command for a profile.
type LaunchSpec struct {
	Argv  []string
	Title string
}

// CommandLine renders Argv as a single shell-quoted string.
func (s LaunchSpec) CommandLine() string {
	return shellescape.QuoteCommand(s.Argv)
}
