package manager

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-runewidth"
)

// UIOptions controls the selector behavior (used by the Bubble Tea TUI).
type UIOptions struct {
	InitialQuery string
	Theme        Theme

	// LaunchInTmux opens the chosen profile in a new tmux window instead of
	// handing the terminal over.
	LaunchInTmux bool
}

// formatProfileLine renders a one-liner for the selector list, clipped to
// width display cells (0 means unlimited).
func formatProfileLine(p Profile, width int) string {
	parts := []string{p.Name}
	if p.Host != "" && p.Host != p.Name {
		parts = append(parts, p.Host)
	}
	if p.Description != "" && p.Description != p.Host {
		parts = append(parts, "("+p.Description+")")
	}
	if p.IsTemplate {
		parts = append(parts, "[template]")
	}
	line := strings.Join(parts, " ")
	if width > 0 && runewidth.StringWidth(line) > width {
		line = runewidth.Truncate(line, width, "…")
	}
	return line
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// WriteProfileList prints the grouped list for non-interactive use. states
// may be nil.
func WriteProfileList(w io.Writer, list DisplayList, states map[string]PingState, t Theme) error {
	nameWidth := 0
	for _, g := range list.Groups {
		for _, p := range list.Buckets[g] {
			nameWidth = max(nameWidth, runewidth.StringWidth(p.Name))
		}
	}
	nameWidth = min(nameWidth, 40)

	for i, g := range list.Groups {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, t.GroupText(g)); err != nil {
			return err
		}
		for _, p := range list.Buckets[g] {
			st, known := states[p.Key()]
			name := padRight(runewidth.Truncate(p.Name, nameWidth, "…"), nameWidth)
			detail := strings.TrimSpace(strings.TrimPrefix(formatProfileLine(p, 0), p.Name))
			_, err := fmt.Fprintf(w, "  %s %s %s %s %s\n",
				t.ProfileMarker(p), name, t.SeparatorRune(), t.PingBadge(st, known), t.DimText(detail))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// RestoreTerminalForExec best-effort restores a sane terminal state before a
// launched command takes over the terminal.
func RestoreTerminalForExec() {
	// Show cursor, reset attributes.
	_, _ = fmt.Fprint(os.Stdout, "\033[?25h\033[0m")

	sttyPath, err := exec.LookPath("stty")
	if err != nil {
		return
	}
	cmd := exec.Command(sttyPath, "sane")
	// Prefer controlling terminal so we don't break piped executions.
	if tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0); err == nil {
		defer tty.Close()
		cmd.Stdin = tty
	} else {
		cmd.Stdin = os.Stdin
	}
	_ = cmd.Run()
}
