package manager

import (
	"context"
	"math"
	"net"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

// DefaultProbeTimeout bounds a single reachability check.
const DefaultProbeTimeout = 2000 * time.Millisecond

// ProbeResult is the outcome of one check. LatencyMs is nil when the host is
// down or the round-trip time could not be read.
type ProbeResult struct {
	Reachable bool
	LatencyMs *int
}

// Prober performs a single reachability check. Implementations never return
// an error: failures are reported as an unreachable result.
type Prober interface {
	Probe(ctx context.Context, host string, timeout time.Duration) ProbeResult
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, host string, timeout time.Duration) ProbeResult

func (f ProberFunc) Probe(ctx context.Context, host string, timeout time.Duration) ProbeResult {
	return f(ctx, host, timeout)
}

// rttPattern matches "time=12.3 ms", "time<1ms" and similar ping output.
var rttPattern = regexp.MustCompile(`(?i)time[=<]\s*([\d.]+)\s*ms`)

// SystemPinger sends one ICMP echo through the system ping utility.
type SystemPinger struct {
	// Path to the ping binary; "ping" from PATH when empty.
	Path string
}

func (s SystemPinger) Probe(ctx context.Context, host string, timeout time.Duration) ProbeResult {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := s.Path
	if bin == "" {
		bin = "ping"
	}
	out, err := exec.CommandContext(ctx, bin, pingArgs(runtime.GOOS, host, timeout)...).CombinedOutput()
	if err != nil {
		// Non-zero exit means no reply (or the deadline killed the process).
		return ProbeResult{}
	}
	return ProbeResult{Reachable: true, LatencyMs: parseRTT(string(out))}
}

func pingArgs(goos, host string, timeout time.Duration) []string {
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	secs := (ms + 999) / 1000
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", strconv.Itoa(ms), host}
	case "darwin", "freebsd", "openbsd", "netbsd":
		// -t is the overall deadline in seconds on BSD ping.
		return []string{"-c", "1", "-t", strconv.Itoa(secs), host}
	default:
		return []string{"-c", "1", "-W", strconv.Itoa(secs), host}
	}
}

// parseRTT extracts the round-trip time in whole milliseconds, if present.
func parseRTT(out string) *int {
	m := rttPattern.FindStringSubmatch(out)
	if len(m) < 2 {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

// TCPProber treats a completed TCP handshake as reachable. It is used where
// ICMP is unavailable (unprivileged containers, some CI runners).
type TCPProber struct {
	// Port dialed when the host carries none. Defaults to 22.
	Port int
}

func (t TCPProber) Probe(ctx context.Context, host string, timeout time.Duration) ProbeResult {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		port := t.Port
		if port <= 0 {
			port = 22
		}
		addr = net.JoinHostPort(host, strconv.Itoa(port))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ProbeResult{}
	}
	_ = conn.Close()
	ms := int(time.Since(start).Round(time.Millisecond) / time.Millisecond)
	return ProbeResult{Reachable: true, LatencyMs: &ms}
}
