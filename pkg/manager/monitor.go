package manager

import (
	"context"
	"log"
	"maps"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPingInterval is the delay between probes of one profile.
const DefaultPingInterval = 60 * time.Second

// PingStatus is the reachability state of one profile.
type PingStatus int

const (
	PingUnknown PingStatus = iota
	PingTesting
	PingUp
	PingDown
)

func (s PingStatus) String() string {
	switch s {
	case PingTesting:
		return "testing"
	case PingUp:
		return "up"
	case PingDown:
		return "down"
	default:
		return "unknown"
	}
}

// PingState is a snapshot of one profile's reachability.
type PingState struct {
	Enabled   bool
	Status    PingStatus
	LatencyMs *int
}

// MonitorOptions configures a Monitor. Zero values pick defaults.
type MonitorOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	Prober   Prober
	Prefs    PrefStore
	Logger   *log.Logger

	// Limiter paces probe starts across all profiles. Nil allows 20/s.
	Limiter *rate.Limiter

	// OnChange is called, outside any lock, after a key's state changes.
	// It must not block for long: probe goroutines call it.
	OnChange func(key string, st PingState)
}

type pingEntry struct {
	host   string
	state  PingState
	gen    uint64
	cancel context.CancelFunc
}

// Monitor polls the reachability of scheduled profiles. Each armed key owns
// one goroutine that probes immediately and then once per interval; probes
// for a key never overlap. Results are dropped when the key was disabled or
// re-armed while the probe was in flight.
type Monitor struct {
	opts MonitorOptions

	ctx      context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*pingEntry
	prefs   map[string]bool
	gen     uint64
}

// NewMonitor returns a monitor with preferences loaded from opts.Prefs.
func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPingInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.Prober == nil {
		opts.Prober = SystemPinger{}
	}
	if opts.Prefs == nil {
		opts.Prefs = &memoryPrefs{}
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Limit(20), 5)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		opts:     opts,
		ctx:      ctx,
		shutdown: cancel,
		entries:  map[string]*pingEntry{},
	}
	m.prefs = m.loadPrefs()
	return m
}

func (m *Monitor) loadPrefs() map[string]bool {
	p := m.opts.Prefs.LoadPingPrefs()
	if p == nil {
		p = map[string]bool{}
	}
	return p
}

// ReloadPreferences re-reads the preference map, e.g. after the store changed
// on disk. Armed keys are not touched; call ResetAll and Schedule to apply.
func (m *Monitor) ReloadPreferences() {
	p := m.loadPrefs()
	m.mu.Lock()
	m.prefs = p
	m.mu.Unlock()
}

func (m *Monitor) enabledLocked(key string) bool {
	v, ok := m.prefs[key]
	return !ok || v
}

// Schedule starts polling p unless it is already armed for the same host.
// A key with no host or a disabled preference is disarmed instead.
func (m *Monitor) Schedule(p Profile) {
	key, host := p.Key(), p.Host

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	e := m.entries[key]
	if e == nil {
		e = &pingEntry{}
		m.entries[key] = e
	}
	e.state.Enabled = m.enabledLocked(key)
	if host == "" || !e.state.Enabled {
		m.disarmLocked(e)
		st := e.state
		m.mu.Unlock()
		m.notify(key, st)
		return
	}
	if e.cancel != nil {
		if e.host == host {
			m.mu.Unlock()
			return
		}
		m.disarmLocked(e)
	}
	m.armLocked(key, host, e)
	m.mu.Unlock()
}

func (m *Monitor) armLocked(key, host string, e *pingEntry) {
	m.gen++
	ctx, cancel := context.WithCancel(m.ctx)
	e.host = host
	e.gen = m.gen
	e.cancel = cancel
	m.wg.Add(1)
	go m.run(ctx, key, host, e.gen)
}

func (m *Monitor) run(ctx context.Context, key, host string, gen uint64) {
	defer m.wg.Done()

	m.probeOnce(ctx, key, host, gen)
	t := time.NewTicker(m.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.probeOnce(ctx, key, host, gen)
		}
	}
}

func (m *Monitor) probeOnce(ctx context.Context, key, host string, gen uint64) {
	if err := m.opts.Limiter.Wait(ctx); err != nil {
		return
	}
	if !m.apply(key, gen, func(st *PingState) { st.Status = PingTesting }) {
		return
	}
	res := m.opts.Prober.Probe(ctx, host, m.opts.Timeout)
	if ctx.Err() != nil {
		return
	}
	m.apply(key, gen, func(st *PingState) {
		if res.Reachable {
			st.Status = PingUp
			st.LatencyMs = res.LatencyMs
		} else {
			st.Status = PingDown
			st.LatencyMs = nil
		}
	})
	Logf(m.opts.Logger, "[PING] %s (%s): reachable=%v", key, host, res.Reachable)
}

// apply mutates the key's state if gen is still the armed generation and the
// key is enabled. It reports whether the change was applied.
func (m *Monitor) apply(key string, gen uint64, fn func(*PingState)) bool {
	m.mu.Lock()
	e := m.entries[key]
	if e == nil || e.gen != gen || e.cancel == nil || !e.state.Enabled {
		m.mu.Unlock()
		return false
	}
	fn(&e.state)
	st := e.state
	m.mu.Unlock()
	m.notify(key, st)
	return true
}

func (m *Monitor) notify(key string, st PingState) {
	if m.opts.OnChange != nil {
		m.opts.OnChange(key, st)
	}
}

// Toggle flips polling for p and persists the preference. Disabling stops
// the key's timer and resets it to Unknown; enabling probes immediately.
// The new state is returned.
func (m *Monitor) Toggle(p Profile) PingState {
	key := p.Key()

	m.mu.Lock()
	enabled := !m.enabledLocked(key)
	m.prefs[key] = enabled
	snapshot := maps.Clone(m.prefs)
	e := m.entries[key]
	if e == nil {
		e = &pingEntry{}
		m.entries[key] = e
	}
	e.state.Enabled = enabled
	if !enabled {
		m.disarmLocked(e)
	}
	st := e.state
	m.mu.Unlock()

	if err := m.opts.Prefs.SavePingPrefs(snapshot); err != nil {
		Logf(m.opts.Logger, "[PING] persist preference for %s: %v", key, err)
	}

	if enabled {
		m.Schedule(p)
		st, _ = m.State(key)
	} else {
		m.notify(key, st)
	}
	return st
}

func (m *Monitor) disarmLocked(e *pingEntry) {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen = 0
	e.state.Status = PingUnknown
	e.state.LatencyMs = nil
}

// Enabled reports the polling preference for key (default true).
func (m *Monitor) Enabled(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabledLocked(key)
}

// State returns a snapshot for key.
func (m *Monitor) State(key string) (PingState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return PingState{Enabled: m.enabledLocked(key)}, false
	}
	return e.state, true
}

// Snapshot returns the states of every known key.
func (m *Monitor) Snapshot() map[string]PingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]PingState, len(m.entries))
	for k, e := range m.entries {
		out[k] = e.state
	}
	return out
}

// ArmedCount returns the number of keys with a live timer.
func (m *Monitor) ArmedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.cancel != nil {
			n++
		}
	}
	return n
}

// ResetAll cancels every timer, clears all per-key state and waits for the
// probe goroutines to exit, so a following Schedule never races a stale timer.
func (m *Monitor) ResetAll() {
	m.mu.Lock()
	for _, e := range m.entries {
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
	}
	m.entries = map[string]*pingEntry{}
	m.mu.Unlock()
	m.wg.Wait()
}

// Close stops the monitor for good.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.shutdown()
	m.mu.Unlock()
	m.ResetAll()
}
