package manager

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// EditorProvider edits a copy of a stored profile. It returns the replacement
// and true when the user confirmed, or false when the edit was cancelled.
type EditorProvider interface {
	Edit(ctx context.Context, p RawProfile, prov Provider) (RawProfile, bool, error)
}

// SelectorOptions wires a Selector.
type SelectorOptions struct {
	Source  ProfileSource
	Store   *Config
	Monitor *Monitor
	Editor  EditorProvider
	Extras  ExtrasStore
	Logger  *log.Logger
}

// Selector owns the normalized profile list. Loads, reloads and mutations
// are serialized; searches read the last loaded snapshot.
type Selector struct {
	source  ProfileSource
	store   *Config
	monitor *Monitor
	editor  EditorProvider
	extras  ExtrasStore
	logger  *log.Logger

	reloads singleflight.Group

	mu       sync.Mutex
	profiles []Profile
}

// NewSelector returns an unloaded selector; call Load before use.
func NewSelector(opts SelectorOptions) *Selector {
	if opts.Store == nil {
		opts.Store = &Config{}
	}
	return &Selector{
		source:  opts.Source,
		store:   opts.Store,
		monitor: opts.Monitor,
		editor:  opts.Editor,
		extras:  opts.Extras,
		logger:  opts.Logger,
	}
}

// Load runs the normalization pipeline and reschedules reachability probes.
func (s *Selector) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Reload is Load for callers that may overlap (file watcher, key press):
// concurrent calls share one pass.
func (s *Selector) Reload(ctx context.Context) error {
	_, err, _ := s.reloads.Do("reload", func() (any, error) {
		return nil, s.Load(ctx)
	})
	return err
}

// ReplaceStore swaps in a freshly parsed store document (keeping the backing
// path) and reloads.
func (s *Selector) ReplaceStore(ctx context.Context, cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.store.path
	*s.store = *cfg
	if s.store.path == "" {
		s.store.path = path
	}
	if s.monitor != nil {
		s.monitor.ReloadPreferences()
	}
	return s.loadLocked(ctx)
}

func (s *Selector) storeWrote(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.wroteBytes(data)
}

func (s *Selector) loadLocked(ctx context.Context) error {
	primary, recent := s.fetch(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	profiles := Normalize(NormalizeInput{
		Primary:  primary,
		Recent:   recent,
		Registry: s.store.Registry(),
		Policy:   s.store.Policy(),
		Source:   s.source,
		Logger:   s.logger,
	})
	s.profiles = profiles

	if s.monitor != nil {
		s.monitor.ResetAll()
		for _, p := range profiles {
			s.monitor.Schedule(p)
		}
	}

	Logf(s.logger, "[SELECTOR] loaded %d profiles in %d groups", len(profiles), len(GroupProfiles(profiles).Groups))
	return nil
}

// fetch retrieves primary and recent profiles concurrently. A failing
// source contributes an empty list.
func (s *Selector) fetch(ctx context.Context) (primary, recent []RawProfile) {
	if s.source == nil {
		return nil, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := safeCall(func() ([]RawProfile, error) { return s.source.Profiles(gctx) })
		if err != nil {
			Logf(s.logger, "[SELECTOR] get profiles: %v", err)
			return nil
		}
		primary = p
		return nil
	})
	g.Go(func() error {
		r, err := safeCall(s.source.RecentProfiles)
		if err != nil {
			Logf(s.logger, "[SELECTOR] get recent profiles: %v", err)
			return nil
		}
		recent = r
		return nil
	})
	_ = g.Wait()
	return primary, recent
}

// safeCall converts a panic in a source call into an error.
func safeCall(fn func() ([]RawProfile, error)) (out []RawProfile, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Profiles returns the last loaded list.
func (s *Selector) Profiles() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.profiles)
}

// Display groups the last loaded list filtered by query.
func (s *Selector) Display(query string) DisplayList {
	return GroupProfiles(SearchProfiles(s.Profiles(), query, s.logger))
}

// Find returns the loaded profile with the given key.
func (s *Selector) Find(key string) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Key() == key {
			return p, true
		}
	}
	return Profile{}, false
}

// Lookup resolves a command-line reference: a profile key, then an exact
// name, then a case-insensitive name.
func (s *Selector) Lookup(ref string) (Profile, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Profile{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Key() == ref {
			return p, true
		}
	}
	for _, p := range s.profiles {
		if p.Name == ref {
			return p, true
		}
	}
	for _, p := range s.profiles {
		if strings.EqualFold(p.Name, ref) {
			return p, true
		}
	}
	return Profile{}, false
}

// Monitor returns the reachability monitor, or nil.
func (s *Selector) Monitor() *Monitor { return s.monitor }

// TogglePing flips polling for p. Preferences persist through the store, so
// the toggle is serialized with mutations.
func (s *Selector) TogglePing(p Profile) PingState {
	if s.monitor == nil {
		return PingState{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.Toggle(p)
}

// Launch resolves p's command through the source.
func (s *Selector) Launch(p Profile) (LaunchSpec, error) {
	if s.source == nil {
		return LaunchSpec{}, ErrNoProvider
	}
	return s.source.Launch(p)
}

// Close stops reachability polling.
func (s *Selector) Close() {
	if s.monitor != nil {
		s.monitor.Close()
	}
}
