package manager

import (
	"fmt"
	"log"
	"maps"
	"sync"
)

const (
	pluginNamespace = "profile-selector"
	pingPrefsKey    = "pingEnabled"
)

// PrefStore loads and persists the per-profile polling preference map.
type PrefStore interface {
	LoadPingPrefs() map[string]bool
	SavePingPrefs(prefs map[string]bool) error
}

// PingPrefs keeps the polling preferences in the profile store's plugin
// namespace, with the local state file as a fallback when the store has no
// backing file or cannot be written.
//
// Config is not locked here; callers serialize it with other store writes.
type PingPrefs struct {
	Config *Config
	State  *StateFile
	Logger *log.Logger
}

// LoadPingPrefs returns the preference map. Precedence: the store's map when
// present and well-formed, then the local cache, then empty (all enabled).
func (p *PingPrefs) LoadPingPrefs() map[string]bool {
	if p.Config != nil {
		if m, ok := pingPrefsFromSettings(p.Config.PluginSettings(pluginNamespace)); ok {
			return m
		}
	}
	out := map[string]bool{}
	if p.State != nil {
		p.State.Read(func(st *State) {
			if st.PingEnabled != nil {
				out = maps.Clone(st.PingEnabled)
			}
		})
	}
	return out
}

// SavePingPrefs writes prefs to the store, falling back to the local cache.
// An error is returned only when both writes fail.
func (p *PingPrefs) SavePingPrefs(prefs map[string]bool) error {
	if p.Config != nil && p.Config.Path() != "" {
		asAny := make(map[string]any, len(prefs))
		for k, v := range prefs {
			asAny[k] = v
		}
		p.Config.SetPluginSetting(pluginNamespace, pingPrefsKey, asAny)
		err := p.Config.Save()
		if err == nil {
			return nil
		}
		Logf(p.Logger, "[PING] save preferences to %s: %v (using local cache)", p.Config.Path(), err)
	}

	if p.State == nil {
		return fmt.Errorf("save ping preferences: %w", errNoConfigPath)
	}
	err := p.State.Update(func(st *State) bool {
		st.SetPingPrefs(prefs)
		return true
	})
	if err != nil {
		Logf(p.Logger, "[PING] save preference cache: %v", err)
		return fmt.Errorf("save ping preferences: %w", err)
	}
	return nil
}

// pingPrefsFromSettings extracts a map of bools. Any non-bool value makes the
// whole map malformed.
func pingPrefsFromSettings(ns map[string]any) (map[string]bool, bool) {
	raw, ok := ns[pingPrefsKey]
	if !ok || raw == nil {
		return nil, false
	}
	switch m := raw.(type) {
	case map[string]bool:
		return maps.Clone(m), true
	case map[string]any:
		out := make(map[string]bool, len(m))
		for k, v := range m {
			b, ok := v.(bool)
			if !ok {
				return nil, false
			}
			out[k] = b
		}
		return out, true
	}
	return nil, false
}

// memoryPrefs is an in-process PrefStore used when nothing is persisted.
type memoryPrefs struct {
	mu sync.Mutex
	m  map[string]bool
}

func (m *memoryPrefs) LoadPingPrefs() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.m)
}

func (m *memoryPrefs) SavePingPrefs(prefs map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m = maps.Clone(prefs)
	return nil
}

// TogglePingPref flips the stored preference for key without a running
// monitor. Keys with no entry count as enabled.
func TogglePingPref(store PrefStore, key string) (bool, error) {
	prefs := store.LoadPingPrefs()
	if prefs == nil {
		prefs = map[string]bool{}
	}
	current := true
	if v, ok := prefs[key]; ok {
		current = v
	}
	enabled := !current
	prefs[key] = enabled
	return enabled, store.SavePingPrefs(prefs)
}
