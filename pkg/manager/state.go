package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Persistent local state for profile-selector.
// Stores recents and the fallback copy of the ping preferences in a JSON file:
//
//   ~/.config/profile-selector/state.json
//
// On systems honoring XDG, $XDG_CONFIG_HOME is used instead of ~/.config.
//
// The profile store (profiles.yaml) stays the authoritative home for
// preferences; this file is only written when the store cannot be.

const (
	defaultStateFilename = "state.json"

	defaultRecentsLimit = 20
)

// State represents the on-disk JSON structure.
// Keep fields stable for backward compatibility.
type State struct {
	// Version allows future migrations.
	Version int `json:"version,omitempty"`

	// Recents stores a most-recently-used list of profile keys.
	// The first element is the most recent.
	Recents []string `json:"recents,omitempty"`

	// PingEnabled caches per-profile-key polling preferences.
	PingEnabled map[string]bool `json:"ping_enabled,omitempty"`

	// Updated tracks the last update time in RFC3339.
	Updated string `json:"updated,omitempty"`
}

// DefaultConfigDir returns the directory path for this application's config.
// Precedence:
//  1. $XDG_CONFIG_HOME/profile-selector
//  2. ~/.config/profile-selector
func DefaultConfigDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, defaultConfigDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", defaultConfigDirName), nil
}

// DefaultStatePath returns the full path to the state.json file.
func DefaultStatePath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultStateFilename), nil
}

// LoadState reads the state JSON from path. If path is empty, the default path is used.
// If the file does not exist, it returns an empty state and nil error.
func LoadState(path string) (*State, error) {
	if strings.TrimSpace(path) == "" {
		var err error
		path, err = DefaultStatePath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Missing state is not an error; return empty state
			return &State{Version: 1}, nil
		}
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}

	if st.Version == 0 {
		st.Version = 1
	}
	st.ensureUnique()

	return &st, nil
}

// SaveState writes the state JSON to path atomically.
// If path is empty, the default path is used.
func SaveState(path string, st *State) error {
	if st == nil {
		return errors.New("nil state")
	}
	if strings.TrimSpace(path) == "" {
		var err error
		path, err = DefaultStatePath()
		if err != nil {
			return err
		}
	}

	st2 := *st
	st2.Updated = time.Now().UTC().Format(time.RFC3339)
	st2.Recents = append([]string(nil), st.Recents...)
	st2.ensureUnique()
	payload, err := json.MarshalIndent(st2, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	payload = append(payload, '\n')
	return writeFileAtomic(path, payload)
}

// AddRecent moves key to the front of Recents (if already present) or inserts it.
// Caps the list to defaultRecentsLimit.
// Returns true if the state was modified.
func (s *State) AddRecent(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if len(s.Recents) > 0 && s.Recents[0] == key {
		return false
	}
	out := make([]string, 0, len(s.Recents)+1)
	out = append(out, key)
	for _, n := range s.Recents {
		if n != key {
			out = append(out, n)
		}
	}
	if len(out) > defaultRecentsLimit {
		out = out[:defaultRecentsLimit]
	}
	s.Recents = out
	return true
}

// RemoveRecent removes key from Recents. Returns true if modified.
func (s *State) RemoveRecent(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" || len(s.Recents) == 0 {
		return false
	}
	out := s.Recents[:0]
	removed := false
	for _, n := range s.Recents {
		if n == key {
			removed = true
			continue
		}
		out = append(out, n)
	}
	s.Recents = out
	return removed
}

// PruneRecents caps the Recents list to the given limit (or default if <= 0).
// Returns true if the state was modified.
func (s *State) PruneRecents(limit int) bool {
	if limit <= 0 {
		limit = defaultRecentsLimit
	}
	if len(s.Recents) <= limit {
		return false
	}
	s.Recents = s.Recents[:limit]
	return true
}

// SetPingPrefs replaces the cached polling preferences.
func (s *State) SetPingPrefs(prefs map[string]bool) {
	s.PingEnabled = maps.Clone(prefs)
}

// ensureUnique de-duplicates entries and cleans empty strings.
func (s *State) ensureUnique() {
	if len(s.Recents) == 0 {
		return
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(s.Recents))
	for _, n := range s.Recents {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) > defaultRecentsLimit {
		out = out[:defaultRecentsLimit]
	}
	s.Recents = out
}

// StateFile serializes access to a State and its file. Recents and the ping
// preference cache share one file, so all writers go through here.
type StateFile struct {
	Path string

	mu sync.Mutex
	st *State
}

// OpenStateFile loads the state at path (default path when empty).
func OpenStateFile(path string) (*StateFile, error) {
	st, err := LoadState(path)
	if err != nil {
		return nil, err
	}
	return &StateFile{Path: path, st: st}, nil
}

// NewStateFile wraps an in-memory state; Update still writes to path.
func NewStateFile(path string, st *State) *StateFile {
	if st == nil {
		st = &State{Version: 1}
	}
	return &StateFile{Path: path, st: st}
}

// Read calls fn with the state under the lock. fn must not retain it.
func (f *StateFile) Read(fn func(*State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.st)
}

// Update applies fn and saves when fn reports a change.
func (f *StateFile) Update(fn func(*State) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !fn(f.st) {
		return nil
	}
	return SaveState(f.Path, f.st)
}
