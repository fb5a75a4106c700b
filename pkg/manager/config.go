// Package manager contains the profile store, the grouping and search pipeline,
// and the reachability monitor for profile-selector.
package manager

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config represents the profile store document.
//
// Example YAML:
//
// groups:
//   - id: 4f6c...
//     name: Work
//
// profiles:
//   - id: ssh:custom:9a1e...
//     type: ssh
//     name: build box
//     group: 4f6c...
//     color: "#3b82f6"
//     options:
//       host: 10.0.0.5
//       user: ci
//
// profileBlacklist: [local:default]
// terminal:
//   showBuiltinProfiles: true
type Config struct {
	Groups           []Group          `yaml:"groups,omitempty" toml:"groups,omitempty"`
	Profiles         []RawProfile     `yaml:"profiles,omitempty" toml:"profiles,omitempty"`
	ProfileBlacklist []string         `yaml:"profileBlacklist,omitempty" toml:"profileBlacklist,omitempty"`
	Terminal         TerminalSettings `yaml:"terminal,omitempty" toml:"terminal,omitempty"`

	// ImportSSHConfig adds literal Host aliases from the OpenSSH client config
	// as read-only profiles in the "Imported SSH config" group.
	ImportSSHConfig bool     `yaml:"importSSHConfig,omitempty" toml:"importSSHConfig,omitempty"`
	SSHConfigPaths  []string `yaml:"sshConfigPaths,omitempty" toml:"sshConfigPaths,omitempty"`

	// Plugins is a free-form namespace for per-plugin preferences.
	Plugins map[string]map[string]any `yaml:"plugins,omitempty" toml:"plugins,omitempty"`

	path    string
	written []byte
}

// Group is a registry entry. Profiles reference groups by id or by name.
type Group struct {
	ID   LooseString `yaml:"id,omitempty" toml:"id,omitempty"`
	Name string      `yaml:"name" toml:"name"`
}

// TerminalSettings holds display policy switches.
type TerminalSettings struct {
	ShowBuiltinProfiles *bool `yaml:"showBuiltinProfiles,omitempty" toml:"showBuiltinProfiles,omitempty"`
}

// LooseString accepts any scalar (string, number, bool) and keeps its textual form.
// Group ids written by hand are often bare numbers.
type LooseString string

func (s *LooseString) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar id", n.Line)
	}
	*s = LooseString(n.Value)
	return nil
}

func (s *LooseString) UnmarshalTOML(v any) error {
	*s = LooseString(fmt.Sprint(v))
	return nil
}

func (s LooseString) String() string { return string(s) }

// ErrConfigNotFound is returned when no configuration file can be located.
var ErrConfigNotFound = errors.New("config not found")

var errNoConfigPath = errors.New("config has no backing file")

const (
	defaultConfigDirName  = "profile-selector"
	defaultConfigFilename = "profiles.yaml"
	configEnvVar          = "PROFILE_SELECTOR_CONFIG"
)

// NewConfig returns an empty store bound to path. Save creates the file.
func NewConfig(path string) *Config {
	return &Config{path: expandPath(path)}
}

// LoadConfig discovers and loads the profile store.
// If explicitPath is empty, it searches common locations in order:
// 1. $PROFILE_SELECTOR_CONFIG
// 2. $XDG_CONFIG_HOME/profile-selector/profiles.yaml
// 3. ~/.config/profile-selector/profiles.yaml
//
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Returns the parsed Config and the path that was used.
func LoadConfig(explicitPath string) (*Config, string, error) {
	candidates := ConfigPathCandidates(explicitPath)
	var lastErr error
	for _, p := range candidates {
		p = expandPath(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			lastErr = err
			continue
		}
		cfg, err := ParseConfig(data, p)
		if err != nil {
			return nil, p, err
		}
		return cfg, p, nil
	}
	if lastErr == nil || errors.Is(lastErr, os.ErrNotExist) {
		lastErr = ErrConfigNotFound
	}
	return nil, "", lastErr
}

// ParseConfig decodes data (format chosen by the extension of path) and validates it.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if isTOMLPath(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse toml %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.path = path
	cfg.ensureProfileIDs()
	return &cfg, nil
}

// ConfigPathCandidates returns possible configuration file paths, in priority order.
// If explicitPath is provided, it is returned first (expanded).
func ConfigPathCandidates(explicitPath string) []string {
	var out []string
	if explicitPath != "" {
		out = append(out, explicitPath)
	}
	if env := os.Getenv(configEnvVar); env != "" {
		out = append(out, env)
	}
	if dir, err := DefaultConfigDir(); err == nil {
		out = append(out, filepath.Join(dir, defaultConfigFilename))
	}
	return out
}

// DefaultConfigPath is where a fresh store is created when none exists yet.
func DefaultConfigPath() (string, error) {
	if env := strings.TrimSpace(os.Getenv(configEnvVar)); env != "" {
		return expandPath(env), nil
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultConfigFilename), nil
}

// Path returns the backing file, or "" for an in-memory store.
func (c *Config) Path() string { return c.path }

// Validate performs basic sanity checks on the configuration.
//
// - Group names must be non-empty.
// - Group ids must be unique when present.
// - Blacklist entries must be non-empty.
//
// Profile group references are deliberately not checked: stale ids and renamed
// groups are resolved (or passed through) at display time.
func (c *Config) Validate() error {
	seenIDs := map[string]struct{}{}
	for i, g := range c.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("groups[%d]: name is required", i)
		}
		id := strings.TrimSpace(string(g.ID))
		if id == "" {
			continue
		}
		if _, dup := seenIDs[id]; dup {
			return fmt.Errorf("groups[%d]: duplicate group id %q", i, id)
		}
		seenIDs[id] = struct{}{}
	}
	for i, id := range c.ProfileBlacklist {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("profileBlacklist[%d]: empty id", i)
		}
	}
	return nil
}

// ShowBuiltin reports whether built-in profiles should be listed (default true).
func (c *Config) ShowBuiltin() bool {
	if c.Terminal.ShowBuiltinProfiles == nil {
		return true
	}
	return *c.Terminal.ShowBuiltinProfiles
}

// Policy derives the normalization filter policy from the store.
func (c *Config) Policy() Policy {
	return Policy{
		ShowBuiltin: c.ShowBuiltin(),
		Blacklist:   append([]string(nil), c.ProfileBlacklist...),
	}
}

// Registry returns a snapshot of the group registry.
func (c *Config) Registry() []Group {
	return append([]Group(nil), c.Groups...)
}

// PluginSettings returns the namespace map for a plugin, or nil.
func (c *Config) PluginSettings(ns string) map[string]any {
	if c.Plugins == nil {
		return nil
	}
	return c.Plugins[ns]
}

// SetPluginSetting stores key=val under the plugin namespace.
func (c *Config) SetPluginSetting(ns, key string, val any) {
	if c.Plugins == nil {
		c.Plugins = map[string]map[string]any{}
	}
	if c.Plugins[ns] == nil {
		c.Plugins[ns] = map[string]any{}
	}
	c.Plugins[ns][key] = val
}

// Save assigns ids to stored profiles that lack one and writes the document
// atomically. The parent directory is created with 0700 permissions if missing.
func (c *Config) Save() error {
	c.ensureProfileIDs()
	if strings.TrimSpace(c.path) == "" {
		return errNoConfigPath
	}

	var payload []byte
	if isTOMLPath(c.path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		payload = buf.Bytes()
	} else {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_ = enc.Close()
		payload = buf.Bytes()
	}
	if err := writeFileAtomic(c.path, payload); err != nil {
		return err
	}
	c.written = payload
	return nil
}

// wroteBytes reports whether data is exactly what the last Save wrote.
func (c *Config) wroteBytes(data []byte) bool {
	return c.written != nil && bytes.Equal(c.written, data)
}

// ensureProfileIDs gives every stored profile without an id one derived from
// its type, name and host. Parsing the same file twice yields the same keys.
func (c *Config) ensureProfileIDs() {
	used := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		if id := strings.TrimSpace(p.ID); id != "" {
			used[id] = true
		}
	}
	seen := map[string]int{}
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if strings.TrimSpace(p.ID) != "" {
			continue
		}
		typ := strings.TrimSpace(p.Type)
		if typ == "" {
			typ = "profile"
		}
		name := strings.Join([]string{typ, p.Name, p.Host()}, "\x00")
		n := seen[name]
		seen[name]++
		id := typ + ":custom:" + uuid.NewSHA1(profileIDNamespace, []byte(fmt.Sprintf("%s\x00%d", name, n))).String()
		if used[id] {
			id = typ + ":custom:" + uuid.NewString()
		}
		used[id] = true
		p.ID = id
	}
}

var profileIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("profile-selector:profile"))

// writeFileAtomic writes payload next to path and renames it into place.
func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp := path + fmt.Sprintf(".tmp-%d-%d", os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename to %s: %w", path, err)
	}
	return nil
}

func isTOMLPath(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".toml")
}

// expandPath expands leading "~" and environment variables in a path.
// If the input is empty, returns "".
func expandPath(p string) string {
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		home, _ := os.UserHomeDir()
		if home != "" {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
