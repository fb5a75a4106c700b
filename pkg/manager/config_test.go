package manager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigValidate_RejectsUnnamedGroup(t *testing.T) {
	cfg := &Config{
		Groups: []Group{{ID: "g1"}},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Fatalf("expected name validation error, got: %v", err)
	}
}

func TestConfigValidate_RejectsDuplicateGroupID(t *testing.T) {
	cfg := &Config{
		Groups: []Group{
			{ID: "g1", Name: "Work"},
			{ID: "g1", Name: "Home"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate group id") {
		t.Fatalf("expected duplicate id error, got: %v", err)
	}
}

func TestParseConfig_YAMLGroupRefShapes(t *testing.T) {
	data := []byte(`
groups:
  - id: 7
    name: Work
profiles:
  - name: a
    type: ssh
    group: 7
    options: {host: 10.0.0.1}
  - name: b
    type: ssh
    group: {id: g2, name: Lab}
  - name: c
    type: local
`)
	cfg, err := ParseConfig(data, "profiles.yaml")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if got := cfg.Groups[0].ID.String(); got != "7" {
		t.Fatalf("expected numeric group id decoded as \"7\", got %q", got)
	}
	if g := cfg.Profiles[0].Group; g.Kind != GroupRefValue || g.Value != "7" {
		t.Fatalf("expected scalar ref 7, got %+v", g)
	}
	if g := cfg.Profiles[1].Group; g.Kind != GroupRefObject || g.ID != "g2" || g.Name != "Lab" {
		t.Fatalf("expected object ref {g2 Lab}, got %+v", g)
	}
	if !cfg.Profiles[2].Group.IsZero() {
		t.Fatalf("expected absent ref, got %+v", cfg.Profiles[2].Group)
	}
	if got := cfg.Profiles[0].Host(); got != "10.0.0.1" {
		t.Fatalf("expected host 10.0.0.1, got %q", got)
	}
}

func TestConfigSave_AssignsIDsAndRoundTrips(t *testing.T) {
	for _, name := range []string{"profiles.yaml", "profiles.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := NewConfig(path)
			cfg.Groups = []Group{{ID: "g1", Name: "Work"}}
			cfg.Profiles = []RawProfile{
				{Type: "ssh", Name: "box", Group: GroupValue("g1"), Options: map[string]any{"host": "h1", "port": 2222}},
				{Name: "untyped", Group: GroupObject("", "Lab")},
			}

			if err := cfg.Save(); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if !strings.HasPrefix(cfg.Profiles[0].ID, "ssh:custom:") {
				t.Fatalf("expected ssh:custom: id, got %q", cfg.Profiles[0].ID)
			}
			if !strings.HasPrefix(cfg.Profiles[1].ID, "profile:custom:") {
				t.Fatalf("expected profile:custom: id for untyped entry, got %q", cfg.Profiles[1].ID)
			}

			loaded, used, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if used != path {
				t.Fatalf("expected path %q, got %q", path, used)
			}
			if len(loaded.Profiles) != 2 {
				t.Fatalf("expected 2 profiles, got %d", len(loaded.Profiles))
			}
			p := loaded.Profiles[0]
			if p.ID != cfg.Profiles[0].ID || p.Group.String() != "g1" || p.Port() != 2222 {
				t.Fatalf("unexpected round trip: %+v", p)
			}
			if g := loaded.Profiles[1].Group; g.Kind != GroupRefObject || g.Name != "Lab" {
				t.Fatalf("expected object group ref to survive, got %+v", g)
			}
		})
	}
}

func TestConfigSave_NoPath(t *testing.T) {
	cfg := &Config{Profiles: []RawProfile{{Name: "x"}}}
	if err := cfg.Save(); err == nil {
		t.Fatalf("expected error saving a store without a path")
	}
	if cfg.Profiles[0].ID == "" {
		t.Fatalf("expected ids to be assigned even without a path")
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	t.Setenv(configEnvVar, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != ErrConfigNotFound {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestConfigPolicyAndPlugins(t *testing.T) {
	off := false
	cfg := &Config{
		ProfileBlacklist: []string{"local:default"},
		Terminal:         TerminalSettings{ShowBuiltinProfiles: &off},
	}
	pol := cfg.Policy()
	if pol.ShowBuiltin {
		t.Fatalf("expected ShowBuiltin=false")
	}
	if len(pol.Blacklist) != 1 || pol.Blacklist[0] != "local:default" {
		t.Fatalf("unexpected blacklist: %v", pol.Blacklist)
	}

	if cfg.PluginSettings("x") != nil {
		t.Fatalf("expected nil settings for unknown namespace")
	}
	cfg.SetPluginSetting("x", "k", true)
	if v := cfg.PluginSettings("x")["k"]; v != true {
		t.Fatalf("expected plugin setting to be stored, got %v", v)
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.yaml")
	if err := writeFileAtomic(path, []byte("a: 1\n")); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "f.yaml" {
		t.Fatalf("expected only f.yaml, got %v", entries)
	}
}

func TestParseConfig_DerivesStableIDs(t *testing.T) {
	data := []byte(`
profiles:
  - {type: ssh, name: web, options: {host: 10.0.0.5}}
  - {type: ssh, name: web, options: {host: 10.0.0.5}}
  - {name: bare}
  - {id: keep, type: ssh, name: other}
`)
	a, err := ParseConfig(data, "profiles.yaml")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	b, err := ParseConfig(data, "profiles.yaml")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	seen := map[string]bool{}
	for i := range a.Profiles {
		id := a.Profiles[i].ID
		if id == "" || id != b.Profiles[i].ID {
			t.Fatalf("profile %d: expected a stable id, got %q and %q", i, id, b.Profiles[i].ID)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if !strings.HasPrefix(a.Profiles[0].ID, "ssh:custom:") || !strings.HasPrefix(a.Profiles[2].ID, "profile:custom:") {
		t.Fatalf("unexpected id prefixes: %q %q", a.Profiles[0].ID, a.Profiles[2].ID)
	}
	if a.Profiles[3].ID != "keep" {
		t.Fatalf("expected explicit id to survive, got %q", a.Profiles[3].ID)
	}
}
