package manager

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSSHConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSSHConfig_LiteralHostsAndIncludes(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "config")
	writeSSHConfig(t, main, `
Include conf.d/*.conf

Host prod-db-1 prod-db-2
  HostName 10.0.0.5
  User postgres # trailing comment
  Port 2222
  ProxyJump ops@bastion:22,other

Host *.internal !skip
  User nobody

Match host foo
  User ignored

Host rtr
`)
	writeSSHConfig(t, filepath.Join(dir, "conf.d", "extra.conf"), `
Host extra
  HostName=extra.example.com
`)

	entries, err := LoadSSHConfig(main)
	if err != nil {
		t.Fatalf("LoadSSHConfig: %v", err)
	}

	byAlias := map[string]SSHHostEntry{}
	var order []string
	for _, e := range entries {
		byAlias[e.Alias] = e
		order = append(order, e.Alias)
	}
	want := []string{"extra", "prod-db-1", "prod-db-2", "rtr"}
	if len(order) != len(want) {
		t.Fatalf("expected aliases %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected aliases %v, got %v", want, order)
		}
	}

	db := byAlias["prod-db-1"]
	if db.HostName != "10.0.0.5" || db.User != "postgres" || db.Port != 2222 {
		t.Fatalf("unexpected entry %+v", db)
	}
	if got := byAlias["extra"].HostName; got != "extra.example.com" {
		t.Fatalf("expected included HostName, got %q", got)
	}
}

func TestLoadSSHConfig_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeSSHConfig(t, a, "Include b\nHost one\n")
	writeSSHConfig(t, b, "Include a\nHost two\n")

	entries, err := LoadSSHConfig(a)
	if err != nil {
		t.Fatalf("LoadSSHConfig: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
}

func TestLoadSSHConfig_NoPaths(t *testing.T) {
	if _, err := LoadSSHConfig(); err == nil {
		t.Fatalf("expected error with no paths")
	}
}

func TestSSHProfiles(t *testing.T) {
	profiles := SSHProfiles([]SSHHostEntry{
		{Alias: "prod", HostName: "10.0.0.5", User: "ops", Port: 2222, ProxyJump: "ops@bastion:22,other"},
		{Alias: "bare"},
	})
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	p := profiles[0]
	if p.ID != "ssh:config:prod" || p.Type != "ssh" || p.Name != "prod" {
		t.Fatalf("unexpected identity %+v", p)
	}
	if p.Group.String() != ImportedSSHGroup {
		t.Fatalf("expected imported group, got %q", p.Group.String())
	}
	if p.Host() != "10.0.0.5" || p.Port() != 2222 || p.Option("user") != "ops" || p.Option("jump") != "ops@bastion" {
		t.Fatalf("unexpected options %+v", p.Options)
	}
	if profiles[1].Host() != "bare" {
		t.Fatalf("expected alias as host fallback, got %q", profiles[1].Host())
	}
}

func TestNormalizeProxyJump(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"none":               "",
		"bastion":            "bastion",
		"ops@bastion:2222":   "ops@bastion",
		"a:22,b:22":          "a",
		"user@[2001:db8::1]": "user@[2001:db8::1]",
	}
	for in, want := range cases {
		if got := normalizeProxyJump(in); got != want {
			t.Errorf("normalizeProxyJump(%q) = %q, want %q", in, got, want)
		}
	}
}
