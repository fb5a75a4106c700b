package manager

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtrasStore_SaveLoadDelete(t *testing.T) {
	s := ExtrasStore{Dir: filepath.Join(t.TempDir(), "extras")}
	x := ProfileExtras{
		Key:         "ssh:custom:1",
		Icon:        "fa-server",
		Color:       "#3b82f6",
		Description: "build host",
		Group:       "Work",
		Builtin:     true,
	}
	if err := s.Save(x); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load("ssh:custom:1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != x {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, x)
	}

	if err := s.Delete("ssh:custom:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("ssh:custom:1"); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
	got, err = s.Load("ssh:custom:1")
	if err != nil {
		t.Fatalf("Load after delete: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected empty extras after delete, got %+v", got)
	}
}

func TestExtrasStore_LoadParsesComments(t *testing.T) {
	dir := t.TempDir()
	s := ExtrasStore{Dir: dir}
	path, err := s.PathFor("local:default")
	if err != nil {
		t.Fatalf("PathFor: %v", err)
	}
	body := "# comment\n; other comment\nICON = fa-terminal\ncolor=#ff8800 # orange\ndescription: my shell\nunknown=1\nbuiltin=yes\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	x, err := s.Load("local:default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if x.Icon != "fa-terminal" || x.Color != "#ff8800" || x.Description != "my shell" || !x.Builtin {
		t.Fatalf("unexpected extras %+v", x)
	}
	opt := x.DisplayOptions()
	if opt.Icon != "fa-terminal" || !opt.IsBuiltin {
		t.Fatalf("unexpected display options %+v", opt)
	}
}

func TestExtrasStore_PathFor(t *testing.T) {
	s := ExtrasStore{Dir: "/x"}
	p, err := s.PathFor("ssh:custom:a/b c")
	if err != nil {
		t.Fatalf("PathFor: %v", err)
	}
	if want := filepath.Join("/x", "ssh_custom_a_b_c.conf"); p != want {
		t.Fatalf("expected %q, got %q", want, p)
	}
	if _, err := s.PathFor("  "); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := (ExtrasStore{}).PathFor("k"); err == nil {
		t.Fatalf("expected error without a dir")
	}
}

func TestSanitizeKeyToFilename(t *testing.T) {
	cases := map[string]string{
		"ssh:custom:1": "ssh_custom_1",
		"a::b":         "a_b",
		"..":           "profile",
		"  _x_  ":      "x",
	}
	for in, want := range cases {
		if got := sanitizeKeyToFilename(in); got != want {
			t.Errorf("sanitizeKeyToFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
