package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEditor struct {
	fn    func(p RawProfile) (RawProfile, bool, error)
	calls int
	prov  Provider
}

func (f *fakeEditor) Edit(_ context.Context, p RawProfile, prov Provider) (RawProfile, bool, error) {
	f.calls++
	f.prov = prov
	return f.fn(p)
}

type mutateFixture struct {
	sel    *Selector
	cfg    *Config
	path   string
	extras ExtrasStore
}

func newMutateFixture(t *testing.T, editor EditorProvider) *mutateFixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")

	seed := NewConfig(path)
	seed.Groups = []Group{{ID: "g1", Name: "Work"}}
	seed.Profiles = []RawProfile{
		{ID: "ssh:custom:1", Type: "ssh", Name: "box", Group: GroupValue("g1"), Options: map[string]any{"host": "10.0.0.5"}},
		{ID: "ssh:custom:2", Type: "ssh", Name: "db", Group: GroupValue("g1"), Options: map[string]any{"host": "10.0.0.6", "user": "pg"}},
	}
	require.NoError(t, seed.Save())

	cfg, _, err := LoadConfig(path)
	require.NoError(t, err)

	extras := ExtrasStore{Dir: filepath.Join(dir, "extras")}
	sel := NewSelector(SelectorOptions{
		Source: &ConfigSource{
			Config:    cfg,
			Providers: DefaultProviders(extras),
			Extras:    extras,
		},
		Store:  cfg,
		Editor: editor,
		Extras: extras,
	})
	require.NoError(t, sel.Load(context.Background()))
	return &mutateFixture{sel: sel, cfg: cfg, path: path, extras: extras}
}

func (f *mutateFixture) profile(t *testing.T, name string) Profile {
	t.Helper()
	p, ok := f.sel.Lookup(name)
	require.True(t, ok, "profile %q not loaded", name)
	return p
}

func (f *mutateFixture) reread(t *testing.T) *Config {
	t.Helper()
	cfg, _, err := LoadConfig(f.path)
	require.NoError(t, err)
	return cfg
}

func storedNames(cfg *Config) []string {
	var out []string
	for _, p := range cfg.Profiles {
		out = append(out, p.Name)
	}
	return out
}

func TestSelectorDuplicate(t *testing.T) {
	f := newMutateFixture(t, nil)
	require.NoError(t, f.extras.Save(ProfileExtras{Key: "ssh:custom:1", Icon: "fa-server"}))

	require.NoError(t, f.sel.Duplicate(context.Background(), f.profile(t, "box")))

	dup := f.profile(t, "box copy")
	assert.NotEqual(t, "ssh:custom:1", dup.ID)
	assert.True(t, strings.HasPrefix(dup.ID, "ssh:custom:"), dup.ID)
	assert.Equal(t, "10.0.0.5", dup.Host)
	assert.Equal(t, "Work", dup.Group)

	assert.Equal(t, []string{"box", "db", "box copy"}, storedNames(f.reread(t)))

	x, err := f.extras.Load(dup.ID)
	require.NoError(t, err)
	assert.Equal(t, "fa-server", x.Icon)
}

func TestSelectorDuplicate_UnstoredProfile(t *testing.T) {
	f := newMutateFixture(t, nil)
	adhoc := Profile{
		Type: "ssh",
		Name: "adhoc",
		Host: "192.0.2.1",
		Raw:  RawProfile{Type: "ssh", Name: "adhoc", IsBuiltin: true, Options: map[string]any{"host": "192.0.2.1"}},
	}

	require.NoError(t, f.sel.Duplicate(context.Background(), adhoc))

	stored := f.reread(t).Profiles
	require.Len(t, stored, 3)
	last := stored[2]
	assert.Equal(t, "adhoc copy", last.Name)
	assert.False(t, last.IsBuiltin)
	assert.NotEmpty(t, last.ID)
}

func TestSelectorDelete(t *testing.T) {
	f := newMutateFixture(t, nil)
	require.NoError(t, f.extras.Save(ProfileExtras{Key: "ssh:custom:2", Color: "#ff0000"}))
	extrasPath, err := f.extras.PathFor("ssh:custom:2")
	require.NoError(t, err)

	require.NoError(t, f.sel.Delete(context.Background(), f.profile(t, "db")))

	_, ok := f.sel.Lookup("db")
	assert.False(t, ok)
	assert.Equal(t, []string{"box"}, storedNames(f.reread(t)))

	_, err = os.Stat(extrasPath)
	assert.True(t, os.IsNotExist(err), "extras file should be removed by the delete hook")
}

func TestSelectorDelete_NotFound(t *testing.T) {
	f := newMutateFixture(t, nil)
	err := f.sel.Delete(context.Background(), Profile{Name: "ghost", Host: "nowhere"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Len(t, f.reread(t).Profiles, 2)
}

func TestSelectorEdit(t *testing.T) {
	ed := &fakeEditor{fn: func(p RawProfile) (RawProfile, bool, error) {
		p.Name = "renamed"
		p.ID = "ignored"
		p.Type = "telnet"
		p.Options["host"] = "10.0.0.9"
		return p, true, nil
	}}
	f := newMutateFixture(t, ed)

	require.NoError(t, f.sel.Edit(context.Background(), f.profile(t, "box")))
	assert.Equal(t, 1, ed.calls)
	require.NotNil(t, ed.prov)
	assert.Equal(t, "ssh", ed.prov.ID())

	p := f.profile(t, "renamed")
	assert.Equal(t, "ssh:custom:1", p.ID)
	assert.Equal(t, "ssh", p.Type)
	assert.Equal(t, "10.0.0.9", p.Host)

	stored := f.reread(t).Profiles
	assert.Equal(t, "renamed", stored[0].Name)
	assert.Equal(t, "ssh:custom:1", stored[0].ID)
}

func TestSelectorEdit_Cancelled(t *testing.T) {
	ed := &fakeEditor{fn: func(p RawProfile) (RawProfile, bool, error) {
		p.Name = "never saved"
		return p, false, nil
	}}
	f := newMutateFixture(t, ed)
	before, err := os.ReadFile(f.path)
	require.NoError(t, err)

	require.NoError(t, f.sel.Edit(context.Background(), f.profile(t, "box")))

	after, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	_, ok := f.sel.Lookup("never saved")
	assert.False(t, ok)
}

func TestSelectorEdit_EditorError(t *testing.T) {
	boom := errors.New("boom")
	f := newMutateFixture(t, &fakeEditor{fn: func(p RawProfile) (RawProfile, bool, error) {
		return p, false, boom
	}})
	err := f.sel.Edit(context.Background(), f.profile(t, "box"))
	assert.ErrorIs(t, err, boom)
}

func TestSelectorEdit_Errors(t *testing.T) {
	f := newMutateFixture(t, nil)
	assert.Error(t, f.sel.Edit(context.Background(), f.profile(t, "box")), "no editor configured")

	f = newMutateFixture(t, &fakeEditor{fn: func(p RawProfile) (RawProfile, bool, error) { return p, true, nil }})
	err := f.sel.Edit(context.Background(), Profile{Name: "ghost"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFindBackingEntry(t *testing.T) {
	entries := []RawProfile{
		{ID: "a", Name: "one", Options: map[string]any{"host": "h1"}},
		{Name: "two", Options: map[string]any{"host": "h2"}},
		{Type: "local", Name: "shell"},
	}
	assert.Equal(t, 0, findBackingEntry(entries, Profile{ID: "a"}))
	assert.Equal(t, 1, findBackingEntry(entries, Profile{Name: "two", Host: "h2"}))
	assert.Equal(t, 2, findBackingEntry(entries, Profile{Raw: RawProfile{Type: "local", Name: "shell"}}))
	assert.Equal(t, -1, findBackingEntry(entries, Profile{Name: "two", Host: "elsewhere"}))
}
