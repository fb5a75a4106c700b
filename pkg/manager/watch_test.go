package manager

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const editedStore = `groups:
  - id: g1
    name: Work
profiles:
  - id: ssh:custom:1
    type: ssh
    name: renamed
    group: g1
    options:
      host: 10.0.0.5
`

func TestConfigWatcher_ApplyExternalChange(t *testing.T) {
	f := newMutateFixture(t, nil)
	require.NoError(t, os.WriteFile(f.path, []byte(editedStore), 0o600))

	w := &ConfigWatcher{Path: f.path, Selector: f.sel}
	require.NoError(t, w.apply(context.Background()))

	_, ok := f.sel.Lookup("renamed")
	assert.True(t, ok)
	_, ok = f.sel.Lookup("db")
	assert.False(t, ok)
	assert.Equal(t, f.path, f.cfg.Path(), "store keeps its backing path")
}

func TestConfigWatcher_BrokenFileKeepsStore(t *testing.T) {
	f := newMutateFixture(t, nil)
	require.NoError(t, os.WriteFile(f.path, []byte("profiles: [unterminated"), 0o600))

	w := &ConfigWatcher{Path: f.path, Selector: f.sel}
	assert.Error(t, w.apply(context.Background()))
	assert.Len(t, f.cfg.Profiles, 2)
}

func TestConfigWatcher_MissingFileIgnored(t *testing.T) {
	f := newMutateFixture(t, nil)
	require.NoError(t, os.Remove(f.path))

	w := &ConfigWatcher{Path: f.path, Selector: f.sel}
	assert.NoError(t, w.apply(context.Background()))
	assert.Len(t, f.cfg.Profiles, 2)
}

func TestConfigWatcher_SkipsOwnWrites(t *testing.T) {
	f := newMutateFixture(t, nil)
	require.NoError(t, f.sel.Duplicate(context.Background(), f.profile(t, "box")))

	// Drop the in-memory copy; a reload from disk would bring it back.
	f.cfg.Profiles = f.cfg.Profiles[:2]

	w := &ConfigWatcher{Path: f.path, Selector: f.sel}
	require.NoError(t, w.apply(context.Background()))
	assert.Len(t, f.cfg.Profiles, 2)
}

func TestConfigWatcher_Run(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newMutateFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	applied := make(chan error, 16)
	w := &ConfigWatcher{
		Path:     f.path,
		Selector: f.sel,
		Debounce: 20 * time.Millisecond,
		Applied: func(err error) {
			select {
			case applied <- err:
			default:
			}
		},
	}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is registered asynchronously; keep rewriting until it fires.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(f.path, []byte(editedStore), 0o600); err != nil {
			return false
		}
		select {
		case err := <-applied:
			return err == nil
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := f.sel.Lookup("renamed")
	assert.True(t, ok)

	cancel()
	require.NoError(t, <-done)
}

func TestConfigWatcher_RequiresPathAndSelector(t *testing.T) {
	assert.Error(t, (&ConfigWatcher{}).Run(context.Background()))
}
