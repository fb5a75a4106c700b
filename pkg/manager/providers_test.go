package manager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderCommands(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")
	reg := DefaultProviders(ExtrasStore{})

	cases := []struct {
		name string
		p    RawProfile
		want []string
		err  error
	}{
		{"ssh full", RawProfile{Type: "ssh", Options: map[string]any{"host": "h", "user": "u", "port": 2222, "jump": "ops@bastion"}},
			[]string{"ssh", "-p", "2222", "-J", "ops@bastion", "u@h"}, nil},
		{"ssh default port", RawProfile{Type: "ssh", Options: map[string]any{"host": "h", "port": 22}},
			[]string{"ssh", "h"}, nil},
		{"ssh alias", RawProfile{Type: "ssh", Options: map[string]any{"alias": "prod", "host": "10.0.0.5", "user": "x"}},
			[]string{"ssh", "prod"}, nil},
		{"untyped with host", RawProfile{Options: map[string]any{"hostname": "h"}},
			[]string{"ssh", "h"}, nil},
		{"ssh no host", RawProfile{Type: "ssh", Name: "x"}, nil, ErrNoHost},
		{"telnet", RawProfile{Type: "telnet", Options: map[string]any{"host": "sw1", "port": 2323}},
			[]string{"telnet", "sw1", "2323"}, nil},
		{"serial", RawProfile{Type: "serial", Options: map[string]any{"device": "/dev/ttyS0", "baud": 9600}},
			[]string{"screen", "/dev/ttyS0", "9600"}, nil},
		{"local default shell", RawProfile{Type: "LOCAL"}, []string{"/bin/zsh"}, nil},
		{"local command", RawProfile{Type: "local", Options: map[string]any{"command": "htop -d 5"}},
			[]string{"htop", "-d", "5"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prov := reg.Lookup(tc.p)
			require.NotNil(t, prov)
			argv, err := prov.Command(tc.p)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, argv)
		})
	}

	assert.Nil(t, reg.Lookup(RawProfile{Type: "rdp"}))
	assert.Nil(t, reg.Lookup(RawProfile{}))
	assert.Equal(t, []string{"local", "serial", "ssh", "telnet"}, reg.IDs())
}

func TestConfigSource_LaunchRecordsRecent(t *testing.T) {
	cfg := NewConfig("")
	cfg.Profiles = []RawProfile{
		{ID: "ssh:custom:1", Type: "ssh", Name: "box", Options: map[string]any{"host": "h1"}},
		{ID: "ssh:custom:2", Type: "ssh", Name: "db", Options: map[string]any{"host": "h2"}},
	}
	state := NewStateFile(filepath.Join(t.TempDir(), "state.json"), nil)
	src := &ConfigSource{Config: cfg, Providers: DefaultProviders(ExtrasStore{}), State: state}

	recent, err := src.RecentProfiles()
	require.NoError(t, err)
	assert.Empty(t, recent)

	for _, raw := range []RawProfile{cfg.Profiles[1], cfg.Profiles[0]} {
		_, err := src.Launch(Profile{ID: raw.ID, Name: raw.Name, Type: raw.Type, Raw: raw})
		require.NoError(t, err)
	}

	recent, err = src.RecentProfiles()
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "box", recent[0].Name)
	assert.Equal(t, "db", recent[1].Name)

	// A key whose profile is gone is skipped.
	cfg.Profiles = cfg.Profiles[:1]
	recent, err = src.RecentProfiles()
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "box", recent[0].Name)
}

func TestConfigSource_LaunchUnknownType(t *testing.T) {
	src := &ConfigSource{Providers: DefaultProviders(ExtrasStore{})}
	_, err := src.Launch(Profile{Name: "x", Type: "rdp", Raw: RawProfile{Type: "rdp"}})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestConfigSource_ProfilesIncludesBuiltins(t *testing.T) {
	cfg := NewConfig("")
	cfg.Profiles = []RawProfile{{ID: "ssh:custom:1", Type: "ssh", Name: "box"}}
	src := &ConfigSource{Config: cfg, Providers: DefaultProviders(ExtrasStore{})}

	out, err := src.Profiles(context.Background())
	require.NoError(t, err)
	var ids []string
	for _, p := range out {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"ssh:custom:1", "serial:template", "local:default"}, ids)
}
