package manager

import (
	"context"
	"fmt"
	"log"
)

// ProfileSource is where the selector gets its profiles and how it launches
// them. Every call may fail; the selector degrades to empty values.
type ProfileSource interface {
	DisplaySource
	Profiles(ctx context.Context) ([]RawProfile, error)
	RecentProfiles() ([]RawProfile, error)
	ProviderFor(p RawProfile) Provider
	Launch(p Profile) (LaunchSpec, error)
}

// ConfigSource serves stored profiles, provider built-ins and (optionally)
// hosts imported from the OpenSSH client config. It records launches as
// recents in the local state file.
type ConfigSource struct {
	Config    *Config
	Providers *Providers
	Extras    ExtrasStore
	State     *StateFile
	Logger    *log.Logger
}

// Profiles returns stored profiles, then built-ins, then SSH imports.
// Config is read, not written; callers serialize it with store mutations.
func (s *ConfigSource) Profiles(ctx context.Context) ([]RawProfile, error) {
	var out []RawProfile
	if s.Config != nil {
		for _, p := range s.Config.Profiles {
			out = append(out, p.Clone())
		}
	}
	if s.Providers != nil {
		for _, prov := range s.Providers.All() {
			out = append(out, prov.Builtin()...)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.Config != nil && s.Config.ImportSSHConfig {
		imported, err := s.importSSH()
		if err != nil {
			// Stored profiles are still usable.
			Logf(s.Logger, "[CONFIG] ssh config import: %v", err)
		}
		out = append(out, imported...)
	}
	return out, nil
}

func (s *ConfigSource) importSSH() ([]RawProfile, error) {
	paths := s.Config.SSHConfigPaths
	if len(paths) == 0 {
		p, err := DefaultSSHConfigPath()
		if err != nil {
			return nil, err
		}
		paths = []string{p}
	}
	entries, err := LoadSSHConfig(paths...)
	if err != nil {
		return nil, err
	}
	return SSHProfiles(entries), nil
}

// RecentProfiles materializes State.Recents, most recent first. Keys whose
// profile no longer exists are skipped.
func (s *ConfigSource) RecentProfiles() ([]RawProfile, error) {
	var keys []string
	if s.State != nil {
		s.State.Read(func(st *State) {
			keys = append(keys, st.Recents...)
		})
	}
	if len(keys) == 0 {
		return nil, nil
	}

	all, err := s.Profiles(context.Background())
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]RawProfile, len(all))
	for _, p := range all {
		if _, dup := byKey[rawKey(p)]; !dup {
			byKey[rawKey(p)] = p
		}
	}
	out := make([]RawProfile, 0, len(keys))
	for _, k := range keys {
		if p, ok := byKey[k]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// SelectorOption merges provider hints with the profile's extras file.
// Extras win over provider defaults.
func (s *ConfigSource) SelectorOption(p RawProfile) (DisplayOptions, error) {
	var opt DisplayOptions
	if prov := s.ProviderFor(p); prov != nil {
		opt = prov.Options(p)
	}
	if s.Extras.Dir == "" {
		return opt, nil
	}
	x, err := s.Extras.Load(rawKey(p))
	if err != nil {
		return opt, err
	}
	return mergeOptions(opt, x.DisplayOptions()), nil
}

func mergeOptions(base, over DisplayOptions) DisplayOptions {
	base.Name = firstNonEmpty(over.Name, base.Name)
	base.Description = firstNonEmpty(over.Description, base.Description)
	base.Icon = firstNonEmpty(over.Icon, base.Icon)
	base.Color = firstNonEmpty(over.Color, base.Color)
	base.Group = firstNonEmpty(over.Group, base.Group)
	base.IsBuiltin = base.IsBuiltin || over.IsBuiltin
	return base
}

func (s *ConfigSource) Description(p RawProfile) string {
	if prov := s.ProviderFor(p); prov != nil {
		return prov.Description(p)
	}
	return ""
}

func (s *ConfigSource) ProviderFor(p RawProfile) Provider {
	return s.Providers.Lookup(p)
}

// Launch resolves the command for p and records it as most recent.
// A failure to persist the recents list does not fail the launch.
func (s *ConfigSource) Launch(p Profile) (LaunchSpec, error) {
	prov := s.ProviderFor(p.Raw)
	if prov == nil {
		return LaunchSpec{}, fmt.Errorf("launch %q (type %q): %w", p.Name, p.Type, ErrNoProvider)
	}
	argv, err := prov.Command(p.Raw)
	if err != nil {
		return LaunchSpec{}, fmt.Errorf("launch %q: %w", p.Name, err)
	}

	if s.State != nil {
		err := s.State.Update(func(st *State) bool {
			return st.AddRecent(rawKey(p.Raw))
		})
		if err != nil {
			Logf(s.Logger, "[SELECTOR] save recents: %v", err)
		}
	}

	return LaunchSpec{Argv: argv, Title: p.Name}, nil
}
