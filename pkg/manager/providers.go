package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrNoProvider is returned when no provider handles a profile type.
var ErrNoProvider = errors.New("no provider for profile")

// ErrNoHost is returned when a profile lacks the target it needs to launch.
var ErrNoHost = errors.New("profile has no host")

// Provider supplies built-in profiles, display hints and launch commands for
// one profile type.
type Provider interface {
	ID() string
	Name() string
	Builtin() []RawProfile
	Options(p RawProfile) DisplayOptions
	Description(p RawProfile) string
	Command(p RawProfile) ([]string, error)
}

// ProfileDeleter is implemented by providers that clean up after a stored
// profile is deleted.
type ProfileDeleter interface {
	DeleteProfile(ctx context.Context, p RawProfile) error
}

// Providers indexes providers by type id.
type Providers struct {
	byID  map[string]Provider
	order []string
}

// NewProviders registers ps in order; a later provider replaces an earlier
// one with the same id.
func NewProviders(ps ...Provider) *Providers {
	r := &Providers{byID: map[string]Provider{}}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// DefaultProviders returns the ssh, telnet, serial and local providers.
// Deleting a stored profile removes its display extras from extras.
func DefaultProviders(extras ExtrasStore) *Providers {
	c := extrasCleaner{store: extras}
	return NewProviders(
		sshProvider{c},
		telnetProvider{c},
		serialProvider{c},
		localProvider{c},
	)
}

func (r *Providers) Register(p Provider) {
	if _, ok := r.byID[p.ID()]; !ok {
		r.order = append(r.order, p.ID())
	}
	r.byID[p.ID()] = p
}

// Lookup returns the provider for a profile: by type, else ssh when the
// profile carries a host.
func (r *Providers) Lookup(p RawProfile) Provider {
	if r == nil {
		return nil
	}
	if prov, ok := r.byID[strings.ToLower(strings.TrimSpace(p.Type))]; ok {
		return prov
	}
	if p.Type == "" && p.Host() != "" {
		return r.byID["ssh"]
	}
	return nil
}

// All returns the providers in registration order.
func (r *Providers) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the registered type ids, sorted.
func (r *Providers) IDs() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// extrasCleaner removes a deleted profile's extras file.
type extrasCleaner struct {
	store ExtrasStore
}

func (c extrasCleaner) DeleteProfile(_ context.Context, p RawProfile) error {
	if c.store.Dir == "" {
		return nil
	}
	return c.store.Delete(rawKey(p))
}

// rawKey is the identity key of a stored profile, matching Profile.Key.
func rawKey(p RawProfile) string {
	if p.ID != "" {
		return p.ID
	}
	return p.Type + ":" + p.Name + ":" + p.Host()
}

// ----- ssh -----

type sshProvider struct{ extrasCleaner }

func (sshProvider) ID() string            { return "ssh" }
func (sshProvider) Name() string          { return "SSH" }
func (sshProvider) Builtin() []RawProfile { return nil }

func (sshProvider) Options(RawProfile) DisplayOptions {
	return DisplayOptions{Icon: "fa-desktop"}
}

func (sshProvider) Description(p RawProfile) string {
	host := p.Host()
	if host == "" {
		return ""
	}
	if u := p.Option("user"); u != "" {
		host = u + "@" + host
	}
	if port := p.Port(); port > 0 && port != 22 {
		host += ":" + strconv.Itoa(port)
	}
	return host
}

func (sshProvider) Command(p RawProfile) ([]string, error) {
	// Imported aliases go through ssh's own config resolution.
	target := firstNonEmpty(p.Option("alias"), p.Host())
	if target == "" {
		return nil, fmt.Errorf("ssh %q: %w", p.Name, ErrNoHost)
	}
	argv := []string{"ssh"}
	if p.Option("alias") == "" {
		if port := p.Port(); port > 0 && port != 22 {
			argv = append(argv, "-p", strconv.Itoa(port))
		}
		if j := p.Option("jump"); j != "" {
			argv = append(argv, "-J", j)
		}
		if id := p.Option("identityFile"); id != "" {
			argv = append(argv, "-i", expandPath(id))
		}
		if u := p.Option("user"); u != "" {
			target = u + "@" + target
		}
	}
	return append(argv, target), nil
}

// ----- telnet -----

type telnetProvider struct{ extrasCleaner }

func (telnetProvider) ID() string            { return "telnet" }
func (telnetProvider) Name() string          { return "Telnet" }
func (telnetProvider) Builtin() []RawProfile { return nil }

func (telnetProvider) Options(RawProfile) DisplayOptions {
	return DisplayOptions{Icon: "fa-network-wired"}
}

func (telnetProvider) Description(p RawProfile) string {
	if p.Host() == "" {
		return ""
	}
	if port := p.Port(); port > 0 {
		return p.Host() + ":" + strconv.Itoa(port)
	}
	return p.Host()
}

func (telnetProvider) Command(p RawProfile) ([]string, error) {
	if p.Host() == "" {
		return nil, fmt.Errorf("telnet %q: %w", p.Name, ErrNoHost)
	}
	argv := []string{"telnet", p.Host()}
	if port := p.Port(); port > 0 {
		argv = append(argv, strconv.Itoa(port))
	}
	return argv, nil
}

// ----- serial -----

type serialProvider struct{ extrasCleaner }

func (serialProvider) ID() string   { return "serial" }
func (serialProvider) Name() string { return "Serial" }

// Builtin returns the template new serial profiles are created from.
func (serialProvider) Builtin() []RawProfile {
	return []RawProfile{{
		ID:         "serial:template",
		Type:       "serial",
		Name:       "Serial port",
		IsBuiltin:  true,
		IsTemplate: true,
		Options:    map[string]any{"device": "/dev/ttyUSB0", "baud": 115200},
	}}
}

func (serialProvider) Options(RawProfile) DisplayOptions {
	return DisplayOptions{Icon: "fa-microchip"}
}

func (serialProvider) Description(p RawProfile) string {
	dev := p.Option("device")
	if dev == "" {
		return ""
	}
	if baud := optionInt(p.Options, "baud"); baud > 0 {
		return fmt.Sprintf("%s @ %d", dev, baud)
	}
	return dev
}

func (serialProvider) Command(p RawProfile) ([]string, error) {
	dev := p.Option("device")
	if dev == "" {
		return nil, fmt.Errorf("serial %q: no device", p.Name)
	}
	argv := []string{"screen", dev}
	if baud := optionInt(p.Options, "baud"); baud > 0 {
		argv = append(argv, strconv.Itoa(baud))
	}
	return argv, nil
}

// ----- local -----

type localProvider struct{ extrasCleaner }

func (localProvider) ID() string   { return "local" }
func (localProvider) Name() string { return "Local shell" }

func (localProvider) Builtin() []RawProfile {
	return []RawProfile{{
		ID:        "local:default",
		Type:      "local",
		Name:      "Default shell",
		IsBuiltin: true,
		Options:   map[string]any{"command": userShell()},
	}}
}

func (localProvider) Options(RawProfile) DisplayOptions {
	return DisplayOptions{Icon: "fa-terminal"}
}

func (localProvider) Description(p RawProfile) string {
	return firstNonEmpty(p.Option("command"), userShell())
}

func (localProvider) Command(p RawProfile) ([]string, error) {
	cmd := firstNonEmpty(p.Option("command"), userShell())
	argv := strings.Fields(cmd)
	if len(argv) == 0 {
		return nil, fmt.Errorf("local %q: empty command", p.Name)
	}
	return argv, nil
}

func userShell() string {
	if sh := strings.TrimSpace(os.Getenv("SHELL")); sh != "" {
		return sh
	}
	return "/bin/sh"
}
