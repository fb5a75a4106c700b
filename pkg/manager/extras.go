package manager

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProfileExtras provides per-profile display hints loaded from the filesystem.
// They let users decorate profiles they cannot edit (built-ins, imported SSH
// hosts) without touching the profile store.
//
// File layout (default):
//
//	~/.config/profile-selector/extras/<profilekey>.conf
//
// This file uses a simple "key=value" format with '#' comments.
// Keys are case-insensitive. Unknown keys are ignored.
//
// Example:
//
//	icon=fa-server
//	color=#3b82f6
//	description=primary build host
//	group=Work
type ProfileExtras struct {
	// Key is the profile key used to locate the extras file.
	Key string

	Icon        string
	Color       string
	Description string
	Group       string

	// Builtin marks the profile as built-in for display filtering.
	Builtin bool
}

// IsZero reports whether no hint is set.
func (x ProfileExtras) IsZero() bool {
	return x.Icon == "" && x.Color == "" && x.Description == "" && x.Group == "" && !x.Builtin
}

// DisplayOptions converts the hints to selector options.
func (x ProfileExtras) DisplayOptions() DisplayOptions {
	return DisplayOptions{
		Icon:        x.Icon,
		Color:       x.Color,
		Description: x.Description,
		Group:       x.Group,
		IsBuiltin:   x.Builtin,
	}
}

// ExtrasStore reads and writes extras files under Dir.
type ExtrasStore struct {
	Dir string
}

// DefaultExtrasDir returns the directory where per-profile extras files are stored.
func DefaultExtrasDir() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "extras"), nil
}

// PathFor returns the expected extras file path for the given profile key.
// The key is sanitized into a filename.
func (s ExtrasStore) PathFor(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("profile key is empty")
	}
	if s.Dir == "" {
		return "", errors.New("extras dir is not set")
	}
	return filepath.Join(s.Dir, sanitizeKeyToFilename(key)+".conf"), nil
}

// Load reads extras for key. A missing file yields empty extras.
func (s ExtrasStore) Load(key string) (ProfileExtras, error) {
	p, err := s.PathFor(key)
	if err != nil {
		return ProfileExtras{}, err
	}
	x := ProfileExtras{Key: strings.TrimSpace(key)}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return x, nil
		}
		return ProfileExtras{}, fmt.Errorf("load extras: open %s: %w", p, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 512*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		// Trailing comments need whitespace before '#': colors start with one.
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		k, v, ok := splitKV(line)
		if !ok {
			continue
		}
		switch strings.ToLower(k) {
		case "icon":
			x.Icon = v
		case "color":
			x.Color = v
		case "description":
			x.Description = v
		case "group":
			x.Group = v
		case "builtin":
			x.Builtin = parseBool(v)
		}
	}
	if err := sc.Err(); err != nil {
		return ProfileExtras{}, fmt.Errorf("load extras: scan %s: %w", p, err)
	}
	return x, nil
}

// Save writes x to its file, replacing it atomically.
func (s ExtrasStore) Save(x ProfileExtras) error {
	p, err := s.PathFor(x.Key)
	if err != nil {
		return fmt.Errorf("save extras: %w", err)
	}

	var b strings.Builder
	fmt.Fprintln(&b, "# profile-selector display extras")
	fmt.Fprintln(&b, "# Format: key=value. Unknown keys are ignored.")
	writeKV := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "%s=%s\n", k, v)
		}
	}
	writeKV("icon", x.Icon)
	writeKV("color", x.Color)
	writeKV("description", x.Description)
	writeKV("group", x.Group)
	if x.Builtin {
		writeKV("builtin", formatBool(x.Builtin))
	}

	if err := writeFileAtomic(p, []byte(b.String())); err != nil {
		return fmt.Errorf("save extras: %w", err)
	}
	return nil
}

// Delete removes the extras file for key. A missing file is not an error.
func (s ExtrasStore) Delete(key string) error {
	p, err := s.PathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// sanitizeKeyToFilename converts a profile key into a filesystem-safe filename stem.
func sanitizeKeyToFilename(key string) string {
	key = strings.TrimSpace(key)
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
		"\t", "_",
	)
	key = replacer.Replace(key)
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	key = strings.Trim(key, "._-")
	if key == "" {
		return "profile"
	}
	return key
}

func splitKV(line string) (k, v string, ok bool) {
	// Accept key=value or key: value (but prefer '=')
	if i := strings.IndexByte(line, '='); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
	}
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
	}
	return "", "", false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on", "enabled", "enable":
		return true
	default:
		return false
	}
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
