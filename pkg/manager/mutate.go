package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound is returned when a profile has no entry in the store.
var ErrProfileNotFound = errors.New("profile not found in store")

const copySuffix = " copy"

// findBackingEntry locates p's store entry: by id, then by name and host,
// then by structural equality with the entry p was built from.
// Profiles with equal names and hosts from different providers can collide
// on the second rule.
func findBackingEntry(entries []RawProfile, p Profile) int {
	if p.ID != "" {
		for i, e := range entries {
			if e.ID == p.ID {
				return i
			}
		}
	}
	if p.Name != "" {
		for i, e := range entries {
			if e.Name == p.Name && SameHost(e.Host(), p.Host) {
				return i
			}
		}
	}
	want, err := structuralKey(p.Raw)
	if err != nil {
		return -1
	}
	for i, e := range entries {
		if got, err := structuralKey(e); err == nil && bytes.Equal(got, want) {
			return i
		}
	}
	return -1
}

func structuralKey(p RawProfile) ([]byte, error) {
	return yaml.Marshal(p)
}

// Duplicate stores a copy of p named "<name> copy" and reloads. Profiles that
// are not in the store (built-ins, imports) are copied from their source entry.
func (s *Selector) Duplicate(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var clone RawProfile
	if i := findBackingEntry(s.store.Profiles, p); i >= 0 {
		clone = s.store.Profiles[i].Clone()
	} else {
		clone = p.Raw.Clone()
		clone.IsBuiltin = false
		clone.IsTemplate = false
	}
	srcKey := rawKey(p.Raw)
	clone.ID = ""
	clone.Name = p.Name + copySuffix

	s.store.Profiles = append(s.store.Profiles, clone)
	s.persistLocked("duplicate", p)

	// Save assigned the id; carry display extras over to it.
	if dup := s.store.Profiles[len(s.store.Profiles)-1]; dup.ID != "" && s.extras.Dir != "" {
		if x, err := s.extras.Load(srcKey); err == nil && !x.IsZero() {
			x.Key = dup.ID
			if err := s.extras.Save(x); err != nil {
				Logf(s.logger, "[SELECTOR] copy extras for %q: %v", dup.Name, err)
			}
		}
	}
	return s.loadLocked(ctx)
}

// Delete removes p's store entry, runs the provider's delete hook and reloads.
func (s *Selector) Delete(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := findBackingEntry(s.store.Profiles, p)
	if i < 0 {
		Logf(s.logger, "[SELECTOR] delete %q: %v", p.Name, ErrProfileNotFound)
		return fmt.Errorf("delete %q: %w", p.Name, ErrProfileNotFound)
	}
	entry := s.store.Profiles[i]

	if prov := s.providerFor(entry); prov != nil {
		if d, ok := prov.(ProfileDeleter); ok {
			if err := d.DeleteProfile(ctx, entry); err != nil {
				Logf(s.logger, "[SELECTOR] delete hook for %q: %v", entry.Name, err)
			}
		}
	}

	s.store.Profiles = append(s.store.Profiles[:i:i], s.store.Profiles[i+1:]...)
	s.persistLocked("delete", p)
	return s.loadLocked(ctx)
}

// Edit hands a copy of p's store entry to the editor. A confirmed result
// replaces the entry, keeping its id and type. The editor runs without the
// selector lock so reloads are not blocked while the user types.
func (s *Selector) Edit(ctx context.Context, p Profile) error {
	return s.editWith(ctx, p, s.editor)
}

func (s *Selector) editWith(ctx context.Context, p Profile, editor EditorProvider) error {
	if editor == nil {
		return errors.New("no editor configured")
	}

	s.mu.Lock()
	i := findBackingEntry(s.store.Profiles, p)
	if i < 0 {
		s.mu.Unlock()
		Logf(s.logger, "[SELECTOR] edit %q: %v", p.Name, ErrProfileNotFound)
		return fmt.Errorf("edit %q: %w", p.Name, ErrProfileNotFound)
	}
	original := s.store.Profiles[i].Clone()
	prov := s.providerFor(original)
	s.mu.Unlock()

	result, ok, err := editor.Edit(ctx, original.Clone(), prov)
	if err != nil {
		return fmt.Errorf("edit %q: %w", p.Name, err)
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The store may have been reloaded while the editor was open.
	j := findBackingEntry(s.store.Profiles, Profile{ID: original.ID, Name: original.Name, Host: original.Host(), Raw: original})
	if j < 0 {
		Logf(s.logger, "[SELECTOR] edit %q: entry vanished while editing", p.Name)
		return fmt.Errorf("edit %q: %w", p.Name, ErrProfileNotFound)
	}
	result.ID = original.ID
	result.Type = original.Type
	s.store.Profiles[j] = result
	s.persistLocked("edit", p)
	return s.loadLocked(ctx)
}

// persistLocked saves the store. Failures are logged; the in-memory change stands.
func (s *Selector) persistLocked(op string, p Profile) {
	if err := s.store.Save(); err != nil {
		Logf(s.logger, "[CONFIG] %s %q: save: %v", op, p.Name, err)
	}
}

func (s *Selector) providerFor(p RawProfile) Provider {
	if s.source == nil {
		return nil
	}
	return s.source.ProviderFor(p)
}
