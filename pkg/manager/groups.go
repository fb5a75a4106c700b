package manager

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Well-known group names.
const (
	GroupRecent    = "Recent"
	GroupUngrouped = "Ungrouped"
	GroupBuiltin   = "Built-in"

	importedGroupPrefix = "Imported "
)

// ResolveGroup maps a raw group reference to a canonical group name using the
// registry. It reports false only when the reference is absent; any other
// value resolves to something, falling back to the value itself:
//
//  1. registry entry whose id equals the value
//  2. entry whose name or id equals the value, case-insensitively
//  3. entry whose name equals the value, case-insensitively
//  4. the value unchanged (free-form group name)
func ResolveGroup(ref GroupRef, registry []Group) (string, bool) {
	v, ok := ref.Lookup()
	if !ok {
		return "", false
	}

	for _, g := range registry {
		if string(g.ID) == v {
			return nameOr(g, v), true
		}
	}

	target := strings.ToLower(v)
	for _, g := range registry {
		if strings.ToLower(g.Name) == target || strings.ToLower(string(g.ID)) == target {
			return nameOr(g, v), true
		}
	}

	for _, g := range registry {
		if g.Name != "" && strings.ToLower(g.Name) == target {
			return g.Name, true
		}
	}

	return v, true
}

func nameOr(g Group, fallback string) string {
	if g.Name != "" {
		return g.Name
	}
	return fallback
}

// GroupOrderKey derives the sort key of a group name. Reserved groups map to
// keys that collate before (Recent, Favorites) or after (Ungrouped, Imported *,
// Built-in) every ordinary name; ordinary names are their own key.
func GroupOrderKey(name string) string {
	switch name {
	case GroupRecent:
		return "0000"
	case "Favorites", "Starred", "Favourites", "Favorite", "Favourited":
		return "0001"
	case GroupUngrouped:
		return "ZZZX"
	case GroupBuiltin:
		return "ZZZZ"
	}
	if strings.HasPrefix(name, importedGroupPrefix) {
		return "ZZZY"
	}
	return name
}

// newCollator returns a locale-aware comparer. Collators keep internal
// buffers, so each sort builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und)
}
