package manager

import (
	"log"
	"slices"
	"strings"

	"golang.org/x/text/collate"
)

// DefaultBorderToken is the border color used for profiles without a color.
const DefaultBorderToken = "var(--theme-secondary-less-2)"

const (
	borderTint    = 1.1
	unnamedName   = "Unnamed"
	defaultIconFA = `<i class="fa fa-user text-white"></i>`
)

// Policy filters the normalized list.
type Policy struct {
	ShowBuiltin bool
	Blacklist   []string
}

func (p Policy) blacklisted(id string) bool {
	return id != "" && slices.Contains(p.Blacklist, id)
}

// DisplaySource supplies per-profile display hints. Both calls may fail; the
// normalizer degrades to empty values.
type DisplaySource interface {
	SelectorOption(p RawProfile) (DisplayOptions, error)
	Description(p RawProfile) string
}

// NormalizeInput is everything one normalization pass reads.
type NormalizeInput struct {
	Primary  []RawProfile
	Recent   []RawProfile
	Registry []Group
	Policy   Policy
	Source   DisplaySource
	Logger   *log.Logger
}

// Normalize builds the sorted, filtered view list from raw profiles.
// Recent entries are appended after primary ones, tagged with the Recent group.
// Identical inputs and registry always produce an identical sequence.
func Normalize(in NormalizeInput) []Profile {
	out := make([]Profile, 0, len(in.Primary)+len(in.Recent))
	for _, raw := range in.Primary {
		out = append(out, normalizeOne(raw, raw.Group, in))
	}
	for _, raw := range in.Recent {
		out = append(out, normalizeOne(raw, GroupValue(GroupRecent), in))
	}

	out = slices.DeleteFunc(out, func(p Profile) bool {
		if p.IsBuiltin && !in.Policy.ShowBuiltin {
			return true
		}
		return p.IsTemplate || in.Policy.blacklisted(p.ID)
	})

	sortProfiles(out)
	return out
}

// normalizeOne builds the view of raw with group as its group reference.
// Raw keeps the source entry untouched so it can be matched back to the store.
func normalizeOne(raw RawProfile, group GroupRef, in NormalizeInput) Profile {
	opt := selectorOption(raw, in)

	p := Profile{
		ID:          raw.ID,
		Type:        raw.Type,
		Name:        firstNonEmpty(raw.Name, opt.Name),
		Color:       firstNonEmpty(raw.Color, opt.Color),
		Icon:        firstNonEmpty(raw.Icon, opt.Icon),
		Description: opt.Description,
		Host:        raw.Host(),
		IsBuiltin:   raw.IsBuiltin || opt.IsBuiltin,
		IsTemplate:  raw.IsTemplate,
		Raw:         raw,
	}

	p.BorderColor = TintColor(p.Color, borderTint, true, DefaultBorderToken)
	p.IconHTML = IconHTML(p.Icon)

	var provDesc string
	if in.Source != nil {
		provDesc = in.Source.Description(raw)
	}
	p.Description = firstNonEmpty(p.Description, provDesc)
	if p.Name == "" {
		p.Name = firstNonEmpty(provDesc, unnamedName)
	}

	ref := group
	if ref.IsZero() {
		ref = GroupValue(opt.Group)
	}
	switch {
	case ref.IsZero() && p.IsBuiltin:
		p.Group = GroupBuiltin
	default:
		if g, ok := ResolveGroup(ref, in.Registry); ok {
			p.Group = g
		} else {
			p.Group = GroupUngrouped
		}
	}

	return p
}

// selectorOption asks the source for display hints; any failure yields zero options.
func selectorOption(raw RawProfile, in NormalizeInput) (opt DisplayOptions) {
	if in.Source == nil {
		return DisplayOptions{}
	}
	defer func() {
		if r := recover(); r != nil {
			Logf(in.Logger, "[SELECTOR] selector option for %q panicked: %v", raw.Name, r)
			opt = DisplayOptions{}
		}
	}()
	o, err := in.Source.SelectorOption(raw)
	if err != nil {
		Logf(in.Logger, "[SELECTOR] selector option for %q: %v", raw.Name, err)
		return DisplayOptions{}
	}
	return o
}

// IconHTML renders the icon markup for a profile icon value.
func IconHTML(icon string) string {
	switch {
	case icon == "":
		return defaultIconFA
	case strings.HasPrefix(icon, "<"):
		return icon
	case strings.HasPrefix(icon, "data:"), strings.HasPrefix(icon, "http"):
		return `<img src="` + icon + `" class="h-100" />`
	default:
		return `<i class="fa ` + icon + ` text-white"></i>`
	}
}

// sortProfiles orders by group order key, then name, both locale-collated.
func sortProfiles(ps []Profile) {
	c := newCollator()
	slices.SortStableFunc(ps, func(a, b Profile) int {
		if a.Group == b.Group {
			return c.CompareString(a.Name, b.Name)
		}
		return compareGroups(c, a.Group, b.Group)
	})
}

// compareGroups orders two distinct group names by their order keys. Names
// sharing a reserved key (Favorites, Starred...) fall back to ordinal order so
// the result stays a total order.
func compareGroups(c *collate.Collator, a, b string) int {
	if n := c.CompareString(GroupOrderKey(a), GroupOrderKey(b)); n != 0 {
		return n
	}
	return strings.Compare(a, b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
