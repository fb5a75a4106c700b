package manager

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawProfile is a profile as stored in the config or produced by a provider.
// Provider-specific connection settings live in Options (host, port, user, device...).
type RawProfile struct {
	ID         string         `yaml:"id,omitempty" toml:"id,omitempty"`
	Type       string         `yaml:"type,omitempty" toml:"type,omitempty"`
	Name       string         `yaml:"name,omitempty" toml:"name,omitempty"`
	Group      GroupRef       `yaml:"group,omitempty" toml:"group,omitempty"`
	Color      string         `yaml:"color,omitempty" toml:"color,omitempty"`
	Icon       string         `yaml:"icon,omitempty" toml:"icon,omitempty"`
	IsBuiltin  bool           `yaml:"isBuiltin,omitempty" toml:"isBuiltin,omitempty"`
	IsTemplate bool           `yaml:"isTemplate,omitempty" toml:"isTemplate,omitempty"`
	Options    map[string]any `yaml:"options,omitempty" toml:"options,omitempty"`
}

// Host returns the reachable host of the profile: options.host, else options.hostname.
func (p RawProfile) Host() string {
	for _, k := range []string{"host", "hostname"} {
		if v, ok := p.Options[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// Port returns options.port, or 0 when unset or not numeric.
func (p RawProfile) Port() int {
	return optionInt(p.Options, "port")
}

// Option returns a string option, or "".
func (p RawProfile) Option(key string) string {
	v, ok := p.Options[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Clone returns a deep copy; nested option maps and slices are not shared.
func (p RawProfile) Clone() RawProfile {
	out := p
	if p.Options != nil {
		out.Options = cloneValue(p.Options).(map[string]any)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	default:
		return v
	}
}

func optionInt(opts map[string]any, key string) int {
	switch t := opts[key].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	}
	return 0
}

// GroupRefKind tags the shape a group reference was written in.
type GroupRefKind int

const (
	GroupRefNone GroupRefKind = iota
	GroupRefValue
	GroupRefObject
)

// GroupRef is a raw, possibly stale group reference: a bare id or name, or an
// {id, name} object. It is decoded once here so the pipeline never inspects
// arbitrary shapes, and it re-encodes in the shape it was read in.
type GroupRef struct {
	Kind  GroupRefKind
	Value string
	ID    string
	Name  string
}

// GroupValue builds a scalar reference (id or name).
func GroupValue(v string) GroupRef {
	if v == "" {
		return GroupRef{}
	}
	return GroupRef{Kind: GroupRefValue, Value: v}
}

// GroupObject builds an {id, name} reference.
func GroupObject(id, name string) GroupRef {
	return GroupRef{Kind: GroupRefObject, ID: id, Name: name}
}

// IsZero reports an absent reference (also used by yaml omitempty).
func (g GroupRef) IsZero() bool {
	_, ok := g.Lookup()
	return !ok
}

// Lookup extracts the value to resolve: the scalar itself, or the object's
// name, then its id.
func (g GroupRef) Lookup() (string, bool) {
	switch g.Kind {
	case GroupRefValue:
		return g.Value, g.Value != ""
	case GroupRefObject:
		if g.Name != "" {
			return g.Name, true
		}
		if g.ID != "" {
			return g.ID, true
		}
	}
	return "", false
}

func (g GroupRef) String() string {
	v, _ := g.Lookup()
	return v
}

type groupRefObject struct {
	ID   LooseString `yaml:"id,omitempty"`
	Name LooseString `yaml:"name,omitempty"`
}

func (g *GroupRef) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*g = GroupRef{}
			return nil
		}
		*g = GroupValue(n.Value)
		return nil
	case yaml.MappingNode:
		var obj groupRefObject
		if err := n.Decode(&obj); err != nil {
			return err
		}
		*g = GroupObject(string(obj.ID), string(obj.Name))
		return nil
	default:
		// Sequences and aliases are not group references; treat as absent.
		*g = GroupRef{}
		return nil
	}
}

func (g GroupRef) MarshalYAML() (any, error) {
	switch g.Kind {
	case GroupRefValue:
		return g.Value, nil
	case GroupRefObject:
		return groupRefObject{ID: LooseString(g.ID), Name: LooseString(g.Name)}, nil
	}
	return nil, nil
}

func (g *GroupRef) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case map[string]any:
		var id, name string
		if x, ok := t["id"]; ok {
			id = fmt.Sprint(x)
		}
		if x, ok := t["name"]; ok {
			name = fmt.Sprint(x)
		}
		*g = GroupObject(id, name)
	case nil:
		*g = GroupRef{}
	default:
		*g = GroupValue(fmt.Sprint(t))
	}
	return nil
}

func (g GroupRef) MarshalTOML() ([]byte, error) {
	switch g.Kind {
	case GroupRefObject:
		parts := make([]string, 0, 2)
		if g.ID != "" {
			parts = append(parts, "id = "+tomlQuote(g.ID))
		}
		if g.Name != "" {
			parts = append(parts, "name = "+tomlQuote(g.Name))
		}
		return []byte("{ " + strings.Join(parts, ", ") + " }"), nil
	default:
		return []byte(tomlQuote(g.Value)), nil
	}
}

// tomlQuote renders s as a TOML basic string.
func tomlQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// DisplayOptions are per-profile display hints supplied by a provider.
// Raw profile fields take precedence over them.
type DisplayOptions struct {
	Name        string
	Description string
	Icon        string
	Color       string
	Group       string
	IsBuiltin   bool
}

// Profile is the normalized view model shown by the selector.
type Profile struct {
	ID          string
	Type        string
	Name        string
	Group       string
	Host        string
	Color       string
	Icon        string
	Description string
	IsBuiltin   bool
	IsTemplate  bool

	BorderColor string
	IconHTML    string

	// Raw is the source entry this view was built from, before option merging.
	Raw RawProfile
}

// Key is the stable identity of a profile: its id, else type:name:host.
func (p Profile) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Type + ":" + p.Name + ":" + p.Host
}
