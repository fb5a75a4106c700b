package manager

import (
	"log"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// DisplayList is the grouped view handed to a renderer.
type DisplayList struct {
	Groups  []string
	Buckets map[string][]Profile
}

// Len returns the number of profiles across all buckets.
func (d DisplayList) Len() int {
	n := 0
	for _, g := range d.Groups {
		n += len(d.Buckets[g])
	}
	return n
}

// Flatten returns the profiles in display order (group by group).
func (d DisplayList) Flatten() []Profile {
	out := make([]Profile, 0, d.Len())
	for _, g := range d.Groups {
		out = append(out, d.Buckets[g]...)
	}
	return out
}

// GroupProfiles buckets profiles by group. Groups are ordered by their order
// key; within a bucket the input order is kept.
func GroupProfiles(profiles []Profile) DisplayList {
	dl := DisplayList{Groups: []string{}, Buckets: map[string][]Profile{}}
	for _, p := range profiles {
		if p.Group == "" {
			continue
		}
		if _, ok := dl.Buckets[p.Group]; !ok {
			dl.Groups = append(dl.Groups, p.Group)
		}
		dl.Buckets[p.Group] = append(dl.Buckets[p.Group], p)
	}
	c := newCollator()
	slices.SortStableFunc(dl.Groups, func(a, b string) int {
		return compareGroups(c, a, b)
	})
	return dl
}

// searchField adapts one profile field to fuzzy.Source.
type searchField struct {
	profiles []Profile
	get      func(Profile) string
}

func (s searchField) String(i int) string { return strings.ToLower(s.get(s.profiles[i])) }
func (s searchField) Len() int            { return len(s.profiles) }

var searchFields = []func(Profile) string{
	func(p Profile) string { return p.Name },
	func(p Profile) string { return p.Group },
	func(p Profile) string { return p.Description },
}

// SearchProfiles filters profiles by a fuzzy query over name, group and
// description. A blank query returns the full list. Recent entries are never
// matched. Results keep the input order; match scores are not used.
func SearchProfiles(profiles []Profile, query string, logger *log.Logger) (out []Profile) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(profiles)
	}

	defer func() {
		if r := recover(); r != nil {
			Logf(logger, "[SELECTOR] search %q failed: %v", query, r)
			out = []Profile{}
		}
	}()

	corpus := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.Group != GroupRecent {
			corpus = append(corpus, p)
		}
	}

	hit := make([]bool, len(corpus))
	for _, get := range searchFields {
		for _, m := range fuzzy.FindFromNoSort(q, searchField{profiles: corpus, get: get}) {
			hit[m.Index] = true
		}
	}

	out = []Profile{}
	for i, p := range corpus {
		if hit[i] {
			out = append(out, p)
		}
	}
	return out
}
