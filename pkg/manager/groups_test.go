package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveGroup(t *testing.T) {
	registry := []Group{
		{ID: "g1", Name: "Work"},
		{ID: "42", Name: "Lab"},
		{ID: "g3"},
	}

	tests := []struct {
		name   string
		ref    GroupRef
		want   string
		wantOK bool
	}{
		{"absent", GroupRef{}, "", false},
		{"empty object", GroupObject("", ""), "", false},
		{"id", GroupValue("g1"), "Work", true},
		{"object id only", GroupObject("g1", ""), "Work", true},
		{"object name wins over id", GroupObject("g1", "lab"), "Lab", true},
		{"numeric id", GroupValue("42"), "Lab", true},
		{"case-insensitive name", GroupValue("work"), "Work", true},
		{"case-insensitive id", GroupValue("G1"), "Work", true},
		{"nameless entry keeps value", GroupValue("g3"), "g3", true},
		{"free-form name", GroupValue("Servers"), "Servers", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveGroup(tt.ref, registry)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroupOrderKey_Bands(t *testing.T) {
	ordered := []string{"Recent", "Favorites", "AnyUserGroup", "Ungrouped", "Imported X", "Built-in"}
	for i := 1; i < len(ordered); i++ {
		a, b := GroupOrderKey(ordered[i-1]), GroupOrderKey(ordered[i])
		assert.Less(t, a, b, "%s should sort before %s", ordered[i-1], ordered[i])
	}

	for _, fav := range []string{"Favorites", "Starred", "Favourites", "Favorite", "Favourited"} {
		assert.Equal(t, "0001", GroupOrderKey(fav))
	}
	assert.Equal(t, "Servers", GroupOrderKey("Servers"))
}

func TestCompareGroups_TotalOrderWithinReservedBand(t *testing.T) {
	c := newCollator()
	assert.Less(t, compareGroups(c, "Favorites", "Starred"), 0)
	assert.Greater(t, compareGroups(c, "Starred", "Favorites"), 0)
	assert.Equal(t, 0, compareGroups(c, "Work", "Work"))
	assert.Less(t, compareGroups(c, "Recent", "Favorites"), 0)
}
