package textutil

import (
	"sort"

	"golang.org/x/text/cases"
)

// FoldKey returns the case-folded form of s. Two names that differ only in
// letter case share a fold key.
func FoldKey(s string) string {
	return cases.Fold().String(s)
}

// FoldCollisions groups names whose fold keys collide. Each returned group is
// sorted and holds at least two names; groups are ordered by their first name.
func FoldCollisions(names []string) [][]string {
	byKey := map[string][]string{}
	for _, name := range names {
		key := FoldKey(name)
		byKey[key] = append(byKey[key], name)
	}
	var out [][]string
	for _, group := range byKey {
		if len(group) < 2 {
			continue
		}
		sort.Strings(group)
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// ContainsFold reports whether names holds a case-insensitive match for name.
// An exact match is ignored when skipExact is set.
func ContainsFold(names []string, name string, skipExact bool) bool {
	key := FoldKey(name)
	for _, candidate := range names {
		if skipExact && candidate == name {
			continue
		}
		if FoldKey(candidate) == key {
			return true
		}
	}
	return false
}
