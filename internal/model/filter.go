package model

import "strings"

// Filter holds the library listing predicates. Zero-value fields are
// inactive; active predicates are combined with logical AND.
type Filter struct {
	StarredOnly bool
	Tag         string
	Model       string
	Query       string
}

// Match reports whether a satisfies every active predicate. Both store
// backends route through this so filtering semantics cannot drift between
// them.
func (f Filter) Match(a Artifact) bool {
	if f.StarredOnly && !a.Starred {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range a.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Model != "" && a.Model != f.Model {
		return false
	}
	if f.Query != "" {
		blob := strings.ToLower(strings.Join([]string{
			a.Output, a.UserPrompt, a.Model, strings.Join(a.Tags, " "),
		}, "\n"))
		if !strings.Contains(blob, strings.ToLower(f.Query)) {
			return false
		}
	}
	return true
}
