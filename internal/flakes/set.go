package flakes

import "sort"

// Set is an unordered collection of test names.
type Set map[string]struct{}

// NewSet builds a Set from the provided names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	s.Add(names...)
	return s
}

// Add inserts names into the set.
func (s Set) Add(names ...string) {
	for _, name := range names {
		s[name] = struct{}{}
	}
}

// Has reports whether name is a member of the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s) }

// Difference returns the members of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set, len(s))
	for name := range s {
		if !other.Has(name) {
			out[name] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
