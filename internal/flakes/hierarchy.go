// Package flakes classifies failing tests against a registry of known flaky tests.
//
// Test names are slash-delimited paths (suite, subtest, sub-subtest). The hierarchy is
// purely syntactic: "A" is an ancestor of "A/B" but never of "AB/C".
package flakes

import "strings"

// Separator splits a test name into suite and subtest segments.
const Separator = "/"

// Depth returns the number of segments in name.
func Depth(name string) int {
	return strings.Count(name, Separator) + 1
}

// FamilyOf returns name together with every strict ancestor prefix of name.
func FamilyOf(name string) Set {
	family := make(Set, Depth(name))
	for i := 0; i < len(name); i++ {
		if name[i] == Separator[0] {
			family[name[:i]] = struct{}{}
		}
	}
	family[name] = struct{}{}
	return family
}

// FamiliesOf returns the union of the families of names.
func FamiliesOf(names []string) Set {
	families := make(Set)
	for _, name := range names {
		for member := range FamilyOf(name) {
			families[member] = struct{}{}
		}
	}
	return families
}

// IsStrictAncestor reports whether b lies below a in the test hierarchy.
func IsStrictAncestor(a, b string) bool {
	return strings.HasPrefix(b, a+Separator)
}

// FamiliesOfFailing keeps the names that failed themselves or under a failing ancestor
// and returns their families.
func FamiliesOfFailing(names []string, failing Set) Set {
	if len(failing) == 0 {
		return make(Set)
	}

	kept := make([]string, 0, len(names))
	for _, name := range names {
		for member := range FamilyOf(name) {
			if failing.Has(member) {
				kept = append(kept, name)
				break
			}
		}
	}
	return FamiliesOf(kept)
}

// IsKnownFlaky reports whether a failure of name is explained by known flaky tests.
//
// name is explained when it, or one of its ancestors, is known flaky, or when name belongs
// to runFamily. Callers pass the families of the known flaky tests that failed in the run
// so that a failing parent is explained by its failing flaky children.
func IsKnownFlaky(name string, known Set, runFamily Set) bool {
	for member := range FamilyOf(name) {
		if known.Has(member) {
			return true
		}
	}
	return runFamily.Has(name)
}

// ChildTestsInList returns the strict descendants of name found in candidates, in order.
func ChildTestsInList(name string, candidates []string) []string {
	var children []string
	for _, candidate := range candidates {
		if IsStrictAncestor(name, candidate) {
			children = append(children, candidate)
		}
	}
	return children
}
