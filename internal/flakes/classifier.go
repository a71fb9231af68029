package flakes

// Classifier answers flakiness questions for the tests of a single run.
type Classifier struct {
	known     Set
	failing   Set
	runFamily Set
}

// NewClassifier precomputes the families of the failing tests that are known flaky
// themselves or through one of their suites.
func NewClassifier(known, failing Set) *Classifier {
	if known == nil {
		known = make(Set)
	}
	if failing == nil {
		failing = make(Set)
	}
	// Families of the failing tests that are, or sit below, a known flaky test.
	underKnown := FamiliesOfFailing(failing.Sorted(), known)
	return &Classifier{
		known:     known,
		failing:   failing,
		runFamily: underKnown,
	}
}

// Explains reports whether a failure of name is explained by known flaky tests under the
// family rule alone. A failing suite counts as explained once any failing child is flaky,
// even with an unexplained sibling; use Explained for the consolidated answer.
func (c *Classifier) Explains(name string) bool {
	return IsKnownFlaky(name, c.known, c.runFamily)
}

// Explained returns the failing tests to leave out of alerts. Failures below a known flaky
// suite count as known flaky before the failing hierarchy is consolidated.
func (c *Classifier) Explained() Set {
	seeds := make(Set, len(c.known))
	for name := range c.failing {
		if c.underKnownFlaky(name) {
			seeds.Add(name)
		}
	}
	return ConsolidateKnownFlakyFailures(seeds, c.failing)
}

// Actionable returns the failing tests that flakiness does not explain.
func (c *Classifier) Actionable() Set {
	return c.failing.Difference(c.Explained())
}

func (c *Classifier) underKnownFlaky(name string) bool {
	for member := range FamilyOf(name) {
		if c.known.Has(member) {
			return true
		}
	}
	return false
}

// Leaves returns the members of names that have no strict descendant in names, sorted.
func Leaves(names Set) []string {
	sorted := names.Sorted()
	var leaves []string
	for _, name := range sorted {
		if len(ChildTestsInList(name, sorted)) == 0 {
			leaves = append(leaves, name)
		}
	}
	return leaves
}
