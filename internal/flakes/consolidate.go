package flakes

import "sort"

// failureNode is a failing test in a prefix tree whose edges link each failing test to
// its nearest failing ancestor.
type failureNode struct {
	name     string
	children []*failureNode
}

// ConsolidateKnownFlakyFailures returns the failing tests whose failure is explained by
// flakiness.
//
// A failing test is explained when it is known flaky, or when it has at least one failing
// descendant and every failing descendant is itself explained. A single unexplained
// descendant keeps all of its ancestors unexplained. The result only holds failing tests.
func ConsolidateKnownFlakyFailures(known, failing Set) Set {
	explained := make(Set)
	for _, root := range buildFailureTree(failing) {
		markExplained(root, known, explained)
	}
	return explained
}

// markExplained walks the subtree bottom-up. It reports whether every failing test in the
// subtree, node included, is explained.
func markExplained(node *failureNode, known, explained Set) bool {
	allChildrenExplained := true
	for _, child := range node.children {
		if !markExplained(child, known, explained) {
			allChildrenExplained = false
		}
	}

	if known.Has(node.name) || (len(node.children) > 0 && allChildrenExplained) {
		explained.Add(node.name)
		return allChildrenExplained
	}
	return false
}

func buildFailureTree(failing Set) []*failureNode {
	// Shallow names first so every parent node exists before its children are attached.
	names := failing.Sorted()
	sort.SliceStable(names, func(i, j int) bool {
		return Depth(names[i]) < Depth(names[j])
	})

	nodes := make(map[string]*failureNode, len(names))
	var roots []*failureNode
	for _, name := range names {
		node := &failureNode{name: name}
		nodes[name] = node

		if parent := nearestFailingAncestor(name, nodes); parent != nil {
			parent.children = append(parent.children, node)
			continue
		}
		roots = append(roots, node)
	}
	return roots
}

func nearestFailingAncestor(name string, nodes map[string]*failureNode) *failureNode {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] != Separator[0] {
			continue
		}
		if node, ok := nodes[name[:i]]; ok {
			return node
		}
	}
	return nil
}
