package flakes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConsolidateKnownFlakyFailures(t *testing.T) {
	tests := []struct {
		desc    string
		known   Set
		failing Set
		want    []string
	}{
		{
			desc:    "single known flake",
			known:   NewSet("TestEKSSuite/Mario"),
			failing: NewSet("TestEKSSuite/Mario"),
			want:    []string{"TestEKSSuite/Mario"},
		},
		{
			desc:    "parent of known flake",
			known:   NewSet("TestEKSSuite/Mario"),
			failing: NewSet("TestEKSSuite", "TestEKSSuite/Mario"),
			want:    []string{"TestEKSSuite", "TestEKSSuite/Mario"},
		},
		{
			desc:    "parent of unknown failure",
			known:   NewSet("Mario"),
			failing: NewSet("EKSSuite", "EKSSuite/Luigi"),
			want:    []string{},
		},
		{
			desc:    "known flake that did not fail",
			known:   NewSet("TestEKSSuite/Mario"),
			failing: NewSet("TestEKSSuite", "TestEKSSuite/Luigi"),
			want:    []string{},
		},
		{
			desc:  "recursively flaky",
			known: NewSet("TestEKSSuite/Mario/Luigi/Wario", "TestEKSSuite/Mario/Luigi/Waluigi"),
			failing: NewSet(
				"TestEKSSuite/Mario",
				"TestEKSSuite/Mario/Luigi",
				"TestEKSSuite/Mario/Luigi/Wario",
				"TestEKSSuite/Mario/Luigi/Waluigi",
				"TestKindSuite/Mario",
			),
			want: []string{
				"TestEKSSuite/Mario",
				"TestEKSSuite/Mario/Luigi",
				"TestEKSSuite/Mario/Luigi/Waluigi",
				"TestEKSSuite/Mario/Luigi/Wario",
			},
		},
		{
			desc:  "one unexplained descendant",
			known: NewSet("TestEKSSuite/Mario/Luigi/Wario", "TestEKSSuite/Mario/Luigi/Waluigi"),
			failing: NewSet(
				"TestEKSSuite/Mario",
				"TestEKSSuite/Mario/Luigi",
				"TestEKSSuite/Mario/Luigi/Wario",
				"TestEKSSuite/Mario/Luigi/Waluigi",
				"TestEKSSuite/Mario/Luigi/Yoshi",
				"TestKindSuite/Mario",
			),
			want: []string{"TestEKSSuite/Mario/Luigi/Waluigi", "TestEKSSuite/Mario/Luigi/Wario"},
		},
		{
			desc:    "known flake above an unexplained failure",
			known:   NewSet("A/B"),
			failing: NewSet("A", "A/B", "A/B/C"),
			want:    []string{"A/B"},
		},
		{
			desc:    "gap in the failing hierarchy",
			known:   NewSet("A/B/C"),
			failing: NewSet("A", "A/B/C"),
			want:    []string{"A", "A/B/C"},
		},
		{
			desc:    "suite sharing a name prefix",
			known:   NewSet("TestEKSSuite/Mario"),
			failing: NewSet("TestEKSSuiteVM", "TestEKSSuite/Mario"),
			want:    []string{"TestEKSSuite/Mario"},
		},
		{
			desc:    "no failures",
			known:   NewSet("A"),
			failing: NewSet(),
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := ConsolidateKnownFlakyFailures(tt.known, tt.failing)
			if diff := cmp.Diff(tt.want, got.Sorted()); diff != "" {
				t.Fatalf("ConsolidateKnownFlakyFailures mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConsolidateLeafNeedsDirectMatch(t *testing.T) {
	got := ConsolidateKnownFlakyFailures(NewSet(), NewSet("A", "A/B"))
	if got.Len() != 0 {
		t.Fatalf("expected no explained failures, got %v", got.Sorted())
	}
}
