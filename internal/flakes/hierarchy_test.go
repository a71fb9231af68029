package flakes

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{name: "A/B/C", want: []string{"A", "A/B", "A/B/C"}},
		{name: "TestKindSuite", want: []string{"TestKindSuite"}},
		{name: "", want: []string{""}},
		{name: "A//B", want: []string{"A", "A/", "A//B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FamilyOf(tt.name)
			if diff := cmp.Diff(tt.want, got.Sorted()); diff != "" {
				t.Fatalf("FamilyOf(%q) mismatch (-want +got):\n%s", tt.name, diff)
			}
			if got.Len() != len(strings.Split(tt.name, Separator)) {
				t.Fatalf("expected one member per segment, got %d", got.Len())
			}
		})
	}
}

func TestFamiliesOf(t *testing.T) {
	got := FamiliesOf([]string{"TestEKSSuite/TestCPU/TestCPUUtilization", "TestKindSuite/TestKind"})
	want := []string{
		"TestEKSSuite",
		"TestEKSSuite/TestCPU",
		"TestEKSSuite/TestCPU/TestCPUUtilization",
		"TestKindSuite",
		"TestKindSuite/TestKind",
	}
	if diff := cmp.Diff(want, got.Sorted()); diff != "" {
		t.Fatalf("FamiliesOf mismatch (-want +got):\n%s", diff)
	}

	if empty := FamiliesOf(nil); empty.Len() != 0 {
		t.Fatalf("expected empty family, got %v", empty.Sorted())
	}
}

func TestFamiliesOfFailing(t *testing.T) {
	names := []string{"TestEKSSuite/TestCPU/TestCPUUtilization", "TestKindSuite/TestCPU"}

	tests := []struct {
		desc    string
		failing Set
		want    []string
	}{
		{
			desc:    "no failing tests",
			failing: NewSet(),
			want:    []string{},
		},
		{
			desc:    "all failing",
			failing: NewSet("TestKindSuite/TestCPU", "TestEKSSuite/TestCPU/TestCPUUtilization"),
			want: []string{
				"TestEKSSuite",
				"TestEKSSuite/TestCPU",
				"TestEKSSuite/TestCPU/TestCPUUtilization",
				"TestKindSuite",
				"TestKindSuite/TestCPU",
			},
		},
		{
			desc:    "some failing",
			failing: NewSet("TestKindSuite/TestCPU"),
			want:    []string{"TestKindSuite", "TestKindSuite/TestCPU"},
		},
		{
			desc:    "failing ancestor",
			failing: NewSet("TestEKSSuite"),
			want: []string{
				"TestEKSSuite",
				"TestEKSSuite/TestCPU",
				"TestEKSSuite/TestCPU/TestCPUUtilization",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := FamiliesOfFailing(names, tt.failing)
			if diff := cmp.Diff(tt.want, got.Sorted()); diff != "" {
				t.Fatalf("FamiliesOfFailing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsStrictAncestor(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{a: "TestEKSSuite", b: "TestEKSSuite/TestCPU", want: true},
		{a: "TestEKSSuite/TestCPU", b: "TestEKSSuite/TestCPU/TestCPUUtilization", want: true},
		{a: "TestEKSSuite", b: "TestEKSSuite/TestCPU/TestCPUUtilization", want: true},
		{a: "TestEKSSuite", b: "TestKindSuite/TestCPU/TestToto/TestNario", want: false},
		{a: "TestEKSSuite/TestCPU", b: "TestKindSuite/TestCPU/TestCPUUtilization", want: false},
		{a: "TestEKSSuite", b: "TestEKSSuiteVM/mario", want: false},
		{a: "TestEKSSuite", b: "TestEKSSuite", want: false},
	}

	for _, tt := range tests {
		if got := IsStrictAncestor(tt.a, tt.b); got != tt.want {
			t.Errorf("IsStrictAncestor(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsKnownFlaky(t *testing.T) {
	tests := []struct {
		desc      string
		name      string
		known     Set
		runFamily Set
		want      bool
	}{
		{
			desc:      "known flake",
			name:      "TestEKSSuite/mario",
			known:     NewSet("TestEKSSuite/mario"),
			runFamily: NewSet("TestEKSSuite", "TestEKSSuite/mario"),
			want:      true,
		},
		{
			desc:      "parent of failing flake",
			name:      "TestEKSSuite",
			known:     NewSet("TestEKSSuite/mario"),
			runFamily: NewSet("TestEKSSuite", "TestEKSSuite/mario"),
			want:      true,
		},
		{
			desc:      "parent of nested failing flake",
			name:      "TestEKSSuite/mario",
			known:     NewSet("TestEKSSuite/mario/luigi"),
			runFamily: NewSet("TestEKSSuite", "TestEKSSuite/mario", "TestEKSSuite/mario/luigi"),
			want:      true,
		},
		{
			desc:      "child of known flake",
			name:      "TestEKSSuite/mario/luigi",
			known:     NewSet("TestEKSSuite/mario"),
			runFamily: NewSet(),
			want:      true,
		},
		{
			desc:      "sibling of known flake",
			name:      "TestEKSSuite/luigi",
			known:     NewSet("TestEKSSuite/mario"),
			runFamily: NewSet("TestEKSSuite", "TestEKSSuite/mario"),
			want:      false,
		},
		{
			desc:      "suite sharing a name prefix",
			name:      "TestEKSSuiteVM/mario",
			known:     NewSet("TestEKSSuite/mario"),
			runFamily: NewSet("TestEKSSuite"),
			want:      false,
		},
		{
			desc:      "flake in suite sharing a name prefix",
			name:      "TestEKSSuite/mario",
			known:     NewSet("TestEKSSuiteVM/mario"),
			runFamily: NewSet("TestEKSSuiteVM"),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := IsKnownFlaky(tt.name, tt.known, tt.runFamily); got != tt.want {
				t.Fatalf("IsKnownFlaky(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestChildTestsInList(t *testing.T) {
	got := ChildTestsInList("TestEKSSuite/TestCPU", []string{
		"TestEKSSuite/TestCPU/TestCPUUtilization",
		"TestEKSSuite/TestCPU",
		"TestKindSuite/TestCPU",
		"TestEKSSuite/TestCPUs/Other",
		"TestEKSSuite/TestCPU/TestCPUUtilization/Toto",
	})
	want := []string{"TestEKSSuite/TestCPU/TestCPUUtilization", "TestEKSSuite/TestCPU/TestCPUUtilization/Toto"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ChildTestsInList mismatch (-want +got):\n%s", diff)
	}

	if none := ChildTestsInList("TestKindSuite", []string{"TestKindSuite"}); none != nil {
		t.Fatalf("expected no children, got %v", none)
	}
}
