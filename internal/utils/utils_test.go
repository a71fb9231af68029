package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	base := NewAppError("registry.fetch", KindUnavailable, "registry unreachable", errors.New("dial tcp"))
	wrapped := fmt.Errorf("triage: %w", base)

	if got := KindOf(wrapped); got != KindUnavailable {
		t.Fatalf("expected unavailable, got %s", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Fatalf("expected internal, got %s", got)
	}
	if base.Error() != "registry.fetch: registry unreachable: dial tcp" {
		t.Fatalf("unexpected message: %s", base.Error())
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-05-01T10:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ts.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time: %v", ts)
	}

	unix, err := ParseTimestamp("1700000000")
	if err != nil || unix.Unix() != 1_700_000_000 {
		t.Fatalf("unexpected unix parse: %v %v", unix, err)
	}

	zero, err := ParseTimestamp("")
	if err != nil || !zero.IsZero() {
		t.Fatalf("expected zero time, got %v %v", zero, err)
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARN") != slog.LevelWarn {
		t.Fatalf("expected warn level")
	}
	if ParseLevel("verbose") != slog.LevelInfo {
		t.Fatalf("expected info fallback")
	}
}
