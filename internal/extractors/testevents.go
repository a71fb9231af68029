package extractors

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/miradorstack/flake-triage/internal/flakes"
	"github.com/miradorstack/flake-triage/internal/models"
)

// testEvent mirrors the records emitted by `go test -json`.
type testEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
}

type testKey struct {
	pkg  string
	name string
}

// ParseTestEvents reads a test2json stream and returns one result per test. The last
// terminal action of a test wins and results keep the order in which tests first appeared.
func ParseTestEvents(r io.Reader) ([]models.TestResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	index := make(map[testKey]int)
	var results []models.TestResult

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var ev testEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode test event on line %d: %w", line, err)
		}
		if ev.Test == "" {
			continue
		}

		key := testKey{pkg: ev.Package, name: ev.Test}
		pos, seen := index[key]
		if !seen {
			pos = len(results)
			index[key] = pos
			results = append(results, models.TestResult{Package: ev.Package, Name: ev.Test, Outcome: models.OutcomeSkip})
		}

		switch ev.Action {
		case "pass", "fail", "skip":
			results[pos].Outcome = models.Outcome(ev.Action)
			results[pos].Elapsed = time.Duration(ev.Elapsed * float64(time.Second))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read test events: %w", err)
	}
	return results, nil
}

// PackageOutcome holds the executed and failing test names of one package.
type PackageOutcome struct {
	Package  string
	Executed []string
	Failing  flakes.Set
}

// SplitOutcomes groups results by package, preserving first-seen package order. Skipped
// tests count as executed but never as failing.
func SplitOutcomes(results []models.TestResult) []PackageOutcome {
	index := make(map[string]int)
	var outcomes []PackageOutcome

	for _, res := range results {
		pos, ok := index[res.Package]
		if !ok {
			pos = len(outcomes)
			index[res.Package] = pos
			outcomes = append(outcomes, PackageOutcome{Package: res.Package, Failing: flakes.NewSet()})
		}
		outcomes[pos].Executed = append(outcomes[pos].Executed, res.Name)
		if res.Failed() {
			outcomes[pos].Failing.Add(res.Name)
		}
	}
	return outcomes
}
