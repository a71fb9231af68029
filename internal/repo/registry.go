package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/flake-triage/internal/models"
)

// Registry supplies the tests known to be flaky for a project.
type Registry interface {
	KnownFlakes(ctx context.Context, project string) (models.KnownFlakes, error)
}

// flakesFileEntry is one item of a flakes file:
//
//	github.com/org/repo/test/e2e/containers:
//	  - test: TestEKSSuite/TestCPU
type flakesFileEntry struct {
	Test string `yaml:"test"`
}

// FileRegistry reads known flakes from a YAML file on every call, so edits are picked up
// without a restart. The file is shared by every project.
type FileRegistry struct {
	path string
}

// NewFileRegistry returns a registry backed by the YAML file at path.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// KnownFlakes parses the flakes file. A missing file yields an empty registry.
func (r *FileRegistry) KnownFlakes(_ context.Context, _ string) (models.KnownFlakes, error) {
	known := make(models.KnownFlakes)
	if r == nil || r.path == "" {
		return known, nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return known, nil
		}
		return nil, fmt.Errorf("read flakes file: %w", err)
	}
	return ParseFlakesFile(data)
}

// ParseFlakesFile decodes the YAML flakes layout keyed by package.
func ParseFlakesFile(data []byte) (models.KnownFlakes, error) {
	var doc map[string][]flakesFileEntry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flakes file: %w", err)
	}

	known := make(models.KnownFlakes, len(doc))
	for pkg, entries := range doc {
		for _, entry := range entries {
			name := strings.TrimSpace(entry.Test)
			if name == "" {
				continue
			}
			known.Add(pkg, name)
		}
	}
	return known, nil
}
