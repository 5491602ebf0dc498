// Package report saves a selection as a Markdown document with YAML
// frontmatter and reads it back into a selection state.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kingrea/coursepick/internal/selection"
)

const maxNameAttempts = 1000

// Store manages report files under one directory.
type Store struct {
	dir     string
	catalog string
	now     func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for timestamps and file names.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// WithCatalogPath records the catalog file the selection was made against.
func WithCatalogPath(path string) StoreOption {
	return func(s *Store) {
		s.catalog = path
	}
}

// NewStore builds a store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	store := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Dir returns the directory reports are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Write saves the state and its evaluation and returns the file path.
func (s *Store) Write(st selection.State, ev selection.Evaluation) (string, error) {
	created := s.now().UTC()
	meta := Metadata{
		Version:   FormatVersion,
		Catalog:   s.catalog,
		Limit:     ev.Limit,
		Selected:  st.Selected(),
		CreatedAt: created,
	}
	content, err := WriteFrontMatter(meta, []byte(RenderMarkdown(ev)))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: ensure dir: %w", err)
	}
	return s.create(fmt.Sprintf("selection-%s", created.Format("20060102-150405")), content)
}

// create writes content to base.md, or base-2.md, base-3.md, ... when an
// earlier report already holds the name. Existing reports are never replaced.
func (s *Store) create(base string, content []byte) (string, error) {
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		name := base + ".md"
		if attempt > 1 {
			name = fmt.Sprintf("%s-%d.md", base, attempt)
		}
		path := filepath.Join(s.dir, name)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("report: create %s: %w", path, err)
		}
		_, err = file.Write(content)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return "", fmt.Errorf("report: write %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("report: no free file name for %s", base)
}

// Read loads a report and returns its metadata and the recorded state.
func Read(path string) (Metadata, selection.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, selection.State{}, fmt.Errorf("report: read %s: %w", path, err)
	}
	meta, _, err := ParseFrontMatter(data)
	if err != nil {
		return Metadata{}, selection.State{}, fmt.Errorf("%w (%s)", err, path)
	}
	return meta, selection.NewState(meta.Selected...), nil
}

// RenderMarkdown renders the human-readable body of a report.
func RenderMarkdown(ev selection.Evaluation) string {
	var b strings.Builder
	b.WriteString("# Course selection\n\n")
	fmt.Fprintf(&b, "## Selected courses (%d/%d)\n\n", len(ev.Selected), ev.Limit)
	if len(ev.Selected) == 0 {
		b.WriteString("No courses selected.\n")
	}
	for _, course := range ev.Selected {
		fmt.Fprintf(&b, "- %s (Code: `%s`)\n", course.Name, course.Code)
	}
	b.WriteString("\n## Incompatible courses\n\n")
	switch {
	case len(ev.Selected) == 0:
		b.WriteString("Select courses to see incompatibility information.\n")
	case len(ev.Conflicts) == 0:
		b.WriteString("No conflicts. All selected courses are compatible.\n")
	default:
		b.WriteString("The following courses are not compatible with the selection:\n\n")
		for _, name := range ev.Conflicts {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	if len(ev.Clashes) > 0 {
		b.WriteString("\n## Clashing selections\n\n")
		for _, pair := range ev.Clashes {
			fmt.Fprintf(&b, "- %s (`%s`) excludes %s (`%s`)\n",
				ev.SelectedName(pair.From), pair.From, ev.SelectedName(pair.To), pair.To)
		}
	}
	return b.String()
}
