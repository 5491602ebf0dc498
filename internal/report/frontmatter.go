package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("report: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("report: malformed frontmatter")
)

// FormatVersion is written into every report.
const FormatVersion = "1"

// Metadata is the frontmatter block of a selection report.
type Metadata struct {
	Version   string
	Catalog   string
	Limit     int
	Selected  []string
	CreatedAt time.Time
	Notes     map[string]string
}

type envelope struct {
	Coursepick frontMatter `yaml:"coursepick"`
}

type frontMatter struct {
	Version  string            `yaml:"version"`
	Catalog  string            `yaml:"catalog,omitempty"`
	Limit    int               `yaml:"limit"`
	Selected []string          `yaml:"selected"`
	Created  string            `yaml:"created"`
	Notes    map[string]string `yaml:"notes,omitempty"`
}

// ParseFrontMatter extracts the metadata block and body from a document that
// starts with `---` YAML fences.
func ParseFrontMatter(content []byte) (Metadata, []byte, error) {
	if len(content) == 0 {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	var env envelope
	if err := yaml.Unmarshal(parts[0], &env); err != nil {
		return Metadata{}, nil, fmt.Errorf("report: parse frontmatter: %w", err)
	}
	meta, err := env.toMetadata()
	if err != nil {
		return Metadata{}, nil, err
	}
	return meta, parts[1], nil
}

// WriteFrontMatter renders metadata + body with YAML fences.
func WriteFrontMatter(meta Metadata, body []byte) ([]byte, error) {
	if meta.CreatedAt.IsZero() {
		return nil, fmt.Errorf("report: metadata missing created timestamp")
	}
	env := envelope{Coursepick: frontMatter{
		Version:  meta.Version,
		Catalog:  meta.Catalog,
		Limit:    meta.Limit,
		Selected: append([]string{}, meta.Selected...),
		Created:  meta.CreatedAt.UTC().Format(time.RFC3339),
		Notes:    meta.Notes,
	}}
	if env.Coursepick.Version == "" {
		env.Coursepick.Version = FormatVersion
	}
	data, err := yaml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("report: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

func (e envelope) toMetadata() (Metadata, error) {
	fm := e.Coursepick
	if fm.Version == "" {
		return Metadata{}, ErrMalformedFrontMatter
	}
	if strings.TrimSpace(fm.Created) == "" {
		return Metadata{}, fmt.Errorf("%w: empty created timestamp", ErrMalformedFrontMatter)
	}
	created, err := time.Parse(time.RFC3339, fm.Created)
	if err != nil {
		return Metadata{}, fmt.Errorf("report: parse created timestamp: %w", err)
	}
	return Metadata{
		Version:   fm.Version,
		Catalog:   fm.Catalog,
		Limit:     fm.Limit,
		Selected:  append([]string{}, fm.Selected...),
		CreatedAt: created.UTC(),
		Notes:     fm.Notes,
	}, nil
}
