// internal/config/config.go
//
// This package handles configuration and the .coursepick directory structure.
// Every directory coursepick runs in gets a .coursepick/ folder holding the
// project config, logs and saved selection reports.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/selection"
)

const (
	// ProjectDirName is the name of the directory we create in each project
	ProjectDirName = ".coursepick"

	defaultCatalogPath = "All_Courses.csv"
	defaultServerAddr  = ":8080"
)

const defaultProjectConfigYAML = `# coursepick project configuration
version: 1

# The course table. The header row is the first row with a "Code" column;
# anything above it is skipped.
catalog:
  path: All_Courses.csv
  delimiter: ";"
  list_separator: ","
  ignore_codes:
    - 200F

selection:
  limit: 5

server:
  addr: ":8080"
`

// CatalogConfig describes where and how to read the course table.
type CatalogConfig struct {
	Path          string   `yaml:"path"`
	Delimiter     string   `yaml:"delimiter"`
	ListSeparator string   `yaml:"list_separator"`
	IgnoreCodes   []string `yaml:"ignore_codes,omitempty"`
}

// SelectionConfig holds the selection rules.
type SelectionConfig struct {
	Limit int `yaml:"limit"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ProjectConfig models .coursepick/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Selection SelectionConfig `yaml:"selection"`
	Server    ServerConfig    `yaml:"server"`
}

// EnvOverrides are read from the environment after config.yaml.
type EnvOverrides struct {
	CatalogPath string `env:"COURSEPICK_CATALOG"`
	Delimiter   string `env:"COURSEPICK_DELIMITER"`
	Limit       int    `env:"COURSEPICK_LIMIT"`
	Addr        string `env:"COURSEPICK_ADDR"`
}

// Config holds the runtime configuration.
type Config struct {
	// ProjectDir is the directory where the user ran `coursepick` from
	ProjectDir string

	// StateDir is ProjectDir/.coursepick
	StateDir string

	Project ProjectConfig
}

// InitDir creates the .coursepick directory structure in the given project
// directory and writes a default config.yaml when none exists.
//
// Structure created:
// .coursepick/
// ├── config.yaml
// ├── logs/       <- zap log and the session logbook
// └── reports/    <- saved selection reports
func InitDir(projectDir string) error {
	base := filepath.Join(projectDir, ProjectDirName)
	for _, dir := range []string{
		filepath.Join(base, "logs"),
		filepath.Join(base, "reports"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(base, "config.yaml"))
}

// NewConfig loads config.yaml (if present) and applies environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, ProjectDirName),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// ReportsDir returns the directory saved selection reports go to
func (c *Config) ReportsDir() string {
	return filepath.Join(c.StateDir, "reports")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// CatalogPath returns the resolved course table path.
func (c *Config) CatalogPath() string {
	return c.Project.Catalog.Path
}

// CatalogOptions converts the catalog section into loader options.
func (c *Config) CatalogOptions() catalog.Options {
	delim, _ := utf8.DecodeRuneInString(c.Project.Catalog.Delimiter)
	return catalog.Options{
		Delimiter:     delim,
		ListSeparator: c.Project.Catalog.ListSeparator,
		IgnoreCodes:   append([]string{}, c.Project.Catalog.IgnoreCodes...),
	}
}

// Limit returns the maximum number of selected courses.
func (c *Config) Limit() int {
	return c.Project.Selection.Limit
}

// ServerAddr returns the HTTP listen address.
func (c *Config) ServerAddr() string {
	return c.Project.Server.Addr
}

// Override applies command-line values on top of file and environment
// settings. Zero values leave the current setting alone.
func (c *Config) Override(catalogPath, delimiter string, limit int) error {
	if catalogPath != "" {
		c.Project.Catalog.Path = catalogPath
	}
	if delimiter != "" {
		c.Project.Catalog.Delimiter = delimiter
	}
	if limit != 0 {
		c.Project.Selection.Limit = limit
	}
	return c.finish()
}

// Save writes the current project config back to .coursepick/config.yaml.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	if err := c.finish(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	out := c.Project
	if rel, err := filepath.Rel(c.ProjectDir, out.Catalog.Path); err == nil && !strings.HasPrefix(rel, "..") {
		out.Catalog.Path = rel
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c.finish()
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Project = parsed
	return c.finish()
}

func (c *Config) applyEnv() error {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	if overrides.Addr != "" {
		c.Project.Server.Addr = overrides.Addr
	}
	return c.Override(overrides.CatalogPath, overrides.Delimiter, overrides.Limit)
}

func (c *Config) finish() error {
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Catalog: CatalogConfig{
			Path:          defaultCatalogPath,
			Delimiter:     string(catalog.DefaultDelimiter),
			ListSeparator: catalog.DefaultListSeparator,
			IgnoreCodes:   append([]string{}, catalog.DefaultIgnoreCodes...),
		},
		Selection: SelectionConfig{Limit: selection.DefaultLimit},
		Server:    ServerConfig{Addr: defaultServerAddr},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Catalog.Path) == "" {
		pc.Catalog.Path = defaultCatalogPath
	}
	if pc.Catalog.Delimiter == "" {
		pc.Catalog.Delimiter = string(catalog.DefaultDelimiter)
	}
	if pc.Catalog.ListSeparator == "" {
		pc.Catalog.ListSeparator = catalog.DefaultListSeparator
	}
	if pc.Selection.Limit == 0 {
		pc.Selection.Limit = selection.DefaultLimit
	}
	if strings.TrimSpace(pc.Server.Addr) == "" {
		pc.Server.Addr = defaultServerAddr
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Catalog.Path = resolvePath(base, pc.Catalog.Path)
	if d := pc.Catalog.Delimiter; d == `\t` || strings.EqualFold(d, "tab") {
		pc.Catalog.Delimiter = "\t"
	}
	for i, code := range pc.Catalog.IgnoreCodes {
		pc.Catalog.IgnoreCodes[i] = strings.TrimSpace(code)
	}
	pc.Server.Addr = strings.TrimSpace(pc.Server.Addr)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if utf8.RuneCountInString(pc.Catalog.Delimiter) != 1 {
		return fmt.Errorf("catalog.delimiter must be a single character, got %q", pc.Catalog.Delimiter)
	}
	switch pc.Catalog.Delimiter {
	case "\"", "\r", "\n":
		return fmt.Errorf("catalog.delimiter %q is not allowed", pc.Catalog.Delimiter)
	}
	if pc.Selection.Limit < 1 {
		return fmt.Errorf("selection.limit must be >= 1")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
