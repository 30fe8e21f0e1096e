// Package config loads devana settings from .devana/devana.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the devana configuration file.
const ConfigFileName = "devana.yaml"

// ConfigDirName is the name of the devana configuration directory.
const ConfigDirName = ".devana"

// Config holds all devana configuration.
type Config struct {
	Directives DirectivesConfig `yaml:"directives"`
	Comments   CommentsConfig   `yaml:"comments"`
	Build      BuildConfig      `yaml:"build"`
	Sources    SourcesConfig    `yaml:"sources"`
}

// DirectivesConfig controls directive recognition in comments.
type DirectivesConfig struct {
	Namespace string `yaml:"namespace"`
}

// CommentsConfig controls documentation comment normalization. Unset
// fields take their defaults.
type CommentsConfig struct {
	Accumulate        *bool `yaml:"accumulate"`
	RemoveAsterisks   *bool `yaml:"remove_asterisks"`
	RemoveBlankLines  *bool `yaml:"remove_blank_lines"`
	TrailingFieldDocs *bool `yaml:"trailing_field_docs"`
}

// BuildConfig controls the pipeline.
type BuildConfig struct {
	Parallel       *bool `yaml:"parallel"`
	Jobs           int   `yaml:"jobs"`
	MaxDiagnostics int   `yaml:"max_diagnostics"`
}

// SourcesConfig selects the files indexed from a directory.
type SourcesConfig struct {
	Extensions []string `yaml:"extensions"`
	Exclude    []string `yaml:"exclude"`
}

// ErrConfigNotFound is returned when no config directory can be found.
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

var namespaceRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// On reports whether an optional flag is set and true.
func On(p *bool) bool {
	return p != nil && *p
}

// Load reads config from .devana/devana.yaml, searching from workDir
// upward. Defaults are returned when no config directory exists.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFromPath(filepath.Join(configDir, ConfigFileName))
}

// LoadFromPath reads config from a specific path, merges it with the
// defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindConfigDir locates the .devana directory by walking up from startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("config: resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// Validate checks that config values are usable.
func Validate(cfg *Config) error {
	if !namespaceRe.MatchString(cfg.Directives.Namespace) {
		return fmt.Errorf("%w: directives.namespace must be an identifier, got %q",
			ErrInvalidConfig, cfg.Directives.Namespace)
	}
	if cfg.Build.Jobs < 0 {
		return fmt.Errorf("%w: build.jobs must be non-negative, got %d",
			ErrInvalidConfig, cfg.Build.Jobs)
	}
	if cfg.Build.MaxDiagnostics <= 0 {
		return fmt.Errorf("%w: build.max_diagnostics must be positive, got %d",
			ErrInvalidConfig, cfg.Build.MaxDiagnostics)
	}
	for _, ext := range cfg.Sources.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("%w: sources.extensions entry %q must start with a dot",
				ErrInvalidConfig, ext)
		}
	}
	for _, pattern := range cfg.Sources.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: sources.exclude pattern %q: %v",
				ErrInvalidConfig, pattern, err)
		}
	}
	return nil
}

// Excluded reports whether a slash-separated relative path matches one of
// the exclude patterns, either whole, by its base name or through one of
// its leading directories.
func (c *Config) Excluded(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, pattern := range c.Sources.Exclude {
		if ok, _ := filepath.Match(pattern, path.Base(rel)); ok {
			return true
		}
		for i := range parts {
			if ok, _ := filepath.Match(pattern, strings.Join(parts[:i+1], "/")); ok {
				return true
			}
		}
	}
	return false
}

// Indexed reports whether a file's extension is one of the source
// extensions.
func (c *Config) Indexed(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range c.Sources.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
