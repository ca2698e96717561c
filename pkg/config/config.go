package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = goerr.New("invalid config")

// Config holds the server-wide settings loaded from the config file.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	LogParser LogParserConfig `yaml:"log_parser" json:"log_parser"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

type ServerConfig struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

type LogParserConfig struct {
	// DefaultLogStartPattern is used when a request has no log_start_pattern.
	DefaultLogStartPattern string `yaml:"default_log_start_pattern" json:"default_log_start_pattern"`
	DefaultTimestampRegex  string `yaml:"default_timestamp_regex" json:"default_timestamp_regex"`
}

type SearchConfig struct {
	DefaultRootPath     string   `yaml:"default_root_path" json:"default_root_path"`
	DefaultIncludeGlobs []string `yaml:"default_include_globs" json:"default_include_globs"`
	DefaultExcludeGlobs []string `yaml:"default_exclude_globs" json:"default_exclude_globs"`
	DefaultPageSize     int      `yaml:"default_page_size" json:"default_page_size"`
	MaxPageSize         int      `yaml:"max_page_size" json:"max_page_size"`
	MaxConcurrentFiles  int      `yaml:"max_concurrent_files" json:"max_concurrent_files"`
	BufferSize          int      `yaml:"buffer_size" json:"buffer_size"`
	DefaultTimeoutMS    int      `yaml:"default_timeout_ms" json:"default_timeout_ms"`
	CaseSensitive       bool     `yaml:"case_sensitive" json:"case_sensitive"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "logseek",
			Version: "0.1.0",
		},
		Search: SearchConfig{
			DefaultIncludeGlobs: []string{"**/*.log", "**/*.log.gz", "**/*.gz"},
			DefaultPageSize:     10,
			MaxPageSize:         100,
			MaxConcurrentFiles:  4,
			BufferSize:          64 * 1024,
			CaseSensitive:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file, applies LOGSEEK__SECTION__KEY environment
// overrides and validates the result. Files ending in .json are decoded as
// JSON, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config", goerr.V("path", path))
	}

	return cfg, nil
}

// Validate checks value ranges and that every pattern compiles.
func (c *Config) Validate() error {
	s := c.Search
	if s.DefaultPageSize <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "search.default_page_size must be positive", goerr.V("value", s.DefaultPageSize))
	}
	if s.MaxPageSize < s.DefaultPageSize {
		return goerr.Wrap(ErrInvalidConfig, "search.max_page_size must not be less than default_page_size",
			goerr.V("max_page_size", s.MaxPageSize),
			goerr.V("default_page_size", s.DefaultPageSize))
	}
	if s.MaxConcurrentFiles <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "search.max_concurrent_files must be positive", goerr.V("value", s.MaxConcurrentFiles))
	}
	if s.BufferSize <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "search.buffer_size must be positive", goerr.V("value", s.BufferSize))
	}
	if s.DefaultTimeoutMS < 0 {
		return goerr.Wrap(ErrInvalidConfig, "search.default_timeout_ms must not be negative", goerr.V("value", s.DefaultTimeoutMS))
	}

	for _, g := range append(append([]string{}, s.DefaultIncludeGlobs...), s.DefaultExcludeGlobs...) {
		if !doublestar.ValidatePattern(g) {
			return goerr.Wrap(ErrInvalidConfig, "invalid glob pattern", goerr.V("glob", g))
		}
	}

	for name, pattern := range map[string]string{
		"log_parser.default_log_start_pattern": c.LogParser.DefaultLogStartPattern,
		"log_parser.default_timestamp_regex":   c.LogParser.DefaultTimestampRegex,
	} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid regular expression",
				goerr.V("field", name),
				goerr.V("pattern", pattern),
				goerr.V("error", err.Error()))
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return goerr.Wrap(ErrInvalidConfig, "logging.format must be console or json", goerr.V("value", c.Logging.Format))
	}

	return nil
}
