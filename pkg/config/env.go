package config

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/samber/lo"
)

// EnvPrefix starts every override variable, e.g. LOGSEEK__SEARCH__DEFAULT_PAGE_SIZE.
const EnvPrefix = "LOGSEEK"

type envBinding struct {
	section string
	key     string
	apply   func(cfg *Config, value string) error
}

func (b envBinding) name() string {
	return EnvPrefix + "__" + strings.ToUpper(b.section) + "__" + strings.ToUpper(b.key)
}

var envBindings = []envBinding{
	{"server", "name", setString(func(c *Config) *string { return &c.Server.Name })},
	{"server", "version", setString(func(c *Config) *string { return &c.Server.Version })},
	{"log_parser", "default_log_start_pattern", setString(func(c *Config) *string { return &c.LogParser.DefaultLogStartPattern })},
	{"log_parser", "default_timestamp_regex", setString(func(c *Config) *string { return &c.LogParser.DefaultTimestampRegex })},
	{"search", "default_root_path", setString(func(c *Config) *string { return &c.Search.DefaultRootPath })},
	{"search", "default_include_globs", setList(func(c *Config) *[]string { return &c.Search.DefaultIncludeGlobs })},
	{"search", "default_exclude_globs", setList(func(c *Config) *[]string { return &c.Search.DefaultExcludeGlobs })},
	{"search", "default_page_size", setInt(func(c *Config) *int { return &c.Search.DefaultPageSize })},
	{"search", "max_page_size", setInt(func(c *Config) *int { return &c.Search.MaxPageSize })},
	{"search", "max_concurrent_files", setInt(func(c *Config) *int { return &c.Search.MaxConcurrentFiles })},
	{"search", "buffer_size", setInt(func(c *Config) *int { return &c.Search.BufferSize })},
	{"search", "default_timeout_ms", setInt(func(c *Config) *int { return &c.Search.DefaultTimeoutMS })},
	{"search", "case_sensitive", setBool(func(c *Config) *bool { return &c.Search.CaseSensitive })},
	{"logging", "level", setString(func(c *Config) *string { return &c.Logging.Level })},
	{"logging", "format", setString(func(c *Config) *string { return &c.Logging.Format })},
}

// EnvNames lists every recognized override variable.
func EnvNames() []string {
	return lo.Map(envBindings, func(b envBinding, _ int) string { return b.name() })
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		value, ok := lookup(b.name())
		if !ok {
			continue
		}
		if err := b.apply(c, value); err != nil {
			return goerr.Wrap(err, "failed to apply environment override", goerr.V("env", b.name()))
		}
	}
	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return goerr.Wrap(ErrInvalidConfig, "not an integer", goerr.V("value", v))
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return goerr.Wrap(ErrInvalidConfig, "not a boolean", goerr.V("value", v))
		}
		*field(c) = b
		return nil
	}
}

// setList splits a comma-separated value, dropping blank items.
func setList(field func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		items := lo.Map(strings.Split(v, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
		*field(c) = lo.Compact(items)
		return nil
	}
}
