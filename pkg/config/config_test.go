package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/logseek/pkg/config"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
log_parser:
  default_log_start_pattern: '\d{4}-\d{2}-\d{2}'
search:
  default_root_path: /var/log/app
  default_include_globs: ["**/*.txt"]
  default_page_size: 20
`)

	cfg, err := config.Load(path)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Search.DefaultRootPath, "/var/log/app")
	gt.Equal(t, cfg.Search.DefaultIncludeGlobs, []string{"**/*.txt"})
	gt.Equal(t, cfg.Search.DefaultPageSize, 20)
	gt.Equal(t, cfg.LogParser.DefaultLogStartPattern, `\d{4}-\d{2}-\d{2}`)

	// untouched fields keep defaults
	gt.Equal(t, cfg.Search.MaxPageSize, 100)
	gt.Equal(t, cfg.Search.MaxConcurrentFiles, 4)
	gt.True(t, cfg.Search.CaseSensitive)
	gt.Equal(t, cfg.Server.Name, "logseek")
}

func TestLoadJSON(t *testing.T) {
	path := writeTempFile(t, "config.json", `{"search": {"default_root_path": "/srv/logs", "case_sensitive": false}}`)

	cfg, err := config.Load(path)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Search.DefaultRootPath, "/srv/logs")
	gt.False(t, cfg.Search.CaseSensitive)
	gt.Equal(t, cfg.Search.DefaultIncludeGlobs, []string{"**/*.log", "**/*.log.gz", "**/*.gz"})
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := config.Load(writeTempFile(t, "empty.yaml", ""))
	gt.NoError(t, err)
	gt.Equal(t, cfg.Search.DefaultPageSize, 10)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/path.yaml")
	gt.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := config.Load(writeTempFile(t, "bad.yaml", "{{invalid yaml"))
	gt.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOGSEEK__SEARCH__DEFAULT_ROOT_PATH", "/from/env")
	t.Setenv("LOGSEEK__SEARCH__DEFAULT_PAGE_SIZE", "25")
	t.Setenv("LOGSEEK__SEARCH__DEFAULT_INCLUDE_GLOBS", "**/*.log, ,*.txt")
	t.Setenv("LOGSEEK__SEARCH__CASE_SENSITIVE", "false")
	t.Setenv("LOGSEEK__LOGGING__LEVEL", "debug")

	cfg, err := config.Load(writeTempFile(t, "config.yaml", "search:\n  default_root_path: /from/file\n"))
	gt.NoError(t, err)
	gt.Equal(t, cfg.Search.DefaultRootPath, "/from/env")
	gt.Equal(t, cfg.Search.DefaultPageSize, 25)
	gt.Equal(t, cfg.Search.DefaultIncludeGlobs, []string{"**/*.log", "*.txt"})
	gt.False(t, cfg.Search.CaseSensitive)
	gt.Equal(t, cfg.Logging.Level, "debug")
}

func TestLoadEnvOverrideInvalid(t *testing.T) {
	t.Setenv("LOGSEEK__SEARCH__MAX_PAGE_SIZE", "many")
	_, err := config.Load(writeTempFile(t, "config.yaml", ""))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestEnvNames(t *testing.T) {
	names := config.EnvNames()
	gt.True(t, slices.Contains(names, "LOGSEEK__SEARCH__DEFAULT_PAGE_SIZE"))
	gt.True(t, slices.Contains(names, "LOGSEEK__LOG_PARSER__DEFAULT_LOG_START_PATTERN"))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(cfg *config.Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(cfg *config.Config) {}},
		{name: "zero page size", modify: func(cfg *config.Config) { cfg.Search.DefaultPageSize = 0 }, wantErr: true},
		{name: "max below default", modify: func(cfg *config.Config) { cfg.Search.MaxPageSize = 5 }, wantErr: true},
		{name: "no workers", modify: func(cfg *config.Config) { cfg.Search.MaxConcurrentFiles = 0 }, wantErr: true},
		{name: "zero buffer", modify: func(cfg *config.Config) { cfg.Search.BufferSize = 0 }, wantErr: true},
		{name: "negative timeout", modify: func(cfg *config.Config) { cfg.Search.DefaultTimeoutMS = -1 }, wantErr: true},
		{name: "bad glob", modify: func(cfg *config.Config) { cfg.Search.DefaultIncludeGlobs = []string{"[a-"} }, wantErr: true},
		{name: "bad start pattern", modify: func(cfg *config.Config) { cfg.LogParser.DefaultLogStartPattern = "(" }, wantErr: true},
		{name: "bad timestamp regex", modify: func(cfg *config.Config) { cfg.LogParser.DefaultTimestampRegex = "[" }, wantErr: true},
		{name: "bad log format", modify: func(cfg *config.Config) { cfg.Logging.Format = "xml" }, wantErr: true},
		{name: "json log format", modify: func(cfg *config.Config) { cfg.Logging.Format = "json" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, config.ErrInvalidConfig))
			} else {
				gt.NoError(t, err)
			}
		})
	}
}
