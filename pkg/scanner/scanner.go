package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/utils/logging"
	"github.com/spf13/afero"
)

// File is a candidate log file.
type File struct {
	// Path is the root joined with RelPath, used to open the file.
	Path string
	// RelPath is slash-separated and relative to the scan root.
	RelPath string
	Size    int64
}

// Scanner enumerates and opens log files on a filesystem.
type Scanner struct {
	fs         afero.Fs
	bufferSize int
}

type Option func(*Scanner)

// WithBufferSize sets the read buffer used for each file.
func WithBufferSize(size int) Option {
	return func(s *Scanner) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

func New(fs afero.Fs, opts ...Option) *Scanner {
	s := &Scanner{
		fs:         fs,
		bufferSize: 64 * 1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateGlobs reports the first malformed pattern as an invalid request.
func ValidateGlobs(globs ...[]string) error {
	for _, set := range globs {
		for _, g := range set {
			if !doublestar.ValidatePattern(g) {
				return goerr.Wrap(model.ErrInvalidRequest, fmt.Sprintf("invalid glob pattern %q", g), goerr.V("glob", g))
			}
		}
	}
	return nil
}

// Find walks root in lexical order and returns every regular file whose
// relative path matches an include glob and no exclude glob. Unreadable
// paths, including a missing root, are reported as failures rather than
// errors. An error is returned only for malformed globs or a cancelled
// context.
func (s *Scanner) Find(ctx context.Context, root string, include, exclude []string) ([]File, []model.FailedFile, error) {
	if err := ValidateGlobs(include, exclude); err != nil {
		return nil, nil, err
	}

	logger := logging.From(ctx)
	var files []File
	var failures []model.FailedFile

	walkFn := func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn("skip unreadable path", "path", path, "error", err)
			failures = append(failures, model.FailedFile{Path: path, Error: err.Error()})
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			// root itself is a file
			rel = info.Name()
		}
		rel = filepath.ToSlash(rel)

		if matchAny(include, rel) && !matchAny(exclude, rel) {
			files = append(files, File{Path: path, RelPath: rel, Size: info.Size()})
		}
		return nil
	}

	if err := afero.Walk(s.fs, root, walkFn); err != nil {
		return nil, nil, goerr.Wrap(err, "file walk interrupted", goerr.V("root", root))
	}

	logger.Debug("scan candidates", "root", root, "files", len(files), "failures", len(failures))
	return files, failures, nil
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		// patterns are validated beforehand, so the error is always nil
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}
