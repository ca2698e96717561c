package search

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/config"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/parser"
	"github.com/m-mizutani/logseek/pkg/query"
	"github.com/m-mizutani/logseek/pkg/scanner"
	"github.com/m-mizutani/logseek/pkg/utils/logging"
	"github.com/spf13/afero"
)

// UseCase runs log searches against a filesystem
type UseCase struct {
	fs     afero.Fs
	search config.SearchConfig
	parser config.LogParserConfig
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithFs replaces the OS filesystem, mainly for tests
func WithFs(fs afero.Fs) Option {
	return func(uc *UseCase) {
		uc.fs = fs
	}
}

// New creates a new search UseCase from server-wide settings
func New(cfg *config.Config, opts ...Option) *UseCase {
	uc := &UseCase{
		fs:     afero.NewOsFs(),
		search: cfg.Search,
		parser: cfg.LogParser,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// plan is a SearchRequest with defaults resolved and patterns compiled.
type plan struct {
	root     string
	include  []string
	exclude  []string
	start    *regexp.Regexp
	ts       *parser.TimestampExtractor
	query    *query.Query
	page     int
	pageSize int
	maxHits  int
	timeout  time.Duration
	content  bool
}

// Search scans the selected files, filters records and returns the requested page.
// Validation failures wrap model.ErrInvalidRequest.
func (uc *UseCase) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResult, error) {
	p, err := uc.plan(req)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	logger := logging.From(ctx)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	sc := scanner.New(uc.fs, scanner.WithBufferSize(uc.search.BufferSize))
	files, failures, err := sc.Find(ctx, p.root, p.include, p.exclude)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("search deadline exceeded while listing files", "root", p.root)
			return assemble(p, nil, 0, failures, true), nil
		}
		return nil, err
	}

	pool := pond.NewResultPool[fileResult](uc.search.MaxConcurrentFiles)
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, f := range files {
		group.Submit(func() fileResult {
			return scanFile(ctx, sc, f, p)
		})
	}

	// results come back in submission order, which is the walk order
	results, err := group.Wait()
	if err != nil {
		return nil, goerr.Wrap(err, "file scan task failed")
	}

	var matches []*model.LogRecord
	truncated := false
	for i, r := range results {
		if r.failure != nil {
			logger.Warn("skip unreadable file", "path", files[i].Path, "error", r.failure.Error)
			failures = append(failures, *r.failure)
			continue
		}
		matches = append(matches, r.matches...)
		truncated = truncated || r.truncated
	}

	if p.maxHits > 0 && len(matches) > p.maxHits {
		matches = matches[:p.maxHits]
		truncated = true
	}

	result := assemble(p, matches, len(files), failures, truncated)
	logger.Info("search completed",
		"root", p.root,
		"files", len(files),
		"failed", len(failures),
		"total", result.Total,
		"page", result.Page,
		"truncated", result.Truncated,
		"elapsed", time.Since(startedAt),
	)
	return result, nil
}

func (uc *UseCase) plan(req *model.SearchRequest) (*plan, error) {
	p := &plan{
		root:     req.ScanConfig.RootPath,
		include:  req.ScanConfig.IncludeGlobs,
		exclude:  req.ScanConfig.ExcludeGlobs,
		page:     1,
		pageSize: uc.search.DefaultPageSize,
		content:  req.WantContent(),
	}

	if p.root == "" {
		p.root = uc.search.DefaultRootPath
	}
	if p.root == "" {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "scan_config.root_path is required because no default root path is configured")
	}
	if len(p.include) == 0 {
		p.include = uc.search.DefaultIncludeGlobs
	}
	if len(p.exclude) == 0 {
		p.exclude = uc.search.DefaultExcludeGlobs
	}
	if err := scanner.ValidateGlobs(p.include, p.exclude); err != nil {
		return nil, err
	}

	if req.Page != nil {
		if *req.Page < 1 {
			return nil, goerr.Wrap(model.ErrInvalidRequest, "page must be 1 or greater", goerr.V("page", *req.Page))
		}
		p.page = *req.Page
	}
	if req.PageSize != nil {
		if *req.PageSize <= 0 {
			return nil, goerr.Wrap(model.ErrInvalidRequest, "page_size must be 1 or greater", goerr.V("page_size", *req.PageSize))
		}
		p.pageSize = min(*req.PageSize, uc.search.MaxPageSize)
	}
	if req.MaxHits != nil {
		if *req.MaxHits <= 0 {
			return nil, goerr.Wrap(model.ErrInvalidRequest, "max_hits must be 1 or greater", goerr.V("max_hits", *req.MaxHits))
		}
		p.maxHits = *req.MaxHits
	}

	timeoutMS := uc.search.DefaultTimeoutMS
	if t := req.Timeout(); t != nil {
		if *t < 0 {
			return nil, goerr.Wrap(model.ErrInvalidRequest, "timeout_ms must not be negative", goerr.V("timeout_ms", *t))
		}
		timeoutMS = *t
	}
	p.timeout = time.Duration(timeoutMS) * time.Millisecond

	caseSensitive := uc.search.CaseSensitive
	if req.CaseSensitive != nil {
		caseSensitive = *req.CaseSensitive
	}

	startPattern := req.LogStartPattern
	if startPattern == "" {
		startPattern = uc.parser.DefaultLogStartPattern
	}
	tsRegex := uc.parser.DefaultTimestampRegex
	if req.TimeFilter != nil && req.TimeFilter.TimestampRegex != "" {
		tsRegex = req.TimeFilter.TimestampRegex
	}

	var err error
	if p.start, err = parser.CompileStartPattern(startPattern); err != nil {
		return nil, err
	}
	if p.ts, err = parser.NewTimestampExtractor(tsRegex); err != nil {
		return nil, err
	}
	if p.query, err = query.New(req.LogicalQuery, req.TimeFilter, caseSensitive); err != nil {
		return nil, err
	}

	return p, nil
}
