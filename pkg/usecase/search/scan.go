package search

import (
	"context"
	"io"

	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/parser"
	"github.com/m-mizutani/logseek/pkg/scanner"
	"github.com/m-mizutani/logseek/pkg/utils/logging"
)

// deadline is polled once per this many lines
const ctxCheckInterval = 256

type fileResult struct {
	matches   []*model.LogRecord
	failure   *model.FailedFile
	truncated bool
}

// scanFile reads one file through the record assembler and keeps the records
// the query accepts. A read failure discards the file's matches. Reaching
// the deadline keeps what was matched so far and marks the result truncated.
func scanFile(ctx context.Context, sc *scanner.Scanner, f scanner.File, p *plan) fileResult {
	var res fileResult
	fail := func(err error) fileResult {
		return fileResult{failure: &model.FailedFile{Path: f.Path, Error: err.Error()}}
	}

	if ctx.Err() != nil {
		res.truncated = true
		return res
	}

	logger := logging.From(ctx)
	logger.Debug("scan file", "path", f.Path, "size", f.Size)

	lr, err := sc.Open(f.Path)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := lr.Close(); err != nil {
			logger.Debug("failed to close file", "path", f.Path, "error", err)
		}
	}()

	// a file never needs to contribute more than maxHits records; one extra
	// tells the merge step that the cap was exceeded
	limit := 0
	if p.maxHits > 0 {
		limit = p.maxHits + 1
	}

	keep := func(rec *model.LogRecord) bool {
		if rec != nil && p.query.Match(rec) {
			res.matches = append(res.matches, rec)
		}
		return limit > 0 && len(res.matches) >= limit
	}

	asm := parser.NewAssembler(f.Path, p.start, p.ts)
	for {
		line, lineNo, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}

		if lineNo%ctxCheckInterval == 0 && ctx.Err() != nil {
			res.truncated = true
			break
		}

		if keep(asm.Push(lineNo, line)) {
			return res
		}
	}

	keep(asm.Flush())
	return res
}

// assemble slices the requested page out of the ordered matches.
func assemble(p *plan, matches []*model.LogRecord, filesScanned int, failures []model.FailedFile, truncated bool) *model.SearchResult {
	total := len(matches)
	result := &model.SearchResult{
		Hits:         []model.Hit{},
		Total:        total,
		Page:         p.page,
		PageSize:     p.pageSize,
		TotalPages:   (total + p.pageSize - 1) / p.pageSize,
		FilesScanned: filesScanned,
		FailedFiles:  failures,
		Truncated:    truncated,
	}

	from := (p.page - 1) * p.pageSize
	if from >= total {
		return result
	}
	to := min(from+p.pageSize, total)

	for _, rec := range matches[from:to] {
		hit := model.Hit{
			SourceFile: rec.SourceFile,
			LineOffset: rec.StartLine,
			EndLine:    rec.EndLine,
			Timestamp:  rec.TimestampText,
		}
		if p.content {
			hit.Content = rec.Content
			hit.MatchPositions = p.query.Positions(rec.Content)
		}
		result.Hits = append(result.Hits, hit)
	}

	return result
}
