package search_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/logseek/pkg/config"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/usecase/search"
	"github.com/spf13/afero"
)

func ptr[T any](v T) *T { return &v }

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := gzip.NewWriter(buf)
	_, err := w.Write([]byte(s))
	gt.NoError(t, err)
	gt.NoError(t, w.Close())
	return buf.Bytes()
}

func newUseCase(t *testing.T, files map[string]string) *search.UseCase {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, data := range files {
		gt.NoError(t, afero.WriteFile(fs, path, []byte(data), 0o644))
	}

	cfg := config.Default()
	cfg.Search.DefaultRootPath = "/logs"
	return search.New(cfg, search.WithFs(fs))
}

func TestSearchErrorIgnoreScenario(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/app.log": "2025-01-01 00:00:00 ERROR disk full\n2025-01-01 00:00:01 ERROR IGNORE this\n",
	})

	result, err := uc.Search(context.Background(), &model.SearchRequest{
		LogicalQuery: model.LogicalQuery{
			Must: model.Keywords("ERROR"),
			None: model.Keywords("IGNORE"),
		},
	})
	gt.NoError(t, err)
	gt.Equal(t, result.Total, 1)
	gt.A(t, result.Hits).Length(1)
	gt.Equal(t, result.Hits[0].Content, "2025-01-01 00:00:00 ERROR disk full")
	gt.Equal(t, result.Hits[0].SourceFile, "/logs/app.log")
	gt.Equal(t, result.Hits[0].LineOffset, 1)
	gt.Equal(t, result.Hits[0].Timestamp, "2025-01-01 00:00:00")
	gt.Equal(t, result.Hits[0].MatchPositions, []model.MatchPosition{{Offset: 20, Length: 5}})
	gt.Equal(t, result.FilesScanned, 1)
}

func TestSearchMultiLineRecords(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/app.log": strings.Join([]string{
			"2025-01-01 00:00:00.000 start",
			"  stack trace line",
			"2025-01-01 00:00:01.000 next",
		}, "\n"),
	})

	result, err := uc.Search(context.Background(), &model.SearchRequest{
		LogStartPattern: `\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`,
	})
	gt.NoError(t, err)
	gt.Equal(t, result.Total, 2)
	gt.Equal(t, result.Hits[0].Content, "2025-01-01 00:00:00.000 start\n  stack trace line")
	gt.Equal(t, result.Hits[0].EndLine, 2)
	gt.Equal(t, result.Hits[1].LineOffset, 3)

	// a keyword found only in a continuation line selects the whole record
	result, err = uc.Search(context.Background(), &model.SearchRequest{
		LogicalQuery:    model.LogicalQuery{Must: model.Keywords("stack trace")},
		LogStartPattern: `\d{4}-\d{2}-\d{2}`,
	})
	gt.NoError(t, err)
	gt.Equal(t, result.Total, 1)
	gt.Equal(t, result.Hits[0].LineOffset, 1)
}

func TestSearchDefaultStartPatternFromConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	gt.NoError(t, afero.WriteFile(fs, "/logs/app.log", []byte("[1] a\n  b\n[2] c\n"), 0o644))

	cfg := config.Default()
	cfg.Search.DefaultRootPath = "/logs"
	cfg.LogParser.DefaultLogStartPattern = `\[\d+\]`
	uc := search.New(cfg, search.WithFs(fs))

	result, err := uc.Search(context.Background(), &model.SearchRequest{})
	gt.NoError(t, err)
	gt.Equal(t, result.Total, 2)
}

func manyLines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "2025-01-01 00:00:%02d line %d\n", i%60, i)
	}
	return b.String()
}

func TestSearchPaginationExhaustive(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/a.log":        manyLines(7),
		"/logs/b/c.log":      manyLines(5),
		"/logs/b/d.log.gz":   string(gzipBytes(t, manyLines(4))),
		"/logs/z/ignored.md": manyLines(3),
	})
	ctx := context.Background()

	all, err := uc.Search(ctx, &model.SearchRequest{PageSize: ptr(100)})
	gt.NoError(t, err)
	gt.Equal(t, all.Total, 16)
	gt.A(t, all.Hits).Length(16)

	for _, size := range []int{1, 3, 4, 5, 16, 17} {
		t.Run(fmt.Sprintf("page_size=%d", size), func(t *testing.T) {
			var joined []model.Hit
			pages := (all.Total + size - 1) / size
			for page := 1; page <= pages; page++ {
				r, err := uc.Search(ctx, &model.SearchRequest{Page: ptr(page), PageSize: ptr(size)})
				gt.NoError(t, err)
				gt.Equal(t, r.Page, page)
				gt.Equal(t, r.PageSize, size)
				gt.Equal(t, r.TotalPages, pages)
				joined = append(joined, r.Hits...)
			}
			gt.Equal(t, joined, all.Hits)

			// nothing beyond the last page
			r, err := uc.Search(ctx, &model.SearchRequest{Page: ptr(pages + 1), PageSize: ptr(size)})
			gt.NoError(t, err)
			gt.A(t, r.Hits).Length(0)
			gt.Equal(t, r.Total, all.Total)
		})
	}
}

func TestSearchExactLastPage(t *testing.T) {
	uc := newUseCase(t, map[string]string{"/logs/a.log": manyLines(6)})

	r, err := uc.Search(context.Background(), &model.SearchRequest{Page: ptr(2), PageSize: ptr(3)})
	gt.NoError(t, err)
	gt.A(t, r.Hits).Length(3)
	gt.Equal(t, r.TotalPages, 2)
	gt.Equal(t, r.Hits[2].LineOffset, 6)
}

func TestSearchIdempotent(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 12; i++ {
		files[fmt.Sprintf("/logs/svc%02d/app.log", i)] = manyLines(20 + i)
	}
	uc := newUseCase(t, files)

	req := &model.SearchRequest{
		LogicalQuery: model.LogicalQuery{Any: model.Keywords("line 1", "line 7")},
		PageSize:     ptr(50),
		Page:         ptr(2),
	}

	first, err := uc.Search(context.Background(), req)
	gt.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	gt.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := uc.Search(context.Background(), req)
		gt.NoError(t, err)
		againJSON, err := json.Marshal(again)
		gt.NoError(t, err)
		gt.Equal(t, string(againJSON), string(firstJSON))
	}
}

func TestSearchIncludeContentFalse(t *testing.T) {
	uc := newUseCase(t, map[string]string{"/logs/a.log": "2025-01-01 00:00:00 hello\n"})

	r, err := uc.Search(context.Background(), &model.SearchRequest{
		LogicalQuery:   model.LogicalQuery{Must: model.Keywords("hello")},
		IncludeContent: ptr(false),
	})
	gt.NoError(t, err)
	gt.A(t, r.Hits).Length(1)
	gt.Equal(t, r.Hits[0].Content, "")
	gt.A(t, r.Hits[0].MatchPositions).Length(0)
	gt.Equal(t, r.Hits[0].LineOffset, 1)
	gt.Equal(t, r.Hits[0].Timestamp, "2025-01-01 00:00:00")

	raw, err := json.Marshal(r.Hits[0])
	gt.NoError(t, err)
	gt.S(t, string(raw)).NotContains("content")
}

func TestSearchTimeFilter(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/a.log": strings.Join([]string{
			"2025-01-01 00:00:00 before",
			"2025-01-01 00:00:05.000 lower bound",
			"no timestamp here",
			"2025-01-01 00:00:07 inside",
			"2025-01-01 00:00:10 upper bound",
			"2025-01-01 00:00:11 after",
		}, "\n"),
	})

	r, err := uc.Search(context.Background(), &model.SearchRequest{
		TimeFilter: &model.TimeFilter{After: "2025-01-01 00:00:05", Before: "2025-01-01 00:00:10.000"},
	})
	gt.NoError(t, err)
	contents := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		contents[i] = h.Content
	}
	gt.Equal(t, contents, []string{
		"2025-01-01 00:00:05.000 lower bound",
		"no timestamp here",
		"2025-01-01 00:00:07 inside",
		"2025-01-01 00:00:10 upper bound",
	})
}

func TestSearchSkipsBrokenFiles(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/a.log":       "ERROR one\n",
		"/logs/broken.gz":   "not really gzip",
		"/logs/z/later.log": "ERROR two\n",
	})

	r, err := uc.Search(context.Background(), &model.SearchRequest{
		LogicalQuery: model.LogicalQuery{Must: model.Keywords("ERROR")},
	})
	gt.NoError(t, err)
	gt.Equal(t, r.Total, 2)
	gt.Equal(t, r.FilesScanned, 3)
	gt.A(t, r.FailedFiles).Length(1)
	gt.Equal(t, r.FailedFiles[0].Path, "/logs/broken.gz")
}

func TestSearchMissingRoot(t *testing.T) {
	uc := newUseCase(t, nil)

	r, err := uc.Search(context.Background(), &model.SearchRequest{
		ScanConfig: model.ScanConfig{RootPath: "/does/not/exist"},
	})
	gt.NoError(t, err)
	gt.Equal(t, r.Total, 0)
	gt.A(t, r.Hits).Length(0)
	gt.A(t, r.FailedFiles).Length(1)
}

func TestSearchScanConfigOverridesDefaults(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/a.log":       "x\n",
		"/other/b.txt":      "x\n",
		"/other/deep/c.txt": "x\n",
	})

	r, err := uc.Search(context.Background(), &model.SearchRequest{
		ScanConfig: model.ScanConfig{RootPath: "/other", IncludeGlobs: []string{"**/*.txt"}, ExcludeGlobs: []string{"deep/**"}},
	})
	gt.NoError(t, err)
	gt.Equal(t, r.Total, 1)
	gt.Equal(t, r.Hits[0].SourceFile, "/other/b.txt")
}

func TestSearchPageSizeClamped(t *testing.T) {
	uc := newUseCase(t, map[string]string{"/logs/a.log": manyLines(150)})

	r, err := uc.Search(context.Background(), &model.SearchRequest{PageSize: ptr(1000)})
	gt.NoError(t, err)
	gt.Equal(t, r.PageSize, 100)
	gt.A(t, r.Hits).Length(100)
	gt.Equal(t, r.TotalPages, 2)
}

func TestSearchMaxHits(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/a.log": manyLines(10),
		"/logs/b.log": manyLines(10),
	})

	r, err := uc.Search(context.Background(), &model.SearchRequest{MaxHits: ptr(12), PageSize: ptr(100)})
	gt.NoError(t, err)
	gt.Equal(t, r.Total, 12)
	gt.True(t, r.Truncated)
	gt.Equal(t, r.Hits[11].SourceFile, "/logs/b.log")
	gt.Equal(t, r.Hits[11].LineOffset, 2)

	r, err = uc.Search(context.Background(), &model.SearchRequest{MaxHits: ptr(20)})
	gt.NoError(t, err)
	gt.Equal(t, r.Total, 20)
	gt.False(t, r.Truncated)
}

func TestSearchExpiredDeadline(t *testing.T) {
	uc := newUseCase(t, map[string]string{"/logs/a.log": manyLines(10)})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	r, err := uc.Search(ctx, &model.SearchRequest{})
	gt.NoError(t, err)
	gt.True(t, r.Truncated)
	gt.Equal(t, r.Total, 0)
}

func TestSearchValidation(t *testing.T) {
	uc := newUseCase(t, map[string]string{"/logs/a.log": "x\n"})

	testCases := []struct {
		name string
		req  model.SearchRequest
	}{
		{name: "page zero", req: model.SearchRequest{Page: ptr(0)}},
		{name: "negative page", req: model.SearchRequest{Page: ptr(-3)}},
		{name: "page size zero", req: model.SearchRequest{PageSize: ptr(0)}},
		{name: "invalid start pattern", req: model.SearchRequest{LogStartPattern: "(["}},
		{name: "malformed after", req: model.SearchRequest{TimeFilter: &model.TimeFilter{After: "yesterday"}}},
		{name: "malformed timestamp regex", req: model.SearchRequest{TimeFilter: &model.TimeFilter{TimestampRegex: "("}}},
		{name: "invalid keyword regex", req: model.SearchRequest{LogicalQuery: model.LogicalQuery{Must: []model.Keyword{{Query: "(", Regex: true}}}}},
		{name: "invalid glob", req: model.SearchRequest{ScanConfig: model.ScanConfig{IncludeGlobs: []string{"[z-"}}}},
		{name: "zero max hits", req: model.SearchRequest{MaxHits: ptr(0)}},
		{name: "negative timeout", req: model.SearchRequest{TimeoutMS: ptr(-1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Search(context.Background(), &tc.req)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrInvalidRequest))
		})
	}
}

func TestSearchRequiresRoot(t *testing.T) {
	uc := search.New(config.Default(), search.WithFs(afero.NewMemMapFs()))
	_, err := uc.Search(context.Background(), &model.SearchRequest{})
	gt.True(t, errors.Is(err, model.ErrInvalidRequest))
}

func TestListFiles(t *testing.T) {
	uc := newUseCase(t, map[string]string{
		"/logs/a.log":      "x",
		"/logs/b/c.log.gz": "x",
		"/logs/b/d.txt":    "x",
	})

	list, err := uc.ListFiles(context.Background(), &model.ListFilesRequest{})
	gt.NoError(t, err)
	gt.Equal(t, list.Files, []string{"a.log", "b/c.log.gz"})
	gt.Equal(t, list.Total, 2)

	list, err = uc.ListFiles(context.Background(), &model.ListFilesRequest{
		ScanConfig: model.ScanConfig{IncludeGlobs: []string{"**/*.txt"}},
	})
	gt.NoError(t, err)
	gt.Equal(t, list.Files, []string{"b/d.txt"})
}
