package logsearch

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/interfaces"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/tool"
)

const (
	SearchLogsName   = "search_logs"
	ListLogFilesName = "list_log_files"
)

// SearchLogs is the search_logs tool
type SearchLogs struct {
	searcher interfaces.Searcher
}

func NewSearchLogs(searcher interfaces.Searcher) *SearchLogs {
	return &SearchLogs{searcher: searcher}
}

func (t *SearchLogs) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name: SearchLogsName,
		Description: "Search log files with must/any/none keyword logic, an optional time range and " +
			"multi-line record grouping. Returns a JSON page: {hits, total, page, page_size, ...}. " +
			"Each hit has source_file, line_offset, end_line, timestamp and content.",
		InputSchema: searchLogsSchema(),
	}
}

func (t *SearchLogs) Call(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
	var req model.SearchRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "malformed search_logs arguments: "+err.Error())
	}

	result, err := t.searcher.Search(ctx, &req)
	if err != nil {
		return nil, err
	}

	out, err := tool.JSONResult(result)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode search result")
	}
	return out, nil
}

// ListLogFiles is the list_log_files tool
type ListLogFiles struct {
	searcher interfaces.Searcher
}

func NewListLogFiles(searcher interfaces.Searcher) *ListLogFiles {
	return &ListLogFiles{searcher: searcher}
}

func (t *ListLogFiles) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        ListLogFilesName,
		Description: "List the log files that search_logs would read for the given scan settings. Paths are relative to root_path.",
		InputSchema: listLogFilesSchema(),
	}
}

func (t *ListLogFiles) Call(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
	var req model.ListFilesRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "malformed list_log_files arguments: "+err.Error())
	}

	list, err := t.searcher.ListFiles(ctx, &req)
	if err != nil {
		return nil, err
	}

	out, err := tool.JSONResult(list)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode file list")
	}
	return out, nil
}

// Tools returns every log search tool backed by searcher
func Tools(searcher interfaces.Searcher) []tool.Tool {
	return []tool.Tool{
		NewSearchLogs(searcher),
		NewListLogFiles(searcher),
	}
}
