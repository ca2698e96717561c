package interfaces

import (
	"context"

	"github.com/m-mizutani/logseek/pkg/model"
)

// Searcher defines the log search operations exposed as MCP tools
type Searcher interface {
	// Search runs a search_logs request and returns one page of hits
	Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResult, error)

	// ListFiles returns the files a search with the same scan settings would read
	ListFiles(ctx context.Context, req *model.ListFilesRequest) (*model.FileList, error)
}
