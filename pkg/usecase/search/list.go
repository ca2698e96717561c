package search

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/logseek/pkg/model"
	"github.com/m-mizutani/logseek/pkg/scanner"
	"github.com/samber/lo"
)

// ListFiles returns the files a search with the same scan settings would read.
func (uc *UseCase) ListFiles(ctx context.Context, req *model.ListFilesRequest) (*model.FileList, error) {
	root := lo.CoalesceOrEmpty(req.RootPath, uc.search.DefaultRootPath)
	if root == "" {
		return nil, goerr.Wrap(model.ErrInvalidRequest, "root_path is required because no default root path is configured")
	}
	include := lo.Ternary(len(req.IncludeGlobs) > 0, req.IncludeGlobs, uc.search.DefaultIncludeGlobs)
	exclude := lo.Ternary(len(req.ExcludeGlobs) > 0, req.ExcludeGlobs, uc.search.DefaultExcludeGlobs)

	sc := scanner.New(uc.fs)
	files, failures, err := sc.Find(ctx, root, include, exclude)
	if err != nil {
		return nil, err
	}

	return &model.FileList{
		Files:       lo.Map(files, func(f scanner.File, _ int) string { return f.RelPath }),
		Total:       len(files),
		FailedFiles: failures,
	}, nil
}
