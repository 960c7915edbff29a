package lower

import (
	"github.com/mirralang/mirra/internal/lang"
	"github.com/mirralang/mirra/internal/pipeline"
)

type LowerProcessor struct{}

func (lp *LowerProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	if ctx.AstRoot == nil || len(ctx.Errors) > 0 {
		return ctx
	}
	if ctx.Registry == nil {
		ctx.Registry = lang.NewRegistry()
	}
	if ctx.Resolver == nil {
		ctx.Resolver = lang.NewResolver(ctx.Registry)
	}

	lo := New(ctx.Registry)
	ctx.Classes = lo.Lower(ctx.AstRoot)

	for _, err := range lo.Errors() {
		err.File = ctx.FilePath
		ctx.Errors = append(ctx.Errors, err)
	}
	return ctx
}
