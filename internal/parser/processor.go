package parser

import (
	"github.com/mirralang/mirra/internal/diagnostics"
	"github.com/mirralang/mirra/internal/pipeline"
	"github.com/mirralang/mirra/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	if ctx.TokenStream == nil {
		// Should not be hit if the lexer runs first, but as a safeguard:
		err := diagnostics.NewError("P000", token.Token{}, "parser: token stream is nil")
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	parser := New(ctx.TokenStream)
	ctx.AstRoot = parser.ParseProgram()
	ctx.AstRoot.File = ctx.FilePath

	for _, err := range parser.Errors() {
		err.File = ctx.FilePath
		ctx.Errors = append(ctx.Errors, err)
	}

	return ctx
}
