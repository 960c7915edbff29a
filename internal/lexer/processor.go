package lexer

import (
	"github.com/mirralang/mirra/internal/diagnostics"
	"github.com/mirralang/mirra/internal/pipeline"
	"github.com/mirralang/mirra/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	l := New(ctx.SourceCode)
	ctx.TokenStream = l.Tokens()

	for _, tok := range ctx.TokenStream {
		if tok.Type == token.ILLEGAL {
			err := diagnostics.NewErrorf("L001", tok, "unknown character %q", tok.Lexeme)
			err.File = ctx.FilePath
			ctx.Errors = append(ctx.Errors, err)
		}
	}

	return ctx
}
