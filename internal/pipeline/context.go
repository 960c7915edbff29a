package pipeline

import (
	"github.com/mirralang/mirra/internal/ast"
	"github.com/mirralang/mirra/internal/diagnostics"
	"github.com/mirralang/mirra/internal/lang"
	"github.com/mirralang/mirra/internal/token"
)

// Context is the state shared between pipeline stages. Each stage reads
// what the previous one produced and appends its diagnostics to Errors.
type Context struct {
	FilePath   string
	SourceCode string

	TokenStream []token.Token
	AstRoot     *ast.Program

	// Registry and Resolver survive across runs so that a REPL (or a
	// multi-file check) accumulates declarations.
	Registry *lang.Registry
	Resolver *lang.Resolver

	// Classes lowered and registered by this run, in declaration order.
	Classes []*lang.Class

	Errors []*diagnostics.Error
}

// Processor is a single pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Failed reports whether any stage recorded a diagnostic.
func (c *Context) Failed() bool {
	return len(c.Errors) > 0
}
