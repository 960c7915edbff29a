package pipeline_test

import (
	"testing"

	"github.com/mirralang/mirra/internal/lang"
	"github.com/mirralang/mirra/internal/lexer"
	"github.com/mirralang/mirra/internal/lower"
	"github.com/mirralang/mirra/internal/parser"
	"github.com/mirralang/mirra/internal/pipeline"
)

func run(src string, prev *pipeline.Context) *pipeline.Context {
	ctx := &pipeline.Context{FilePath: "test.mr", SourceCode: src}
	if prev != nil {
		ctx.Registry = prev.Registry
		ctx.Resolver = prev.Resolver
	}
	p := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, &lower.LowerProcessor{})
	return p.Run(ctx)
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := run(`
module zoo {
    class Animal {
        function speak() -> Int;
    }
    class Dog : Animal {
        function speak() -> Int {
        }
    }
}`, nil)

	if ctx.Failed() {
		t.Fatalf("pipeline failed: %v", ctx.Errors[0])
	}
	if len(ctx.Classes) != 2 {
		t.Fatalf("registered %d classes, want 2", len(ctx.Classes))
	}
	if _, ok := ctx.Registry.Lookup("Dog"); !ok {
		t.Errorf("Dog must be in the run's registry")
	}
}

func TestPipelineCollectsStageDiagnostics(t *testing.T) {
	ctx := run(`class P @ { }`, nil)
	if !ctx.Failed() {
		t.Fatalf("illegal character must fail the run")
	}
	if ctx.Errors[0].Code != "L001" {
		t.Errorf("first diagnostic = %s, want L001", ctx.Errors[0].Code)
	}
	if ctx.Errors[0].File != "test.mr" {
		t.Errorf("diagnostics must carry the file path, got %q", ctx.Errors[0].File)
	}
}

// A second run against the same registry sees the first run's classes, the
// way the REPL and multi-file checks accumulate declarations.
func TestPipelineSharesRegistryAcrossRuns(t *testing.T) {
	first := run(`class Animal { }`, nil)
	if first.Failed() {
		t.Fatalf("first run failed: %v", first.Errors[0])
	}
	second := run(`class Dog : Animal { }`, first)
	if second.Failed() {
		t.Fatalf("second run failed: %v", second.Errors[0])
	}
	dog, ok := second.Registry.Lookup("Dog")
	if !ok {
		t.Fatalf("Dog not registered in shared registry")
	}
	var animal *lang.Class
	for _, c := range second.Registry.Classes() {
		if c.Name == "Animal" {
			animal = c
		}
	}
	if dog.Parents[0].Class != animal {
		t.Errorf("Dog must extend the first run's Animal declaration")
	}
}

func TestPipelineLowerSkipsOnEarlierErrors(t *testing.T) {
	ctx := run(`class Broken : { }`, nil)
	if !ctx.Failed() {
		t.Fatalf("syntax error expected")
	}
	if len(ctx.Classes) != 0 {
		t.Errorf("lowering must not run after parse errors, got %d classes", len(ctx.Classes))
	}
}
