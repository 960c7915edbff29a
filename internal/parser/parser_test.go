package parser

import (
	"testing"

	"github.com/mirralang/mirra/internal/ast"
	"github.com/mirralang/mirra/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input).Tokens())
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors()[0])
	}
	return prog
}

func parseErr(t *testing.T, input string) []*ast.ClassDecl {
	t.Helper()
	p := New(lexer.New(input).Tokens())
	prog := p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected parse errors for %q", input)
	}
	return prog.Decls
}

func TestParseClassDeclaration(t *testing.T) {
	input := `
module zoo {
    class Dog : Animal(size = 3), Pet {
        constant size : Int = 8;
        let name : String;
        let mutable age : Int;
        deref name;
        function speak() -> Int;
        function new(n : String, a : Int) {
            name = n;
            age = a;
            Animal::new(self, a);
        }
    }
}`
	prog := parse(t, input)
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d declarations, want 1", len(prog.Decls))
	}
	decl := prog.Decls[0]

	if decl.Name != "Dog" || decl.Module != "zoo" {
		t.Errorf("decl = %s in module %s, want Dog in zoo", decl.Name, decl.Module)
	}
	if len(decl.Parents) != 2 {
		t.Fatalf("got %d parents, want 2", len(decl.Parents))
	}
	if decl.Parents[0].Name != "Animal" || len(decl.Parents[0].Bindings) != 1 {
		t.Errorf("first parent = %s with %d bindings, want Animal with 1",
			decl.Parents[0].Name, len(decl.Parents[0].Bindings))
	}
	if b := decl.Parents[0].Bindings[0]; b.Name != "size" {
		t.Errorf("parent binding = %s, want size", b.Name)
	} else if lit, ok := b.Value.(*ast.IntLit); !ok || lit.Value != 3 {
		t.Errorf("parent binding value = %s, want 3", b.Value.String())
	}
	if decl.Parents[1].Name != "Pet" || decl.Parents[1].Bindings != nil {
		t.Errorf("second parent = %s, want bare Pet", decl.Parents[1].Name)
	}

	if len(decl.Constants) != 1 || decl.Constants[0].Name != "size" {
		t.Fatalf("constants = %v, want one named size", decl.Constants)
	}
	if lit, ok := decl.Constants[0].Default.(*ast.IntLit); !ok || lit.Value != 8 {
		t.Errorf("constant default = %v, want 8", decl.Constants[0].Default)
	}

	if len(decl.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(decl.Fields))
	}
	if decl.Fields[0].Name != "name" || decl.Fields[0].Mutable {
		t.Errorf("first field = %+v, want immutable name", decl.Fields[0])
	}
	if decl.Fields[1].Name != "age" || !decl.Fields[1].Mutable {
		t.Errorf("second field = %+v, want mutable age", decl.Fields[1])
	}

	if decl.Deref == nil || decl.Deref.Field != "name" {
		t.Errorf("deref = %+v, want field name", decl.Deref)
	}

	if len(decl.Methods) != 2 {
		t.Fatalf("got %d methods, want 2", len(decl.Methods))
	}
	speak := decl.Methods[0]
	if speak.HasBody {
		t.Errorf("speak ends with ';', must be bodyless")
	}
	if speak.Result == nil || speak.Result.Name != "Int" {
		t.Errorf("speak result = %+v, want Int", speak.Result)
	}

	ctor := decl.Methods[1]
	if !ctor.HasBody || len(ctor.Params) != 2 || len(ctor.Body) != 3 {
		t.Fatalf("ctor = %d params, %d stmts, body %t; want 2, 3, true",
			len(ctor.Params), len(ctor.Body), ctor.HasBody)
	}
	assign, ok := ctor.Body[0].(*ast.AssignStmt)
	if !ok || assign.Field != "name" {
		t.Errorf("first stmt = %T %v, want assignment to name", ctor.Body[0], ctor.Body[0])
	}
	call, ok := ctor.Body[2].(*ast.ParentCallStmt)
	if !ok || call.Parent != "Animal" || call.Ctor != "new" || len(call.Args) != 2 {
		t.Errorf("third stmt = %T %v, want Animal::new(self, a)", ctor.Body[2], ctor.Body[2])
	}
	if id, ok := call.Args[0].(*ast.Ident); !ok || id.Name != "self" {
		t.Errorf("first parent-call argument = %v, want self", call.Args[0])
	}
}

func TestParseTopLevelClassWithoutModule(t *testing.T) {
	prog := parse(t, `class Animal { }`)
	if len(prog.Decls) != 1 || prog.Decls[0].Module != "" {
		t.Fatalf("bare class must parse with empty module, got %+v", prog.Decls)
	}
}

func TestParseBothMutableOrders(t *testing.T) {
	prog := parse(t, `class P {
    mutable let a : Int;
    let mutable b : Int;
}`)
	for i, f := range prog.Decls[0].Fields {
		if !f.Mutable {
			t.Errorf("fields[%d] (%s) should be mutable", i, f.Name)
		}
	}
}

// 'deref' is contextual: as a field name it is an ordinary identifier.
func TestDerefIsContextual(t *testing.T) {
	prog := parse(t, `class P {
    let deref : Int;
    deref deref;
}`)
	decl := prog.Decls[0]
	if len(decl.Fields) != 1 || decl.Fields[0].Name != "deref" {
		t.Fatalf("fields = %+v, want one named deref", decl.Fields)
	}
	if decl.Deref == nil || decl.Deref.Field != "deref" {
		t.Errorf("deref declaration = %+v", decl.Deref)
	}
}

func TestArrowRequiresAdjacency(t *testing.T) {
	// '-' and '>' separated by a space is not an arrow.
	parseErr(t, `class P {
    function f() - > Int;
}`)
}

func TestParseErrorsRecover(t *testing.T) {
	decls := parseErr(t, `
class Broken {
    let : Int;
}
class Fine {
    let x : Int;
}`)
	found := false
	for _, d := range decls {
		if d.Name == "Fine" {
			found = true
		}
	}
	if !found {
		t.Errorf("parser must recover and still parse the following class")
	}
}

func TestParseStrayTopLevelBrace(t *testing.T) {
	// A closing brace at top level must be consumed, not spun on, and
	// the declarations around it still parse.
	decls := parseErr(t, `
}
class Fine {
    let x : Int;
}
}`)
	if len(decls) != 1 || decls[0].Name != "Fine" {
		t.Fatalf("got %d declarations, want Fine alone", len(decls))
	}
}

func TestParseDuplicateDerefRejected(t *testing.T) {
	parseErr(t, `class P {
    let a : Int;
    let b : Int;
    deref a;
    deref b;
}`)
}

func TestParseTypeExpr(t *testing.T) {
	ref, errs := ParseTypeExpr(lexer.New("Buffer(size = 3)").Tokens())
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs[0])
	}
	if ref.Name != "Buffer" || len(ref.Bindings) != 1 || ref.Bindings[0].Name != "size" {
		t.Errorf("ref = %+v, want Buffer(size = 3)", ref)
	}

	if _, errs := ParseTypeExpr(lexer.New("Buffer(size = 3) junk").Tokens()); len(errs) == 0 {
		t.Errorf("trailing tokens after a type expression must be an error")
	}
}
