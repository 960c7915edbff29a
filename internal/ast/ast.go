// Package ast defines the declaration tree the parser produces and the
// lowerer consumes. Only the constructs the runtime core needs survive
// parsing: class declarations, their members, and the two constructor-body
// statement forms (field assignment and parent-constructor call).
package ast

import (
	"strings"

	"github.com/mirralang/mirra/internal/token"
)

type Node interface {
	TokenLiteral() string
	String() string
}

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

// Program is the root node: the declarations of one source file.
type Program struct {
	File  string
	Decls []*ClassDecl
}

func (p *Program) TokenLiteral() string {
	if len(p.Decls) > 0 {
		return p.Decls[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out strings.Builder
	for _, d := range p.Decls {
		out.WriteString(d.String())
		out.WriteString("\n")
	}
	return out.String()
}

// ClassDecl is `class Name : Parent, ... { members }`.
type ClassDecl struct {
	Token   token.Token // the 'class' token
	Name    string
	Module  string // enclosing module name, "" at top level
	Parents []*ParentRef

	Constants []*ConstantDecl
	Fields    []*FieldDecl
	Methods   []*MethodDecl
	Deref     *DerefDecl
}

func (c *ClassDecl) TokenLiteral() string { return c.Token.Literal }
func (c *ClassDecl) String() string {
	var out strings.Builder
	out.WriteString("class ")
	out.WriteString(c.Name)
	if len(c.Parents) > 0 {
		parts := make([]string, len(c.Parents))
		for i, p := range c.Parents {
			parts[i] = p.String()
		}
		out.WriteString(" : ")
		out.WriteString(strings.Join(parts, ", "))
	}
	out.WriteString(" { ... }")
	return out.String()
}

// ParentRef is one `extends` entry: a class name plus constant-field
// bindings, e.g. `Buffer(size = 3)`.
type ParentRef struct {
	Token    token.Token
	Name     string
	Bindings []*Binding
}

func (p *ParentRef) TokenLiteral() string { return p.Token.Literal }
func (p *ParentRef) String() string       { return refString(p.Name, p.Bindings) }

// TypeRef names a type: a class name plus constant-field bindings.
type TypeRef struct {
	Token    token.Token
	Name     string
	Bindings []*Binding
}

func (t *TypeRef) TokenLiteral() string { return t.Token.Literal }
func (t *TypeRef) String() string       { return refString(t.Name, t.Bindings) }

func refString(name string, bindings []*Binding) string {
	if len(bindings) == 0 {
		return name
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Name + " = " + b.Value.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// Binding is `name = constExpr` inside a parent or type reference.
type Binding struct {
	Token token.Token
	Name  string
	Value Expr
}

func (b *Binding) TokenLiteral() string { return b.Token.Literal }
func (b *Binding) String() string       { return b.Name + " = " + b.Value.String() }

// ConstantDecl is `constant name : Type = default ;` — a compile-time
// constant field, the language's generic-parameter mechanism.
type ConstantDecl struct {
	Token   token.Token // the 'constant' token
	Name    string
	Type    *TypeRef
	Default Expr // may be nil
}

func (c *ConstantDecl) TokenLiteral() string { return c.Token.Literal }
func (c *ConstantDecl) String() string {
	s := "constant " + c.Name + " : " + c.Type.String()
	if c.Default != nil {
		s += " = " + c.Default.String()
	}
	return s + ";"
}

// FieldDecl is `let [mutable] name : Type ;` — instance storage. A field
// without the mutable modifier can only be written by its owning
// constructor chain.
type FieldDecl struct {
	Token   token.Token // the 'let' token
	Name    string
	Mutable bool
	Type    *TypeRef
}

func (f *FieldDecl) TokenLiteral() string { return f.Token.Literal }
func (f *FieldDecl) String() string {
	s := "let "
	if f.Mutable {
		s += "mutable "
	}
	return s + f.Name + " : " + f.Type.String() + ";"
}

// DerefDecl is `deref field ;` — declares the Dereference capability and
// names the instance field whose value the proxy stands in for.
type DerefDecl struct {
	Token token.Token
	Field string
}

func (d *DerefDecl) TokenLiteral() string { return d.Token.Literal }
func (d *DerefDecl) String() string       { return "deref " + d.Field + ";" }

// MethodDecl is `function name(params) -> Result { body }`. A declaration
// terminated by ';' instead of a block has no body and makes the class
// abstract. Constructors are methods named "new".
type MethodDecl struct {
	Token   token.Token // the 'function' token
	Name    string
	Params  []*Param
	Result  *TypeRef // nil when the method returns nothing
	Body    []Stmt
	HasBody bool
}

func (m *MethodDecl) TokenLiteral() string { return m.Token.Literal }
func (m *MethodDecl) String() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.Name + " : " + p.Type.String()
	}
	s := "function " + m.Name + "(" + strings.Join(parts, ", ") + ")"
	if m.Result != nil {
		s += " -> " + m.Result.String()
	}
	if !m.HasBody {
		return s + ";"
	}
	return s + " { ... }"
}

type Param struct {
	Token token.Token
	Name  string
	Type  *TypeRef
}

func (p *Param) TokenLiteral() string { return p.Token.Literal }
func (p *Param) String() string       { return p.Name + " : " + p.Type.String() }

// AssignStmt is `field = expr ;` inside a method body. The target is always
// a field of the receiver; constructor bodies have no local variables.
type AssignStmt struct {
	Token token.Token
	Field string
	Value Expr
}

func (a *AssignStmt) stmtNode()            {}
func (a *AssignStmt) TokenLiteral() string { return a.Token.Literal }
func (a *AssignStmt) String() string       { return a.Field + " = " + a.Value.String() + ";" }

// ParentCallStmt is `Parent::new(self, args...) ;` — the explicit
// parent-constructor invocation a subclass constructor must make for every
// direct parent edge.
type ParentCallStmt struct {
	Token  token.Token
	Parent string
	Ctor   string
	Args   []Expr
}

func (p *ParentCallStmt) stmtNode()            {}
func (p *ParentCallStmt) TokenLiteral() string { return p.Token.Literal }
func (p *ParentCallStmt) String() string {
	parts := make([]string, len(p.Args))
	for i, a := range p.Args {
		parts[i] = a.String()
	}
	return p.Parent + "::" + p.Ctor + "(" + strings.Join(parts, ", ") + ");"
}

// IntLit is an integer literal.
type IntLit struct {
	Token token.Token
	Value int64
}

func (i *IntLit) exprNode()            {}
func (i *IntLit) TokenLiteral() string { return i.Token.Literal }
func (i *IntLit) String() string       { return i.Token.Literal }

// Ident is a bare identifier expression: a constructor parameter, one of
// the enclosing class's constant fields, or the receiver `self`.
type Ident struct {
	Token token.Token
	Name  string
}

func (i *Ident) exprNode()            {}
func (i *Ident) TokenLiteral() string { return i.Token.Literal }
func (i *Ident) String() string       { return i.Name }
