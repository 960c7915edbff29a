// Package parser turns a token stream into the declaration AST. The grammar
// covers exactly what the runtime core consumes: module/class declarations,
// constant and instance fields, methods and constructors, and the two
// constructor-body statement forms.
package parser

import (
	"strconv"

	"github.com/mirralang/mirra/internal/ast"
	"github.com/mirralang/mirra/internal/diagnostics"
	"github.com/mirralang/mirra/internal/token"
)

// derefKeyword is contextual: it is an ordinary identifier everywhere except
// at the start of a class member.
const derefKeyword = "deref"

type Parser struct {
	tokens []token.Token
	pos    int
	errors []*diagnostics.Error
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) Errors() []*diagnostics.Error { return p.errors }

func (p *Parser) cur() token.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return token.Token{Type: token.EOF}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return token.Token{Type: token.EOF}
}

func (p *Parser) advance() token.Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t token.TokenType) (token.Token, bool) {
	if p.cur().Type == t {
		return p.advance(), true
	}
	p.errorf("P001", p.cur(), "expected %q, found %q", string(t), p.cur().Lexeme)
	return p.cur(), false
}

// atArrow reports whether the next two tokens are an adjacent '-' '>' pair.
// The lexer never combines them; the parser does, only where the grammar
// expects an arrow.
func (p *Parser) atArrow() bool {
	cur, nxt := p.cur(), p.peek()
	return cur.Type == token.MINUS && nxt.Type == token.GT &&
		nxt.Line == cur.Line && nxt.Column == cur.Column+1
}

func (p *Parser) atPathSep() bool {
	cur, nxt := p.cur(), p.peek()
	return cur.Type == token.COLON && nxt.Type == token.COLON &&
		nxt.Line == cur.Line && nxt.Column == cur.Column+1
}

func (p *Parser) errorf(code string, tok token.Token, format string, args ...interface{}) {
	p.errors = append(p.errors, diagnostics.NewErrorf(code, tok, format, args...))
}

// synchronize skips forward to the next plausible declaration start so one
// syntax error does not drown the rest of the file in follow-on noise.
func (p *Parser) synchronize() {
	for {
		switch p.cur().Type {
		case token.EOF, token.CLASS, token.MODULE, token.RBRACE:
			return
		case token.SEMICOLON:
			p.advance()
			return
		}
		p.advance()
	}
}

// ParseProgram parses a file: a sequence of class declarations, optionally
// wrapped in `module Name { ... }` blocks.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.cur().Type != token.EOF {
		switch p.cur().Type {
		case token.MODULE:
			p.parseModule(prog)
		case token.CLASS:
			if decl := p.parseClass(""); decl != nil {
				prog.Decls = append(prog.Decls, decl)
			}
		default:
			p.errorf("P002", p.cur(), "expected declaration, found %q", p.cur().Lexeme)
			// synchronize stops on tokens that may legitimately open or
			// close a declaration; at top level the offending token is
			// noise either way, so consume it before resyncing.
			p.advance()
			p.synchronize()
		}
	}
	return prog
}

// ParseTypeExpr parses a standalone type reference, e.g. `Buffer(size = 3)`.
// Used by tooling (the REPL's type queries); files never contain bare type
// expressions.
func ParseTypeExpr(tokens []token.Token) (*ast.TypeRef, []*diagnostics.Error) {
	p := New(tokens)
	ref := p.parseTypeRef()
	if ref != nil && p.cur().Type != token.EOF {
		p.errorf("P002", p.cur(), "unexpected %q after type expression", p.cur().Lexeme)
	}
	return ref, p.errors
}

func (p *Parser) parseModule(prog *ast.Program) {
	p.advance() // 'module'
	name, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		p.synchronize()
		return
	}
	for p.cur().Type != token.RBRACE && p.cur().Type != token.EOF {
		if p.cur().Type != token.CLASS {
			p.errorf("P002", p.cur(), "expected class declaration, found %q", p.cur().Lexeme)
			p.synchronize()
			continue
		}
		if decl := p.parseClass(name.Literal); decl != nil {
			prog.Decls = append(prog.Decls, decl)
		}
	}
	p.expect(token.RBRACE)
}

func (p *Parser) parseClass(module string) *ast.ClassDecl {
	classTok := p.advance() // 'class'
	name, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}

	decl := &ast.ClassDecl{Token: classTok, Name: name.Literal, Module: module}

	if p.cur().Type == token.COLON && !p.atPathSep() {
		p.advance()
		for {
			ref := p.parseParentRef()
			if ref == nil {
				p.synchronize()
				return nil
			}
			decl.Parents = append(decl.Parents, ref)
			if p.cur().Type != token.COMMA {
				break
			}
			p.advance()
		}
	}

	if _, ok := p.expect(token.LBRACE); !ok {
		p.synchronize()
		return nil
	}

	for p.cur().Type != token.RBRACE && p.cur().Type != token.EOF {
		p.parseMember(decl)
	}
	p.expect(token.RBRACE)
	return decl
}

func (p *Parser) parseParentRef() *ast.ParentRef {
	name, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	ref := &ast.ParentRef{Token: name, Name: name.Literal}
	ref.Bindings = p.parseOptionalBindings()
	return ref
}

func (p *Parser) parseTypeRef() *ast.TypeRef {
	name, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	ref := &ast.TypeRef{Token: name, Name: name.Literal}
	ref.Bindings = p.parseOptionalBindings()
	return ref
}

func (p *Parser) parseOptionalBindings() []*ast.Binding {
	if p.cur().Type != token.LPAREN {
		return nil
	}
	p.advance()
	var bindings []*ast.Binding
	for p.cur().Type != token.RPAREN && p.cur().Type != token.EOF {
		name, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		if _, ok := p.expect(token.ASSIGN); !ok {
			break
		}
		value := p.parseExpr()
		if value == nil {
			break
		}
		bindings = append(bindings, &ast.Binding{Token: name, Name: name.Literal, Value: value})
		if p.cur().Type != token.COMMA {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	return bindings
}

func (p *Parser) parseMember(decl *ast.ClassDecl) {
	switch {
	case p.cur().Type == token.CONSTANT:
		if c := p.parseConstant(); c != nil {
			decl.Constants = append(decl.Constants, c)
		}
	case p.cur().Type == token.LET || p.cur().Type == token.MUTABLE:
		if f := p.parseField(); f != nil {
			decl.Fields = append(decl.Fields, f)
		}
	case p.cur().Type == token.FUNCTION:
		if m := p.parseMethod(); m != nil {
			decl.Methods = append(decl.Methods, m)
		}
	case p.cur().Type == token.IDENT && p.cur().Literal == derefKeyword:
		d := p.parseDeref()
		if d == nil {
			return
		}
		if decl.Deref != nil {
			p.errorf("P005", d.Token, "class %s declares deref more than once", decl.Name)
			return
		}
		decl.Deref = d
	default:
		p.errorf("P003", p.cur(), "expected class member, found %q", p.cur().Lexeme)
		p.synchronize()
	}
}

func (p *Parser) parseConstant() *ast.ConstantDecl {
	constTok := p.advance() // 'constant'
	name, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.COLON); !ok {
		p.synchronize()
		return nil
	}
	typ := p.parseTypeRef()
	if typ == nil {
		p.synchronize()
		return nil
	}
	decl := &ast.ConstantDecl{Token: constTok, Name: name.Literal, Type: typ}
	if p.cur().Type == token.ASSIGN {
		p.advance()
		decl.Default = p.parseExpr()
		if decl.Default == nil {
			p.synchronize()
			return nil
		}
	}
	p.expect(token.SEMICOLON)
	return decl
}

func (p *Parser) parseField() *ast.FieldDecl {
	letTok := p.cur()
	mutable := false
	if p.cur().Type == token.MUTABLE {
		mutable = true
		p.advance()
	}
	if _, ok := p.expect(token.LET); !ok {
		p.synchronize()
		return nil
	}
	if !mutable && p.cur().Type == token.MUTABLE {
		// both orders are accepted: `mutable let` and `let mutable`
		mutable = true
		p.advance()
	}
	name, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.COLON); !ok {
		p.synchronize()
		return nil
	}
	typ := p.parseTypeRef()
	if typ == nil {
		p.synchronize()
		return nil
	}
	p.expect(token.SEMICOLON)
	return &ast.FieldDecl{Token: letTok, Name: name.Literal, Mutable: mutable, Type: typ}
}

func (p *Parser) parseDeref() *ast.DerefDecl {
	derefTok := p.advance() // 'deref'
	name, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	p.expect(token.SEMICOLON)
	return &ast.DerefDecl{Token: derefTok, Field: name.Literal}
}

func (p *Parser) parseMethod() *ast.MethodDecl {
	funTok := p.advance() // 'function'
	name, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	decl := &ast.MethodDecl{Token: funTok, Name: name.Literal}

	if _, ok := p.expect(token.LPAREN); !ok {
		p.synchronize()
		return nil
	}
	for p.cur().Type != token.RPAREN && p.cur().Type != token.EOF {
		pName, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		if _, ok := p.expect(token.COLON); !ok {
			break
		}
		pType := p.parseTypeRef()
		if pType == nil {
			break
		}
		decl.Params = append(decl.Params, &ast.Param{Token: pName, Name: pName.Literal, Type: pType})
		if p.cur().Type != token.COMMA {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)

	if p.atArrow() {
		p.advance()
		p.advance()
		decl.Result = p.parseTypeRef()
		if decl.Result == nil {
			p.synchronize()
			return nil
		}
	}

	switch p.cur().Type {
	case token.SEMICOLON:
		p.advance() // abstract: no body
	case token.LBRACE:
		decl.HasBody = true
		decl.Body = p.parseBlock()
	default:
		p.errorf("P004", p.cur(), "expected method body or %q, found %q", ";", p.cur().Lexeme)
		p.synchronize()
		return nil
	}
	return decl
}

func (p *Parser) parseBlock() []ast.Stmt {
	p.advance() // '{'
	var stmts []ast.Stmt
	for p.cur().Type != token.RBRACE && p.cur().Type != token.EOF {
		if stmt := p.parseStmt(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(token.RBRACE)
	return stmts
}

func (p *Parser) parseStmt() ast.Stmt {
	name, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}

	switch {
	case p.cur().Type == token.ASSIGN:
		p.advance()
		value := p.parseExpr()
		if value == nil {
			p.synchronize()
			return nil
		}
		p.expect(token.SEMICOLON)
		return &ast.AssignStmt{Token: name, Field: name.Literal, Value: value}

	case p.atPathSep():
		p.advance()
		p.advance()
		ctor, ok := p.expect(token.IDENT)
		if !ok {
			p.synchronize()
			return nil
		}
		stmt := &ast.ParentCallStmt{Token: name, Parent: name.Literal, Ctor: ctor.Literal}
		if _, ok := p.expect(token.LPAREN); !ok {
			p.synchronize()
			return nil
		}
		for p.cur().Type != token.RPAREN && p.cur().Type != token.EOF {
			arg := p.parseExpr()
			if arg == nil {
				break
			}
			stmt.Args = append(stmt.Args, arg)
			if p.cur().Type != token.COMMA {
				break
			}
			p.advance()
		}
		p.expect(token.RPAREN)
		p.expect(token.SEMICOLON)
		return stmt

	default:
		p.errorf("P006", p.cur(), "expected %q or %q after %q", "=", "::", name.Literal)
		p.synchronize()
		return nil
	}
}

func (p *Parser) parseExpr() ast.Expr {
	switch p.cur().Type {
	case token.INT:
		tok := p.advance()
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("P007", tok, "invalid integer literal %q", tok.Literal)
			return nil
		}
		return &ast.IntLit{Token: tok, Value: value}
	case token.IDENT:
		tok := p.advance()
		return &ast.Ident{Token: tok, Name: tok.Literal}
	default:
		p.errorf("P008", p.cur(), "expected expression, found %q", p.cur().Lexeme)
		return nil
	}
}
