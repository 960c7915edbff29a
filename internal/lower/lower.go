// Package lower turns parsed class declarations into runtime classes and
// registers them. Syntax and symbol errors are the parser's problem; this
// stage owns semantic validation: unresolved class references, malformed
// constructor bodies, and the statically decidable constructor-completeness
// rules.
package lower

import (
	"errors"
	"fmt"

	"github.com/mirralang/mirra/internal/ast"
	"github.com/mirralang/mirra/internal/config"
	"github.com/mirralang/mirra/internal/diagnostics"
	"github.com/mirralang/mirra/internal/lang"
	"github.com/mirralang/mirra/internal/token"
)

const selfName = "self"

type Lowerer struct {
	reg    *lang.Registry
	shells map[string]*lang.Class
	errors []*diagnostics.Error
}

func New(reg *lang.Registry) *Lowerer {
	return &Lowerer{reg: reg, shells: make(map[string]*lang.Class)}
}

func (lo *Lowerer) Errors() []*diagnostics.Error { return lo.errors }

func (lo *Lowerer) errorf(code string, tok token.Token, format string, args ...interface{}) {
	lo.errors = append(lo.errors, diagnostics.NewErrorf(code, tok, format, args...))
}

// Lower builds and registers every class of the program, in declaration
// order, and returns the registered classes. Classes may reference each
// other in any order within one program: shells for all declarations exist
// before any body is lowered.
func (lo *Lowerer) Lower(prog *ast.Program) []*lang.Class {
	for _, decl := range prog.Decls {
		if _, dup := lo.shells[decl.Name]; dup {
			lo.errorf("S001", decl.Token, "class %s declared twice", decl.Name)
			continue
		}
		if _, exists := lo.reg.Lookup(decl.Name); exists {
			lo.errorf("S001", decl.Token, "class %s is already registered", decl.Name)
			continue
		}
		lo.shells[decl.Name] = &lang.Class{Name: decl.Name, Module: decl.Module}
	}

	var built []*lang.Class
	for _, decl := range prog.Decls {
		c, ok := lo.shells[decl.Name]
		if !ok {
			continue
		}
		if lo.fill(c, decl) {
			built = append(built, c)
		}
	}

	var registered []*lang.Class
	for _, c := range built {
		decl := declOf(prog, c.Name)
		lo.checkCtorCompleteness(c, decl)
		if err := lo.reg.Register(c); err != nil {
			lo.errorf(registerCode(err), decl.Token, "class %s: %v", c.Name, err)
			continue
		}
		registered = append(registered, c)
	}
	return registered
}

func declOf(prog *ast.Program, name string) *ast.ClassDecl {
	for _, d := range prog.Decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func registerCode(err error) string {
	switch {
	case errors.Is(err, lang.ErrCyclicInheritance):
		return "S002"
	case errors.Is(err, lang.ErrDuplicateDirectParent):
		return "S003"
	case errors.Is(err, lang.ErrMalformedBinding):
		return "S004"
	default:
		return "S005"
	}
}

// ResolveType resolves a standalone type reference against registered
// classes. Only literal bindings are allowed; constant-field references
// need an enclosing class for context.
func ResolveType(reg *lang.Registry, res *lang.Resolver, ref *ast.TypeRef) (*lang.ClassType, error) {
	cls, ok := reg.Lookup(ref.Name)
	if !ok {
		return nil, fmt.Errorf("unknown class %s", ref.Name)
	}
	bindings := make(map[string]lang.Value, len(ref.Bindings))
	for _, b := range ref.Bindings {
		lit, ok := b.Value.(*ast.IntLit)
		if !ok {
			return nil, fmt.Errorf("binding %s must be a literal", b.Name)
		}
		bindings[b.Name] = &lang.Integer{Value: lit.Value}
	}
	return res.Resolve(cls, bindings)
}

// fill populates a shell from its declaration. Returns false when the
// declaration had errors that make the class unusable.
func (lo *Lowerer) fill(c *lang.Class, decl *ast.ClassDecl) bool {
	ok := true

	for _, ref := range decl.Parents {
		parent := lo.lookup(ref.Name)
		if parent == nil {
			lo.errorf("S001", ref.Token, "unknown parent class %s", ref.Name)
			ok = false
			continue
		}
		args, argsOK := lo.lowerBindings(decl, ref.Bindings)
		ok = ok && argsOK
		c.Parents = append(c.Parents, &lang.ParentEdge{Class: parent, Args: args})
	}

	for _, k := range decl.Constants {
		typ, typOK := lo.lowerTypeRef(decl, k.Type)
		ok = ok && typOK
		cf := &lang.ConstField{Name: k.Name, Type: typ}
		if k.Default != nil {
			v, vOK := lo.lowerLiteral(k.Default)
			if !vOK {
				lo.errorf("S006", k.Token, "default of constant %s must be a literal", k.Name)
				ok = false
			}
			cf.Default = v
		}
		c.Constants = append(c.Constants, cf)
	}

	for _, f := range decl.Fields {
		typ, typOK := lo.lowerTypeRef(decl, f.Type)
		ok = ok && typOK
		c.Fields = append(c.Fields, &lang.InstanceField{Name: f.Name, Type: typ, Mutable: f.Mutable})
	}

	if decl.Deref != nil {
		c.DerefField = decl.Deref.Field
	}

	for _, m := range decl.Methods {
		method, mOK := lo.lowerMethod(c, decl, m)
		ok = ok && mOK
		c.Methods = append(c.Methods, method)
	}
	return ok
}

func (lo *Lowerer) lookup(name string) *lang.Class {
	if c, ok := lo.shells[name]; ok {
		return c
	}
	if c, ok := lo.reg.Lookup(name); ok {
		return c
	}
	return nil
}

func (lo *Lowerer) lowerTypeRef(decl *ast.ClassDecl, ref *ast.TypeRef) (*lang.TypeRef, bool) {
	if ref == nil {
		return nil, false
	}
	cls := lo.lookup(ref.Name)
	if cls == nil {
		lo.errorf("S001", ref.Token, "unknown class %s", ref.Name)
		return nil, false
	}
	args, ok := lo.lowerBindings(decl, ref.Bindings)
	return &lang.TypeRef{Class: cls, Args: args}, ok
}

func (lo *Lowerer) lowerBindings(decl *ast.ClassDecl, bindings []*ast.Binding) ([]lang.ConstArg, bool) {
	ok := true
	args := make([]lang.ConstArg, 0, len(bindings))
	for _, b := range bindings {
		switch v := b.Value.(type) {
		case *ast.IntLit:
			args = append(args, lang.ConstArg{Name: b.Name, Value: &lang.Integer{Value: v.Value}})
		case *ast.Ident:
			if constantOf(decl, v.Name) == nil {
				lo.errorf("S006", b.Token, "%s is not a constant field of %s", v.Name, decl.Name)
				ok = false
				continue
			}
			args = append(args, lang.ConstArg{Name: b.Name, Ref: v.Name})
		default:
			lo.errorf("S006", b.Token, "binding %s must be a literal or constant reference", b.Name)
			ok = false
		}
	}
	return args, ok
}

func constantOf(decl *ast.ClassDecl, name string) *ast.ConstantDecl {
	for _, k := range decl.Constants {
		if k.Name == name {
			return k
		}
	}
	return nil
}

func (lo *Lowerer) lowerLiteral(e ast.Expr) (lang.Value, bool) {
	if lit, ok := e.(*ast.IntLit); ok {
		return &lang.Integer{Value: lit.Value}, true
	}
	return nil, false
}

func (lo *Lowerer) lowerMethod(c *lang.Class, decl *ast.ClassDecl, m *ast.MethodDecl) (*lang.Method, bool) {
	ok := true
	method := &lang.Method{
		Name:    m.Name,
		HasBody: m.HasBody,
		IsCtor:  m.Name == config.ConstructorName,
	}
	for _, p := range m.Params {
		typ, typOK := lo.lowerTypeRef(decl, p.Type)
		ok = ok && typOK
		method.Params = append(method.Params, lang.Param{Name: p.Name, Type: typ})
	}
	if m.Result != nil {
		typ, typOK := lo.lowerTypeRef(decl, m.Result)
		ok = ok && typOK
		method.Result = typ
	}
	if m.HasBody {
		body, bodyOK := lo.lowerBody(c, decl, m)
		ok = ok && bodyOK
		method.Body = body
	}
	return method, ok
}

func (lo *Lowerer) lowerBody(c *lang.Class, decl *ast.ClassDecl, m *ast.MethodDecl) ([]lang.CtorStmt, bool) {
	ok := true
	var body []lang.CtorStmt

	// Duplicate direct parents are disambiguated positionally: the k-th
	// call naming class X binds to the k-th direct edge to X.
	edgeCursor := make(map[string]int)

	for _, stmt := range m.Body {
		switch st := stmt.(type) {
		case *ast.AssignStmt:
			if fieldOf(decl, st.Field) == nil {
				lo.errorf("S007", st.Token, "%s is not a field of %s", st.Field, decl.Name)
				ok = false
				continue
			}
			arg, argOK := lo.lowerOperand(decl, m, st.Value)
			if !argOK {
				ok = false
				continue
			}
			body = append(body, &lang.SetField{Field: st.Field, Arg: arg})

		case *ast.ParentCallStmt:
			if st.Ctor != config.ConstructorName {
				lo.errorf("S008", st.Token, "only constructors can be invoked on a parent, got %s::%s", st.Parent, st.Ctor)
				ok = false
				continue
			}
			edge := lo.findEdge(c, st.Parent, edgeCursor)
			if edge < 0 {
				lo.errorf("S008", st.Token, "%s is not a direct parent of %s", st.Parent, decl.Name)
				ok = false
				continue
			}
			if len(st.Args) == 0 || !isSelf(st.Args[0]) {
				lo.errorf("S008", st.Token, "parent constructor call must pass %s first", selfName)
				ok = false
				continue
			}
			var args []lang.Operand
			argsOK := true
			for _, a := range st.Args[1:] {
				arg, aOK := lo.lowerOperand(decl, m, a)
				argsOK = argsOK && aOK
				if aOK {
					args = append(args, arg)
				}
			}
			if !argsOK {
				ok = false
				continue
			}
			body = append(body, &lang.CallParent{Edge: edge, Args: args})
		}
	}
	return body, ok
}

func fieldOf(decl *ast.ClassDecl, name string) *ast.FieldDecl {
	for _, f := range decl.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func isSelf(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == selfName
}

func (lo *Lowerer) findEdge(c *lang.Class, parentName string, cursor map[string]int) int {
	start := cursor[parentName]
	seen := 0
	for i, edge := range c.Parents {
		if edge.Class.Name != parentName {
			continue
		}
		if seen == start {
			cursor[parentName] = start + 1
			return i
		}
		seen++
	}
	return -1
}

func (lo *Lowerer) lowerOperand(decl *ast.ClassDecl, m *ast.MethodDecl, e ast.Expr) (lang.Operand, bool) {
	switch v := e.(type) {
	case *ast.IntLit:
		return lang.ValueOperand{Value: &lang.Integer{Value: v.Value}}, true
	case *ast.Ident:
		if v.Name == selfName {
			return lang.SelfOperand{}, true
		}
		for i, p := range m.Params {
			if p.Name == v.Name {
				return lang.ParamOperand{Index: i}, true
			}
		}
		if constantOf(decl, v.Name) != nil {
			return lang.ConstOperand{Name: v.Name}, true
		}
		lo.errorf("S007", v.Token, "%s is not a parameter or constant field", v.Name)
		return nil, false
	default:
		lo.errorf("S007", token.Token{}, "unsupported expression %s", e.String())
		return nil, false
	}
}

// checkCtorCompleteness enforces, statically, the rules the object model
// re-checks at instantiation: the constructor must invoke every direct
// parent edge that requires initialization and must assign every field the
// class declares. Both are decidable here because constructor bodies are
// straight-line.
func (lo *Lowerer) checkCtorCompleteness(c *lang.Class, decl *ast.ClassDecl) {
	ctor := c.Ctor()

	called := make(map[int]bool)
	assigned := make(map[string]bool)
	if ctor != nil {
		for _, stmt := range ctor.Body {
			switch st := stmt.(type) {
			case *lang.CallParent:
				called[st.Edge] = true
			case *lang.SetField:
				assigned[st.Field] = true
			}
		}
	}

	for i, edge := range c.Parents {
		if called[i] || !edgeRequiresInit(edge.Class) {
			continue
		}
		lo.errorf("S009", decl.Token, "constructor of %s never invokes parent constructor %s::new: %v",
			c.Name, edge.Class.Name, lang.ErrParentNotInitialized)
	}
	for _, f := range c.Fields {
		if !assigned[f.Name] {
			lo.errorf("S010", decl.Token, "constructor of %s never initializes field %s: %v",
				c.Name, f.Name, lang.ErrUninitializedField)
		}
	}
}

// edgeRequiresInit mirrors the object model's rule: an edge needs an
// explicit call unless the parent hierarchy is trivially empty. It runs
// before registration has rejected cyclic declarations, so the walk
// carries a visited set rather than trusting the graph to be acyclic.
func edgeRequiresInit(c *lang.Class) bool {
	return edgeNeedsInit(c, map[*lang.Class]bool{})
}

func edgeNeedsInit(c *lang.Class, seen map[*lang.Class]bool) bool {
	if seen[c] {
		return false
	}
	seen[c] = true
	if len(c.Fields) > 0 || c.Ctor() != nil {
		return true
	}
	for _, edge := range c.Parents {
		if edgeNeedsInit(edge.Class, seen) {
			return true
		}
	}
	return false
}
