package lang

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mirralang/mirra/internal/config"
)

// Type is either class-based (a class plus a complete binding of its
// constant fields) or anonymous (a structural set of required method
// signatures). Types are structurally interned: equal canonical forms are
// the same Type, which is what makes assignability memoization and
// transitivity cheap.
type Type interface {
	String() string
	typeNode()
}

type ClassType struct {
	Class    *Class
	Bindings []BoundConst // in the class's constant-field declaration order
	key      string
}

func (t *ClassType) typeNode()      {}
func (t *ClassType) String() string { return t.key }

// BoundConst binds one constant field to a concrete value.
type BoundConst struct {
	Name  string
	Value Value
}

// Binding returns the bound value of the named constant field.
func (t *ClassType) Binding(name string) (Value, bool) {
	for _, b := range t.Bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

// AnonType is an anonymous structural type: a set of required method
// signatures with no class reference.
type AnonType struct {
	Sigs []MethodSig
	key  string
}

func (t *AnonType) typeNode()      {}
func (t *AnonType) String() string { return t.key }

// MethodSig is a structural method requirement. Parameter and result types
// are compared by canonical type string.
type MethodSig struct {
	Name   string
	Params []string
	Result string
}

func (s MethodSig) String() string {
	sig := s.Name + "(" + strings.Join(s.Params, ", ") + ")"
	if s.Result != "" {
		sig += " -> " + s.Result
	}
	return sig
}

// assignMemoSize bounds the memoized assignability pairs. Diamond-heavy
// hierarchies re-check the same pairs constantly; the cache keeps the
// relation effectively O(1) after warmup.
const assignMemoSize = 4096

// Resolver constructs, validates and interns Types, and implements the
// assignability relation over them.
type Resolver struct {
	mu       sync.Mutex
	reg      *Registry
	interned map[string]Type
	memo     *lru.Cache
}

func NewResolver(reg *Registry) *Resolver {
	memo, _ := lru.New(assignMemoSize)
	r := &Resolver{
		reg:      reg,
		interned: make(map[string]Type),
		memo:     memo,
	}
	// Reflective class mutation can change both structural matches and
	// abstractness, so memoized pairs are dropped wholesale.
	reg.OnMutate(func() { memo.Purge() })
	return r
}

// Registry returns the registry this resolver resolves against.
func (r *Resolver) Registry() *Registry { return r.reg }

// Resolve validates bindings against class's constant fields and returns
// the interned class-based Type. Omitted constants with declared defaults
// are filled in; anything else missing, unknown names, or a bound value
// whose type is not assignable to the field's declared type is
// ErrMalformedBinding.
func (r *Resolver) Resolve(class *Class, bindings map[string]Value) (*ClassType, error) {
	complete := make([]BoundConst, 0, len(class.Constants))
	for _, k := range class.Constants {
		v, ok := bindings[k.Name]
		if !ok {
			if k.Default == nil {
				return nil, fmt.Errorf("%w: constant %s of %s is unbound",
					ErrMalformedBinding, k.Name, class.Name)
			}
			v = k.Default
		}
		complete = append(complete, BoundConst{Name: k.Name, Value: v})
	}
	for name := range bindings {
		if class.Constant(name) == nil {
			return nil, fmt.Errorf("%w: %s has no constant field %s",
				ErrMalformedBinding, class.Name, name)
		}
	}

	// A later constant's declared type may reference earlier constants by
	// name, e.g. `constant n : Buffer(size = m)`, so the checks run under
	// the completed binding set.
	subst := make(map[string]Value, len(complete))
	for _, b := range complete {
		subst[b.Name] = b.Value
	}
	for i, k := range class.Constants {
		if k.Type == nil {
			continue
		}
		declared, err := r.ResolveRef(k.Type, subst)
		if err != nil {
			return nil, err
		}
		ok, err := r.IsAssignable(r.TypeOf(complete[i].Value), declared)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: value %s is not assignable to constant %s: %s",
				ErrMalformedBinding, complete[i].Value.Inspect(), k.Name, declared)
		}
	}

	return r.internClassType(class, complete), nil
}

func (r *Resolver) internClassType(class *Class, bindings []BoundConst) *ClassType {
	key := classTypeKey(class, bindings)
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.interned[key]; ok {
		return t.(*ClassType)
	}
	t := &ClassType{Class: class, Bindings: bindings, key: key}
	r.interned[key] = t
	return t
}

func classTypeKey(class *Class, bindings []BoundConst) string {
	if len(bindings) == 0 {
		return class.Name
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Name + " = " + b.Value.Inspect()
	}
	return class.Name + "(" + strings.Join(parts, ", ") + ")"
}

// ResolveAnonymous returns the interned anonymous Type for a signature set.
// No validation happens against any class; the requirements are checked
// structurally at each assignability query.
func (r *Resolver) ResolveAnonymous(sigs []MethodSig) *AnonType {
	sorted := append([]MethodSig{}, sigs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = s.String()
	}
	key := "{ " + strings.Join(parts, "; ") + " }"

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.interned[key]; ok {
		return t.(*AnonType)
	}
	t := &AnonType{Sigs: sorted, key: key}
	r.interned[key] = t
	return t
}

// ResolveRef resolves a declaration-site type reference into a Type,
// substituting constant-field references through subst (the enclosing
// type's bindings; nil when no enclosing bindings exist).
func (r *Resolver) ResolveRef(ref *TypeRef, subst map[string]Value) (*ClassType, error) {
	bindings := make(map[string]Value, len(ref.Args))
	for _, a := range ref.Args {
		v := a.Value
		if a.Ref != "" {
			bound, ok := subst[a.Ref]
			if !ok {
				return nil, fmt.Errorf("%w: unresolved constant reference %s in %s",
					ErrMalformedBinding, a.Ref, ref.String())
			}
			v = bound
		}
		bindings[a.Name] = v
	}
	return r.Resolve(ref.Class, bindings)
}

// TypeOf returns the dynamic type of a value. Primitives and meta-values
// map to the corresponding builtin classes, so "everything is an object"
// holds at the type level too.
func (r *Resolver) TypeOf(v Value) Type {
	switch val := v.(type) {
	case *Object:
		return val.typ
	case *Integer:
		return r.internClassType(r.reg.Builtin(config.IntClassName), nil)
	case *Boolean:
		return r.internClassType(r.reg.Builtin(config.BoolClassName), nil)
	case *String:
		return r.internClassType(r.reg.Builtin(config.StringClassName), nil)
	case *Nil:
		return r.internClassType(r.reg.Builtin(config.NilClassName), nil)
	case *ClassValue:
		return r.internClassType(r.reg.Builtin(config.ClassClassName), nil)
	case *MethodValue:
		return r.internClassType(r.reg.Builtin(config.MethodClassName), nil)
	case *FieldValue:
		return r.internClassType(r.reg.Builtin(config.FieldClassName), nil)
	default:
		return r.internClassType(r.reg.Builtin(config.NilClassName), nil)
	}
}
