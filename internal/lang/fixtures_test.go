package lang

import (
	"testing"

	"github.com/mirralang/mirra/internal/config"
)

// Shared fixtures for the runtime-model tests. Classes are built directly
// rather than through the front end so each invariant can be probed in
// isolation.

func newWorld() (*Registry, *Resolver, *Model, *Mirror) {
	reg := NewRegistry()
	res := NewResolver(reg)
	model := NewModel(res)
	return reg, res, model, NewMirror(model)
}

func intVal(n int64) *Integer { return &Integer{Value: n} }

func intRef(reg *Registry) *TypeRef {
	return &TypeRef{Class: reg.Builtin(config.IntClassName)}
}

func mustRegister(t *testing.T, reg *Registry, classes ...*Class) {
	t.Helper()
	for _, c := range classes {
		if err := reg.Register(c); err != nil {
			t.Fatalf("Register(%s) failed: %v", c.Name, err)
		}
	}
}

func mustResolve(t *testing.T, res *Resolver, c *Class, bindings map[string]Value) *ClassType {
	t.Helper()
	typ, err := res.Resolve(c, bindings)
	if err != nil {
		t.Fatalf("Resolve(%s) failed: %v", c.Name, err)
	}
	return typ
}

func mustInstantiate(t *testing.T, m *Model, typ *ClassType, args ...Value) *Object {
	t.Helper()
	obj, err := m.Instantiate(typ, args)
	if err != nil {
		t.Fatalf("Instantiate(%s) failed: %v", typ, err)
	}
	return obj
}

// animalDog registers Animal (one concrete method) and Dog extending it.
func animalDog(t *testing.T, reg *Registry) (animal, dog *Class) {
	t.Helper()
	animal = &Class{
		Name:    "Animal",
		Methods: []*Method{{Name: "speak", HasBody: true}},
	}
	dog = &Class{
		Name:    "Dog",
		Parents: []*ParentEdge{{Class: animal}},
	}
	mustRegister(t, reg, animal, dog)
	return animal, dog
}

// diamond registers the classic repeated-superclass shape:
//
//	A declares field v (set by its constructor)
//	B : A and C : A forward one constructor argument each
//	D : B, C forwards both
//
// so a D instance holds two distinct A slots, each with its own v cell.
func diamond(t *testing.T, reg *Registry) (a, b, c, d *Class) {
	t.Helper()
	a = &Class{
		Name:   "A",
		Fields: []*InstanceField{{Name: "v", Type: intRef(reg), Mutable: true}},
		Methods: []*Method{{
			Name: "new", IsCtor: true, HasBody: true,
			Params: []Param{{Name: "v", Type: intRef(reg)}},
			Body:   []CtorStmt{&SetField{Field: "v", Arg: ParamOperand{Index: 0}}},
		}},
	}
	mid := func(name string) *Class {
		return &Class{
			Name:    name,
			Parents: []*ParentEdge{{Class: a}},
			Methods: []*Method{{
				Name: "new", IsCtor: true, HasBody: true,
				Params: []Param{{Name: "v", Type: intRef(reg)}},
				Body:   []CtorStmt{&CallParent{Edge: 0, Args: []Operand{ParamOperand{Index: 0}}}},
			}},
		}
	}
	b, c = mid("B"), mid("C")
	d = &Class{
		Name:    "D",
		Parents: []*ParentEdge{{Class: b}, {Class: c}},
		Methods: []*Method{{
			Name: "new", IsCtor: true, HasBody: true,
			Params: []Param{{Name: "x", Type: intRef(reg)}, {Name: "y", Type: intRef(reg)}},
			Body: []CtorStmt{
				&CallParent{Edge: 0, Args: []Operand{ParamOperand{Index: 0}}},
				&CallParent{Edge: 1, Args: []Operand{ParamOperand{Index: 1}}},
			},
		}},
	}
	mustRegister(t, reg, a, b, c, d)
	return a, b, c, d
}

// buffer registers a generic-like class with one constant field.
func buffer(t *testing.T, reg *Registry) *Class {
	t.Helper()
	b := &Class{
		Name:      "Buffer",
		Constants: []*ConstField{{Name: "size", Type: intRef(reg)}},
	}
	mustRegister(t, reg, b)
	return b
}
