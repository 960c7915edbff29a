package lang

import (
	"strconv"
	"strings"
)

// ConstField is a compile-time constant field declaration. Constant fields
// are the generic-parameter mechanism: a Type binds each of them to a
// concrete value.
type ConstField struct {
	Name    string
	Type    *TypeRef
	Default Value // nil when the declaration has no default
}

// InstanceField is ordinary per-object storage. A field with Mutable false
// may only be written by the constructor chain that owns it; afterwards any
// write fails with ErrConstFieldNotMutable.
type InstanceField struct {
	Name    string
	Type    *TypeRef
	Mutable bool
}

type Param struct {
	Name string
	Type *TypeRef
}

// Method is a method declaration. A method with HasBody false is abstract
// and makes its class (and any subclass that does not override it)
// abstract. Constructors are methods with IsCtor set; only their bodies are
// interpreted by the object model, as the closed statement set below.
type Method struct {
	Name    string
	Params  []Param
	Result  *TypeRef // nil when the method returns nothing
	HasBody bool
	IsCtor  bool
	Body    []CtorStmt
}

// Arity returns the declared parameter count.
func (m *Method) Arity() int { return len(m.Params) }

// TypeRef is a resolved reference to a class plus constant-field arguments,
// as written in a declaration (a field's declared type, a parent edge, a
// parameter type). Arguments may be literal values or references to the
// enclosing class's own constant fields.
type TypeRef struct {
	Class *Class
	Args  []ConstArg
}

func (t *TypeRef) String() string {
	if len(t.Args) == 0 {
		return t.Class.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.Name + " = " + a.describe()
	}
	return t.Class.Name + "(" + strings.Join(parts, ", ") + ")"
}

// ConstArg is one `name = value` entry of a TypeRef or parent edge. Exactly
// one of Value and Ref is set: Value is a literal constant, Ref names a
// constant field of the enclosing class, substituted when the enclosing
// class's own bindings are known.
type ConstArg struct {
	Name  string
	Value Value
	Ref   string
}

func (a ConstArg) describe() string {
	if a.Ref != "" {
		return a.Ref
	}
	return a.Value.Inspect()
}

// ParentEdge is one direct `extends` entry.
type ParentEdge struct {
	Class *Class
	Args  []ConstArg
}

// Class is a declared blueprint: ordered constant fields, instance fields,
// methods, and parent edges. Immutable after registration except through
// the registry's copy-on-validate reflective mutation.
type Class struct {
	Name   string
	Module string

	Constants []*ConstField
	Fields    []*InstanceField
	Methods   []*Method
	Parents   []*ParentEdge

	// DerefField names the instance field a Dereference proxy stands in
	// for; empty when the class does not declare the capability.
	DerefField string

	builtin    bool
	registered bool
	slots      []*Slot
}

// Slot is one distinguished occurrence of a superclass within a class's
// hierarchy. The same class reached through distinct parent paths occupies
// distinct slots; field cells are keyed by (slot, field name). Path is the
// sequence of direct-parent edge indices from the owning class; the empty
// path is the class's own slot.
type Slot struct {
	ID    string
	Path  []int
	Class *Class
}

// Depth is the inheritance distance from the owning class.
func (s *Slot) Depth() int { return len(s.Path) }

func slotID(path []int) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, len(path))
	for i, e := range path {
		parts[i] = strconv.Itoa(e)
	}
	return strings.Join(parts, ".")
}

// Slots returns the class's distinguished superclass slots in depth-first
// declaration order, starting with the class's own slot. Populated at
// registration.
func (c *Class) Slots() []*Slot { return c.slots }

// SlotByID returns the slot with the given ID, or nil. The empty ID is the
// class's own slot.
func (c *Class) SlotByID(id string) *Slot {
	for _, s := range c.slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Constant returns the class's own constant field with the given name.
func (c *Class) Constant(name string) *ConstField {
	for _, k := range c.Constants {
		if k.Name == name {
			return k
		}
	}
	return nil
}

// Field returns the class's own instance field with the given name.
func (c *Class) Field(name string) *InstanceField {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the class's own method with the given name.
func (c *Class) Method(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Ctor returns the class's constructor, or nil when the class relies on the
// implicit empty constructor.
func (c *Class) Ctor() *Method {
	for _, m := range c.Methods {
		if m.IsCtor {
			return m
		}
	}
	return nil
}

// computeSlots builds the slot table: the class's own slot followed by, for
// each direct parent edge in declaration order, the parent's slots
// re-rooted under that edge. Distinct paths stay distinct; nothing is
// merged. Callers must have excluded cycles first.
func computeSlots(c *Class) []*Slot {
	slots := []*Slot{{ID: "", Path: nil, Class: c}}
	for i, edge := range c.Parents {
		for _, ps := range parentSlots(edge.Class) {
			path := append([]int{i}, ps.Path...)
			slots = append(slots, &Slot{ID: slotID(path), Path: path, Class: ps.Class})
		}
	}
	return slots
}

func parentSlots(c *Class) []*Slot {
	if c.registered {
		return c.slots
	}
	// Parent not registered yet (forward reference during lowering):
	// compute on the fly.
	return computeSlots(c)
}

// CtorStmt is a constructor-body statement. The object model interprets
// only this closed set; everything else a method body could contain belongs
// to the execution backend.
type CtorStmt interface {
	ctorStmt()
}

// SetField initializes or assigns one of the executing constructor's own
// class fields.
type SetField struct {
	Field string
	Arg   Operand
}

func (*SetField) ctorStmt() {}

// CallParent invokes the constructor of the direct parent edge with the
// given index, passing the current object upcast. Args exclude the implicit
// self argument.
type CallParent struct {
	Edge int
	Args []Operand
}

func (*CallParent) ctorStmt() {}

// Operand is a constructor-statement argument.
type Operand interface {
	operand()
}

// ParamOperand refers to the constructor's parameter with the given index.
type ParamOperand struct{ Index int }

func (ParamOperand) operand() {}

// ValueOperand is a literal constant.
type ValueOperand struct{ Value Value }

func (ValueOperand) operand() {}

// ConstOperand refers to a constant field of the constructing class,
// resolved against the instantiated type's bindings.
type ConstOperand struct{ Name string }

func (ConstOperand) operand() {}

// SelfOperand is the object under construction.
type SelfOperand struct{}

func (SelfOperand) operand() {}
