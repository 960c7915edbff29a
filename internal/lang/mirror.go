package lang

import (
	"fmt"
)

// ClassValue exposes a class declaration as a value. It wraps the same
// *Class the registry holds: mutating through the reflective surface
// mutates the declaration, under the registry's re-validation.
type ClassValue struct {
	C *Class
}

func (c *ClassValue) Kind() ValueKind { return CLASS_VAL }
func (c *ClassValue) Inspect() string { return "class " + c.C.Name }
func (c *ClassValue) Hash() uint32    { return hashString(c.C.Name) }

// MethodValue exposes a method declaration as a value.
type MethodValue struct {
	C *Class
	M *Method
}

func (m *MethodValue) Kind() ValueKind { return METHOD_VAL }
func (m *MethodValue) Inspect() string {
	return fmt.Sprintf("method %s.%s/%d", m.C.Name, m.M.Name, m.M.Arity())
}
func (m *MethodValue) Hash() uint32 { return hashString(m.C.Name + "." + m.M.Name) }

// IsAbstract reports whether the method has no body.
func (m *MethodValue) IsAbstract() bool { return !m.M.HasBody }

// FieldValue exposes a field declaration as a value. Exactly one of F
// (instance field) and K (constant field) is set.
type FieldValue struct {
	C *Class
	F *InstanceField
	K *ConstField
}

func (f *FieldValue) Kind() ValueKind { return FIELD_VAL }
func (f *FieldValue) Inspect() string {
	return fmt.Sprintf("field %s.%s", f.C.Name, f.Name())
}
func (f *FieldValue) Hash() uint32 { return hashString(f.C.Name + "." + f.Name()) }

func (f *FieldValue) Name() string {
	if f.K != nil {
		return f.K.Name
	}
	return f.F.Name
}

// IsConst reports whether the field rejects mutation: constant fields
// always, instance fields unless declared mutable.
func (f *FieldValue) IsConst() bool {
	return f.K != nil || !f.F.Mutable
}

// Mirror is the reflection layer: it wraps registry, resolver and object
// model state so running code can inspect and mutate language elements as
// ordinary values.
type Mirror struct {
	reg   *Registry
	res   *Resolver
	model *Model
}

func NewMirror(model *Model) *Mirror {
	return &Mirror{reg: model.reg, res: model.res, model: model}
}

// ClassOf returns the live class object for a registered class name.
func (mr *Mirror) ClassOf(name string) (*ClassValue, error) {
	c, ok := mr.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: class %s", ErrUnknownMember, name)
	}
	return &ClassValue{C: c}, nil
}

// ClassOfValue returns the class object for a value's dynamic class.
func (mr *Mirror) ClassOfValue(v Value) *ClassValue {
	t := mr.res.TypeOf(v).(*ClassType)
	return &ClassValue{C: t.Class}
}

// FieldsOf lists a class's own fields — constant fields first, then
// instance fields, both in declaration order.
func (mr *Mirror) FieldsOf(cv *ClassValue) []*FieldValue {
	out := make([]*FieldValue, 0, len(cv.C.Constants)+len(cv.C.Fields))
	for _, k := range cv.C.Constants {
		out = append(out, &FieldValue{C: cv.C, K: k})
	}
	for _, f := range cv.C.Fields {
		out = append(out, &FieldValue{C: cv.C, F: f})
	}
	return out
}

// MethodsOf lists a class's own methods in declaration order.
func (mr *Mirror) MethodsOf(cv *ClassValue) []*MethodValue {
	out := make([]*MethodValue, 0, len(cv.C.Methods))
	for _, m := range cv.C.Methods {
		out = append(out, &MethodValue{C: cv.C, M: m})
	}
	return out
}

// FieldOf resolves a field by name through full member-lookup semantics:
// inherited fields resolve to the slot class that declares them.
func (mr *Mirror) FieldOf(cv *ClassValue, name string) (*FieldValue, error) {
	member, err := mr.reg.ResolveMember(cv.C, name, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case member.Const != nil:
		return &FieldValue{C: member.Slot.Class, K: member.Const}, nil
	case member.Field != nil:
		return &FieldValue{C: member.Slot.Class, F: member.Field}, nil
	default:
		return nil, fmt.Errorf("%w: %s.%s is not a field", ErrUnknownMember, cv.C.Name, name)
	}
}

// MethodOf resolves a method by name through full member-lookup semantics.
func (mr *Mirror) MethodOf(cv *ClassValue, name string) (*MethodValue, error) {
	member, err := mr.reg.ResolveMember(cv.C, name, nil)
	if err != nil {
		return nil, err
	}
	if member.Method == nil {
		return nil, fmt.Errorf("%w: %s.%s is not a method", ErrUnknownMember, cv.C.Name, name)
	}
	return &MethodValue{C: member.Slot.Class, M: member.Method}, nil
}

// Get reads the field's stored value from owner. This is the reflective
// access path: unlike Model.GetField it never applies the Dereference-proxy
// rule, so it is the way to obtain a proxy object itself.
func (f *FieldValue) Get(mr *Mirror, owner *Object) (Value, error) {
	if f.K != nil {
		v, ok := owner.typ.Binding(f.K.Name)
		if ok {
			return v, nil
		}
		// Constant of a superclass slot: compose down the first slot
		// declaring it.
		member, err := mr.reg.ResolveMember(owner.typ.Class, f.K.Name, nil)
		if err != nil {
			return nil, err
		}
		composed, err := mr.res.composeBindings(owner.typ, member.Slot.Path)
		if err != nil {
			return nil, err
		}
		v, ok = composed[f.K.Name]
		if !ok {
			return nil, fmt.Errorf("%w: constant %s is unbound", ErrTypeSystemInvariant, f.K.Name)
		}
		return v, nil
	}

	s, err := f.ownerSlot(owner)
	if err != nil {
		return nil, err
	}
	c := owner.cells[cellKey{slot: s.ID, field: f.F.Name}]
	if c == nil || !c.set {
		return nil, fmt.Errorf("%w: %s.%s", ErrUninitializedField, f.C.Name, f.F.Name)
	}
	return c.value, nil
}

// ownerSlot finds the unique slot of owner declared by the field's class.
// A repeated superclass makes the field ambiguous without an upcast view,
// the same rule ordinary access follows.
func (f *FieldValue) ownerSlot(owner *Object) (*Slot, error) {
	var matches []*Slot
	for _, s := range owner.typ.Class.Slots() {
		if s.Class == f.C {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s has no %s slot", ErrUnknownMember, owner.typ.Class.Name, f.C.Name)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s occurs in %d superclass slots of %s",
			ErrAmbiguousMember, f.C.Name, len(matches), owner.typ.Class.Name)
	}
}

// Set writes the field on owner. Const gating is identical to the ordinary
// path: reflection is not a mutability escape hatch.
func (f *FieldValue) Set(mr *Mirror, owner *Object, v Value) error {
	if f.IsConst() {
		return fmt.Errorf("%w: %s.%s", ErrConstFieldNotMutable, f.C.Name, f.Name())
	}
	s, err := f.ownerSlot(owner)
	if err != nil {
		return err
	}
	composed, err := mr.res.composeBindings(owner.typ, s.Path)
	if err != nil {
		return err
	}
	if err := mr.model.checkFieldType(f.F, v, composed); err != nil {
		return err
	}
	owner.cells[cellKey{slot: s.ID, field: f.F.Name}] = &cell{value: v, set: true}
	return nil
}

// Proxy reads a field's stored value without applying the
// Dereference-proxy rule: the explicit reflective accessor for the proxy
// object itself.
func (mr *Mirror) Proxy(owner *Object, name string, from *Slot) (Value, error) {
	member, err := mr.reg.ResolveMember(owner.typ.Class, name, from)
	if err != nil {
		return nil, err
	}
	if member.Field == nil {
		return nil, fmt.Errorf("%w: %s.%s is not an instance field", ErrUnknownMember, owner.typ.Class.Name, name)
	}
	c := owner.cells[cellKey{slot: member.Slot.ID, field: name}]
	if c == nil || !c.set {
		return nil, fmt.Errorf("%w: %s.%s", ErrUninitializedField, member.Slot.Class.Name, name)
	}
	return c.value, nil
}

// AddField reflectively adds an instance field to a live class.
func (mr *Mirror) AddField(cv *ClassValue, f *InstanceField) error {
	return mr.reg.AddField(cv.C, f)
}

// AddMethod reflectively adds a method to a live class.
func (mr *Mirror) AddMethod(cv *ClassValue, m *Method) error {
	return mr.reg.AddMethod(cv.C, m)
}
