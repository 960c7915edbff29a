package lang

import (
	"fmt"

	"github.com/google/uuid"
)

// cellKey addresses one field cell: the superclass slot that declares the
// field, and the field's name. Repeated superclasses keep distinct cells.
type cellKey struct {
	slot  string
	field string
}

type cell struct {
	value Value
	set   bool
}

// Object is an allocated instance: a type reference plus one storage cell
// per (slot, instance field). Field cells carry no synchronization;
// concurrent mutation of one object is the backend's concern.
type Object struct {
	typ   *ClassType
	id    uuid.UUID
	cells map[cellKey]*cell
}

func (o *Object) Kind() ValueKind { return OBJECT_VAL }
func (o *Object) Inspect() string {
	return fmt.Sprintf("<%s %s>", o.typ.String(), o.id.String()[:8])
}
func (o *Object) Hash() uint32 { return hashString(o.id.String()) }

// Type returns the object's type.
func (o *Object) Type() *ClassType { return o.typ }

// ID returns the object's allocation identity.
func (o *Object) ID() uuid.UUID { return o.id }

// Model is the object model: allocation, constructor dispatch and field
// access over a registry and resolver pair.
type Model struct {
	reg *Registry
	res *Resolver
}

func NewModel(res *Resolver) *Model {
	return &Model{reg: res.Registry(), res: res}
}

// Instantiate allocates an object of t and runs t's class's constructor
// with the new object as the implicit self. Abstract classes cannot be
// instantiated; their constructors only run when a concrete subclass's
// constructor invokes them with an existing self. The object is returned
// only after the constructor chain initialized every field cell its slots
// own.
func (m *Model) Instantiate(t *ClassType, args []Value) (*Object, error) {
	if m.reg.IsAbstract(t.Class) {
		return nil, fmt.Errorf("%w: %s", ErrCannotInstantiateAbstract, t.Class.Name)
	}

	obj := &Object{typ: t, id: uuid.New(), cells: make(map[cellKey]*cell)}
	for _, s := range t.Class.Slots() {
		for _, f := range s.Class.Fields {
			obj.cells[cellKey{slot: s.ID, field: f.Name}] = &cell{}
		}
	}

	bindings := make(map[string]Value, len(t.Bindings))
	for _, b := range t.Bindings {
		bindings[b.Name] = b.Value
	}
	self := t.Class.SlotByID("")
	if err := m.runCtor(obj, self, t.Class.Ctor(), args, bindings); err != nil {
		return nil, err
	}
	return obj, nil
}

// runCtor interprets one constructor body against the slot it owns, then
// enforces the two completeness rules: every required parent edge must have
// been invoked, and every field the slot declares must be initialized.
// ctor may be nil (the implicit empty constructor); the completeness rules
// still apply.
func (m *Model) runCtor(obj *Object, slot *Slot, ctor *Method, args []Value, bindings map[string]Value) error {
	cls := slot.Class
	called := make(map[int]bool, len(cls.Parents))

	if ctor != nil {
		if len(args) != ctor.Arity() {
			return fmt.Errorf("constructor of %s takes %d arguments, got %d",
				cls.Name, ctor.Arity(), len(args))
		}
		for _, stmt := range ctor.Body {
			switch st := stmt.(type) {
			case *SetField:
				if err := m.runSetField(obj, slot, st, args, bindings); err != nil {
					return err
				}
			case *CallParent:
				if err := m.runCallParent(obj, slot, st, args, bindings, called); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: unknown constructor statement %T", ErrTypeSystemInvariant, stmt)
			}
		}
	}

	for i, edge := range cls.Parents {
		if !called[i] && requiresCtorCall(edge.Class) {
			return fmt.Errorf("%w: constructor of %s never invokes %s",
				ErrParentNotInitialized, cls.Name, edge.Class.Name)
		}
	}
	for _, f := range cls.Fields {
		c := obj.cells[cellKey{slot: slot.ID, field: f.Name}]
		if c == nil || !c.set {
			return fmt.Errorf("%w: %s.%s", ErrUninitializedField, cls.Name, f.Name)
		}
	}
	return nil
}

// requiresCtorCall reports whether an edge to c must be explicitly invoked:
// trivially empty hierarchies (no constructor, no fields anywhere) need no
// call.
func requiresCtorCall(c *Class) bool {
	for _, s := range c.Slots() {
		if len(s.Class.Fields) > 0 || s.Class.Ctor() != nil {
			return true
		}
	}
	return false
}

func (m *Model) runSetField(obj *Object, slot *Slot, st *SetField, args []Value, bindings map[string]Value) error {
	f := slot.Class.Field(st.Field)
	if f == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownMember, slot.Class.Name, st.Field)
	}
	v, err := m.evalOperand(obj, st.Arg, args, bindings)
	if err != nil {
		return err
	}
	if err := m.checkFieldType(f, v, bindings); err != nil {
		return err
	}
	obj.cells[cellKey{slot: slot.ID, field: st.Field}] = &cell{value: v, set: true}
	return nil
}

func (m *Model) runCallParent(obj *Object, slot *Slot, st *CallParent, args []Value, bindings map[string]Value, called map[int]bool) error {
	cls := slot.Class
	if st.Edge >= len(cls.Parents) {
		return fmt.Errorf("%w: parent call leaves %s's parent list", ErrTypeSystemInvariant, cls.Name)
	}
	edge := cls.Parents[st.Edge]
	childPath := append(append([]int{}, slot.Path...), st.Edge)
	childSlot := obj.typ.Class.SlotByID(slotID(childPath))
	if childSlot == nil {
		return fmt.Errorf("%w: no slot for parent %s of %s", ErrTypeSystemInvariant, edge.Class.Name, cls.Name)
	}

	parentCtor := edge.Class.Ctor()
	if parentCtor == nil && requiresCtorCall(edge.Class) {
		return fmt.Errorf("%w: %s declares fields but no constructor",
			ErrParentNotInitialized, edge.Class.Name)
	}

	parentArgs := make([]Value, 0, len(st.Args))
	for _, op := range st.Args {
		v, err := m.evalOperand(obj, op, args, bindings)
		if err != nil {
			return err
		}
		parentArgs = append(parentArgs, v)
	}

	parentBindings := make(map[string]Value, len(edge.Args))
	for _, a := range edge.Args {
		v := a.Value
		if a.Ref != "" {
			bound, ok := bindings[a.Ref]
			if !ok {
				return fmt.Errorf("%w: constant %s of %s is unbound",
					ErrTypeSystemInvariant, a.Ref, cls.Name)
			}
			v = bound
		}
		parentBindings[a.Name] = v
	}

	if parentCtor != nil {
		if err := m.runCtor(obj, childSlot, parentCtor, parentArgs, parentBindings); err != nil {
			return err
		}
	}
	called[st.Edge] = true
	return nil
}

func (m *Model) evalOperand(obj *Object, op Operand, args []Value, bindings map[string]Value) (Value, error) {
	switch o := op.(type) {
	case ParamOperand:
		if o.Index >= len(args) {
			return nil, fmt.Errorf("%w: parameter index %d out of range", ErrTypeSystemInvariant, o.Index)
		}
		return args[o.Index], nil
	case ValueOperand:
		return o.Value, nil
	case ConstOperand:
		v, ok := bindings[o.Name]
		if !ok {
			return nil, fmt.Errorf("%w: constant %s is unbound", ErrTypeSystemInvariant, o.Name)
		}
		return v, nil
	case SelfOperand:
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: unknown operand %T", ErrTypeSystemInvariant, op)
	}
}

func (m *Model) checkFieldType(f *InstanceField, v Value, bindings map[string]Value) error {
	if f.Type == nil {
		return nil
	}
	declared, err := m.res.ResolveRef(f.Type, bindings)
	if err != nil {
		return err
	}
	ok, err := m.res.IsAssignable(m.res.TypeOf(v), declared)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("value %s is not assignable to field %s: %s", v.Inspect(), f.Name, declared)
	}
	return nil
}

// As resolves an explicit upcast: the slot of obj that holds the view of
// type t. Zero matching slots means the cast is invalid; more than one
// means the cast itself is ambiguous and a more specific intermediate cast
// is needed.
func (m *Model) As(obj *Object, t *ClassType) (*Slot, error) {
	var matches []*Slot
	for _, s := range obj.typ.Class.Slots() {
		if s.Class != t.Class {
			continue
		}
		composed, err := m.res.composeBindings(obj.typ, s.Path)
		if err != nil {
			return nil, err
		}
		sat := true
		for _, b := range t.Bindings {
			if actual, ok := composed[b.Name]; !ok || !Equal(actual, b.Value) {
				sat = false
				break
			}
		}
		if sat {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s is not a %s", obj.typ, t)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s occurs in %d superclass slots of %s",
			ErrAmbiguousMember, t.Class.Name, len(matches), obj.typ.Class.Name)
	}
}

// GetField reads a field through ordinary access-path semantics: member
// lookup from the access slot (nil means the object's own view), then the
// Dereference-proxy rule — when the field's declared static type is a
// Dereference class, the read yields the proxied value, one level, at this
// access site only. The proxy object itself is reachable through the
// reflective accessors, never through this path.
func (m *Model) GetField(obj *Object, name string, from *Slot) (Value, error) {
	member, err := m.reg.ResolveMember(obj.typ.Class, name, from)
	if err != nil {
		return nil, err
	}
	switch {
	case member.Const != nil:
		composed, err := m.res.composeBindings(obj.typ, member.Slot.Path)
		if err != nil {
			return nil, err
		}
		v, ok := composed[member.Const.Name]
		if !ok {
			return nil, fmt.Errorf("%w: constant %s is unbound", ErrTypeSystemInvariant, member.Const.Name)
		}
		return v, nil
	case member.Field != nil:
		c := obj.cells[cellKey{slot: member.Slot.ID, field: name}]
		if c == nil || !c.set {
			return nil, fmt.Errorf("%w: %s.%s", ErrUninitializedField, member.Slot.Class.Name, name)
		}
		return m.deref(member.Field, c.value)
	case member.Method != nil:
		return &MethodValue{C: member.Slot.Class, M: member.Method}, nil
	default:
		return nil, fmt.Errorf("%w: empty member for %s", ErrTypeSystemInvariant, name)
	}
}

// deref applies the Dereference-proxy rule to a freshly read field value.
// The decision is made on the field's declared type, not the stored value's
// dynamic type: the proxy is a property of the access site.
func (m *Model) deref(f *InstanceField, v Value) (Value, error) {
	if f.Type == nil || f.Type.Class.DerefField == "" {
		return v, nil
	}
	proxy, ok := v.(*Object)
	if !ok {
		// nil cell in a proxy-typed field: nothing to stand in for.
		return v, nil
	}
	// The stored object may be a subclass of the declared class, so the
	// designated field's cell can live on an inherited slot; resolve it
	// against the object's dynamic class rather than assuming slot self.
	target := f.Type.Class.DerefField
	member, err := m.reg.ResolveMember(proxy.typ.Class, target, nil)
	if err != nil {
		return nil, err
	}
	inner := proxy.cells[cellKey{slot: member.Slot.ID, field: target}]
	if inner == nil || !inner.set {
		return nil, fmt.Errorf("%w: %s.%s", ErrUninitializedField, member.Slot.Class.Name, target)
	}
	// One level only. If the dereferenced value is itself proxy-typed the
	// access site is ambiguous; it is returned as-is for the caller to
	// inspect rather than resolved by guessing.
	return inner.value, nil
}

// SetField writes a field through ordinary access-path semantics. Constant
// fields and non-mutable instance fields reject the write: no access path
// may yield a mutable handle to them.
func (m *Model) SetField(obj *Object, name string, from *Slot, v Value) error {
	member, err := m.reg.ResolveMember(obj.typ.Class, name, from)
	if err != nil {
		return err
	}
	switch {
	case member.Const != nil:
		return fmt.Errorf("%w: constant field %s.%s", ErrConstFieldNotMutable, member.Slot.Class.Name, name)
	case member.Field != nil:
		if !member.Field.Mutable {
			return fmt.Errorf("%w: %s.%s", ErrConstFieldNotMutable, member.Slot.Class.Name, name)
		}
		composed, err := m.res.composeBindings(obj.typ, member.Slot.Path)
		if err != nil {
			return err
		}
		if err := m.checkFieldType(member.Field, v, composed); err != nil {
			return err
		}
		obj.cells[cellKey{slot: member.Slot.ID, field: name}] = &cell{value: v, set: true}
		return nil
	default:
		return fmt.Errorf("%w: %s.%s is not a field", ErrUnknownMember, obj.typ.Class.Name, name)
	}
}
