package lang

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-set/v3"

	"github.com/mirralang/mirra/internal/config"
)

// Registry owns class definitions. Registration validates the hierarchy
// invariants (acyclicity, duplicate direct parents, binding completeness)
// before a class becomes visible; a reader never observes a partially
// registered class.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
	hooks   []func()
}

func NewRegistry() *Registry {
	r := &Registry{classes: make(map[string]*Class)}
	for _, name := range []string{
		config.IntClassName,
		config.BoolClassName,
		config.StringClassName,
		config.NilClassName,
		config.ClassClassName,
		config.MethodClassName,
		config.FieldClassName,
	} {
		c := &Class{Name: name, builtin: true}
		c.slots = computeSlots(c)
		c.registered = true
		r.classes[name] = c
	}
	return r
}

// OnMutate registers a hook invoked after any reflective class mutation.
// The resolver uses this to drop memoized assignability results.
func (r *Registry) OnMutate(hook func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Lookup returns the registered class with the given name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Builtin returns a pre-registered builtin class and panics if the name is
// not one: builtins are created by NewRegistry, so a miss is a programming
// error.
func (r *Registry) Builtin(name string) *Class {
	c, ok := r.Lookup(name)
	if !ok || !c.builtin {
		panic(fmt.Sprintf("lang: no builtin class %q", name))
	}
	return c
}

// Classes returns all registered classes in no particular order.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	return out
}

// Register validates c against the hierarchy invariants and commits it.
// Parents must already be constructed (they may be forward-declared shells
// from the same lowering unit); the acyclicity check walks the parent
// pointers directly.
func (r *Registry) Register(c *Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrRedeclaredClass, c.Name)
	}
	if err := validateClass(c); err != nil {
		return err
	}

	c.slots = computeSlots(c)
	c.registered = true
	r.classes[c.Name] = c
	return nil
}

func validateClass(c *Class) error {
	if err := checkAcyclic(c); err != nil {
		return err
	}
	if err := checkDirectParents(c); err != nil {
		return err
	}
	if err := normalizeParentArgs(c); err != nil {
		return err
	}
	if c.DerefField != "" && c.Field(c.DerefField) == nil {
		return fmt.Errorf("%w: class %s dereferences unknown field %s",
			ErrUnknownMember, c.Name, c.DerefField)
	}
	return nil
}

// checkAcyclic fails if c transitively extends itself. visited guards
// against revisiting shared ancestors; the stack set tracks the current
// path.
func checkAcyclic(c *Class) error {
	visited := set.New[*Class](8)
	stack := set.New[*Class](8)
	var walk func(cur *Class) error
	walk = func(cur *Class) error {
		if stack.Contains(cur) {
			return fmt.Errorf("%w: class %s reaches itself", ErrCyclicInheritance, cur.Name)
		}
		if visited.Contains(cur) {
			return nil
		}
		visited.Insert(cur)
		stack.Insert(cur)
		for _, edge := range cur.Parents {
			if err := walk(edge.Class); err != nil {
				return err
			}
		}
		stack.Remove(cur)
		return nil
	}
	return walk(c)
}

// checkDirectParents rejects two direct edges naming the same class with
// identical constant-field bindings. Differing bindings are legal: they
// produce separately typed slots.
func checkDirectParents(c *Class) error {
	for i := 0; i < len(c.Parents); i++ {
		for j := i + 1; j < len(c.Parents); j++ {
			a, b := c.Parents[i], c.Parents[j]
			if a.Class == b.Class && sameArgs(a.Args, b.Args) {
				return fmt.Errorf("%w: class %s extends %s twice with identical bindings",
					ErrDuplicateDirectParent, c.Name, a.Class.Name)
			}
		}
	}
	return nil
}

func sameArgs(a, b []ConstArg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Ref != b[i].Ref {
			return false
		}
		if (a[i].Value == nil) != (b[i].Value == nil) {
			return false
		}
		if a[i].Value != nil && !Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// normalizeParentArgs rewrites every parent edge's argument list into the
// parent's constant-field declaration order, filling omitted entries from
// declared defaults. After normalization an edge binds exactly the parent's
// constant fields.
func normalizeParentArgs(c *Class) error {
	for _, edge := range c.Parents {
		byName := make(map[string]ConstArg, len(edge.Args))
		for _, a := range edge.Args {
			if edge.Class.Constant(a.Name) == nil {
				return fmt.Errorf("%w: class %s binds unknown constant %s of %s",
					ErrMalformedBinding, c.Name, a.Name, edge.Class.Name)
			}
			if _, dup := byName[a.Name]; dup {
				return fmt.Errorf("%w: class %s binds constant %s of %s twice",
					ErrMalformedBinding, c.Name, a.Name, edge.Class.Name)
			}
			if a.Ref != "" && c.Constant(a.Ref) == nil {
				return fmt.Errorf("%w: class %s binds %s to unknown constant %s",
					ErrMalformedBinding, c.Name, a.Name, a.Ref)
			}
			byName[a.Name] = a
		}
		normalized := make([]ConstArg, 0, len(edge.Class.Constants))
		for _, k := range edge.Class.Constants {
			if a, ok := byName[k.Name]; ok {
				normalized = append(normalized, a)
				continue
			}
			if k.Default == nil {
				return fmt.Errorf("%w: class %s leaves constant %s of %s unbound",
					ErrMalformedBinding, c.Name, k.Name, edge.Class.Name)
			}
			normalized = append(normalized, ConstArg{Name: k.Name, Value: k.Default})
		}
		edge.Args = normalized
	}
	return nil
}

// Member is the result of member lookup: which slot defines the name and
// which declaration it is.
type Member struct {
	Slot   *Slot
	Const  *ConstField
	Field  *InstanceField
	Method *Method
}

func ownMember(s *Slot, name string) *Member {
	if k := s.Class.Constant(name); k != nil {
		return &Member{Slot: s, Const: k}
	}
	if f := s.Class.Field(name); f != nil {
		return &Member{Slot: s, Field: f}
	}
	if m := s.Class.Method(name); m != nil {
		return &Member{Slot: s, Method: m}
	}
	return nil
}

// ResolveMember looks up name starting at from (nil means the class's own
// slot). The class's own declarations win; otherwise superclass slots are
// searched outward by inheritance depth, in declaration order within a
// depth. A name found in two or more sibling slots at the same depth with
// no single most-derived defining class fails with ErrAmbiguousMember: the
// caller must disambiguate with an explicit upcast.
func (r *Registry) ResolveMember(c *Class, name string, from *Slot) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return resolveMember(c, name, from)
}

func resolveMember(c *Class, name string, from *Slot) (*Member, error) {
	if from == nil {
		from = c.SlotByID("")
	}
	if from == nil {
		return nil, fmt.Errorf("%w: class %s has no slot table", ErrTypeSystemInvariant, c.Name)
	}

	maxDepth := 0
	for _, s := range c.Slots() {
		if s.Depth() > maxDepth {
			maxDepth = s.Depth()
		}
	}

	for depth := from.Depth(); depth <= maxDepth; depth++ {
		var found []*Member
		for _, s := range c.Slots() {
			if s.Depth() != depth || !pathHasPrefix(s.Path, from.Path) {
				continue
			}
			if m := ownMember(s, name); m != nil {
				found = append(found, m)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			if m := mostDerived(found); m != nil {
				return m, nil
			}
			return nil, fmt.Errorf("%w: %s is defined in %d superclass slots of %s",
				ErrAmbiguousMember, name, len(found), c.Name)
		}
	}
	return nil, fmt.Errorf("%w: %s has no member %s", ErrUnknownMember, c.Name, name)
}

func pathHasPrefix(path, prefix []int) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i, e := range prefix {
		if path[i] != e {
			return false
		}
	}
	return true
}

// mostDerived returns the candidate whose defining class is a strict
// transitive subclass of every other candidate's, if exactly one exists.
func mostDerived(candidates []*Member) *Member {
	for _, m := range candidates {
		derived := true
		for _, other := range candidates {
			if other == m {
				continue
			}
			if m.Slot.Class == other.Slot.Class || !isSubclass(m.Slot.Class, other.Slot.Class) {
				derived = false
				break
			}
		}
		if derived {
			return m
		}
	}
	return nil
}

// isSubclass reports whether sub transitively extends super (or is super).
func isSubclass(sub, super *Class) bool {
	for _, s := range sub.Slots() {
		if s.Class == super {
			return true
		}
	}
	return false
}

// IsSubclass reports whether sub is super or transitively extends it.
func (r *Registry) IsSubclass(sub, super *Class) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return isSubclass(sub, super)
}

// IsAbstract reports whether c has, in any slot, a bodyless method that no
// more-derived class along that slot's path overrides with a body.
func (r *Registry) IsAbstract(c *Class) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return isAbstract(c)
}

func isAbstract(c *Class) bool {
	for _, s := range c.Slots() {
		for _, m := range s.Class.Methods {
			if m.HasBody {
				continue
			}
			if !overridden(c, s, m) {
				return true
			}
		}
	}
	return false
}

// overridden reports whether a bodyless method declared by slot s is
// implemented by a class on the path from the root slot to s.
func overridden(c *Class, s *Slot, abstract *Method) bool {
	for _, candidate := range c.Slots() {
		if candidate.Depth() >= s.Depth() || !pathHasPrefix(s.Path, candidate.Path) {
			continue
		}
		if m := candidate.Class.Method(abstract.Name); m != nil && m.HasBody && m.Arity() == abstract.Arity() {
			return true
		}
	}
	return false
}

// AddField reflectively adds an instance field to a registered class. The
// mutation is copy-on-validate: a candidate copy is re-validated against
// every registration invariant and the live declaration is only touched if
// all checks pass.
func (r *Registry) AddField(c *Class, f *InstanceField) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.Field(f.Name) != nil || c.Constant(f.Name) != nil {
		return fmt.Errorf("%w: class %s already declares %s", ErrRedeclaredClass, c.Name, f.Name)
	}
	candidate := c.shallowCopy()
	candidate.Fields = append(append([]*InstanceField{}, c.Fields...), f)
	if err := validateClass(candidate); err != nil {
		return err
	}

	c.Fields = candidate.Fields
	r.notifyLocked()
	return nil
}

// AddMethod reflectively adds a method, under the same copy-on-validate
// discipline. Adding a bodyless method can make the class abstract.
func (r *Registry) AddMethod(c *Class, m *Method) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.Method(m.Name) != nil {
		return fmt.Errorf("%w: class %s already declares %s", ErrRedeclaredClass, c.Name, m.Name)
	}
	if m.IsCtor && c.Ctor() != nil {
		return fmt.Errorf("%w: class %s already has a constructor", ErrRedeclaredClass, c.Name)
	}
	candidate := c.shallowCopy()
	candidate.Methods = append(append([]*Method{}, c.Methods...), m)
	if err := validateClass(candidate); err != nil {
		return err
	}

	c.Methods = candidate.Methods
	r.notifyLocked()
	return nil
}

func (c *Class) shallowCopy() *Class {
	cp := *c
	return &cp
}

func (r *Registry) notifyLocked() {
	for _, hook := range r.hooks {
		hook()
	}
}
