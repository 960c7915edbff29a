package lang

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"
)

// IsAssignable reports whether a value of type v may be used where type f
// is expected. The relation is:
//
//   - class-based v, class-based f: v's class is f's class or a transitive
//     subclass reached through some slot path, and every constant-field
//     binding required by f is satisfied along that path — by an identical
//     value or, recursively, by a value whose own type is assignable.
//   - anonymous f: v defines, through itself or any superclass slot, a
//     method matching every required signature.
//
// The relation is not symmetric, and anonymous targets are re-matched
// structurally rather than assumed reflexive. Pair results are memoized;
// the memo is purged on reflective class mutation. A pair re-entered on the
// current search stack means the class metadata itself is cyclic, which
// registration is supposed to make impossible: that fails hard with
// ErrTypeSystemInvariant rather than looping or guessing.
func (r *Resolver) IsAssignable(v, f Type) (bool, error) {
	key := v.String() + " => " + f.String()
	if cached, ok := r.memo.Get(key); ok {
		return cached.(bool), nil
	}
	result, err := r.assignable(v, f, set.New[string](8))
	if err != nil {
		return false, err
	}
	r.memo.Add(key, result)
	return result, nil
}

func (r *Resolver) assignable(v, f Type, stack *set.Set[string]) (bool, error) {
	key := v.String() + " => " + f.String()
	if stack.Contains(key) {
		return false, fmt.Errorf("%w: assignability search revisited %s", ErrTypeSystemInvariant, key)
	}
	stack.Insert(key)
	defer stack.Remove(key)

	switch target := f.(type) {
	case *AnonType:
		return r.structuralMatch(v, target)
	case *ClassType:
		vt, ok := v.(*ClassType)
		if !ok {
			// An anonymous type carries no class identity; it can never
			// satisfy a nominal target.
			return false, nil
		}
		if vt == target {
			return true, nil
		}
		return r.nominalMatch(vt, target, stack)
	default:
		return false, fmt.Errorf("%w: unknown type form %T", ErrTypeSystemInvariant, f)
	}
}

// nominalMatch tries every slot of vt's class whose class is the target's,
// composing constant-field bindings down the slot path. One compatible path
// suffices.
func (r *Resolver) nominalMatch(vt, target *ClassType, stack *set.Set[string]) (bool, error) {
	for _, s := range vt.Class.Slots() {
		if s.Class != target.Class {
			continue
		}
		composed, err := r.composeBindings(vt, s.Path)
		if err != nil {
			return false, err
		}
		ok, err := r.bindingsSatisfy(composed, target, stack)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// composeBindings walks a slot path from vt's class, substituting each
// edge's constant arguments with the bindings accumulated so far, and
// returns the effective bindings of the superclass instance at the end of
// the path.
func (r *Resolver) composeBindings(vt *ClassType, path []int) (map[string]Value, error) {
	current := make(map[string]Value, len(vt.Bindings))
	for _, b := range vt.Bindings {
		current[b.Name] = b.Value
	}
	cls := vt.Class
	for _, edgeIdx := range path {
		if edgeIdx >= len(cls.Parents) {
			return nil, fmt.Errorf("%w: slot path leaves %s's parent list", ErrTypeSystemInvariant, cls.Name)
		}
		edge := cls.Parents[edgeIdx]
		next := make(map[string]Value, len(edge.Args))
		for _, a := range edge.Args {
			v := a.Value
			if a.Ref != "" {
				bound, ok := current[a.Ref]
				if !ok {
					return nil, fmt.Errorf("%w: constant %s of %s is unbound on edge to %s",
						ErrTypeSystemInvariant, a.Ref, cls.Name, edge.Class.Name)
				}
				v = bound
			}
			next[a.Name] = v
		}
		current = next
		cls = edge.Class
	}
	return current, nil
}

func (r *Resolver) bindingsSatisfy(composed map[string]Value, target *ClassType, stack *set.Set[string]) (bool, error) {
	for _, required := range target.Bindings {
		actual, ok := composed[required.Name]
		if !ok {
			return false, fmt.Errorf("%w: composed bindings miss constant %s of %s",
				ErrTypeSystemInvariant, required.Name, target.Class.Name)
		}
		if Equal(actual, required.Value) {
			continue
		}
		// Primitives and meta-values satisfy a binding only by identical
		// value; their dynamic types all collapse to the same builtin
		// class, so a type-level check would accept any pair. Only
		// object-valued bindings fall back to assignability of the stored
		// objects' own types.
		actualObj, aOK := actual.(*Object)
		requiredObj, rOK := required.Value.(*Object)
		if !aOK || !rOK {
			return false, nil
		}
		ok, err := r.assignable(actualObj.typ, requiredObj.typ, stack)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// structuralMatch checks an anonymous target: every required signature must
// be defined by v's class or one of its superclass slots. An anonymous
// source matches when its signature set covers the target's.
func (r *Resolver) structuralMatch(v Type, target *AnonType) (bool, error) {
	switch source := v.(type) {
	case *AnonType:
		for _, need := range target.Sigs {
			if !hasSig(source.Sigs, need) {
				return false, nil
			}
		}
		return true, nil
	case *ClassType:
		for _, need := range target.Sigs {
			if !r.classDefinesSig(source.Class, need) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown type form %T", ErrTypeSystemInvariant, v)
	}
}

func hasSig(sigs []MethodSig, need MethodSig) bool {
	for _, s := range sigs {
		if s.String() == need.String() {
			return true
		}
	}
	return false
}

func (r *Resolver) classDefinesSig(c *Class, need MethodSig) bool {
	for _, s := range c.Slots() {
		for _, m := range s.Class.Methods {
			if m.Name == need.Name && r.sigMatches(m, need) {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) sigMatches(m *Method, need MethodSig) bool {
	if len(m.Params) != len(need.Params) {
		return false
	}
	for i, p := range m.Params {
		if p.Type == nil || p.Type.String() != need.Params[i] {
			return false
		}
	}
	result := ""
	if m.Result != nil {
		result = m.Result.String()
	}
	return result == need.Result
}
