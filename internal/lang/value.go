// Package lang implements the runtime object/type/class model: the class
// registry, type resolution and assignability, object allocation with
// constructor dispatch, and the reflective views that expose declarations as
// ordinary values.
package lang

import (
	"fmt"
	"hash/fnv"
)

type ValueKind string

const (
	INTEGER_VAL ValueKind = "INTEGER"
	BOOLEAN_VAL ValueKind = "BOOLEAN"
	STRING_VAL  ValueKind = "STRING"
	NIL_VAL     ValueKind = "NIL"
	OBJECT_VAL  ValueKind = "OBJECT"

	// Meta-values: declarations exposed as values. They share the Value
	// representation with plain objects so reflective operations are
	// ordinary methods, not intrinsics.
	CLASS_VAL  ValueKind = "CLASS"
	METHOD_VAL ValueKind = "METHOD"
	FIELD_VAL  ValueKind = "FIELD"
)

// Value is any runtime datum: a primitive, an object reference, or a
// class/method/field meta-reference.
type Value interface {
	Kind() ValueKind
	Inspect() string
	Hash() uint32
}

type Integer struct {
	Value int64
}

func (i *Integer) Kind() ValueKind { return INTEGER_VAL }
func (i *Integer) Inspect() string { return fmt.Sprintf("%d", i.Value) }
func (i *Integer) Hash() uint32    { return uint32(i.Value) ^ uint32(i.Value>>32) }

type Boolean struct {
	Value bool
}

func (b *Boolean) Kind() ValueKind { return BOOLEAN_VAL }
func (b *Boolean) Inspect() string { return fmt.Sprintf("%t", b.Value) }
func (b *Boolean) Hash() uint32 {
	if b.Value {
		return 1
	}
	return 0
}

type String struct {
	Value string
}

func (s *String) Kind() ValueKind { return STRING_VAL }
func (s *String) Inspect() string { return s.Value }
func (s *String) Hash() uint32    { return hashString(s.Value) }

type Nil struct{}

func (n *Nil) Kind() ValueKind { return NIL_VAL }
func (n *Nil) Inspect() string { return "nil" }
func (n *Nil) Hash() uint32    { return 0 }

// nilValue is the shared nil instance.
var nilValue = &Nil{}

// Equal reports value equality: primitives compare by value, objects and
// meta-values by identity.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Integer:
		return av.Value == b.(*Integer).Value
	case *Boolean:
		return av.Value == b.(*Boolean).Value
	case *String:
		return av.Value == b.(*String).Value
	case *Nil:
		return true
	case *ClassValue:
		return av.C == b.(*ClassValue).C
	case *MethodValue:
		bv := b.(*MethodValue)
		return av.C == bv.C && av.M == bv.M
	case *FieldValue:
		bv := b.(*FieldValue)
		return av.C == bv.C && av.F == bv.F && av.K == bv.K
	default:
		return a == b
	}
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
