package lang

import "errors"

// Validation-tier errors: detected once, at registration or resolution time.
// They are terminal for the offending declaration and must reach the caller
// as compiler diagnostics.
var (
	ErrCyclicInheritance     = errors.New("cyclic inheritance")
	ErrDuplicateDirectParent = errors.New("duplicate direct parent")
	ErrAmbiguousMember       = errors.New("ambiguous member")
	ErrMalformedBinding      = errors.New("malformed constant-field binding")
	ErrParentNotInitialized  = errors.New("parent constructor not invoked")
	ErrUnknownMember         = errors.New("unknown member")
	ErrRedeclaredClass       = errors.New("class already registered")
)

// Runtime-shaped errors. The first three are ordinary failure signals a
// backend may report as language-level errors. ErrTypeSystemInvariant means
// the registry/resolver's own invariants were violated: metadata is
// miscompiled or corrupted, and the failure must never be swallowed.
var (
	ErrCannotInstantiateAbstract = errors.New("cannot instantiate abstract class")
	ErrUninitializedField        = errors.New("field read before initialization")
	ErrConstFieldNotMutable      = errors.New("const field is not mutable")
	ErrTypeSystemInvariant       = errors.New("type system invariant violation")
)
