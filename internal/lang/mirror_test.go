package lang

import (
	"errors"
	"testing"
)

func TestClassOfSharesDeclarationIdentity(t *testing.T) {
	reg, _, _, mirror := newWorld()
	_, dog := animalDog(t, reg)

	cv1, err := mirror.ClassOf("Dog")
	if err != nil {
		t.Fatalf("ClassOf(Dog) failed: %v", err)
	}
	cv2, err := mirror.ClassOf("Dog")
	if err != nil {
		t.Fatalf("ClassOf(Dog) failed: %v", err)
	}
	if cv1.C != dog || cv2.C != dog {
		t.Errorf("class meta-objects must wrap the registered declaration itself")
	}
	if !Equal(cv1, cv2) {
		t.Errorf("two views of the same class must compare equal")
	}

	if _, err := mirror.ClassOf("Ghost"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("ClassOf(Ghost) = %v, want ErrUnknownMember", err)
	}
}

func TestClassOfValueMapsPrimitives(t *testing.T) {
	reg, res, model, mirror := newWorld()
	_, dog := animalDog(t, reg)
	dogType := mustResolve(t, res, dog, nil)
	obj := mustInstantiate(t, model, dogType)

	if cv := mirror.ClassOfValue(intVal(1)); cv.C.Name != "Int" {
		t.Errorf("ClassOfValue(1) = %s, want Int", cv.C.Name)
	}
	if cv := mirror.ClassOfValue(obj); cv.C != dog {
		t.Errorf("ClassOfValue(object) must be its declared class")
	}
	if cv := mirror.ClassOfValue(&ClassValue{C: dog}); cv.C.Name != "Class" {
		t.Errorf("a class meta-object is itself an instance of Class")
	}
}

func TestMethodMetaObjectSharesDeclaration(t *testing.T) {
	reg, _, _, mirror := newWorld()
	animal, _ := animalDog(t, reg)
	cv, _ := mirror.ClassOf("Dog")

	mv, err := mirror.MethodOf(cv, "speak")
	if err != nil {
		t.Fatalf("MethodOf(Dog, speak) failed: %v", err)
	}
	if mv.C != animal || mv.M != animal.Method("speak") {
		t.Errorf("method meta-object must share identity with the declaring class's declaration")
	}
	if mv.IsAbstract() {
		t.Errorf("speak has a body")
	}

	if fv, err := mirror.FieldOf(cv, "speak"); err == nil || fv != nil {
		t.Errorf("FieldOf(Dog, speak) must fail: speak is a method")
	}
}

func TestFieldsOfAndMethodsOfOrder(t *testing.T) {
	reg, _, _, mirror := newWorld()
	c := &Class{
		Name:      "Rec",
		Constants: []*ConstField{{Name: "cap", Type: intRef(reg)}},
		Fields: []*InstanceField{
			{Name: "a", Type: intRef(reg)},
			{Name: "b", Type: intRef(reg), Mutable: true},
		},
		Methods: []*Method{
			{Name: "first", HasBody: true},
			{Name: "second", HasBody: true},
		},
	}
	mustRegister(t, reg, c)
	cv, _ := mirror.ClassOf("Rec")

	fields := mirror.FieldsOf(cv)
	if len(fields) != 3 {
		t.Fatalf("FieldsOf(Rec) returned %d entries, want 3", len(fields))
	}
	wantNames := []string{"cap", "a", "b"}
	wantConst := []bool{true, true, false}
	for i, fv := range fields {
		if fv.Name() != wantNames[i] {
			t.Errorf("fields[%d] = %s, want %s", i, fv.Name(), wantNames[i])
		}
		if fv.IsConst() != wantConst[i] {
			t.Errorf("fields[%d].IsConst() = %t, want %t", i, fv.IsConst(), wantConst[i])
		}
	}

	methods := mirror.MethodsOf(cv)
	if len(methods) != 2 || methods[0].M.Name != "first" || methods[1].M.Name != "second" {
		t.Errorf("MethodsOf(Rec) must preserve declaration order")
	}
}

func TestReflectiveGetSkipsDeref(t *testing.T) {
	reg, res, model, mirror := newWorld()

	ref := &Class{
		Name:       "Box",
		Fields:     []*InstanceField{{Name: "inner", Type: intRef(reg), Mutable: true}},
		DerefField: "inner",
		Methods: []*Method{{
			Name: "new", IsCtor: true, HasBody: true,
			Params: []Param{{Name: "v", Type: intRef(reg)}},
			Body:   []CtorStmt{&SetField{Field: "inner", Arg: ParamOperand{Index: 0}}},
		}},
	}
	holder := &Class{
		Name:   "Cell",
		Fields: []*InstanceField{{Name: "box", Type: &TypeRef{Class: ref}, Mutable: true}},
		Methods: []*Method{{
			Name: "new", IsCtor: true, HasBody: true,
			Params: []Param{{Name: "b", Type: &TypeRef{Class: ref}}},
			Body:   []CtorStmt{&SetField{Field: "box", Arg: ParamOperand{Index: 0}}},
		}},
	}
	mustRegister(t, reg, ref, holder)

	proxy := mustInstantiate(t, model, mustResolve(t, res, ref, nil), intVal(42))
	obj := mustInstantiate(t, model, mustResolve(t, res, holder, nil), proxy)

	cv, _ := mirror.ClassOf("Cell")
	fv, err := mirror.FieldOf(cv, "box")
	if err != nil {
		t.Fatalf("FieldOf(Cell, box) failed: %v", err)
	}

	raw, err := fv.Get(mirror, obj)
	if err != nil {
		t.Fatalf("FieldValue.Get failed: %v", err)
	}
	if raw != Value(proxy) {
		t.Errorf("reflective Get must return the stored proxy, not dereference it")
	}
	ordinary, _ := model.GetField(obj, "box", nil)
	if !Equal(ordinary, intVal(42)) {
		t.Errorf("ordinary access must dereference: got %s", ordinary.Inspect())
	}
}

func TestReflectiveGetReadsConstants(t *testing.T) {
	reg, res, model, mirror := newWorld()
	buf := buffer(t, reg)
	block := &Class{Name: "Block", Parents: []*ParentEdge{
		{Class: buf, Args: []ConstArg{{Name: "size", Value: intVal(3)}}},
	}}
	mustRegister(t, reg, block)
	obj := mustInstantiate(t, model, mustResolve(t, res, block, nil))

	cv, _ := mirror.ClassOf("Block")
	fv, err := mirror.FieldOf(cv, "size")
	if err != nil {
		t.Fatalf("FieldOf(Block, size) failed: %v", err)
	}
	if fv.C != buf || fv.K == nil {
		t.Errorf("size must resolve to Buffer's constant declaration")
	}
	v, err := fv.Get(mirror, obj)
	if err != nil {
		t.Fatalf("Get(size) failed: %v", err)
	}
	if !Equal(v, intVal(3)) {
		t.Errorf("size = %s, want 3 composed down the edge", v.Inspect())
	}
}

func TestReflectiveSetHonorsConstGate(t *testing.T) {
	reg, res, model, mirror := newWorld()
	point := &Class{
		Name: "Spot",
		Fields: []*InstanceField{
			{Name: "x", Type: intRef(reg), Mutable: true},
			{Name: "y", Type: intRef(reg)},
		},
		Methods: []*Method{{
			Name: "new", IsCtor: true, HasBody: true,
			Body: []CtorStmt{
				&SetField{Field: "x", Arg: ValueOperand{Value: intVal(0)}},
				&SetField{Field: "y", Arg: ValueOperand{Value: intVal(0)}},
			},
		}},
	}
	mustRegister(t, reg, point)
	obj := mustInstantiate(t, model, mustResolve(t, res, point, nil))
	cv, _ := mirror.ClassOf("Spot")

	fx, _ := mirror.FieldOf(cv, "x")
	if err := fx.Set(mirror, obj, intVal(5)); err != nil {
		t.Fatalf("Set(mutable x) failed: %v", err)
	}
	got, _ := fx.Get(mirror, obj)
	if !Equal(got, intVal(5)) {
		t.Errorf("x = %s after reflective write, want 5", got.Inspect())
	}

	fy, _ := mirror.FieldOf(cv, "y")
	if err := fy.Set(mirror, obj, intVal(5)); !errors.Is(err, ErrConstFieldNotMutable) {
		t.Errorf("Set(non-mutable y) = %v, want ErrConstFieldNotMutable", err)
	}
}

func TestReflectiveAccessAmbiguousOnRepeatedSuperclass(t *testing.T) {
	reg, res, model, mirror := newWorld()
	a, _, _, d := diamond(t, reg)
	obj := mustInstantiate(t, model, mustResolve(t, res, d, nil), intVal(1), intVal(2))

	fv := &FieldValue{C: a, F: a.Field("v")}
	if _, err := fv.Get(mirror, obj); !errors.Is(err, ErrAmbiguousMember) {
		t.Errorf("Get(v) on a diamond = %v, want ErrAmbiguousMember", err)
	}
}

func TestAddMethodChangesAbstractnessAndAssignability(t *testing.T) {
	reg, res, model, mirror := newWorld()
	duck := &Class{Name: "Duck", Methods: []*Method{{Name: "walk", HasBody: true}}}
	mustRegister(t, reg, duck)
	duckType := mustResolve(t, res, duck, nil)
	cv, _ := mirror.ClassOf("Duck")

	quacker := res.ResolveAnonymous([]MethodSig{{Name: "quack"}})
	if ok, _ := res.IsAssignable(duckType, quacker); ok {
		t.Fatalf("Duck does not quack yet")
	}

	if err := mirror.AddMethod(cv, &Method{Name: "quack", HasBody: true}); err != nil {
		t.Fatalf("AddMethod(quack) failed: %v", err)
	}
	// The memoized negative answer must have been dropped with the mutation.
	if ok, _ := res.IsAssignable(duckType, quacker); !ok {
		t.Errorf("Duck quacks now; stale memo entry survived the mutation")
	}

	if err := mirror.AddMethod(cv, &Method{Name: "dive", HasBody: false}); err != nil {
		t.Fatalf("AddMethod(dive) failed: %v", err)
	}
	if !reg.IsAbstract(duck) {
		t.Errorf("adding a bodyless method must make Duck abstract")
	}
	if _, err := model.Instantiate(duckType, nil); !errors.Is(err, ErrCannotInstantiateAbstract) {
		t.Errorf("Instantiate(now-abstract Duck) = %v, want ErrCannotInstantiateAbstract", err)
	}
}

func TestAddFieldVisibleToNewInstances(t *testing.T) {
	reg, res, model, mirror := newWorld()
	plain := &Class{Name: "Plain"}
	mustRegister(t, reg, plain)
	cv, _ := mirror.ClassOf("Plain")

	if err := mirror.AddField(cv, &InstanceField{Name: "tag", Type: intRef(reg), Mutable: true}); err != nil {
		t.Fatalf("AddField(tag) failed: %v", err)
	}

	// The field participates in constructor completeness: an instance now
	// needs a constructor that assigns it.
	if _, err := model.Instantiate(mustResolve(t, res, plain, nil), nil); !errors.Is(err, ErrUninitializedField) {
		t.Errorf("Instantiate(Plain) = %v, want ErrUninitializedField for the added field", err)
	}
}
