package jithelpers

import (
	"testing"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func newThread(t *testing.T) *interp.VmThread {
	t.Helper()
	return interp.NewThread(nil)
}

func TestGetSetPropConstRecordsIC(t *testing.T) {
	th := newThread(t)
	objVal := th.Heap.NewObject(th.Graph, nil)
	key := jsobject.StringKey(jsvalue.Intern("x"))
	fn := &bytecode.Function{Feedback: []bytecode.FeedbackSlot{{}}}

	setRes := SetPropConst(th, objVal.ToJitBits(), jsvalue.Number(42).ToJitBits(), key)
	if setRes.Bailout {
		t.Fatalf("unexpected bailout")
	}

	getRes := GetPropConst(th, th.Graph, fn, 0, objVal.ToJitBits(), key)
	if getRes.Bailout {
		t.Fatalf("unexpected bailout")
	}
	n, ok := fromBits(getRes.Bits).AsNumber()
	if !ok || n != 42 {
		t.Fatalf("want 42, got %v (ok=%v)", n, ok)
	}
	if fn.Feedback[0].IC.State != jsobject.ICMonomorphic {
		t.Fatalf("want Monomorphic IC, got %v", fn.Feedback[0].IC.State)
	}
}

func TestCallFunction(t *testing.T) {
	th := newThread(t)
	native := th.Heap.NewClosure(&interp.Closure{
		Native: func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
			a, _ := args[0].AsNumber()
			b, _ := args[1].AsNumber()
			return jsvalue.Number(a + b), nil
		},
	})

	res := CallFunction(th, native.ToJitBits(), jsvalue.Undefined.ToJitBits(), []uint64{
		jsvalue.Number(2).ToJitBits(), jsvalue.Number(3).ToJitBits(),
	})
	if res.Bailout {
		t.Fatalf("unexpected bailout")
	}
	n, ok := fromBits(res.Bits).AsNumber()
	if !ok || n != 5 {
		t.Fatalf("want 5, got %v", n)
	}
}

func TestGenericAddStringAndNumber(t *testing.T) {
	th := newThread(t)

	numRes := GenericAdd(th, jsvalue.Number(1).ToJitBits(), jsvalue.Number(2).ToJitBits())
	if n, _ := fromBits(numRes.Bits).AsNumber(); n != 3 {
		t.Fatalf("want 3, got %v", n)
	}

	strVal := th.StringValue("a")
	mixed := GenericAdd(th, strVal.ToJitBits(), jsvalue.Number(1).ToJitBits())
	s, ok := th.Heap.String(fromBits(mixed.Bits))
	if !ok || s.String() != "a1" {
		t.Fatalf("want \"a1\", got %v (ok=%v)", s, ok)
	}
}

func TestInstanceOfAndIn(t *testing.T) {
	th := newThread(t)
	proto := th.Heap.NewObject(th.Graph, nil)
	protoObj, _ := th.Heap.Object(proto)

	ctor := th.Heap.NewClosure(&interp.Closure{Statics: func() *jsobject.Object {
		st := th.Heap.NewObject(th.Graph, nil)
		o, _ := th.Heap.Object(st)
		_ = jsobject.DefineProperty(o, jsobject.StringKey(jsvalue.Intern("prototype")), jsobject.PropertyDescriptor{Value: proto})
		return o
	}()})

	instance := th.Heap.NewObject(th.Graph, protoObj)
	res := InstanceOf(th, instance.ToJitBits(), ctor.ToJitBits())
	if b, _ := fromBits(res.Bits).AsBoolean(); !b {
		t.Fatalf("expected instance to be an instanceof ctor")
	}

	key := jsobject.StringKey(jsvalue.Intern("x"))
	th.SetProperty(instance, key, jsvalue.Number(1))
	inRes := In(th, key, instance.ToJitBits())
	if b, _ := fromBits(inRes.Bits).AsBoolean(); !b {
		t.Fatalf("expected key to be 'in' instance")
	}
}

func TestSpreadOverArray(t *testing.T) {
	th := newThread(t)
	arrVal := th.Heap.NewArray(th.Graph, nil)
	arr, _ := th.Heap.Object(arrVal)
	arr.AppendElement(jsvalue.Number(1))
	arr.AppendElement(jsvalue.Number(2))
	arr.AppendElement(jsvalue.Number(3))

	out := Spread(th, arrVal.ToJitBits())
	if len(out) != 3 {
		t.Fatalf("want 3 elements, got %d", len(out))
	}
	sum := 0.0
	for _, raw := range out {
		n, _ := fromBits(raw).AsNumber()
		sum += n
	}
	if sum != 6 {
		t.Fatalf("want sum 6, got %v", sum)
	}
}

func TestToNumberToString(t *testing.T) {
	th := newThread(t)
	n := ToNumber(th, th.StringValue("3.5").ToJitBits())
	if v, _ := fromBits(n.Bits).AsNumber(); v != 3.5 {
		t.Fatalf("want 3.5, got %v", v)
	}
	s := ToStringHelper(th, jsvalue.Number(7).ToJitBits())
	str, ok := th.Heap.String(fromBits(s.Bits))
	if !ok || str.String() != "7" {
		t.Fatalf("want \"7\", got %v", str)
	}
}

func TestGenericArithmeticFamily(t *testing.T) {
	th := newThread(t)
	bits := func(n float64) uint64 { return jsvalue.Number(n).ToJitBits() }
	check := func(name string, r Result, want float64) {
		t.Helper()
		if r.Bailout {
			t.Fatalf("%s: unexpected bailout", name)
		}
		n, ok := fromBits(r.Bits).AsNumber()
		if !ok || n != want {
			t.Fatalf("%s: want %v, got %v (ok=%v)", name, want, n, ok)
		}
	}
	check("sub", GenericSub(th, bits(7), bits(2)), 5)
	check("mul", GenericMul(th, bits(6), bits(7)), 42)
	check("div", GenericDiv(th, bits(9), bits(2)), 4.5)
	check("mod", GenericMod(th, bits(9), bits(4)), 1)
	check("and", GenericBitwiseOp(th, bytecode.OpBitAnd, bits(6), bits(3)), 2)
	check("ushr", GenericBitwiseOp(th, bytecode.OpUshr, bits(-1), bits(28)), 15)
}

func TestGenericCompareFamily(t *testing.T) {
	th := newThread(t)
	bits := func(n float64) uint64 { return jsvalue.Number(n).ToJitBits() }
	truthy := func(name string, r Result, want bool) {
		t.Helper()
		if r.Bailout {
			t.Fatalf("%s: unexpected bailout", name)
		}
		b, ok := fromBits(r.Bits).AsBoolean()
		if !ok || b != want {
			t.Fatalf("%s: want %v, got %v (ok=%v)", name, want, b, ok)
		}
	}
	truthy("lt", GenericCompare(th, bytecode.OpLt, bits(1), bits(2)), true)
	truthy("ge", GenericCompare(th, bytecode.OpGe, bits(2), bits(2)), true)
	truthy("eq nan", GenericCompare(th, bytecode.OpEq, jsvalue.NaN.ToJitBits(), jsvalue.NaN.ToJitBits()), false)
	truthy("strict ne", GenericCompare(th, bytecode.OpStrictNe, bits(1), bits(2)), true)
}

func TestConstructHelper(t *testing.T) {
	th := newThread(t)
	ctor := th.Heap.NewClosure(&interp.Closure{
		Native: func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
			t.SetProperty(this, jsobject.StringKey(jsvalue.Intern("tag")), jsvalue.Number(7))
			return jsvalue.Undefined, nil
		},
	})
	r := Construct(th, ctor.ToJitBits(), nil)
	if r.Bailout {
		t.Fatalf("unexpected bailout")
	}
	tag := th.GetProperty(fromBits(r.Bits), jsobject.StringKey(jsvalue.Intern("tag")))
	n, ok := tag.AsNumber()
	if !ok || n != 7 {
		t.Fatalf("want 7, got %v (ok=%v)", n, ok)
	}
}

func TestUpvalueHelpers(t *testing.T) {
	th := newThread(t)
	cl := &interp.Closure{Upvalues: []*interp.UpvalueCell{{Value: jsvalue.Number(3)}}}
	clVal := th.Heap.NewClosure(cl)

	if r := SetUpvalue(th, clVal.ToJitBits(), 0, jsvalue.Number(9).ToJitBits()); r.Bailout {
		t.Fatalf("set: unexpected bailout")
	}
	r := GetUpvalue(th, clVal.ToJitBits(), 0)
	if r.Bailout {
		t.Fatalf("get: unexpected bailout")
	}
	if n, ok := fromBits(r.Bits).AsNumber(); !ok || n != 9 {
		t.Fatalf("want 9, got %v (ok=%v)", n, ok)
	}
	if r := GetUpvalue(th, clVal.ToJitBits(), 5); !r.Bailout {
		t.Fatalf("out-of-range upvalue should bail")
	}
}
