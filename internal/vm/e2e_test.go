package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// The tests in this file are the end-to-end scenarios from the design
// document, expressed as hand-assembled bytecode modules (the
// ECMAScript front end is an external collaborator, so the source
// forms appear only as comments).

func str(p *bytecode.Pool, s string) uint32 {
	return p.Add(bytecode.Constant{Kind: bytecode.ConstString, String: s})
}

func runEntry(t *testing.T, vc *VmContext, mod *bytecode.Module) jsvalue.Value {
	t.Helper()
	result, err := vc.RunModule(context.Background(), mod)
	require.NoError(t, err)
	return result
}

func requireNumber(t *testing.T, v jsvalue.Value, want float64) {
	t.Helper()
	n, ok := v.AsNumber()
	require.True(t, ok, "expected a number, got kind %v", v.Kind())
	require.Equal(t, want, n)
}

// fibModule assembles:
//
//	function fib(n){ return n < 2 ? n : fib(n-1) + fib(n-2) }
//	fib(10)
func fibModule() *bytecode.Module {
	var pool bytecode.Pool
	fibName := str(&pool, "fib")

	entry := &bytecode.Function{
		RegisterCount: 4,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpClosure, Dst: 0, ConstIdx: 1},
			{Op: bytecode.OpDeclareGlobalVar, ConstIdx: fibName},
			{Op: bytecode.OpSetGlobal, Src1: 0, ConstIdx: fibName},
			{Op: bytecode.OpGetGlobal, Dst: 1, ConstIdx: fibName, ICIndex: bytecode.NoFeedback},
			{Op: bytecode.OpLoadInt8, Dst: 2, JumpDelta: 10},
			{Op: bytecode.OpCall, Dst: 3, Src1: 1, Src2: 2, Argc: 1},
			{Op: bytecode.OpReturn, Src1: 3},
		},
	}

	fib := &bytecode.Function{
		Name:          fibName,
		ParamCount:    1,
		LocalCount:    1,
		RegisterCount: 11,
		Feedback:      make([]bytecode.FeedbackSlot, 3),
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpGetLocal, Dst: 0, Src1: 0},
			{Op: bytecode.OpLoadInt8, Dst: 1, JumpDelta: 2},
			{Op: bytecode.OpLt, Dst: 2, Src1: 0, Src2: 1},
			{Op: bytecode.OpJumpIfFalse, Src1: 2, JumpDelta: 2}, // -> pc 5
			{Op: bytecode.OpReturn, Src1: 0},
			{Op: bytecode.OpGetGlobal, Dst: 3, ConstIdx: fibName, ICIndex: 0},
			{Op: bytecode.OpLoadInt8, Dst: 4, JumpDelta: 1},
			{Op: bytecode.OpSub, Dst: 6, Src1: 0, Src2: 4, ICIndex: 1},
			{Op: bytecode.OpCall, Dst: 7, Src1: 3, Src2: 6, Argc: 1},
			{Op: bytecode.OpGetGlobal, Dst: 8, ConstIdx: fibName, ICIndex: 0},
			{Op: bytecode.OpLoadInt8, Dst: 4, JumpDelta: 2},
			{Op: bytecode.OpSub, Dst: 6, Src1: 0, Src2: 4, ICIndex: 1},
			{Op: bytecode.OpCall, Dst: 9, Src1: 8, Src2: 6, Argc: 1},
			{Op: bytecode.OpAdd, Dst: 10, Src1: 7, Src2: 9, ICIndex: 2},
			{Op: bytecode.OpReturn, Src1: 10},
		},
	}

	return &bytecode.Module{Constants: pool, Functions: []*bytecode.Function{entry, fib}}
}

func TestE2E_FibRecursion(t *testing.T) {
	vc := New(Config{}) // JIT enabled: warmup must not change results
	defer vc.Close()

	mod := fibModule()
	for i := 0; i < 10; i++ {
		requireNumber(t, runEntry(t, vc, mod), 55)
	}

	// The recursive call site's GetGlobal IC observed the (stable)
	// global-object shape on every recursive call.
	ic := &mod.Functions[1].Feedback[0].IC
	require.Equal(t, jsobject.ICMonomorphic, ic.State)
}

// polymorphicModule assembles the shape-polymorphism scenario:
//
//	var xs = [{x:1}, {y:2,x:3}, {x:1}, {y:2,x:3}];
//	var s = 0; for (var o of xs) s += o.x; s
func polymorphicModule() *bytecode.Module {
	var pool bytecode.Pool
	x := str(&pool, "x")
	y := str(&pool, "y")

	entry := &bytecode.Function{
		RegisterCount: 18,
		Feedback:      make([]bytecode.FeedbackSlot, 1),
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpNewObject, Dst: 0},
			{Op: bytecode.OpLoadInt8, Dst: 1, JumpDelta: 1},
			{Op: bytecode.OpSetPropConst, Dst: 0, Src1: 1, ConstIdx: x},
			{Op: bytecode.OpNewObject, Dst: 2},
			{Op: bytecode.OpLoadInt8, Dst: 3, JumpDelta: 2},
			{Op: bytecode.OpSetPropConst, Dst: 2, Src1: 3, ConstIdx: y},
			{Op: bytecode.OpLoadInt8, Dst: 3, JumpDelta: 3},
			{Op: bytecode.OpSetPropConst, Dst: 2, Src1: 3, ConstIdx: x},
			{Op: bytecode.OpNewObject, Dst: 4},
			{Op: bytecode.OpLoadInt8, Dst: 5, JumpDelta: 1},
			{Op: bytecode.OpSetPropConst, Dst: 4, Src1: 5, ConstIdx: x},
			{Op: bytecode.OpNewObject, Dst: 6},
			{Op: bytecode.OpLoadInt8, Dst: 7, JumpDelta: 2},
			{Op: bytecode.OpSetPropConst, Dst: 6, Src1: 7, ConstIdx: y},
			{Op: bytecode.OpLoadInt8, Dst: 7, JumpDelta: 3},
			{Op: bytecode.OpSetPropConst, Dst: 6, Src1: 7, ConstIdx: x},
			{Op: bytecode.OpDup, Dst: 8, Src1: 0},
			{Op: bytecode.OpDup, Dst: 9, Src1: 2},
			{Op: bytecode.OpDup, Dst: 10, Src1: 4},
			{Op: bytecode.OpDup, Dst: 11, Src1: 6},
			{Op: bytecode.OpNewArray, Dst: 12, Src1: 8, Argc: 4},
			{Op: bytecode.OpGetIterator, Dst: 13, Src1: 12},
			{Op: bytecode.OpLoadInt8, Dst: 14, JumpDelta: 0},
			// loop: pc 23
			{Op: bytecode.OpIteratorNext, Dst: 15, Src1: 13, Src2: 16},
			{Op: bytecode.OpJumpIfTrue, Src1: 16, JumpDelta: 4}, // done -> pc 28
			{Op: bytecode.OpGetPropConst, Dst: 17, Src1: 15, ConstIdx: x, ICIndex: 0},
			{Op: bytecode.OpAdd, Dst: 14, Src1: 14, Src2: 17, ICIndex: bytecode.NoFeedback},
			{Op: bytecode.OpJump, JumpDelta: -4}, // -> pc 23
			{Op: bytecode.OpReturn, Src1: 14},
		},
	}

	return &bytecode.Module{Constants: pool, Functions: []*bytecode.Function{entry}}
}

func TestE2E_PropertyICPolymorphism(t *testing.T) {
	vc := New(Config{DisableJIT: true})
	defer vc.Close()

	mod := polymorphicModule()
	requireNumber(t, runEntry(t, vc, mod), 8)

	// Two distinct shapes flowed through the o.x site.
	ic := &mod.Functions[0].Feedback[0].IC
	require.Equal(t, jsobject.ICPolymorphic, ic.State)
	require.Len(t, ic.Entries, 2)

	// IC invariance: a second run through the warmed (polymorphic)
	// cache yields the same value.
	requireNumber(t, runEntry(t, vc, mod), 8)
}

func TestE2E_TryCatchThrownObject(t *testing.T) {
	// try { throw {code:42}; } catch (e) { e.code }
	var pool bytecode.Pool
	code := str(&pool, "code")
	entry := &bytecode.Function{
		RegisterCount: 4,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpTryStart, JumpDelta: 5}, // catch at pc 6
			{Op: bytecode.OpNewObject, Dst: 0},
			{Op: bytecode.OpLoadInt8, Dst: 1, JumpDelta: 42},
			{Op: bytecode.OpSetPropConst, Dst: 0, Src1: 1, ConstIdx: code},
			{Op: bytecode.OpThrow, Src1: 0},
			{Op: bytecode.OpTryEnd},
			{Op: bytecode.OpCatch, Dst: 2},
			{Op: bytecode.OpGetPropConst, Dst: 3, Src1: 2, ConstIdx: code, ICIndex: bytecode.NoFeedback},
			{Op: bytecode.OpReturn, Src1: 3},
		},
	}
	mod := &bytecode.Module{Constants: pool, Functions: []*bytecode.Function{entry}}

	vc := New(Config{DisableJIT: true})
	defer vc.Close()
	requireNumber(t, runEntry(t, vc, mod), 42)
}

func TestE2E_PromiseMicrotask(t *testing.T) {
	// var r; Promise.resolve(7).then(v => { r = v }); r is read only
	// after the script turn's microtask drain.
	var pool bytecode.Pool
	promiseName := str(&pool, "Promise")
	rName := str(&pool, "r")
	resolveName := str(&pool, "resolve")
	thenName := str(&pool, "then")

	entry := &bytecode.Function{
		RegisterCount: 5,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpDeclareGlobalVar, ConstIdx: rName},
			{Op: bytecode.OpLoadInt8, Dst: 1, JumpDelta: 7},
			{Op: bytecode.OpGetGlobal, Dst: 0, ConstIdx: promiseName, ICIndex: bytecode.NoFeedback},
			{Op: bytecode.OpCallMethod, Dst: 2, Src1: 0, ConstIdx: resolveName, Src2: 1, Argc: 1},
			{Op: bytecode.OpClosure, Dst: 3, ConstIdx: 1},
			{Op: bytecode.OpCallMethod, Dst: 4, Src1: 2, ConstIdx: thenName, Src2: 3, Argc: 1},
			{Op: bytecode.OpReturnUndefined},
		},
	}
	reaction := &bytecode.Function{
		ParamCount:    1,
		LocalCount:    1,
		RegisterCount: 1,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpGetLocal, Dst: 0, Src1: 0},
			{Op: bytecode.OpSetGlobal, Src1: 0, ConstIdx: rName},
			{Op: bytecode.OpReturnUndefined},
		},
	}
	mod := &bytecode.Module{Constants: pool, Functions: []*bytecode.Function{entry, reaction}}

	vc := New(Config{DisableJIT: true})
	defer vc.Close()
	runEntry(t, vc, mod)

	r := vc.Thread.GetProperty(vc.Thread.GlobalValue, jsobject.StringKey(jsvalue.Intern("r")))
	requireNumber(t, r, 7)
}

func TestE2E_SpreadCall(t *testing.T) {
	// Math.max(...[3,1,4,1,5,9,2,6])
	var pool bytecode.Pool
	mathName := str(&pool, "Math")
	maxName := str(&pool, "max")

	elems := []int32{3, 1, 4, 1, 5, 9, 2, 6}
	ins := make([]bytecode.Instruction, 0, 16)
	for i, n := range elems {
		ins = append(ins, bytecode.Instruction{Op: bytecode.OpLoadInt8, Dst: bytecode.Register(i), JumpDelta: n})
	}
	ins = append(ins,
		bytecode.Instruction{Op: bytecode.OpNewArray, Dst: 8, Src1: 0, Argc: 8},
		bytecode.Instruction{Op: bytecode.OpGetGlobal, Dst: 9, ConstIdx: mathName, ICIndex: bytecode.NoFeedback},
		bytecode.Instruction{Op: bytecode.OpGetPropConst, Dst: 10, Src1: 9, ConstIdx: maxName, ICIndex: bytecode.NoFeedback},
		bytecode.Instruction{Op: bytecode.OpDup, Dst: 11, Src1: 8},
		bytecode.Instruction{Op: bytecode.OpCallSpread, Dst: 12, Src1: 10, Src2: 11, Argc: 1},
		bytecode.Instruction{Op: bytecode.OpReturn, Src1: 12},
	)
	entry := &bytecode.Function{RegisterCount: 13, Instructions: ins}
	mod := &bytecode.Module{Constants: pool, Functions: []*bytecode.Function{entry}}

	vc := New(Config{DisableJIT: true})
	defer vc.Close()
	requireNumber(t, runEntry(t, vc, mod), 9)
}
