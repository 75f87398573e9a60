package interp

import (
	"math"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// run executes frame's bytecode to completion (return, uncaught
// throw, or suspension) and yields the return value. A throw inside
// an active OpTryStart region re-enters the dispatch loop at the
// recorded catch pc with the thrown value bound to the OpCatch
// instruction's register; a throw with no handler propagates to the
// caller (and ultimately to Call's recoverException).
func (t *VmThread) run(frame *Frame) jsvalue.Value {
	for {
		v, done := t.dispatchGuarded(frame)
		if done {
			return v
		}
	}
}

// dispatchGuarded runs the dispatch loop under a recover that
// implements spec.md section 4.E's error unwinding: pop the
// innermost try handler, jump to its catch pc, bind the thrown value.
// done is false when a handled throw interrupted dispatch and the
// caller should re-enter at the updated pc.
func (t *VmThread) dispatchGuarded(frame *Frame) (v jsvalue.Value, done bool) {
	defer func() {
		if r := recover(); r != nil {
			exc, ok := r.(ThrownValue)
			if !ok || len(frame.tryStack) == 0 {
				panic(r)
			}
			h := frame.tryStack[len(frame.tryStack)-1]
			frame.tryStack = frame.tryStack[:len(frame.tryStack)-1]
			frame.pc = h.catchPC
			if body := frame.fn.Instructions; h.catchPC < len(body) && body[h.catchPC].Op == bytecode.OpCatch {
				frame.set(body[h.catchPC].Dst, exc.Value)
			}
		}
	}()
	return t.dispatch(frame), true
}

func (t *VmThread) dispatch(frame *Frame) jsvalue.Value {
	fn := frame.fn
	mod := frame.closure.Module
	body := fn.Instructions

	t.safePoint() // function entry, spec.md section 5's check points

	for frame.pc < len(body) {
		ins := body[frame.pc]
		switch ins.Op {

		// --- Constants ---
		case bytecode.OpLoadUndefined:
			frame.set(ins.Dst, jsvalue.Undefined)
		case bytecode.OpLoadNull:
			frame.set(ins.Dst, jsvalue.Null)
		case bytecode.OpLoadTrue:
			frame.set(ins.Dst, jsvalue.True)
		case bytecode.OpLoadFalse:
			frame.set(ins.Dst, jsvalue.False)
		case bytecode.OpLoadInt8, bytecode.OpLoadInt32:
			frame.set(ins.Dst, jsvalue.Int32(ins.JumpDelta))
		case bytecode.OpLoadConst:
			frame.set(ins.Dst, t.loadConst(mod, ins.ConstIdx))

		// --- Variables ---
		case bytecode.OpGetLocal:
			frame.set(ins.Dst, frame.getLocal(uint16(ins.Src1)))
		case bytecode.OpSetLocal:
			frame.setLocal(uint16(ins.Dst), frame.get(ins.Src1))
		case bytecode.OpGetGlobal:
			// Globals carry ICs keyed on the global object's shape,
			// like any other property site.
			key := t.constKey(mod, ins.ConstIdx)
			frame.set(ins.Dst, t.getPropertyIC(frame, ins, t.GlobalValue, key))
		case bytecode.OpSetGlobal:
			key := t.constKey(mod, ins.ConstIdx)
			if err := jsobject.Set(t.Global, key, frame.get(ins.Src1), t.GlobalValue, true, t.callFunc()); err != nil {
				t.throwTypeError("%v", err)
			}
		case bytecode.OpDeclareGlobalVar:
			key := t.constKey(mod, ins.ConstIdx)
			if !jsobject.HasOwn(t.Global, key) {
				_ = jsobject.DefineProperty(t.Global, key, jsobject.PropertyDescriptor{
					Value: jsvalue.Undefined, Writable: true, Enumerable: true, Configurable: false,
				})
			}
		case bytecode.OpGetUpvalue:
			frame.set(ins.Dst, frame.closure.Upvalues[ins.Src1].Value)
		case bytecode.OpSetUpvalue:
			frame.closure.Upvalues[ins.Dst].Value = frame.get(ins.Src1)
		case bytecode.OpLoadThis:
			frame.set(ins.Dst, frame.this)
		case bytecode.OpCloseUpvalue:
			// Upvalue cells already live on the heap independent of the
			// frame (see newFrame/OpClosure); nothing to box here since
			// this design never stack-allocates locals that closures
			// capture by reference in the first place.

		// --- Arithmetic ---
		case bytecode.OpAdd:
			t.execAdd(frame, mod, ins)
		case bytecode.OpAddInt32:
			a, aOK := frame.get(ins.Src1).AsInt32()
			b, bOK := frame.get(ins.Src2).AsInt32()
			if !aOK || !bOK {
				// Observed types drifted from the speculation this site
				// quickened under; revert and take the generic path.
				bytecode.Dequicken(frame.fn, frame.pc)
				t.execAdd(frame, mod, ins)
				break
			}
			frame.set(ins.Dst, jsvalue.Number(float64(a)+float64(b)))
		case bytecode.OpAddNumber:
			a, aOK := frame.get(ins.Src1).AsNumber()
			b, bOK := frame.get(ins.Src2).AsNumber()
			if !aOK || !bOK {
				bytecode.Dequicken(frame.fn, frame.pc)
				t.execAdd(frame, mod, ins)
				break
			}
			frame.set(ins.Dst, jsvalue.Number(a+b))
		case bytecode.OpSub, bytecode.OpSubInt32, bytecode.OpSubNumber:
			a := t.ToNumber(frame.get(ins.Src1))
			b := t.ToNumber(frame.get(ins.Src2))
			frame.set(ins.Dst, jsvalue.Number(a-b))
			t.observeArith(frame, ins)
		case bytecode.OpMul, bytecode.OpMulInt32, bytecode.OpMulNumber:
			a := t.ToNumber(frame.get(ins.Src1))
			b := t.ToNumber(frame.get(ins.Src2))
			frame.set(ins.Dst, jsvalue.Number(a*b))
			t.observeArith(frame, ins)
		case bytecode.OpDiv:
			a := t.ToNumber(frame.get(ins.Src1))
			b := t.ToNumber(frame.get(ins.Src2))
			frame.set(ins.Dst, jsvalue.Number(a/b))
		case bytecode.OpMod:
			a := t.ToNumber(frame.get(ins.Src1))
			b := t.ToNumber(frame.get(ins.Src2))
			frame.set(ins.Dst, jsvalue.Number(math.Mod(a, b)))
		case bytecode.OpPow:
			a := t.ToNumber(frame.get(ins.Src1))
			b := t.ToNumber(frame.get(ins.Src2))
			frame.set(ins.Dst, jsvalue.Number(math.Pow(a, b)))
		case bytecode.OpNeg:
			frame.set(ins.Dst, jsvalue.Number(-t.ToNumber(frame.get(ins.Src1))))
		case bytecode.OpInc:
			frame.set(ins.Dst, jsvalue.Number(t.ToNumber(frame.get(ins.Src1))+1))
		case bytecode.OpDec:
			frame.set(ins.Dst, jsvalue.Number(t.ToNumber(frame.get(ins.Src1))-1))

		// --- Bitwise ---
		case bytecode.OpBitAnd:
			frame.set(ins.Dst, jsvalue.Number(float64(t.toInt32(frame.get(ins.Src1))&t.toInt32(frame.get(ins.Src2)))))
		case bytecode.OpBitOr:
			frame.set(ins.Dst, jsvalue.Number(float64(t.toInt32(frame.get(ins.Src1))|t.toInt32(frame.get(ins.Src2)))))
		case bytecode.OpBitXor:
			frame.set(ins.Dst, jsvalue.Number(float64(t.toInt32(frame.get(ins.Src1))^t.toInt32(frame.get(ins.Src2)))))
		case bytecode.OpBitNot:
			frame.set(ins.Dst, jsvalue.Number(float64(^t.toInt32(frame.get(ins.Src1)))))
		case bytecode.OpShl:
			a, b := t.toInt32(frame.get(ins.Src1)), uint32(t.toInt32(frame.get(ins.Src2)))&31
			frame.set(ins.Dst, jsvalue.Number(float64(a<<b)))
		case bytecode.OpShr:
			a, b := t.toInt32(frame.get(ins.Src1)), uint32(t.toInt32(frame.get(ins.Src2)))&31
			frame.set(ins.Dst, jsvalue.Number(float64(a>>b)))
		case bytecode.OpUshr:
			a, b := uint32(t.toInt32(frame.get(ins.Src1))), uint32(t.toInt32(frame.get(ins.Src2)))&31
			frame.set(ins.Dst, jsvalue.Number(float64(a>>b)))

		// --- Comparison ---
		case bytecode.OpEq:
			frame.set(ins.Dst, jsvalue.Boolean(t.LooseEquals(frame.get(ins.Src1), frame.get(ins.Src2))))
		case bytecode.OpNe:
			frame.set(ins.Dst, jsvalue.Boolean(!t.LooseEquals(frame.get(ins.Src1), frame.get(ins.Src2))))
		case bytecode.OpStrictEq:
			frame.set(ins.Dst, jsvalue.Boolean(t.StrictEquals(frame.get(ins.Src1), frame.get(ins.Src2))))
		case bytecode.OpStrictNe:
			frame.set(ins.Dst, jsvalue.Boolean(!t.StrictEquals(frame.get(ins.Src1), frame.get(ins.Src2))))
		case bytecode.OpLt:
			frame.set(ins.Dst, t.relational(frame.get(ins.Src1), frame.get(ins.Src2), func(a, b float64) bool { return a < b }, func(a, b string) bool { return a < b }))
		case bytecode.OpLe:
			frame.set(ins.Dst, t.relational(frame.get(ins.Src1), frame.get(ins.Src2), func(a, b float64) bool { return a <= b }, func(a, b string) bool { return a <= b }))
		case bytecode.OpGt:
			frame.set(ins.Dst, t.relational(frame.get(ins.Src1), frame.get(ins.Src2), func(a, b float64) bool { return a > b }, func(a, b string) bool { return a > b }))
		case bytecode.OpGe:
			frame.set(ins.Dst, t.relational(frame.get(ins.Src1), frame.get(ins.Src2), func(a, b float64) bool { return a >= b }, func(a, b string) bool { return a >= b }))

		// --- Control ---
		case bytecode.OpJump:
			if ins.JumpDelta < 0 {
				t.safePoint() // loop back-edge
			}
			frame.pc += int(ins.JumpDelta)
			continue
		case bytecode.OpJumpIfTrue:
			if ToBoolean(frame.get(ins.Src1)) {
				if ins.JumpDelta < 0 {
					t.safePoint()
				}
				frame.pc += int(ins.JumpDelta)
				continue
			}
		case bytecode.OpJumpIfFalse:
			if !ToBoolean(frame.get(ins.Src1)) {
				if ins.JumpDelta < 0 {
					t.safePoint()
				}
				frame.pc += int(ins.JumpDelta)
				continue
			}
		case bytecode.OpJumpIfNullish:
			if frame.get(ins.Src1).IsNullish() {
				frame.pc += int(ins.JumpDelta)
				continue
			}
		case bytecode.OpJumpIfNotNullish:
			if !frame.get(ins.Src1).IsNullish() {
				frame.pc += int(ins.JumpDelta)
				continue
			}
		case bytecode.OpReturn:
			return frame.get(ins.Src1)
		case bytecode.OpReturnUndefined:
			return jsvalue.Undefined
		case bytecode.OpTailCall:
			// Go gives no hard guarantee of tail-call elimination, so
			// this executes as an ordinary call followed by return
			// rather than reusing the current frame; correctness over
			// constant stack space, same tradeoff spec.md leaves open
			// for a bytecode interpreter (the JIT path can do better).
			result := t.execCall(frame, mod, ins)
			return result
		case bytecode.OpTryStart:
			frame.tryStack = append(frame.tryStack, tryHandler{catchPC: frame.pc + 1 + int(ins.JumpDelta)})
		case bytecode.OpTryEnd:
			if len(frame.tryStack) > 0 {
				frame.tryStack = frame.tryStack[:len(frame.tryStack)-1]
			}
		case bytecode.OpCatch:
			// No-op marker at a catch target; dispatchGuarded's recover
			// already placed the thrown value in Dst.
		case bytecode.OpThrow:
			throwValue(frame.get(ins.Src1))

		// --- Functions ---
		case bytecode.OpClosure, bytecode.OpAsyncClosure, bytecode.OpGeneratorClosure:
			frame.set(ins.Dst, t.makeClosure(frame, mod, ins))
		case bytecode.OpCall, bytecode.OpCallWithReceiver, bytecode.OpCallSpread, bytecode.OpCallEval:
			frame.set(ins.Dst, t.execCall(frame, mod, ins))
		case bytecode.OpCallMethod:
			frame.set(ins.Dst, t.execCallMethod(frame, mod, ins))
		case bytecode.OpConstruct:
			frame.set(ins.Dst, t.execConstruct(frame, mod, ins))

		// --- Iteration ---
		case bytecode.OpGetIterator, bytecode.OpGetAsyncIterator:
			frame.set(ins.Dst, t.getIterator(frame.get(ins.Src1)))
		case bytecode.OpIteratorNext:
			v, done := t.iteratorNext(frame.get(ins.Src1))
			frame.set(ins.Dst, v)
			frame.set(ins.Src2, jsvalue.Boolean(done))
		case bytecode.OpIteratorClose:
			// Best-effort cleanup only; this design's simplified
			// iterators (see iterator.go) hold no external resources.
		case bytecode.OpForInNext:
			v, done := t.forInNext(frame.get(ins.Src1))
			frame.set(ins.Dst, v)
			frame.set(ins.Src2, jsvalue.Boolean(done))

		// --- Objects/Arrays ---
		case bytecode.OpNewObject:
			frame.set(ins.Dst, t.Heap.NewObject(t.Graph, t.objectPrototype()))
		case bytecode.OpNewArray:
			frame.set(ins.Dst, t.newArrayFromRegisters(frame, ins))
		case bytecode.OpGetProp:
			frame.set(ins.Dst, t.getProperty(frame.get(ins.Src1), t.ToPropertyKey(frame.get(ins.Src2))))
		case bytecode.OpSetProp:
			t.setProperty(frame.get(ins.Dst), t.ToPropertyKey(frame.get(ins.Src1)), frame.get(ins.Src2))
		case bytecode.OpGetPropConst:
			key := t.constKey(mod, ins.ConstIdx)
			frame.set(ins.Dst, t.getPropertyIC(frame, ins, frame.get(ins.Src1), key))
		case bytecode.OpSetPropConst:
			key := t.constKey(mod, ins.ConstIdx)
			t.setProperty(frame.get(ins.Dst), key, frame.get(ins.Src1))
		case bytecode.OpGetLocalProp:
			key := t.constKey(mod, ins.ConstIdx)
			frame.set(ins.Dst, t.getProperty(frame.getLocal(uint16(ins.Src1)), key))
		case bytecode.OpGetElem:
			var key jsobject.PropertyKey
			if n, ok := frame.get(ins.Src2).AsInt32(); ok && n >= 0 {
				key = jsobject.IndexKey(uint32(n))
			} else {
				key = t.ToPropertyKey(frame.get(ins.Src2))
			}
			frame.set(ins.Dst, t.getProperty(frame.get(ins.Src1), key))
		case bytecode.OpSetElem:
			var key jsobject.PropertyKey
			if n, ok := frame.get(ins.Src1).AsInt32(); ok && n >= 0 {
				key = jsobject.IndexKey(uint32(n))
			} else {
				key = t.ToPropertyKey(frame.get(ins.Src1))
			}
			t.setProperty(frame.get(ins.Dst), key, frame.get(ins.Src2))
		case bytecode.OpDeleteProp:
			obj, ok := t.Heap.Object(frame.get(ins.Src1))
			ok2 := false
			if ok {
				ok2, _ = jsobject.Delete(obj, t.ToPropertyKey(frame.get(ins.Src2)))
			}
			frame.set(ins.Dst, jsvalue.Boolean(ok2))
		case bytecode.OpDefineProperty:
			obj, ok := t.Heap.Object(frame.get(ins.Dst))
			if ok {
				_ = jsobject.DefineProperty(obj, t.ToPropertyKey(frame.get(ins.Src1)), jsobject.PropertyDescriptor{
					Value: frame.get(ins.Src2), Writable: true, Enumerable: true, Configurable: true,
				})
			}
		case bytecode.OpDefineGetter, bytecode.OpDefineSetter:
			t.execDefineAccessor(frame, mod, ins)
		case bytecode.OpDefineMethod:
			key := t.constKey(mod, ins.ConstIdx)
			if obj, ok := t.Heap.Object(frame.get(ins.Dst)); ok {
				_ = jsobject.DefineProperty(obj, key, jsobject.PropertyDescriptor{
					Value: frame.get(ins.Src1), Writable: true, Configurable: true,
				})
			}
		case bytecode.OpSpread:
			// Spread materialization happens at the call/array-literal
			// sites that consume it (execCall, newArrayFromRegisters),
			// which already iterate via getIterator/iteratorNext; this
			// opcode exists as a parser-visible marker and needs no
			// independent runtime action.

		// --- Classes ---
		case bytecode.OpDefineClass:
			frame.set(ins.Dst, t.defineClass(frame, mod, ins))
		case bytecode.OpGetSuper:
			frame.set(ins.Dst, t.superPrototype(frame))
		case bytecode.OpCallSuper, bytecode.OpCallSuperForward, bytecode.OpCallSuperSpread:
			t.callSuperConstructor(frame, mod, ins)
		case bytecode.OpGetSuperProp:
			key := t.constKey(mod, ins.ConstIdx)
			frame.set(ins.Dst, t.getProperty(t.superPrototype(frame), key))
		case bytecode.OpSetHomeObject:
			if cl, ok := t.Heap.Closure(frame.get(ins.Src1)); ok {
				if home, ok := t.Heap.Object(frame.get(ins.Dst)); ok {
					cl.HomeObject = home
				}
			}

		// --- Async ---
		case bytecode.OpAwait:
			frame.set(ins.Dst, t.await(frame, frame.get(ins.Src1)))
		case bytecode.OpYield:
			frame.set(ins.Dst, t.yield(frame, frame.get(ins.Src1)))
		case bytecode.OpImport, bytecode.OpExport:
			// Module linkage is internal/modresolve's concern; the
			// interpreter only needs these as no-ops against bytecode
			// that internal/vm has already resolved before execution.

		// --- Misc ---
		case bytecode.OpNop:
		case bytecode.OpPop:
		case bytecode.OpDup:
			frame.set(ins.Dst, frame.get(ins.Src1))
		case bytecode.OpDebugger:
		case bytecode.OpCreateArguments:
			frame.set(ins.Dst, t.createArguments(frame))
		case bytecode.OpToNumber:
			frame.set(ins.Dst, jsvalue.Number(t.ToNumber(frame.get(ins.Src1))))
		case bytecode.OpToString:
			frame.set(ins.Dst, t.stringValue(t.ToString(frame.get(ins.Src1))))
		case bytecode.OpRequireCoercible:
			if frame.get(ins.Src1).IsNullish() {
				t.throwTypeError("cannot convert undefined or null to object")
			}
		case bytecode.OpTypeOf:
			frame.set(ins.Dst, t.stringValue(t.TypeOf(frame.get(ins.Src1))))
		case bytecode.OpTypeOfName:
			// Unresolved-global typeof never throws ReferenceError; the
			// compiler is expected to lower a bare `typeof x` on a
			// possibly-undeclared global to this opcode instead of
			// OpGetGlobal+OpTypeOf. Implemented the same as OpTypeOf
			// since OpGetGlobal here never throws on a missing binding.
			frame.set(ins.Dst, t.stringValue(t.TypeOf(frame.get(ins.Src1))))
		case bytecode.OpInstanceOf:
			frame.set(ins.Dst, jsvalue.Boolean(t.instanceOf(frame.get(ins.Src1), frame.get(ins.Src2))))
		case bytecode.OpIn:
			key := t.ToPropertyKey(frame.get(ins.Src1))
			obj, ok := t.Heap.Object(frame.get(ins.Src2))
			frame.set(ins.Dst, jsvalue.Boolean(ok && jsobject.Has(obj, key)))

		default:
			t.throwTypeError("unimplemented opcode %v", ins.Op)
		}

		frame.pc++
	}
	return jsvalue.Undefined
}

func (t *VmThread) loadConst(mod *bytecode.Module, idx uint32) jsvalue.Value {
	c, ok := mod.Constants.Get(idx)
	if !ok {
		return jsvalue.Undefined
	}
	switch c.Kind {
	case bytecode.ConstNumber:
		return jsvalue.Number(c.Number)
	case bytecode.ConstString:
		return t.stringValue(c.String)
	case bytecode.ConstBigInt:
		return t.Heap.NewBigInt(c.BigInt)
	default:
		// RegExp/Template constants load as Undefined: neither the
		// interpreter nor internal/intrinsics turns these constant
		// kinds into live objects.
		return jsvalue.Undefined
	}
}

func (t *VmThread) constKey(mod *bytecode.Module, idx uint32) jsobject.PropertyKey {
	c, ok := mod.Constants.Get(idx)
	if !ok || c.Kind != bytecode.ConstString {
		return jsobject.StringKey(jsvalue.Intern(""))
	}
	return jsobject.StringKey(jsvalue.Intern(c.String))
}

func (t *VmThread) toInt32(v jsvalue.Value) int32 {
	n := t.ToNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int32(uint32(int64(n)))
}

func (t *VmThread) relational(a, b jsvalue.Value, numCmp func(a, b float64) bool, strCmp func(a, b string) bool) jsvalue.Value {
	pa := t.ToPrimitive(a, hintNumber)
	pb := t.ToPrimitive(b, hintNumber)
	if sa, ok := t.Heap.String(pa); ok {
		if sb, ok := t.Heap.String(pb); ok {
			return jsvalue.Boolean(strCmp(sa.String(), sb.String()))
		}
	}
	na, nb := t.ToNumber(pa), t.ToNumber(pb)
	if math.IsNaN(na) || math.IsNaN(nb) {
		return jsvalue.False
	}
	return jsvalue.Boolean(numCmp(na, nb))
}

func (t *VmThread) execAdd(frame *Frame, mod *bytecode.Module, ins bytecode.Instruction) {
	frame.set(ins.Dst, t.Add(frame.get(ins.Src1), frame.get(ins.Src2)))
	t.observeArith(frame, ins)
}

// StrictEquals implements ECMAScript === at the thread level: bit
// equality plus the one case the value layer cannot see, symbols
// comparing equal by their stable id even across distinct heap
// handles (spec.md section 4.F's well-known-symbol identity rule).
func (t *VmThread) StrictEquals(a, b jsvalue.Value) bool {
	if jsvalue.StrictEquals(a, b) {
		return true
	}
	if aid, _, ok := t.Heap.Symbol(a); ok {
		if bid, _, ok := t.Heap.Symbol(b); ok {
			return aid == bid
		}
	}
	return false
}

// Add implements the `+` operator's one string-concatenation special
// case (spec.md section 4.E: "String concatenation is the one `+`
// special case; otherwise numeric"), exported so internal/jithelpers'
// GenericAdd helper shares this exact logic with OpAdd's interpreted
// path instead of re-deriving it.
func (t *VmThread) Add(a, b jsvalue.Value) jsvalue.Value {
	pa, pb := t.ToPrimitive(a, hintDefault), t.ToPrimitive(b, hintDefault)
	_, aStr := t.Heap.String(pa)
	_, bStr := t.Heap.String(pb)
	if aStr || bStr {
		return t.stringValue(t.ToString(pa) + t.ToString(pb))
	}
	return jsvalue.Number(t.ToNumber(pa) + t.ToNumber(pb))
}

// observeArith feeds the feedback vector so internal/bytecode.Quicken
// can specialize this site on a later pass (spec.md section 4.D).
func (t *VmThread) observeArith(frame *Frame, ins bytecode.Instruction) {
	if ins.ICIndex == bytecode.NoFeedback || int(ins.ICIndex) >= len(frame.fn.Feedback) {
		return
	}
	slot := &frame.fn.Feedback[ins.ICIndex]
	a, b := frame.get(ins.Src1), frame.get(ins.Src2)
	slot.Observe(typeFlagOf(a))
	slot.Observe(typeFlagOf(b))
	bytecode.Quicken(frame.fn, frame.pc)
}

func typeFlagOf(v jsvalue.Value) bytecode.TypeFlag {
	switch v.Kind() {
	case jsvalue.KindInt32:
		return bytecode.TypeInt32
	case jsvalue.KindDouble, jsvalue.KindNaN:
		return bytecode.TypeNumber
	case jsvalue.KindBoolean:
		return bytecode.TypeBoolean
	case jsvalue.KindPointer:
		return bytecode.TypeObject
	default:
		return bytecode.TypeOther
	}
}
