package intrinsics

import (
	"sort"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func (r *Realm) populateArray() {
	t := r.t
	proto := r.ArrayProto

	newArr := func(elems []jsvalue.Value) jsvalue.Value {
		v := t.Heap.NewArray(t.Graph, r.ArrayProto)
		o, _ := t.Heap.Object(v)
		for _, e := range elems {
			o.AppendElement(e)
		}
		return v
	}

	defineMethod(t, proto, "push", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.push")
		for _, a := range args {
			o.AppendElement(a)
		}
		return jsvalue.Number(float64(o.Length())), nil
	})
	defineMethod(t, proto, "pop", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.pop")
		elems := o.Elements()
		if len(elems) == 0 {
			return jsvalue.Undefined, nil
		}
		last := elems[len(elems)-1]
		o.SetLength(len(elems) - 1)
		return last, nil
	})
	defineMethod(t, proto, "shift", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.shift")
		elems := o.Elements()
		if len(elems) == 0 {
			return jsvalue.Undefined, nil
		}
		first := elems[0]
		rest := append([]jsvalue.Value(nil), elems[1:]...)
		o.SetLength(0)
		for _, e := range rest {
			o.AppendElement(e)
		}
		return first, nil
	})
	defineMethod(t, proto, "unshift", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.unshift")
		merged := append(append([]jsvalue.Value(nil), args...), o.Elements()...)
		o.SetLength(0)
		for _, e := range merged {
			o.AppendElement(e)
		}
		return jsvalue.Number(float64(len(merged))), nil
	})
	defineMethod(t, proto, "slice", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.slice")
		elems := o.Elements()
		start, end := sliceBounds(t, args, len(elems))
		if start >= end {
			return newArr(nil), nil
		}
		return newArr(elems[start:end]), nil
	})
	defineMethod(t, proto, "splice", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.splice")
		elems := o.Elements()
		n := len(elems)
		start := clampIndex(int(t.ToIntegerOrInfinity(arg(args, 0))), n)
		delCount := n - start
		if len(args) > 1 {
			dc := int(t.ToIntegerOrInfinity(arg(args, 1)))
			if dc < 0 {
				dc = 0
			}
			if dc > n-start {
				dc = n - start
			}
			delCount = dc
		}
		removed := append([]jsvalue.Value(nil), elems[start:start+delCount]...)
		var inserted []jsvalue.Value
		if len(args) > 2 {
			inserted = args[2:]
		}
		next := append([]jsvalue.Value(nil), elems[:start]...)
		next = append(next, inserted...)
		next = append(next, elems[start+delCount:]...)
		o.SetLength(0)
		for _, e := range next {
			o.AppendElement(e)
		}
		return newArr(removed), nil
	})
	defineMethod(t, proto, "concat", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.concat")
		out := append([]jsvalue.Value(nil), o.Elements()...)
		for _, a := range args {
			if ao, ok := t.Heap.Object(a); ok && ao.IsArray() {
				out = append(out, ao.Elements()...)
			} else {
				out = append(out, a)
			}
		}
		return newArr(out), nil
	})
	defineMethod(t, proto, "join", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.join")
		sep := ","
		if len(args) > 0 && !arg(args, 0).IsUndefined() {
			sep = t.ToString(arg(args, 0))
		}
		parts := make([]string, 0, o.Length())
		for _, e := range o.Elements() {
			if e.IsNullish() {
				parts = append(parts, "")
			} else {
				parts = append(parts, t.ToString(e))
			}
		}
		s := ""
		for i, p := range parts {
			if i > 0 {
				s += sep
			}
			s += p
		}
		return t.StringValue(s), nil
	})
	defineMethod(t, proto, "indexOf", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.indexOf")
		target := arg(args, 0)
		for i, e := range o.Elements() {
			if jsvalue.StrictEquals(e, target) {
				return jsvalue.Number(float64(i)), nil
			}
		}
		return jsvalue.Number(-1), nil
	})
	defineMethod(t, proto, "includes", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.includes")
		target := arg(args, 0)
		for _, e := range o.Elements() {
			if jsvalue.Is(e, target) {
				return jsvalue.Boolean(true), nil
			}
		}
		return jsvalue.Boolean(false), nil
	})
	defineMethod(t, proto, "at", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.at")
		elems := o.Elements()
		i := int(t.ToIntegerOrInfinity(arg(args, 0)))
		if i < 0 {
			i += len(elems)
		}
		if i < 0 || i >= len(elems) {
			return jsvalue.Undefined, nil
		}
		return elems[i], nil
	})
	defineMethod(t, proto, "reverse", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.reverse")
		elems := o.Elements()
		for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
			elems[i], elems[j] = elems[j], elems[i]
		}
		return this, nil
	})
	defineMethod(t, proto, "fill", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.fill")
		elems := o.Elements()
		val := arg(args, 0)
		start, end := sliceBoundsFrom(t, args, 1, len(elems))
		for i := start; i < end; i++ {
			elems[i] = val
		}
		return this, nil
	})
	defineMethod(t, proto, "flat", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.flat")
		var out []jsvalue.Value
		for _, e := range o.Elements() {
			if eo, ok := t.Heap.Object(e); ok && eo.IsArray() {
				out = append(out, eo.Elements()...)
			} else {
				out = append(out, e)
			}
		}
		return newArr(out), nil
	})
	defineMethod(t, proto, "sort", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.sort")
		elems := o.Elements()
		cmp := arg(args, 0)
		var sortErr error
		sort.SliceStable(elems, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			if cmp.Kind() == jsvalue.KindPointer {
				res, err := t.Call(cmp, jsvalue.Undefined, []jsvalue.Value{elems[i], elems[j]}, jsvalue.Undefined)
				if err != nil {
					sortErr = err
					return false
				}
				return t.ToNumber(res) < 0
			}
			return t.ToString(elems[i]) < t.ToString(elems[j])
		})
		if sortErr != nil {
			return jsvalue.Undefined, sortErr
		}
		return this, nil
	})
	defineMethod(t, proto, "forEach", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.forEach")
		fn := arg(args, 0)
		for i, e := range o.Elements() {
			if _, err := t.Call(fn, arg(args, 1), []jsvalue.Value{e, jsvalue.Number(float64(i)), this}, jsvalue.Undefined); err != nil {
				return jsvalue.Undefined, err
			}
		}
		return jsvalue.Undefined, nil
	})
	defineMethod(t, proto, "map", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.map")
		fn := arg(args, 0)
		out := make([]jsvalue.Value, 0, o.Length())
		for i, e := range o.Elements() {
			res, err := t.Call(fn, arg(args, 1), []jsvalue.Value{e, jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
			if err != nil {
				return jsvalue.Undefined, err
			}
			out = append(out, res)
		}
		return newArr(out), nil
	})
	defineMethod(t, proto, "filter", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.filter")
		fn := arg(args, 0)
		var out []jsvalue.Value
		for i, e := range o.Elements() {
			res, err := t.Call(fn, arg(args, 1), []jsvalue.Value{e, jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
			if err != nil {
				return jsvalue.Undefined, err
			}
			if interp.ToBoolean(res) {
				out = append(out, e)
			}
		}
		return newArr(out), nil
	})
	defineMethod(t, proto, "reduce", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.reduce")
		fn := arg(args, 0)
		elems := o.Elements()
		i := 0
		acc := arg(args, 1)
		if len(args) < 2 {
			if len(elems) == 0 {
				t.ThrowTypeError("Reduce of empty array with no initial value")
			}
			acc = elems[0]
			i = 1
		}
		for ; i < len(elems); i++ {
			res, err := t.Call(fn, jsvalue.Undefined, []jsvalue.Value{acc, elems[i], jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
			if err != nil {
				return jsvalue.Undefined, err
			}
			acc = res
		}
		return acc, nil
	})
	defineMethod(t, proto, "find", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.find")
		fn := arg(args, 0)
		for i, e := range o.Elements() {
			res, err := t.Call(fn, arg(args, 1), []jsvalue.Value{e, jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
			if err != nil {
				return jsvalue.Undefined, err
			}
			if interp.ToBoolean(res) {
				return e, nil
			}
		}
		return jsvalue.Undefined, nil
	})
	defineMethod(t, proto, "findIndex", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.findIndex")
		fn := arg(args, 0)
		for i, e := range o.Elements() {
			res, err := t.Call(fn, arg(args, 1), []jsvalue.Value{e, jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
			if err != nil {
				return jsvalue.Undefined, err
			}
			if interp.ToBoolean(res) {
				return jsvalue.Number(float64(i)), nil
			}
		}
		return jsvalue.Number(-1), nil
	})
	defineMethod(t, proto, "some", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.some")
		fn := arg(args, 0)
		for i, e := range o.Elements() {
			res, err := t.Call(fn, arg(args, 1), []jsvalue.Value{e, jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
			if err != nil {
				return jsvalue.Undefined, err
			}
			if interp.ToBoolean(res) {
				return jsvalue.Boolean(true), nil
			}
		}
		return jsvalue.Boolean(false), nil
	})
	defineMethod(t, proto, "every", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.every")
		fn := arg(args, 0)
		for i, e := range o.Elements() {
			res, err := t.Call(fn, arg(args, 1), []jsvalue.Value{e, jsvalue.Number(float64(i)), this}, jsvalue.Undefined)
			if err != nil {
				return jsvalue.Undefined, err
			}
			if !interp.ToBoolean(res) {
				return jsvalue.Boolean(false), nil
			}
		}
		return jsvalue.Boolean(true), nil
	})
	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Array.prototype.toString")
		parts := make([]string, len(o.Elements()))
		for i, e := range o.Elements() {
			if !e.IsNullish() {
				parts[i] = t.ToString(e)
			}
		}
		s := ""
		for i, p := range parts {
			if i > 0 {
				s += ","
			}
			s += p
		}
		return t.StringValue(s), nil
	})

	// Shares the iterator-record shape internal/interp's own GetIterator
	// opcode already walks; Array.prototype[Symbol.iterator] only needs
	// to exist for user code that calls it directly (`arr[Symbol.
	// iterator]()`), not for for-of, which bypasses property lookup.
	defineValue(proto, jsobject.SymbolKey(uint64(symIterator), "Symbol.iterator"), nativeFunc(t, "[Symbol.iterator]", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.wrapIterator(this), nil
	}), true, false, true)

	r.arrayCtor = r.newConstructor("Array", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		if len(args) == 1 && args[0].IsNumber() {
			n := int(t.ToNumber(args[0]))
			v := t.Heap.NewArray(t.Graph, r.ArrayProto)
			o, _ := t.Heap.Object(v)
			o.SetLength(n)
			return v, nil
		}
		return newArr(args), nil
	})
	r.staticMethod(r.arrayCtor, "isArray", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o, ok := t.Heap.Object(arg(args, 0))
		return jsvalue.Boolean(ok && o.IsArray()), nil
	})
	r.staticMethod(r.arrayCtor, "of", 0, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return newArr(args), nil
	})
	r.staticMethod(r.arrayCtor, "from", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		src := arg(args, 0)
		mapFn := arg(args, 1)
		var elems []jsvalue.Value
		if o, ok := t.Heap.Object(src); ok {
			elems = append(elems, o.Elements()...)
		} else if s, ok := t.Heap.String(src); ok {
			for i := 0; i < s.Len(); i++ {
				unit, _ := s.CharCodeAt(i)
				elems = append(elems, t.StringValue(string(utf16ToRuneArr(unit))))
			}
		}
		if mapFn.Kind() == jsvalue.KindPointer {
			for i, e := range elems {
				res, err := t.Call(mapFn, jsvalue.Undefined, []jsvalue.Value{e, jsvalue.Number(float64(i))}, jsvalue.Undefined)
				if err != nil {
					return jsvalue.Undefined, err
				}
				elems[i] = res
			}
		}
		return newArr(elems), nil
	})
}

func utf16ToRuneArr(u uint16) rune { return rune(u) }

func sliceBounds(t *interp.VmThread, args []jsvalue.Value, n int) (int, int) {
	return sliceBoundsFrom(t, args, 0, n)
}

// sliceBoundsFrom reads a (start, end) pair out of args[from:], clamped
// to [0, n] with negative-index wraparound, the shape slice and fill
// share.
func sliceBoundsFrom(t *interp.VmThread, args []jsvalue.Value, from int, n int) (int, int) {
	start, end := 0, n
	if len(args) > from && !arg(args, from).IsUndefined() {
		start = clampIndex(int(t.ToIntegerOrInfinity(arg(args, from))), n)
	}
	if len(args) > from+1 && !arg(args, from+1).IsUndefined() {
		end = clampIndex(int(t.ToIntegerOrInfinity(arg(args, from+1))), n)
	}
	if end < start {
		end = start
	}
	return start, end
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
