package intrinsics

import (
	"strings"
	"unicode/utf16"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// thisString coerces `this` to its Go string content: a primitive
// string cell directly, or a boxed `new String(...)` wrapper's
// internal [[StringData]] - represented here as the cell itself, since
// this engine doesn't wrap primitives in a separate exotic object
// (spec.md's Non-goals leave wrapper-object autoboxing out of scope
// beyond what String.prototype methods need).
func thisString(t *interp.VmThread, this jsvalue.Value) string {
	if s, ok := t.Heap.String(this); ok {
		return s.String()
	}
	return t.ToString(this)
}

func (r *Realm) populateString() {
	t := r.t
	proto := r.StringProto

	defineMethod(t, proto, "charAt", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		units := utf16.Encode([]rune(thisString(t, this)))
		i := int(t.ToIntegerOrInfinity(arg(args, 0)))
		if i < 0 || i >= len(units) {
			return t.StringValue(""), nil
		}
		return t.StringValue(string(utf16.Decode(units[i : i+1]))), nil
	})
	defineMethod(t, proto, "charCodeAt", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		units := utf16.Encode([]rune(thisString(t, this)))
		i := int(t.ToIntegerOrInfinity(arg(args, 0)))
		if i < 0 || i >= len(units) {
			return jsvalue.NaN, nil
		}
		return jsvalue.Number(float64(units[i])), nil
	})
	defineMethod(t, proto, "indexOf", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		s := thisString(t, this)
		return jsvalue.Number(float64(strings.Index(s, t.ToString(arg(args, 0))))), nil
	})
	defineMethod(t, proto, "lastIndexOf", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		s := thisString(t, this)
		return jsvalue.Number(float64(strings.LastIndex(s, t.ToString(arg(args, 0))))), nil
	})
	defineMethod(t, proto, "includes", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Boolean(strings.Contains(thisString(t, this), t.ToString(arg(args, 0)))), nil
	})
	defineMethod(t, proto, "startsWith", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Boolean(strings.HasPrefix(thisString(t, this), t.ToString(arg(args, 0)))), nil
	})
	defineMethod(t, proto, "endsWith", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Boolean(strings.HasSuffix(thisString(t, this), t.ToString(arg(args, 0)))), nil
	})
	defineMethod(t, proto, "slice", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		units := utf16.Encode([]rune(thisString(t, this)))
		start, end := sliceBounds(t, args, len(units))
		if start >= end {
			return t.StringValue(""), nil
		}
		return t.StringValue(string(utf16.Decode(units[start:end]))), nil
	})
	defineMethod(t, proto, "substring", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		units := utf16.Encode([]rune(thisString(t, this)))
		n := len(units)
		a, b := 0, n
		if len(args) > 0 && !arg(args, 0).IsUndefined() {
			a = clampSub(int(t.ToIntegerOrInfinity(arg(args, 0))), n)
		}
		if len(args) > 1 && !arg(args, 1).IsUndefined() {
			b = clampSub(int(t.ToIntegerOrInfinity(arg(args, 1))), n)
		}
		if a > b {
			a, b = b, a
		}
		return t.StringValue(string(utf16.Decode(units[a:b]))), nil
	})
	defineMethod(t, proto, "toUpperCase", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(strings.ToUpper(thisString(t, this))), nil
	})
	defineMethod(t, proto, "toLowerCase", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(strings.ToLower(thisString(t, this))), nil
	})
	defineMethod(t, proto, "trim", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(strings.TrimSpace(thisString(t, this))), nil
	})
	defineMethod(t, proto, "trimStart", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(strings.TrimLeft(thisString(t, this), " \t\n\r\v\f")), nil
	})
	defineMethod(t, proto, "trimEnd", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(strings.TrimRight(thisString(t, this), " \t\n\r\v\f")), nil
	})
	defineMethod(t, proto, "split", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		s := thisString(t, this)
		v := t.Heap.NewArray(t.Graph, r.ArrayProto)
		o, _ := t.Heap.Object(v)
		if arg(args, 0).IsUndefined() {
			o.AppendElement(t.StringValue(s))
			return v, nil
		}
		sep := t.ToString(arg(args, 0))
		var parts []string
		if sep == "" {
			for _, ru := range s {
				parts = append(parts, string(ru))
			}
		} else {
			parts = strings.Split(s, sep)
		}
		for _, p := range parts {
			o.AppendElement(t.StringValue(p))
		}
		return v, nil
	})
	defineMethod(t, proto, "replace", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		s := thisString(t, this)
		search := t.ToString(arg(args, 0))
		repl := arg(args, 1)
		if repl.Kind() == jsvalue.KindPointer {
			if _, callable := t.Heap.Closure(repl); callable {
				idx := strings.Index(s, search)
				if idx < 0 {
					return t.StringValue(s), nil
				}
				res, err := t.Call(repl, jsvalue.Undefined, []jsvalue.Value{t.StringValue(search), jsvalue.Number(float64(idx)), t.StringValue(s)}, jsvalue.Undefined)
				if err != nil {
					return jsvalue.Undefined, err
				}
				return t.StringValue(s[:idx] + t.ToString(res) + s[idx+len(search):]), nil
			}
		}
		return t.StringValue(strings.Replace(s, search, t.ToString(repl), 1)), nil
	})
	defineMethod(t, proto, "replaceAll", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		s := thisString(t, this)
		return t.StringValue(strings.ReplaceAll(s, t.ToString(arg(args, 0)), t.ToString(arg(args, 1)))), nil
	})
	defineMethod(t, proto, "concat", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		s := thisString(t, this)
		for _, a := range args {
			s += t.ToString(a)
		}
		return t.StringValue(s), nil
	})
	defineMethod(t, proto, "repeat", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		n := int(t.ToIntegerOrInfinity(arg(args, 0)))
		if n < 0 {
			t.Throw("RangeError", "Invalid count value")
		}
		return t.StringValue(strings.Repeat(thisString(t, this), n)), nil
	})
	defineMethod(t, proto, "padStart", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(pad(t, thisString(t, this), args, true)), nil
	})
	defineMethod(t, proto, "padEnd", 2, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(pad(t, thisString(t, this), args, false)), nil
	})
	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(thisString(t, this)), nil
	})
	defineMethod(t, proto, "valueOf", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return t.StringValue(thisString(t, this)), nil
	})
	defineValue(proto, jsobject.SymbolKey(uint64(symIterator), "Symbol.iterator"), nativeFunc(t, "[Symbol.iterator]", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return r.wrapIterator(this), nil
	}), true, false, true)

	r.stringCtor = r.newConstructor("String", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		if len(args) == 0 {
			return t.StringValue(""), nil
		}
		return t.StringValue(t.ToString(args[0])), nil
	})
	r.staticMethod(r.stringCtor, "fromCharCode", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		units := make([]uint16, len(args))
		for i, a := range args {
			units[i] = uint16(int(t.ToNumber(a)))
		}
		return t.StringValue(string(utf16.Decode(units))), nil
	})
}

func clampSub(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func pad(t *interp.VmThread, s string, args []jsvalue.Value, start bool) string {
	target := int(t.ToIntegerOrInfinity(arg(args, 0)))
	filler := " "
	if len(args) > 1 && !arg(args, 1).IsUndefined() {
		filler = t.ToString(arg(args, 1))
	}
	units := utf16.Encode([]rune(s))
	if filler == "" || len(units) >= target {
		return s
	}
	fillUnits := utf16.Encode([]rune(filler))
	need := target - len(units)
	pad := make([]uint16, 0, need)
	for len(pad) < need {
		pad = append(pad, fillUnits...)
	}
	pad = pad[:need]
	if start {
		return string(utf16.Decode(append(pad, units...)))
	}
	return string(utf16.Decode(append(units, pad...)))
}
