package intrinsics

import (
	"math"
	"strconv"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func (r *Realm) populateNumber() {
	t := r.t
	proto := r.NumberProto

	thisNum := func(t *interp.VmThread, this jsvalue.Value) float64 {
		if this.IsNumber() {
			n, _ := this.AsNumber()
			return n
		}
		return t.ToNumber(this)
	}

	defineMethod(t, proto, "toFixed", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		digits := int(t.ToIntegerOrInfinity(arg(args, 0)))
		return t.StringValue(strconv.FormatFloat(thisNum(t, this), 'f', digits, 64)), nil
	})
	defineMethod(t, proto, "toString", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		n := thisNum(t, this)
		base := 10
		if len(args) > 0 && !arg(args, 0).IsUndefined() {
			base = int(t.ToIntegerOrInfinity(arg(args, 0)))
		}
		if base == 10 {
			return t.StringValue(t.ToString(jsvalue.Number(n))), nil
		}
		return t.StringValue(strconv.FormatInt(int64(n), base)), nil
	})
	defineMethod(t, proto, "valueOf", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(thisNum(t, this)), nil
	})

	r.numberCtor = r.newConstructor("Number", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		if len(args) == 0 {
			return jsvalue.Number(0), nil
		}
		return jsvalue.Number(t.ToNumber(args[0])), nil
	})
	r.staticMethod(r.numberCtor, "isInteger", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return jsvalue.Boolean(false), nil
		}
		n, _ := v.AsNumber()
		return jsvalue.Boolean(!math.IsNaN(n) && !math.IsInf(n, 0) && n == math.Trunc(n)), nil
	})
	r.staticMethod(r.numberCtor, "isFinite", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return jsvalue.Boolean(false), nil
		}
		n, _ := v.AsNumber()
		return jsvalue.Boolean(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})
	r.staticMethod(r.numberCtor, "isNaN", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return jsvalue.Boolean(false), nil
		}
		n, _ := v.AsNumber()
		return jsvalue.Boolean(math.IsNaN(n)), nil
	})
	r.staticMethod(r.numberCtor, "isSafeInteger", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return jsvalue.Boolean(false), nil
		}
		n, _ := v.AsNumber()
		return jsvalue.Boolean(!math.IsNaN(n) && n == math.Trunc(n) && math.Abs(n) <= (1<<53-1)), nil
	})
	r.staticMethod(r.numberCtor, "parseFloat", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(parseFloatPrefix(t.ToString(arg(args, 0)))), nil
	})
	r.staticMethod(r.numberCtor, "parseInt", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		base := 10
		if len(args) > 1 && !arg(args, 1).IsUndefined() {
			base = int(t.ToIntegerOrInfinity(arg(args, 1)))
		}
		return jsvalue.Number(parseIntPrefix(t.ToString(arg(args, 0)), base)), nil
	})

	cl, _ := t.Heap.Closure(r.numberCtor)
	defineValue(cl.Statics, strKey("MAX_SAFE_INTEGER"), jsvalue.Number(1<<53-1), false, false, false)
	defineValue(cl.Statics, strKey("MIN_SAFE_INTEGER"), jsvalue.Number(-(1<<53 - 1)), false, false, false)
	defineValue(cl.Statics, strKey("MAX_VALUE"), jsvalue.Number(math.MaxFloat64), false, false, false)
	defineValue(cl.Statics, strKey("MIN_VALUE"), jsvalue.Number(math.SmallestNonzeroFloat64), false, false, false)
	defineValue(cl.Statics, strKey("EPSILON"), jsvalue.Number(2.220446049250313e-16), false, false, false)
	defineValue(cl.Statics, strKey("POSITIVE_INFINITY"), jsvalue.Number(math.Inf(1)), false, false, false)
	defineValue(cl.Statics, strKey("NEGATIVE_INFINITY"), jsvalue.Number(math.Inf(-1)), false, false, false)
	defineValue(cl.Statics, strKey("NaN"), jsvalue.NaN, false, false, false)
}

func parseFloatPrefix(s string) float64 {
	s = trimLeadingSpace(s)
	end := 0
	seenDot, seenDigit, seenExp := false, false, false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == '+' || c == '-') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			goto done
		}
		end++
	}
done:
	if !seenDigit {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

func parseIntPrefix(s string, base int) float64 {
	s = trimLeadingSpace(s)
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if base == 0 {
		base = 10
	}
	if (base == 16 || base == 0) && len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
		base = 16
	}
	end := 0
	for end < len(s) && digitVal(s[end]) < base {
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return math.NaN()
	}
	if neg {
		return -float64(n)
	}
	return float64(n)
}

func digitVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}

func trimLeadingSpace(s string) string {
	i := 0
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			i++
		default:
			return s[i:]
		}
	}
	return ""
}
