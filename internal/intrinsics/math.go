package intrinsics

import (
	"math"
	"math/rand"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// populateMath builds the Math namespace object directly rather than
// via newConstructor: Math is a plain, non-constructible object with
// static-only methods and constant data properties (ECMA-262 21.3).
func (r *Realm) populateMath() {
	t := r.t
	mo := r.MathObj

	defineValue(mo, strKey("PI"), jsvalue.Number(math.Pi), false, false, false)
	defineValue(mo, strKey("E"), jsvalue.Number(math.E), false, false, false)
	defineValue(mo, strKey("LN2"), jsvalue.Number(math.Ln2), false, false, false)
	defineValue(mo, strKey("LN10"), jsvalue.Number(math.Log(10)), false, false, false)
	defineValue(mo, strKey("LOG2E"), jsvalue.Number(1/math.Ln2), false, false, false)
	defineValue(mo, strKey("LOG10E"), jsvalue.Number(1/math.Log(10)), false, false, false)
	defineValue(mo, strKey("SQRT2"), jsvalue.Number(math.Sqrt2), false, false, false)
	defineValue(mo, strKey("SQRT1_2"), jsvalue.Number(math.Sqrt(0.5)), false, false, false)

	unary := func(name string, fn func(float64) float64) {
		defineMethod(t, mo, name, 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			return jsvalue.Number(fn(t.ToNumber(arg(args, 0)))), nil
		})
	}
	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("trunc", math.Trunc)
	unary("sqrt", math.Sqrt)
	unary("cbrt", math.Cbrt)
	unary("sign", func(n float64) float64 {
		switch {
		case math.IsNaN(n):
			return math.NaN()
		case n > 0:
			return 1
		case n < 0:
			return -1
		}
		return n
	})
	unary("round", func(n float64) float64 {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return n
		}
		return math.Floor(n + 0.5)
	})
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("atan", math.Atan)
	unary("sinh", math.Sinh)
	unary("cosh", math.Cosh)
	unary("tanh", math.Tanh)
	unary("log", math.Log)
	unary("log2", math.Log2)
	unary("log10", math.Log10)
	unary("exp", math.Exp)

	defineMethod(t, mo, "pow", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(math.Pow(t.ToNumber(arg(args, 0)), t.ToNumber(arg(args, 1)))), nil
	})
	defineMethod(t, mo, "atan2", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(math.Atan2(t.ToNumber(arg(args, 0)), t.ToNumber(arg(args, 1)))), nil
	})
	defineMethod(t, mo, "hypot", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		sum := 0.0
		for _, a := range args {
			n := t.ToNumber(a)
			sum += n * n
		}
		return jsvalue.Number(math.Sqrt(sum)), nil
	})
	defineMethod(t, mo, "max", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		best := math.Inf(-1)
		for _, a := range args {
			n := t.ToNumber(a)
			if math.IsNaN(n) {
				return jsvalue.NaN, nil
			}
			if n > best {
				best = n
			}
		}
		return jsvalue.Number(best), nil
	})
	defineMethod(t, mo, "min", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		best := math.Inf(1)
		for _, a := range args {
			n := t.ToNumber(a)
			if math.IsNaN(n) {
				return jsvalue.NaN, nil
			}
			if n < best {
				best = n
			}
		}
		return jsvalue.Number(best), nil
	})
	defineMethod(t, mo, "random", 0, func(t *interp.VmThread, _ jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(rand.Float64()), nil
	})
}
