package intrinsics

import (
	"math/big"
	"time"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// zonedDateTimePayload backs a Temporal.ZonedDateTime instance's two
// internal slots ([[EpochNanoseconds]], [[TimeZone]]), following the
// same per-object side-table pattern date.go's datePayloads and
// mapset.go's collectionPayloads already use for instances that carry
// state a plain CellObject has nowhere else to put it - SPEC_FULL.md
// section 9.3 restores this type from original_source's
// otter-vm-core/src/intrinsics_impl/temporal/zoned_date_time.rs, kept
// here as a sibling of Date rather than a full Temporal namespace
// (only ZonedDateTime, the one type the original source names).
type zonedDateTimePayload struct {
	epochNanoseconds *big.Int
	timeZoneID       string
}

var zonedDateTimePayloads = map[*jsobject.Object]zonedDateTimePayload{}

func zonedDateTimeOf(o *jsobject.Object) zonedDateTimePayload {
	return zonedDateTimePayloads[o]
}

func setZonedDateTime(o *jsobject.Object, ns *big.Int, tz string) {
	zonedDateTimePayloads[o] = zonedDateTimePayload{epochNanoseconds: ns, timeZoneID: tz}
}

// populateTemporal builds Temporal.ZonedDateTime's constructor and
// prototype (epochNanoseconds/timeZoneId as read-only accessors,
// equals/compare for ordering, toString for display), installed under
// the `Temporal` namespace object by intrinsics.go's install() rather
// than bound directly on the global the way Date is - matching how
// the original exposes it as `Temporal.ZonedDateTime`, not a bare
// global constructor.
func (r *Realm) populateTemporal() {
	t := r.t
	proto := r.ZonedDateTimeProto

	r.zonedDateTimeCtor = r.newConstructor("ZonedDateTime", 2, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		if newTarget.IsUndefined() {
			t.ThrowTypeError("Temporal.ZonedDateTime constructor must be called with new")
		}
		ns, ok := parseEpochNanoseconds(t, arg(args, 0))
		if !ok {
			t.Throw("RangeError", "invalid epochNanoseconds for Temporal.ZonedDateTime")
		}
		tz := "UTC"
		if a := arg(args, 1); !a.IsUndefined() {
			tz = t.ToString(a)
		}
		v := newPlainObject(t, proto)
		obj, _ := t.Heap.Object(v)
		setZonedDateTime(obj, ns, tz)
		return v, nil
	})

	r.staticMethod(r.zonedDateTimeCtor, "from", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		src := arg(args, 0)
		if obj, ok := t.Heap.Object(src); ok {
			if _, tracked := zonedDateTimePayloads[obj]; tracked {
				return src, nil
			}
		}
		ns := big.NewInt(t.Now())
		v := newPlainObject(t, proto)
		obj, _ := t.Heap.Object(v)
		setZonedDateTime(obj, ns, "UTC")
		return v, nil
	})

	_ = jsobject.DefineAccessor(proto, strKey("epochNanoseconds"), nativeFunc(t, "epochNanoseconds", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Temporal.ZonedDateTime.prototype.epochNanoseconds")
		return t.Heap.NewBigInt(zonedDateTimeOf(o).epochNanoseconds.String()), nil
	}), jsvalue.Undefined, false, true)

	_ = jsobject.DefineAccessor(proto, strKey("timeZoneId"), nativeFunc(t, "timeZoneId", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "Temporal.ZonedDateTime.prototype.timeZoneId")
		return t.StringValue(zonedDateTimeOf(o).timeZoneID), nil
	}), jsvalue.Undefined, false, true)

	defineMethod(t, proto, "equals", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		a := zonedDateTimeOf(thisObject(t, this, "equals"))
		other, ok := t.Heap.Object(arg(args, 0))
		if !ok {
			return jsvalue.False, nil
		}
		b, tracked := zonedDateTimePayloads[other]
		if !tracked {
			return jsvalue.False, nil
		}
		eq := a.epochNanoseconds.Cmp(b.epochNanoseconds) == 0 && a.timeZoneID == b.timeZoneID
		return jsvalue.Boolean(eq), nil
	})

	r.staticMethod(r.zonedDateTimeCtor, "compare", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		a, aOK := zonedDateTimeFromValue(t, arg(args, 0))
		b, bOK := zonedDateTimeFromValue(t, arg(args, 1))
		if !aOK || !bOK {
			t.ThrowTypeError("Temporal.ZonedDateTime.compare requires two ZonedDateTime instances")
		}
		return jsvalue.Int32(int32(a.epochNanoseconds.Cmp(b.epochNanoseconds))), nil
	})

	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		p := zonedDateTimeOf(thisObject(t, this, "toString"))
		sec, nsec := splitEpochNanoseconds(p.epochNanoseconds)
		tm := time.Unix(sec, nsec).UTC()
		return t.StringValue(tm.Format("2006-01-02T15:04:05.000000000Z") + "[" + p.timeZoneID + "]"), nil
	})
	defineMethod(t, proto, "toJSON", 0, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, nt jsvalue.Value) (jsvalue.Value, error) {
		return callProtoMethod(t, proto, "toString", this, args, nt)
	})
}

// zonedDateTimeFromValue resolves v to its ZonedDateTime payload, the
// shared guard compare()/equals() both need.
func zonedDateTimeFromValue(t *interp.VmThread, v jsvalue.Value) (zonedDateTimePayload, bool) {
	obj, ok := t.Heap.Object(v)
	if !ok {
		return zonedDateTimePayload{}, false
	}
	p, tracked := zonedDateTimePayloads[obj]
	return p, tracked
}

// parseEpochNanoseconds accepts a BigInt or Number argument, matching
// the original's permissive constructor (the real Temporal API is
// BigInt-only). A Number is taken as a count of nanoseconds, the same
// unit as a BigInt argument.
func parseEpochNanoseconds(t *interp.VmThread, v jsvalue.Value) (*big.Int, bool) {
	if digits, ok := t.Heap.BigInt(v); ok {
		n, ok := new(big.Int).SetString(digits, 10)
		return n, ok
	}
	n := t.ToNumber(v)
	if n != n { // NaN
		return nil, false
	}
	bi, _ := big.NewFloat(n).Int(nil)
	return bi, true
}

func splitEpochNanoseconds(ns *big.Int) (sec int64, nsec int64) {
	second := big.NewInt(1e9)
	q, r := new(big.Int).QuoRem(ns, second, new(big.Int))
	if r.Sign() < 0 {
		r.Add(r, second)
		q.Sub(q, big.NewInt(1))
	}
	return q.Int64(), r.Int64()
}

// callProtoMethod invokes a previously-defined method by name on this,
// used by toJSON to delegate to toString without duplicating its
// formatting.
func callProtoMethod(t *interp.VmThread, proto *jsobject.Object, name string, this jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
	desc, ok := jsobject.GetOwnPropertyDescriptor(proto, strKey(name))
	if !ok {
		return jsvalue.Undefined, nil
	}
	return t.Call(desc.Value, this, args, newTarget)
}
