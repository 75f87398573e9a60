package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

func (r *Realm) populateBoolean() {
	t := r.t
	proto := r.BooleanProto

	thisBool := func(this jsvalue.Value) bool {
		if b, ok := this.AsBoolean(); ok {
			return b
		}
		return interp.ToBoolean(this)
	}

	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		if thisBool(this) {
			return t.StringValue("true"), nil
		}
		return t.StringValue("false"), nil
	})
	defineMethod(t, proto, "valueOf", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Boolean(thisBool(this)), nil
	})

	r.booleanCtor = r.newConstructor("Boolean", 1, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Boolean(interp.ToBoolean(arg(args, 0))), nil
	})
}
