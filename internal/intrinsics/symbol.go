package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// symbolRegistry backs Symbol.for's "global symbol
// registry", process-wide like jsvalue's own string intern table.
var symbolRegistry = map[string]uint64{}

// wellKnownPropName is the short property name each well-known symbol
// is exposed under on the Symbol constructor (Symbol.iterator,
// Symbol.asyncIterator, ...), as opposed to wellKnownNames' full
// "Symbol.xxx" description string used inside the symbol's own
// toString.
var wellKnownPropName = map[wellKnownID]string{
	symIterator:           "iterator",
	symAsyncIterator:      "asyncIterator",
	symHasInstance:        "hasInstance",
	symToPrimitive:        "toPrimitive",
	symToStringTag:        "toStringTag",
	symUnscopables:        "unscopables",
	symSpecies:            "species",
	symIsConcatSpreadable: "isConcatSpreadable",
	symMatch:              "match",
	symReplace:            "replace",
	symSearch:             "search",
	symSplit:              "split",
}

func (r *Realm) populateSymbol() {
	t := r.t
	proto := r.SymbolProto

	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		_, desc, _ := t.Heap.Symbol(this)
		return t.StringValue("Symbol(" + desc + ")"), nil
	})
	_ = jsobject.DefineAccessor(proto, strKey("description"), nativeFunc(t, "description", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		_, desc, _ := t.Heap.Symbol(this)
		return t.StringValue(desc), nil
	}), jsvalue.Undefined, false, true)

	r.symbolCtor = r.newConstructor("Symbol", 0, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		desc := ""
		if len(args) > 0 && !arg(args, 0).IsUndefined() {
			desc = t.ToString(arg(args, 0))
		}
		id := nextUserSymbolID
		nextUserSymbolID++
		return t.Heap.NewSymbol(id, desc), nil
	})
	r.staticMethod(r.symbolCtor, "for", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		key := t.ToString(arg(args, 0))
		id, ok := symbolRegistry[key]
		if !ok {
			id = nextUserSymbolID
			nextUserSymbolID++
			symbolRegistry[key] = id
		}
		return t.Heap.NewSymbol(id, key), nil
	})

	cl, _ := t.Heap.Closure(r.symbolCtor)
	for id, name := range wellKnownPropName {
		defineValue(cl.Statics, strKey(name), r.wk.get(id), false, false, false)
	}
}
