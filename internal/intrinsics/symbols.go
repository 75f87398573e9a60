package intrinsics

import (
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// wellKnownID is the fixed, process-stable numeric id spec.md section
// 4.F gives every well-known symbol: two realms' Symbol.iterator
// compare equal because they share this id, not because they share a
// heap cell, the same trick the teacher's internal/u64 table uses for
// its own fixed-id lookups.
type wellKnownID uint64

const (
	symIterator wellKnownID = iota + 1
	symAsyncIterator
	symHasInstance
	symToPrimitive
	symToStringTag
	symUnscopables
	symSpecies
	symIsConcatSpreadable
	symMatch
	symReplace
	symSearch
	symSplit
)

var wellKnownNames = map[wellKnownID]string{
	symIterator:           "Symbol.iterator",
	symAsyncIterator:      "Symbol.asyncIterator",
	symHasInstance:        "Symbol.hasInstance",
	symToPrimitive:        "Symbol.toPrimitive",
	symToStringTag:        "Symbol.toStringTag",
	symUnscopables:        "Symbol.unscopables",
	symSpecies:            "Symbol.species",
	symIsConcatSpreadable: "Symbol.isConcatSpreadable",
	symMatch:              "Symbol.match",
	symReplace:            "Symbol.replace",
	symSearch:             "Symbol.search",
	symSplit:              "Symbol.split",
}

// wellKnown caches each well-known symbol's heap Value so repeated
// lookups through get return the exact same Value bit pattern rather
// than allocating afresh.
type wellKnown struct {
	values map[wellKnownID]jsvalue.Value
}

func newWellKnown(t *interp.VmThread) *wellKnown {
	wk := &wellKnown{values: make(map[wellKnownID]jsvalue.Value, len(wellKnownNames))}
	for id, name := range wellKnownNames {
		wk.values[id] = t.Heap.NewSymbol(uint64(id), name)
	}
	return wk
}

func (wk *wellKnown) get(id wellKnownID) jsvalue.Value { return wk.values[id] }

// nextUserSymbolID starts well above the fixed well-known-symbol
// range so an ordinary `Symbol(desc)` call (the Symbol constructor in
// symbol.go's populateSymbol) never collides with one of the ids above.
var nextUserSymbolID uint64 = 1 << 32
