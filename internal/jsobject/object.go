package jsobject

import (
	"sync"

	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// PropertyDescriptor is either a data descriptor or an accessor
// descriptor, per spec.md section 3.2.
type PropertyDescriptor struct {
	IsAccessor bool

	// Data descriptor fields.
	Value    jsvalue.Value
	Writable bool

	// Accessor descriptor fields. Getter/Setter are Values holding a
	// callable (function, bound function, ...); Undefined if absent.
	Getter jsvalue.Value
	Setter jsvalue.Value

	Enumerable   bool
	Configurable bool
}

// Flags mirrors spec.md section 3.2's object flags field.
type Flags struct {
	IsArray          bool
	IsDictionaryMode bool
	IsFrozen         bool
	IsSealed         bool
	IsIntrinsic      bool
	IsExtensible     bool

	// Exotic-object marks.
	StringPrimitive bool
	TypedArrayKind  TypedArrayKind
}

// Object is "{ shape, inline-slots, overflow-slots?, elements?,
// prototype, flags }" from spec.md section 3.2.
type Object struct {
	mu sync.Mutex

	graph *Graph
	shape *Shape // nil when IsDictionaryMode

	// slots holds named-property values in shape-slot order when not
	// in dictionary mode.
	slots []jsvalue.Value
	descr []PropertyDescriptor // parallel to slots; IsAccessor/attrs only, Value mirrors slots[i] for data props

	// dict replaces shape+slots once the object demotes to dictionary
	// mode (excessive shape fanout, or an attribute mutation shape
	// sharing can't represent).
	dict map[interface{}]*dictEntry

	elements  []jsvalue.Value // array-exotic indexed storage
	prototype *Object

	flags Flags

	// protoEpochAtCreation isn't needed on the object itself; ICs
	// snapshot Graph.ProtoEpoch() independently.
}

type dictEntry struct {
	key  PropertyKey
	desc PropertyDescriptor
}

// New creates a plain object with the given prototype (nil for
// %Object.prototype%'s own prototype-less root) under graph's shape
// tree.
func New(graph *Graph, prototype *Object) *Object {
	return &Object{
		graph:     graph,
		shape:     graph.Root(),
		prototype: prototype,
		flags:     Flags{IsExtensible: true},
	}
}

func (o *Object) Prototype() *Object { return o.prototype }

// SetPrototype reassigns [[Prototype]] and bumps the realm's
// proto_epoch, invalidating every IC keyed on an older epoch (spec.md
// section 3.3).
func (o *Object) SetPrototype(p *Object) {
	o.mu.Lock()
	o.prototype = p
	o.mu.Unlock()
	o.graph.BumpProtoEpoch()
}

func (o *Object) IsArray() bool { return o.flags.IsArray }

// MarkAsArray sets the array-exotic flag; elements become the backing
// store for indexed properties and length tracks len(elements).
func (o *Object) MarkAsArray() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flags.IsArray = true
}

// Length returns the array-exotic element count (spec.md's array
// `length` is derived from elements, not stored as its own slot).
// Meaningless (and always 0) for a non-array object.
func (o *Object) Length() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.elements)
}

// SetLength truncates or extends the array-exotic element store to n,
// padding new slots with Undefined, per the `array.length = n`
// assignment semantics.
func (o *Object) SetLength(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n <= len(o.elements) {
		o.elements = o.elements[:n]
		return
	}
	grown := make([]jsvalue.Value, n)
	copy(grown, o.elements)
	for i := len(o.elements); i < n; i++ {
		grown[i] = jsvalue.Undefined
	}
	o.elements = grown
}

// Elements returns the array-exotic backing store directly, for
// callers (internal/interp's array-literal and iterator support) that
// need bulk access without going through per-index PropertyKey Gets.
func (o *Object) Elements() []jsvalue.Value {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.elements
}

// AppendElement pushes v onto the array-exotic element store.
func (o *Object) AppendElement(v jsvalue.Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.elements = append(o.elements, v)
}

func (o *Object) IsDictionaryMode() bool { return o.flags.IsDictionaryMode }
func (o *Object) IsIntrinsic() bool      { return o.flags.IsIntrinsic }
func (o *Object) MarkIntrinsic()         { o.flags.IsIntrinsic = true }
func (o *Object) Shape() *Shape          { return o.shape }
func (o *Object) Flags() Flags           { return o.flags }

// demoteToDictionary forces dictionary mode (spec.md section 4.C
// "Shape transitions": "Changing attributes or deleting mid-layout
// forces dictionary mode"). Once demoted, an object never returns to
// shape-sharing (invariant checked by the IC never re-attaching).
func (o *Object) demoteToDictionary() {
	if o.flags.IsDictionaryMode {
		return
	}
	dict := make(map[interface{}]*dictEntry, len(o.slots))
	if o.shape != nil {
		for cur := o.shape; cur != nil && cur.parent != nil; cur = cur.parent {
			off := cur.offset
			if off >= len(o.descr) {
				continue
			}
			k := cur.key
			if _, exists := dict[k.cacheKey()]; exists {
				continue
			}
			d := o.descr[off]
			dict[k.cacheKey()] = &dictEntry{key: k, desc: d}
		}
	}
	o.dict = dict
	o.shape = nil
	o.slots = nil
	o.descr = nil
	o.flags.IsDictionaryMode = true
}
