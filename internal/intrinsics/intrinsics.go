// Package intrinsics implements spec.md section 4.F's built-in object
// bootstrap: the fixed set of prototypes, constructors and global
// bindings every realm starts with (Object, Function, Array, String,
// Number, Boolean, Symbol, the Error family, Promise, Map/Set/WeakMap/
// WeakSet, RegExp, Date, Proxy, Reflect, Math, JSON, the shared
// iterator prototype, and the TypedArray/ArrayBuffer/DataView group).
//
// Grounded on the teacher's module-instantiation split (internal/wasm:
// a module is first *compiled* - its types and static shape fixed -
// and only then *instantiated* against a store, wiring imports and
// running start functions). Bootstrap mirrors that as two stages:
// Allocate creates every prototype object with a nil [[Prototype]]
// (the "compiled, not yet linked" state), then wire/populate chain
// them together and attach methods (the "instantiated" state) before
// anything is installed on the global object.
package intrinsics

import (
	"math"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// Realm holds every intrinsic prototype and constructor a bootstrapped
// VmThread needs to refer back to afterward (internal/vm stashes this
// alongside the thread; nothing in bytecode.Module references it
// directly - lookups happen through the global object or, for the
// handful the interpreter consults on its fast paths, through the
// VmThread.ObjectPrototype/ArrayPrototype/FunctionPrototype fields).
type Realm struct {
	t *interp.VmThread

	wk *wellKnown

	ObjectProto      *jsobject.Object
	FunctionProto    *jsobject.Object
	ArrayProto       *jsobject.Object
	StringProto      *jsobject.Object
	NumberProto      *jsobject.Object
	BooleanProto     *jsobject.Object
	SymbolProto      *jsobject.Object
	ErrorProto       *jsobject.Object
	subErrorProtos   map[string]*jsobject.Object
	PromiseProto     *jsobject.Object
	MapProto         *jsobject.Object
	SetProto         *jsobject.Object
	WeakMapProto     *jsobject.Object
	WeakSetProto     *jsobject.Object
	RegExpProto      *jsobject.Object
	DateProto        *jsobject.Object
	IteratorProto    *jsobject.Object
	TypedArrayProto  *jsobject.Object
	typedArrayProtos map[jsobject.TypedArrayKind]*jsobject.Object
	ArrayBufferProto *jsobject.Object
	DataViewProto    *jsobject.Object

	MathObj    *jsobject.Object
	JSONObj    *jsobject.Object
	ReflectObj *jsobject.Object

	ZonedDateTimeProto *jsobject.Object
	TemporalObj        *jsobject.Object

	errorCtors map[string]jsvalue.Value

	objectCtor        jsvalue.Value
	functionCtor      jsvalue.Value
	arrayCtor         jsvalue.Value
	stringCtor        jsvalue.Value
	numberCtor        jsvalue.Value
	booleanCtor       jsvalue.Value
	symbolCtor        jsvalue.Value
	promiseCtor       jsvalue.Value
	mapCtor           jsvalue.Value
	setCtor           jsvalue.Value
	weakMapCtor       jsvalue.Value
	weakSetCtor       jsvalue.Value
	regexpCtor        jsvalue.Value
	dateCtor          jsvalue.Value
	proxyCtor         jsvalue.Value
	arrayBufferCtor   jsvalue.Value
	dataViewCtor      jsvalue.Value
	typedArrayCtors   map[jsobject.TypedArrayKind]jsvalue.Value
	zonedDateTimeCtor jsvalue.Value
}

// Bootstrap installs a full set of intrinsics on t and returns the
// Realm, following the Allocate -> Wire -> Populate -> Install
// sequence spec.md section 4.F requires. Must run exactly once per
// VmThread, before any user bytecode executes.
func Bootstrap(t *interp.VmThread) *Realm {
	r := &Realm{
		t:                t,
		subErrorProtos:   map[string]*jsobject.Object{},
		typedArrayProtos: map[jsobject.TypedArrayKind]*jsobject.Object{},
		errorCtors:       map[string]jsvalue.Value{},
		typedArrayCtors:  map[jsobject.TypedArrayKind]jsvalue.Value{},
	}
	r.allocate()
	r.wire()
	r.wk = newWellKnown(t)
	r.populate()
	r.install()
	// Everything allocated up to here - prototypes, constructors,
	// method closures, well-known symbols, the global's own cell - is
	// the shared built-in graph; protect all of it from per-context
	// collection and non-process-exit teardown.
	t.Heap.Registry().MarkAllIntrinsic()
	return r
}

// allocate creates every prototype object up front with a nil
// [[Prototype]]; wire() fixes up the chain in a second pass so that no
// prototype's construction order has to match its place in the chain.
func (r *Realm) allocate() {
	t := r.t
	mk := func() *jsobject.Object {
		o := jsobject.New(t.Graph, nil)
		o.MarkIntrinsic()
		t.Heap.AdoptObject(o)
		return o
	}
	r.ObjectProto = mk()
	r.FunctionProto = mk()
	r.ArrayProto = mk()
	r.StringProto = mk()
	r.NumberProto = mk()
	r.BooleanProto = mk()
	r.SymbolProto = mk()
	r.ErrorProto = mk()
	for _, name := range errorSubclasses {
		r.subErrorProtos[name] = mk()
	}
	r.PromiseProto = mk()
	r.MapProto = mk()
	r.SetProto = mk()
	r.WeakMapProto = mk()
	r.WeakSetProto = mk()
	r.RegExpProto = mk()
	r.DateProto = mk()
	r.IteratorProto = mk()
	r.TypedArrayProto = mk()
	for _, k := range typedArrayKinds {
		r.typedArrayProtos[k] = mk()
	}
	r.ArrayBufferProto = mk()
	r.DataViewProto = mk()

	r.MathObj = mk()
	r.JSONObj = mk()
	r.ReflectObj = mk()

	r.ZonedDateTimeProto = mk()
	r.TemporalObj = mk()
}

// wire links every prototype's [[Prototype]] into the chain ECMAScript
// specifies, all rooted at %Object.prototype%.
func (r *Realm) wire() {
	op := r.ObjectProto
	set := func(o *jsobject.Object) { o.SetPrototype(op) }

	set(r.FunctionProto)
	set(r.ArrayProto)
	set(r.StringProto)
	set(r.NumberProto)
	set(r.BooleanProto)
	set(r.SymbolProto)
	set(r.ErrorProto)
	for _, proto := range r.subErrorProtos {
		proto.SetPrototype(r.ErrorProto)
	}
	set(r.PromiseProto)
	set(r.MapProto)
	set(r.SetProto)
	set(r.WeakMapProto)
	set(r.WeakSetProto)
	set(r.RegExpProto)
	set(r.DateProto)
	set(r.IteratorProto)
	r.TypedArrayProto.SetPrototype(op)
	for _, proto := range r.typedArrayProtos {
		proto.SetPrototype(r.TypedArrayProto)
	}
	set(r.ArrayBufferProto)
	set(r.DataViewProto)
	set(r.MathObj)
	set(r.JSONObj)
	set(r.ReflectObj)
	set(r.ZonedDateTimeProto)
	set(r.TemporalObj)

	// Let the interpreter's fast paths (array/object/closure literals,
	// `new` with no explicit .prototype) see the real chain from here
	// on, per VmThread's own doc comment on these fields.
	r.t.ObjectPrototype = r.ObjectProto
	r.t.ArrayPrototype = r.ArrayProto
	r.t.FunctionPrototype = r.FunctionProto
}

// populate attaches every constructor/method this realm exposes.
// Split one function per built-in family (object.go, array.go, ...)
// so each stays small and separately groundable, matching the
// teacher's one-file-per-builder layout (builder.go vs config.go vs
// cache.go all cover one concern each).
func (r *Realm) populate() {
	r.populateObject()
	r.populateFunction()
	r.populateArray()
	r.populateString()
	r.populateNumber()
	r.populateBoolean()
	r.populateSymbol()
	r.populateErrors()
	r.populatePromise()
	r.populateMapSet()
	r.populateRegExp()
	r.populateDate()
	r.populateProxyReflect()
	r.populateMath()
	r.populateJSON()
	r.populateIterator()
	r.populateTypedArray()
	r.populateTemporal()
}

// install binds every constructor/namespace object onto the global
// object, the last of the two stages (compile vs instantiate) this
// package's doc comment describes.
func (r *Realm) install() {
	g := r.t.Global
	bind := func(name string, v jsvalue.Value) {
		_ = jsobject.DefineProperty(g, strKey(name), jsobject.PropertyDescriptor{Value: v, Writable: true, Configurable: true})
	}
	bind("Object", r.objectCtor)
	bind("Function", r.functionCtor)
	bind("Array", r.arrayCtor)
	bind("String", r.stringCtor)
	bind("Number", r.numberCtor)
	bind("Boolean", r.booleanCtor)
	bind("Symbol", r.symbolCtor)
	bind("Error", r.errorCtors["Error"])
	for _, name := range errorSubclasses {
		bind(name, r.errorCtors[name])
	}
	bind("Promise", r.promiseCtor)
	bind("Map", r.mapCtor)
	bind("Set", r.setCtor)
	bind("WeakMap", r.weakMapCtor)
	bind("WeakSet", r.weakSetCtor)
	bind("RegExp", r.regexpCtor)
	bind("Date", r.dateCtor)
	bind("Proxy", r.proxyCtor)
	bind("Reflect", r.t.Heap.ValueForObject(r.ReflectObj))
	bind("Math", r.t.Heap.ValueForObject(r.MathObj))
	bind("JSON", r.t.Heap.ValueForObject(r.JSONObj))
	for _, k := range typedArrayKinds {
		bind(typedArrayCtorName(k), r.typedArrayCtors[k])
	}
	bind("ArrayBuffer", r.arrayBufferCtor)
	bind("DataView", r.dataViewCtor)
	defineValue(r.TemporalObj, strKey("ZonedDateTime"), r.zonedDateTimeCtor, true, false, true)
	bind("Temporal", r.t.Heap.ValueForObject(r.TemporalObj))
	bind("globalThis", r.t.GlobalValue)
	bind("undefined", jsvalue.Undefined)
	bind("NaN", jsvalue.NaN)
	bind("Infinity", jsvalue.Number(math.Inf(1)))

	// newErrorValue's fallback (thread.go) is no longer needed once a
	// real Error family exists: route every interpreter-raised error
	// through it so `instanceof TypeError` works on host-thrown errors
	// too.
	r.t.ErrorFactory = r.makeError

	// Promise cells, like TypedArray/DataView ones, are not CellObject
	// cells with a [[Prototype]] slot; this hook lets getProperty
	// reach %Promise.prototype%'s then/catch/finally.
	r.t.PromiseProtoObject = func() *jsobject.Object { return r.PromiseProto }
}

// strKey is a tiny helper shared by every populate* file.
func strKey(s string) jsobject.PropertyKey { return jsobject.StringKey(jsvalue.Intern(s)) }
