package jsobject

import (
	"errors"

	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// ErrNotExtensible and ErrNotWritable surface as TypeError in strict
// mode (spec.md section 4.C "Failure semantics"); sloppy-mode callers
// are expected to ignore these and silently no-op instead.
var (
	ErrNotExtensible   = errors.New("jsobject: object is not extensible")
	ErrNotWritable     = errors.New("jsobject: property is not writable")
	ErrNotConfigurable = errors.New("jsobject: property is not configurable")
)

// Receiver-aware getter/setter invocation is supplied by the caller
// (internal/interp), since only the interpreter knows how to call back
// into JS. CallFunc is that seam.
type CallFunc func(callee jsvalue.Value, this jsvalue.Value, args []jsvalue.Value) (jsvalue.Value, error)

// Get implements property lookup: own-property shape/dict/elements
// lookup, then walk [[Prototype]] on miss, invoking accessors with the
// given receiver. It does not consult IC state - that's a concern of
// internal/jsobject/ic.go plus the interpreter/JIT fast paths built on
// top of this slow path.
func Get(o *Object, key PropertyKey, receiver jsvalue.Value, call CallFunc) (jsvalue.Value, error) {
	for cur := o; cur != nil; cur = cur.prototype {
		if d, ok := cur.getOwn(key); ok {
			if d.IsAccessor {
				if d.Getter.IsUndefined() {
					return jsvalue.Undefined, nil
				}
				return call(d.Getter, receiver, nil)
			}
			return d.Value, nil
		}
	}
	return jsvalue.Undefined, nil
}

// Has implements the `in` operator: own or inherited property
// presence, ignoring accessors/values.
func Has(o *Object, key PropertyKey) bool {
	for cur := o; cur != nil; cur = cur.prototype {
		if _, ok := cur.getOwn(key); ok {
			return true
		}
	}
	return false
}

func HasOwn(o *Object, key PropertyKey) bool {
	_, ok := o.getOwn(key)
	return ok
}

// getOwn reads descriptor for an own key, dispatching to the
// array-exotic elements store for Index keys on array objects.
func (o *Object) getOwn(key PropertyKey) (PropertyDescriptor, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.flags.IsArray && key.Kind() == KeyIndex {
		i := int(key.Index())
		if i >= 0 && i < len(o.elements) {
			return PropertyDescriptor{Value: o.elements[i], Writable: true, Enumerable: true, Configurable: true}, true
		}
		return PropertyDescriptor{}, false
	}

	if o.flags.IsDictionaryMode {
		e, ok := o.dict[key.cacheKey()]
		if !ok {
			return PropertyDescriptor{}, false
		}
		return e.desc, true
	}

	if o.shape == nil {
		return PropertyDescriptor{}, false
	}
	off, attrs, ok := o.shape.Offset(key)
	if !ok {
		return PropertyDescriptor{}, false
	}
	d := o.descr[off]
	d.Enumerable, d.Configurable = attrs.Enumerable, attrs.Configurable
	return d, true
}

// Set implements property assignment: own-slot write when the key is
// already installed with writable:true, a new shape-transitioning
// install when absent (spec.md "Adding a new own data property ...
// follows a child edge or creates one"), or delegation to a setter.
// strict controls whether a rejected write returns ErrNotWritable /
// ErrNotExtensible (strict mode -> TypeError) or silently succeeds
// as a no-op (sloppy mode).
func Set(o *Object, key PropertyKey, v jsvalue.Value, receiver jsvalue.Value, strict bool, call CallFunc) error {
	if o.flags.IsArray && key.Kind() == KeyIndex {
		return o.setElement(key.Index(), v, strict)
	}

	o.mu.Lock()
	if o.flags.IsDictionaryMode {
		if e, ok := o.dict[key.cacheKey()]; ok {
			if e.desc.IsAccessor {
				setter := e.desc.Setter
				o.mu.Unlock()
				if setter.IsUndefined() {
					return rejectOrSilent(strict, ErrNotWritable)
				}
				_, err := call(setter, receiver, []jsvalue.Value{v})
				return err
			}
			if !e.desc.Writable {
				o.mu.Unlock()
				return rejectOrSilent(strict, ErrNotWritable)
			}
			e.desc.Value = v
			o.mu.Unlock()
			return nil
		}
		if !o.flags.IsExtensible {
			o.mu.Unlock()
			return rejectOrSilent(strict, ErrNotExtensible)
		}
		o.dict[key.cacheKey()] = &dictEntry{key: key, desc: PropertyDescriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}}
		o.mu.Unlock()
		return nil
	}

	if off, attrs, ok := o.shape.Offset(key); ok {
		if o.descr[off].IsAccessor {
			setter := o.descr[off].Setter
			o.mu.Unlock()
			if setter.IsUndefined() {
				return rejectOrSilent(strict, ErrNotWritable)
			}
			_, err := call(setter, receiver, []jsvalue.Value{v})
			return err
		}
		if !attrs.Writable {
			o.mu.Unlock()
			return rejectOrSilent(strict, ErrNotWritable)
		}
		o.slots[off] = v
		o.descr[off].Value = v
		o.mu.Unlock()
		return nil
	}

	if !o.flags.IsExtensible {
		o.mu.Unlock()
		return rejectOrSilent(strict, ErrNotExtensible)
	}
	o.mu.Unlock()
	return DefineProperty(o, key, PropertyDescriptor{Value: v, Writable: true, Enumerable: true, Configurable: true})
}

func rejectOrSilent(strict bool, err error) error {
	if strict {
		return err
	}
	return nil
}

func (o *Object) setElement(index uint32, v jsvalue.Value, strict bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := int(index)
	if i < len(o.elements) {
		o.elements[i] = v
		return nil
	}
	if i == len(o.elements) {
		o.elements = append(o.elements, v)
		return nil
	}
	// "assigning past length extends" - fill the gap with Undefined
	// holes (a dense approximation of a sparse array; sparse storage
	// is out of scope, matching the teacher's own dense-by-default
	// element stores).
	grown := make([]jsvalue.Value, i+1)
	copy(grown, o.elements)
	for j := len(o.elements); j < i; j++ {
		grown[j] = jsvalue.Undefined
	}
	grown[i] = v
	o.elements = grown
	return nil
}

// DefineProperty installs or reconfigures key per the full
// Object.defineProperty semantics subset this engine needs: installing
// a brand-new own data property follows or creates a shape child edge
// (invariant I1); redefining an existing property's attributes, or
// defining an accessor where a data property existed, forces
// dictionary mode (spec.md "Changing attributes ... forces dictionary
// mode").
func DefineProperty(o *Object, key PropertyKey, d PropertyDescriptor) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.flags.IsArray && key.Kind() == KeyIndex && !d.IsAccessor {
		i := int(key.Index())
		o.mu.Unlock()
		err := o.setElement(uint32(i), d.Value, false)
		o.mu.Lock()
		return err
	}

	if o.flags.IsDictionaryMode {
		o.dict[key.cacheKey()] = &dictEntry{key: key, desc: d}
		return nil
	}

	// Installing fresh: follow/create the shape edge only when this is
	// a brand-new key with default-shaped attributes and no existing
	// entry to reconcile.
	if _, _, exists := o.shape.Offset(key); !exists {
		attrs := Attributes{Writable: d.Writable, Enumerable: d.Enumerable, Configurable: d.Configurable}
		child := o.graph.Transition(o.shape, key, attrs)
		o.shape = child
		o.slots = append(o.slots, d.Value)
		o.descr = append(o.descr, d)
		return nil
	}

	// Redefining an existing own property's attributes/kind cannot be
	// represented by the append-only shape tree: demote.
	o.demoteToDictionaryLocked()
	o.dict[key.cacheKey()] = &dictEntry{key: key, desc: d}
	return nil
}

// demoteToDictionaryLocked assumes o.mu is already held.
func (o *Object) demoteToDictionaryLocked() { o.demoteToDictionary() }

func DefineAccessor(o *Object, key PropertyKey, getter, setter jsvalue.Value, enumerable, configurable bool) error {
	return DefineProperty(o, key, PropertyDescriptor{
		IsAccessor: true, Getter: getter, Setter: setter,
		Enumerable: enumerable, Configurable: configurable,
	})
}

func GetOwnPropertyDescriptor(o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	return o.getOwn(key)
}

// Delete removes an own property. Deleting an array index overwrites
// the element with Undefined in place; deleting any other existing
// property always forces dictionary mode (spec.md: "a shape's offset assignments are
// append-only" - a hole can't be represented in the shape tree), even
// if the object doesn't already have one; the testable property in
// spec.md section 8 requires the prior shape never be reused after.
func Delete(o *Object, key PropertyKey) (bool, error) {
	if o.flags.IsArray && key.Kind() == KeyIndex {
		o.mu.Lock()
		defer o.mu.Unlock()
		i := int(key.Index())
		if i >= 0 && i < len(o.elements) {
			o.elements[i] = jsvalue.Undefined
			return true, nil
		}
		return false, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.flags.IsDictionaryMode {
		if e, ok := o.dict[key.cacheKey()]; ok {
			if !e.desc.Configurable {
				return false, ErrNotConfigurable
			}
			delete(o.dict, key.cacheKey())
			return true, nil
		}
		return false, nil
	}

	if _, attrs, ok := o.shape.Offset(key); ok {
		if !attrs.Configurable {
			return false, ErrNotConfigurable
		}
		o.demoteToDictionary()
		delete(o.dict, key.cacheKey())
		return true, nil
	}
	return false, nil
}

// Keys returns own enumerable-first keys in the ECMAScript ordering
// subset this engine supports: integer indices ascending, then string
// keys in insertion (shape-offset) order, then symbols.
func Keys(o *Object) []PropertyKey {
	o.mu.Lock()
	defer o.mu.Unlock()

	var indices []PropertyKey
	var strs []PropertyKey
	var syms []PropertyKey

	if o.flags.IsArray {
		for i := range o.elements {
			indices = append(indices, IndexKey(uint32(i)))
		}
	}

	if o.flags.IsDictionaryMode {
		for _, e := range o.dict {
			classify(e.key, &indices, &strs, &syms)
		}
	} else if o.shape != nil {
		chain := shapeChain(o.shape)
		for _, s := range chain {
			classify(s.key, &indices, &strs, &syms)
		}
	}

	out := append(indices, strs...)
	return append(out, syms...)
}

func classify(k PropertyKey, indices, strs, syms *[]PropertyKey) {
	switch k.Kind() {
	case KeyIndex:
		*indices = append(*indices, k)
	case KeyString:
		*strs = append(*strs, k)
	case KeySymbol:
		*syms = append(*syms, k)
	}
}

// shapeChain walks from root to s, returning edges in installation order.
func shapeChain(s *Shape) []*Shape {
	var rev []*Shape
	for cur := s; cur != nil && cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur)
	}
	out := make([]*Shape, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}
