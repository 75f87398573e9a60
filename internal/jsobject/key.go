// Package jsobject implements the shape-based object model described
// in spec.md section 3.2/3.3/4.C: shapes, property descriptors,
// array-exotic elements, accessors, proxies, and the per-site inline
// cache state machine.
package jsobject

import "fmt"

// KeyKind discriminates the PropertyKey union.
type KeyKind uint8

const (
	KeyString KeyKind = iota
	KeyIndex
	KeySymbol
)

// PropertyKey is "one of: String (interned), Index (u32, for
// array-style numeric keys), Symbol (identified by u64 id, with
// optional description)" per spec.md section 4.C.
type PropertyKey struct {
	kind    KeyKind
	strID   uint64 // interned string id, valid when kind==KeyString
	index   uint32 // valid when kind==KeyIndex
	symID   uint64 // well-known/user symbol id, valid when kind==KeySymbol
	symDesc string
}

func StringKey(internedID uint64) PropertyKey { return PropertyKey{kind: KeyString, strID: internedID} }
func IndexKey(i uint32) PropertyKey           { return PropertyKey{kind: KeyIndex, index: i} }
func SymbolKey(id uint64, desc string) PropertyKey {
	return PropertyKey{kind: KeySymbol, symID: id, symDesc: desc}
}

func (k PropertyKey) Kind() KeyKind    { return k.kind }
func (k PropertyKey) StringID() uint64 { return k.strID }
func (k PropertyKey) Index() uint32    { return k.index }
func (k PropertyKey) SymbolID() uint64 { return k.symID }

// cacheKey flattens a PropertyKey into a comparable Go value usable as
// a map key (shape child-edge lookup, dictionary-mode storage).
func (k PropertyKey) cacheKey() interface{} {
	switch k.kind {
	case KeyString:
		return [2]interface{}{KeyString, k.strID}
	case KeyIndex:
		return [2]interface{}{KeyIndex, k.index}
	default:
		return [2]interface{}{KeySymbol, k.symID}
	}
}

func (k PropertyKey) String() string {
	switch k.kind {
	case KeyString:
		return fmt.Sprintf("str#%d", k.strID)
	case KeyIndex:
		return fmt.Sprintf("%d", k.index)
	default:
		return fmt.Sprintf("Symbol(%s)", k.symDesc)
	}
}
