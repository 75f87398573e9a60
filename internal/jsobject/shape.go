package jsobject

import "sync"

// ShapeID is a shape's identity, used for IC keying (spec.md section
// 3.2: "a shape carries an identity used for inline-cache keying").
type ShapeID uint64

// Attributes mirror a data property's writable/enumerable/configurable
// trio, or an accessor's enumerable/configurable pair.
type Attributes struct {
	Writable     bool
	Enumerable   bool
	Configurable bool
}

var DefaultAttributes = Attributes{Writable: true, Enumerable: true, Configurable: true}

// shapeEdgeKey identifies a child shape: "(parent_shape_id,
// property_key, attributes)" per spec.md section 3.3.
type shapeEdgeKey struct {
	key   interface{}
	attrs Attributes
}

// Shape is an immutable node in the tree of property layouts (spec.md
// section 3.2). Adding a property follows or creates a child edge;
// shapes are shared across every object with the same layout history.
type Shape struct {
	id       ShapeID
	parent   *Shape
	key      PropertyKey // the property this shape's edge added, zero Shape has none
	attrs    Attributes
	offset   int // slot offset this edge assigned (append-only, invariant I1)
	slotName interface{}

	mu       sync.Mutex
	children map[shapeEdgeKey]*Shape

	// size is the number of named-property slots an object with this
	// shape occupies; equals parent.size+1 except for the root.
	size int
}

// Graph is a process-wide-per-realm root for a shape tree (spec.md
// section 3.3: "Process-wide shape root per realm"), plus the
// proto_epoch counter ICs compare cached epochs against.
type Graph struct {
	mu   sync.Mutex
	root *Shape
	next ShapeID

	protoEpochMu sync.Mutex
	protoEpoch   uint64
}

func NewGraph() *Graph {
	g := &Graph{}
	g.next++
	g.root = &Shape{id: g.next, children: make(map[shapeEdgeKey]*Shape)}
	return g
}

// Root returns the empty shape every new ordinary object starts from.
func (g *Graph) Root() *Shape { return g.root }

// Transition returns the child shape reached by adding key with attrs
// to a base object of shape s, creating the child edge on first use.
// Two objects that each install the same property sequence converge
// on identical shape identity (spec.md testable property).
func (g *Graph) Transition(s *Shape, key PropertyKey, attrs Attributes) *Shape {
	edge := shapeEdgeKey{key: key.cacheKey(), attrs: attrs}

	s.mu.Lock()
	if child, ok := s.children[edge]; ok {
		s.mu.Unlock()
		return child
	}
	s.mu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if child, ok := s.children[edge]; ok {
		return child
	}
	g.next++
	child := &Shape{
		id:       g.next,
		parent:   s,
		key:      key,
		attrs:    attrs,
		offset:   s.size, // I1: append-only
		children: make(map[shapeEdgeKey]*Shape),
		size:     s.size + 1,
	}
	s.children[edge] = child
	return child
}

// Offset returns the slot offset for key under shape s, walking up the
// shape's own lineage (not the prototype chain - that's object-level).
// Implements "shape.offset(key) -> slot" from invariant I2.
func (s *Shape) Offset(key PropertyKey) (offset int, attrs Attributes, ok bool) {
	for cur := s; cur != nil && cur.parent != nil; cur = cur.parent {
		if cur.key.cacheKey() == key.cacheKey() {
			return cur.offset, cur.attrs, true
		}
	}
	return 0, Attributes{}, false
}

func (s *Shape) ID() ShapeID { return s.id }
func (s *Shape) Size() int   { return s.size }

// BumpProtoEpoch increments the realm-wide proto_epoch counter. Called
// whenever any prototype in the realm is reassigned (spec.md section
// 3.3); ICs compare their cached epoch and invalidate on mismatch.
func (g *Graph) BumpProtoEpoch() uint64 {
	g.protoEpochMu.Lock()
	defer g.protoEpochMu.Unlock()
	g.protoEpoch++
	return g.protoEpoch
}

func (g *Graph) ProtoEpoch() uint64 {
	g.protoEpochMu.Lock()
	defer g.protoEpochMu.Unlock()
	return g.protoEpoch
}
