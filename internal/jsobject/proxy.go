package jsobject

import "github.com/octofhir/otter-vm/internal/jsvalue"

// Proxy is "{ target, handler }" from spec.md section 4.C. Every
// operation consults the handler trap if present, else falls through
// to the target. Proxies are always megamorphic to the IC (see ic.go).
type Proxy struct {
	Target  *Object
	Handler *Object
}

// Trap looks up a named trap function on the handler, returning
// (fn, true) if present and callable, else (_, false) so the caller
// falls through to the target operation.
func (p *Proxy) Trap(name string, handlerGet func(handler *Object, key PropertyKey) (jsvalue.Value, bool)) (jsvalue.Value, bool) {
	if p.Handler == nil {
		return jsvalue.Undefined, false
	}
	key := StringKey(jsvalue.Intern(name))
	v, ok := handlerGet(p.Handler, key)
	if !ok || v.IsUndefined() {
		return jsvalue.Undefined, false
	}
	return v, true
}

// ProxyGet implements the get trap per spec.md: if handler defines
// "get", invoke it with (target, key, receiver); else defer to target.
func ProxyGet(p *Proxy, key PropertyKey, receiver jsvalue.Value, call CallFunc) (jsvalue.Value, error) {
	if trap, ok := p.Trap("get", func(h *Object, k PropertyKey) (jsvalue.Value, bool) {
		v, _ := Get(h, k, jsvalue.Undefined, call)
		return v, !v.IsUndefined()
	}); ok {
		return call(trap, jsvalue.Undefined, []jsvalue.Value{jsvalue.Undefined, jsvalue.Undefined, receiver})
	}
	return Get(p.Target, key, receiver, call)
}

// ProxySet mirrors ProxyGet for the "set" trap.
func ProxySet(p *Proxy, key PropertyKey, v jsvalue.Value, receiver jsvalue.Value, strict bool, call CallFunc) error {
	if trap, ok := p.Trap("set", func(h *Object, k PropertyKey) (jsvalue.Value, bool) {
		gv, _ := Get(h, k, jsvalue.Undefined, call)
		return gv, !gv.IsUndefined()
	}); ok {
		_, err := call(trap, jsvalue.Undefined, []jsvalue.Value{jsvalue.Undefined, jsvalue.Undefined, v, receiver})
		return err
	}
	return Set(p.Target, key, v, receiver, strict, call)
}

// ProxyHas mirrors the "has" trap for the `in` operator.
func ProxyHas(p *Proxy, key PropertyKey, call CallFunc) bool {
	if trap, ok := p.Trap("has", func(h *Object, k PropertyKey) (jsvalue.Value, bool) {
		gv, _ := Get(h, k, jsvalue.Undefined, call)
		return gv, !gv.IsUndefined()
	}); ok {
		v, err := call(trap, jsvalue.Undefined, []jsvalue.Value{jsvalue.Undefined})
		if err != nil {
			return false
		}
		b, _ := v.AsBoolean()
		return b
	}
	return Has(p.Target, key)
}
