package intrinsics

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// regexpData backs every RegExp instance with its compiled pattern,
// following the same per-object side-table shape as mapset.go's
// collectionData and date.go's datePayloads - a RegExp's [[lastIndex]]
// is its one piece of mutable internal state, same as Date's
// [[DateValue]].
type regexpData struct {
	re        *regexp2.Regexp
	source    string
	flags     string
	lastIndex int
}

var regexpPayloads = map[*jsobject.Object]*regexpData{}

// populateRegExp builds RegExp.prototype (test/exec/toString, plus
// source/flags/global/ignoreCase/multiline/sticky/unicode/dotAll as
// plain instance data properties set at construction rather than true
// accessors, matching how this realm's Date/Error instances expose
// their own fixed-at-construction state) and the RegExp constructor.
//
// Grounded on github.com/dlclark/regexp2 (seen as an indirect
// dependency of the JS-engine-shaped repos in the retrieval pack,
// e.g. nooga-paserati's go.mod) rather than the teacher's own stack:
// stdlib regexp is RE2-based and cannot express backreferences or
// lookaround the way ECMAScript regex syntax requires, so no
// standard-library rendition can serve this intrinsic faithfully.
func (r *Realm) populateRegExp() {
	t := r.t
	proto := r.RegExpProto

	r.regexpCtor = r.newConstructor("RegExp", 2, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		source, flags := "", ""
		first := arg(args, 0)
		if srcObj, ok := t.Heap.Object(first); ok {
			if d, ok := regexpPayloads[srcObj]; ok {
				source, flags = d.source, d.flags
			}
		} else if !first.IsUndefined() {
			source = t.ToString(first)
		}
		if len(args) > 1 && !arg(args, 1).IsUndefined() {
			flags = t.ToString(arg(args, 1))
		}
		// RegExp(pattern, flags) called without `new` still produces a
		// RegExp instance per ECMA-262, so there's no bare-call branch
		// to special-case here unlike most other constructors.
		v := newPlainObject(t, proto)
		obj, _ := t.Heap.Object(v)
		compileRegExp(t, obj, source, flags)
		return v, nil
	})

	defineMethod(t, proto, "test", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "test")
		d, ok := regexpPayloads[o]
		if !ok {
			t.ThrowTypeError("test called on non-RegExp")
		}
		str := t.ToString(arg(args, 0))
		m, from := findFrom(d, str)
		if m == nil {
			d.lastIndex = 0
			return jsvalue.Boolean(false), nil
		}
		if d.flags != "" && strings.ContainsAny(d.flags, "gy") {
			d.lastIndex = from + m.Index + m.Length
		}
		return jsvalue.Boolean(true), nil
	})

	defineMethod(t, proto, "exec", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "exec")
		d, ok := regexpPayloads[o]
		if !ok {
			t.ThrowTypeError("exec called on non-RegExp")
		}
		str := t.ToString(arg(args, 0))
		m, from := findFrom(d, str)
		if m == nil {
			d.lastIndex = 0
			return jsvalue.Null, nil
		}
		global := strings.ContainsAny(d.flags, "gy")
		if global {
			d.lastIndex = from + m.Index + m.Length
		}
		return t.Heap.ValueForObject(matchToArray(t, r, m, str, from)), nil
	})

	defineMethod(t, proto, "toString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "toString")
		d, ok := regexpPayloads[o]
		if !ok {
			return t.StringValue("/(?:)/"), nil
		}
		return t.StringValue("/" + d.source + "/" + d.flags), nil
	})
}

// compileRegExp installs source/flags/global/.../lastIndex as own data
// properties on obj and compiles the regexp2 pattern, translating JS
// flag letters into regexp2's RegexOptions plus the ECMAScript
// compatibility mode that keeps character-class and anchor semantics
// aligned with the engine this RegExp runs inside of.
func compileRegExp(t *interp.VmThread, obj *jsobject.Object, source, flags string) {
	opts := regexp2.ECMAScript
	if strings.Contains(flags, "i") {
		opts |= regexp2.IgnoreCase
	}
	if strings.Contains(flags, "m") {
		opts |= regexp2.Multiline
	}
	if strings.Contains(flags, "s") {
		opts |= regexp2.Singleline
	}
	re, err := regexp2.Compile(source, opts)
	if err != nil {
		t.Throw("SyntaxError", "invalid regular expression: "+err.Error())
	}
	regexpPayloads[obj] = &regexpData{re: re, source: source, flags: flags}

	set := func(name string, v jsvalue.Value) {
		_ = jsobject.DefineProperty(obj, strKey(name), jsobject.PropertyDescriptor{Value: v, Writable: false, Configurable: false})
	}
	set("source", t.StringValue(source))
	set("flags", t.StringValue(flags))
	set("global", jsvalue.Boolean(strings.Contains(flags, "g")))
	set("ignoreCase", jsvalue.Boolean(strings.Contains(flags, "i")))
	set("multiline", jsvalue.Boolean(strings.Contains(flags, "m")))
	set("sticky", jsvalue.Boolean(strings.Contains(flags, "y")))
	set("unicode", jsvalue.Boolean(strings.Contains(flags, "u")))
	set("dotAll", jsvalue.Boolean(strings.Contains(flags, "s")))
	_ = jsobject.DefineProperty(obj, strKey("lastIndex"), jsobject.PropertyDescriptor{Value: jsvalue.Number(0), Writable: true, Configurable: false})
}

// findFrom runs d.re against str, starting at d.lastIndex when the
// pattern is global or sticky (per exec/test's shared lastIndex
// bookkeeping), or always from 0 otherwise.
func findFrom(d *regexpData, str string) (*regexp2.Match, int) {
	from := 0
	if strings.ContainsAny(d.flags, "gy") {
		from = d.lastIndex
	}
	if from < 0 || from > len(str) {
		return nil, from
	}
	m, err := d.re.FindStringMatchStartingAt(str, from)
	if err != nil || m == nil {
		return nil, from
	}
	return m, 0
}

// matchToArray builds exec's result array: the full match plus each
// capture group, with `index`/`input` own properties.
func matchToArray(t *interp.VmThread, r *Realm, m *regexp2.Match, input string, _ int) *jsobject.Object {
	arrVal := t.Heap.NewArray(t.Graph, r.ArrayProto)
	arr, _ := t.Heap.Object(arrVal)
	groups := m.Groups()
	for _, g := range groups {
		if len(g.Captures) == 0 {
			arr.AppendElement(jsvalue.Undefined)
			continue
		}
		arr.AppendElement(t.StringValue(g.String()))
	}
	_ = jsobject.DefineProperty(arr, strKey("index"), jsobject.PropertyDescriptor{Value: jsvalue.Number(float64(m.Index)), Writable: true, Configurable: true})
	_ = jsobject.DefineProperty(arr, strKey("input"), jsobject.PropertyDescriptor{Value: t.StringValue(input), Writable: true, Configurable: true})
	return arr
}
