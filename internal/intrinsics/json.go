package intrinsics

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// populateJSON builds the JSON namespace object (parse/stringify),
// written directly against jsvalue/jsobject the way a hand-rolled
// recursive-descent parser would be, since no pack example ships a
// JS-value-aware JSON codec to adapt.
func (r *Realm) populateJSON() {
	t := r.t
	jo := r.JSONObj

	defineMethod(t, jo, "parse", 2, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		src := t.ToString(arg(args, 0))
		p := &jsonParser{t: t, r: r, s: src}
		p.skipWS()
		v, err := p.parseValue()
		if err != nil {
			t.Throw("SyntaxError", err.Error())
		}
		return v, nil
	})
	defineMethod(t, jo, "stringify", 3, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		indent := ""
		if len(args) > 2 {
			switch {
			case arg(args, 2).IsNumber():
				n, _ := arg(args, 2).AsNumber()
				indent = strings.Repeat(" ", int(n))
			case !arg(args, 2).IsUndefined():
				indent = t.ToString(arg(args, 2))
			}
		}
		var b strings.Builder
		ok := r.jsonStringify(&b, arg(args, 0), indent, "")
		if !ok {
			return jsvalue.Undefined, nil
		}
		return t.StringValue(b.String()), nil
	})
}

// --- stringify ---

func (r *Realm) jsonStringify(b *strings.Builder, v jsvalue.Value, indent, cur string) bool {
	t := r.t
	switch {
	case v.IsUndefined():
		return false
	case v.Kind() == jsvalue.KindNull:
		b.WriteString("null")
	case v.Kind() == jsvalue.KindBoolean:
		bv, _ := v.AsBoolean()
		if bv {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case v.IsNumber():
		n, _ := v.AsNumber()
		if n != n || math.IsInf(n, 0) {
			b.WriteString("null")
		} else {
			b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		}
	case v.Kind() == jsvalue.KindPointer:
		if s, ok := t.Heap.String(v); ok {
			writeJSONString(b, s.String())
			return true
		}
		if _, callable := t.Heap.Closure(v); callable {
			return false
		}
		if obj, ok := t.Heap.Object(v); ok {
			if obj.IsArray() {
				r.jsonStringifyArray(b, obj, indent, cur)
			} else {
				r.jsonStringifyObject(b, obj, v, indent, cur)
			}
			return true
		}
		return false
	default:
		b.WriteString(strconv.Quote(t.ToString(v)))
	}
	return true
}

func (r *Realm) jsonStringifyArray(b *strings.Builder, obj *jsobject.Object, indent, cur string) {
	elems := obj.Elements()
	if len(elems) == 0 {
		b.WriteString("[]")
		return
	}
	next := cur + indent
	b.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		if indent != "" {
			b.WriteByte('\n')
			b.WriteString(next)
		}
		if !r.jsonStringify(b, e, indent, next) {
			b.WriteString("null")
		}
	}
	if indent != "" {
		b.WriteByte('\n')
		b.WriteString(cur)
	}
	b.WriteByte(']')
}

func (r *Realm) jsonStringifyObject(b *strings.Builder, obj *jsobject.Object, self jsvalue.Value, indent, cur string) {
	t := r.t
	keys := jsobject.Keys(obj)
	next := cur + indent
	type kv struct {
		k string
		v jsvalue.Value
	}
	var pairs []kv
	for _, k := range keys {
		text := propertyKeyText(k)
		if text == "" {
			continue
		}
		val, err := jsobject.Get(obj, k, self, t.CallFunc())
		if err != nil {
			continue
		}
		pairs = append(pairs, kv{text, val})
	}
	if len(pairs) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	first := true
	for _, p := range pairs {
		var vb strings.Builder
		if !r.jsonStringify(&vb, p.v, indent, next) {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		if indent != "" {
			b.WriteByte('\n')
			b.WriteString(next)
		}
		writeJSONString(b, p.k)
		b.WriteByte(':')
		if indent != "" {
			b.WriteByte(' ')
		}
		b.WriteString(vb.String())
	}
	if indent != "" && !first {
		b.WriteByte('\n')
		b.WriteString(cur)
	}
	b.WriteByte('}')
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				const hex = "0123456789abcdef"
				b.WriteByte(hex[(r>>4)&0xf])
				b.WriteByte(hex[r&0xf])
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// propertyKeyText renders a PropertyKey as the text JSON.stringify
// would use for an object member name, or "" for keys stringify
// skips (symbols, or an unresolvable interned string).
func propertyKeyText(k jsobject.PropertyKey) string {
	switch k.Kind() {
	case jsobject.KeyString:
		if js, ok := jsvalue.InternedString(k.StringID()); ok {
			return js.String()
		}
		return ""
	case jsobject.KeyIndex:
		return strconv.FormatUint(uint64(k.Index()), 10)
	default:
		return ""
	}
}

// --- parse ---

var (
	errUnexpectedEnd = errors.New("unexpected end of JSON input")
	errBadToken      = errors.New("unexpected token in JSON")
)

type jsonParser struct {
	t   *interp.VmThread
	r   *Realm
	s   string
	pos int
}

func (p *jsonParser) skipWS() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() (jsvalue.Value, error) {
	p.skipWS()
	if p.pos >= len(p.s) {
		return jsvalue.Undefined, errUnexpectedEnd
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return jsvalue.Undefined, err
		}
		return p.t.StringValue(s), nil
	case c == 't':
		return p.parseLiteral("true", jsvalue.Boolean(true))
	case c == 'f':
		return p.parseLiteral("false", jsvalue.Boolean(false))
	case c == 'n':
		return p.parseLiteral("null", jsvalue.Null)
	default:
		return p.parseNumber()
	}
}

func (p *jsonParser) parseLiteral(lit string, v jsvalue.Value) (jsvalue.Value, error) {
	if p.pos+len(lit) > len(p.s) || p.s[p.pos:p.pos+len(lit)] != lit {
		return jsvalue.Undefined, errBadToken
	}
	p.pos += len(lit)
	return v, nil
}

func (p *jsonParser) parseNumber() (jsvalue.Value, error) {
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
		} else {
			break
		}
	}
	if p.pos == start {
		return jsvalue.Undefined, errBadToken
	}
	n, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return jsvalue.Undefined, errBadToken
	}
	return jsvalue.Number(n), nil
}

func (p *jsonParser) parseString() (string, error) {
	p.pos++ // opening quote
	var units []uint16
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '"' {
			p.pos++
			return string(utf16.Decode(units)), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.s) {
				break
			}
			switch p.s[p.pos] {
			case '"':
				units = append(units, '"')
			case '\\':
				units = append(units, '\\')
			case '/':
				units = append(units, '/')
			case 'n':
				units = append(units, '\n')
			case 't':
				units = append(units, '\t')
			case 'r':
				units = append(units, '\r')
			case 'b':
				units = append(units, '\b')
			case 'f':
				units = append(units, '\f')
			case 'u':
				if p.pos+4 >= len(p.s) {
					return "", errBadToken
				}
				n, err := strconv.ParseUint(p.s[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", errBadToken
				}
				units = append(units, uint16(n))
				p.pos += 4
			}
			p.pos++
			continue
		}
		units = append(units, uint16(c))
		p.pos++
	}
	return "", errUnexpectedEnd
}

func (p *jsonParser) parseArray() (jsvalue.Value, error) {
	p.pos++ // [
	arrv := p.t.Heap.NewArray(p.t.Graph, p.r.ArrayProto)
	o, _ := p.t.Heap.Object(arrv)
	p.skipWS()
	if p.pos < len(p.s) && p.s[p.pos] == ']' {
		p.pos++
		return arrv, nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return jsvalue.Undefined, err
		}
		o.AppendElement(v)
		p.skipWS()
		if p.pos >= len(p.s) {
			return jsvalue.Undefined, errUnexpectedEnd
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == ']' {
			p.pos++
			return arrv, nil
		}
		return jsvalue.Undefined, errBadToken
	}
}

func (p *jsonParser) parseObject() (jsvalue.Value, error) {
	p.pos++ // {
	v := newPlainObject(p.t, p.r.ObjectProto)
	o, _ := p.t.Heap.Object(v)
	p.skipWS()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return v, nil
	}
	for {
		p.skipWS()
		if p.pos >= len(p.s) || p.s[p.pos] != '"' {
			return jsvalue.Undefined, errBadToken
		}
		key, err := p.parseString()
		if err != nil {
			return jsvalue.Undefined, err
		}
		p.skipWS()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return jsvalue.Undefined, errBadToken
		}
		p.pos++
		val, err := p.parseValue()
		if err != nil {
			return jsvalue.Undefined, err
		}
		defineValue(o, strKey(key), val, true, true, true)
		p.skipWS()
		if p.pos >= len(p.s) {
			return jsvalue.Undefined, errUnexpectedEnd
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return v, nil
		}
		return jsvalue.Undefined, errBadToken
	}
}
