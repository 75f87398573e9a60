package bytecode

// ConstKind tags one constant-pool entry, matching spec.md section 6.1's
// "Number(f64) / String(len + UTF-8 bytes) / BigInt(len + digits) /
// RegExp{pattern, flags} / Template{raw parts, cooked parts}".
type ConstKind uint8

const (
	ConstNumber ConstKind = iota
	ConstString
	ConstBigInt
	ConstRegExp
	ConstTemplate
)

type RegExpLiteral struct {
	Pattern string
	Flags   string
}

type TemplateLiteral struct {
	Raw    []string
	Cooked []string
}

// Constant is one constant-pool entry. Exactly one payload field is
// meaningful, selected by Kind.
type Constant struct {
	Kind ConstKind

	Number   float64
	String   string
	BigInt   string // decimal digits, arbitrary precision textual form
	RegExp   RegExpLiteral
	Template TemplateLiteral
}

// Pool is the module's constant pool: numbers, strings, BigInts, regex
// patterns, and template literals (spec.md section 3.4).
type Pool struct {
	Entries []Constant
}

func (p *Pool) Add(c Constant) uint32 {
	p.Entries = append(p.Entries, c)
	return uint32(len(p.Entries) - 1)
}

func (p *Pool) Get(idx uint32) (Constant, bool) {
	if int(idx) >= len(p.Entries) {
		return Constant{}, false
	}
	return p.Entries[idx], true
}
