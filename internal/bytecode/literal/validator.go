// Package literal validates constant-pool literals at module-load
// time, restoring the validation pass the distillation dropped from
// spec.md (see SPEC_FULL.md section 9.1, grounded on
// original_source/crates/otter-vm-compiler/src/literal_validator.rs).
// It runs after binary.Decode and before the module is handed to
// internal/interp, mirroring the teacher's own
// validate-after-decode-before-instantiate shape
// (internal/wasm/func_validation_test.go).
package literal

import (
	"fmt"
	"regexp/syntax"
	"strconv"
	"strings"

	"github.com/octofhir/otter-vm/internal/bytecode"
	otbinary "github.com/octofhir/otter-vm/internal/bytecode/binary"
)

// Validate checks every entry in m's constant pool, returning the
// first violation found wrapped in one of the five format-validation
// error sentinels from spec.md section 6.1 (a malformed literal is
// treated as ErrInvalidOperand - the constant-pool analogue of an
// invalid instruction operand).
func Validate(m *bytecode.Module) error {
	for i, c := range m.Constants.Entries {
		if err := validateConstant(c); err != nil {
			return fmt.Errorf("constant #%d: %w: %v", i, otbinary.ErrInvalidOperand, err)
		}
	}
	return nil
}

func validateConstant(c bytecode.Constant) error {
	switch c.Kind {
	case bytecode.ConstNumber:
		return validateNumber(c.Number)
	case bytecode.ConstString:
		return validateUTF8(c.String)
	case bytecode.ConstBigInt:
		return validateBigInt(c.BigInt)
	case bytecode.ConstRegExp:
		return validateRegExp(c.RegExp)
	case bytecode.ConstTemplate:
		return validateTemplate(c.Template)
	default:
		return fmt.Errorf("unknown constant kind %d", c.Kind)
	}
}

// validateNumber exists as a seam for the original's canonicalization
// pass; every float64 bit pattern a Go constant pool can hold is
// already a well-formed operand to jsvalue.Number, NaN included, so
// there is nothing to reject here today.
func validateNumber(n float64) error {
	return nil
}

// validateUTF8 rejects constant-pool strings that aren't valid UTF-8,
// which would otherwise desync JsString's UTF-16 conversion.
func validateUTF8(s string) error {
	if s != strings.ToValidUTF8(s, s) {
		return fmt.Errorf("string constant is not valid UTF-8")
	}
	return nil
}

// validateBigInt requires an optional leading '-' followed by one or
// more decimal digits, matching the textual form bytecode.Constant
// stores BigInt literals in.
func validateBigInt(digits string) error {
	if digits == "" {
		return fmt.Errorf("empty BigInt literal")
	}
	d := digits
	if d[0] == '-' {
		d = d[1:]
	}
	if d == "" {
		return fmt.Errorf("BigInt literal has no digits")
	}
	for _, r := range d {
		if r < '0' || r > '9' {
			return fmt.Errorf("BigInt literal contains non-digit %q", r)
		}
	}
	if len(d) > 1 && d[0] == '0' {
		return fmt.Errorf("BigInt literal has leading zero")
	}
	return nil
}

// validRegExpFlags is the ECMAScript flag alphabet; duplicates or
// unknown letters are rejected.
const validRegExpFlags = "dgimsuvy"

func validateRegExp(re bytecode.RegExpLiteral) error {
	seen := map[rune]bool{}
	for _, f := range re.Flags {
		if !strings.ContainsRune(validRegExpFlags, f) {
			return fmt.Errorf("unknown regexp flag %q", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate regexp flag %q", f)
		}
		seen[f] = true
	}
	if seen['u'] && seen['v'] {
		return fmt.Errorf("regexp flags 'u' and 'v' are mutually exclusive")
	}
	// Full ECMAScript regex grammar is out of scope for the core per
	// spec.md section 1 (parser is an external collaborator); we only
	// confirm the pattern is at least syntactically plausible using
	// Go's own regex parser as an approximation, matching the
	// teacher's own approach of delegating to a mature parser instead
	// of hand-rolling one for a non-core concern.
	if _, err := syntax.Parse(re.Pattern, syntax.Perl); err != nil {
		return fmt.Errorf("regexp pattern failed syntax check: %w", err)
	}
	return nil
}

func validateTemplate(t bytecode.TemplateLiteral) error {
	if len(t.Raw) != len(t.Cooked) {
		return fmt.Errorf("template literal raw/cooked part count mismatch: %d vs %d", len(t.Raw), len(t.Cooked))
	}
	for _, s := range t.Raw {
		if err := validateUTF8(s); err != nil {
			return err
		}
	}
	for _, s := range t.Cooked {
		if err := validateUTF8(s); err != nil {
			return err
		}
	}
	return nil
}

// ParseBigIntDigits parses a validated BigInt literal's decimal digits
// into a sign and magnitude string, used by internal/intrinsics when
// constructing the BigInt bridge value (spec.md section 4.A).
func ParseBigIntDigits(digits string) (negative bool, magnitude string, err error) {
	if err := validateBigInt(digits); err != nil {
		return false, "", err
	}
	if digits[0] == '-' {
		return true, digits[1:], nil
	}
	return false, digits, nil
}

// ParseNumberLiteral is a convenience entry point mirroring the
// original's literal_validator numeric-literal path for code that
// hasn't already gone through the binary constant pool (e.g. host
// extensions constructing literals programmatically).
func ParseNumberLiteral(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
