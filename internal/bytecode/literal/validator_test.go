package literal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/bytecode"
	otbinary "github.com/octofhir/otter-vm/internal/bytecode/binary"
)

func moduleWith(c bytecode.Constant) *bytecode.Module {
	pool := bytecode.Pool{}
	pool.Add(c)
	return &bytecode.Module{Constants: pool}
}

func TestValidateAcceptsWellFormedConstants(t *testing.T) {
	cases := []bytecode.Constant{
		{Kind: bytecode.ConstNumber, Number: 3.14},
		{Kind: bytecode.ConstString, String: "hello"},
		{Kind: bytecode.ConstBigInt, BigInt: "12345678901234567890"},
		{Kind: bytecode.ConstBigInt, BigInt: "-42"},
		{Kind: bytecode.ConstBigInt, BigInt: "0"},
		{Kind: bytecode.ConstRegExp, RegExp: bytecode.RegExpLiteral{Pattern: "a+b*", Flags: "gi"}},
		{Kind: bytecode.ConstTemplate, Template: bytecode.TemplateLiteral{
			Raw: []string{"a", "b"}, Cooked: []string{"a", "b"},
		}},
	}
	for _, c := range cases {
		require.NoError(t, Validate(moduleWith(c)))
	}
}

func TestValidateRejectsMalformedBigInt(t *testing.T) {
	cases := []string{"", "-", "12a34", "-"}
	for _, digits := range cases {
		err := Validate(moduleWith(bytecode.Constant{Kind: bytecode.ConstBigInt, BigInt: digits}))
		require.Error(t, err)
		require.ErrorIs(t, err, otbinary.ErrInvalidOperand)
	}
}

func TestValidateRejectsLeadingZeroBigInt(t *testing.T) {
	err := Validate(moduleWith(bytecode.Constant{Kind: bytecode.ConstBigInt, BigInt: "007"}))
	require.Error(t, err)
}

func TestValidateRejectsUnknownRegExpFlag(t *testing.T) {
	err := Validate(moduleWith(bytecode.Constant{
		Kind:   bytecode.ConstRegExp,
		RegExp: bytecode.RegExpLiteral{Pattern: "abc", Flags: "z"},
	}))
	require.Error(t, err)
	require.ErrorIs(t, err, otbinary.ErrInvalidOperand)
}

func TestValidateRejectsDuplicateRegExpFlag(t *testing.T) {
	err := Validate(moduleWith(bytecode.Constant{
		Kind:   bytecode.ConstRegExp,
		RegExp: bytecode.RegExpLiteral{Pattern: "abc", Flags: "gg"},
	}))
	require.Error(t, err)
}

func TestValidateRejectsConflictingUVFlags(t *testing.T) {
	err := Validate(moduleWith(bytecode.Constant{
		Kind:   bytecode.ConstRegExp,
		RegExp: bytecode.RegExpLiteral{Pattern: "abc", Flags: "uv"},
	}))
	require.Error(t, err)
}

func TestValidateRejectsTemplatePartCountMismatch(t *testing.T) {
	err := Validate(moduleWith(bytecode.Constant{
		Kind: bytecode.ConstTemplate,
		Template: bytecode.TemplateLiteral{
			Raw:    []string{"a", "b"},
			Cooked: []string{"a"},
		},
	}))
	require.Error(t, err)
	require.ErrorIs(t, err, otbinary.ErrInvalidOperand)
}

func TestParseBigIntDigits(t *testing.T) {
	neg, mag, err := ParseBigIntDigits("-9001")
	require.NoError(t, err)
	require.True(t, neg)
	require.Equal(t, "9001", mag)

	neg, mag, err = ParseBigIntDigits("9001")
	require.NoError(t, err)
	require.False(t, neg)
	require.Equal(t, "9001", mag)

	_, _, err = ParseBigIntDigits("not-a-number")
	require.Error(t, err)
}
