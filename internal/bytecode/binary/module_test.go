package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	otbytecode "github.com/octofhir/otter-vm/internal/bytecode"
)

func sampleModule() *otbytecode.Module {
	pool := otbytecode.Pool{}
	pool.Add(otbytecode.Constant{Kind: otbytecode.ConstNumber, Number: 55})
	nameIdx := pool.Add(otbytecode.Constant{Kind: otbytecode.ConstString, String: "fib"})

	fn := &otbytecode.Function{
		Name: nameIdx, ParamCount: 1, RegisterCount: 4, LocalCount: 1,
		Instructions: []otbytecode.Instruction{
			{Op: otbytecode.OpGetLocal, Dst: 0, Src1: 0},
			{Op: otbytecode.OpLoadConst, Dst: 1, ConstIdx: 0},
			{Op: otbytecode.OpAdd, Dst: 2, Src1: 0, Src2: 1, ICIndex: 0},
			{Op: otbytecode.OpReturn, Src1: 2},
		},
		Feedback: make([]otbytecode.FeedbackSlot, 1),
	}
	return &otbytecode.Module{Constants: pool, Functions: []*otbytecode.Function{fn}, EntryFunc: 0}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)
	require.Equal(t, Magic, string(encoded[:4]))

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Functions, 1)
	require.Equal(t, m.Functions[0].Instructions, decoded.Functions[0].Instructions)
	require.Equal(t, m.Constants.Entries, decoded.Constants.Entries)
	require.Equal(t, m.EntryFunc, decoded.EntryFunc)
}

func TestDecodeRejectsInvalidMagic(t *testing.T) {
	bad := []byte("NOPE")
	_, err := Decode(bad)
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)
	encoded[4] = 0xff // corrupt version field
	_, err := Decode(encoded)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)
	_, err := Decode(encoded[:len(encoded)-1])
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestDecodeRejectsInvalidOpcode(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)
	// Find the first instruction's opcode bytes and corrupt them to an
	// out-of-range value. Layout: 4(magic)+4(version)+leb(constcount)...
	// easier to just corrupt via re-encoding with a bad opcode.
	m.Functions[0].Instructions[0].Op = otbytecode.Opcode(0xffff)
	bad := Encode(m)
	_, err := Decode(bad)
	require.ErrorIs(t, err, ErrInvalidOpcode)
}
