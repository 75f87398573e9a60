package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	otbytecode "github.com/octofhir/otter-vm/internal/bytecode"
)

// Magic and Version implement the module file header from spec.md
// section 6.1: `{ magic: "OTTR", version: u32 }`.
const (
	Magic          = "OTTR"
	CurrentVersion = uint32(1)
)

// Encode serializes m into the persistable module file format.
func Encode(m *otbytecode.Module) []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	writeU32(&buf, CurrentVersion)

	buf.Write(EncodeUint32(uint32(len(m.Constants.Entries))))
	for _, c := range m.Constants.Entries {
		encodeConstant(&buf, c)
	}

	buf.Write(EncodeUint32(uint32(len(m.Functions))))
	for _, f := range m.Functions {
		encodeFunction(&buf, f)
	}

	buf.Write(EncodeUint32(m.EntryFunc))
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func encodeConstant(buf *bytes.Buffer, c otbytecode.Constant) {
	buf.WriteByte(byte(c.Kind))
	switch c.Kind {
	case otbytecode.ConstNumber:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(c.Number))
		buf.Write(tmp[:])
	case otbytecode.ConstString:
		writeString(buf, c.String)
	case otbytecode.ConstBigInt:
		writeString(buf, c.BigInt)
	case otbytecode.ConstRegExp:
		writeString(buf, c.RegExp.Pattern)
		writeString(buf, c.RegExp.Flags)
	case otbytecode.ConstTemplate:
		buf.Write(EncodeUint32(uint32(len(c.Template.Raw))))
		for _, s := range c.Template.Raw {
			writeString(buf, s)
		}
		buf.Write(EncodeUint32(uint32(len(c.Template.Cooked))))
		for _, s := range c.Template.Cooked {
			writeString(buf, s)
		}
	}
}

func writeString(buf *bytes.Buffer, s string) {
	buf.Write(EncodeUint32(uint32(len(s))))
	buf.WriteString(s)
}

func encodeFunction(buf *bytes.Buffer, f *otbytecode.Function) {
	buf.Write(EncodeUint32(f.Name))
	buf.WriteByte(encodeFlags(f.Flags))
	buf.Write(EncodeUint32(uint32(f.ParamCount)))
	buf.Write(EncodeUint32(uint32(f.RegisterCount)))
	buf.Write(EncodeUint32(uint32(f.LocalCount)))

	buf.Write(EncodeUint32(uint32(len(f.Upvalues))))
	for _, u := range f.Upvalues {
		var b byte
		if u.FromParentLocal {
			b = 1
		}
		buf.WriteByte(b)
		buf.Write(EncodeUint32(uint32(u.Index)))
	}

	buf.Write(EncodeUint32(uint32(len(f.Instructions))))
	for _, ins := range f.Instructions {
		encodeInstruction(buf, ins)
	}
	buf.Write(EncodeUint32(uint32(len(f.Feedback))))
}

func encodeFlags(f otbytecode.FunctionFlags) byte {
	var b byte
	if f.Async {
		b |= 1 << 0
	}
	if f.Generator {
		b |= 1 << 1
	}
	if f.HasRest {
		b |= 1 << 2
	}
	if f.UsesArguments {
		b |= 1 << 3
	}
	if f.UsesEval {
		b |= 1 << 4
	}
	return b
}

func decodeFlags(b byte) otbytecode.FunctionFlags {
	return otbytecode.FunctionFlags{
		Async:         b&(1<<0) != 0,
		Generator:     b&(1<<1) != 0,
		HasRest:       b&(1<<2) != 0,
		UsesArguments: b&(1<<3) != 0,
		UsesEval:      b&(1<<4) != 0,
	}
}

// instruction fixed-encoding field widths, in bytes.
const instructionFixedSize = 2 + 2 + 2 + 2 + 4 + 4 + 4 + 2

func encodeInstruction(buf *bytes.Buffer, ins otbytecode.Instruction) {
	var tmp [instructionFixedSize]byte
	binary.LittleEndian.PutUint16(tmp[0:2], uint16(ins.Op))
	binary.LittleEndian.PutUint16(tmp[2:4], uint16(ins.Dst))
	binary.LittleEndian.PutUint16(tmp[4:6], uint16(ins.Src1))
	binary.LittleEndian.PutUint16(tmp[6:8], uint16(ins.Src2))
	binary.LittleEndian.PutUint32(tmp[8:12], ins.ICIndex)
	binary.LittleEndian.PutUint32(tmp[12:16], ins.ConstIdx)
	binary.LittleEndian.PutUint32(tmp[16:20], uint32(ins.JumpDelta))
	binary.LittleEndian.PutUint16(tmp[20:22], ins.Argc)
	buf.Write(tmp[:])
}

// Decode parses the module file format, returning the five
// format-validation error sentinels from spec.md section 6.1 wrapped
// with additional context via %w.
func Decode(data []byte) (*otbytecode.Module, error) {
	r := &reader{buf: data}

	magic, err := r.readN(4)
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("decoding header: %w", ErrInvalidMagic)
	}
	version, err := r.readU32()
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if version != CurrentVersion {
		return nil, fmt.Errorf("decoding header: %w", ErrUnsupportedVersion)
	}

	constCount, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	pool := otbytecode.Pool{Entries: make([]otbytecode.Constant, constCount)}
	for i := range pool.Entries {
		c, err := decodeConstant(r)
		if err != nil {
			return nil, err
		}
		pool.Entries[i] = c
	}

	fnCount, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	functions := make([]*otbytecode.Function, fnCount)
	for i := range functions {
		f, err := decodeFunction(r)
		if err != nil {
			return nil, err
		}
		functions[i] = f
	}

	entry, err := r.readVarU32()
	if err != nil {
		return nil, err
	}

	return &otbytecode.Module{Constants: pool, Functions: functions, EntryFunc: entry}, nil
}

func decodeConstant(r *reader) (otbytecode.Constant, error) {
	kindByte, err := r.readByte()
	if err != nil {
		return otbytecode.Constant{}, err
	}
	kind := otbytecode.ConstKind(kindByte)
	switch kind {
	case otbytecode.ConstNumber:
		bits, err := r.readU64()
		if err != nil {
			return otbytecode.Constant{}, err
		}
		return otbytecode.Constant{Kind: kind, Number: math.Float64frombits(bits)}, nil
	case otbytecode.ConstString:
		s, err := r.readString()
		if err != nil {
			return otbytecode.Constant{}, err
		}
		return otbytecode.Constant{Kind: kind, String: s}, nil
	case otbytecode.ConstBigInt:
		s, err := r.readString()
		if err != nil {
			return otbytecode.Constant{}, err
		}
		return otbytecode.Constant{Kind: kind, BigInt: s}, nil
	case otbytecode.ConstRegExp:
		pattern, err := r.readString()
		if err != nil {
			return otbytecode.Constant{}, err
		}
		flags, err := r.readString()
		if err != nil {
			return otbytecode.Constant{}, err
		}
		return otbytecode.Constant{Kind: kind, RegExp: otbytecode.RegExpLiteral{Pattern: pattern, Flags: flags}}, nil
	case otbytecode.ConstTemplate:
		rawCount, err := r.readVarU32()
		if err != nil {
			return otbytecode.Constant{}, err
		}
		raw := make([]string, rawCount)
		for i := range raw {
			raw[i], err = r.readString()
			if err != nil {
				return otbytecode.Constant{}, err
			}
		}
		cookedCount, err := r.readVarU32()
		if err != nil {
			return otbytecode.Constant{}, err
		}
		cooked := make([]string, cookedCount)
		for i := range cooked {
			cooked[i], err = r.readString()
			if err != nil {
				return otbytecode.Constant{}, err
			}
		}
		return otbytecode.Constant{Kind: kind, Template: otbytecode.TemplateLiteral{Raw: raw, Cooked: cooked}}, nil
	default:
		return otbytecode.Constant{}, fmt.Errorf("decoding constant: %w", ErrInvalidOperand)
	}
}

func decodeFunction(r *reader) (*otbytecode.Function, error) {
	name, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	flagsByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	paramCount, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	registerCount, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	localCount, err := r.readVarU32()
	if err != nil {
		return nil, err
	}

	upvalCount, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	upvalues := make([]otbytecode.UpvalueDescriptor, upvalCount)
	for i := range upvalues {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		idx, err := r.readVarU32()
		if err != nil {
			return nil, err
		}
		upvalues[i] = otbytecode.UpvalueDescriptor{FromParentLocal: b != 0, Index: uint16(idx)}
	}

	insCount, err := r.readVarU32()
	if err != nil {
		return nil, err
	}
	instructions := make([]otbytecode.Instruction, insCount)
	for i := range instructions {
		ins, err := decodeInstruction(r)
		if err != nil {
			return nil, err
		}
		instructions[i] = ins
	}

	feedbackLen, err := r.readVarU32()
	if err != nil {
		return nil, err
	}

	return &otbytecode.Function{
		Name: name, Flags: decodeFlags(flagsByte),
		ParamCount: uint16(paramCount), RegisterCount: uint16(registerCount), LocalCount: uint16(localCount),
		Upvalues: upvalues, Instructions: instructions,
		Feedback: make([]otbytecode.FeedbackSlot, feedbackLen),
	}, nil
}

func decodeInstruction(r *reader) (otbytecode.Instruction, error) {
	raw, err := r.readN(instructionFixedSize)
	if err != nil {
		return otbytecode.Instruction{}, fmt.Errorf("decoding instruction: %w", err)
	}
	op := otbytecode.Opcode(binary.LittleEndian.Uint16(raw[0:2]))
	if op.String() == "Opcode(?)" {
		return otbytecode.Instruction{}, fmt.Errorf("decoding instruction: %w", ErrInvalidOpcode)
	}
	return otbytecode.Instruction{
		Op:        op,
		Dst:       otbytecode.Register(binary.LittleEndian.Uint16(raw[2:4])),
		Src1:      otbytecode.Register(binary.LittleEndian.Uint16(raw[4:6])),
		Src2:      otbytecode.Register(binary.LittleEndian.Uint16(raw[6:8])),
		ICIndex:   binary.LittleEndian.Uint32(raw[8:12]),
		ConstIdx:  binary.LittleEndian.Uint32(raw[12:16]),
		JumpDelta: int32(binary.LittleEndian.Uint32(raw[16:20])),
		Argc:      binary.LittleEndian.Uint16(raw[20:22]),
	}, nil
}

// reader is a tiny cursor over the byte slice being decoded.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) readN(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, ErrUnexpectedEOF
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readU64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) readVarU32() (uint32, error) {
	v, n, err := LoadUint32(r.buf[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += int(n)
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readVarU32()
	if err != nil {
		return "", err
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", fmt.Errorf("decoding string: %w", err)
	}
	return string(b), nil
}
