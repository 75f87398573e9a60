// Package binary implements the persistable module file format from
// spec.md section 6.1: the "OTTR" header, constant pool, and function
// table codec. Grounded on the teacher's internal/wasm/binary module
// codec and internal/leb128 varint helpers (API naming kept
// consistent - EncodeUint32/LoadUint32 - though internal/leb128's own
// implementation wasn't retrievable in the example pack, only its
// test file, so this is written fresh rather than copied).
package binary

import "fmt"

// EncodeUint32 LEB128-encodes an unsigned 32-bit value, used for every
// count/index field in the format (constant-pool count, function
// count, instruction count, ...).
func EncodeUint32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// LoadUint32 decodes a LEB128 unsigned 32-bit value, returning the
// number of bytes consumed.
func LoadUint32(buf []byte) (uint32, uint32, error) {
	var result uint32
	var shift uint
	for i, b := range buf {
		if shift >= 35 {
			return 0, 0, fmt.Errorf("binary: leb128 uint32 overflow")
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, uint32(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("binary: %w", ErrUnexpectedEOF)
}
