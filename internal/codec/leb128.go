package codec

import (
	"errors"

	"github.com/H-Cebrecos/elf-lib/elf"
)

// ErrLEB128Overflow is returned when a LEB128 sequence would require
// more than 64 bits to represent, mirroring the shift-overflow check in
// decode_ULEB128/decode_SLEB128 (elf_dwarf.c): "(shift > 63) ||
// ((temp << shift) >> shift != temp)". It is an *elf.Error of kind
// KindBadFormat, so errors.Is(err, elf.ErrBadFormat) also holds.
var ErrLEB128Overflow = elf.NewError(elf.KindBadFormat, "codec", errors.New("leb128 value overflows 64 bits"))

// ErrLEB128Truncated is returned when b runs out before a terminating
// byte (high bit clear) is seen.
var ErrLEB128Truncated = errors.New("codec: leb128 sequence truncated")

// DecodeULEB128 decodes an unsigned LEB128 value from the start of b,
// returning the value, the number of bytes consumed, and an error.
// Grounded 1:1 on decode_ULEB128 in elf_dwarf.c: 7-bit little-endian
// groups, MSB continuation bit, shift-overflow detection.
func DecodeULEB128(b []byte) (value uint64, n int, err error) {
	var shift uint
	for {
		if n >= len(b) {
			return 0, 0, ErrLEB128Truncated
		}
		byt := b[n]
		n++
		temp := uint64(byt & 0x7f)

		if shift > 63 || (temp<<shift)>>shift != temp {
			return 0, 0, ErrLEB128Overflow
		}
		value |= temp << shift
		shift += 7

		if byt&0x80 == 0 {
			return value, n, nil
		}
	}
}

// DecodeSLEB128 decodes a signed LEB128 value from the start of b,
// returning the value, the number of bytes consumed, and an error.
// Grounded 1:1 on decode_SLEB128 in elf_dwarf.c: same 7-bit groups as
// DecodeULEB128, with the result sign-extended from bit 6 of the final
// byte when the value occupies fewer than 64 bits.
func DecodeSLEB128(b []byte) (value int64, n int, err error) {
	var shift uint
	var byt byte
	for {
		if n >= len(b) {
			return 0, 0, ErrLEB128Truncated
		}
		byt = b[n]
		n++
		temp := int64(byt & 0x7f)

		if shift > 63 || (temp<<shift)>>shift != temp {
			return 0, 0, ErrLEB128Overflow
		}
		value |= temp << shift
		shift += 7

		if byt&0x80 == 0 {
			break
		}
	}

	if shift < 64 && byt&0x40 != 0 {
		value |= -1 << shift
	}
	return value, n, nil
}
