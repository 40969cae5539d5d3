// Package codec implements the endianness-aware byte decoding and
// encoding shared by the reader and writer, plus the LEB128 variable
// length integer codecs exposed for DWARF collaborators.
//
// It is grounded on the original C library's elf_common.h
// (host_endianness, swap16/32/64, read_16/32/64) and reuses the
// teacher's own dependency, encoding/binary, for the fixed-width
// byte-order type rather than inventing one: this module operates
// directly on byte slices instead of an io.Reader, since the whole
// point of the reader redesign is to avoid io.ReaderAt/io.SectionReader
// machinery in favor of a caller-supplied byte-fetch callback, but
// encoding/binary.ByteOrder is still the right value type to select
// LittleEndian vs BigEndian once per file.
package codec

import "encoding/binary"

// HostLittleEndian reports whether the running process is little
// endian, mirroring host_endianness() in elf_common.h.
func HostLittleEndian() bool {
	var x uint16 = 1
	b := [2]byte{}
	binary.NativeEndian.PutUint16(b[:], x)
	return b[0] == 1
}

// ByteOrder selects how multi-byte fields are decoded/encoded; it is
// just encoding/binary.ByteOrder under a name local to this package so
// callers don't need to import encoding/binary themselves.
type ByteOrder = binary.ByteOrder

var (
	LittleEndian ByteOrder = binary.LittleEndian
	BigEndian    ByteOrder = binary.BigEndian
)

// Uint16 decodes a 16-bit field from b using order. b must have at
// least 2 bytes; callers are expected to have already bounds-checked
// via the byte source contract.
func Uint16(b []byte, order ByteOrder) uint16 { return order.Uint16(b) }

// Uint32 decodes a 32-bit field from b using order.
func Uint32(b []byte, order ByteOrder) uint32 { return order.Uint32(b) }

// Uint64 decodes a 64-bit field from b using order.
func Uint64(b []byte, order ByteOrder) uint64 { return order.Uint64(b) }

// Int16, Int32 and Int64 reinterpret the unsigned decode as signed,
// matching the original's read_16/32/64 applied to signed ELF fields.
func Int16(b []byte, order ByteOrder) int16 { return int16(order.Uint16(b)) }
func Int32(b []byte, order ByteOrder) int32 { return int32(order.Uint32(b)) }
func Int64(b []byte, order ByteOrder) int64 { return int64(order.Uint64(b)) }

// PutUint16, PutUint32 and PutUint64 encode v into b using order; b
// must be at least 2, 4 or 8 bytes respectively.
func PutUint16(b []byte, v uint16, order ByteOrder) { order.PutUint16(b, v) }
func PutUint32(b []byte, v uint32, order ByteOrder) { order.PutUint32(b, v) }
func PutUint64(b []byte, v uint64, order ByteOrder) { order.PutUint64(b, v) }
