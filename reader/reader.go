// Package reader implements the pull-based ELF reader: callers supply a
// ByteSource, Open decodes and caches the file header once, and every
// other accessor fetches exactly the bytes it needs through that
// callback rather than holding the whole file in memory.
//
// Grounded on original_source/src/reader/elf_reader.c (elf_init,
// get_section_header, get_program_header, get_symbol_entry, ...)
// generalized across class/endianness the way the teacher's
// file.NewFile dispatches on f.Class/f.ByteOrder, but replacing its
// io.ReaderAt-bound, fully-decoded-up-front model with on-demand
// decoding driven by the caller's callback.
package reader

import (
	"fmt"

	"github.com/H-Cebrecos/elf-lib/elf"
	"github.com/H-Cebrecos/elf-lib/internal/codec"
)

// ByteSource abstracts how the reader obtains file bytes: over an
// os.File, a []byte in memory, a network-backed blob store, or bytes
// fetched lazily from another process. It generalizes the C library's
// elf_read_callback (void* user context + function pointer) into a
// single Go interface.
type ByteSource interface {
	FetchAt(offset, size uint64, dest []byte) error
}

// ByteSourceFunc adapts a plain function to a ByteSource, mirroring the
// http.HandlerFunc idiom so callers can pass a closure directly instead
// of defining a named type.
type ByteSourceFunc func(offset, size uint64, dest []byte) error

// FetchAt implements ByteSource.
func (f ByteSourceFunc) FetchAt(offset, size uint64, dest []byte) error {
	return f(offset, size, dest)
}

// Context holds the cached header and identification fields needed to
// serve every other accessor; it is produced once by Open and is
// otherwise immutable, matching the original's "parse once, cache
// forever" InternalElfCtx. Fields are unexported: callers only ever see
// a *Context, an opaque handle, per the design's redesign of the
// original's fixed-size-byte-array reinterpretation idiom.
type Context struct {
	src   ByteSource
	class elf.Class
	data  elf.DataEncoding
	order codec.ByteOrder
	hdr   elf.Header
}

func byteOrderFor(d elf.DataEncoding) codec.ByteOrder {
	if d == elf.DataMSB {
		return codec.BigEndian
	}
	return codec.LittleEndian
}

// Open reads and validates the ELF identification and header through
// src, returning a ready-to-use Context. It fetches exactly the bytes
// needed for the header (no full-file read), mirroring elf_init.
func Open(src ByteSource) (*Context, error) {
	const op = "reader.Open"
	if src == nil {
		return nil, elf.NewError(elf.KindBadArg, op, nil)
	}

	ident := make([]byte, elf.SizeofIdent)
	if err := src.FetchAt(0, uint64(len(ident)), ident); err != nil {
		return nil, elf.NewError(elf.KindIO, op, err)
	}

	if ident[0] != 0x7f || ident[1] != 'E' || ident[2] != 'L' || ident[3] != 'F' {
		return nil, elf.NewError(elf.KindBadMagic, op, nil)
	}
	if ident[6] != byte(elf.VersionCurrent) {
		return nil, elf.NewError(elf.KindBadVersion, op, nil)
	}

	class := elf.Class(ident[4])
	if class != elf.Class32 && class != elf.Class64 {
		return nil, elf.NewError(elf.KindBadClass, op, nil)
	}
	data := elf.DataEncoding(ident[5])
	if data != elf.DataLSB && data != elf.DataMSB {
		return nil, elf.NewError(elf.KindBadEndianness, op, nil)
	}

	ctx := &Context{
		src:   src,
		class: class,
		data:  data,
		order: byteOrderFor(data),
	}
	ctx.hdr.Class = class
	ctx.hdr.Data = data
	ctx.hdr.Version = elf.VersionCurrent
	ctx.hdr.OSABI = elf.OSABI(ident[7])
	ctx.hdr.ABIVersion = ident[8]

	size := uint64(elf.SizeofEhdr32)
	if class == elf.Class64 {
		size = elf.SizeofEhdr64
	}
	buf := make([]byte, size)
	if err := src.FetchAt(0, size, buf); err != nil {
		return nil, elf.NewError(elf.KindIO, op, err)
	}

	if err := ctx.decodeHeader(buf); err != nil {
		return nil, err
	}

	if ctx.hdr.Version != elf.VersionCurrent {
		return nil, elf.NewError(elf.KindBadVersion, op, nil)
	}
	if ctx.class == elf.Class32 {
		if ctx.hdr.HeaderSize != elf.SizeofEhdr32 {
			return nil, elf.NewError(elf.KindBadSize, op, nil)
		}
		if ctx.hdr.ProgHeaderNum != 0 && ctx.hdr.ProgHeaderEntSize != elf.SizeofPhdr32 {
			return nil, elf.NewError(elf.KindBadSize, op, nil)
		}
		if ctx.hdr.SecHeaderNum != 0 && ctx.hdr.SecHeaderEntSize != elf.SizeofShdr32 {
			return nil, elf.NewError(elf.KindBadSize, op, nil)
		}
	} else {
		if ctx.hdr.HeaderSize != elf.SizeofEhdr64 {
			return nil, elf.NewError(elf.KindBadSize, op, nil)
		}
		if ctx.hdr.ProgHeaderNum != 0 && ctx.hdr.ProgHeaderEntSize != elf.SizeofPhdr64 {
			return nil, elf.NewError(elf.KindBadSize, op, nil)
		}
		if ctx.hdr.SecHeaderNum != 0 && ctx.hdr.SecHeaderEntSize != elf.SizeofShdr64 {
			return nil, elf.NewError(elf.KindBadSize, op, nil)
		}
	}

	if ctx.hdr.ProgHeaderNum != 0 && ctx.hdr.ProgHeaderOffset == 0 {
		return nil, elf.NewError(elf.KindBadHeader, op, nil)
	}
	if ctx.hdr.SecHeaderNum != 0 && ctx.hdr.SecHeaderOffset == 0 {
		return nil, elf.NewError(elf.KindBadHeader, op, nil)
	}

	// Extended-count sentinel resolution: section 0's Size/Link carry
	// the real counts when e_shnum overflows 0xff00 or e_shstrndx is
	// SHN_XINDEX, mirroring elf_init's post-header SHN_UNDEF/SHN_XINDEX
	// handling.
	if ctx.hdr.SecHeaderNum == 0 || ctx.hdr.SecNameStrIdx == uint16(elf.SectionXindex) {
		if ctx.hdr.SecHeaderOffset == 0 {
			return nil, elf.NewError(elf.KindBadHeader, op, nil)
		}
		null, err := ctx.rawSectionHeader(0)
		if err != nil {
			return nil, err
		}
		if null.Type != elf.SHT_NULL {
			return nil, elf.NewError(elf.KindBadFormat, op, nil)
		}
		if ctx.hdr.SecHeaderNum == 0 {
			ctx.hdr.SecHeaderNum = uint16(null.Size)
		}
		if ctx.hdr.SecNameStrIdx == uint16(elf.SectionXindex) {
			ctx.hdr.SecNameStrIdx = uint16(null.Link)
		}
	}

	return ctx, nil
}

func (c *Context) decodeHeader(b []byte) error {
	o := c.order
	if c.class == elf.Class32 {
		c.hdr.Type = elf.Type(codec.Uint16(b[16:], o))
		c.hdr.Machine = elf.Machine(codec.Uint16(b[18:], o))
		c.hdr.Version = elf.Version(codec.Uint32(b[20:], o))
		c.hdr.Entry = uint64(codec.Uint32(b[24:], o))
		c.hdr.ProgHeaderOffset = uint64(codec.Uint32(b[28:], o))
		c.hdr.SecHeaderOffset = uint64(codec.Uint32(b[32:], o))
		c.hdr.Flags = codec.Uint32(b[36:], o)
		c.hdr.HeaderSize = codec.Uint16(b[40:], o)
		c.hdr.ProgHeaderEntSize = codec.Uint16(b[42:], o)
		c.hdr.ProgHeaderNum = codec.Uint16(b[44:], o)
		c.hdr.SecHeaderEntSize = codec.Uint16(b[46:], o)
		c.hdr.SecHeaderNum = codec.Uint16(b[48:], o)
		c.hdr.SecNameStrIdx = codec.Uint16(b[50:], o)
	} else {
		c.hdr.Type = elf.Type(codec.Uint16(b[16:], o))
		c.hdr.Machine = elf.Machine(codec.Uint16(b[18:], o))
		c.hdr.Version = elf.Version(codec.Uint32(b[20:], o))
		c.hdr.Entry = codec.Uint64(b[24:], o)
		c.hdr.ProgHeaderOffset = codec.Uint64(b[32:], o)
		c.hdr.SecHeaderOffset = codec.Uint64(b[40:], o)
		c.hdr.Flags = codec.Uint32(b[48:], o)
		c.hdr.HeaderSize = codec.Uint16(b[52:], o)
		c.hdr.ProgHeaderEntSize = codec.Uint16(b[54:], o)
		c.hdr.ProgHeaderNum = codec.Uint16(b[56:], o)
		c.hdr.SecHeaderEntSize = codec.Uint16(b[58:], o)
		c.hdr.SecHeaderNum = codec.Uint16(b[60:], o)
		c.hdr.SecNameStrIdx = codec.Uint16(b[62:], o)
	}
	return nil
}

// Header returns the cached, class/endianness-independent file header.
func (c *Context) Header() (elf.Header, error) {
	if c == nil {
		return elf.Header{}, elf.NewError(elf.KindUninit, "reader.Header", nil)
	}
	return c.hdr, nil
}

// SectionCount returns the number of section header table entries, 0
// if ctx is nil, matching get_section_count's "errors would make
// iteration useless" reasoning.
func (c *Context) SectionCount() uint32 {
	if c == nil {
		return 0
	}
	return uint32(c.hdr.SecHeaderNum)
}

// ProgramHeaderCount returns the number of program header table
// entries, 0 if ctx is nil.
func (c *Context) ProgramHeaderCount() uint32 {
	if c == nil {
		return 0
	}
	return uint32(c.hdr.ProgHeaderNum)
}

func (c *Context) entHeaderSize() uint64 {
	if c.class == elf.Class32 {
		return elf.SizeofShdr32
	}
	return elf.SizeofShdr64
}

// rawSectionHeader decodes section idx without the SecHeaderNum bound
// check, used internally to read section 0 before the extended count
// is resolved.
func (c *Context) rawSectionHeader(idx uint32) (elf.SectionHeader, error) {
	const op = "reader.SectionHeader"
	size := c.entHeaderSize()
	off := c.hdr.SecHeaderOffset + uint64(idx)*uint64(c.hdr.SecHeaderEntSize)
	buf := make([]byte, size)
	if err := c.src.FetchAt(off, size, buf); err != nil {
		return elf.SectionHeader{}, elf.NewError(elf.KindIO, op, err)
	}

	var sh elf.SectionHeader
	o := c.order
	if c.class == elf.Class32 {
		sh.NameIdx = codec.Uint32(buf[0:], o)
		sh.Type = elf.SectionType(codec.Uint32(buf[4:], o))
		sh.Flags = elf.SectionFlag(codec.Uint32(buf[8:], o))
		sh.Address = uint64(codec.Uint32(buf[12:], o))
		sh.Offset = uint64(codec.Uint32(buf[16:], o))
		sh.Size = uint64(codec.Uint32(buf[20:], o))
		sh.Link = codec.Uint32(buf[24:], o)
		sh.Info = codec.Uint32(buf[28:], o)
		sh.Alignment = uint64(codec.Uint32(buf[32:], o))
		sh.EntSize = uint64(codec.Uint32(buf[36:], o))
	} else {
		sh.NameIdx = codec.Uint32(buf[0:], o)
		sh.Type = elf.SectionType(codec.Uint32(buf[4:], o))
		sh.Flags = elf.SectionFlag(codec.Uint64(buf[8:], o))
		sh.Address = codec.Uint64(buf[16:], o)
		sh.Offset = codec.Uint64(buf[24:], o)
		sh.Size = codec.Uint64(buf[32:], o)
		sh.Link = codec.Uint32(buf[40:], o)
		sh.Info = codec.Uint32(buf[44:], o)
		sh.Alignment = codec.Uint64(buf[48:], o)
		sh.EntSize = codec.Uint64(buf[56:], o)
	}
	return sh, nil
}

// SectionHeader decodes and validates the idx'th section header table
// entry, including the per-type entry-size invariants (REL/RELA/RELR,
// SYMTAB/DYNSYM) and the SHF_COMPRESSED/SHT_GROUP format checks,
// mirroring get_section_header.
func (c *Context) SectionHeader(idx uint32) (elf.SectionHeader, error) {
	const op = "reader.SectionHeader"
	if c == nil {
		return elf.SectionHeader{}, elf.NewError(elf.KindUninit, op, nil)
	}
	if idx >= uint32(c.hdr.SecHeaderNum) || c.hdr.SecHeaderNum == 0 {
		return elf.SectionHeader{}, elf.NewError(elf.KindBadIndex, op, nil)
	}

	sh, err := c.rawSectionHeader(idx)
	if err != nil {
		return elf.SectionHeader{}, err
	}

	var wantEntSize uint64
	switch sh.Type {
	case elf.SHT_RELA:
		if c.class == elf.Class32 {
			wantEntSize = elf.SizeofRela32
		} else {
			wantEntSize = elf.SizeofRela64
		}
	case elf.SHT_REL:
		if c.class == elf.Class32 {
			wantEntSize = elf.SizeofRel32
		} else {
			wantEntSize = elf.SizeofRel64
		}
	case elf.SHT_RELR:
		if c.class == elf.Class32 {
			wantEntSize = elf.SizeofRelr32
		} else {
			wantEntSize = elf.SizeofRelr64
		}
	case elf.SHT_DYNSYM, elf.SHT_SYMTAB:
		if c.class == elf.Class32 {
			wantEntSize = elf.SizeofSym32
		} else {
			wantEntSize = elf.SizeofSym64
		}
	}
	if wantEntSize != 0 && sh.EntSize != wantEntSize {
		return elf.SectionHeader{}, elf.NewError(elf.KindBadSize, op, nil)
	}

	if (sh.Flags&elf.SHF_COMPRESSED != 0 && sh.Flags&elf.SHF_ALLOC != 0) ||
		(sh.Flags&elf.SHF_COMPRESSED != 0 && sh.Type == elf.SHT_NOBITS) {
		return elf.SectionHeader{}, elf.NewError(elf.KindBadFormat, op, nil)
	}
	if sh.Type == elf.SHT_GROUP && c.hdr.Type != elf.TypeRel {
		return elf.SectionHeader{}, elf.NewError(elf.KindBadFormat, op, nil)
	}

	name, nameErr := c.SectionName(&sh)
	if nameErr == nil {
		sh.Name = name
	}
	return sh, nil
}

// SectionName resolves sh's name through the section header string
// table (e_shstrndx), mirroring get_section_name.
func (c *Context) SectionName(sh *elf.SectionHeader) (string, error) {
	const op = "reader.SectionName"
	if c == nil {
		return "", elf.NewError(elf.KindUninit, op, nil)
	}
	if sh == nil {
		return "", elf.NewError(elf.KindBadArg, op, nil)
	}
	strSec, err := c.rawSectionHeader(uint32(c.hdr.SecNameStrIdx))
	if err != nil {
		return "", err
	}
	return c.stringAt(strSec.Offset + uint64(sh.NameIdx))
}

// maxStringLen bounds how far internal string reads scan looking for a
// NUL terminator, matching the original's fixed 256-byte stack buffers.
const maxStringLen = 256

func (c *Context) stringAt(offset uint64) (string, error) {
	const op = "reader.stringAt"
	buf := make([]byte, 0, 32)
	var b [1]byte
	for i := 0; i < maxStringLen; i++ {
		if err := c.src.FetchAt(offset+uint64(i), 1, b[:]); err != nil {
			return "", elf.NewError(elf.KindIO, op, err)
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
	return "", elf.NewError(elf.KindBufferOverflow, op, nil)
}

// SectionByName linearly scans sections 1..count (section 0 is always
// the reserved null section) for one whose name matches, mirroring
// get_section_by_name.
func (c *Context) SectionByName(name string) (elf.SectionHeader, error) {
	const op = "reader.SectionByName"
	if c == nil {
		return elf.SectionHeader{}, elf.NewError(elf.KindUninit, op, nil)
	}
	count := c.SectionCount()
	if name == "" || count == 0 {
		return elf.SectionHeader{}, elf.NewError(elf.KindBadArg, op, nil)
	}
	for i := uint32(1); i < count; i++ {
		sh, err := c.SectionHeader(i)
		if err != nil {
			return elf.SectionHeader{}, err
		}
		if sh.Name == name {
			return sh, nil
		}
	}
	return elf.SectionHeader{}, elf.NewError(elf.KindNotFound, op, nil)
}

// ProgramHeader decodes the idx'th program header table entry,
// mirroring get_program_header.
func (c *Context) ProgramHeader(idx uint32) (elf.ProgramHeader, error) {
	const op = "reader.ProgramHeader"
	if c == nil {
		return elf.ProgramHeader{}, elf.NewError(elf.KindUninit, op, nil)
	}
	if idx >= uint32(c.hdr.ProgHeaderNum) {
		return elf.ProgramHeader{}, elf.NewError(elf.KindBadIndex, op, nil)
	}

	size := uint64(elf.SizeofPhdr32)
	if c.class == elf.Class64 {
		size = elf.SizeofPhdr64
	}
	off := c.hdr.ProgHeaderOffset + uint64(idx)*uint64(c.hdr.ProgHeaderEntSize)
	buf := make([]byte, size)
	if err := c.src.FetchAt(off, size, buf); err != nil {
		return elf.ProgramHeader{}, elf.NewError(elf.KindIO, op, err)
	}

	var ph elf.ProgramHeader
	o := c.order
	ph.Type = elf.SegmentType(codec.Uint32(buf[0:], o))
	if c.class == elf.Class32 {
		ph.Offset = uint64(codec.Uint32(buf[4:], o))
		ph.VirtAddr = uint64(codec.Uint32(buf[8:], o))
		ph.PhysAddr = uint64(codec.Uint32(buf[12:], o))
		ph.FileSize = uint64(codec.Uint32(buf[16:], o))
		ph.MemSize = uint64(codec.Uint32(buf[20:], o))
		ph.Flags = elf.SegmentFlag(codec.Uint32(buf[24:], o))
		ph.Alignment = uint64(codec.Uint32(buf[28:], o))
	} else {
		ph.Flags = elf.SegmentFlag(codec.Uint32(buf[4:], o))
		ph.Offset = codec.Uint64(buf[8:], o)
		ph.VirtAddr = codec.Uint64(buf[16:], o)
		ph.PhysAddr = codec.Uint64(buf[24:], o)
		ph.FileSize = codec.Uint64(buf[32:], o)
		ph.MemSize = codec.Uint64(buf[40:], o)
		ph.Alignment = codec.Uint64(buf[48:], o)
	}
	return ph, nil
}

// SymbolCount returns the number of entries in symtab, 0 if symtab is
// nil or has a zero entry size, matching get_symbol_count.
func (c *Context) SymbolCount(symtab *elf.SectionHeader) uint32 {
	if c == nil || symtab == nil || symtab.EntSize == 0 {
		return 0
	}
	return uint32(symtab.Size / symtab.EntSize)
}

// SymbolEntry decodes the idx'th entry of symtab, mirroring
// get_symbol_entry.
func (c *Context) SymbolEntry(symtab *elf.SectionHeader, idx uint32) (elf.SymbolEntry, error) {
	const op = "reader.SymbolEntry"
	if c == nil {
		return elf.SymbolEntry{}, elf.NewError(elf.KindUninit, op, nil)
	}
	if symtab == nil {
		return elf.SymbolEntry{}, elf.NewError(elf.KindBadArg, op, nil)
	}

	size := uint64(elf.SizeofSym32)
	if c.class == elf.Class64 {
		size = elf.SizeofSym64
	}
	off := symtab.Offset + uint64(idx)*symtab.EntSize
	buf := make([]byte, size)
	if err := c.src.FetchAt(off, size, buf); err != nil {
		return elf.SymbolEntry{}, elf.NewError(elf.KindIO, op, err)
	}

	var sym elf.SymbolEntry
	o := c.order
	if c.class == elf.Class32 {
		sym.NameIdx = codec.Uint32(buf[0:], o)
		sym.Value = uint64(codec.Uint32(buf[4:], o))
		sym.Size = uint64(codec.Uint32(buf[8:], o))
		bind, typ := elf.SplitSymbolInfo(buf[12])
		sym.Binding, sym.Type = bind, typ
		sym.SectionIdx = codec.Uint16(buf[14:], o)
	} else {
		sym.NameIdx = codec.Uint32(buf[0:], o)
		bind, typ := elf.SplitSymbolInfo(buf[4])
		sym.Binding, sym.Type = bind, typ
		sym.SectionIdx = codec.Uint16(buf[6:], o)
		sym.Value = codec.Uint64(buf[8:], o)
		sym.Size = codec.Uint64(buf[16:], o)
	}
	return sym, nil
}

// SymbolName resolves sym's name through the string table at strTabIdx
// (typically symtab.Link), mirroring get_symbol_name.
func (c *Context) SymbolName(strTabIdx uint32, sym *elf.SymbolEntry) (string, error) {
	const op = "reader.SymbolName"
	if sym == nil || strTabIdx == 0 {
		return "", elf.NewError(elf.KindBadArg, op, nil)
	}
	return c.StringFromTable(strTabIdx, sym.NameIdx)
}

// SymbolByAddrExact scans symtab for a FUNC or OBJECT symbol whose
// value equals addr, skipping the reserved null symbol (index 0) and
// SHN_UNDEF entries, mirroring get_symbol_by_addr_exact.
func (c *Context) SymbolByAddrExact(symtab *elf.SectionHeader, addr uint64) (elf.SymbolEntry, error) {
	const op = "reader.SymbolByAddrExact"
	count := c.SymbolCount(symtab)
	if count == 0 {
		return elf.SymbolEntry{}, elf.NewError(elf.KindBadArg, op, nil)
	}
	for i := uint32(1); i < count; i++ {
		sym, err := c.SymbolEntry(symtab, i)
		if err != nil {
			return elf.SymbolEntry{}, err
		}
		if sym.SectionIdx == uint16(elf.SectionUndef) {
			continue
		}
		if sym.Type != elf.STT_FUNC && sym.Type != elf.STT_OBJECT {
			continue
		}
		if sym.Value == addr {
			return sym, nil
		}
	}
	return elf.SymbolEntry{}, elf.NewError(elf.KindNotFound, op, nil)
}

// SymbolByAddrRange scans symtab for a symbol whose [Value, Value+Size)
// range contains addr, no type filter, strict upper-bound inequality,
// mirroring get_symbol_by_addr_range (and resolving spec.md's Open
// Question on range lookup the same way).
func (c *Context) SymbolByAddrRange(symtab *elf.SectionHeader, addr uint64) (elf.SymbolEntry, error) {
	const op = "reader.SymbolByAddrRange"
	count := c.SymbolCount(symtab)
	if count == 0 {
		return elf.SymbolEntry{}, elf.NewError(elf.KindBadArg, op, nil)
	}
	for i := uint32(1); i < count; i++ {
		sym, err := c.SymbolEntry(symtab, i)
		if err != nil {
			return elf.SymbolEntry{}, err
		}
		if sym.SectionIdx == uint16(elf.SectionUndef) {
			continue
		}
		if addr >= sym.Value && addr < sym.Value+sym.Size {
			return sym, nil
		}
	}
	return elf.SymbolEntry{}, elf.NewError(elf.KindNotFound, op, nil)
}

// SymbolByName scans symtab for a symbol whose name (resolved through
// symtab.Link) equals name, mirroring get_symbol_by_name.
func (c *Context) SymbolByName(name string, symtab *elf.SectionHeader) (elf.SymbolEntry, error) {
	const op = "reader.SymbolByName"
	count := c.SymbolCount(symtab)
	if name == "" || count == 0 {
		return elf.SymbolEntry{}, elf.NewError(elf.KindBadArg, op, nil)
	}
	for i := uint32(1); i < count; i++ {
		sym, err := c.SymbolEntry(symtab, i)
		if err != nil {
			return elf.SymbolEntry{}, err
		}
		symName, err := c.SymbolName(symtab.Link, &sym)
		if err != nil {
			return elf.SymbolEntry{}, err
		}
		if symName == name {
			return sym, nil
		}
	}
	return elf.SymbolEntry{}, elf.NewError(elf.KindNotFound, op, nil)
}

// StringFromTable resolves strIdx within the SHT_STRTAB section at
// sectionIdx, mirroring get_str_from_table.
func (c *Context) StringFromTable(sectionIdx, strIdx uint32) (string, error) {
	const op = "reader.StringFromTable"
	if c == nil {
		return "", elf.NewError(elf.KindUninit, op, nil)
	}
	strTab, err := c.SectionHeader(sectionIdx)
	if err != nil {
		return "", err
	}
	if strTab.Type != elf.SHT_STRTAB || strTab.Size <= uint64(strIdx) {
		return "", elf.NewError(elf.KindBadArg, op, nil)
	}
	return c.stringAt(strTab.Offset + uint64(strIdx))
}

// SectionCompressionHeader decodes the Elf32_Chdr/Elf64_Chdr leading a
// SHF_COMPRESSED section's data, without inflating the payload (§1
// Non-goals) — supplemental over the original, which leaves this a
// //TODO, ported instead from the teacher's own compression bookkeeping
// in file/file.go (Section.compressionType/compressionOffset).
func (c *Context) SectionCompressionHeader(sh *elf.SectionHeader) (*elf.CompressionHeader, error) {
	const op = "reader.SectionCompressionHeader"
	if c == nil {
		return nil, elf.NewError(elf.KindUninit, op, nil)
	}
	if sh == nil {
		return nil, elf.NewError(elf.KindBadArg, op, nil)
	}
	if sh.Flags&elf.SHF_COMPRESSED == 0 {
		return nil, elf.NewError(elf.KindBadArg, op, fmt.Errorf("section %q is not SHF_COMPRESSED", sh.Name))
	}

	size := uint64(elf.SizeofChdr32)
	if c.class == elf.Class64 {
		size = elf.SizeofChdr64
	}
	buf := make([]byte, size)
	if err := c.src.FetchAt(sh.Offset, size, buf); err != nil {
		return nil, elf.NewError(elf.KindIO, op, err)
	}

	ch := &elf.CompressionHeader{}
	o := c.order
	if c.class == elf.Class32 {
		ch.Type = elf.CompressionType(codec.Uint32(buf[0:], o))
		ch.Size = uint64(codec.Uint32(buf[4:], o))
		ch.Alignment = uint64(codec.Uint32(buf[8:], o))
	} else {
		ch.Type = elf.CompressionType(codec.Uint32(buf[0:], o))
		ch.Size = codec.Uint64(buf[8:], o)
		ch.Alignment = codec.Uint64(buf[16:], o)
	}
	return ch, nil
}
