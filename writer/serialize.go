package writer

import (
	"github.com/H-Cebrecos/elf-lib/elf"
	"github.com/H-Cebrecos/elf-lib/internal/codec"
)

// Serialize lays out every section and segment under policy and emits
// the resulting byte-exact ELF image through sink in a single pass.
// Only LayoutCompat is implemented (spec.md §9's resolved Open
// Question); anything else returns ErrUnsupportedLayout.
func (c *Context) Serialize(sink ByteSink, policy LayoutPolicy) error {
	const op = "writer.Serialize"
	if c == nil || !c.haveHead {
		return elf.NewError(elf.KindUninit, op, nil)
	}
	if policy != LayoutCompat {
		return ErrUnsupportedLayout
	}
	if sink == nil {
		return elf.NewError(elf.KindBadArg, op, nil)
	}

	ehdrSize := uint64(elf.SizeofEhdr32)
	shdrSize := uint64(elf.SizeofShdr32)
	phdrSize := uint64(elf.SizeofPhdr32)
	if c.header.Class == elf.Class64 {
		ehdrSize, shdrSize, phdrSize = elf.SizeofEhdr64, elf.SizeofShdr64, elf.SizeofPhdr64
	}

	// 1+2. Pack each section's chunk list and assign file offsets in
	// declaration order (COMPAT policy).
	cur := ehdrSize
	for _, sec := range c.sections {
		align := sec.header.Alignment
		if align == 0 {
			align = 1
		}
		cur = alignUp(cur, align)
		sec.offset = cur

		var dataSize uint64
		for _, ch := range sec.chunks {
			chAlign := ch.align
			if chAlign == 0 {
				chAlign = 1
			}
			dataSize = alignUp(dataSize, chAlign) + uint64(len(ch.data))
		}
		sec.size = dataSize
		if sec.header.Type != elf.SHT_NOBITS {
			cur += dataSize
		}
	}

	// 3. Program header table, then section header table, 8-byte aligned.
	var progHeaderOffset uint64
	if len(c.segments) > 0 {
		progHeaderOffset = alignUp(cur, 8)
		cur = progHeaderOffset + uint64(len(c.segments))*phdrSize
	}
	secHeaderOffset := alignUp(cur, 8)
	numSections := uint64(len(c.sections)) + 1 // +1 for the reserved null entry

	// shstrtab resolution: the last SHT_STRTAB section added is treated
	// as the section-name string table (see DESIGN.md: the original
	// writer leaves name resolution entirely unspecified/TODO, so this
	// module resolves it the way its own round-trip test expects — the
	// caller supplies the fully-formed string pool bytes via SetData,
	// and Serialize only looks up each name's existing offset in it).
	shstrndx := uint64(0)
	var shstrtabPool []byte
	for i, sec := range c.sections {
		if sec.header.Type == elf.SHT_STRTAB {
			shstrndx = uint64(i) + 1
			shstrtabPool = concatChunks(sec.chunks)
		}
	}

	// 4. Resolve Link fields and name offsets. A link handle or segment
	// map that doesn't belong to this context is BAD_ARG at serialize
	// time (spec.md §4.7: "Invalid references ... produce BAD_ARG at
	// serialise time"), not a silently-zeroed link.
	for _, sec := range c.sections {
		if sec.link != nil {
			idx := indexOf(c.sections, sec.link)
			if idx < 0 {
				return elf.NewError(elf.KindBadArg, op, nil)
			}
			sec.header.Link = uint32(idx + 1)
		}
		sec.header.NameIdx = uint32(findStringOffset(shstrtabPool, sec.name))
	}
	for _, seg := range c.segments {
		for _, m := range seg.maps {
			if indexOf(c.sections, m.section) < 0 {
				return elf.NewError(elf.KindBadArg, op, nil)
			}
		}
	}

	// Extended-count / extended-index sentinel handling mirrors the
	// reader's resolution in reverse (write side of §3 invariant 5).
	shnumField := numSections
	shstrndxField := shstrndx
	needsNullSentinel := numSections >= uint64(elf.SectionLoreserve) || shstrndx >= uint64(elf.SectionLoreserve)
	if numSections >= uint64(elf.SectionLoreserve) {
		shnumField = 0
	}
	if shstrndx >= uint64(elf.SectionLoreserve) {
		shstrndxField = uint64(elf.SectionXindex)
	}

	// 5+6. Encode and emit: header, then sections (inter-section pad,
	// chunks + intra-section pad), then program headers, then section
	// headers.
	if err := c.emitHeader(sink, ehdrSize, phdrSize, shdrSize, progHeaderOffset, secHeaderOffset, uint16(shnumField), uint16(shstrndxField), len(c.segments)); err != nil {
		return err
	}
	end := ehdrSize
	for _, sec := range c.sections {
		if sec.header.Type == elf.SHT_NOBITS {
			continue
		}
		if sec.offset > end {
			pad := make([]byte, sec.offset-end)
			if err := sink.EmitAt(end, uint64(len(pad)), pad); err != nil {
				return elf.NewError(elf.KindIO, op, err)
			}
		}
		if err := emitChunks(sink, sec.offset, sec.chunks); err != nil {
			return err
		}
		end = sec.offset + sec.size
	}
	if len(c.segments) > 0 {
		if err := c.emitProgramHeaders(sink, progHeaderOffset, phdrSize); err != nil {
			return err
		}
	}
	if err := c.emitSectionHeaders(sink, secHeaderOffset, shdrSize, needsNullSentinel, numSections, shstrndx); err != nil {
		return err
	}
	return nil
}

func concatChunks(chunks []chunk) []byte {
	var out []byte
	var off uint64
	for _, ch := range chunks {
		align := ch.align
		if align == 0 {
			align = 1
		}
		padded := alignUp(off, align)
		for uint64(len(out)) < padded {
			out = append(out, 0)
		}
		out = append(out, ch.data...)
		off = padded + uint64(len(ch.data))
	}
	return out
}

// findStringOffset returns the byte offset of name within pool such
// that it starts at pool[0] or right after a NUL, and is itself
// NUL-terminated; 0 (the empty name at the start of every string
// table) if name is empty or not found.
func findStringOffset(pool []byte, name string) int {
	if name == "" {
		return 0
	}
	n := len(name)
	for i := 0; i+n < len(pool); i++ {
		if i > 0 && pool[i-1] != 0 {
			continue
		}
		if string(pool[i:i+n]) == name && pool[i+n] == 0 {
			return i
		}
	}
	return 0
}

func indexOf(secs []*Section, target *Section) int {
	for i, s := range secs {
		if s == target {
			return i
		}
	}
	return -1
}

func emitChunks(sink ByteSink, base uint64, chunks []chunk) error {
	var off uint64
	for _, ch := range chunks {
		align := ch.align
		if align == 0 {
			align = 1
		}
		padded := alignUp(off, align)
		if padded > off {
			pad := make([]byte, padded-off)
			if err := sink.EmitAt(base+off, uint64(len(pad)), pad); err != nil {
				return elf.NewError(elf.KindIO, "writer.Serialize", err)
			}
		}
		if len(ch.data) > 0 {
			if err := sink.EmitAt(base+padded, uint64(len(ch.data)), ch.data); err != nil {
				return elf.NewError(elf.KindIO, "writer.Serialize", err)
			}
		}
		off = padded + uint64(len(ch.data))
	}
	return nil
}

func (c *Context) emitHeader(sink ByteSink, ehdrSize, phdrSize, shdrSize, progOff, secOff uint64, shnum, shstrndx uint16, segCount int) error {
	buf := make([]byte, ehdrSize)
	buf[0], buf[1], buf[2], buf[3] = 0x7f, 'E', 'L', 'F'
	buf[4] = byte(c.header.Class)
	buf[5] = byte(c.header.Data)
	buf[6] = byte(elf.VersionCurrent)
	buf[7] = byte(c.header.OSABI)
	buf[8] = c.header.ABIVersion

	o := c.order
	codec.PutUint16(buf[16:], uint16(c.header.Type), o)
	codec.PutUint16(buf[18:], uint16(c.header.Machine), o)
	codec.PutUint32(buf[20:], uint32(elf.VersionCurrent), o)

	phnum := uint16(segCount)
	numSections := shnum

	if c.header.Class == elf.Class32 {
		codec.PutUint32(buf[24:], uint32(c.header.Entry), o)
		codec.PutUint32(buf[28:], uint32(progOff), o)
		codec.PutUint32(buf[32:], uint32(secOff), o)
		codec.PutUint32(buf[36:], c.header.Flags, o)
		codec.PutUint16(buf[40:], uint16(ehdrSize), o)
		codec.PutUint16(buf[42:], uint16(phdrSize), o)
		codec.PutUint16(buf[44:], phnum, o)
		codec.PutUint16(buf[46:], uint16(shdrSize), o)
		codec.PutUint16(buf[48:], numSections, o)
		codec.PutUint16(buf[50:], shstrndx, o)
	} else {
		codec.PutUint64(buf[24:], c.header.Entry, o)
		codec.PutUint64(buf[32:], progOff, o)
		codec.PutUint64(buf[40:], secOff, o)
		codec.PutUint32(buf[48:], c.header.Flags, o)
		codec.PutUint16(buf[52:], uint16(ehdrSize), o)
		codec.PutUint16(buf[54:], uint16(phdrSize), o)
		codec.PutUint16(buf[56:], phnum, o)
		codec.PutUint16(buf[58:], uint16(shdrSize), o)
		codec.PutUint16(buf[60:], numSections, o)
		codec.PutUint16(buf[62:], shstrndx, o)
	}

	if err := sink.EmitAt(0, uint64(len(buf)), buf); err != nil {
		return elf.NewError(elf.KindIO, "writer.Serialize", err)
	}
	return nil
}

func (c *Context) emitProgramHeaders(sink ByteSink, base, phdrSize uint64) error {
	for i, seg := range c.segments {
		buf := make([]byte, phdrSize)
		o := c.order
		var off, vaddr, paddr, filesz, memsz uint64
		if len(seg.maps) > 0 {
			off = seg.maps[0].section.offset + seg.maps[0].sectionOff
			for _, m := range seg.maps {
				filesz += m.size
				memsz += m.size
			}
		}
		codec.PutUint32(buf[0:], uint32(seg.typ), o)
		if c.header.Class == elf.Class32 {
			codec.PutUint32(buf[4:], uint32(off), o)
			codec.PutUint32(buf[8:], uint32(vaddr), o)
			codec.PutUint32(buf[12:], uint32(paddr), o)
			codec.PutUint32(buf[16:], uint32(filesz), o)
			codec.PutUint32(buf[20:], uint32(memsz), o)
			codec.PutUint32(buf[24:], uint32(seg.flags), o)
			codec.PutUint32(buf[28:], uint32(seg.align), o)
		} else {
			codec.PutUint32(buf[4:], uint32(seg.flags), o)
			codec.PutUint64(buf[8:], off, o)
			codec.PutUint64(buf[16:], vaddr, o)
			codec.PutUint64(buf[24:], paddr, o)
			codec.PutUint64(buf[32:], filesz, o)
			codec.PutUint64(buf[40:], memsz, o)
			codec.PutUint64(buf[48:], seg.align, o)
		}
		if err := sink.EmitAt(base+uint64(i)*phdrSize, phdrSize, buf); err != nil {
			return elf.NewError(elf.KindIO, "writer.Serialize", err)
		}
	}
	return nil
}

func (c *Context) emitSectionHeaders(sink ByteSink, base, shdrSize uint64, needsSentinel bool, numSections, shstrndx uint64) error {
	o := c.order

	writeOne := func(i uint64, nameIdx uint32, typ elf.SectionType, flags elf.SectionFlag, addr, offset, size uint64, link, info uint32, align, entSize uint64) error {
		buf := make([]byte, shdrSize)
		if c.header.Class == elf.Class32 {
			codec.PutUint32(buf[0:], nameIdx, o)
			codec.PutUint32(buf[4:], uint32(typ), o)
			codec.PutUint32(buf[8:], uint32(flags), o)
			codec.PutUint32(buf[12:], uint32(addr), o)
			codec.PutUint32(buf[16:], uint32(offset), o)
			codec.PutUint32(buf[20:], uint32(size), o)
			codec.PutUint32(buf[24:], link, o)
			codec.PutUint32(buf[28:], info, o)
			codec.PutUint32(buf[32:], uint32(align), o)
			codec.PutUint32(buf[36:], uint32(entSize), o)
		} else {
			codec.PutUint32(buf[0:], nameIdx, o)
			codec.PutUint32(buf[4:], uint32(typ), o)
			codec.PutUint64(buf[8:], uint64(flags), o)
			codec.PutUint64(buf[16:], addr, o)
			codec.PutUint64(buf[24:], offset, o)
			codec.PutUint64(buf[32:], size, o)
			codec.PutUint32(buf[40:], link, o)
			codec.PutUint32(buf[44:], info, o)
			codec.PutUint64(buf[48:], align, o)
			codec.PutUint64(buf[56:], entSize, o)
		}
		return sink.EmitAt(base+i*shdrSize, shdrSize, buf)
	}

	// Section 0: reserved null entry, carrying the extended-count and
	// extended-shstrndx sentinel values when needed.
	var null0Size uint64
	var null0Link uint32
	if needsSentinel {
		null0Size = numSections
		null0Link = uint32(shstrndx)
	}
	if err := writeOne(0, 0, elf.SHT_NULL, 0, 0, 0, null0Size, null0Link, 0, 0, 0); err != nil {
		return elf.NewError(elf.KindIO, "writer.Serialize", err)
	}

	for i, sec := range c.sections {
		if err := writeOne(uint64(i)+1, sec.header.NameIdx, sec.header.Type, sec.header.Flags, sec.header.Address, sec.offset, sec.size, sec.header.Link, sec.header.Info, sec.header.Alignment, sec.header.EntSize); err != nil {
			return elf.NewError(elf.KindIO, "writer.Serialize", err)
		}
	}
	return nil
}
