// Package writer implements the push-based ELF writer: callers build an
// in-memory tree of sections, segments and chunks against a Context,
// then Serialize lays the tree out and emits it through a caller
// supplied ByteSink in one pass.
//
// Grounded on original_source/src/writer/elf_writer.{h,c}, which stops
// at a stubbed data model (ElfWSection/Chunk/ElfWSegment, most
// functions left `//TODO`); this package completes the layout and
// emission algorithm the original only sketched, mirrored against the
// reader's codec (internal/codec) for round-trip byte-for-byte
// symmetry, per the design's §4.7 invariant that a file written by this
// package and re-opened by reader.Open decodes to the same values.
package writer

import (
	"fmt"

	"github.com/H-Cebrecos/elf-lib/elf"
	"github.com/H-Cebrecos/elf-lib/internal/codec"
)

// ByteSink abstracts where the writer emits bytes: an os.File, an
// in-memory buffer, or a remote blob upload. It mirrors reader.ByteSource
// for the opposite direction, replacing the original's ElfIOCallback
// (void* user context + function pointer over a const buffer).
type ByteSink interface {
	EmitAt(offset, size uint64, src []byte) error
}

// ByteSinkFunc adapts a plain function to a ByteSink.
type ByteSinkFunc func(offset, size uint64, src []byte) error

// EmitAt implements ByteSink.
func (f ByteSinkFunc) EmitAt(offset, size uint64, src []byte) error {
	return f(offset, size, src)
}

// LayoutPolicy selects how Serialize assigns file offsets to sections.
// Only LayoutCompat is implemented; the others are declared per spec.md
// §9's open question ("only COMPAT semantics are implied") so the
// public API shape matches the original's ElfwLayoutPolicy enum without
// promising behavior this module does not implement.
type LayoutPolicy uint8

const (
	LayoutCompat LayoutPolicy = iota
	LayoutFast
	LayoutPacked
	LayoutMinimal
)

// ErrUnsupportedLayout is returned by Serialize for any LayoutPolicy
// other than LayoutCompat.
var ErrUnsupportedLayout = elf.NewError(elf.KindBadArg, "writer.Serialize", fmt.Errorf("unsupported layout policy"))

// HeaderCreateInfo describes the fixed identity fields of the ELF
// header; ported from ElfwHeaderCreateInfo.
type HeaderCreateInfo struct {
	Class      elf.Class
	Data       elf.DataEncoding
	Type       elf.Type
	Machine    elf.Machine
	OSABI      elf.OSABI
	ABIVersion uint8
	Entry      uint64
	Flags      uint32
}

// chunk is one scatter-gather piece of a section's payload; unexported,
// internal to Section, matching the original's Chunk/ElfWSection split
// where the chunk list is private to the owning section.
type chunk struct {
	data  []byte
	align uint64
}

// Section is a writer-time handle to a section under construction.
// Handle validity is scoped to the Context that created it: Serialize
// rejects any Section/Segment not present in its own slices, the Go
// analogue of the original's "index to avoid dangling pointers" note
// without doing index arithmetic (see DESIGN.md).
type Section struct {
	name   string
	header elf.SectionHeader
	link   *Section
	chunks []chunk
	// layout-time fields, set by Serialize
	offset uint64
	size   uint64
}

// SectionCreateInfo describes a new section; ported from
// ElfwSectionCreateInfo. Link references another section created on
// the same Context (or nil).
type SectionCreateInfo struct {
	Name      string
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Address   uint64
	Link      *Section
	Info      uint32
	Alignment uint64
	EntrySize uint64
}

// segMap records one section's contribution to a segment, ported from
// ElfwSegMap.
type segMap struct {
	section    *Section
	sectionOff uint64
	size       uint64
	vaddrAlign *uint64
}

// Segment is a writer-time handle to a program-header entry under
// construction.
type Segment struct {
	typ   elf.SegmentType
	flags elf.SegmentFlag
	align uint64
	maps  []segMap
}

// SegmentCreateInfo describes a new segment.
type SegmentCreateInfo struct {
	Type      elf.SegmentType
	Flags     elf.SegmentFlag
	Alignment uint64
}

// Context accumulates sections and segments before a single Serialize
// pass. Unsynchronized: callers needing concurrent access must provide
// their own locking, matching the reader's Context and the teacher's
// own lock-free file.File.
type Context struct {
	header   HeaderCreateInfo
	haveHead bool
	sections []*Section
	segments []*Segment
	order    codec.ByteOrder
}

// NewContext creates an empty writer context, the Go replacement for
// elfw_create/elfw_destroy (no explicit destroy: Context and everything
// it owns is garbage collected).
func NewContext() *Context {
	return &Context{}
}

// CreateHeader records the fixed identity fields of the ELF header.
// Re-invocation after sections have already been added is left
// undefined (no panic, no validation), matching spec.md §9's resolved
// Open Question and the original's own lack of a guard in
// elfw_create_header.
func (c *Context) CreateHeader(info HeaderCreateInfo) error {
	const op = "writer.CreateHeader"
	if c == nil {
		return elf.NewError(elf.KindUninit, op, nil)
	}
	if info.Class != elf.Class32 && info.Class != elf.Class64 {
		return elf.NewError(elf.KindBadClass, op, nil)
	}
	if info.Data != elf.DataLSB && info.Data != elf.DataMSB {
		return elf.NewError(elf.KindBadEndianness, op, nil)
	}
	c.header = info
	c.haveHead = true
	if info.Data == elf.DataMSB {
		c.order = codec.BigEndian
	} else {
		c.order = codec.LittleEndian
	}
	return nil
}

// AddSection appends a new section to the context and returns its
// handle, ported from elfw_add_section. The original leaves this
// unimplemented beyond allocating a single slot, so the validation
// below is built fresh from spec.md §4.6's rules rather than ported
// from working C.
func (c *Context) AddSection(info SectionCreateInfo) (*Section, error) {
	const op = "writer.AddSection"
	if c == nil || !c.haveHead {
		return nil, elf.NewError(elf.KindUninit, op, nil)
	}
	if info.Alignment == 0 || !isPowerOfTwo(info.Alignment) {
		return nil, elf.NewError(elf.KindBadArg, op, nil)
	}
	if info.Address%info.Alignment != 0 {
		return nil, elf.NewError(elf.KindBadArg, op, nil)
	}
	if info.Address != 0 && info.Flags&elf.SHF_ALLOC == 0 {
		return nil, elf.NewError(elf.KindBadArg, op, nil)
	}
	if info.EntrySize%info.Alignment != 0 {
		return nil, elf.NewError(elf.KindBadArg, op, nil)
	}
	switch info.Type {
	case elf.SHT_NULL:
		if info.Address != 0 || info.EntrySize != 0 {
			return nil, elf.NewError(elf.KindBadArg, op, nil)
		}
	case elf.SHT_STRTAB:
		if info.EntrySize != 0 && info.EntrySize != 1 {
			return nil, elf.NewError(elf.KindBadArg, op, nil)
		}
	case elf.SHT_SYMTAB, elf.SHT_DYNSYM:
		if c.header.Class != elf.ClassNone {
			wantEntSize := uint64(elf.SizeofSym32)
			if c.header.Class == elf.Class64 {
				wantEntSize = elf.SizeofSym64
			}
			if info.EntrySize != wantEntSize {
				return nil, elf.NewError(elf.KindBadArg, op, nil)
			}
		}
	}

	sec := &Section{
		name: info.Name,
		header: elf.SectionHeader{
			Type:      info.Type,
			Flags:     info.Flags,
			Address:   info.Address,
			Info:      info.Info,
			Alignment: info.Alignment,
			EntSize:   info.EntrySize,
		},
		link: info.Link,
	}
	c.sections = append(c.sections, sec)
	return sec, nil
}

// isPowerOfTwo reports whether n is a non-zero power of two.
func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// SetData replaces a section's data with a single chunk, ported from
// elfw_section_set_data. The slice is retained, not copied, matching
// the original's documented "data is not copied" contract.
func (s *Section) SetData(data []byte, align uint64) error {
	const op = "writer.Section.SetData"
	if s == nil {
		return elf.NewError(elf.KindBadArg, op, nil)
	}
	s.chunks = []chunk{{data: data, align: align}}
	return nil
}

// AppendData adds one more chunk to a section's scatter-gather list,
// ported from elfw_section_append_data.
func (s *Section) AppendData(data []byte, align uint64) error {
	const op = "writer.Section.AppendData"
	if s == nil {
		return elf.NewError(elf.KindBadArg, op, nil)
	}
	s.chunks = append(s.chunks, chunk{data: data, align: align})
	return nil
}

// NextOffset returns the offset, relative to the start of the section
// and satisfying align, at which the next appended chunk would land.
// Read-only, ported from elfw_section_next_offset.
func (s *Section) NextOffset(align uint64) uint64 {
	if s == nil {
		return 0
	}
	var off uint64
	for _, ch := range s.chunks {
		off = alignUp(off, ch.align) + uint64(len(ch.data))
	}
	return alignUp(off, align)
}

// AddSegment appends a new segment, the writer-side half of the
// original's stubbed ElfWSegment.
func (c *Context) AddSegment(info SegmentCreateInfo) (*Segment, error) {
	const op = "writer.AddSegment"
	if c == nil || !c.haveHead {
		return nil, elf.NewError(elf.KindUninit, op, nil)
	}
	seg := &Segment{typ: info.Type, flags: info.Flags, align: info.Alignment}
	c.segments = append(c.segments, seg)
	return seg, nil
}

// AddMap records that section contributes [offset, offset+size) of its
// own data to this segment, ported from ElfwSegMap. vaddrAlign is
// recorded with the map but Serialize does not read it: emitted program
// headers carry zero virtual and physical addresses.
func (seg *Segment) AddMap(section *Section, offset, size uint64, vaddrAlign *uint64) error {
	const op = "writer.Segment.AddMap"
	if seg == nil {
		return elf.NewError(elf.KindUninit, op, nil)
	}
	if section == nil {
		return elf.NewError(elf.KindBadArg, op, nil)
	}
	seg.maps = append(seg.maps, segMap{section: section, sectionOff: offset, size: size, vaddrAlign: vaddrAlign})
	return nil
}

func alignUp(off, align uint64) uint64 {
	if align == 0 || align == 1 {
		return off
	}
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}
