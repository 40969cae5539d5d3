package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H-Cebrecos/elf-lib/elf"
	"github.com/H-Cebrecos/elf-lib/internal/elftest"
	"github.com/H-Cebrecos/elf-lib/reader"
)

// Scenario 6: writer round-trip — build an EXEC/NONE ELF64 LSB file
// with one PROGBITS .text section and a trailing .shstrtab, serialize
// it, then decode it back with the reader package.
func TestSerializeRoundTrip(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{
		Class:   elf.Class64,
		Data:    elf.DataLSB,
		Type:    elf.TypeExec,
		Machine: elf.MachineNone,
	}))

	text, err := ctx.AddSection(SectionCreateInfo{
		Name:      ".text",
		Type:      elf.SHT_PROGBITS,
		Flags:     elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Alignment: 4,
	})
	require.NoError(t, err)

	payload := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c}
	require.NoError(t, text.SetData(payload, 1))

	pool := append([]byte{0}, []byte(".text\x00.shstrtab\x00")...)
	shstrtab, err := ctx.AddSection(SectionCreateInfo{
		Name:      ".shstrtab",
		Type:      elf.SHT_STRTAB,
		Alignment: 1,
	})
	require.NoError(t, err)
	require.NoError(t, shstrtab.SetData(pool, 1))

	buf := elftest.NewBuffer(nil)
	require.NoError(t, ctx.Serialize(buf, LayoutCompat))

	rctx, err := reader.Open(buf)
	require.NoError(t, err)

	assert.EqualValues(t, 3, rctx.SectionCount())

	sh, err := rctx.SectionHeader(1)
	require.NoError(t, err)
	assert.Equal(t, ".text", sh.Name)
	assert.EqualValues(t, 13, sh.Size)
	assert.EqualValues(t, 4, sh.Alignment)
	assert.Zero(t, sh.Offset%4)

	firstByte := make([]byte, 1)
	require.NoError(t, buf.FetchAt(sh.Offset, 1, firstByte))
	assert.Equal(t, byte(0x00), firstByte[0])
}

func TestSerializeRejectsUnsupportedLayout(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{
		Class: elf.Class64,
		Data:  elf.DataLSB,
		Type:  elf.TypeExec,
	}))

	buf := elftest.NewBuffer(nil)
	err := ctx.Serialize(buf, LayoutFast)
	assert.ErrorIs(t, err, ErrUnsupportedLayout)
}

func TestSectionNextOffsetDoesNotMutate(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{
		Class: elf.Class64,
		Data:  elf.DataLSB,
		Type:  elf.TypeRel,
	}))
	sec, err := ctx.AddSection(SectionCreateInfo{Name: ".data", Type: elf.SHT_PROGBITS, Alignment: 1})
	require.NoError(t, err)
	require.NoError(t, sec.SetData([]byte{1, 2, 3}, 1))

	before := sec.NextOffset(1)
	after := sec.NextOffset(1)
	assert.Equal(t, before, after)
	assert.EqualValues(t, 3, before)
}

func TestCreateHeaderRejectsBadClass(t *testing.T) {
	ctx := NewContext()
	err := ctx.CreateHeader(HeaderCreateInfo{Class: elf.ClassNone, Data: elf.DataLSB})
	assert.ErrorIs(t, err, elf.ErrBadClass)
}

func TestAddSectionRequiresHeader(t *testing.T) {
	ctx := NewContext()
	_, err := ctx.AddSection(SectionCreateInfo{Name: ".text"})
	assert.ErrorIs(t, err, elf.ErrUninit)
}

func TestAddSectionRejectsBadAlignment(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeRel}))

	_, err := ctx.AddSection(SectionCreateInfo{Name: ".data", Type: elf.SHT_PROGBITS, Alignment: 0})
	assert.ErrorIs(t, err, elf.ErrBadArg)

	_, err = ctx.AddSection(SectionCreateInfo{Name: ".data", Type: elf.SHT_PROGBITS, Alignment: 3})
	assert.ErrorIs(t, err, elf.ErrBadArg)
}

func TestAddSectionRejectsMisalignedAddress(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeExec}))

	_, err := ctx.AddSection(SectionCreateInfo{
		Name: ".data", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC,
		Address: 0x1001, Alignment: 8,
	})
	assert.ErrorIs(t, err, elf.ErrBadArg)
}

func TestAddSectionRejectsAddressWithoutAlloc(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeExec}))

	_, err := ctx.AddSection(SectionCreateInfo{
		Name: ".data", Type: elf.SHT_PROGBITS, Address: 0x1000, Alignment: 8,
	})
	assert.ErrorIs(t, err, elf.ErrBadArg)
}

func TestAddSectionRejectsBadNullSection(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeRel}))

	_, err := ctx.AddSection(SectionCreateInfo{Name: "", Type: elf.SHT_NULL, Flags: elf.SHF_ALLOC, Address: 0x10, Alignment: 1})
	assert.ErrorIs(t, err, elf.ErrBadArg)
}

func TestAddSectionRejectsBadStrtabEntrySize(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeRel}))

	_, err := ctx.AddSection(SectionCreateInfo{Name: ".strtab", Type: elf.SHT_STRTAB, Alignment: 1, EntrySize: 2})
	assert.ErrorIs(t, err, elf.ErrBadArg)
}

func TestAddSectionRejectsBadSymtabEntrySize(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeRel}))

	_, err := ctx.AddSection(SectionCreateInfo{
		Name: ".symtab", Type: elf.SHT_SYMTAB, Alignment: 8, EntrySize: elf.SizeofSym32,
	})
	assert.ErrorIs(t, err, elf.ErrBadArg)

	sec, err := ctx.AddSection(SectionCreateInfo{
		Name: ".symtab", Type: elf.SHT_SYMTAB, Alignment: 8, EntrySize: elf.SizeofSym64,
	})
	require.NoError(t, err)
	assert.NotNil(t, sec)
}

// TestSerializeRejectsForeignLink builds a Section.link handle on one
// Context and serializes it through another: the handle doesn't belong
// to the serializing context's own sections slice, so Serialize must
// reject it rather than silently writing Link = 0.
func TestSerializeRejectsForeignLink(t *testing.T) {
	other := NewContext()
	require.NoError(t, other.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeRel}))
	foreign, err := other.AddSection(SectionCreateInfo{Name: ".foreign", Type: elf.SHT_PROGBITS, Alignment: 1})
	require.NoError(t, err)

	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeRel}))
	_, err = ctx.AddSection(SectionCreateInfo{Name: ".data", Type: elf.SHT_PROGBITS, Alignment: 1, Link: foreign})
	require.NoError(t, err)

	buf := elftest.NewBuffer(nil)
	err = ctx.Serialize(buf, LayoutCompat)
	assert.ErrorIs(t, err, elf.ErrBadArg)
}

// TestSerializeRejectsForeignSegmentMap does the same for a segment map
// referencing a section from a different Context.
func TestSerializeRejectsForeignSegmentMap(t *testing.T) {
	other := NewContext()
	require.NoError(t, other.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeExec}))
	foreign, err := other.AddSection(SectionCreateInfo{Name: ".foreign", Type: elf.SHT_PROGBITS, Alignment: 1})
	require.NoError(t, err)

	ctx := NewContext()
	require.NoError(t, ctx.CreateHeader(HeaderCreateInfo{Class: elf.Class64, Data: elf.DataLSB, Type: elf.TypeExec}))
	seg, err := ctx.AddSegment(SegmentCreateInfo{Type: elf.PT_LOAD, Alignment: 8})
	require.NoError(t, err)
	require.NoError(t, seg.AddMap(foreign, 0, 0, nil))

	buf := elftest.NewBuffer(nil)
	err = ctx.Serialize(buf, LayoutCompat)
	assert.ErrorIs(t, err, elf.ErrBadArg)
}
