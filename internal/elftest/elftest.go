// Package elftest provides buffer-backed ByteSource/ByteSink fakes
// shared by the reader and writer test suites. The teacher ships no
// tests of its own (file/file.go is instead exercised against
// io.ReaderAt over an os.File), so this buffer-backed "fake callback"
// idiom is modeled on the common pack convention of testing byte-level
// decoders against an in-memory slice rather than real file I/O.
package elftest

import "fmt"

// Buffer is an in-memory byte slice usable as both a reader.ByteSource
// and a writer.ByteSink; EmitAt grows it as needed.
type Buffer struct {
	data []byte
}

// NewBuffer wraps an existing byte slice for use as a ByteSource.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffer's current contents.
func (b *Buffer) Bytes() []byte { return b.data }

// FetchAt implements reader.ByteSource: it fails if the requested range
// runs past the end of the buffer, the in-memory analogue of an I/O
// error a real file-backed ByteSource would return for a short read.
func (b *Buffer) FetchAt(offset, size uint64, dest []byte) error {
	end := offset + size
	if end > uint64(len(b.data)) || end < offset {
		return fmt.Errorf("elftest: fetch [%d,%d) past end of %d-byte buffer", offset, end, len(b.data))
	}
	copy(dest, b.data[offset:end])
	return nil
}

// EmitAt implements writer.ByteSink: it grows the buffer as needed and
// copies src into place, zero-filling any newly created gap.
func (b *Buffer) EmitAt(offset, size uint64, src []byte) error {
	end := offset + size
	if end < offset {
		return fmt.Errorf("elftest: emit range overflow at offset %d size %d", offset, size)
	}
	if uint64(len(b.data)) < end {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[offset:end], src)
	return nil
}
