package stream

import (
	"io"

	"github.com/wippyai/bincodec"
)

// MemoryCursor adapts a linear bincodec.Memory to io.Reader and io.Writer,
// advancing an offset with every call.
type MemoryCursor struct {
	mem    bincodec.Memory
	offset uint32
}

// NewMemoryCursor starts a cursor at offset.
func NewMemoryCursor(mem bincodec.Memory, offset uint32) *MemoryCursor {
	return &MemoryCursor{mem: mem, offset: offset}
}

// Offset returns the next byte the cursor will touch.
func (c *MemoryCursor) Offset() uint32 {
	return c.offset
}

func (c *MemoryCursor) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := c.mem.Write(c.offset, p); err != nil {
		return 0, err
	}
	c.offset += uint32(len(p))
	return len(p), nil
}

func (c *MemoryCursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size := c.mem.Size()
	if c.offset >= size {
		return 0, io.EOF
	}
	n := uint32(len(p))
	if remaining := size - c.offset; n > remaining {
		n = remaining
	}
	data, err := c.mem.Read(c.offset, n)
	if err != nil {
		return 0, err
	}
	copy(p, data)
	c.offset += n
	return int(n), nil
}

// NewMemoryWriter writes the reference encoding into mem starting at offset.
func NewMemoryWriter(mem bincodec.Memory, offset uint32, opts ...Option) (*Writer, *MemoryCursor) {
	cur := NewMemoryCursor(mem, offset)
	return NewWriter(cur, opts...), cur
}

// NewMemoryReader reads the reference encoding from mem starting at offset.
func NewMemoryReader(mem bincodec.Memory, offset uint32, opts ...Option) (*Reader, *MemoryCursor) {
	cur := NewMemoryCursor(mem, offset)
	return NewReader(cur, opts...), cur
}
