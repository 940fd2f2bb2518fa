package wasmmem

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bincodec"
)

// PageSize is the WebAssembly page size in bytes.
const PageSize = 65536

// Memory implements bincodec.Memory over a wazero linear memory.
type Memory struct {
	mem api.Memory
}

// New wraps mem.
func New(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// Grow adds delta pages and returns the previous size in pages.
func (m *Memory) Grow(delta uint32) (uint32, error) {
	prev, ok := m.mem.Grow(delta)
	if !ok {
		return 0, fmt.Errorf("grow by %d pages failed at %d bytes", delta, m.mem.Size())
	}
	return prev, nil
}

// EnsureSize grows the memory until it holds at least n bytes.
func (m *Memory) EnsureSize(n uint64) error {
	size := uint64(m.mem.Size())
	if n <= size {
		return nil
	}
	need := (n - size + PageSize - 1) / PageSize
	if need > 1<<16 {
		return fmt.Errorf("size %d exceeds 32-bit address space", n)
	}
	_, err := m.Grow(uint32(need))
	return err
}

var _ bincodec.Memory = (*Memory)(nil)
