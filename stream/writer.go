package stream

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
)

// Writer writes the reference encoding to an io.Writer.
type Writer struct {
	w    io.Writer
	opts options
	n    int64
	buf  [8]byte
}

// NewWriter wraps w. Writes are passed straight through; wrap w in a
// bufio.Writer when it is unbuffered.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	return &Writer{w: w, opts: buildOptions(opts)}
}

// Reset retargets the writer at w, keeping its options.
func (w *Writer) Reset(dst io.Writer) {
	w.w = dst
	w.n = 0
}

// Written returns the number of bytes written since creation or Reset.
func (w *Writer) Written() int64 {
	return w.n
}

func (w *Writer) write(b []byte) error {
	n, err := w.w.Write(b)
	w.n += int64(n)
	return err
}

func (w *Writer) WriteBool(v bool) error {
	w.buf[0] = 0
	if v {
		w.buf[0] = 1
	}
	return w.write(w.buf[:1])
}

func (w *Writer) WriteI8(v int8) error {
	return w.WriteU8(uint8(v))
}

func (w *Writer) WriteI16(v int16) error {
	return w.WriteU16(uint16(v))
}

func (w *Writer) WriteI32(v int32) error {
	return w.WriteU32(uint32(v))
}

func (w *Writer) WriteI64(v int64) error {
	return w.WriteU64(uint64(v))
}

func (w *Writer) WriteU8(v uint8) error {
	w.buf[0] = v
	return w.write(w.buf[:1])
}

func (w *Writer) WriteU16(v uint16) error {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	return w.write(w.buf[:2])
}

func (w *Writer) WriteU32(v uint32) error {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return w.write(w.buf[:4])
}

func (w *Writer) WriteU64(v uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return w.write(w.buf[:8])
}

func (w *Writer) WriteF32(v float32) error {
	return w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) error {
	return w.WriteU64(math.Float64bits(v))
}

func (w *Writer) WriteString(v string) error {
	if len(v) > math.MaxUint32 {
		return errors.StreamCorruption(errors.PhaseStream, nil, "string length %d exceeds uint32", len(v))
	}
	if err := w.writeLength(uint32(len(v))); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	if sw, ok := w.w.(io.StringWriter); ok {
		n, err := sw.WriteString(v)
		w.n += int64(n)
		return err
	}
	return w.write([]byte(v))
}

func (w *Writer) writeLength(n uint32) error {
	if w.opts.prefix == Fixed32Prefix {
		return w.WriteU32(n)
	}
	i := 0
	for n >= 0x80 {
		w.buf[i] = byte(n) | 0x80
		n >>= 7
		i++
	}
	w.buf[i] = byte(n)
	return w.write(w.buf[:i+1])
}

func (w *Writer) WriteRawBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return w.write(b)
}

var _ bincodec.Writer = (*Writer)(nil)
