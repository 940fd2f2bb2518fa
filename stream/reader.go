package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
)

const eagerAllocLimit = 64 << 10

// Reader reads the reference encoding from an io.Reader.
type Reader struct {
	r    io.Reader
	br   io.ByteReader
	opts options
	n    int64
	buf  [8]byte
}

// NewReader wraps r.
func NewReader(r io.Reader, opts ...Option) *Reader {
	rd := &Reader{opts: buildOptions(opts)}
	rd.Reset(r)
	return rd
}

// NewBytesReader reads from data.
func NewBytesReader(data []byte, opts ...Option) *Reader {
	return NewReader(bytes.NewReader(data), opts...)
}

// Reset retargets the reader at src, keeping its options.
func (r *Reader) Reset(src io.Reader) {
	r.r = src
	r.br, _ = src.(io.ByteReader)
	r.n = 0
}

// Consumed returns the number of bytes read since creation or Reset.
func (r *Reader) Consumed() int64 {
	return r.n
}

func (r *Reader) fill(n int) ([]byte, error) {
	read, err := io.ReadFull(r.r, r.buf[:n])
	r.n += int64(read)
	if err != nil {
		return nil, err
	}
	return r.buf[:n], nil
}

func (r *Reader) readByte() (byte, error) {
	if r.br != nil {
		b, err := r.br.ReadByte()
		if err != nil {
			return 0, err
		}
		r.n++
		return b, nil
	}
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.StreamCorruption(errors.PhaseStream, nil, "invalid bool byte 0x%02x", b)
	}
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadU8() (uint8, error) {
	return r.readByte()
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.readLength()
	if err != nil {
		return "", err
	}
	if n > uint32(r.opts.maxStringSize) {
		return "", errors.StreamCorruption(errors.PhaseStream, nil,
			"string length %d exceeds limit %d", n, r.opts.maxStringSize)
	}
	if n == 0 {
		return "", nil
	}
	data, err := r.ReadRawBytes(int(n))
	if err != nil {
		return "", err
	}
	if r.opts.validateUTF8 && !utf8.Valid(data) {
		return "", errors.StreamCorruption(errors.PhaseStream, nil, "invalid UTF-8 in string of length %d", n)
	}
	return string(data), nil
}

func (r *Reader) readLength() (uint32, error) {
	if r.opts.prefix == Fixed32Prefix {
		return r.ReadU32()
	}
	var n uint32
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if i == maxVarintBytes-1 && b > 0x0f {
			return 0, errors.StreamCorruption(errors.PhaseStream, nil, "length prefix overflows uint32")
		}
		n |= uint32(b&0x7f) << shift
		if b < 0x80 {
			return n, nil
		}
		shift += 7
	}
	return 0, errors.StreamCorruption(errors.PhaseStream, nil, "length prefix longer than %d bytes", maxVarintBytes)
}

func (r *Reader) ReadRawBytes(count int) ([]byte, error) {
	if count < 0 || count > MaxRawBytesSize {
		return nil, errors.StreamCorruption(errors.PhaseStream, nil, "raw byte count %d out of range", count)
	}
	if count == 0 {
		return []byte{}, nil
	}
	if count > eagerAllocLimit {
		// Grow with the data actually present so a corrupt prefix cannot
		// force a huge allocation up front.
		data, err := io.ReadAll(io.LimitReader(r.r, int64(count)))
		r.n += int64(len(data))
		if err != nil {
			return nil, err
		}
		if len(data) < count {
			return nil, io.ErrUnexpectedEOF
		}
		return data, nil
	}
	data := make([]byte, count)
	read, err := io.ReadFull(r.r, data)
	r.n += int64(read)
	if err != nil {
		return nil, err
	}
	return data, nil
}

var _ bincodec.Reader = (*Reader)(nil)
