package bincodec

// Writer is the primitive output capability synthesized encoders call into.
type Writer interface {
	WriteBool(v bool) error
	WriteI8(v int8) error
	WriteI16(v int16) error
	WriteI32(v int32) error
	WriteI64(v int64) error
	WriteU8(v uint8) error
	WriteU16(v uint16) error
	WriteU32(v uint32) error
	WriteU64(v uint64) error
	WriteF32(v float32) error
	WriteF64(v float64) error
	WriteString(v string) error
	WriteRawBytes(b []byte) error
}

// Reader is the primitive input capability synthesized decoders call into.
// Errors are returned to the caller unchanged by the codec layer.
type Reader interface {
	ReadBool() (bool, error)
	ReadI8() (int8, error)
	ReadI16() (int16, error)
	ReadI32() (int32, error)
	ReadI64() (int64, error)
	ReadU8() (uint8, error)
	ReadU16() (uint16, error)
	ReadU32() (uint32, error)
	ReadU64() (uint64, error)
	ReadF32() (float32, error)
	ReadF64() (float64, error)
	ReadString() (string, error)
	ReadRawBytes(count int) ([]byte, error)
}

// Memory represents a linear byte-addressed memory region, such as a
// WebAssembly module memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	Size() uint32
}
