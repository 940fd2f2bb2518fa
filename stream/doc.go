// Package stream implements the reference wire encoding for bincodec.
//
// Writer and Reader implement bincodec.Writer and bincodec.Reader over
// io.Writer/io.Reader, a byte slice, or a linear bincodec.Memory region.
//
// # Encoding
//
//	Type            Bytes
//	──────────────────────────────────────────────
//	bool            1 (0x00 or 0x01)
//	i8/u8           1
//	i16/u16         2 little-endian
//	i32/u32/f32     4 little-endian (floats IEEE-754)
//	i64/u64/f64     8 little-endian
//	string          length prefix + UTF-8 bytes
//	raw bytes       as given, no prefix
//
// The default string length prefix is a variable-length unsigned integer in
// 7-bit groups, low group first, high bit set on every byte but the last.
// Fixed32Prefix selects a 4-byte little-endian length instead; both sides of
// a stream must agree on the prefix.
//
// # Limits
//
// Length prefixes above MaxStringSize (or the configured limit) and varints
// longer than five bytes are reported as stream corruption. I/O errors from
// the underlying reader or writer are returned unchanged.
//
// # Thread Safety
//
// Writer and Reader are NOT safe for concurrent use.
package stream
