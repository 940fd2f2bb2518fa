package stream

// StringPrefix selects the length prefix written before string bytes.
type StringPrefix uint8

const (
	// VarintPrefix writes the byte length in 7-bit groups (default).
	VarintPrefix StringPrefix = iota
	// Fixed32Prefix writes the byte length as a little-endian uint32.
	Fixed32Prefix
)

func (p StringPrefix) String() string {
	switch p {
	case VarintPrefix:
		return "varint"
	case Fixed32Prefix:
		return "fixed32"
	default:
		return "unknown"
	}
}

// ParseStringPrefix maps "varint" and "fixed32" to their StringPrefix.
func ParseStringPrefix(s string) (StringPrefix, bool) {
	switch s {
	case "varint", "":
		return VarintPrefix, true
	case "fixed32":
		return Fixed32Prefix, true
	default:
		return VarintPrefix, false
	}
}

// Safety limits to prevent memory exhaustion from corrupt length prefixes.
const (
	MaxStringSize   = 1 << 30 // 1 GB
	MaxRawBytesSize = 1 << 30 // 1 GB
	maxVarintBytes  = 5
)

type options struct {
	prefix        StringPrefix
	maxStringSize int
	validateUTF8  bool
}

func defaultOptions() options {
	return options{
		prefix:        VarintPrefix,
		maxStringSize: MaxStringSize,
	}
}

// Option configures a Writer or Reader.
type Option func(*options)

// WithStringPrefix selects the string length prefix encoding.
func WithStringPrefix(p StringPrefix) Option {
	return func(o *options) {
		o.prefix = p
	}
}

// WithMaxStringSize caps accepted string lengths on read.
func WithMaxStringSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxStringSize = n
		}
	}
}

// WithUTF8Validation rejects strings that are not valid UTF-8 on read.
func WithUTF8Validation(enabled bool) Option {
	return func(o *options) {
		o.validateUTF8 = enabled
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
