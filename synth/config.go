package synth

import (
	"github.com/wippyai/bincodec/stream"
)

const (
	// DefaultTagName is the struct tag key read for member directives.
	DefaultTagName = "bin"

	// DefaultEncodeMethod and DefaultDecodeMethod name the instance methods
	// bound by the custom-method rule.
	DefaultEncodeMethod = "EncodeBinary"
	DefaultDecodeMethod = "DecodeBinary"

	// DefaultMaxCollectionLength bounds decoded collection counts.
	DefaultMaxCollectionLength = 1 << 24

	// preallocLimit caps up-front capacity for decoded collections; larger
	// collections grow as elements arrive.
	preallocLimit = 1024
)

// Config holds synthesizer-wide settings. The zero value is usable.
type Config struct {
	// TagName is the struct tag key holding directives. Default "bin".
	TagName string

	// EncodeMethod and DecodeMethod override the default instance method
	// names used by the custom-method rule.
	EncodeMethod string
	DecodeMethod string

	// DisableAutoMethods stops types that implement both default methods
	// from being bound without an explicit "method" directive.
	DisableAutoMethods bool

	// MaxCollectionLength rejects larger decoded counts as stream
	// corruption. 0 means DefaultMaxCollectionLength.
	MaxCollectionLength int

	// Stream configures the default stream used by Marshal and Unmarshal.
	Stream []stream.Option

	// NoDefaultStream disables Marshal and Unmarshal; callers must supply
	// their own Reader and Writer.
	NoDefaultStream bool
}

func (c Config) withDefaults() Config {
	if c.TagName == "" {
		c.TagName = DefaultTagName
	}
	if c.EncodeMethod == "" {
		c.EncodeMethod = DefaultEncodeMethod
	}
	if c.DecodeMethod == "" {
		c.DecodeMethod = DefaultDecodeMethod
	}
	if c.MaxCollectionLength <= 0 {
		c.MaxCollectionLength = DefaultMaxCollectionLength
	}
	return c
}
