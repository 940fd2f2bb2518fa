// Package bincodec provides a type-driven binary codec synthesizer for Go.
//
// Given a Go type, the synthesizer decides for every member exactly how its
// bytes are produced and consumed, and assembles those decisions into an
// encode/decode procedure pair that are mutual inverses.
//
// # Architecture Overview
//
//	bincodec/            Root package with Reader, Writer and Memory interfaces
//	├── synth/           Strategy resolution, ordering, versioning, construction
//	├── stream/          Reference wire encoding over io.Reader/io.Writer/Memory
//	├── wasmmem/         wazero-backed Memory for encoding into module memory
//	├── schema/          Declarative YAML schemas materialized as Go types
//	├── errors/          Structured error types
//	└── cmd/codecgen/    Plan inspection, encode and decode CLI
//
// # Quick Start
//
//	type Position struct {
//	    X, Y int32
//	}
//
//	type Player struct {
//	    Name     string
//	    Position Position `bin:"order=0"`
//	    Scores   []int16
//	}
//
//	data, err := synth.Marshal(Player{Name: "ada"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var p Player
//	if err := synth.Unmarshal(data, &p); err != nil {
//	    log.Fatal(err)
//	}
//
// # Wire Format
//
// The reference encoding in package stream writes fixed-width integers
// little-endian, floats as IEEE-754, booleans as one byte, strings as a
// 7-bit-group varint byte length followed by UTF-8 bytes, and collections as
// an Int32 count followed by their elements. Members carry no tags on the
// wire: both directions follow the same total member order.
//
// # Directives
//
// Struct tags under the "bin" key steer synthesis:
//
//	bin:"-"                    exclude the member
//	bin:"order=3"              explicit order hint
//	bin:"readonly"             decode but only bind through a constructor
//	bin:"func=name"            static custom encode/decode pair
//	bin:"method" / "method=E/D" instance custom methods on the member type
//	bin:"conv=name"            registered converter
//	bin:"dynamic=name"         discriminated interface member
//	bin:"when=pred(A;B)"       versioning gate over earlier members
//	bin:"fallback=literal"     value used when the gate skips the member
//
// The same directives can be supplied programmatically with synth.Member.
package bincodec
