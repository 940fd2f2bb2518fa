// Package synth synthesizes binary encode/decode procedures from Go types.
//
// Given a struct type, the synthesizer classifies every exported field,
// orders the members, resolves versioning gates and chooses how decoded
// values are turned back into an instance. The result is a pair of
// procedures that are mutual inverses over any bincodec.Writer/Reader.
// Results are memoized per Synthesizer and safe for concurrent use.
//
// # Strategy Resolution
//
// Each member gets exactly one strategy, from the first rule that matches:
//
//	Priority  Rule        Matches
//	────────────────────────────────────────────────────────────────
//	1         custom      func=name, method[=Enc/Dec], or a type with
//	                      EncodeBinary/DecodeBinary methods
//	2         converter   conv=name, or a type converter (time.Time)
//	3         enum        defined integer types
//	4         dynamic     interfaces with a resolver
//	5         collection  slices, arrays, maps ([]byte raw)
//	6         primitive   bool, ints, uints, floats, string
//	7         composite   structs (recursion allowed)
//
// Pointers add a presence byte and then use the pointee's strategy. A gated
// member (when=...) wraps its strategy. No match is ErrUnsupportedType.
//
// # Directives
//
// Directives come from the "bin" struct tag or from Member options passed
// to Configure:
//
//	type Packet struct {
//	    Version uint8   `bin:"order=min"`
//	    Flags   uint16
//	    Ext     []byte  `bin:"when=nonzero(Flags)"`
//	    Shape   Shape   `bin:"dynamic=shapes"`
//	    ID      string  `bin:"readonly"`
//	    cache   []byte  // unexported fields are never encoded
//	}
//
// # Ordering
//
// Members sort by (key, declaration index), where the key is the order hint
// if given and the declaration index otherwise. An embedded struct without
// a tag is the base: its ordered members come first.
//
// # Construction
//
// Without registered constructors, decode fills the zero value through
// setters. With Constructors(Ctor(...)), the preferred constructor or else
// the one with the most parameters that fully binds is called, and the
// remaining writable members are set in order afterwards.
//
// # Entry Points
//
//	codec, err := synth.For[Packet](s)
//	err = codec.Encode(w, pkt)
//	pkt, err = codec.Decode(r)
//	data, err := synth.Marshal(pkt)
package synth
