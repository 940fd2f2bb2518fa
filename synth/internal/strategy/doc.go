// Package strategy defines the tagged kinds used to describe how a member
// is encoded.
//
// # Key Types
//
//   - Kind: Strategy discriminator (primitive, enum, collection, composite, ...)
//   - Prim: Wire-level scalar kind written by a Reader/Writer method
//
// This package is internal to synth.
package strategy
