// Package schema compiles declarative YAML record schemas into Go struct
// types that the synth package can encode.
//
// A schema document lists record types and their members:
//
//	types:
//	  - name: point
//	    members:
//	      - {name: x, type: i32}
//	      - {name: y, type: i32}
//	  - name: shape
//	    members:
//	      - {name: version, type: u8, order: min}
//	      - {name: points, type: list<point>}
//	      - {name: label, type: ?string, when: nonzero(version)}
//
// Type expressions are the primitives bool, i8, i16, i32, i64, u8, u16,
// u32, u64, f32, f64, string and bytes, the constructors list<T>,
// map<K,V> and ?T, and references to other types in the document.
// Reference cycles are rejected because the compiled types are built with
// reflect.StructOf, which cannot express them.
//
// Member names become exported Go field names ("x" becomes "X") with a
// yaml tag carrying the original name, so values can be read from and
// written to YAML with the same types.
package schema
