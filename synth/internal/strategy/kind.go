package strategy

import "reflect"

type Kind uint8

const (
	KindPrimitive Kind = iota
	KindEnum
	KindCollection
	KindComposite
	KindCustom
	KindConverter
	KindDynamic
	KindVersioned
	KindNullable
)

var kindNames = [...]string{
	KindPrimitive:  "primitive",
	KindEnum:       "enum",
	KindCollection: "collection",
	KindComposite:  "composite",
	KindCustom:     "custom",
	KindConverter:  "converter",
	KindDynamic:    "dynamic",
	KindVersioned:  "versioned",
	KindNullable:   "nullable",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsLeaf reports whether the kind writes a single scalar.
func (k Kind) IsLeaf() bool {
	return k == KindPrimitive || k == KindEnum
}

// IsWrapper reports whether the kind decorates an inner strategy rather
// than being chosen by the resolver chain.
func (k Kind) IsWrapper() bool {
	return k == KindVersioned || k == KindNullable
}

// Priority returns the resolver chain rank (1 = tried first), or 0 for
// wrappers.
func (k Kind) Priority() int {
	switch k {
	case KindCustom:
		return 1
	case KindConverter:
		return 2
	case KindEnum:
		return 3
	case KindDynamic:
		return 4
	case KindCollection:
		return 5
	case KindPrimitive:
		return 6
	case KindComposite:
		return 7
	default:
		return 0
	}
}

// Prim is a scalar kind on the wire.
type Prim uint8

const (
	PrimBool Prim = iota
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimF32
	PrimF64
	PrimString
)

var primNames = [...]string{
	PrimBool:   "bool",
	PrimI8:     "i8",
	PrimI16:    "i16",
	PrimI32:    "i32",
	PrimI64:    "i64",
	PrimU8:     "u8",
	PrimU16:    "u16",
	PrimU32:    "u32",
	PrimU64:    "u64",
	PrimF32:    "f32",
	PrimF64:    "f64",
	PrimString: "string",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return "unknown"
}

// Size returns the fixed encoded width in bytes, or 0 for strings.
func (p Prim) Size() int {
	switch p {
	case PrimBool, PrimI8, PrimU8:
		return 1
	case PrimI16, PrimU16:
		return 2
	case PrimI32, PrimU32, PrimF32:
		return 4
	case PrimI64, PrimU64, PrimF64:
		return 8
	default:
		return 0
	}
}

func (p Prim) IsInteger() bool {
	return p >= PrimI8 && p <= PrimU64
}

func (p Prim) IsSigned() bool {
	return p >= PrimI8 && p <= PrimI64
}

// PrimOf maps a reflect kind to its wire scalar. int and uint are written
// as 64-bit values; uintptr, complex and non-scalar kinds have no mapping.
func PrimOf(k reflect.Kind) (Prim, bool) {
	switch k {
	case reflect.Bool:
		return PrimBool, true
	case reflect.Int8:
		return PrimI8, true
	case reflect.Int16:
		return PrimI16, true
	case reflect.Int32:
		return PrimI32, true
	case reflect.Int64, reflect.Int:
		return PrimI64, true
	case reflect.Uint8:
		return PrimU8, true
	case reflect.Uint16:
		return PrimU16, true
	case reflect.Uint32:
		return PrimU32, true
	case reflect.Uint64, reflect.Uint:
		return PrimU64, true
	case reflect.Float32:
		return PrimF32, true
	case reflect.Float64:
		return PrimF64, true
	case reflect.String:
		return PrimString, true
	default:
		return 0, false
	}
}
