package synth

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/synth/internal/strategy"
)

type encodeFn func(w bincodec.Writer, v reflect.Value) error

// decodeFn decodes into v, which is settable and holds a fresh zero value.
type decodeFn func(r bincodec.Reader, v reflect.Value) error

// Strategy is the resolved encoding rule for one member or element type.
// Strategies nest: a collection's Elem may itself be composite, nullable
// and so on.
type Strategy struct {
	Kind strategy.Kind
	Type reflect.Type

	// Prim is the wire scalar for primitive and enum strategies.
	Prim strategy.Prim

	// Elem is the collection element or map value, the nullable pointee,
	// the versioned inner strategy or the converter's wire strategy.
	Elem *Strategy
	// Key is the map key strategy.
	Key *Strategy

	IsMap bool
	// Length is the fixed array length, or -1.
	Length int
	// Raw marks byte collections copied with WriteRawBytes.
	Raw bool

	Composite *TypeDescriptor
	Custom    *CustomBinding
	Converter string
	Dynamic   *DynamicBinding
	Gate      *Gate

	enc encodeFn
	dec decodeFn
}

// CustomBinding records which user hooks a custom strategy calls.
type CustomBinding struct {
	Static bool
	// Name is the RegisterFuncs name for static pairs.
	Name         string
	EncodeMethod string
	DecodeMethod string
}

func (s *Strategy) String() string {
	var b strings.Builder
	s.format(&b)
	return b.String()
}

func (s *Strategy) format(b *strings.Builder) {
	switch s.Kind {
	case strategy.KindPrimitive:
		b.WriteString(s.Prim.String())
	case strategy.KindEnum:
		fmt.Fprintf(b, "enum %s(%s)", s.Type, s.Prim)
	case strategy.KindCollection:
		switch {
		case s.IsMap:
			b.WriteString("map<")
			s.Key.format(b)
			b.WriteString(", ")
			s.Elem.format(b)
			b.WriteByte('>')
		case s.Raw:
			b.WriteString("bytes")
			if s.Length >= 0 {
				fmt.Fprintf(b, "[%d]", s.Length)
			}
		default:
			b.WriteString("list<")
			s.Elem.format(b)
			b.WriteByte('>')
			if s.Length >= 0 {
				fmt.Fprintf(b, "[%d]", s.Length)
			}
		}
	case strategy.KindComposite:
		fmt.Fprintf(b, "composite %s", s.Type)
	case strategy.KindCustom:
		if s.Custom.Static {
			fmt.Fprintf(b, "custom func=%s", s.Custom.Name)
		} else {
			fmt.Fprintf(b, "custom method=%s/%s", s.Custom.EncodeMethod, s.Custom.DecodeMethod)
		}
	case strategy.KindConverter:
		fmt.Fprintf(b, "converter %s -> ", s.Converter)
		s.Elem.format(b)
	case strategy.KindDynamic:
		fmt.Fprintf(b, "dynamic %s id=", s.Type)
		s.Dynamic.ID.format(b)
		fmt.Fprintf(b, " candidates=%d", len(s.Dynamic.Candidates))
	case strategy.KindVersioned:
		fmt.Fprintf(b, "when %s ", s.Gate)
		s.Elem.format(b)
	case strategy.KindNullable:
		b.WriteByte('?')
		s.Elem.format(b)
	default:
		b.WriteString(s.Kind.String())
	}
}

// TypeDescriptor is the synthesized shape of a struct type. It is
// immutable once published.
type TypeDescriptor struct {
	Type reflect.Type

	// Members lists the type's own fields in declaration order, including
	// skipped ones.
	Members []*MemberDescriptor
	// Base is the embedded struct whose members prefix Order.
	Base *TypeDescriptor
	// Order is the total member order used by encode and decode.
	Order []*MemberDescriptor

	Constructors []*Constructor
	Plan         *ConstructionPlan

	EncodeOnly bool
	DecodeOnly bool

	byName    map[string]int
	finalized bool

	encode encodeFn
	decode func(r bincodec.Reader, v reflect.Value, out OutValues) error
}

// Lookup returns the ordered member with the given name.
func (d *TypeDescriptor) Lookup(name string) (*MemberDescriptor, bool) {
	pos, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.Order[pos], true
}

func (d *TypeDescriptor) encodeValue(w bincodec.Writer, v reflect.Value) error {
	return d.encode(w, v)
}

func (d *TypeDescriptor) decodeValue(r bincodec.Reader, v reflect.Value) error {
	return d.decode(r, v, nil)
}

// MemberDescriptor is one struct field and its resolved strategy.
type MemberDescriptor struct {
	Name  string
	Type  reflect.Type
	Index []int
	// Decl is the field's declaration index, the tie-break for ordering.
	Decl int

	Hint   int
	Hinted bool

	ReadOnly bool
	Skip     bool

	Directives Directives
	Strategy   *Strategy
	Gate       *Gate

	// Position is the member's index in the owning descriptor's Order.
	Position int
	// Inherited marks members taken from the base descriptor.
	Inherited bool

	origin *MemberDescriptor
}

func (m *MemberDescriptor) field(v reflect.Value) reflect.Value {
	if len(m.Index) == 1 {
		return v.Field(m.Index[0])
	}
	return v.FieldByIndex(m.Index)
}

// ConstructionPlan records how decoded member values become an instance.
type ConstructionPlan struct {
	// Constructor is nil for zero-value construction.
	Constructor *Constructor
	Args        []ArgBinding
	// Setters are Order positions assigned after construction.
	Setters []int
	// Discarded are read-only positions neither bound nor set.
	Discarded []int

	returnsPtr bool
	returnsErr bool
}

// ArgBinding binds one constructor parameter.
type ArgBinding struct {
	Param string
	// Member is the bound Order position, or -1 when Default is used.
	Member  int
	Default reflect.Value
}

func (p *ConstructionPlan) String() string {
	if p == nil {
		return "none"
	}
	if p.Constructor == nil {
		return "zero value + setters"
	}
	return p.Constructor.String()
}

// OutValues holds decoded read-only members that were neither passed to a
// constructor nor assigned, keyed by member name.
type OutValues map[string]any
