package synth

import (
	"reflect"
	"strings"

	"github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/synth/internal/strategy"
)

// Gate is a versioning predicate over members earlier in the total order.
// A closed gate writes no bytes on encode and reads none on decode; the
// member then takes the fallback or its zero value.
type Gate struct {
	Predicate string
	Context   []string

	positions []int
	fn        reflect.Value
	fallback  reflect.Value
}

func (g *Gate) String() string {
	return g.Predicate + "(" + strings.Join(g.Context, ";") + ")"
}

// HasFallback reports whether a fallback other than the zero value is set.
func (g *Gate) HasFallback() bool {
	return g.fallback.IsValid()
}

func (g *Gate) open(value func(pos int) reflect.Value) bool {
	args := make([]reflect.Value, len(g.positions))
	for i, pos := range g.positions {
		args[i] = value(pos)
	}
	return g.fn.Call(args)[0].Bool()
}

// applyFallback stores the fallback into target, a fresh zero value.
func (g *Gate) applyFallback(target reflect.Value) {
	if !g.fallback.IsValid() {
		return
	}
	if g.fallback.Kind() == reflect.Pointer && !g.fallback.IsNil() {
		p := reflect.New(g.fallback.Type().Elem())
		p.Elem().Set(g.fallback.Elem())
		target.Set(p)
		return
	}
	target.Set(g.fallback)
}

// buildGate resolves m's when= directive against d's total order.
func (ss *session) buildGate(d *TypeDescriptor, m *MemberDescriptor, path []string) (*Gate, error) {
	dirs := &m.Directives
	pred := ss.s.reg.lookupPredicate(dirs.When)
	if pred == nil {
		return nil, errors.InvalidDirective(path, "no predicate registered as %q", dirs.When)
	}
	ft := pred.fn.Type()
	if ft.NumIn() != len(dirs.WhenArgs) {
		return nil, errors.InvalidDirective(path, "predicate %s takes %d arguments, %d context members given",
			dirs.When, ft.NumIn(), len(dirs.WhenArgs))
	}

	g := &Gate{Predicate: dirs.When, Context: dirs.WhenArgs, fn: pred.fn}
	for i, name := range dirs.WhenArgs {
		pos, ok := d.byName[name]
		if !ok {
			if skippedMember(d, name) {
				return nil, errors.InvalidOrder(path, "context member "+name+" is excluded from the order")
			}
			return nil, errors.InvalidDirective(path, "context member %q does not exist", name)
		}
		if pos >= m.Position {
			return nil, errors.InvalidOrder(path, "context member "+name+" is not ordered before "+m.Name)
		}
		if ct := d.Order[pos].Type; !ct.AssignableTo(ft.In(i)) {
			return nil, errors.InvalidDirective(path, "predicate %s argument %d is %s, context member %s is %s",
				dirs.When, i, ft.In(i), name, ct)
		}
		g.positions = append(g.positions, pos)
	}

	switch {
	case dirs.hasFallbackValue:
		fv := dirs.fallbackValue
		switch {
		case !fv.IsValid():
		case fv.Type().AssignableTo(m.Type):
			g.fallback = fv
		case fv.Type().ConvertibleTo(m.Type) && fv.Kind() != reflect.String && m.Type.Kind() != reflect.String:
			g.fallback = fv.Convert(m.Type)
		default:
			return nil, errors.InvalidDirective(path, "fallback %s is not assignable to %s", fv.Type(), m.Type)
		}
	case dirs.HasFallback:
		fv, err := parseLiteral(dirs.Fallback, m.Type)
		if err != nil {
			return nil, errors.InvalidDirective(path, "fallback %q for %s: %v", dirs.Fallback, m.Type, err)
		}
		g.fallback = fv
	}
	return g, nil
}

func skippedMember(d *TypeDescriptor, name string) bool {
	for _, m := range d.Members {
		if m.Name == name && m.Skip {
			return true
		}
	}
	return false
}

func versionedStrategy(inner *Strategy, g *Gate) *Strategy {
	return &Strategy{
		Kind:   strategy.KindVersioned,
		Type:   inner.Type,
		Elem:   inner,
		Gate:   g,
		Length: -1,
		enc:    inner.enc,
		dec:    inner.dec,
	}
}
