package synth

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/wippyai/bincodec/errors"
)

// selectConstruction chooses how decoded members become an instance.
// Without registered constructors the zero value is populated by setters.
// A preferred constructor must bind or selection fails. Otherwise
// constructors are tried by descending parameter count and the first that
// binds fully wins.
func (ss *session) selectConstruction(d *TypeDescriptor) (*ConstructionPlan, error) {
	if d.EncodeOnly {
		return nil, nil
	}
	if len(d.Constructors) == 0 {
		return zeroPlan(d), nil
	}

	for _, c := range d.Constructors {
		if !c.preferred {
			continue
		}
		plan, reason := bindConstructor(d, c)
		if plan == nil {
			return nil, errors.NoMatchingConstructor(d.Type.String(), "preferred "+c.String()+": "+reason)
		}
		return plan, nil
	}

	ranked := slices.Clone(d.Constructors)
	slices.SortStableFunc(ranked, func(a, b *Constructor) int {
		return cmp.Compare(len(b.params), len(a.params))
	})
	var reasons []string
	for _, c := range ranked {
		plan, reason := bindConstructor(d, c)
		if plan != nil {
			return plan, nil
		}
		reasons = append(reasons, c.String()+": "+reason)
	}
	return nil, errors.NoMatchingConstructor(d.Type.String(), strings.Join(reasons, "; "))
}

func zeroPlan(d *TypeDescriptor) *ConstructionPlan {
	plan := &ConstructionPlan{}
	for pos, m := range d.Order {
		if m.ReadOnly {
			plan.Discarded = append(plan.Discarded, pos)
		} else {
			plan.Setters = append(plan.Setters, pos)
		}
	}
	return plan
}

// bindConstructor binds every parameter of c to a member by name (after
// Bind overrides) or to its default. It returns nil and a reason when a
// parameter cannot be bound.
func bindConstructor(d *TypeDescriptor, c *Constructor) (*ConstructionPlan, string) {
	ft := c.fn.Type()
	bound := make(map[int]bool, len(c.params))
	plan := &ConstructionPlan{
		Constructor: c,
		returnsPtr:  ft.Out(0).Kind() == reflect.Pointer,
		returnsErr:  ft.NumOut() == 2,
	}

	for i, p := range c.params {
		name := p
		if b, ok := c.binds[p]; ok {
			name = b
		}
		pt := ft.In(i)
		if pos, ok := d.byName[name]; ok && d.Order[pos].Type.AssignableTo(pt) {
			plan.Args = append(plan.Args, ArgBinding{Param: p, Member: pos})
			bound[pos] = true
			continue
		}
		if def, ok := c.defaults[p]; ok {
			plan.Args = append(plan.Args, ArgBinding{Param: p, Member: -1, Default: def})
			continue
		}
		if pos, ok := d.byName[name]; ok {
			return nil, fmt.Sprintf("parameter %q is %s but member %s is %s", p, pt, name, d.Order[pos].Type)
		}
		return nil, fmt.Sprintf("parameter %q has no member or default", p)
	}

	for pos, m := range d.Order {
		switch {
		case bound[pos]:
		case m.ReadOnly:
			plan.Discarded = append(plan.Discarded, pos)
		default:
			plan.Setters = append(plan.Setters, pos)
		}
	}
	return plan, ""
}
