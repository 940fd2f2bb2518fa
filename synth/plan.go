package synth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PlanView is a read-only rendering of the decisions made for a type.
type PlanView struct {
	Type         string
	Base         string
	Construction string
	EncodeOnly   bool
	DecodeOnly   bool
	Members      []MemberView
	Skipped      []string
}

// MemberView describes one member in total order.
type MemberView struct {
	Position  int
	Name      string
	GoType    string
	Decl      int
	Hint      string
	Kind      string
	Strategy  string
	Gate      string
	ReadOnly  bool
	Inherited bool
	// Binding is "param <name>", "setter" or "discarded", or empty for
	// encode-only types.
	Binding string
}

func newPlanView(d *TypeDescriptor) *PlanView {
	pv := &PlanView{
		Type:         d.Type.String(),
		Construction: d.Plan.String(),
		EncodeOnly:   d.EncodeOnly,
		DecodeOnly:   d.DecodeOnly,
	}
	if d.Base != nil {
		pv.Base = d.Base.Type.String()
	}
	for _, m := range d.Members {
		if m.Skip {
			pv.Skipped = append(pv.Skipped, m.Name)
		}
	}

	binding := make(map[int]string, len(d.Order))
	if d.Plan != nil {
		for _, a := range d.Plan.Args {
			if a.Member >= 0 {
				binding[a.Member] = "param " + a.Param
			}
		}
		for _, pos := range d.Plan.Setters {
			binding[pos] = "setter"
		}
		for _, pos := range d.Plan.Discarded {
			binding[pos] = "discarded"
		}
	}

	for pos, m := range d.Order {
		mv := MemberView{
			Position:  pos,
			Name:      m.Name,
			GoType:    m.Type.String(),
			Decl:      m.Decl,
			Kind:      m.Strategy.Kind.String(),
			Strategy:  m.Strategy.String(),
			ReadOnly:  m.ReadOnly,
			Inherited: m.Inherited,
			Binding:   binding[pos],
		}
		if m.Hinted {
			mv.Hint = formatHint(m.Hint)
		}
		if m.Gate != nil {
			mv.Gate = m.Gate.String()
		}
		pv.Members = append(pv.Members, mv)
	}
	return pv
}

func formatHint(n int) string {
	switch n {
	case math.MinInt:
		return "min"
	case math.MaxInt:
		return "max"
	default:
		return strconv.Itoa(n)
	}
}

// String renders the plan as plain text, one member per line.
func (p *PlanView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.Type)
	if p.Base != "" {
		fmt.Fprintf(&b, "  base: %s\n", p.Base)
	}
	switch {
	case p.EncodeOnly:
		b.WriteString("  encode only\n")
	case p.DecodeOnly:
		b.WriteString("  decode only\n")
	}
	fmt.Fprintf(&b, "  construction: %s\n", p.Construction)
	for _, m := range p.Members {
		fmt.Fprintf(&b, "  %2d %-16s %s", m.Position, m.Name, m.Strategy)
		if m.Hint != "" {
			fmt.Fprintf(&b, " order=%s", m.Hint)
		}
		if m.ReadOnly {
			b.WriteString(" readonly")
		}
		if m.Binding != "" {
			fmt.Fprintf(&b, " [%s]", m.Binding)
		}
		b.WriteByte('\n')
	}
	if len(p.Skipped) > 0 {
		fmt.Fprintf(&b, "  skipped: %s\n", strings.Join(p.Skipped, ", "))
	}
	return b.String()
}
