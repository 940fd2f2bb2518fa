package synth

import (
	"reflect"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
)

// finalize resolves gates and construction for d and assembles its
// procedures. The base is finalized first so inherited members carry
// their final strategies.
func (ss *session) finalize(d *TypeDescriptor) error {
	if d.finalized {
		return nil
	}
	d.finalized = true
	path := []string{d.Type.String()}

	if d.Base != nil {
		if err := ss.finalize(d.Base); err != nil {
			return err
		}
	}

	var errs error
	for _, m := range d.Order {
		if m.Inherited {
			m.Strategy = m.origin.Strategy
			m.Gate = m.origin.Gate
			continue
		}
		if !m.Directives.gated() {
			continue
		}
		g, err := ss.buildGate(d, m, append(path, m.Name))
		if err != nil {
			errs = errors.Append(errs, err)
			continue
		}
		m.Gate = g
		m.Strategy = versionedStrategy(m.Strategy, g)
	}

	plan, err := ss.selectConstruction(d)
	if err != nil {
		errs = errors.Append(errs, err)
	}
	if errs != nil {
		return errs
	}
	d.Plan = plan
	d.encode = assembleEncode(d)
	d.decode = assembleDecode(d)
	return nil
}

func assembleEncode(d *TypeDescriptor) encodeFn {
	if d.DecodeOnly {
		return func(bincodec.Writer, reflect.Value) error {
			return errors.OptOut(errors.PhaseEncode, d.Type.String())
		}
	}
	members := d.Order
	return func(w bincodec.Writer, v reflect.Value) error {
		for _, m := range members {
			if m.Gate != nil && !m.Gate.open(func(pos int) reflect.Value { return members[pos].field(v) }) {
				continue
			}
			if err := m.Strategy.enc(w, m.field(v)); err != nil {
				return err
			}
		}
		return nil
	}
}

func assembleDecode(d *TypeDescriptor) func(bincodec.Reader, reflect.Value, OutValues) error {
	if d.EncodeOnly {
		return func(bincodec.Reader, reflect.Value, OutValues) error {
			return errors.OptOut(errors.PhaseDecode, d.Type.String())
		}
	}
	if d.Plan.Constructor == nil {
		return zeroDecode(d)
	}
	return constructorDecode(d)
}

// readMember decodes member m into target unless its gate is closed.
func readMember(r bincodec.Reader, m *MemberDescriptor, target reflect.Value, frame []reflect.Value) error {
	if m.Gate != nil && !m.Gate.open(func(pos int) reflect.Value { return frame[pos] }) {
		m.Gate.applyFallback(target)
		return nil
	}
	return m.Strategy.dec(r, target)
}

// zeroDecode populates the zero value in place. Read-only members are
// decoded into temporaries.
func zeroDecode(d *TypeDescriptor) func(bincodec.Reader, reflect.Value, OutValues) error {
	members := d.Order
	plan := d.Plan
	return func(r bincodec.Reader, v reflect.Value, out OutValues) error {
		frame := make([]reflect.Value, len(members))
		for pos, m := range members {
			var target reflect.Value
			if m.ReadOnly {
				target = reflect.New(m.Type).Elem()
			} else {
				target = m.field(v)
			}
			frame[pos] = target
			if err := readMember(r, m, target, frame); err != nil {
				return err
			}
		}
		collectOut(out, members, plan.Discarded, frame)
		return nil
	}
}

// constructorDecode decodes every member into temporaries, calls the
// constructor and then assigns the setters in order.
func constructorDecode(d *TypeDescriptor) func(bincodec.Reader, reflect.Value, OutValues) error {
	members := d.Order
	plan := d.Plan
	fn := plan.Constructor.fn
	path := []string{d.Type.String()}
	return func(r bincodec.Reader, v reflect.Value, out OutValues) error {
		frame := make([]reflect.Value, len(members))
		for pos, m := range members {
			target := reflect.New(m.Type).Elem()
			frame[pos] = target
			if err := readMember(r, m, target, frame); err != nil {
				return err
			}
		}

		args := make([]reflect.Value, len(plan.Args))
		for i, a := range plan.Args {
			if a.Member >= 0 {
				args[i] = frame[a.Member]
			} else {
				args[i] = a.Default
			}
		}
		res := fn.Call(args)
		if plan.returnsErr {
			if err := callErr(res[1]); err != nil {
				return errors.Hook(errors.PhaseConstruct, path, err)
			}
		}
		inst := res[0]
		if plan.returnsPtr {
			if inst.IsNil() {
				return errors.NilPointer(errors.PhaseConstruct, path, d.Type.String())
			}
			inst = inst.Elem()
		}
		v.Set(inst)

		for _, pos := range plan.Setters {
			members[pos].field(v).Set(frame[pos])
		}
		collectOut(out, members, plan.Discarded, frame)
		return nil
	}
}

func collectOut(out OutValues, members []*MemberDescriptor, discarded []int, frame []reflect.Value) {
	if out == nil {
		return
	}
	for _, pos := range discarded {
		out[members[pos].Name] = frame[pos].Interface()
	}
}
