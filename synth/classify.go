package synth

import (
	"reflect"
	"slices"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/synth/internal/order"
	"github.com/wippyai/bincodec/synth/internal/strategy"
)

// classify resolves the strategy for type t. d carries member directives
// and is nil for element, key and candidate types. Pointers are unwrapped
// first, so directives apply to the pointee.
func (ss *session) classify(t reflect.Type, d *Directives, path []string) (*Strategy, error) {
	if t.Kind() == reflect.Pointer {
		inner, err := ss.classify(t.Elem(), d, path)
		if err != nil {
			return nil, err
		}
		return nullableStrategy(t, inner), nil
	}

	if err := checkDirectives(t, d, path); err != nil {
		return nil, err
	}
	for _, resolve := range resolverChain {
		st, err := resolve(ss, t, d, path)
		if err != nil {
			return nil, err
		}
		if st != nil {
			return st, nil
		}
	}
	return nil, errors.UnsupportedType(path, t.String())
}

// describe builds the descriptor for struct type t: members, directives,
// base prefix, total order and member strategies. Gates, construction and
// procedures are resolved later by finalize, once every type reachable in
// the session has strategies.
func (ss *session) describe(t reflect.Type, path []string) (*TypeDescriptor, error) {
	if d := ss.lookup(t); d != nil {
		return d, nil
	}

	desc := &TypeDescriptor{Type: t}
	cfg := ss.s.reg.lookupType(t)
	if cfg != nil {
		desc.EncodeOnly = cfg.encodeOnly
		desc.DecodeOnly = cfg.decodeOnly
		desc.Constructors = cfg.constructors
	}
	ss.pending[t] = desc
	ss.created = append(ss.created, desc)

	var errs error
	var own []*MemberDescriptor
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		mpath := append(slices.Clip(path), f.Name)

		tag, tagged := f.Tag.Lookup(ss.s.cfg.TagName)
		dirs, err := parseTag(tag, mpath)
		if err != nil {
			errs = errors.Append(errs, err)
			continue
		}
		if cfg != nil {
			if err := dirs.merge(cfg.members[f.Name], mpath); err != nil {
				errs = errors.Append(errs, err)
				continue
			}
		}

		if desc.Base == nil && !tagged && ss.isBase(f) {
			base, err := ss.describe(f.Type, mpath)
			if err != nil {
				errs = errors.Append(errs, err)
				continue
			}
			if base.byName == nil {
				errs = errors.Append(errs, errors.InvalidOrder(mpath, "base "+f.Type.String()+" is still being ordered"))
				continue
			}
			desc.Base = base
			ss.inheritBase(desc, base, i)
			continue
		}

		if !f.IsExported() {
			continue
		}
		m := &MemberDescriptor{
			Name:       f.Name,
			Type:       f.Type,
			Index:      []int{i},
			Decl:       i,
			Hint:       dirs.Order,
			Hinted:     dirs.HasOrder,
			ReadOnly:   dirs.ReadOnly,
			Skip:       dirs.Skip && !dirs.Include,
			Directives: dirs,
		}
		desc.Members = append(desc.Members, m)
		if !m.Skip {
			own = append(own, m)
		}
	}

	// Own members are sorted among themselves and follow the base prefix.
	items := make([]order.Member, len(own))
	for i, m := range own {
		items[i] = order.Member{Decl: m.Decl, Hint: m.Hint, Hinted: m.Hinted}
	}
	for _, idx := range order.Sort(items) {
		desc.Order = append(desc.Order, own[idx])
	}
	desc.byName = make(map[string]int, len(desc.Order))
	for pos, m := range desc.Order {
		m.Position = pos
		desc.byName[m.Name] = pos
	}

	for _, m := range own {
		mpath := append(slices.Clip(path), m.Name)
		st, err := ss.classify(m.Type, &m.Directives, mpath)
		if err != nil {
			errs = errors.Append(errs, err)
			continue
		}
		m.Strategy = st
	}

	if errs != nil {
		return nil, errs
	}
	return desc, nil
}

// isBase reports whether f is an embedded struct treated as the base
// descriptor. Types with their own codec (custom methods, converters) stay
// ordinary members.
func (ss *session) isBase(f reflect.StructField) bool {
	if !f.Anonymous || f.Type.Kind() != reflect.Struct {
		return false
	}
	if ss.s.reg.lookupTypeConverter(f.Type) != nil {
		return false
	}
	_, _, ok := ss.ownMethodPair(f.Type)
	return !ok
}

// inheritBase copies the base's ordered members as the prefix of desc.
// Strategies are filled in by finalize since the base may still be
// classifying its own members.
func (ss *session) inheritBase(desc, base *TypeDescriptor, embedIndex int) {
	for _, bm := range base.Order {
		m := *bm
		m.Index = append([]int{embedIndex}, bm.Index...)
		m.Inherited = true
		m.origin = bm
		if bm.origin != nil {
			m.origin = bm.origin
		}
		desc.Order = append(desc.Order, &m)
	}
}

func nullableStrategy(t reflect.Type, inner *Strategy) *Strategy {
	st := &Strategy{Kind: strategy.KindNullable, Type: t, Elem: inner, Length: -1}
	elem := t.Elem()
	st.enc = func(w bincodec.Writer, v reflect.Value) error {
		if v.IsNil() {
			return w.WriteBool(false)
		}
		if err := w.WriteBool(true); err != nil {
			return err
		}
		return inner.enc(w, v.Elem())
	}
	st.dec = func(r bincodec.Reader, v reflect.Value) error {
		present, err := r.ReadBool()
		if err != nil {
			return err
		}
		if !present {
			v.SetZero()
			return nil
		}
		p := reflect.New(elem)
		if err := inner.dec(r, p.Elem()); err != nil {
			return err
		}
		v.Set(p)
		return nil
	}
	return st
}
