package synth

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/synth/internal/strategy"
)

// Resolver maps the concrete types of a dynamic member to discriminator
// values and back. It must be stateless and inverse-consistent for its
// candidates: IDToType(TypeToID(t)) == t.
type Resolver interface {
	Candidates() []reflect.Type
	TypeToID(t reflect.Type) (any, bool)
	IDToType(id any) (reflect.Type, bool)
	// IDType is the discriminator type; it must have a primitive or enum
	// strategy.
	IDType() reflect.Type
}

// DynamicBinding is the generation-time registry of a dynamic member.
type DynamicBinding struct {
	Resolver   string
	ID         *Strategy
	Candidates []*DynamicCandidate

	byID   map[any]*DynamicCandidate
	byType map[reflect.Type]*DynamicCandidate
}

// DynamicCandidate is one concrete type and its discriminator.
type DynamicCandidate struct {
	Type    reflect.Type
	ID      any
	Payload *Strategy

	idValue reflect.Value
	ptr     bool
}

func (ss *session) bindDynamic(iface reflect.Type, r Resolver, name string, path []string) (*Strategy, error) {
	idType := r.IDType()
	if idType == nil {
		return nil, errors.InvalidDirective(path, "resolver %q has no identifier type", name)
	}
	idSt, err := ss.classify(idType, nil, append(slices.Clip(path), "<id>"))
	if err != nil {
		return nil, err
	}
	if !idSt.Kind.IsLeaf() {
		return nil, errors.InvalidDirective(path, "resolver %q identifier %s encodes as %s, want a scalar", name, idType, idSt.Kind)
	}

	b := &DynamicBinding{
		Resolver: name,
		ID:       idSt,
		byID:     make(map[any]*DynamicCandidate),
		byType:   make(map[reflect.Type]*DynamicCandidate),
	}

	var errs error
	for _, ct := range r.Candidates() {
		cpath := append(slices.Clip(path), fmt.Sprintf("<%v>", ct))
		if ct == nil {
			errs = errors.Append(errs, errors.AmbiguousDiscriminator(path, "nil candidate type"))
			continue
		}
		if !ct.Implements(iface) {
			errs = errors.Append(errs, errors.InvalidDirective(cpath, "candidate %s does not implement %s", ct, iface))
			continue
		}
		if _, dup := b.byType[ct]; dup {
			errs = errors.Append(errs, errors.AmbiguousDiscriminator(cpath, "duplicate candidate type"))
			continue
		}
		raw, ok := r.TypeToID(ct)
		if !ok {
			errs = errors.Append(errs, errors.AmbiguousDiscriminator(cpath, "candidate has no identifier"))
			continue
		}
		idv, ok := normalizeID(raw, idType)
		if !ok {
			errs = errors.Append(errs, errors.AmbiguousDiscriminator(cpath,
				fmt.Sprintf("identifier %v (%T) is not representable as %s", raw, raw, idType)))
			continue
		}
		key := idv.Interface()
		if back, ok := r.IDToType(key); !ok || back != ct {
			errs = errors.Append(errs, errors.AmbiguousDiscriminator(cpath,
				fmt.Sprintf("identifier %v maps back to %v, resolver is not inverse-consistent", key, back)))
			continue
		}
		if other, dup := b.byID[key]; dup {
			errs = errors.Append(errs, errors.AmbiguousDiscriminator(cpath,
				fmt.Sprintf("identifier %v already used by %s", key, other.Type)))
			continue
		}

		cand := &DynamicCandidate{Type: ct, ID: key, idValue: idv}
		payloadType := ct
		if ct.Kind() == reflect.Pointer {
			cand.ptr = true
			payloadType = ct.Elem()
		}
		payload, err := ss.classify(payloadType, nil, cpath)
		if err != nil {
			errs = errors.Append(errs, err)
			continue
		}
		cand.Payload = payload
		b.byType[ct] = cand
		b.byID[key] = cand
		b.Candidates = append(b.Candidates, cand)
	}
	if errs != nil {
		return nil, errs
	}

	st := &Strategy{Kind: strategy.KindDynamic, Type: iface, Length: -1, Dynamic: b}
	st.enc = func(w bincodec.Writer, v reflect.Value) error {
		if v.IsNil() {
			return errors.RuntimeType(errors.PhaseEncode, path, nil, "nil value for "+iface.String())
		}
		concrete := v.Elem()
		cand := b.byType[concrete.Type()]
		if cand == nil {
			return errors.RuntimeType(errors.PhaseEncode, path, concrete.Type().String(),
				fmt.Sprintf("%s is not a candidate of resolver %q", concrete.Type(), name))
		}
		if cand.ptr && concrete.IsNil() {
			return errors.RuntimeType(errors.PhaseEncode, path, concrete.Type().String(), "nil pointer candidate")
		}
		if err := idSt.enc(w, cand.idValue); err != nil {
			return err
		}
		if cand.ptr {
			return cand.Payload.enc(w, concrete.Elem())
		}
		return cand.Payload.enc(w, concrete)
	}
	st.dec = func(r bincodec.Reader, v reflect.Value) error {
		idv := reflect.New(idType).Elem()
		if err := idSt.dec(r, idv); err != nil {
			return err
		}
		cand := b.byID[idv.Interface()]
		if cand == nil {
			return errors.RuntimeType(errors.PhaseDecode, path, idv.Interface(),
				fmt.Sprintf("no candidate of resolver %q for identifier %v", name, idv.Interface()))
		}
		p := reflect.New(cand.Payload.Type)
		if err := cand.Payload.dec(r, p.Elem()); err != nil {
			return err
		}
		if cand.ptr {
			v.Set(p)
		} else {
			v.Set(p.Elem())
		}
		return nil
	}
	return st, nil
}

// normalizeID converts id to the discriminator type without loss.
func normalizeID(id any, t reflect.Type) (reflect.Value, bool) {
	v := reflect.ValueOf(id)
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if v.Type() == t {
		return v, true
	}
	if (t.Kind() == reflect.String) != (v.Kind() == reflect.String) || !v.Type().ConvertibleTo(t) {
		return reflect.Value{}, false
	}
	out := v.Convert(t)
	if !out.Type().ConvertibleTo(v.Type()) || out.Convert(v.Type()).Interface() != v.Interface() {
		return reflect.Value{}, false
	}
	return out, true
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func candidateType(c any) reflect.Type {
	if t, ok := c.(reflect.Type); ok {
		return t
	}
	return reflect.TypeOf(c)
}

type indexResolver[ID integer] struct {
	types []reflect.Type
	index map[reflect.Type]int
}

// IndexResolver identifies candidates by their position in the argument
// list. Candidates are sample values (Circle{}, &Square{}) or reflect.Types.
func IndexResolver[ID integer](candidates ...any) Resolver {
	r := &indexResolver[ID]{index: make(map[reflect.Type]int, len(candidates))}
	for i, c := range candidates {
		t := candidateType(c)
		r.types = append(r.types, t)
		if _, dup := r.index[t]; !dup {
			r.index[t] = i
		}
	}
	return r
}

func (r *indexResolver[ID]) Candidates() []reflect.Type { return r.types }

func (r *indexResolver[ID]) TypeToID(t reflect.Type) (any, bool) {
	i, ok := r.index[t]
	return ID(i), ok
}

func (r *indexResolver[ID]) IDToType(id any) (reflect.Type, bool) {
	v, ok := id.(ID)
	if !ok {
		return nil, false
	}
	i := int(v)
	if i < 0 || i >= len(r.types) || ID(i) != v {
		return nil, false
	}
	return r.types[i], true
}

func (r *indexResolver[ID]) IDType() reflect.Type { return reflect.TypeFor[ID]() }

type keyedResolver[ID comparable] struct {
	types  []reflect.Type
	toID   map[reflect.Type]ID
	toType map[ID]reflect.Type
}

// KeyedResolver identifies candidates by explicit keys. Candidates are
// reported in order of their type names.
func KeyedResolver[ID comparable](m map[ID]any) Resolver {
	r := &keyedResolver[ID]{
		toID:   make(map[reflect.Type]ID, len(m)),
		toType: make(map[ID]reflect.Type, len(m)),
	}
	for id, c := range m {
		t := candidateType(c)
		r.types = append(r.types, t)
		r.toID[t] = id
		r.toType[id] = t
	}
	slices.SortStableFunc(r.types, func(a, b reflect.Type) int {
		return cmp.Compare(typeString(a), typeString(b))
	})
	return r
}

func (r *keyedResolver[ID]) Candidates() []reflect.Type { return r.types }

func (r *keyedResolver[ID]) TypeToID(t reflect.Type) (any, bool) {
	id, ok := r.toID[t]
	return id, ok
}

func (r *keyedResolver[ID]) IDToType(id any) (reflect.Type, bool) {
	k, ok := id.(ID)
	if !ok {
		return nil, false
	}
	t, ok := r.toType[k]
	return t, ok
}

func (r *keyedResolver[ID]) IDType() reflect.Type { return reflect.TypeFor[ID]() }

// NameResolver identifies candidates by their type name, dereferencing
// pointers, so Circle and *Circle both use "Circle".
func NameResolver(candidates ...any) Resolver {
	m := make(map[string]any, len(candidates))
	for _, c := range candidates {
		t := candidateType(c)
		name := t.Name()
		if t.Kind() == reflect.Pointer {
			name = t.Elem().Name()
		}
		m[name] = t
	}
	return KeyedResolver(m)
}
