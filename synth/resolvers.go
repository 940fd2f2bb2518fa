package synth

import (
	"reflect"
	"slices"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/synth/internal/strategy"
)

// resolveFunc returns a strategy when its rule matches t, nil when it does
// not, or an error when the rule matches but cannot be bound.
type resolveFunc func(ss *session, t reflect.Type, d *Directives, path []string) (*Strategy, error)

// resolverChain is tried in descending priority; the first match wins.
// It is filled in init since several resolvers recurse through classify.
var resolverChain []resolveFunc

func init() {
	resolverChain = []resolveFunc{
		resolveCustom,
		resolveConverter,
		resolveEnum,
		resolveDynamic,
		resolveCollection,
		resolvePrimitive,
		resolveComposite,
	}
}

func resolveCustom(ss *session, t reflect.Type, d *Directives, path []string) (*Strategy, error) {
	if d != nil && d.Funcs != "" {
		fp := ss.s.reg.lookupFuncs(d.Funcs)
		if fp == nil {
			return nil, errors.InvalidDirective(path, "no funcs registered as %q", d.Funcs)
		}
		if fp.typ != t {
			return nil, errors.TypeMismatch(errors.PhaseConfig, path, t.String(), fp.typ.String()+" for funcs "+d.Funcs)
		}
		return staticStrategy(t, fp), nil
	}

	if d != nil && d.Method {
		encName, decName := d.EncodeMethod, d.DecodeMethod
		if encName == "" {
			encName, decName = ss.s.cfg.EncodeMethod, ss.s.cfg.DecodeMethod
		}
		em, dm, ok := ss.methodPair(t, encName, decName)
		if !ok {
			return nil, errors.InvalidDirective(path,
				"%s lacks %s(bincodec.Writer) error and (*%s).%s(bincodec.Reader) error",
				t, encName, t, decName)
		}
		return methodStrategy(t, em, dm), nil
	}

	if !ss.s.cfg.DisableAutoMethods {
		if em, dm, ok := ss.ownMethodPair(t); ok {
			return methodStrategy(t, em, dm), nil
		}
	}
	return nil, nil
}

// methodPair finds encName on T or *T and decName on *T with the codec
// signatures.
func (ss *session) methodPair(t reflect.Type, encName, decName string) (reflect.Method, reflect.Method, bool) {
	pt := reflect.PointerTo(t)
	em, ok := pt.MethodByName(encName)
	if !ok || !hookSignature(em.Type, writerType) {
		return reflect.Method{}, reflect.Method{}, false
	}
	dm, ok := pt.MethodByName(decName)
	if !ok || !hookSignature(dm.Type, readerType) {
		return reflect.Method{}, reflect.Method{}, false
	}
	return em, dm, true
}

// ownMethodPair is methodPair for the default names, ignoring methods
// promoted from embedded fields so a derived struct is not encoded by its
// base's hooks.
func (ss *session) ownMethodPair(t reflect.Type) (reflect.Method, reflect.Method, bool) {
	encName, decName := ss.s.cfg.EncodeMethod, ss.s.cfg.DecodeMethod
	em, dm, ok := ss.methodPair(t, encName, decName)
	if !ok || promotes(t, encName) || promotes(t, decName) {
		return reflect.Method{}, reflect.Method{}, false
	}
	return em, dm, true
}

func promotes(t reflect.Type, name string) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if _, ok := reflect.PointerTo(f.Type).MethodByName(name); ok {
			return true
		}
		if _, ok := f.Type.MethodByName(name); ok {
			return true
		}
	}
	return false
}

func hookSignature(mt reflect.Type, arg reflect.Type) bool {
	return mt.NumIn() == 2 && mt.In(1) == arg && mt.NumOut() == 1 && mt.Out(0) == errorType
}

// addressable returns a pointer to v, copying v when it is not addressable.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}

func callErr(out reflect.Value) error {
	if out.IsNil() {
		return nil
	}
	return out.Interface().(error)
}

func methodStrategy(t reflect.Type, em, dm reflect.Method) *Strategy {
	st := &Strategy{
		Kind:   strategy.KindCustom,
		Type:   t,
		Length: -1,
		Custom: &CustomBinding{EncodeMethod: em.Name, DecodeMethod: dm.Name},
	}
	encFn, decFn := em.Func, dm.Func
	st.enc = func(w bincodec.Writer, v reflect.Value) error {
		out := encFn.Call([]reflect.Value{addressable(v), reflect.ValueOf(w)})
		return callErr(out[0])
	}
	st.dec = func(r bincodec.Reader, v reflect.Value) error {
		out := decFn.Call([]reflect.Value{v.Addr(), reflect.ValueOf(r)})
		return callErr(out[0])
	}
	return st
}

func staticStrategy(t reflect.Type, fp *funcPair) *Strategy {
	st := &Strategy{
		Kind:   strategy.KindCustom,
		Type:   t,
		Length: -1,
		Custom: &CustomBinding{Static: true, Name: fp.name},
	}
	st.enc = func(w bincodec.Writer, v reflect.Value) error {
		out := fp.encode.Call([]reflect.Value{reflect.ValueOf(w), v})
		return callErr(out[0])
	}
	st.dec = func(r bincodec.Reader, v reflect.Value) error {
		out := fp.decode.Call([]reflect.Value{reflect.ValueOf(r)})
		if err := callErr(out[1]); err != nil {
			return err
		}
		v.Set(out[0])
		return nil
	}
	return st
}

func resolveConverter(ss *session, t reflect.Type, d *Directives, path []string) (*Strategy, error) {
	var c *converter
	if d != nil && d.Converter != "" {
		c = ss.s.reg.lookupConverter(d.Converter)
		if c == nil {
			return nil, errors.InvalidDirective(path, "no converter registered as %q", d.Converter)
		}
		if c.model != t {
			return nil, errors.TypeMismatch(errors.PhaseConfig, path, t.String(), c.model.String()+" for converter "+d.Converter)
		}
	} else if c = ss.s.reg.lookupTypeConverter(t); c == nil {
		return nil, nil
	}

	wireType := c.wireType()
	if wireType == t {
		return nil, errors.InvalidDirective(path, "converter %q maps %s to itself", c.name, t)
	}
	wire, err := ss.classify(wireType, nil, append(slices.Clip(path), "<"+c.name+">"))
	if err != nil {
		return nil, err
	}

	st := &Strategy{
		Kind:      strategy.KindConverter,
		Type:      t,
		Elem:      wire,
		Length:    -1,
		Converter: c.name,
	}
	st.enc = func(w bincodec.Writer, v reflect.Value) error {
		out := c.wire.Call([]reflect.Value{v})
		if len(out) == 2 {
			if err := callErr(out[1]); err != nil {
				return errors.Hook(errors.PhaseEncode, path, err)
			}
		}
		return wire.enc(w, out[0])
	}
	st.dec = func(r bincodec.Reader, v reflect.Value) error {
		wv := reflect.New(wireType).Elem()
		if err := wire.dec(r, wv); err != nil {
			return err
		}
		out := c.fromWire.Call([]reflect.Value{wv})
		if len(out) == 2 {
			if err := callErr(out[1]); err != nil {
				return errors.Hook(errors.PhaseDecode, path, err)
			}
		}
		v.Set(out[0])
		return nil
	}
	return st, nil
}

func isEnumType(t reflect.Type) bool {
	if t == nil || t.Name() == "" || t.PkgPath() == "" {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func resolveEnum(ss *session, t reflect.Type, _ *Directives, path []string) (*Strategy, error) {
	if !isEnumType(t) {
		return nil, nil
	}
	prim, _ := strategy.PrimOf(t.Kind())
	enc, dec := primitiveCodec(prim, path)
	st := &Strategy{Kind: strategy.KindEnum, Type: t, Prim: prim, Length: -1, enc: enc, dec: dec}

	if set := ss.s.reg.lookupEnum(t); set != nil {
		st.dec = func(r bincodec.Reader, v reflect.Value) error {
			if err := dec(r, v); err != nil {
				return err
			}
			if _, ok := set[v.Interface()]; !ok {
				return errors.StreamCorruption(errors.PhaseDecode, path, "%v is not a declared %s value", v.Interface(), t)
			}
			return nil
		}
	}
	return st, nil
}

func resolveDynamic(ss *session, t reflect.Type, d *Directives, path []string) (*Strategy, error) {
	if t.Kind() != reflect.Interface {
		return nil, nil
	}
	var r Resolver
	name := t.String()
	if d != nil && d.Dynamic != "" {
		name = d.Dynamic
		if r = ss.s.reg.lookupResolver(name); r == nil {
			return nil, errors.InvalidDirective(path, "no resolver registered as %q", name)
		}
	} else if r = ss.s.reg.lookupInterfaceResolver(t); r == nil {
		return nil, nil
	}
	return ss.bindDynamic(t, r, name, path)
}

func resolvePrimitive(_ *session, t reflect.Type, _ *Directives, path []string) (*Strategy, error) {
	prim, ok := strategy.PrimOf(t.Kind())
	if !ok {
		return nil, nil
	}
	enc, dec := primitiveCodec(prim, path)
	return &Strategy{Kind: strategy.KindPrimitive, Type: t, Prim: prim, Length: -1, enc: enc, dec: dec}, nil
}

func resolveComposite(ss *session, t reflect.Type, _ *Directives, path []string) (*Strategy, error) {
	if t.Kind() != reflect.Struct {
		return nil, nil
	}
	desc, err := ss.describe(t, path)
	if err != nil {
		return nil, err
	}
	return &Strategy{
		Kind:      strategy.KindComposite,
		Type:      t,
		Length:    -1,
		Composite: desc,
		enc:       desc.encodeValue,
		dec:       desc.decodeValue,
	}, nil
}

// checkDirectives rejects type-specific directives on types they cannot
// apply to, before the chain silently picks another rule.
func checkDirectives(t reflect.Type, d *Directives, path []string) error {
	if d == nil {
		return nil
	}
	if d.Dynamic != "" && t.Kind() != reflect.Interface {
		return errors.InvalidDirective(path, "dynamic=%s on non-interface type %s", d.Dynamic, t)
	}
	return nil
}

func primitiveCodec(p strategy.Prim, path []string) (encodeFn, decodeFn) {
	switch p {
	case strategy.PrimBool:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteBool(v.Bool())
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadBool()
				if err != nil {
					return err
				}
				v.SetBool(x)
				return nil
			}
	case strategy.PrimI8:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteI8(int8(v.Int()))
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadI8()
				if err != nil {
					return err
				}
				v.SetInt(int64(x))
				return nil
			}
	case strategy.PrimI16:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteI16(int16(v.Int()))
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadI16()
				if err != nil {
					return err
				}
				v.SetInt(int64(x))
				return nil
			}
	case strategy.PrimI32:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteI32(int32(v.Int()))
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadI32()
				if err != nil {
					return err
				}
				v.SetInt(int64(x))
				return nil
			}
	case strategy.PrimI64:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteI64(v.Int())
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadI64()
				if err != nil {
					return err
				}
				if v.OverflowInt(x) {
					return errors.StreamCorruption(errors.PhaseDecode, path, "%d overflows %s", x, v.Type())
				}
				v.SetInt(x)
				return nil
			}
	case strategy.PrimU8:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteU8(uint8(v.Uint()))
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadU8()
				if err != nil {
					return err
				}
				v.SetUint(uint64(x))
				return nil
			}
	case strategy.PrimU16:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteU16(uint16(v.Uint()))
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadU16()
				if err != nil {
					return err
				}
				v.SetUint(uint64(x))
				return nil
			}
	case strategy.PrimU32:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteU32(uint32(v.Uint()))
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadU32()
				if err != nil {
					return err
				}
				v.SetUint(uint64(x))
				return nil
			}
	case strategy.PrimU64:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteU64(v.Uint())
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadU64()
				if err != nil {
					return err
				}
				if v.OverflowUint(x) {
					return errors.StreamCorruption(errors.PhaseDecode, path, "%d overflows %s", x, v.Type())
				}
				v.SetUint(x)
				return nil
			}
	case strategy.PrimF32:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteF32(float32(v.Float()))
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadF32()
				if err != nil {
					return err
				}
				v.SetFloat(float64(x))
				return nil
			}
	case strategy.PrimF64:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteF64(v.Float())
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadF64()
				if err != nil {
					return err
				}
				v.SetFloat(x)
				return nil
			}
	default:
		return func(w bincodec.Writer, v reflect.Value) error {
				return w.WriteString(v.String())
			}, func(r bincodec.Reader, v reflect.Value) error {
				x, err := r.ReadString()
				if err != nil {
					return err
				}
				v.SetString(x)
				return nil
			}
	}
}
