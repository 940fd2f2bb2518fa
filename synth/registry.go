package synth

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/wippyai/bincodec"
	"github.com/wippyai/bincodec/errors"
)

var (
	errorType  = reflect.TypeFor[error]()
	writerType = reflect.TypeFor[bincodec.Writer]()
	readerType = reflect.TypeFor[bincodec.Reader]()
	boolType   = reflect.TypeFor[bool]()
)

// funcPair is a static encode/decode pair registered under a name.
type funcPair struct {
	name   string
	typ    reflect.Type
	encode reflect.Value // func(bincodec.Writer, T) error
	decode reflect.Value // func(bincodec.Reader) (T, error)
}

// converter adapts a model type to a wire type the chain can encode.
type converter struct {
	name     string
	model    reflect.Type
	wire     reflect.Value // func(M) W or func(M) (W, error)
	fromWire reflect.Value // func(W) M or func(W) (M, error)
}

func (c *converter) wireType() reflect.Type {
	return c.wire.Type().Out(0)
}

// predicate is a versioning gate function over context members.
type predicate struct {
	name string
	fn   reflect.Value // func(ctx...) bool
}

// registry holds named hooks shared by every type a Synthesizer builds.
type registry struct {
	mu             sync.RWMutex
	funcs          map[string]*funcPair
	converters     map[string]*converter
	typeConverters map[reflect.Type]*converter
	resolvers      map[string]Resolver
	ifaceResolvers map[reflect.Type]Resolver
	predicates     map[string]*predicate
	enums          map[reflect.Type]map[any]struct{}
	types          map[reflect.Type]*typeConfig
}

func newRegistry() *registry {
	r := &registry{
		funcs:          make(map[string]*funcPair),
		converters:     make(map[string]*converter),
		typeConverters: make(map[reflect.Type]*converter),
		resolvers:      make(map[string]Resolver),
		ifaceResolvers: make(map[reflect.Type]Resolver),
		predicates:     make(map[string]*predicate),
		enums:          make(map[reflect.Type]map[any]struct{}),
		types:          make(map[reflect.Type]*typeConfig),
	}

	r.predicates["always"] = &predicate{name: "always", fn: reflect.ValueOf(func() bool { return true })}
	r.predicates["never"] = &predicate{name: "never", fn: reflect.ValueOf(func() bool { return false })}
	r.predicates["nonzero"] = &predicate{name: "nonzero", fn: reflect.ValueOf(func(v any) bool {
		if v == nil {
			return false
		}
		return !reflect.ValueOf(v).IsZero()
	})}

	timeConv, _ := newConverter("time",
		func(t time.Time) int64 { return t.UnixNano() },
		func(n int64) time.Time { return time.Unix(0, n).UTC() })
	r.typeConverters[timeConv.model] = timeConv
	return r
}

// RegisterFuncs registers a static encode/decode pair under name, for use
// with the func= directive. encode must be func(bincodec.Writer, T) error
// and decode func(bincodec.Reader) (T, error).
func (s *Synthesizer) RegisterFuncs(name string, encode, decode any) error {
	enc, dec := reflect.ValueOf(encode), reflect.ValueOf(decode)
	if enc.Kind() != reflect.Func || dec.Kind() != reflect.Func {
		return errors.InvalidDirective(nil, "funcs %q: encode and decode must be functions", name)
	}
	et, dt := enc.Type(), dec.Type()
	if et.NumIn() != 2 || et.In(0) != writerType || et.NumOut() != 1 || et.Out(0) != errorType {
		return errors.InvalidDirective(nil, "funcs %q: encode must be func(bincodec.Writer, T) error, got %s", name, et)
	}
	if dt.NumIn() != 1 || dt.In(0) != readerType || dt.NumOut() != 2 || dt.Out(1) != errorType {
		return errors.InvalidDirective(nil, "funcs %q: decode must be func(bincodec.Reader) (T, error), got %s", name, dt)
	}
	if et.In(1) != dt.Out(0) {
		return errors.InvalidDirective(nil, "funcs %q: encode takes %s but decode returns %s", name, et.In(1), dt.Out(0))
	}

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.funcs[name] = &funcPair{name: name, typ: et.In(1), encode: enc, decode: dec}
	return nil
}

func newConverter(name string, toWire, fromWire any) (*converter, error) {
	to, from := reflect.ValueOf(toWire), reflect.ValueOf(fromWire)
	if to.Kind() != reflect.Func || from.Kind() != reflect.Func {
		return nil, fmt.Errorf("converter %q: both directions must be functions", name)
	}
	tt, ft := to.Type(), from.Type()
	if !converterShape(tt) || !converterShape(ft) {
		return nil, fmt.Errorf("converter %q: want func(M) W and func(W) M, optionally returning error; got %s and %s", name, tt, ft)
	}
	if tt.In(0) != ft.Out(0) || tt.Out(0) != ft.In(0) {
		return nil, fmt.Errorf("converter %q: %s and %s are not inverse shapes", name, tt, ft)
	}
	return &converter{name: name, model: tt.In(0), wire: to, fromWire: from}, nil
}

func converterShape(t reflect.Type) bool {
	if t.NumIn() != 1 || t.IsVariadic() {
		return false
	}
	switch t.NumOut() {
	case 1:
		return true
	case 2:
		return t.Out(1) == errorType
	default:
		return false
	}
}

// RegisterConverter registers a named converter for the conv= directive.
// toWire is func(M) W and fromWire func(W) M; either may also return an
// error. W must itself be encodable.
func (s *Synthesizer) RegisterConverter(name string, toWire, fromWire any) error {
	c, err := newConverter(name, toWire, fromWire)
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidDirective).Cause(err).Build()
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.converters[name] = c
	return nil
}

// RegisterTypeConverter registers a converter applied to every member of
// type M. It replaces any earlier converter for M, including the built-in
// time.Time converter.
func (s *Synthesizer) RegisterTypeConverter(toWire, fromWire any) error {
	c, err := newConverter("", toWire, fromWire)
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidDirective).Cause(err).Build()
	}
	c.name = c.model.String()
	if err := s.checkUnsynthesized(c.model); err != nil {
		return err
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.typeConverters[c.model] = c
	return nil
}

// RegisterResolver registers a dynamic-member resolver for the dynamic=
// directive.
func (s *Synthesizer) RegisterResolver(name string, r Resolver) error {
	if r == nil {
		return errors.InvalidDirective(nil, "resolver %q is nil", name)
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.resolvers[name] = r
	return nil
}

// RegisterInterfaceResolver makes r the resolver for every member whose
// declared type is the interface iface.
func (s *Synthesizer) RegisterInterfaceResolver(iface reflect.Type, r Resolver) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return errors.InvalidDirective(nil, "resolver target %v is not an interface type", iface)
	}
	if r == nil {
		return errors.InvalidDirective(nil, "resolver for %s is nil", iface)
	}
	if err := s.checkUnsynthesized(iface); err != nil {
		return err
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.ifaceResolvers[iface] = r
	return nil
}

// RegisterPredicate registers a versioning predicate. fn must return bool
// and take one parameter per context member named in the when= directive.
func (s *Synthesizer) RegisterPredicate(name string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return errors.InvalidDirective(nil, "predicate %q must be a function, got %T", name, fn)
	}
	ft := v.Type()
	if ft.NumOut() != 1 || ft.Out(0) != boolType || ft.IsVariadic() {
		return errors.InvalidDirective(nil, "predicate %q must be func(...) bool, got %s", name, ft)
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.predicates[name] = &predicate{name: name, fn: v}
	return nil
}

// RegisterEnum declares the complete value set of a defined integer type.
// Decoding any other value fails with ErrStreamCorruption.
func (s *Synthesizer) RegisterEnum(values ...any) error {
	if len(values) == 0 {
		return errors.InvalidDirective(nil, "enum needs at least one value")
	}
	t := reflect.TypeOf(values[0])
	if !isEnumType(t) {
		return errors.InvalidDirective(nil, "enum values must be of a defined integer type, got %v", t)
	}
	set := make(map[any]struct{}, len(values))
	for _, v := range values {
		if reflect.TypeOf(v) != t {
			return errors.InvalidDirective(nil, "enum value %v is %T, want %s", v, v, t)
		}
		set[v] = struct{}{}
	}
	if err := s.checkUnsynthesized(t); err != nil {
		return err
	}
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.enums[t] = set
	return nil
}

func (r *registry) lookupFuncs(name string) *funcPair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funcs[name]
}

func (r *registry) lookupConverter(name string) *converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters[name]
}

func (r *registry) lookupTypeConverter(t reflect.Type) *converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeConverters[t]
}

func (r *registry) lookupResolver(name string) Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolvers[name]
}

func (r *registry) lookupInterfaceResolver(t reflect.Type) Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ifaceResolvers[t]
}

func (r *registry) lookupPredicate(name string) *predicate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.predicates[name]
}

func (r *registry) lookupEnum(t reflect.Type) map[any]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums[t]
}

func (r *registry) lookupType(t reflect.Type) *typeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[t]
}
