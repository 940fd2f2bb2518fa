package synth

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/bincodec/errors"
)

// Synthesizer builds and memoizes codecs. It is safe for concurrent use;
// registration and Configure must happen before the affected types are
// first used.
type Synthesizer struct {
	cfg   Config
	reg   *registry
	types sync.Map // reflect.Type -> *TypeDescriptor
	roots sync.Map // reflect.Type -> *Strategy
}

// New creates a Synthesizer.
func New(cfg Config) *Synthesizer {
	return &Synthesizer{
		cfg: cfg.withDefaults(),
		reg: newRegistry(),
	}
}

var defaultSynth = New(Config{})

// Default returns the Synthesizer used by the package-level helpers.
func Default() *Synthesizer {
	return defaultSynth
}

// Config returns the effective configuration.
func (s *Synthesizer) Config() Config {
	return s.cfg
}

// Configure applies type options to struct type t. Options for the same
// type accumulate across calls. Configuring a type that has already been
// synthesized is rejected.
func (s *Synthesizer) Configure(t reflect.Type, opts ...TypeOption) error {
	if t == nil || t.Kind() != reflect.Struct {
		return errors.InvalidDirective(nil, "configure: %v is not a struct type", t)
	}
	if err := s.checkUnsynthesized(t); err != nil {
		return err
	}

	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()

	cfg := s.reg.types[t]
	if cfg == nil {
		cfg = &typeConfig{}
	}
	next := *cfg
	next.constructors = append([]*Constructor(nil), cfg.constructors...)
	next.members = make(map[string]*Directives, len(cfg.members))
	for k, v := range cfg.members {
		d := *v
		next.members[k] = &d
	}
	for _, opt := range opts {
		opt(&next)
	}

	path := []string{t.String()}
	if next.encodeOnly && next.decodeOnly {
		return errors.InvalidDirective(path, "type cannot be both encode-only and decode-only")
	}
	for name := range next.members {
		f, ok := directField(t, name)
		if !ok {
			return errors.InvalidDirective(path, "no member %q", name)
		}
		if !f.IsExported() {
			return errors.InvalidDirective(path, "member %q is not exported", name)
		}
	}
	preferred := 0
	for _, c := range next.constructors {
		if err := c.validate(t); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidDirective).
				Path(path...).
				Cause(err).
				Build()
		}
		if c.preferred {
			preferred++
		}
	}
	if preferred > 1 {
		return errors.InvalidDirective(path, "%d constructors marked preferred", preferred)
	}

	s.reg.types[t] = &next
	return nil
}

// Configure applies type options to T.
func Configure[T any](s *Synthesizer, opts ...TypeOption) error {
	return s.Configure(reflect.TypeFor[T](), opts...)
}

func directField(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.Name == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func (s *Synthesizer) checkUnsynthesized(t reflect.Type) error {
	_, described := s.types.Load(t)
	_, rooted := s.roots.Load(t)
	if described || rooted {
		return errors.InvalidDirective([]string{t.String()}, "type already synthesized; configure it before first use")
	}
	return nil
}

// strategyFor returns the memoized root strategy for t, synthesizing it and
// every type it reaches on first use.
func (s *Synthesizer) strategyFor(t reflect.Type) (*Strategy, error) {
	if v, ok := s.roots.Load(t); ok {
		return v.(*Strategy), nil
	}

	ss := newSession(s)
	st, err := ss.classify(t, nil, []string{t.String()})
	if err == nil {
		err = ss.finish()
	}
	if err != nil {
		Logger().Debug("synthesis failed",
			zap.Stringer("type", t),
			zap.Int("diagnostics", len(errors.List(err))),
			zap.Error(err))
		return nil, err
	}
	ss.publish()

	actual, _ := s.roots.LoadOrStore(t, st)
	return actual.(*Strategy), nil
}

// Describe returns the synthesized plan of struct type t.
func (s *Synthesizer) Describe(t reflect.Type) (*PlanView, error) {
	desc, err := s.descriptorFor(t)
	if err != nil {
		return nil, err
	}
	return newPlanView(desc), nil
}

func (s *Synthesizer) descriptorFor(t reflect.Type) (*TypeDescriptor, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.TypeMismatch(errors.PhaseClassify, nil, typeString(t), "struct")
	}
	st, err := s.strategyFor(t)
	if err != nil {
		return nil, err
	}
	return st.Composite, nil
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// session is one synthesis pass. Descriptors it creates stay private until
// the whole pass succeeds.
type session struct {
	s       *Synthesizer
	pending map[reflect.Type]*TypeDescriptor
	created []*TypeDescriptor
}

func newSession(s *Synthesizer) *session {
	return &session{s: s, pending: make(map[reflect.Type]*TypeDescriptor)}
}

func (ss *session) lookup(t reflect.Type) *TypeDescriptor {
	if v, ok := ss.s.types.Load(t); ok {
		return v.(*TypeDescriptor)
	}
	return ss.pending[t]
}

// finish resolves gates and construction and assembles procedures for
// every descriptor created in the pass.
func (ss *session) finish() error {
	var errs error
	for _, d := range ss.created {
		errs = errors.Append(errs, ss.finalize(d))
	}
	return errs
}

func (ss *session) publish() {
	for _, d := range ss.created {
		ss.s.types.LoadOrStore(d.Type, d)
		Logger().Debug("synthesized type",
			zap.Stringer("type", d.Type),
			zap.Int("members", len(d.Order)),
			zap.Stringer("construction", d.Plan))
	}
}
