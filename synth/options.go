package synth

import (
	"fmt"
	"reflect"
)

// typeConfig is the per-type configuration collected by Configure.
type typeConfig struct {
	encodeOnly   bool
	decodeOnly   bool
	constructors []*Constructor
	members      map[string]*Directives
}

// TypeOption configures one type.
type TypeOption func(*typeConfig)

// EncodeOnly opts the type out of decoding. Constructor selection is
// skipped for it.
func EncodeOnly() TypeOption {
	return func(c *typeConfig) { c.encodeOnly = true }
}

// DecodeOnly opts the type out of encoding.
func DecodeOnly() TypeOption {
	return func(c *typeConfig) { c.decodeOnly = true }
}

// Constructors registers reconstruction functions for the type.
func Constructors(ctors ...*Constructor) TypeOption {
	return func(c *typeConfig) { c.constructors = append(c.constructors, ctors...) }
}

// Member applies options to the named member, as if they were written in
// its struct tag.
func Member(name string, opts ...MemberOption) TypeOption {
	return func(c *typeConfig) {
		if c.members == nil {
			c.members = make(map[string]*Directives)
		}
		d, ok := c.members[name]
		if !ok {
			d = &Directives{}
			c.members[name] = d
		}
		for _, opt := range opts {
			opt(d)
		}
	}
}

// MemberOption configures one member.
type MemberOption func(*Directives)

// Order sets the member's order hint.
func Order(n int) MemberOption {
	return func(d *Directives) { d.Order, d.HasOrder = n, true }
}

// Skip excludes the member.
func Skip() MemberOption {
	return func(d *Directives) { d.Skip = true }
}

// Include re-includes a member whose tag excludes it.
func Include() MemberOption {
	return func(d *Directives) { d.Include = true }
}

// ReadOnly marks the member as having no setter.
func ReadOnly() MemberOption {
	return func(d *Directives) { d.ReadOnly = true }
}

// WithFuncs binds a static pair registered with RegisterFuncs.
func WithFuncs(name string) MemberOption {
	return func(d *Directives) { d.Funcs = name }
}

// WithMethods binds instance methods on the member type. With no names the
// configured defaults are used.
func WithMethods(names ...string) MemberOption {
	return func(d *Directives) {
		d.Method = true
		if len(names) == 2 {
			d.EncodeMethod, d.DecodeMethod = names[0], names[1]
		}
	}
}

// WithConverter binds a converter registered with RegisterConverter.
func WithConverter(name string) MemberOption {
	return func(d *Directives) { d.Converter = name }
}

// WithDynamic binds a resolver registered with RegisterResolver.
func WithDynamic(resolver string) MemberOption {
	return func(d *Directives) { d.Dynamic = resolver }
}

// When gates the member on a registered predicate over earlier members.
func When(predicate string, context ...string) MemberOption {
	return func(d *Directives) { d.When, d.WhenArgs = predicate, context }
}

// Fallback sets the value a gated member takes when it is not read.
func Fallback(v any) MemberOption {
	return func(d *Directives) {
		d.fallbackValue, d.hasFallbackValue = reflect.ValueOf(v), true
	}
}

// Constructor describes a function that reconstructs a type from decoded
// member values. Build one with Ctor.
type Constructor struct {
	fn        reflect.Value
	params    []string
	preferred bool
	binds     map[string]string
	defaults  map[string]reflect.Value
	err       error
}

// Ctor registers fn with one name per parameter. fn may return T, *T,
// (T, error) or (*T, error).
func Ctor(fn any, params ...string) *Constructor {
	c := &Constructor{fn: reflect.ValueOf(fn), params: params}
	if !c.fn.IsValid() || c.fn.Kind() != reflect.Func {
		c.err = fmt.Errorf("constructor must be a function, got %T", fn)
		return c
	}
	ft := c.fn.Type()
	if ft.IsVariadic() {
		c.err = fmt.Errorf("constructor %s is variadic", ft)
	} else if ft.NumIn() != len(params) {
		c.err = fmt.Errorf("constructor %s takes %d parameters, %d names given", ft, ft.NumIn(), len(params))
	}
	return c
}

// Preferred marks the constructor as the one to use. A preferred
// constructor that cannot be bound is an error; others are not tried.
func (c *Constructor) Preferred() *Constructor {
	c.preferred = true
	return c
}

// Bind maps a parameter to a differently named member.
func (c *Constructor) Bind(param, member string) *Constructor {
	if c.binds == nil {
		c.binds = make(map[string]string)
	}
	c.binds[param] = member
	return c
}

// Default supplies a value for a parameter no member binds to.
func (c *Constructor) Default(param string, v any) *Constructor {
	if c.defaults == nil {
		c.defaults = make(map[string]reflect.Value)
	}
	c.defaults[param] = reflect.ValueOf(v)
	return c
}

// Params returns the parameter names.
func (c *Constructor) Params() []string {
	return c.params
}

func (c *Constructor) String() string {
	if !c.fn.IsValid() {
		return "invalid constructor"
	}
	return fmt.Sprintf("%s(%v)", c.fn.Type(), c.params)
}

func (c *Constructor) paramIndex(name string) int {
	for i, p := range c.params {
		if p == name {
			return i
		}
	}
	return -1
}

// validate checks the constructor against the type it builds.
func (c *Constructor) validate(t reflect.Type) error {
	if c.err != nil {
		return c.err
	}
	ft := c.fn.Type()
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return fmt.Errorf("constructor %s: second result must be error", ft)
		}
	default:
		return fmt.Errorf("constructor %s must return %s or *%s, optionally with error", ft, t, t)
	}
	if out := ft.Out(0); out != t && out != reflect.PointerTo(t) {
		return fmt.Errorf("constructor %s returns %s, want %s or *%s", ft, out, t, t)
	}
	for p := range c.binds {
		if c.paramIndex(p) < 0 {
			return fmt.Errorf("constructor %s has no parameter %q to bind", ft, p)
		}
	}
	for p, v := range c.defaults {
		i := c.paramIndex(p)
		if i < 0 {
			return fmt.Errorf("constructor %s has no parameter %q for default", ft, p)
		}
		pt := ft.In(i)
		if !v.IsValid() {
			c.defaults[p] = reflect.Zero(pt)
			continue
		}
		switch {
		case v.Type().AssignableTo(pt):
		case v.Type().ConvertibleTo(pt) && v.Kind() != reflect.String && pt.Kind() != reflect.String:
			c.defaults[p] = v.Convert(pt)
		default:
			return fmt.Errorf("default %s for parameter %q is not a %s", v.Type(), p, pt)
		}
	}
	return nil
}
