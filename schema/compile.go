package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/wippyai/bincodec/errors"
	"github.com/wippyai/bincodec/synth"
)

// Schema is a compiled document. It is immutable and safe for concurrent
// use.
type Schema struct {
	types  []*Type
	byName map[string]*Type
}

// Type is a compiled record type.
type Type struct {
	Name string
	// Go is the struct type built for the record.
	Go         reflect.Type
	Members    []Member
	EncodeOnly bool
	DecodeOnly bool
}

// Member is a compiled record member.
type Member struct {
	Name  string
	Field string
	Expr  *Expr
	// Directives is the bin tag written on the field.
	Directives string
}

// Lookup returns the type with the given name.
func (s *Schema) Lookup(name string) (*Type, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Types returns the types in declaration order.
func (s *Schema) Types() []*Type {
	return s.types
}

// Names returns the type names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.types))
	for i, t := range s.types {
		names[i] = t.Name
	}
	return names
}

// Register applies the per-type options of the schema to syn. It must be
// called before any schema type is synthesized.
func (s *Schema) Register(syn *synth.Synthesizer) error {
	var errs error
	for _, t := range s.types {
		var opts []synth.TypeOption
		if t.EncodeOnly {
			opts = append(opts, synth.EncodeOnly())
		}
		if t.DecodeOnly {
			opts = append(opts, synth.DecodeOnly())
		}
		if len(opts) > 0 {
			errs = errors.Append(errs, syn.Configure(t.Go, opts...))
		}
	}
	return errs
}

func schemaError(path []string, format string, args ...any) error {
	return errors.New(errors.PhaseSchema, errors.KindInvalidDirective).
		Path(path...).
		Detail(format, args...).
		Build()
}

type visit uint8

const (
	unvisited visit = iota
	visiting
	visited
	failed
)

// errFailed marks a type whose failure has already been reported.
var errFailed = fmt.Errorf("schema: type failed to build")

type compiler struct {
	decls   map[string]*TypeDecl
	members map[string][]Member
	state   map[string]visit
	built   map[string]*Type
}

// Compile validates doc and builds a Go struct type for every record. All
// diagnostics are returned together.
func Compile(doc *Document) (*Schema, error) {
	c := &compiler{
		decls:   make(map[string]*TypeDecl, len(doc.Types)),
		members: make(map[string][]Member, len(doc.Types)),
		state:   make(map[string]visit, len(doc.Types)),
		built:   make(map[string]*Type, len(doc.Types)),
	}

	var errs error
	var names []string
	for i := range doc.Types {
		d := &doc.Types[i]
		path := []string{d.Name}
		switch {
		case !validName(d.Name):
			errs = errors.Append(errs, schemaError(path, "invalid type name %q", d.Name))
			continue
		case primitiveNames[d.Name] || d.Name == "list" || d.Name == "map":
			errs = errors.Append(errs, schemaError(path, "type name %q is reserved", d.Name))
			continue
		case c.decls[d.Name] != nil:
			errs = errors.Append(errs, schemaError(path, "duplicate type"))
			continue
		case d.EncodeOnly && d.DecodeOnly:
			errs = errors.Append(errs, schemaError(path, "type cannot be both encode_only and decode_only"))
		}
		c.decls[d.Name] = d
		names = append(names, d.Name)
	}
	for _, name := range names {
		errs = errors.Append(errs, c.checkMembers(c.decls[name]))
	}
	if errs != nil {
		return nil, errs
	}

	s := &Schema{byName: make(map[string]*Type, len(names))}
	for _, name := range names {
		t, err := c.build(name, nil)
		if err != nil {
			if err != errFailed {
				errs = errors.Append(errs, err)
			}
			continue
		}
		s.types = append(s.types, t)
		s.byName[name] = t
	}
	if errs != nil {
		return nil, errs
	}
	return s, nil
}

func (c *compiler) checkMembers(d *TypeDecl) error {
	var errs error
	byName := make(map[string]bool, len(d.Members))
	byField := make(map[string]string, len(d.Members))
	for _, md := range d.Members {
		path := []string{d.Name, md.Name}
		if !validName(md.Name) {
			errs = errors.Append(errs, schemaError(path, "invalid member name %q", md.Name))
			continue
		}
		field := fieldName(md.Name)
		if byName[md.Name] {
			errs = errors.Append(errs, schemaError(path, "duplicate member"))
			continue
		}
		if other, ok := byField[field]; ok {
			errs = errors.Append(errs, schemaError(path, "member maps to field %s, already used by %s", field, other))
			continue
		}
		byName[md.Name] = true
		byField[field] = md.Name
	}
	if errs != nil {
		return errs
	}

	var members []Member
	for _, md := range d.Members {
		path := []string{d.Name, md.Name}
		expr, err := ParseExpr(md.Type)
		if err != nil {
			errs = errors.Append(errs, schemaError(path, "%v", err))
			continue
		}
		if err := c.checkExpr(expr, path); err != nil {
			errs = errors.Append(errs, err)
			continue
		}
		tag, err := directives(md, byName, path)
		if err != nil {
			errs = errors.Append(errs, err)
			continue
		}
		members = append(members, Member{
			Name:       md.Name,
			Field:      fieldName(md.Name),
			Expr:       expr,
			Directives: tag,
		})
	}
	c.members[d.Name] = members
	return errs
}

func (c *compiler) checkExpr(e *Expr, path []string) error {
	var errs error
	e.walk(func(x *Expr) {
		switch {
		case x.Kind == ExprRef && c.decls[x.Name] == nil:
			errs = errors.Append(errs, schemaError(path, "unknown type %q", x.Name))
		case x.Kind == ExprMap && !validKey(x.Key):
			errs = errors.Append(errs, schemaError(path, "map key %s is not a scalar", x.Key))
		}
	})
	return errs
}

// directives renders the bin tag for md. Names in when= are translated to
// field names.
func directives(md MemberDecl, members map[string]bool, path []string) (string, error) {
	if md.Skip {
		return "-", nil
	}
	var dirs []string
	if md.Order != nil {
		dirs = append(dirs, "order="+md.Order.raw)
	}
	if md.ReadOnly {
		dirs = append(dirs, "readonly")
	}
	if md.When != "" {
		when, err := translateWhen(md.When, members)
		if err != nil {
			return "", schemaError(path, "when %q: %v", md.When, err)
		}
		dirs = append(dirs, "when="+when)
	}
	if md.Fallback != nil {
		if md.When == "" {
			return "", schemaError(path, "fallback without when")
		}
		if strings.ContainsRune(*md.Fallback, '\'') {
			return "", schemaError(path, "fallback %q contains a single quote", *md.Fallback)
		}
		dirs = append(dirs, "fallback='"+*md.Fallback+"'")
	}
	return strings.Join(dirs, ","), nil
}

func translateWhen(expr string, members map[string]bool) (string, error) {
	name, rest, hasArgs := strings.Cut(strings.TrimSpace(expr), "(")
	name = strings.TrimSpace(name)
	if !validName(name) {
		return "", fmt.Errorf("invalid predicate name %q", name)
	}
	if !hasArgs {
		return name, nil
	}
	inner, ok := strings.CutSuffix(strings.TrimSpace(rest), ")")
	if !ok {
		return "", fmt.Errorf("missing ')'")
	}
	if strings.TrimSpace(inner) == "" {
		return name + "()", nil
	}
	args := strings.Split(inner, ";")
	for i, a := range args {
		a = strings.TrimSpace(a)
		if !members[a] {
			return "", fmt.Errorf("no member %q", a)
		}
		args[i] = fieldName(a)
	}
	return name + "(" + strings.Join(args, ";") + ")", nil
}

// build returns the compiled type for name, building referenced types
// first. stack holds the names being built, for cycle reports.
func (c *compiler) build(name string, stack []string) (*Type, error) {
	switch c.state[name] {
	case visited:
		return c.built[name], nil
	case failed:
		return nil, errFailed
	case visiting:
		cycle := append(stack[indexOf(stack, name):], name)
		return nil, errors.New(errors.PhaseSchema, errors.KindUnsupportedType).
			Path(name).
			Detail("reference cycle %s", strings.Join(cycle, " -> ")).
			Build()
	}
	c.state[name] = visiting
	stack = append(stack, name)

	d := c.decls[name]
	members := c.members[name]
	fields := make([]reflect.StructField, 0, len(members))
	for _, m := range members {
		ft, err := c.goType(m.Expr, stack)
		if err != nil {
			c.state[name] = failed
			return nil, err
		}
		tag := fmt.Sprintf(`yaml:%q`, m.Name)
		if m.Directives != "" {
			tag += fmt.Sprintf(` %s:%q`, synth.DefaultTagName, m.Directives)
		}
		fields = append(fields, reflect.StructField{
			Name: m.Field,
			Type: ft,
			Tag:  reflect.StructTag(tag),
		})
	}

	t := &Type{
		Name:       name,
		Go:         reflect.StructOf(fields),
		Members:    members,
		EncodeOnly: d.EncodeOnly,
		DecodeOnly: d.DecodeOnly,
	}
	c.state[name] = visited
	c.built[name] = t
	return t, nil
}

var primitiveTypes = map[string]reflect.Type{
	"bool":   reflect.TypeFor[bool](),
	"i8":     reflect.TypeFor[int8](),
	"i16":    reflect.TypeFor[int16](),
	"i32":    reflect.TypeFor[int32](),
	"i64":    reflect.TypeFor[int64](),
	"u8":     reflect.TypeFor[uint8](),
	"u16":    reflect.TypeFor[uint16](),
	"u32":    reflect.TypeFor[uint32](),
	"u64":    reflect.TypeFor[uint64](),
	"f32":    reflect.TypeFor[float32](),
	"f64":    reflect.TypeFor[float64](),
	"string": reflect.TypeFor[string](),
	"bytes":  reflect.TypeFor[[]byte](),
}

func (c *compiler) goType(e *Expr, stack []string) (reflect.Type, error) {
	switch e.Kind {
	case ExprPrimitive:
		return primitiveTypes[e.Name], nil
	case ExprList:
		elem, err := c.goType(e.Elem, stack)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case ExprMap:
		key, err := c.goType(e.Key, stack)
		if err != nil {
			return nil, err
		}
		val, err := c.goType(e.Elem, stack)
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, val), nil
	case ExprNullable:
		elem, err := c.goType(e.Elem, stack)
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	default:
		t, err := c.build(e.Name, stack)
		if err != nil {
			return nil, err
		}
		return t.Go, nil
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}
