package schema

import (
	"fmt"
	"strings"
)

// ExprKind identifies the form of a type expression.
type ExprKind uint8

const (
	ExprPrimitive ExprKind = iota
	ExprList
	ExprMap
	ExprNullable
	ExprRef
)

var exprKindNames = [...]string{
	ExprPrimitive: "primitive",
	ExprList:      "list",
	ExprMap:       "map",
	ExprNullable:  "nullable",
	ExprRef:       "ref",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "unknown"
}

var primitiveNames = map[string]bool{
	"bool": true, "string": true, "bytes": true,
	"i8": true, "i16": true, "i32": true, "i64": true,
	"u8": true, "u16": true, "u32": true, "u64": true,
	"f32": true, "f64": true,
}

// Expr is a parsed type expression.
type Expr struct {
	Kind ExprKind
	// Name is the primitive or referenced type name.
	Name string
	// Elem is the list element, map value or nullable target.
	Elem *Expr
	Key  *Expr
}

// String renders the canonical form, without spaces.
func (e *Expr) String() string {
	switch e.Kind {
	case ExprList:
		return "list<" + e.Elem.String() + ">"
	case ExprMap:
		return "map<" + e.Key.String() + "," + e.Elem.String() + ">"
	case ExprNullable:
		return "?" + e.Elem.String()
	default:
		return e.Name
	}
}

// Refs returns the type names e references, in first-use order.
func (e *Expr) Refs() []string {
	var out []string
	e.walk(func(x *Expr) {
		if x.Kind == ExprRef {
			out = append(out, x.Name)
		}
	})
	return out
}

func (e *Expr) walk(fn func(*Expr)) {
	fn(e)
	if e.Key != nil {
		e.Key.walk(fn)
	}
	if e.Elem != nil {
		e.Elem.walk(fn)
	}
}

// ParseExpr parses a type expression such as "map<string, ?list<i32>>".
// Names that are not primitives are returned as references.
func ParseExpr(s string) (*Expr, error) {
	p := &exprParser{src: s}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.space()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) space() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) accept(c byte) bool {
	p.space()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expect(c byte) error {
	if !p.accept(c) {
		return p.errorf("expected %q", c)
	}
	return nil
}

func (p *exprParser) ident() string {
	p.space()
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9':
		return !first
	default:
		return false
	}
}

func (p *exprParser) expr() (*Expr, error) {
	if p.accept('?') {
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprNullable, Elem: inner}, nil
	}

	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected a type")
	}

	switch name {
	case "list":
		if err := p.expect('<'); err != nil {
			return nil, err
		}
		elem, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprList, Elem: elem}, nil
	case "map":
		if err := p.expect('<'); err != nil {
			return nil, err
		}
		key, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		val, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprMap, Key: key, Elem: val}, nil
	}

	if primitiveNames[name] {
		return &Expr{Kind: ExprPrimitive, Name: name}, nil
	}
	return &Expr{Kind: ExprRef, Name: name}, nil
}

// validKey reports whether e can be a map key: any primitive except bytes.
func validKey(e *Expr) bool {
	return e.Kind == ExprPrimitive && e.Name != "bytes"
}

// fieldName maps a member name to an exported Go field name.
func fieldName(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func validName(name string) bool {
	if name == "" || name[0] == '_' {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isIdentByte(name[i], i == 0) {
			return false
		}
	}
	return true
}
