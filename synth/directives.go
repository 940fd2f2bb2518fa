package synth

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/bincodec/errors"
)

// Directives is the merged per-member configuration from the struct tag
// and programmatic member options.
type Directives struct {
	Skip    bool
	Include bool

	Order    int
	HasOrder bool

	ReadOnly bool

	// Funcs names a static pair registered with RegisterFuncs.
	Funcs string

	// Method binds instance methods on the member type. Empty names mean
	// the configured defaults.
	Method       bool
	EncodeMethod string
	DecodeMethod string

	Converter string
	Dynamic   string

	// When names a registered predicate evaluated over WhenArgs, which are
	// member names earlier in the total order.
	When     string
	WhenArgs []string

	// Fallback is the literal text of a fallback= directive.
	Fallback    string
	HasFallback bool

	fallbackValue    reflect.Value
	hasFallbackValue bool
}

func (d *Directives) gated() bool {
	return d != nil && d.When != ""
}

// parseTag parses a directive list such as
// "order=2,readonly,when=nonzero(Flags),fallback=7". Commas inside
// parentheses or single quotes do not split directives.
func parseTag(tag string, path []string) (Directives, error) {
	var d Directives
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return d, nil
	}
	if tag == "-" {
		d.Skip = true
		return d, nil
	}

	tokens, err := splitDirectives(tag)
	if err != nil {
		return d, errors.InvalidDirective(path, "%s in tag %q", err.Error(), tag)
	}

	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		key, val, hasVal := strings.Cut(tok, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if seen[key] {
			return d, errors.InvalidDirective(path, "duplicate directive %q", key)
		}
		seen[key] = true

		switch key {
		case "-":
			d.Skip = true
		case "include":
			d.Include = true
		case "order":
			n, err := parseOrder(val)
			if err != nil {
				return d, errors.InvalidDirective(path, "order %q: %v", val, err)
			}
			d.Order, d.HasOrder = n, true
		case "readonly":
			d.ReadOnly = true
		case "func":
			if val == "" {
				return d, errors.InvalidDirective(path, "func requires a name")
			}
			d.Funcs = val
		case "method":
			d.Method = true
			if hasVal {
				enc, dec, ok := strings.Cut(val, "/")
				if !ok || enc == "" || dec == "" {
					return d, errors.InvalidDirective(path, "method=%q must be Encode/Decode", val)
				}
				d.EncodeMethod, d.DecodeMethod = enc, dec
			}
		case "conv":
			if val == "" {
				return d, errors.InvalidDirective(path, "conv requires a name")
			}
			d.Converter = val
		case "dynamic":
			if val == "" {
				return d, errors.InvalidDirective(path, "dynamic requires a resolver name")
			}
			d.Dynamic = val
		case "when":
			name, args, err := parseCall(val)
			if err != nil {
				return d, errors.InvalidDirective(path, "when=%q: %v", val, err)
			}
			d.When, d.WhenArgs = name, args
		case "fallback":
			if !hasVal {
				return d, errors.InvalidDirective(path, "fallback requires a value")
			}
			d.Fallback, d.HasFallback = unquote(val), true
		default:
			return d, errors.InvalidDirective(path, "unknown directive %q", key)
		}
	}

	if d.HasFallback && d.When == "" {
		return d, errors.InvalidDirective(path, "fallback without when")
	}
	return d, nil
}

type syntaxError string

func (e syntaxError) Error() string { return string(e) }

func splitDirectives(s string) ([]string, error) {
	var out []string
	depth := 0
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, syntaxError("unbalanced ')'")
			}
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if quoted {
		return nil, syntaxError("unterminated quote")
	}
	if depth != 0 {
		return nil, syntaxError("unbalanced '('")
	}
	out = append(out, strings.TrimSpace(s[start:]))
	for _, tok := range out {
		if tok == "" {
			return nil, syntaxError("empty directive")
		}
	}
	return out, nil
}

// parseCall splits "pred(A;B)" into its name and arguments. A bare name
// means no arguments.
func parseCall(s string) (string, []string, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if s == "" {
			return "", nil, syntaxError("missing predicate name")
		}
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, syntaxError("missing ')'")
	}
	name := strings.TrimSpace(s[:open])
	if name == "" {
		return "", nil, syntaxError("missing predicate name")
	}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner == "" {
		return name, nil, nil
	}
	parts := strings.Split(inner, ";")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return "", nil, syntaxError("empty predicate argument")
		}
	}
	return name, parts, nil
}

func parseOrder(s string) (int, error) {
	switch s {
	case "min", "first":
		return math.MinInt, nil
	case "max", "last":
		return math.MaxInt, nil
	}
	return strconv.Atoi(s)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// merge folds member options into tag directives. An order given by both
// with different values cannot form one total order.
func (d *Directives) merge(o *Directives, path []string) error {
	if o == nil {
		return nil
	}
	if o.HasOrder {
		if d.HasOrder && d.Order != o.Order {
			return errors.InvalidOrder(path, "order "+strconv.Itoa(d.Order)+
				" from tag conflicts with order "+strconv.Itoa(o.Order)+" from options")
		}
		d.Order, d.HasOrder = o.Order, true
	}
	if o.Skip {
		d.Skip = true
	}
	if o.Include {
		d.Include, d.Skip = true, false
	}
	if o.ReadOnly {
		d.ReadOnly = true
	}
	if o.Funcs != "" {
		d.Funcs = o.Funcs
	}
	if o.Method {
		d.Method = true
		if o.EncodeMethod != "" {
			d.EncodeMethod, d.DecodeMethod = o.EncodeMethod, o.DecodeMethod
		}
	}
	if o.Converter != "" {
		d.Converter = o.Converter
	}
	if o.Dynamic != "" {
		d.Dynamic = o.Dynamic
	}
	if o.When != "" {
		d.When, d.WhenArgs = o.When, o.WhenArgs
	}
	if o.HasFallback {
		d.Fallback, d.HasFallback = o.Fallback, true
	}
	if o.hasFallbackValue {
		d.fallbackValue, d.hasFallbackValue = o.fallbackValue, true
	}
	if (d.HasFallback || d.hasFallbackValue) && d.When == "" {
		return errors.InvalidDirective(path, "fallback without when")
	}
	return nil
}

// parseLiteral converts fallback text to a value of type t.
func parseLiteral(s string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(f)
	case reflect.String:
		v.SetString(s)
	case reflect.Pointer:
		if s == "nil" {
			return v, nil
		}
		inner, err := parseLiteral(s, t.Elem())
		if err != nil {
			return v, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		v.Set(p)
	default:
		return v, syntaxError("no literal form for " + t.String())
	}
	return v, nil
}
