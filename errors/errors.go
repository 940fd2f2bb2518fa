package errors

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseClassify  Phase = "classify"  // strategy resolution
	PhaseOrder     Phase = "order"     // member ordering and gates
	PhaseConstruct Phase = "construct" // constructor selection
	PhaseConfig    Phase = "config"    // registration and directives
	PhaseEncode    Phase = "encode"    // Go value to stream
	PhaseDecode    Phase = "decode"    // stream to Go value
	PhaseStream    Phase = "stream"    // reference reader/writer
	PhaseSchema    Phase = "schema"    // declarative schema compilation
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedType       Kind = "unsupported_type"
	KindNoMatchingConstructor Kind = "no_matching_constructor"
	KindAmbiguousDiscriminant Kind = "ambiguous_discriminator"
	KindInvalidOrder          Kind = "invalid_order"
	KindRuntimeType           Kind = "runtime_type_resolution"
	KindStreamCorruption      Kind = "stream_corruption"
	KindInvalidDirective      Kind = "invalid_directive"
	KindTypeMismatch          Kind = "type_mismatch"
	KindNilPointer            Kind = "nil_pointer"
	KindOptOut                Kind = "opt_out"
	KindHook                  Kind = "hook"
)

// Sentinels for errors.Is. They match any phase.
var (
	ErrUnsupportedType        = &Error{Kind: KindUnsupportedType}
	ErrNoMatchingConstructor  = &Error{Kind: KindNoMatchingConstructor}
	ErrAmbiguousDiscriminator = &Error{Kind: KindAmbiguousDiscriminant}
	ErrInvalidOrder           = &Error{Kind: KindInvalidOrder}
	ErrRuntimeTypeResolution  = &Error{Kind: KindRuntimeType}
	ErrStreamCorruption       = &Error{Kind: KindStreamCorruption}
	ErrInvalidDirective       = &Error{Kind: KindInvalidDirective}
	ErrTypeMismatch           = &Error{Kind: KindTypeMismatch}
	ErrOptOut                 = &Error{Kind: KindOptOut}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error formats as "[phase] kind at path: Go type T - detail (caused by: cause)",
// leaving out the parts that are empty.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Phase != "" {
		fmt.Fprintf(&b, "[%s] ", e.Phase)
	}
	b.WriteString(string(e.Kind))
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " at %s", strings.Join(e.Path, "."))
	}

	var parts []string
	if e.GoType != "" {
		parts = append(parts, "Go type "+e.GoType)
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if len(parts) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, " - "))
	}

	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// UnsupportedType reports that no resolver matched a member.
func UnsupportedType(path []string, goType string) *Error {
	return New(PhaseClassify, KindUnsupportedType).Path(path...).GoType(goType).
		Detail("no strategy matches this type").Build()
}

// NoMatchingConstructor reports that no registered constructor could be bound.
func NoMatchingConstructor(goType string, detail string) *Error {
	return New(PhaseConstruct, KindNoMatchingConstructor).GoType(goType).Detail("%s", detail).Build()
}

// AmbiguousDiscriminator reports a resolver that is not inverse-consistent.
func AmbiguousDiscriminator(path []string, detail string) *Error {
	return New(PhaseClassify, KindAmbiguousDiscriminant).Path(path...).Detail("%s", detail).Build()
}

// InvalidOrder reports an order configuration that cannot form a total order.
func InvalidOrder(path []string, detail string) *Error {
	return New(PhaseOrder, KindInvalidOrder).Path(path...).Detail("%s", detail).Build()
}

// RuntimeType reports a dynamic member whose type or discriminator has no mapping.
func RuntimeType(phase Phase, path []string, value any, detail string) *Error {
	return New(phase, KindRuntimeType).Path(path...).Value(value).Detail("%s", detail).Build()
}

// StreamCorruption reports an implausible length, count or value in the stream.
func StreamCorruption(phase Phase, path []string, format string, args ...any) *Error {
	return New(phase, KindStreamCorruption).Path(path...).Detail(format, args...).Build()
}

// InvalidDirective reports a malformed or unresolvable directive.
func InvalidDirective(path []string, format string, args ...any) *Error {
	return New(PhaseConfig, KindInvalidDirective).Path(path...).Detail(format, args...).Build()
}

func TypeMismatch(phase Phase, path []string, goType, expected string) *Error {
	return New(phase, KindTypeMismatch).Path(path...).GoType(goType).Detail("expected %s", expected).Build()
}

func NilPointer(phase Phase, path []string, goType string) *Error {
	return New(phase, KindNilPointer).Path(path...).GoType(goType).Detail("nil pointer").Build()
}

// OptOut reports use of a direction the type opted out of.
func OptOut(phase Phase, goType string) *Error {
	return New(phase, KindOptOut).GoType(goType).Detail("type opted out of %s", phase).Build()
}

// Hook wraps an error returned by user code (custom methods, converters,
// constructors) with the member it was running for.
func Hook(phase Phase, path []string, cause error) *Error {
	return New(phase, KindHook).Path(path...).Cause(cause).Build()
}

// Append aggregates diagnostics. A nil err leaves errs unchanged.
func Append(errs error, err error) error {
	return multierr.Append(errs, err)
}

// List flattens an aggregate created by Append.
func List(err error) []error {
	return multierr.Errors(err)
}
