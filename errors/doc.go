// Package errors provides structured error types for the bincodec library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: member path, Go type name, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseClassify, errors.KindUnsupportedType).
//		Path("Order", "Lines").
//		GoType("chan int").
//		Detail("no strategy matches").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedType(path, "chan int")
//	err := errors.StreamCorruption(errors.PhaseDecode, path, "negative count %d", n)
//
// Generation-time diagnostics for several members are aggregated with
// go.uber.org/multierr; errors.Is matches through the aggregate:
//
//	if errors.Is(err, errors.ErrUnsupportedType) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
