// Package errors provides structured error types for the wasm-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: a path into the import table, the offending
// value, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindInvalidUTF8).
//		Path("env", "console-log").
//		Detail("malformed byte at offset %d", off).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseCall, h, "slot freed")
//	err := errors.OutOfBounds(errors.PhaseDecode, ptr, length)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
