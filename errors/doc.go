// Package errors provides structured error types for wasmrun.
//
// Errors are categorized by Phase (where in the invocation the error
// occurred) and Kind (error category). The Error type carries the location
// path (export and argument), the value type involved and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
//		Path("add", "arg0").
//		ValType("u32").
//		Detail("declared as i64").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseInvoke, "export", name)
//	err := errors.Trap(name, cause)
//
// The CLI maps PhaseOf(err) to a process exit status. All errors implement
// the standard error interface and support errors.Is/As.
package errors
