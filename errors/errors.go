package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in an invocation the error occurred
type Phase string

const (
	PhaseUsage       Phase = "usage"       // command-line validation
	PhaseConfig      Phase = "config"      // configuration loading
	PhaseLoad        Phase = "load"        // module bytes resolution and reading
	PhaseLinking     Phase = "linking"     // import resolution against the host environment
	PhaseInstantiate Phase = "instantiate" // module decoding, validation and instantiation
	PhaseConvert     Phase = "convert"     // argument conversion
	PhaseInvoke      Phase = "invoke"      // export resolution and execution
	PhaseParse       Phase = "parse"       // WIT signature parsing
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidData   Kind = "invalid_data"
	KindNotFound      Kind = "not_found"
	KindMissingImport Kind = "missing_import"
	KindInstantiation Kind = "instantiation"
	KindTypeMismatch  Kind = "type_mismatch"
	KindConversion    Kind = "conversion"
	KindArity         Kind = "arity"
	KindOverflow      Kind = "overflow"
	KindUnsupported   Kind = "unsupported"
	KindTrap          Kind = "trap"
)

// Error is the structured error type used throughout wasmrun
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	ValType string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.ValType != "" {
		b.WriteString(": type ")
		b.WriteString(e.ValType)
	}

	if e.Detail != "" {
		if e.ValType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Path sets the location path, e.g. export name and argument
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// ValType sets the value type name
func (b *Builder) ValType(t string) *Builder {
	b.err.ValType = t
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

// Usage creates a command-line usage error
func Usage(detail string) *Error {
	return &Error{
		Phase:  PhaseUsage,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Value:  name,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Malformed creates an error for a module binary that cannot be decoded or
// validated. It belongs to instantiation: the bytes were read but do not
// form a module.
func Malformed(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Conversion creates an argument conversion error
func Conversion(path []string, valType string, token string, cause error) *Error {
	return &Error{
		Phase:   PhaseConvert,
		Kind:    KindConversion,
		Path:    path,
		ValType: valType,
		Detail:  fmt.Sprintf("cannot convert %q", token),
		Value:   token,
		Cause:   cause,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, valType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOverflow,
		Path:    path,
		ValType: valType,
		Detail:  fmt.Sprintf("value %v overflows %s", value, valType),
		Value:   value,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, want, got string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		Path:    path,
		ValType: want,
		Detail:  fmt.Sprintf("declared as %s", got),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Trap creates a runtime trap error raised while executing an export
func Trap(export string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindTrap,
		Path:   []string{export},
		Detail: "export trapped",
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module string // e.g., "env"
	Name   string // e.g., "abort"
	Kind   string // func, table, memory or global
	Reason string // empty when the name is unknown
}

// MissingImportsError is returned when the guest imports something the host
// environment does not supply
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of unresolved imports
func NewMissingImportsError(imports []MissingImport) *MissingImportsError {
	return &MissingImportsError{Imports: imports}
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[linking] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d host import(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byModule := make(map[string][]MissingImport)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, imp := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(imp.Name)
			if imp.Kind != "" {
				b.WriteString(" (")
				b.WriteString(imp.Kind)
				b.WriteByte(')')
			}
			if imp.Reason != "" {
				b.WriteString(": ")
				b.WriteString(imp.Reason)
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}

// PhaseOf returns the phase of the first structured error in err's chain.
// Unstructured errors report an empty phase.
func PhaseOf(err error) Phase {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Phase
		case *MissingImportsError:
			return PhaseLinking
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
