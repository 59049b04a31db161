package signature

import (
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmrun/errors"
)

// Format is how a value is read from and rendered to text.
type Format uint8

const (
	FormatSigned Format = iota
	FormatUnsigned
	FormatFloat
	FormatBool
	FormatChar
)

// Type pairs a core value type with its text interpretation.
type Type struct {
	Name   string
	Core   api.ValueType
	Format Format
	Bits   int
}

func (t Type) String() string {
	return t.Name
}

// untyped reports whether t is a bare core type with no annotation. Bare
// integers accept both the signed and unsigned range of their width.
func (t Type) untyped() bool {
	return t.Name == api.ValueTypeName(t.Core)
}

// Core value types as declared by a module without annotations.
var (
	I32 = Type{Name: "i32", Core: api.ValueTypeI32, Format: FormatSigned, Bits: 32}
	I64 = Type{Name: "i64", Core: api.ValueTypeI64, Format: FormatSigned, Bits: 64}
	F32 = Type{Name: "f32", Core: api.ValueTypeF32, Format: FormatFloat, Bits: 32}
	F64 = Type{Name: "f64", Core: api.ValueTypeF64, Format: FormatFloat, Bits: 64}
)

// CoreType returns the bare Type for a core value type.
func CoreType(vt api.ValueType) (Type, bool) {
	switch vt {
	case api.ValueTypeI32:
		return I32, true
	case api.ValueTypeI64:
		return I64, true
	case api.ValueTypeF32:
		return F32, true
	case api.ValueTypeF64:
		return F64, true
	default:
		return Type{}, false
	}
}

// Signature describes an exported function.
type Signature struct {
	Name    string
	Params  []Type
	Results []Type
}

// String renders the signature as name(params) -> results.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
	}
	b.WriteByte(')')

	switch len(s.Results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(s.Results[0].Name)
	default:
		b.WriteString(" -> (")
		for i, r := range s.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.Name)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// FromDefinition builds a signature from an exported function's declared
// core types. Reference-typed parameters or results cannot be expressed on
// a command line and are rejected.
func FromDefinition(name string, def api.FunctionDefinition) (Signature, error) {
	sig := Signature{Name: name}
	for i, vt := range def.ParamTypes() {
		t, ok := CoreType(vt)
		if !ok {
			return Signature{}, unsupportedCore(name, "param", i, vt)
		}
		sig.Params = append(sig.Params, t)
	}
	for i, vt := range def.ResultTypes() {
		t, ok := CoreType(vt)
		if !ok {
			return Signature{}, unsupportedCore(name, "result", i, vt)
		}
		sig.Results = append(sig.Results, t)
	}
	return sig, nil
}

func unsupportedCore(name, what string, i int, vt api.ValueType) error {
	return errors.New(errors.PhaseConvert, errors.KindUnsupported).
		Path(name, argName(what, i)).
		ValType(api.ValueTypeName(vt)).
		Detail("reference types cannot be passed from the command line").
		Build()
}
