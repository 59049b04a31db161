package signature

import (
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasmrun/errors"
)

var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// Annotations maps export names to signatures declared in WIT text. They
// refine how core integers are read and printed; they never change the
// core types a module declares.
type Annotations map[string]Signature

// ParseWIT extracts function declarations of the form
//
//	[export] name: func(a: s32, b: u32) -> u64;
//
// Only scalar WIT types with a direct core representation are accepted.
func ParseWIT(text string) (Annotations, error) {
	out := make(Annotations)

	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		sig := Signature{Name: name}

		for i, p := range splitParams(strings.TrimSpace(match[2])) {
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = strings.TrimSpace(p[idx+1:])
			}
			t, err := parseWitType(typStr)
			if err != nil {
				return nil, withPath(err, name, argName("param", i))
			}
			sig.Params = append(sig.Params, t)
		}

		results := strings.TrimSpace(match[3])
		if strings.HasPrefix(results, "(") && strings.HasSuffix(results, ")") {
			results = strings.TrimSuffix(strings.TrimPrefix(results, "("), ")")
		}
		for i, r := range splitParams(results) {
			t, err := parseWitType(r)
			if err != nil {
				return nil, withPath(err, name, argName("result", i))
			}
			sig.Results = append(sig.Results, t)
		}

		out[name] = sig
	}

	if len(out) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}
	return out, nil
}

// Lookup finds the annotation for an export. WIT names are kebab-case, so
// "add-u32" also matches an export named "add_u32".
func (a Annotations) Lookup(export string) (Signature, bool) {
	if sig, ok := a[export]; ok {
		return sig, true
	}
	for name, sig := range a {
		if strings.ReplaceAll(name, "-", "_") == export {
			return sig, true
		}
	}
	return Signature{}, false
}

// Refine applies the annotation for sig, if any. The annotated types must
// lower to exactly the core types the export declares.
func (a Annotations) Refine(sig Signature) (Signature, error) {
	ann, ok := a.Lookup(sig.Name)
	if !ok {
		return sig, nil
	}
	params, err := refineList(sig.Name, "param", sig.Params, ann.Params)
	if err != nil {
		return Signature{}, err
	}
	results, err := refineList(sig.Name, "result", sig.Results, ann.Results)
	if err != nil {
		return Signature{}, err
	}
	return Signature{Name: sig.Name, Params: params, Results: results}, nil
}

func refineList(name, what string, declared, annotated []Type) ([]Type, error) {
	if len(declared) != len(annotated) {
		return nil, errors.New(errors.PhaseParse, errors.KindArity).
			Path(name).
			Detail("annotation has %d %s(s), export declares %d", len(annotated), what, len(declared)).
			Build()
	}
	out := make([]Type, len(declared))
	for i, d := range declared {
		if annotated[i].Core != d.Core {
			return nil, errors.TypeMismatch(errors.PhaseParse, []string{name, argName(what, i)}, annotated[i].Name, d.Name)
		}
		out[i] = annotated[i]
	}
	return out, nil
}

func parseWitType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	t, err := wit.ParseType(s)
	if err != nil {
		return Type{}, errors.ParseFailed("WIT type "+s, err)
	}

	switch t.(type) {
	case wit.Bool:
		return Type{Name: "bool", Core: I32.Core, Format: FormatBool, Bits: 32}, nil
	case wit.S8:
		return Type{Name: "s8", Core: I32.Core, Format: FormatSigned, Bits: 8}, nil
	case wit.U8:
		return Type{Name: "u8", Core: I32.Core, Format: FormatUnsigned, Bits: 8}, nil
	case wit.S16:
		return Type{Name: "s16", Core: I32.Core, Format: FormatSigned, Bits: 16}, nil
	case wit.U16:
		return Type{Name: "u16", Core: I32.Core, Format: FormatUnsigned, Bits: 16}, nil
	case wit.S32:
		return Type{Name: "s32", Core: I32.Core, Format: FormatSigned, Bits: 32}, nil
	case wit.U32:
		return Type{Name: "u32", Core: I32.Core, Format: FormatUnsigned, Bits: 32}, nil
	case wit.S64:
		return Type{Name: "s64", Core: I64.Core, Format: FormatSigned, Bits: 64}, nil
	case wit.U64:
		return Type{Name: "u64", Core: I64.Core, Format: FormatUnsigned, Bits: 64}, nil
	case wit.F32:
		return Type{Name: "f32", Core: F32.Core, Format: FormatFloat, Bits: 32}, nil
	case wit.F64:
		return Type{Name: "f64", Core: F64.Core, Format: FormatFloat, Bits: 64}, nil
	case wit.Char:
		return Type{Name: "char", Core: I32.Core, Format: FormatChar, Bits: 32}, nil
	default:
		return Type{}, errors.Unsupported(errors.PhaseParse, "WIT type "+s+" has no scalar core representation")
	}
}

func withPath(err error, path ...string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = path
	}
	return err
}

// splitParams splits a parameter list on top-level commas.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}
	return result
}
