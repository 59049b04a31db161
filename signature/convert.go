package signature

import (
	stderrors "errors"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmrun/errors"
)

// Encode converts command-line tokens into call parameters. Every token is
// parsed with range checking against its parameter type; nothing is passed
// through unconverted.
func (s Signature) Encode(tokens []string) ([]uint64, error) {
	if len(tokens) != len(s.Params) {
		return nil, errors.New(errors.PhaseConvert, errors.KindArity).
			Path(s.Name).
			Value(len(tokens)).
			Detail("%s expects %d argument(s), got %d", s, len(s.Params), len(tokens)).
			Build()
	}

	params := make([]uint64, len(tokens))
	for i, tok := range tokens {
		v, err := ParseToken(tok, s.Params[i])
		if err != nil {
			path := []string{s.Name, argName("arg", i)}
			if stderrors.Is(err, strconv.ErrRange) {
				return nil, errors.Overflow(errors.PhaseConvert, path, tok, s.Params[i].Name)
			}
			return nil, errors.Conversion(path, s.Params[i].Name, tok, err)
		}
		params[i] = v
	}
	return params, nil
}

// Decode renders raw call results as text, one entry per result.
func (s Signature) Decode(values []uint64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		t := I64
		if i < len(s.Results) {
			t = s.Results[i]
		}
		out[i] = FormatValue(v, t)
	}
	return out
}

// ParseToken converts one token to the raw stack encoding of t. Integers
// accept base prefixes (0x, 0o, 0b) and underscores as strconv does.
func ParseToken(tok string, t Type) (uint64, error) {
	switch t.Format {
	case FormatSigned:
		return parseSigned(tok, t)
	case FormatUnsigned:
		v, err := strconv.ParseUint(tok, 0, t.Bits)
		if err != nil {
			return 0, err
		}
		return v, nil
	case FormatFloat:
		f, err := strconv.ParseFloat(tok, t.Bits)
		if err != nil {
			return 0, err
		}
		if t.Core == api.ValueTypeF32 {
			return api.EncodeF32(float32(f)), nil
		}
		return api.EncodeF64(f), nil
	case FormatBool:
		b, err := strconv.ParseBool(tok)
		if err != nil {
			return 0, err
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case FormatChar:
		r, size := utf8.DecodeRuneInString(tok)
		if r == utf8.RuneError || size != len(tok) {
			return 0, &strconv.NumError{Func: "ParseChar", Num: tok, Err: strconv.ErrSyntax}
		}
		return uint64(r), nil
	default:
		return 0, &strconv.NumError{Func: "Parse", Num: tok, Err: strconv.ErrSyntax}
	}
}

func parseSigned(tok string, t Type) (uint64, error) {
	v, err := strconv.ParseInt(tok, 0, t.Bits)
	if err == nil {
		if t.Core == api.ValueTypeI32 {
			return api.EncodeI32(int32(v)), nil
		}
		return api.EncodeI64(v), nil
	}
	// Bare core integers also take the unsigned range of their width.
	if !t.untyped() || !stderrors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	u, uerr := strconv.ParseUint(tok, 0, t.Bits)
	if uerr != nil {
		return 0, err
	}
	return u, nil
}

// FormatValue renders a raw result according to t.
func FormatValue(v uint64, t Type) string {
	switch t.Format {
	case FormatUnsigned:
		return strconv.FormatUint(v&widthMask(t), 10)
	case FormatFloat:
		if t.Core == api.ValueTypeF32 {
			return formatFloat(float64(api.DecodeF32(v)), 32)
		}
		return formatFloat(api.DecodeF64(v), 64)
	case FormatBool:
		return strconv.FormatBool(uint32(v) != 0)
	case FormatChar:
		r := rune(uint32(v))
		if !utf8.ValidRune(r) {
			return strconv.FormatUint(uint64(uint32(v)), 10)
		}
		return string(r)
	default:
		shift := 64 - width(t)
		return strconv.FormatInt(int64(v<<shift)>>shift, 10)
	}
}

// width is the number of significant bits of an integer result: the
// annotated width, capped by the core type.
func width(t Type) uint {
	core := 64
	if t.Core == api.ValueTypeI32 {
		core = 32
	}
	if t.Bits > 0 && t.Bits < core {
		return uint(t.Bits)
	}
	return uint(core)
}

func widthMask(t Type) uint64 {
	w := width(t)
	if w == 64 {
		return math.MaxUint64
	}
	return 1<<w - 1
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func argName(prefix string, i int) string {
	return prefix + strconv.Itoa(i)
}
