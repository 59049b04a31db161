package signature

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasmrun/errors"
	"github.com/wippyai/wasmrun/internal/wasmtest"
)

const arithWIT = `
package local:arith;

world arith {
	export add: func(a: u32, b: u32) -> u32;
	export add-i64: func(a: u64, b: u64) -> s64;
	export pair: func() -> (s32, u64);
	export noop: func();
}
`

func TestParseWIT(t *testing.T) {
	ann, err := ParseWIT(arithWIT)
	if err != nil {
		t.Fatalf("ParseWIT: %v", err)
	}
	if len(ann) != 4 {
		t.Fatalf("got %d annotations, want 4", len(ann))
	}

	tests := []struct {
		name string
		want string
	}{
		{"add", "add(u32, u32) -> u32"},
		{"add-i64", "add-i64(u64, u64) -> s64"},
		{"pair", "pair() -> (s32, u64)"},
		{"noop", "noop()"},
	}
	for _, tt := range tests {
		sig, ok := ann[tt.name]
		if !ok {
			t.Errorf("missing annotation %q", tt.name)
			continue
		}
		if got := sig.String(); got != tt.want {
			t.Errorf("annotation %q = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestParseWIT_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind errors.Kind
	}{
		{"no functions", "package local:empty;", errors.KindInvalidInput},
		{"string param", "greet: func(name: string) -> u32;", errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWIT(tt.text)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("ParseWIT() = %v, want *errors.Error", err)
			}
			if e.Phase != errors.PhaseParse || e.Kind != tt.kind {
				t.Errorf("got %s/%s, want parse/%s: %v", e.Phase, e.Kind, tt.kind, err)
			}
		})
	}
}

func TestAnnotations_Lookup(t *testing.T) {
	ann, err := ParseWIT(arithWIT)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ann.Lookup("add_i64"); !ok {
		t.Error("kebab-case annotation should match snake_case export")
	}
	if _, ok := ann.Lookup("sub"); ok {
		t.Error("unexpected annotation for sub")
	}
}

func TestAnnotations_Refine(t *testing.T) {
	ann, err := ParseWIT(arithWIT)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("refines integers", func(t *testing.T) {
		sig, err := ann.Refine(Signature{Name: "add", Params: []Type{I32, I32}, Results: []Type{I32}})
		if err != nil {
			t.Fatalf("Refine: %v", err)
		}
		params, err := sig.Encode([]string{"4294967295", "1"})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if params[0] != 0xffffffff {
			t.Errorf("param = %#x", params[0])
		}
		if got := sig.Decode([]uint64{0xffffffff})[0]; got != "4294967295" {
			t.Errorf("Decode = %s, want unsigned rendering", got)
		}
	})

	t.Run("no annotation passes through", func(t *testing.T) {
		in := Signature{Name: "sub", Params: []Type{I32}, Results: []Type{I32}}
		sig, err := ann.Refine(in)
		if err != nil {
			t.Fatalf("Refine: %v", err)
		}
		if sig.String() != in.String() {
			t.Errorf("Refine changed %s to %s", in, sig)
		}
	})

	t.Run("core type mismatch", func(t *testing.T) {
		_, err := ann.Refine(Signature{Name: "add", Params: []Type{I64, I32}, Results: []Type{I32}})
		if !stderrors.Is(err, errors.New(errors.PhaseParse, errors.KindTypeMismatch).Build()) {
			t.Errorf("Refine() = %v, want type mismatch", err)
		}
	})

	t.Run("arity mismatch", func(t *testing.T) {
		_, err := ann.Refine(Signature{Name: "noop", Params: []Type{I32}})
		if !stderrors.Is(err, errors.New(errors.PhaseParse, errors.KindArity).Build()) {
			t.Errorf("Refine() = %v, want arity error", err)
		}
	})
}

func TestFromDefinition(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, wasmtest.ArithModule())
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}

	tests := []struct {
		export string
		want   string
	}{
		{"add", "add(i32, i32) -> i32"},
		{"add_i64", "add_i64(i64, i64) -> i64"},
		{"add_f32", "add_f32(f32, f32) -> f32"},
		{"mul_f64", "mul_f64(f64, f64) -> f64"},
		{"noop", "noop()"},
		{"pair", "pair() -> (i32, i64)"},
	}
	defs := compiled.ExportedFunctions()
	for _, tt := range tests {
		t.Run(tt.export, func(t *testing.T) {
			def, ok := defs[tt.export]
			if !ok {
				t.Fatalf("export %q missing", tt.export)
			}
			sig, err := FromDefinition(tt.export, def)
			if err != nil {
				t.Fatalf("FromDefinition: %v", err)
			}
			if got := sig.String(); got != tt.want {
				t.Errorf("signature = %s, want %s", got, tt.want)
			}
		})
	}
}
