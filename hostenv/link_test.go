package hostenv_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmrun/errors"
	"github.com/wippyai/wasmrun/hostenv"
	"github.com/wippyai/wasmrun/internal/wasmtest"
)

func TestInstantiate_Exports(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	env := hostenv.Default()
	linked, err := hostenv.Instantiate(ctx, r, env)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer linked.Close(ctx)

	mem := linked.Memory()
	if mem == nil {
		t.Fatal("env module exports no memory")
	}
	if mem.Size() != env.Memory.ByteLength() {
		t.Errorf("memory size = %d, want %d", mem.Size(), env.Memory.ByteLength())
	}
	if uint32(env.StackMax) != mem.Size() {
		t.Errorf("STACK_MAX = %d, want memory byte length %d", env.StackMax, mem.Size())
	}
	if maxPages, ok := mem.Definition().Max(); !ok || maxPages != env.Memory.MaxPages {
		t.Errorf("memory max = %d, %v; want %d", maxPages, ok, env.Memory.MaxPages)
	}
	if _, ok := mem.Grow(1); ok {
		t.Error("memory should not grow past its maximum")
	}

	for _, g := range env.Globals() {
		global := linked.Env.ExportedGlobal(g.Name)
		if global == nil {
			t.Errorf("global %q not exported", g.Name)
			continue
		}
		if global.Type() != api.ValueTypeI32 {
			t.Errorf("global %q type = %s", g.Name, api.ValueTypeName(global.Type()))
		}
		if got := api.DecodeI32(global.Get()); got != g.Value {
			t.Errorf("global %q = %d, want %d", g.Name, got, g.Value)
		}
	}

	if linked.Env.ExportedFunction(hostenv.ExportAbortStackOverflow) == nil {
		t.Error("abortStackOverflow not re-exported")
	}
}

func TestInstantiate_AbortStackOverflowTraps(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	linked, err := hostenv.Instantiate(ctx, r, hostenv.Default())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer linked.Close(ctx)

	fn := linked.Env.ExportedFunction(hostenv.ExportAbortStackOverflow)
	_, err = fn.Call(ctx, api.EncodeI32(64))
	if err == nil {
		t.Fatal("expected trap")
	}
	if !strings.Contains(err.Error(), "stack overflow") {
		t.Errorf("error %q should mention stack overflow", err)
	}
}

func TestInstantiate_GuestLinks(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	env := hostenv.Default()
	linked, err := hostenv.Instantiate(ctx, r, env)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer linked.Close(ctx)

	guest, err := r.InstantiateWithConfig(ctx, wasmtest.EnvModule(), wazero.NewModuleConfig().WithName(""))
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer guest.Close(ctx)

	results, err := guest.ExportedFunction("stackMax").Call(ctx)
	if err != nil {
		t.Fatalf("stackMax: %v", err)
	}
	if got := api.DecodeI32(results[0]); got != env.StackMax {
		t.Errorf("guest sees STACK_MAX = %d, want %d", got, env.StackMax)
	}

	results, err = guest.ExportedFunction("pages").Call(ctx)
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if got := api.DecodeU32(results[0]); got != env.Memory.InitialPages {
		t.Errorf("guest sees %d pages, want %d", got, env.Memory.InitialPages)
	}
}

func TestParseImports(t *testing.T) {
	imports, err := hostenv.ParseImports(wasmtest.EnvModule())
	if err != nil {
		t.Fatalf("ParseImports: %v", err)
	}
	want := wasmtest.EnvImports()
	if len(imports) != len(want) {
		t.Fatalf("got %d imports, want %d", len(imports), len(want))
	}
	for i, imp := range imports {
		if imp.Module != want[i].Module || imp.Name != want[i].Name || imp.Kind != want[i].Kind {
			t.Errorf("import %d = %s, want %s.%s", i, imp, want[i].Module, want[i].Name)
		}
	}

	mem := imports[1]
	if mem.Min != 256 || !mem.HasMax || mem.Max != 256 {
		t.Errorf("memory limits = %d..%d (%v)", mem.Min, mem.Max, mem.HasMax)
	}
}

func TestParseImports_NoImportSection(t *testing.T) {
	imports, err := hostenv.ParseImports(wasmtest.AddModule())
	if err != nil {
		t.Fatalf("ParseImports: %v", err)
	}
	if len(imports) != 0 {
		t.Errorf("got %d imports, want none", len(imports))
	}
}

func TestParseImports_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"empty":          nil,
		"not wasm":       []byte("hello world!"),
		"truncated":      {0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x02, 0x10, 0x01},
		"bad name len":   {0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x02, 0x03, 0x01, 0x7f, 0x00},
		"component text": {0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := hostenv.ParseImports(in)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.PhaseOf(err) != errors.PhaseInstantiate {
				t.Errorf("phase = %q, want instantiate: %v", errors.PhaseOf(err), err)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	env := hostenv.Default()

	t.Run("env module satisfied", func(t *testing.T) {
		imports, err := hostenv.ParseImports(wasmtest.EnvModule())
		if err != nil {
			t.Fatal(err)
		}
		if err := env.Check(imports); err != nil {
			t.Errorf("Check: %v", err)
		}
	})

	t.Run("missing imports reported together", func(t *testing.T) {
		imports, err := hostenv.ParseImports(wasmtest.MissingImportsModule())
		if err != nil {
			t.Fatal(err)
		}
		err = env.Check(imports)
		var missing *errors.MissingImportsError
		if !stderrors.As(err, &missing) {
			t.Fatalf("Check() = %v, want MissingImportsError", err)
		}
		if len(missing.Imports) != 3 {
			t.Fatalf("got %d missing imports, want 3: %v", len(missing.Imports), err)
		}
		if missing.Imports[2].Reason != "supplied immutable" {
			t.Errorf("reason = %q", missing.Imports[2].Reason)
		}
	})

	t.Run("limits", func(t *testing.T) {
		tests := []struct {
			name string
			imp  hostenv.Import
			ok   bool
		}{
			{"memory fits", hostenv.Import{Module: "env", Name: "memory", Kind: hostenv.ExternMemory, Min: 1}, true},
			{"memory too large", hostenv.Import{Module: "env", Name: "memory", Kind: hostenv.ExternMemory, Min: 512}, false},
			{"memory max too small", hostenv.Import{Module: "env", Name: "memory", Kind: hostenv.ExternMemory, Min: 1, Max: 2, HasMax: true}, false},
			{"table fits", hostenv.Import{Module: "env", Name: "table", Kind: hostenv.ExternTable}, true},
			{"table too large", hostenv.Import{Module: "env", Name: "table", Kind: hostenv.ExternTable, Min: 10}, false},
			{"kind mismatch", hostenv.Import{Module: "env", Name: "memory", Kind: hostenv.ExternGlobal, ValType: api.ValueTypeI32}, false},
			{"global i64", hostenv.Import{Module: "env", Name: "STACKTOP", Kind: hostenv.ExternGlobal, ValType: api.ValueTypeI64}, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := env.Check([]hostenv.Import{tt.imp})
				if (err == nil) != tt.ok {
					t.Errorf("Check(%s) = %v, want ok=%v", tt.imp, err, tt.ok)
				}
			})
		}
	})
}
