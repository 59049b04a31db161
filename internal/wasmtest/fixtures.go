package wasmtest

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmrun/hostenv"
)

// Opcodes used by the fixtures.
const (
	OpUnreachable = 0x00
	OpDrop        = 0x1a
	OpMemorySize  = 0x3f
	OpI32Add      = 0x6a
	OpI32Sub      = 0x6b
	OpI64Add      = 0x7c
	OpF32Add      = 0x92
	OpF64Mul      = 0xa2
)

// Ops concatenates instruction fragments.
func Ops(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func Op(op byte) []byte { return []byte{op} }

func LocalGet(i uint32) []byte { return append([]byte{0x20}, hostenv.EncodeULEB128(i)...) }

func GlobalGet(i uint32) []byte { return append([]byte{0x23}, hostenv.EncodeULEB128(i)...) }

func Call(i uint32) []byte { return append([]byte{0x10}, hostenv.EncodeULEB128(i)...) }

func I32Const(v int32) []byte { return append([]byte{0x41}, hostenv.EncodeSLEB128(v)...) }

func I64Const(v int64) []byte { return append([]byte{0x42}, hostenv.EncodeSLEB128(v)...) }

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f32 = api.ValueTypeF32
	f64 = api.ValueTypeF64
)

func binary(name string, t api.ValueType, op byte) Func {
	return Func{
		Name:    name,
		Params:  []api.ValueType{t, t},
		Results: []api.ValueType{t},
		Body:    Ops(LocalGet(0), LocalGet(1), Op(op)),
	}
}

// AddModule exports add(i32, i32) -> i32.
func AddModule() []byte {
	return Module{Funcs: []Func{binary("add", i32, OpI32Add)}}.Build()
}

// ArithModule exports a spread of numeric signatures plus a trapping and a
// void function.
func ArithModule() []byte {
	return Module{Funcs: []Func{
		binary("add", i32, OpI32Add),
		binary("sub", i32, OpI32Sub),
		binary("add_i64", i64, OpI64Add),
		binary("add_f32", f32, OpF32Add),
		binary("mul_f64", f64, OpF64Mul),
		{Name: "trap", Body: Op(OpUnreachable)},
		{Name: "noop"},
		{
			Name:    "pair",
			Results: []api.ValueType{i32, i64},
			Body:    Ops(I32Const(1), I64Const(-2)),
		},
		{
			Name:    "identity",
			Params:  []api.ValueType{i32},
			Results: []api.ValueType{i32},
			Body:    LocalGet(0),
		},
	}}.Build()
}

// Global import indices in EnvModule.
const (
	EnvGlobalTableBase = iota
	EnvGlobalMemoryBase
	EnvGlobalStackTop
	EnvGlobalStackMax
)

// EnvImports are the imports an emscripten-style guest makes against the
// default host environment.
func EnvImports() []Import {
	global := func(name string) Import {
		return Import{Module: hostenv.ModuleName, Name: name, Kind: hostenv.ExternGlobal, ValType: i32}
	}
	return []Import{
		{
			Module: hostenv.ModuleName, Name: hostenv.ExportAbortStackOverflow, Kind: hostenv.ExternFunc,
			Params: []api.ValueType{i32},
		},
		{
			Module: hostenv.ModuleName, Name: hostenv.ExportMemory, Kind: hostenv.ExternMemory,
			Min: hostenv.DefaultMemoryPages, Max: hostenv.DefaultMemoryPages, HasMax: true,
		},
		{
			Module: hostenv.ModuleName, Name: hostenv.ExportTable, Kind: hostenv.ExternTable,
			Min: 0, Max: 0, HasMax: true,
		},
		global(hostenv.ExportTableBase),
		global(hostenv.ExportMemoryBase),
		global(hostenv.ExportStackTop),
		global(hostenv.ExportStackMax),
	}
}

// EnvModule imports every environment export and exposes them to the host:
// _subject(a, b) adds, stackMax/memoryBase read globals, pages reads
// memory.size and overflow calls abortStackOverflow.
func EnvModule() []byte {
	return Module{
		Imports: EnvImports(),
		Funcs: []Func{
			binary("_subject", i32, OpI32Add),
			{Name: "stackMax", Results: []api.ValueType{i32}, Body: GlobalGet(EnvGlobalStackMax)},
			{Name: "memoryBase", Results: []api.ValueType{i32}, Body: GlobalGet(EnvGlobalMemoryBase)},
			{Name: "pages", Results: []api.ValueType{i32}, Body: Ops(Op(OpMemorySize), []byte{0x00})},
			{Name: "overflow", Body: Ops(I32Const(1024), Call(0))},
		},
	}.Build()
}

// MissingImportsModule imports names the default environment does not supply.
func MissingImportsModule() []byte {
	return Module{
		Imports: []Import{
			{Module: hostenv.ModuleName, Name: "abort", Kind: hostenv.ExternFunc},
			{Module: "wasi_snapshot_preview1", Name: "proc_exit", Kind: hostenv.ExternFunc, Params: []api.ValueType{i32}},
			{Module: hostenv.ModuleName, Name: hostenv.ExportStackTop, Kind: hostenv.ExternGlobal, ValType: i32, Mutable: true},
		},
		Funcs: []Func{binary("add", i32, OpI32Add)},
	}.Build()
}

// StartTrapModule traps in its start function.
func StartTrapModule() []byte {
	return Module{
		Funcs: []Func{{Name: "init", Body: Op(OpUnreachable)}, binary("add", i32, OpI32Add)},
		Start: "init",
	}.Build()
}

// EntryModule exports a _start that traps, which must not run implicitly.
func EntryModule() []byte {
	return Module{
		Funcs: []Func{{Name: "_start", Body: Op(OpUnreachable)}, binary("add", i32, OpI32Add)},
	}.Build()
}
