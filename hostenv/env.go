package hostenv

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// PageSize is the size of one WebAssembly linear memory page in bytes.
const PageSize = 65536

// MaxPages is the wasm32 limit on linear memory pages.
const MaxPages = 65536

const (
	// ModuleName is the import namespace guests resolve the environment from.
	ModuleName = "env"

	// HostModuleName is the Go host module backing the environment's functions.
	HostModuleName = "wasmrun"

	DefaultMemoryPages = 256
	DefaultMemoryBase  = 1024
	DefaultTableBase   = 0
	DefaultStackTop    = 0
)

// Export names of the environment module.
const (
	ExportMemory             = "memory"
	ExportTable              = "table"
	ExportTableBase          = "tableBase"
	ExportMemoryBase         = "memoryBase"
	ExportStackTop           = "STACKTOP"
	ExportStackMax           = "STACK_MAX"
	ExportAbortStackOverflow = "abortStackOverflow"
)

// Memory describes the linear memory region, in pages.
type Memory struct {
	InitialPages uint32
	MaxPages     uint32
}

// ByteLength returns the region's size in bytes at construction.
func (m Memory) ByteLength() uint32 {
	return m.InitialPages * PageSize
}

// Table describes the funcref indirect-call table.
type Table struct {
	Initial uint32
	Max     uint32
}

// Environment is the immutable host environment descriptor a guest module
// is instantiated against. Build one with Default or New and pass it by value.
type Environment struct {
	Memory     Memory
	Table      Table
	TableBase  int32
	MemoryBase int32
	StackTop   int32
	StackMax   int32
}

// Default returns the fixed environment: 256 pages of memory that cannot
// grow, an empty table, memory base 1024 and the stack bounded by the end
// of memory.
func Default() Environment {
	env, _ := New(Memory{InitialPages: DefaultMemoryPages, MaxPages: DefaultMemoryPages})
	return env
}

// New builds an environment around the given memory region. StackMax is
// derived from the region's byte length.
func New(mem Memory) (Environment, error) {
	if mem.MaxPages < mem.InitialPages {
		return Environment{}, fmt.Errorf("memory max %d pages below initial %d", mem.MaxPages, mem.InitialPages)
	}
	if mem.MaxPages > MaxPages {
		return Environment{}, fmt.Errorf("memory max %d pages exceeds %d", mem.MaxPages, MaxPages)
	}
	// StackMax is an i32 global; 32768 pages would overflow it.
	if mem.InitialPages >= 1<<15 {
		return Environment{}, fmt.Errorf("memory of %d pages exceeds i32 stack bound", mem.InitialPages)
	}
	return Environment{
		Memory:     mem,
		Table:      Table{},
		TableBase:  DefaultTableBase,
		MemoryBase: DefaultMemoryBase,
		StackTop:   DefaultStackTop,
		StackMax:   int32(mem.ByteLength()),
	}, nil
}

// Global is a named immutable i32 the environment exports.
type Global struct {
	Name  string
	Value int32
}

// Globals returns the numeric markers in export order.
func (e Environment) Globals() []Global {
	return []Global{
		{Name: ExportTableBase, Value: e.TableBase},
		{Name: ExportMemoryBase, Value: e.MemoryBase},
		{Name: ExportStackTop, Value: e.StackTop},
		{Name: ExportStackMax, Value: e.StackMax},
	}
}

// Function is a host function the environment re-exports.
type Function struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Fn      api.GoModuleFunc
}

// Functions returns the host functions backing the environment.
func (e Environment) Functions() []Function {
	return []Function{
		{
			Name:   ExportAbortStackOverflow,
			Params: []api.ValueType{api.ValueTypeI32},
			Fn:     abortStackOverflow,
		},
	}
}

// Provides reports the extern kind the environment supplies under name.
func (e Environment) Provides(name string) (ExternKind, bool) {
	switch name {
	case ExportMemory:
		return ExternMemory, true
	case ExportTable:
		return ExternTable, true
	}
	for _, g := range e.Globals() {
		if g.Name == name {
			return ExternGlobal, true
		}
	}
	for _, f := range e.Functions() {
		if f.Name == name {
			return ExternFunc, true
		}
	}
	return 0, false
}

// ErrStackOverflow is raised by abortStackOverflow.
var ErrStackOverflow = fmt.Errorf("stack overflow")

func abortStackOverflow(_ context.Context, _ api.Module, stack []uint64) {
	size := api.DecodeI32(stack[0])
	Logger().Debug("guest aborted on stack overflow")
	panic(fmt.Errorf("%w: allocation of %d bytes", ErrStackOverflow, size))
}
