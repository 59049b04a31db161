package hostenv

import (
	"github.com/tetratelabs/wazero/api"
)

// SynthModuleBuilder builds the core wasm module that stands in for the
// environment namespace. It defines memory, a table and globals locally and
// re-exports functions imported from a Go host module, because wazero host
// modules can only export functions.
type SynthModuleBuilder struct {
	hostModuleName   string
	memoryExportName string
	tableExportName  string
	funcs            []synthFunc
	globals          []synthGlobal
	memory           Memory
	table            Table
	hasMemory        bool
	hasTable         bool
}

type synthFunc struct {
	name        string
	paramTypes  []api.ValueType
	resultTypes []api.ValueType
}

type synthGlobal struct {
	exportName string
	valType    api.ValueType
	mutable    bool
	initValue  int64
}

// NewSynthModuleBuilder creates a new synthetic module builder. Functions
// added to it are imported from hostModuleName.
func NewSynthModuleBuilder(hostModuleName string) *SynthModuleBuilder {
	return &SynthModuleBuilder{
		hostModuleName: hostModuleName,
	}
}

// AddFunc adds a host function to import and re-export under the same name.
func (b *SynthModuleBuilder) AddFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, synthFunc{
		name:        name,
		paramTypes:  params,
		resultTypes: results,
	})
}

// SetMemory defines the module's memory and exports it.
func (b *SynthModuleBuilder) SetMemory(exportName string, mem Memory) {
	b.memory = mem
	b.memoryExportName = exportName
	b.hasMemory = true
}

// SetTable defines the module's funcref table and exports it.
func (b *SynthModuleBuilder) SetTable(exportName string, table Table) {
	b.table = table
	b.tableExportName = exportName
	b.hasTable = true
}

// AddGlobal adds a locally defined global with an initial value.
func (b *SynthModuleBuilder) AddGlobal(exportName string, valType api.ValueType, mutable bool, initValue int64) {
	b.globals = append(b.globals, synthGlobal{
		exportName: exportName,
		valType:    valType,
		mutable:    mutable,
		initValue:  initValue,
	})
}

// Build generates the WASM module bytes.
func (b *SynthModuleBuilder) Build() []byte {
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, 0x01, b.buildTypeSection())
		wasm = appendSection(wasm, 0x02, b.buildImportSection())
	}
	if b.hasTable {
		wasm = appendSection(wasm, 0x04, b.buildTableSection())
	}
	if b.hasMemory {
		wasm = appendSection(wasm, 0x05, b.buildMemorySection())
	}
	if len(b.globals) > 0 {
		wasm = appendSection(wasm, 0x06, b.buildGlobalSection())
	}
	wasm = appendSection(wasm, 0x07, b.buildExportSection())

	return wasm
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(section)))...)
	return append(wasm, section...)
}

func (b *SynthModuleBuilder) buildTypeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)

	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, EncodeULEB128(uint32(len(f.paramTypes)))...)
		for _, t := range f.paramTypes {
			section = append(section, ValTypeToWasm(t))
		}
		section = append(section, EncodeULEB128(uint32(len(f.resultTypes)))...)
		for _, t := range f.resultTypes {
			section = append(section, ValTypeToWasm(t))
		}
	}

	return section
}

func (b *SynthModuleBuilder) buildImportSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)

	for i, f := range b.funcs {
		section = append(section, EncodeName(b.hostModuleName)...)
		section = append(section, EncodeName(f.name)...)
		section = append(section, byte(ExternFunc))
		section = append(section, EncodeULEB128(uint32(i))...)
	}

	return section
}

func (b *SynthModuleBuilder) buildTableSection() []byte {
	var section []byte
	section = append(section, 0x01)
	section = append(section, 0x70)
	section = append(section, 0x01)
	section = append(section, EncodeULEB128(b.table.Initial)...)
	section = append(section, EncodeULEB128(b.table.Max)...)
	return section
}

func (b *SynthModuleBuilder) buildMemorySection() []byte {
	var section []byte
	section = append(section, 0x01)
	section = append(section, 0x01)
	section = append(section, EncodeULEB128(b.memory.InitialPages)...)
	section = append(section, EncodeULEB128(b.memory.MaxPages)...)
	return section
}

func (b *SynthModuleBuilder) buildGlobalSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.globals)))...)

	for _, g := range b.globals {
		section = append(section, ValTypeToWasm(g.valType))
		if g.mutable {
			section = append(section, 0x01)
		} else {
			section = append(section, 0x00)
		}
		switch g.valType {
		case api.ValueTypeI32:
			section = append(section, 0x41)
			section = append(section, EncodeSLEB128(int32(g.initValue))...)
		case api.ValueTypeI64:
			section = append(section, 0x42)
			section = append(section, EncodeSLEB128(g.initValue)...)
		case api.ValueTypeF32:
			section = append(section, 0x43, 0, 0, 0, 0)
		case api.ValueTypeF64:
			section = append(section, 0x44, 0, 0, 0, 0, 0, 0, 0, 0)
		default:
			section = append(section, 0x41, 0x00)
		}
		section = append(section, 0x0B)
	}

	return section
}

func (b *SynthModuleBuilder) buildExportSection() []byte {
	var section []byte

	numExports := len(b.funcs) + len(b.globals)
	if b.hasMemory {
		numExports++
	}
	if b.hasTable {
		numExports++
	}
	section = append(section, EncodeULEB128(uint32(numExports))...)

	if b.hasMemory {
		section = append(section, EncodeName(b.memoryExportName)...)
		section = append(section, byte(ExternMemory), 0x00)
	}

	if b.hasTable {
		section = append(section, EncodeName(b.tableExportName)...)
		section = append(section, byte(ExternTable), 0x00)
	}

	for i, g := range b.globals {
		section = append(section, EncodeName(g.exportName)...)
		section = append(section, byte(ExternGlobal))
		section = append(section, EncodeULEB128(uint32(i))...)
	}

	// Imported functions occupy the first function indices.
	for i, f := range b.funcs {
		section = append(section, EncodeName(f.name)...)
		section = append(section, byte(ExternFunc))
		section = append(section, EncodeULEB128(uint32(i))...)
	}

	return section
}

// BuildModule synthesizes the environment module for env.
func BuildModule(env Environment) []byte {
	b := NewSynthModuleBuilder(HostModuleName)
	b.SetMemory(ExportMemory, env.Memory)
	b.SetTable(ExportTable, env.Table)
	for _, g := range env.Globals() {
		b.AddGlobal(g.Name, api.ValueTypeI32, false, int64(g.Value))
	}
	for _, f := range env.Functions() {
		b.AddFunc(f.Name, f.Params, f.Results)
	}
	return b.Build()
}
