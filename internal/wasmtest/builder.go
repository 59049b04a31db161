// Package wasmtest builds small core wasm modules for tests.
package wasmtest

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmrun/hostenv"
)

// Import declares a module import. Only the fields for Kind are used.
type Import struct {
	Module  string
	Name    string
	Kind    hostenv.ExternKind
	Params  []api.ValueType
	Results []api.ValueType
	Min     uint32
	Max     uint32
	HasMax  bool
	ValType api.ValueType
	Mutable bool
}

// Func is a locally defined function. Body excludes the trailing end opcode.
type Func struct {
	Name    string // export name, empty for unexported
	Params  []api.ValueType
	Results []api.ValueType
	Locals  []api.ValueType
	Body    []byte
}

// Module describes a module to encode.
type Module struct {
	Imports []Import
	Funcs   []Func
	Start   string // name of an exported func to run as the start function
}

// Build encodes m.
func (m Module) Build() []byte {
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types []byte
	var numTypes uint32
	addType := func(params, results []api.ValueType) uint32 {
		types = append(types, 0x60)
		types = append(types, valTypes(params)...)
		types = append(types, valTypes(results)...)
		numTypes++
		return numTypes - 1
	}

	var imports []byte
	var numImportedFuncs uint32
	for _, imp := range m.Imports {
		imports = append(imports, hostenv.EncodeName(imp.Module)...)
		imports = append(imports, hostenv.EncodeName(imp.Name)...)
		imports = append(imports, byte(imp.Kind))
		switch imp.Kind {
		case hostenv.ExternFunc:
			imports = append(imports, hostenv.EncodeULEB128(addType(imp.Params, imp.Results))...)
			numImportedFuncs++
		case hostenv.ExternTable:
			imports = append(imports, 0x70)
			imports = append(imports, limits(imp)...)
		case hostenv.ExternMemory:
			imports = append(imports, limits(imp)...)
		case hostenv.ExternGlobal:
			imports = append(imports, hostenv.ValTypeToWasm(imp.ValType))
			if imp.Mutable {
				imports = append(imports, 0x01)
			} else {
				imports = append(imports, 0x00)
			}
		}
	}

	var funcs, exports, code []byte
	var numExports uint32
	startIdx := -1
	for i, f := range m.Funcs {
		idx := numImportedFuncs + uint32(i)
		funcs = append(funcs, hostenv.EncodeULEB128(addType(f.Params, f.Results))...)
		if f.Name != "" {
			exports = append(exports, hostenv.EncodeName(f.Name)...)
			exports = append(exports, byte(hostenv.ExternFunc))
			exports = append(exports, hostenv.EncodeULEB128(idx)...)
			numExports++
			if f.Name == m.Start {
				startIdx = int(idx)
			}
		}
		body := hostenv.EncodeULEB128(uint32(len(f.Locals)))
		for _, l := range f.Locals {
			body = append(body, 0x01, hostenv.ValTypeToWasm(l))
		}
		body = append(body, f.Body...)
		body = append(body, 0x0b)
		code = append(code, hostenv.EncodeULEB128(uint32(len(body)))...)
		code = append(code, body...)
	}

	if numTypes > 0 {
		wasm = section(wasm, 0x01, numTypes, types)
	}
	if len(m.Imports) > 0 {
		wasm = section(wasm, 0x02, uint32(len(m.Imports)), imports)
	}
	if len(m.Funcs) > 0 {
		wasm = section(wasm, 0x03, uint32(len(m.Funcs)), funcs)
	}
	if numExports > 0 {
		wasm = section(wasm, 0x07, numExports, exports)
	}
	if startIdx >= 0 {
		start := hostenv.EncodeULEB128(uint32(startIdx))
		wasm = append(wasm, 0x08)
		wasm = append(wasm, hostenv.EncodeULEB128(uint32(len(start)))...)
		wasm = append(wasm, start...)
	}
	if len(m.Funcs) > 0 {
		wasm = section(wasm, 0x0a, uint32(len(m.Funcs)), code)
	}
	return wasm
}

func section(wasm []byte, id byte, count uint32, content []byte) []byte {
	body := append(hostenv.EncodeULEB128(count), content...)
	wasm = append(wasm, id)
	wasm = append(wasm, hostenv.EncodeULEB128(uint32(len(body)))...)
	return append(wasm, body...)
}

func valTypes(ts []api.ValueType) []byte {
	out := hostenv.EncodeULEB128(uint32(len(ts)))
	for _, t := range ts {
		out = append(out, hostenv.ValTypeToWasm(t))
	}
	return out
}

func limits(imp Import) []byte {
	if imp.HasMax {
		out := []byte{0x01}
		out = append(out, hostenv.EncodeULEB128(imp.Min)...)
		return append(out, hostenv.EncodeULEB128(imp.Max)...)
	}
	return append([]byte{0x00}, hostenv.EncodeULEB128(imp.Min)...)
}
