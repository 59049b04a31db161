package hostenv

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmrun/errors"
)

// ExternKind is the import/export descriptor kind as encoded in the binary.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0x00
	ExternTable  ExternKind = 0x01
	ExternMemory ExternKind = 0x02
	ExternGlobal ExternKind = 0x03
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	default:
		return fmt.Sprintf("extern(0x%02x)", byte(k))
	}
}

// Import is one entry of a module's import section.
type Import struct {
	Module    string
	Name      string
	Kind      ExternKind
	TypeIndex uint32        // func
	Min       uint32        // table, memory
	Max       uint32        // table, memory
	HasMax    bool          // table, memory
	ValType   api.ValueType // global
	Mutable   bool          // global
}

func (i Import) String() string {
	switch i.Kind {
	case ExternTable, ExternMemory:
		if i.HasMax {
			return fmt.Sprintf("%s.%s (%s %d..%d)", i.Module, i.Name, i.Kind, i.Min, i.Max)
		}
		return fmt.Sprintf("%s.%s (%s %d..)", i.Module, i.Name, i.Kind, i.Min)
	case ExternGlobal:
		mut := ""
		if i.Mutable {
			mut = "mut "
		}
		return fmt.Sprintf("%s.%s (global %s%s)", i.Module, i.Name, mut, api.ValueTypeName(i.ValType))
	default:
		return fmt.Sprintf("%s.%s (%s)", i.Module, i.Name, i.Kind)
	}
}

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// ParseImports extracts the import section from raw WASM bytes.
func ParseImports(wasmBytes []byte) ([]Import, error) {
	if !bytes.HasPrefix(wasmBytes, wasmHeader) {
		return nil, errors.Malformed("not a core wasm module (bad magic or version)", nil)
	}

	pos := len(wasmHeader)
	for pos < len(wasmBytes) {
		sectionID := wasmBytes[pos]
		pos++
		sectionSize, n := DecodeULEB128(wasmBytes[pos:])
		if n == 0 {
			return nil, malformed("section size", pos)
		}
		pos += n
		sectionEnd := pos + int(sectionSize)
		if sectionEnd > len(wasmBytes) {
			return nil, malformed("section length", pos)
		}
		if sectionID == 0x02 {
			return parseImportSection(wasmBytes[pos:sectionEnd], pos)
		}
		pos = sectionEnd
	}
	return nil, nil
}

type reader struct {
	data []byte
	pos  int
	base int
	err  error
}

func (r *reader) u32(what string) uint32 {
	if r.err != nil {
		return 0
	}
	v, n := DecodeULEB128(r.data[r.pos:])
	if n == 0 {
		r.err = malformed(what, r.base+r.pos)
		return 0
	}
	r.pos += n
	return v
}

func (r *reader) u8(what string) byte {
	if r.err != nil {
		return 0
	}
	if r.pos >= len(r.data) {
		r.err = malformed(what, r.base+r.pos)
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) name(what string) string {
	l := r.u32(what)
	if r.err != nil {
		return ""
	}
	if r.pos+int(l) > len(r.data) {
		r.err = malformed(what, r.base+r.pos)
		return ""
	}
	s := string(r.data[r.pos : r.pos+int(l)])
	r.pos += int(l)
	return s
}

func (r *reader) limits(imp *Import) {
	flags := r.u8("limits flags")
	imp.Min = r.u32("limits min")
	if flags&0x01 != 0 {
		imp.Max = r.u32("limits max")
		imp.HasMax = true
	}
}

func parseImportSection(section []byte, base int) ([]Import, error) {
	r := &reader{data: section, base: base}
	count := r.u32("import count")
	var imports []Import
	for i := uint32(0); i < count && r.err == nil; i++ {
		imp := Import{
			Module: r.name("import module"),
			Name:   r.name("import name"),
			Kind:   ExternKind(r.u8("import kind")),
		}
		switch imp.Kind {
		case ExternFunc:
			imp.TypeIndex = r.u32("func type index")
		case ExternTable:
			r.u8("table element type")
			r.limits(&imp)
		case ExternMemory:
			r.limits(&imp)
		case ExternGlobal:
			imp.ValType = r.u8("global type")
			imp.Mutable = r.u8("global mutability") == 0x01
		default:
			if r.err == nil {
				r.err = errors.New(errors.PhaseInstantiate, errors.KindUnsupported).
					Path(imp.Module, imp.Name).
					Detail("import kind 0x%02x", byte(imp.Kind)).
					Build()
			}
		}
		if r.err == nil {
			imports = append(imports, imp)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return imports, nil
}

func malformed(what string, offset int) error {
	return errors.Malformed(fmt.Sprintf("malformed %s at offset %d", what, offset), nil)
}

// Check verifies that every import can be satisfied by e. All unsatisfied
// imports are reported together in a *errors.MissingImportsError.
func (e Environment) Check(imports []Import) error {
	var missing []errors.MissingImport
	for _, imp := range imports {
		reason, ok := e.satisfies(imp)
		if ok {
			continue
		}
		missing = append(missing, errors.MissingImport{
			Module: imp.Module,
			Name:   imp.Name,
			Kind:   imp.Kind.String(),
			Reason: reason,
		})
	}
	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	return nil
}

func (e Environment) satisfies(imp Import) (string, bool) {
	if imp.Module != ModuleName {
		return "", false
	}
	kind, ok := e.Provides(imp.Name)
	if !ok {
		return "", false
	}
	if kind != imp.Kind {
		return "supplied as " + kind.String(), false
	}
	switch imp.Kind {
	case ExternGlobal:
		if imp.ValType != api.ValueTypeI32 {
			return "supplied as i32", false
		}
		if imp.Mutable {
			return "supplied immutable", false
		}
	case ExternMemory:
		return checkLimits(imp, e.Memory.InitialPages, e.Memory.MaxPages, "pages")
	case ExternTable:
		return checkLimits(imp, e.Table.Initial, e.Table.Max, "elements")
	}
	return "", true
}

func checkLimits(imp Import, initial, limit uint32, unit string) (string, bool) {
	if imp.Min > initial {
		return fmt.Sprintf("requires %d %s, %d supplied", imp.Min, unit, initial), false
	}
	if imp.HasMax && imp.Max < limit {
		return fmt.Sprintf("allows at most %d %s, %d supplied", imp.Max, unit, limit), false
	}
	return "", true
}
