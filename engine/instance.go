package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	wasmrun "github.com/wippyai/wasmrun"
	"github.com/wippyai/wasmrun/errors"
	"github.com/wippyai/wasmrun/hostenv"
)

// Instance is a guest module linked against a host environment.
type Instance struct {
	linked *hostenv.Linked
	guest  api.Module
}

// Call invokes an exported function with already-encoded parameters. A
// missing export is reported as not found and any fault raised while the
// function runs is reported as a trap.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.guest.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseInvoke, "export", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Trap(name, err)
	}
	return results, nil
}

// Memory returns the environment's linear memory.
func (i *Instance) Memory() *Memory {
	return &Memory{mem: i.linked.Memory()}
}

// Close releases the guest and its environment.
func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if i.guest != nil {
		if err := i.guest.Close(ctx); err != nil {
			firstErr = err
		}
		i.guest = nil
	}
	if i.linked != nil {
		if err := i.linked.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		i.linked = nil
	}
	return firstErr
}

// Memory wraps wazero memory to implement wasmrun.Memory
type Memory struct {
	mem api.Memory
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds: offset=%d", offset)
	}
	return val, nil
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Pages returns the memory size in 64KiB pages.
func (m *Memory) Pages() uint32 {
	return m.Size() / hostenv.PageSize
}

var _ wasmrun.Memory = (*Memory)(nil)
var _ wasmrun.MemorySizer = (*Memory)(nil)
