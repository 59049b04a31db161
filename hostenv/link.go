package hostenv

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Linked holds the modules instantiated to supply an environment.
type Linked struct {
	Host api.Module
	Env  api.Module
}

// Memory returns the environment's linear memory.
func (l *Linked) Memory() api.Memory {
	return l.Env.ExportedMemory(ExportMemory)
}

// Close releases both modules.
func (l *Linked) Close(ctx context.Context) error {
	var firstErr error
	if l.Env != nil {
		if err := l.Env.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if l.Host != nil {
		if err := l.Host.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Instantiate links env into r: the Go host module first, then the
// synthesized environment module under ModuleName.
func Instantiate(ctx context.Context, r wazero.Runtime, env Environment) (*Linked, error) {
	hb := r.NewHostModuleBuilder(HostModuleName)
	for _, f := range env.Functions() {
		hb.NewFunctionBuilder().
			WithGoModuleFunction(f.Fn, f.Params, f.Results).
			Export(f.Name)
	}
	host, err := hb.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate host module: %w", err)
	}

	compiled, err := r.CompileModule(ctx, BuildModule(env))
	if err != nil {
		_ = host.Close(ctx)
		return nil, fmt.Errorf("compile %s module: %w", ModuleName, err)
	}
	defer compiled.Close(ctx)

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(ModuleName))
	if err != nil {
		_ = host.Close(ctx)
		return nil, fmt.Errorf("instantiate %s module: %w", ModuleName, err)
	}

	Logger().Debug("host environment linked",
		zap.Uint32("memory_pages", env.Memory.InitialPages),
		zap.Int32("stack_max", env.StackMax),
		zap.Int32("memory_base", env.MemoryBase))

	return &Linked{Host: host, Env: mod}, nil
}
