package engine

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasmrun/errors"
	"github.com/wippyai/wasmrun/hostenv"
	"github.com/wippyai/wasmrun/signature"
)

// Engine owns a wazero runtime. Environment module names are fixed, so an
// engine links at most one Instance at a time.
type Engine struct {
	runtime wazero.Runtime
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB). The host environment
	// itself needs hostenv.DefaultMemoryPages.
	MemoryLimitPages uint32
}

// New creates a wazero-backed engine. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}, nil
}

// Close releases the runtime and every module it still holds.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Compile decodes and validates a core module.
func (e *Engine) Compile(ctx context.Context, wasmBytes []byte) (*Module, error) {
	imports, err := hostenv.ParseImports(wasmBytes)
	if err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Malformed("compile module", err)
	}

	Logger().Debug("module compiled",
		zap.Int("bytes", len(wasmBytes)),
		zap.Int("imports", len(imports)),
		zap.Int("exports", len(compiled.ExportedFunctions())))

	return &Module{engine: e, compiled: compiled, imports: imports}, nil
}

// Module is a compiled guest module.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	imports  []hostenv.Import
}

// Imports returns the module's declared imports in declaration order.
func (m *Module) Imports() []hostenv.Import {
	return m.imports
}

// Signature returns the declared signature of an exported function.
func (m *Module) Signature(name string) (signature.Signature, error) {
	def, ok := m.compiled.ExportedFunctions()[name]
	if !ok {
		return signature.Signature{}, errors.NotFound(errors.PhaseInvoke, "export", name)
	}
	return signature.FromDefinition(name, def)
}

// Exports returns the signatures of all exported functions sorted by name.
// Functions whose signatures use reference types are skipped.
func (m *Module) Exports() []signature.Signature {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	sigs := make([]signature.Signature, 0, len(names))
	for _, name := range names {
		sig, err := signature.FromDefinition(name, defs[name])
		if err != nil {
			Logger().Debug("skipping export", zap.String("export", name), zap.Error(err))
			continue
		}
		sigs = append(sigs, sig)
	}
	return sigs
}

// Instantiate links env and instantiates the module against it. Imports are
// checked up front so every unsatisfied one is reported together. Exported
// entry points such as _start are not run; a start section is.
func (m *Module) Instantiate(ctx context.Context, env hostenv.Environment) (*Instance, error) {
	if err := env.Check(m.imports); err != nil {
		return nil, err
	}

	linked, err := hostenv.Instantiate(ctx, m.engine.runtime, env)
	if err != nil {
		return nil, errors.Instantiation("link host environment", err)
	}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()
	guest, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		_ = linked.Close(ctx)
		return nil, errors.Instantiation("instantiate module", err)
	}

	Logger().Debug("module instantiated", zap.Uint32("memory_bytes", linked.Memory().Size()))

	return &Instance{linked: linked, guest: guest}, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
