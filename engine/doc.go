// Package engine wraps wazero for single-shot invocation of a core module.
//
//	Engine    - owns a wazero runtime
//	Module    - a compiled guest with its imports and export signatures
//	Instance  - the guest linked against a hostenv.Environment
//
// Typical flow:
//
//	eng, _ := engine.New(ctx, nil)
//	defer eng.Close(ctx)
//
//	mod, err := eng.Compile(ctx, wasmBytes)
//	inst, err := mod.Instantiate(ctx, hostenv.Default())
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "add", api.EncodeI32(2), api.EncodeI32(4))
//
// Instantiate checks imports against the environment before touching the
// runtime and reports every unsatisfied import in one
// errors.MissingImportsError. Exported entry points such as _start are never
// run implicitly.
//
// Because the environment is registered under fixed module names, an engine
// holds at most one live Instance. Close it before instantiating again.
package engine
