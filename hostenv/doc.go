// Package hostenv describes the host environment a guest module is
// instantiated against and synthesizes the module that supplies it.
//
// The environment mirrors what emscripten-era toolchains expect under the
// "env" namespace:
//
//	memory              256 pages, cannot grow
//	table               funcref, 0 elements, cannot grow
//	tableBase           i32 0
//	memoryBase          i32 1024
//	STACKTOP            i32 0
//	STACK_MAX           i32 byte length of memory
//	abortStackOverflow  func(i32), traps
//
// An Environment is a plain value: build it once with Default, pass it to
// the engine, and it never changes afterwards.
//
//	env := hostenv.Default()
//	imports, err := hostenv.ParseImports(wasmBytes)
//	if err == nil {
//	    err = env.Check(imports)
//	}
//
// wazero host modules can only export functions, so BuildModule encodes a
// small core module defining the memory, table and globals that re-exports
// functions from the Go host module named HostModuleName.
package hostenv
