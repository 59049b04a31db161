// Package wasmrun loads a WebAssembly core module, links it against a small
// fixed host environment and invokes one exported function with arguments
// taken from the command line.
//
// # Architecture Overview
//
//	wasmrun/             Root package with the Memory interfaces
//	├── cmd/wasmrun/     Command-line entry point
//	├── invoke/          Request parsing and the load, instantiate, call, report sequence
//	├── engine/          wazero integration: compile, instantiate, call
//	├── hostenv/         The "env" host environment and import checking
//	├── signature/       Export signatures, WIT annotations, token conversion
//	├── config/          Layered configuration (defaults, file, environment, flags)
//	└── errors/          Structured error types
//
// # Quick Start
//
//	inv := invoke.New(invoke.Options{FS: os.DirFS(".")})
//	req, err := invoke.ParseRequest([]string{"math", "add", "2", "4"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := inv.Run(ctx, req, os.Stdout); err != nil { // prints 6
//	    log.Fatal(err)
//	}
//
// From the shell:
//
//	wasmrun math add 2 4
package wasmrun
