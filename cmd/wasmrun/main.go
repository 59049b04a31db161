// Command wasmrun invokes one exported function of a WebAssembly module.
//
//	wasmrun [flags] <module> <export> [arg...]
//	wasmrun --list <module>
//
// The module identifier is resolved against --dir with --ext appended, so
// "wasmrun math add 2 4" loads ./math.wasm and prints 6.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
