// Package invoke performs a single module invocation: validate the request,
// load the module bytes, instantiate against the host environment, call the
// export and report the result.
//
//	req, err := invoke.ParseRequest(os.Args[1:])
//	inv := invoke.New(invoke.Options{FS: os.DirFS(dir)})
//	_, err = inv.Run(ctx, req, os.Stdout)
//
// A run moves through Validated, BytesLoaded, Instantiating, Invoked and
// Reported. Any failure moves it to Failed and returns a structured
// *errors.Error (or *errors.MissingImportsError) whose phase identifies the
// failing step.
package invoke
