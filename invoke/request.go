package invoke

import (
	"io/fs"
	"path"
	"strings"

	"github.com/wippyai/wasmrun/errors"
)

// DefaultExtension is appended to module identifiers that lack it.
const DefaultExtension = ".wasm"

// Request is one invocation taken from the command line.
type Request struct {
	Module string
	Export string
	Args   []string
}

// ParseRequest validates positional arguments: a module identifier, an
// export name and zero or more argument tokens.
func ParseRequest(args []string) (Request, error) {
	if len(args) < 2 {
		return Request{}, errors.Usage("expected <module> <export> [arg...]")
	}
	if args[0] == "" {
		return Request{}, errors.Usage("module name is empty")
	}
	if args[1] == "" {
		return Request{}, errors.Usage("export name is empty")
	}
	return Request{
		Module: args[0],
		Export: args[1],
		Args:   append([]string(nil), args[2:]...),
	}, nil
}

// ModulePath maps a module identifier to a path inside the module
// filesystem. ext is appended unless the identifier already ends with it.
func ModulePath(module, ext string) (string, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	p := path.Clean(strings.ReplaceAll(module, "\\", "/"))
	if !strings.HasSuffix(p, ext) {
		p += ext
	}
	if !fs.ValidPath(p) {
		return "", errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Value(module).
			Detail("module %q must be relative to the module directory", module).
			Build()
	}
	return p, nil
}
