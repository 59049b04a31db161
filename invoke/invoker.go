package invoke

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasmrun/engine"
	"github.com/wippyai/wasmrun/errors"
	"github.com/wippyai/wasmrun/hostenv"
	"github.com/wippyai/wasmrun/signature"
)

// Options configures an Invoker. The zero value reads ".wasm" modules from
// the working directory against the default environment.
type Options struct {
	// FS resolves module identifiers. Defaults to os.DirFS(".").
	FS fs.FS

	// Extension is appended to module identifiers. Defaults to ".wasm".
	Extension string

	// Env is the host environment. Defaults to hostenv.Default().
	Env *hostenv.Environment

	// Engine configures the wazero runtime created for each run.
	Engine *engine.Config

	// Annotations refine export signatures, typically parsed from WIT.
	Annotations signature.Annotations

	// OnTransition observes every state change of a run.
	OnTransition func(from, to State)
}

// Invoker runs one request at a time. Each run gets its own runtime, so
// runs never share state.
type Invoker struct {
	opts Options
	env  hostenv.Environment
}

// New creates an Invoker.
func New(opts Options) *Invoker {
	if opts.FS == nil {
		opts.FS = os.DirFS(".")
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	env := hostenv.Default()
	if opts.Env != nil {
		env = *opts.Env
	}
	return &Invoker{opts: opts, env: env}
}

// Environment returns the host environment runs are linked against.
func (inv *Invoker) Environment() hostenv.Environment {
	return inv.env
}

// Result is the outcome of a successful call.
type Result struct {
	Export    string
	Signature signature.Signature
	Values    []uint64
}

// Strings renders each result value.
func (r *Result) Strings() []string {
	return r.Signature.Decode(r.Values)
}

// String joins rendered values with spaces. Void exports render empty.
func (r *Result) String() string {
	return strings.Join(r.Strings(), " ")
}

type run struct {
	inv   *Invoker
	req   Request
	state State
	log   *zap.Logger
}

func (inv *Invoker) begin(req Request) *run {
	return &run{
		inv:   inv,
		req:   req,
		state: StateValidated,
		log:   Logger().With(zap.String("module", req.Module), zap.String("export", req.Export)),
	}
}

func (r *run) to(next State) {
	from := r.state
	r.state = next
	r.log.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", next))
	if r.inv.opts.OnTransition != nil {
		r.inv.opts.OnTransition(from, next)
	}
}

func (r *run) fail(err error) error {
	r.log.Debug("invocation failed", zap.Stringer("state", r.state), zap.Error(err))
	r.to(StateFailed)
	return err
}

// Run loads the requested module, instantiates it against the environment,
// calls the export with converted arguments and writes the rendered result
// to w as a single line. Nothing is written on failure or for void exports.
func (inv *Invoker) Run(ctx context.Context, req Request, w io.Writer) (*Result, error) {
	r := inv.begin(req)

	data, err := inv.load(req.Module)
	if err != nil {
		return nil, r.fail(err)
	}
	r.to(StateBytesLoaded)

	eng, err := engine.New(ctx, inv.opts.Engine)
	if err != nil {
		return nil, r.fail(err)
	}
	defer eng.Close(ctx)

	r.to(StateInstantiating)
	mod, err := eng.Compile(ctx, data)
	if err != nil {
		return nil, r.fail(err)
	}
	inst, err := mod.Instantiate(ctx, inv.env)
	if err != nil {
		return nil, r.fail(err)
	}
	defer inst.Close(ctx)

	sig, err := mod.Signature(req.Export)
	if err != nil {
		return nil, r.fail(err)
	}
	sig, err = inv.opts.Annotations.Refine(sig)
	if err != nil {
		return nil, r.fail(err)
	}
	params, err := sig.Encode(req.Args)
	if err != nil {
		return nil, r.fail(err)
	}

	values, err := inst.Call(ctx, req.Export, params...)
	if err != nil {
		return nil, r.fail(err)
	}
	r.to(StateInvoked)

	res := &Result{Export: req.Export, Signature: sig, Values: values}
	if len(values) > 0 {
		if _, err := fmt.Fprintln(w, res); err != nil {
			return nil, r.fail(errors.Wrap(errors.PhaseInvoke, errors.KindInvalidData, err, "write result"))
		}
	}
	r.to(StateReported)
	return res, nil
}

// List writes the export signatures and imports of a module without
// instantiating it.
func (inv *Invoker) List(ctx context.Context, module string, w io.Writer) error {
	data, err := inv.load(module)
	if err != nil {
		return err
	}

	eng, err := engine.New(ctx, inv.opts.Engine)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	mod, err := eng.Compile(ctx, data)
	if err != nil {
		return err
	}
	defer mod.Close(ctx)

	var b strings.Builder
	b.WriteString("exports:\n")
	for _, sig := range mod.Exports() {
		if refined, err := inv.opts.Annotations.Refine(sig); err == nil {
			sig = refined
		}
		fmt.Fprintf(&b, "  %s\n", sig)
	}
	if imports := mod.Imports(); len(imports) > 0 {
		b.WriteString("imports:\n")
		for _, imp := range imports {
			fmt.Fprintf(&b, "  %s\n", imp)
		}
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func (inv *Invoker) load(module string) ([]byte, error) {
	p, err := ModulePath(module, inv.opts.Extension)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(inv.opts.FS, p)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
				Value(p).
				Detail("module %q not found", p).
				Cause(err).
				Build()
		}
		return nil, errors.Load("read module "+p, err)
	}
	Logger().Debug("module loaded", zap.String("path", p), zap.Int("bytes", len(data)))
	return data, nil
}
