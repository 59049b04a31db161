package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasmrun/config"
	"github.com/wippyai/wasmrun/engine"
	"github.com/wippyai/wasmrun/errors"
	"github.com/wippyai/wasmrun/invoke"
	"github.com/wippyai/wasmrun/signature"
)

type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgFile  string
	dir      string
	ext      string
	wit      string
	logLevel string
	noColor  bool
	list     bool
	memPages uint32

	// color is resolved from flags and configuration during run.
	color bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, color: os.Getenv("NO_COLOR") == ""}
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wasmrun [flags] <module> <export> [arg...]",
		Short: "Invoke an exported function of a WebAssembly module",
		Long: `wasmrun loads <module> from --dir (appending --ext), links it against a
fixed "env" host environment, calls <export> with the remaining arguments
converted to its parameter types and prints the results.

Flags must come before <module>; everything after it is passed to the export,
so negative numbers need no quoting.

Exit status: 1 usage or configuration, 2 module not readable, 3 malformed
module or instantiation, 4 conversion or invocation.`,
		Example: `  wasmrun math add 2 4
  wasmrun --dir ./build --wit math.wit math add 4294967295 0
  wasmrun --list math`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.run,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Usage(err.Error())
	})

	f := cmd.Flags()
	f.SetInterspersed(false)
	f.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/wasmrun/config.yaml)")
	f.StringVar(&a.dir, "dir", ".", "directory modules are resolved against")
	f.StringVar(&a.ext, "ext", ".wasm", "extension appended to module names")
	f.StringVar(&a.wit, "wit", "", "WIT file declaring export signatures")
	f.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	f.BoolVar(&a.noColor, "no-color", false, "disable colored diagnostics")
	f.BoolVar(&a.list, "list", false, "list exports and imports of <module> and exit")
	f.Uint32Var(&a.memPages, "memory-limit-pages", 0, "cap guest memory in 64KiB pages (0 = no extra cap)")

	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	var req invoke.Request
	if a.list {
		if len(args) != 1 || args[0] == "" {
			return a.usage(cmd, errors.Usage("--list expects exactly one <module>"))
		}
		req.Module = args[0]
	} else {
		var err error
		if req, err = invoke.ParseRequest(args); err != nil {
			return a.usage(cmd, err)
		}
	}

	cfg, cfgPath, err := config.Load(config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		return err
	}
	if err := a.applyFlags(cmd, cfg); err != nil {
		return err
	}
	a.color = a.color && !cfg.NoColor

	level, _ := cfg.Level()
	log := newLogger(a.stderr, level)
	defer log.Sync() //nolint:errcheck
	installLogger(log)
	if cfgPath != "" {
		log.Debug("config loaded", zap.String("path", cfgPath))
	}

	ann, err := loadAnnotations(cfg.WIT)
	if err != nil {
		return err
	}

	dir, module := cfg.Dir, req.Module
	if filepath.IsAbs(module) {
		dir, module = filepath.Split(module)
	}
	req.Module = module

	inv := invoke.New(invoke.Options{
		FS:          os.DirFS(dir),
		Extension:   cfg.Extension,
		Engine:      &engine.Config{MemoryLimitPages: cfg.MemoryLimitPages},
		Annotations: ann,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.list {
		return inv.List(ctx, req.Module, a.stdout)
	}
	_, err = inv.Run(ctx, req, a.stdout)
	return err
}

// applyFlags lets explicitly set flags override configuration.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("dir") {
		cfg.Dir = a.dir
	}
	if f.Changed("ext") {
		cfg.Extension = a.ext
	}
	if f.Changed("wit") {
		cfg.WIT = a.wit
	}
	if f.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if f.Changed("no-color") {
		cfg.NoColor = a.noColor
	}
	if f.Changed("memory-limit-pages") {
		cfg.MemoryLimitPages = a.memPages
	}
	return cfg.Normalize()
}

func (a *app) usage(cmd *cobra.Command, err error) error {
	fmt.Fprintf(a.stderr, "%v\n\n%s", err, cmd.UsageString())
	return &ExitError{Code: ExitUsage}
}

func loadAnnotations(path string) (signature.Annotations, error) {
	if path == "" {
		return nil, nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Value(path).
			Detail("read WIT file %s", path).
			Cause(err).
			Build()
	}
	return signature.ParseWIT(string(text))
}

// execute runs the command and reports any failure on stderr. It returns
// the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	cmd := a.command()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	code := exitCode(err)
	if exitErr, ok := err.(*ExitError); ok && exitErr.Err == nil {
		return code
	}

	if a.noColor {
		a.color = false
	}
	st := newStyles(stderr, a.color)
	fmt.Fprintf(stderr, "%s %v\n", st.Error.Render("error:"), err)
	if phase := errors.PhaseOf(err); phase != "" {
		fmt.Fprintln(stderr, st.Muted.Render(fmt.Sprintf("(%s failed, exit status %d)", phase, code)))
	}
	return code
}
