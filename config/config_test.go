package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasmrun/errors"
)

func loadIsolated(t *testing.T, opts LoadOptions) (*Config, string, error) {
	t.Helper()
	if opts.ConfigDirPath == "" {
		opts.ConfigDirPath = t.TempDir()
	}
	return Load(opts)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, path, err := loadIsolated(t, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}
	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "wasmrun.yaml")
	content := "dir: ./modules\next: mod\nlog_level: debug\nno_color: true\nmemory_limit_pages: 512\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := loadIsolated(t, LoadOptions{ConfigFilePath: file})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != file {
		t.Errorf("resolved path = %q, want %q", path, file)
	}
	if cfg.Dir != "./modules" || !cfg.NoColor || cfg.MemoryLimitPages != 512 {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Extension != ".mod" {
		t.Errorf("Extension = %q, want leading dot added", cfg.Extension)
	}
	if lvl, _ := cfg.Level(); lvl != zapcore.DebugLevel {
		t.Errorf("Level() = %v, want debug", lvl)
	}
}

func TestLoad_ConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("dir = \"/srv/wasm\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := Load(LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dir != "/srv/wasm" {
		t.Errorf("Dir = %q", cfg.Dir)
	}
	if path != filepath.Join(dir, "config.toml") {
		t.Errorf("resolved path = %q", path)
	}
}

func TestLoad_Environment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("dir: from-file\nlog_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WASMRUN_DIR", "from-env")
	t.Setenv("WASMRUN_EXT", ".bin")
	t.Setenv("WASMRUN_NO_COLOR", "true")

	cfg, _, err := loadIsolated(t, LoadOptions{ConfigFilePath: file})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dir != "from-env" {
		t.Errorf("Dir = %q, environment should override the file", cfg.Dir)
	}
	if cfg.Extension != ".bin" || !cfg.NoColor {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want value from file", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("dir: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		opts  LoadOptions
		setup func(t *testing.T)
	}{
		{"missing explicit file", LoadOptions{ConfigFilePath: filepath.Join(dir, "nope.yaml")}, nil},
		{"malformed file", LoadOptions{ConfigFilePath: bad}, nil},
		{"bad log level", LoadOptions{}, func(t *testing.T) { t.Setenv("WASMRUN_LOG_LEVEL", "loud") }},
		{"memory limit below environment", LoadOptions{}, func(t *testing.T) { t.Setenv("WASMRUN_MEMORY_LIMIT_PAGES", "100") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}
			_, _, err := loadIsolated(t, tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.PhaseOf(err) != errors.PhaseConfig {
				t.Errorf("phase = %q, want config: %v", errors.PhaseOf(err), err)
			}
		})
	}
}

func TestNormalize_MemoryLimit(t *testing.T) {
	tests := []struct {
		pages uint32
		ok    bool
	}{
		{0, true},
		{256, true},
		{65536, true},
		{100, false},
		{255, false},
		{65537, false},
	}
	for _, tt := range tests {
		c := &Config{LogLevel: "warn", MemoryLimitPages: tt.pages}
		err := c.Normalize()
		if tt.ok && err != nil {
			t.Errorf("Normalize(%d pages): %v", tt.pages, err)
		}
		if !tt.ok && errors.PhaseOf(err) != errors.PhaseConfig {
			t.Errorf("Normalize(%d pages) = %v, want config error", tt.pages, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	c := &Config{LogLevel: "error"}
	if err := c.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if c.Dir != "." || c.Extension != ".wasm" {
		t.Errorf("Normalize() = %+v", c)
	}
}
