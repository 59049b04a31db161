// Package config loads wasmrun settings with viper.
//
// Precedence, lowest first: built-in defaults, a config file, WASMRUN_*
// environment variables, then command-line flags applied by the caller.
//
//	dir: ./modules
//	ext: .wasm
//	log_level: debug
//	no_color: true
//	wit: ./modules/math.wit
//	memory_limit_pages: 512
//
// Without --config, Load looks for config.{yaml,toml,json} in ConfigDir and
// silently falls back to defaults when none exists.
package config
