// Package config handles the rvm.toml tool configuration.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"rvm/pkg/compiler"
	"rvm/pkg/vm"
)

// DefaultPath is the file looked up when no --config flag is given.
const DefaultPath = "rvm.toml"

// Config is the full tool configuration.
type Config struct {
	Compiler Compiler `toml:"compiler"`
	VM       VM       `toml:"vm"`
	Log      Log      `toml:"log"`
}

// Compiler configures code generation.
type Compiler struct {
	InitialCodeSize int  `toml:"initial-code-size"`
	Prelude         bool `toml:"prelude"`
}

// VM configures the interpreter.
type VM struct {
	StackCapacity     int    `toml:"stack-capacity"`
	InitialFrameArena int    `toml:"initial-frame-arena"`
	MaxFrameArena     int    `toml:"max-frame-arena"`
	InstructionLimit  int    `toml:"instruction-limit"`
	CompletionMessage string `toml:"completion-message"`
}

// Log configures the logger built by package logging.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() *Config {
	return &Config{
		Compiler: Compiler{
			InitialCodeSize: compiler.DefaultInitialCodeSize,
			Prelude:         true,
		},
		VM: VM{
			StackCapacity:     vm.DefaultStackCapacity,
			InitialFrameArena: vm.DefaultInitialArena,
			MaxFrameArena:     vm.DefaultMaxArena,
			CompletionMessage: vm.DefaultCompletionMessage,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Parse decodes TOML on top of the defaults. Keys the configuration does not
// know are an error.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path from fs. A missing file yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Compiler.InitialCodeSize <= 0:
		return errors.New("compiler.initial-code-size must be positive")
	case c.VM.StackCapacity <= 0:
		return errors.New("vm.stack-capacity must be positive")
	case c.VM.InitialFrameArena < vm.FrameHeaderSize:
		return errors.Errorf("vm.initial-frame-arena must be at least %d", vm.FrameHeaderSize)
	case c.VM.MaxFrameArena < c.VM.InitialFrameArena:
		return errors.New("vm.max-frame-arena must not be below vm.initial-frame-arena")
	case c.VM.InstructionLimit < 0:
		return errors.New("vm.instruction-limit must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("log.format %q is not one of console, json", c.Log.Format)
	}
	return nil
}

// CompilerOptions translates the [compiler] section.
func (c *Config) CompilerOptions() []compiler.Option {
	return []compiler.Option{
		compiler.WithInitialCodeSize(c.Compiler.InitialCodeSize),
		compiler.WithPrelude(c.Compiler.Prelude),
	}
}

// VMOptions translates the [vm] section.
func (c *Config) VMOptions() []vm.Option {
	return []vm.Option{
		vm.WithStackCapacity(c.VM.StackCapacity),
		vm.WithFrameArena(c.VM.InitialFrameArena, c.VM.MaxFrameArena),
		vm.WithInstructionLimit(c.VM.InstructionLimit),
		vm.WithCompletionMessage(c.VM.CompletionMessage),
	}
}
