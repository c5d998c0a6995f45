// Package config loads host-facing settings for cmd/emulator: where to
// look for ROMs and save data, the default boot ROM, the frame-limiter
// target, and which diagnostic components start out enabled. Nothing
// here touches emulation semantics; the core packages never read this
// file themselves.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"nitro-core-dx/internal/debug"
)

// Config is the TOML-decoded shape of a config file passed to
// cmd/emulator via -config.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Display Display `toml:"display"`
	Logging Logging `toml:"logging"`
}

// Paths names host-side directories and files. cmd/emulator uses SaveDir
// when no -save flag is given and BootROM when no -boot-rom flag is
// given; it does not read ROMDir (a -rom path is always required).
type Paths struct {
	ROMDir  string `toml:"rom_dir"`
	SaveDir string `toml:"save_dir"`
	BootROM string `toml:"boot_rom"`
}

// Display holds frame-limiter tuning; there is no window/scale setting
// since cmd/emulator is a headless runner (see SPEC_FULL.md).
type Display struct {
	TargetFPS  float64 `toml:"target_fps"`
	FrameLimit bool    `toml:"frame_limit"`
}

// Logging lists which debug.Component channels start out enabled and at
// what minimum debug.LogLevel.
type Logging struct {
	MinLevel   string   `toml:"min_level"`
	Components []string `toml:"components"`
}

// Default returns the configuration cmd/emulator falls back to when no
// -config file is given.
func Default() Config {
	return Config{
		Display: Display{
			TargetFPS:  59.7275,
			FrameLimit: true,
		},
		Logging: Logging{
			MinLevel: "INFO",
		},
	}
}

// Load reads and decodes a TOML config file at path.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config %q: %w", path, err)
	}
	return cfg, nil
}

// Level resolves the configured minimum log level string to a
// debug.LogLevel, defaulting to LogLevelInfo on an unrecognized value.
func (l Logging) Level() debug.LogLevel {
	switch l.MinLevel {
	case "NONE":
		return debug.LogLevelNone
	case "ERROR":
		return debug.LogLevelError
	case "WARNING":
		return debug.LogLevelWarning
	case "INFO":
		return debug.LogLevelInfo
	case "DEBUG":
		return debug.LogLevelDebug
	case "TRACE":
		return debug.LogLevelTrace
	default:
		return debug.LogLevelInfo
	}
}

// ComponentSet resolves the configured component name list to
// debug.Component values, skipping unrecognized names.
func (l Logging) ComponentSet() []debug.Component {
	all := map[string]debug.Component{
		"CPU":    debug.ComponentCPU,
		"PPU":    debug.ComponentPPU,
		"APU":    debug.ComponentAPU,
		"Memory": debug.ComponentMemory,
		"Input":  debug.ComponentInput,
		"UI":     debug.ComponentUI,
		"System": debug.ComponentSystem,
	}
	var result []debug.Component
	for _, name := range l.Components {
		if c, ok := all[name]; ok {
			result = append(result, c)
		}
	}
	return result
}
