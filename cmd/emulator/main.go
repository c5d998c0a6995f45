package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"nitro-core-dx/internal/config"
	"nitro-core-dx/internal/cpu"
	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/emulator"
)

func main() {
	romPath := flag.String("rom", "", "Path to ROM file")
	bootROMPath := flag.String("boot-rom", "", "Path to a 256-byte DMG boot ROM (optional)")
	savePath := flag.String("save", "", "Path to a battery RAM save file (loaded at start, written at exit if the cartridge has a battery)")
	configPath := flag.String("config", "", "Path to a TOML config file (optional)")
	frames := flag.Int("frames", 0, "Run exactly this many frames then exit (0 = run until interrupted)")
	unlimited := flag.Bool("unlimited", false, "Run at unlimited speed (no frame limit)")
	dumpFrame := flag.String("dump-frame", "", "After running, write the final framebuffer to this BMP path")
	dumpScale := flag.Int("dump-frame-scale", 1, "Nearest-neighbor upscale factor applied to -dump-frame output")
	enableLogging := flag.Bool("log", false, "Enable diagnostic logging (disabled by default)")
	flag.Parse()

	if *romPath == "" {
		fmt.Println("Usage: nitro-core-dx -rom <path-to-rom>")
		fmt.Println("  -rom <path>        Path to ROM file")
		fmt.Println("  -boot-rom <path>   Path to a 256-byte DMG boot ROM")
		fmt.Println("  -save <path>       Battery RAM save file to load/persist")
		fmt.Println("  -config <path>     TOML config file")
		fmt.Println("  -frames <n>        Run exactly n frames then exit")
		fmt.Println("  -unlimited         Run at unlimited speed")
		fmt.Println("  -dump-frame <path> Write the final frame to a BMP file")
		fmt.Println("  -dump-frame-scale  Nearest-neighbor upscale factor for -dump-frame")
		fmt.Println("  -log               Enable diagnostic logging")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ROM file: %v\n", err)
		os.Exit(1)
	}

	var emu *emulator.Emulator
	if *enableLogging {
		logger := debug.NewLogger(10000)
		for _, c := range cfg.Logging.ComponentSet() {
			logger.SetComponentEnabled(c, true)
		}
		logger.SetMinLevel(cfg.Logging.Level())
		emu = emulator.NewEmulatorWithLogger(logger)
		if adapter, ok := emu.CPU.Log.(*cpu.CPULoggerAdapter); ok {
			adapter.SetLevel(cpu.CPULogInstructions)
		}
	} else {
		emu = emulator.NewEmulator()
	}

	bootROMFile := *bootROMPath
	if bootROMFile == "" {
		bootROMFile = cfg.Paths.BootROM
	}
	if bootROMFile != "" {
		bootData, err := os.ReadFile(bootROMFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading boot ROM: %v\n", err)
			os.Exit(1)
		}
		if err := emu.LoadBootROM(bootData); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading boot ROM: %v\n", err)
			os.Exit(1)
		}
	}

	if err := emu.LoadROM(romData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ROM: %v\n", err)
		os.Exit(1)
	}

	saveFile := *savePath
	if saveFile == "" && cfg.Paths.SaveDir != "" {
		saveFile = filepath.Join(cfg.Paths.SaveDir, filepath.Base(*romPath)+".sav")
	}
	if saveFile != "" && emu.Cartridge.HasBattery {
		if f, err := os.Open(saveFile); err == nil {
			err := emu.LoadBattery(f)
			f.Close()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading battery save: %v\n", err)
				os.Exit(1)
			}
		}
	}

	emu.SetFrameLimit(!*unlimited && cfg.Display.FrameLimit)
	if cfg.Display.TargetFPS > 0 {
		emu.TargetFPS = cfg.Display.TargetFPS
	}

	fmt.Println("Nitro-Core-DX Emulator")
	fmt.Println("====================")
	fmt.Printf("ROM loaded: %s\n", *romPath)
	fmt.Printf("Frame limit: %v\n", emu.FrameLimitEnabled)

	emu.Start()

	frameCount := 0
	for *frames == 0 || frameCount < *frames {
		if err := emu.RunFrame(); err != nil {
			fmt.Fprintf(os.Stderr, "Emulation error: %v\n", err)
			os.Exit(1)
		}
		frameCount++
	}

	if saveFile != "" && emu.Cartridge.HasBattery {
		f, err := os.Create(saveFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening battery save for write: %v\n", err)
			os.Exit(1)
		}
		err = emu.SaveBattery(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing battery save: %v\n", err)
			os.Exit(1)
		}
	}

	if *dumpFrame != "" {
		f, err := os.Create(*dumpFrame)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening frame dump file: %v\n", err)
			os.Exit(1)
		}
		if *dumpScale > 1 {
			err = emu.PPU.DumpFramebufferBMPScaled(f, *dumpScale)
		} else {
			err = emu.PPU.DumpFramebufferBMP(f)
		}
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing frame dump: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Frame written to %s\n", *dumpFrame)
	}
}
