package emulator

import (
	"fmt"
	"io"
	"time"

	"nitro-core-dx/internal/apu"
	"nitro-core-dx/internal/clock"
	"nitro-core-dx/internal/cpu"
	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/input"
	"nitro-core-dx/internal/memory"
	"nitro-core-dx/internal/ppu"
)

// Emulator wires CPU, Bus, PPU, APU, and Input together behind
// internal/clock.Scheduler's lockstep model: the CPU retires one
// instruction, then every bus-borrowed component advances by the same
// T-cycle quantum before the next fetch (see spec.md §5).
type Emulator struct {
	CPU       *cpu.CPU
	Bus       *memory.Bus
	Cartridge *memory.Cartridge
	PPU       *ppu.PPU
	APU       *apu.APU
	Input     *input.InputSystem
	Logger    *debug.Logger
	Scheduler *clock.Scheduler

	FrameLimitEnabled bool
	TargetFPS         float64
	FrameTime         time.Duration
	LastFrameTime     time.Time

	FPS           float64
	FrameCount    uint64
	FPSUpdateTime time.Time

	Running bool
	Paused  bool

	// CycleLogger, when set, snapshots CPU/PPU/APU/OAM state every
	// instruction for post-mortem diffing against reference traces.
	CycleLogger *debug.CycleLogger
}

// NewEmulator creates an emulator with a fresh, all-components-disabled
// logger (logging is opt-in; see internal/debug).
func NewEmulator() *Emulator {
	return NewEmulatorWithLogger(debug.NewLogger(10000))
}

// NewEmulatorWithLogger creates an emulator wired to the given logger.
func NewEmulatorWithLogger(logger *debug.Logger) *Emulator {
	cartridge := memory.NewCartridge()
	bus := memory.NewBus()
	bus.SetLogger(logger)
	bus.SetCartridge(cartridge)

	gpu := ppu.NewPPU()
	gpu.SetInterruptRequester(bus)
	sound := apu.NewAPU()
	joypad := input.NewInputSystem()

	bus.PPUHandler = gpu
	bus.APUHandler = sound
	bus.InputHandler = joypad

	cpuLogger := cpu.NewCPULoggerAdapter(logger, cpu.CPULogNone)
	core := cpu.NewCPU(bus, cpuLogger)
	core.Reset()

	scheduler := clock.NewScheduler(core.Step)
	scheduler.AddStepper(func(cycles int) {
		for quantum := 0; quantum < cycles/4; quantum++ {
			bus.Step()
			gpu.Step()
		}
		sound.Step(cycles)
	})

	now := time.Now()
	return &Emulator{
		CPU:               core,
		Bus:               bus,
		Cartridge:         cartridge,
		PPU:               gpu,
		APU:               sound,
		Input:             joypad,
		Logger:            logger,
		Scheduler:         scheduler,
		FrameLimitEnabled: true,
		TargetFPS:         59.7275,
		FrameTime:         time.Second * 10000 / 597275, // 1/59.7275 s
		LastFrameTime:     now,
		FPSUpdateTime:     now,
	}
}

// LoadBootROM attaches a 256-byte DMG boot ROM; execution then begins at
// 0x0000 instead of the documented post-boot-ROM register state.
func (e *Emulator) LoadBootROM(data []uint8) error {
	if err := e.Bus.SetBootROM(data); err != nil {
		return fmt.Errorf("failed to load boot ROM: %w", err)
	}
	e.CPU.State = cpu.CPUState{}
	return nil
}

// LoadROM parses and attaches a cartridge image, wiring its MBC. If no
// boot ROM is mapped in, the CPU starts directly at the documented
// post-boot-ROM register state (PC=0x0100).
func (e *Emulator) LoadROM(data []uint8) error {
	if err := e.Cartridge.LoadROM(data); err != nil {
		return fmt.Errorf("failed to load ROM: %w", err)
	}
	if !e.Bus.BootEnabled {
		e.CPU.Reset()
	}
	return nil
}

// RunFrame retires CPU instructions until the PPU latches FrameOver,
// matching original_source/Gameboi's emulate_frame() loop-then-reset
// shape, then applies the teacher's FPS tracking and frame-limiter idiom.
func (e *Emulator) RunFrame() error {
	if !e.Running || e.Paused {
		return nil
	}

	for !e.PPU.FrameOver {
		if _, err := e.Scheduler.StepInstruction(); err != nil {
			return fmt.Errorf("scheduler step error: %w", err)
		}
		if e.CycleLogger != nil && e.CycleLogger.IsEnabled() {
			e.CycleLogger.LogCycle(&debug.CPUStateSnapshot{
				A: e.CPU.State.A, F: e.CPU.State.F,
				B: e.CPU.State.B, C: e.CPU.State.C,
				D: e.CPU.State.D, E: e.CPU.State.E,
				H: e.CPU.State.H, L: e.CPU.State.L,
				SP: e.CPU.State.SP, PC: e.CPU.State.PC,
				IME: e.CPU.State.IME, Halted: e.CPU.State.Halted,
				Cycles: e.CPU.State.Cycles,
			})
		}
	}
	e.PPU.FrameOver = false

	e.FrameCount++
	now := time.Now()
	if now.Sub(e.FPSUpdateTime) >= time.Second {
		e.FPS = float64(e.FrameCount) / now.Sub(e.FPSUpdateTime).Seconds()
		e.FrameCount = 0
		e.FPSUpdateTime = now
	}

	if e.FrameLimitEnabled {
		frameTime := e.FrameTime
		if e.TargetFPS > 0 {
			frameTime = time.Duration(float64(time.Second) / e.TargetFPS)
		}
		elapsed := now.Sub(e.LastFrameTime)
		if elapsed < frameTime {
			time.Sleep(frameTime - elapsed)
		}
	}
	e.LastFrameTime = time.Now()

	return nil
}

// Start begins emulation (RunFrame becomes a no-op otherwise).
func (e *Emulator) Start() {
	e.Running = true
	e.Paused = false
}

// Stop halts emulation.
func (e *Emulator) Stop() {
	e.Running = false
}

// Pause suspends frame stepping without losing state.
func (e *Emulator) Pause() {
	e.Paused = true
}

// Resume un-suspends frame stepping.
func (e *Emulator) Resume() {
	e.Paused = false
}

// SetFrameLimit toggles the frame limiter, which paces frames at
// TargetFPS (59.7275 by default).
func (e *Emulator) SetFrameLimit(enabled bool) {
	e.FrameLimitEnabled = enabled
}

// GetFPS returns the most recently measured frames-per-second.
func (e *Emulator) GetFPS() float64 {
	return e.FPS
}

// Framebuffer returns the PPU's 160x144 indexed-colour output for the
// frame that just completed.
func (e *Emulator) Framebuffer() [ppu.ScreenHeight][ppu.ScreenWidth]uint8 {
	return e.PPU.Framebuffer
}

// SetButtons merges the host's eight button states into the joypad.
func (e *Emulator) SetButtons(a, b, sel, start, up, down, left, right bool) {
	e.Input.SetButton(input.ButtonUp, up)
	e.Input.SetButton(input.ButtonDown, down)
	e.Input.SetButton(input.ButtonLeft, left)
	e.Input.SetButton(input.ButtonRight, right)
	e.Input.SetAction(input.ButtonA, a)
	e.Input.SetAction(input.ButtonB, b)
	e.Input.SetAction(input.ButtonSelect, sel)
	e.Input.SetAction(input.ButtonStart, start)
}

// LoadBattery restores battery-backed external RAM from r, if the loaded
// cartridge declares a battery (see SPEC_FULL.md's supplemented feature).
func (e *Emulator) LoadBattery(r io.Reader) error {
	if e.Cartridge.MBC == nil {
		return nil
	}
	return e.Cartridge.MBC.LoadRAM(r)
}

// SaveBattery flushes battery-backed external RAM to w, if the loaded
// cartridge declares a battery.
func (e *Emulator) SaveBattery(w io.Writer) error {
	if e.Cartridge.MBC == nil {
		return nil
	}
	return e.Cartridge.MBC.SaveRAM(w)
}
