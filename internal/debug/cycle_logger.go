package debug

import (
	"fmt"
	"os"
	"sync"
)

// OAMReader reads a single OAM byte (to avoid an import cycle with
// internal/ppu).
type OAMReader interface {
	ReadOAM(offset uint8) uint8
}

// MemoryReader reads a single bus byte (to avoid an import cycle with
// internal/memory).
type MemoryReader interface {
	Read8(addr uint16) uint8
}

// PPUStateReader reads PPU mode-FSM state (to avoid an import cycle with
// internal/ppu).
type PPUStateReader interface {
	GetScanline() int
	GetMode() int
	GetVBlankFlag() bool
	GetFrameCounter() uint16
}

// APUStateReader reads per-channel APU state (to avoid an import cycle
// with internal/apu).
type APUStateReader interface {
	GetChannelState(channel int) (playing bool, frequency uint16, volume uint8, dutyOrMode uint8)
	GetMasterEnable() bool
}

// CPUStateSnapshot is a flat copy of cpu.CPUState for logging, avoiding an
// import cycle with internal/cpu.
type CPUStateSnapshot struct {
	A, F       uint8
	B, C       uint8
	D, E       uint8
	H, L       uint8
	SP, PC     uint16
	IME        bool
	Halted     bool
	Cycles     uint64
}

// CycleLogger logs CPU/PPU/APU/OAM state once per emulated step, for
// cycle-accurate post-mortem diffing against reference traces.
type CycleLogger struct {
	file         *os.File
	maxCycles    uint64
	startCycle   uint64
	currentCycle uint64
	totalCycles  uint64
	enabled      bool
	mu           sync.Mutex

	bus MemoryReader
	oam OAMReader
	ppu PPUStateReader
	apu APUStateReader
}

// NewCycleLogger creates a cycle logger writing to filename. maxCycles==0
// means unlimited; startCycle delays logging until that many steps have
// elapsed.
func NewCycleLogger(filename string, maxCycles uint64, startCycle uint64, bus MemoryReader, oam OAMReader, ppu PPUStateReader, apu APUStateReader) (*CycleLogger, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle log file: %w", err)
	}

	logger := &CycleLogger{
		file:       file,
		maxCycles:  maxCycles,
		startCycle: startCycle,
		enabled:    true,
		bus:        bus,
		oam:        oam,
		ppu:        ppu,
		apu:        apu,
	}

	fmt.Fprintf(file, "Cycle-by-Cycle Debug Log\n")
	fmt.Fprintf(file, "========================\n\n")
	if startCycle > 0 {
		fmt.Fprintf(file, "Start cycle offset: %d\n", startCycle)
	}
	if maxCycles > 0 {
		fmt.Fprintf(file, "Max cycles to log: %d\n", maxCycles)
	}
	fmt.Fprintf(file, "\nFormat: Step | PC | Registers | SP | Flags | PPU | APU | OAM[sprite 0]\n\n")

	return logger, nil
}

// LogCycle logs cpuState and the wired PPU/APU/OAM snapshots for one step.
func (c *CycleLogger) LogCycle(cpuState *CPUStateSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	c.totalCycles++
	if c.totalCycles < c.startCycle {
		return
	}
	if c.maxCycles > 0 && c.currentCycle >= c.maxCycles {
		c.enabled = false
		return
	}
	c.currentCycle++

	var sprite0 [4]uint8
	if c.oam != nil {
		for i := range sprite0 {
			sprite0[i] = c.oam.ReadOAM(uint8(i))
		}
	}

	scanline, mode, vblank, frame := -1, -1, false, uint16(0)
	if c.ppu != nil {
		scanline = c.ppu.GetScanline()
		mode = c.ppu.GetMode()
		vblank = c.ppu.GetVBlankFlag()
		frame = c.ppu.GetFrameCounter()
	}

	var channels [4]struct {
		playing    bool
		frequency  uint16
		volume     uint8
		dutyOrMode uint8
	}
	masterEnable := false
	if c.apu != nil {
		masterEnable = c.apu.GetMasterEnable()
		for i := range channels {
			channels[i].playing, channels[i].frequency, channels[i].volume, channels[i].dutyOrMode = c.apu.GetChannelState(i)
		}
	}

	fmt.Fprintf(c.file, "Step %6d | PC:%04X | ", c.totalCycles, cpuState.PC)
	fmt.Fprintf(c.file, "A:%02X F:%02X B:%02X C:%02X D:%02X E:%02X H:%02X L:%02X | ",
		cpuState.A, cpuState.F, cpuState.B, cpuState.C, cpuState.D, cpuState.E, cpuState.H, cpuState.L)
	fmt.Fprintf(c.file, "SP:%04X IME:%v Halted:%v | ", cpuState.SP, cpuState.IME, cpuState.Halted)
	fmt.Fprintf(c.file, "PPU:LY:%03d Mode:%d VB:%v Frame:%05d | ", scanline, mode, vblank, frame)
	fmt.Fprintf(c.file, "APU:On:%v ", masterEnable)
	for i, ch := range channels {
		if ch.playing {
			fmt.Fprintf(c.file, "Ch%d:%04X/%02X/%d ", i, ch.frequency, ch.volume, ch.dutyOrMode)
		} else {
			fmt.Fprintf(c.file, "Ch%d:-- ", i)
		}
	}
	fmt.Fprintf(c.file, "| OAM0:%02X %02X %02X %02X\n", sprite0[0], sprite0[1], sprite0[2], sprite0[3])
}

// SetEnabled enables or disables logging.
func (c *CycleLogger) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Toggle flips the enabled state.
func (c *CycleLogger) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = !c.enabled
}

// Close finalizes and closes the log file.
func (c *CycleLogger) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	if c.file != nil {
		fmt.Fprintf(c.file, "\n\nLog complete. Total steps logged: %d\n", c.currentCycle)
		err := c.file.Close()
		c.file = nil
		return err
	}
	return nil
}

// IsEnabled reports whether logging is currently active.
func (c *CycleLogger) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && (c.maxCycles == 0 || c.currentCycle < c.maxCycles)
}

// GetStatus returns the current logging counters.
func (c *CycleLogger) GetStatus() (enabled bool, currentCycle uint64, totalCycles uint64, maxCycles uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled, c.currentCycle, c.totalCycles, c.maxCycles
}
