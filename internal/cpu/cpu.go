package cpu

import "fmt"

// CPUState is the complete architectural state of the LR35902: the eight
// 8-bit registers (paired as AF/BC/DE/HL), the 16-bit program counter and
// stack pointer, the interrupt-master-enable flag, and the halted/stopped
// latches.
type CPUState struct {
	A, F       uint8
	B, C       uint8
	D, E       uint8
	H, L       uint8
	SP, PC     uint16
	IME        bool
	Halted     bool
	Stopped    bool
	Cycles     uint64
	// eiPending delays IME's effect by one instruction, matching real
	// hardware: EI takes effect after the instruction following it.
	eiPending bool

	// LastInstruction is set to "???" when an illegal opcode executes
	// (instead of trapping). Legal opcodes do not update it, so it keeps
	// its value until the next illegal opcode or a state reset.
	LastInstruction string
}

// Flag bits within F. Bits 0-3 of F are always zero on real hardware.
const (
	FlagZ = 7
	FlagN = 6
	FlagH = 5
	FlagC = 4
)

// Interrupt bit positions, shared with internal/memory's IF/IE layout.
const (
	IntVBlank = 0
	IntSTAT   = 1
	IntTimer  = 2
	IntSerial = 3
	IntJoypad = 4
)

var interruptVectors = [5]uint16{0x0040, 0x0048, 0x0050, 0x0058, 0x0060}

// MemoryInterface is the bus port the CPU reads instructions and operands
// through, and reads/writes IF/IE through for interrupt polling.
type MemoryInterface interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, value uint8)
	// InterruptFlags returns the current IF and IE register values.
	InterruptFlags() (ifReg, ieReg uint8)
	// AckInterrupt clears the given IF bit after it has been serviced.
	AckInterrupt(bit uint8)
}

// LoggerInterface is the CPU's logging port, decoupled from internal/debug
// to avoid an import cycle.
type LoggerInterface interface {
	LogCPU(opcode uint8, state CPUState, cycles int)
}

// CPU is the LR35902 interpreter: fetch, decode, execute, poll interrupts.
type CPU struct {
	State CPUState
	Mem   MemoryInterface
	Log   LoggerInterface
}

// NewCPU creates a CPU wired to the given memory port. Reset is left to
// the caller (internal/emulator sets the post-boot register values after
// construction, matching the documented DMG power-up state).
func NewCPU(mem MemoryInterface, log LoggerInterface) *CPU {
	return &CPU{Mem: mem, Log: log}
}

// Reset sets the documented DMG post-boot-ROM register state (as if the
// boot ROM had just handed off to cartridge code at 0x0100).
func (c *CPU) Reset() {
	c.State = CPUState{
		A: 0x01, F: 0xB0,
		B: 0x00, C: 0x13,
		D: 0x00, E: 0xD8,
		H: 0x01, L: 0x4D,
		SP: 0xFFFE,
		PC: 0x0100,
		IME: false,
	}
}

// SetEntryPoint overrides PC, used when a boot ROM is NOT attached and
// execution should start directly at the cartridge's entry point.
func (c *CPU) SetEntryPoint(pc uint16) {
	c.State.PC = pc
}

func (c *CPU) flag(bit uint8) bool {
	return c.State.F&(1<<bit) != 0
}

func (c *CPU) setFlag(bit uint8, value bool) {
	if value {
		c.State.F |= 1 << bit
	} else {
		c.State.F &^= 1 << bit
	}
}

func (c *CPU) af() uint16 { return uint16(c.State.A)<<8 | uint16(c.State.F) }
func (c *CPU) bc() uint16 { return uint16(c.State.B)<<8 | uint16(c.State.C) }
func (c *CPU) de() uint16 { return uint16(c.State.D)<<8 | uint16(c.State.E) }
func (c *CPU) hl() uint16 { return uint16(c.State.H)<<8 | uint16(c.State.L) }

func (c *CPU) setAF(v uint16) {
	c.State.A = uint8(v >> 8)
	c.State.F = uint8(v) & 0xF0
}
func (c *CPU) setBC(v uint16) { c.State.B, c.State.C = uint8(v>>8), uint8(v) }
func (c *CPU) setDE(v uint16) { c.State.D, c.State.E = uint8(v>>8), uint8(v) }
func (c *CPU) setHL(v uint16) { c.State.H, c.State.L = uint8(v>>8), uint8(v) }

func (c *CPU) fetch8() uint8 {
	v := c.Mem.Read8(c.State.PC)
	c.State.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	low := c.fetch8()
	high := c.fetch8()
	return uint16(low) | uint16(high)<<8
}

func (c *CPU) push16(v uint16) {
	c.State.SP--
	c.Mem.Write8(c.State.SP, uint8(v>>8))
	c.State.SP--
	c.Mem.Write8(c.State.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	low := c.Mem.Read8(c.State.SP)
	c.State.SP++
	high := c.Mem.Read8(c.State.SP)
	c.State.SP++
	return uint16(low) | uint16(high)<<8
}

// Step runs one "instruction slot": interrupt service if one is pending
// and enabled, else HALT idling, else a normal fetch/decode/execute.
// Returns the number of T-cycles consumed, for the caller to drive the
// PPU/bus/APU forward by the same amount (see internal/clock.Scheduler).
func (c *CPU) Step() (int, error) {
	// An EI retired by the previous Step enables IME only after this
	// step's instruction has run (unless that instruction was DI).
	imeDue := c.State.eiPending

	if cycles, serviced := c.serviceInterrupt(); serviced {
		return cycles, nil
	}

	if c.State.Halted {
		return 4, nil
	}

	if c.Log != nil {
		c.Log.LogCPU(c.Mem.Read8(c.State.PC), c.State, 0)
	}

	opcode := c.fetch8()
	cycles, err := c.execute(opcode)
	if imeDue && c.State.eiPending {
		c.State.eiPending = false
		c.State.IME = true
	}
	c.State.Cycles += uint64(cycles)
	return cycles, err
}

// serviceInterrupt polls IF&IE ascending from bit 0 (VBlank) to bit 4
// (Joypad) and services the lowest-numbered pending, enabled interrupt.
// original_source's cpu.h scans descending and returns on first match,
// letting a higher-numbered interrupt wrongly preempt a lower one; this
// is corrected here per spec to scan ascending. HALT is woken by any
// pending&enabled interrupt even while IME is off.
func (c *CPU) serviceInterrupt() (int, bool) {
	ifReg, ieReg := c.Mem.InterruptFlags()
	pending := ifReg & ieReg & 0x1F
	if pending == 0 {
		return 0, false
	}

	if c.State.Halted {
		c.State.Halted = false
	}

	if !c.State.IME {
		return 0, false
	}

	var bit uint8
	for bit = 0; bit < 5; bit++ {
		if pending&(1<<bit) != 0 {
			break
		}
	}

	c.State.IME = false
	c.Mem.AckInterrupt(bit)
	c.push16(c.State.PC)
	c.State.PC = interruptVectors[bit]
	return 20, true
}

// String renders the PC as a plain 4-digit hex address, for logging.
func (s CPUState) String() string {
	return fmt.Sprintf("PC:%04X SP:%04X AF:%02X%02X BC:%02X%02X DE:%02X%02X HL:%02X%02X",
		s.PC, s.SP, s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L)
}
