package cpu

import "testing"

// flatMemory is a minimal MemoryInterface backed by a flat 64KB array, for
// exercising the CPU in isolation from internal/memory.
type flatMemory struct {
	data [0x10000]uint8
	ifReg, ieReg uint8
}

func (m *flatMemory) Read8(addr uint16) uint8                { return m.data[addr] }
func (m *flatMemory) Write8(addr uint16, value uint8)         { m.data[addr] = value }
func (m *flatMemory) InterruptFlags() (uint8, uint8)          { return m.ifReg, m.ieReg }
func (m *flatMemory) AckInterrupt(bit uint8)                  { m.ifReg &^= 1 << bit }

func newTestCPU() (*CPU, *flatMemory) {
	mem := &flatMemory{}
	return NewCPU(mem, nil), mem
}

func TestAddAA(t *testing.T) {
	c, mem := newTestCPU()
	c.State.A = 0x88
	mem.data[0x0100] = 0x87 // ADD A,A
	c.State.PC = 0x0100

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step returned error: %v", err)
	}

	if c.State.A != 0x10 {
		t.Errorf("A = 0x%02X, want 0x10", c.State.A)
	}
	if !c.flag(FlagC) {
		t.Errorf("C flag not set")
	}
	if !c.flag(FlagH) {
		t.Errorf("H flag not set")
	}
	if c.flag(FlagN) {
		t.Errorf("N flag set, want clear")
	}
	if c.flag(FlagZ) {
		t.Errorf("Z flag set, want clear")
	}
}

func TestDAAAfterAdd(t *testing.T) {
	c, mem := newTestCPU()
	c.State.A = 0x45
	mem.data[0x0100] = 0xC6 // ADD A,d8
	mem.data[0x0101] = 0x38
	mem.data[0x0102] = 0x27 // DAA
	c.State.PC = 0x0100

	if _, err := c.Step(); err != nil {
		t.Fatalf("ADD step error: %v", err)
	}
	if _, err := c.Step(); err != nil {
		t.Fatalf("DAA step error: %v", err)
	}

	if c.State.A != 0x83 {
		t.Errorf("A = 0x%02X, want 0x83", c.State.A)
	}
	if c.flag(FlagC) {
		t.Errorf("C flag set, want clear")
	}
	if c.flag(FlagH) {
		t.Errorf("H flag set, want clear")
	}
}

func TestPopAF(t *testing.T) {
	c, mem := newTestCPU()
	c.State.SP = 0xFFFC
	mem.data[0xFFFC] = 0xFF
	mem.data[0xFFFD] = 0xFF
	mem.data[0x0100] = 0xF1 // POP AF
	c.State.PC = 0x0100

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step returned error: %v", err)
	}

	if c.State.A != 0xFF {
		t.Errorf("A = 0x%02X, want 0xFF", c.State.A)
	}
	if c.State.F != 0xF0 {
		t.Errorf("F = 0x%02X, want 0xF0 (low nibble always clear)", c.State.F)
	}
}

func TestLdHLSPPlusE8(t *testing.T) {
	c, mem := newTestCPU()
	c.State.SP = 0x000F
	mem.data[0x0100] = 0xF8 // LD HL,SP+e8
	mem.data[0x0101] = 0x01
	c.State.PC = 0x0100

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step returned error: %v", err)
	}

	if c.hl() != 0x0010 {
		t.Errorf("HL = 0x%04X, want 0x0010", c.hl())
	}
	if !c.flag(FlagH) {
		t.Errorf("H flag not set")
	}
	if c.flag(FlagC) {
		t.Errorf("C flag set, want clear")
	}
}

func TestJrNZBackwards(t *testing.T) {
	c, mem := newTestCPU()
	c.setFlag(FlagZ, false)
	mem.data[0x0100] = 0x20 // JR NZ,e8
	mem.data[0x0101] = 0xFE // -2
	c.State.PC = 0x0100

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step returned error: %v", err)
	}

	if c.State.PC != 0x0100 {
		t.Errorf("PC = 0x%04X, want 0x0100", c.State.PC)
	}
}

func TestIllegalOpcodeDoesNotTrap(t *testing.T) {
	c, mem := newTestCPU()
	mem.data[0x0100] = 0xD3 // undefined
	c.State.PC = 0x0100

	cycles, err := c.Step()
	if err != nil {
		t.Fatalf("illegal opcode trapped with error: %v", err)
	}
	if cycles != 4 {
		t.Errorf("cycles = %d, want 4", cycles)
	}
	if c.State.LastInstruction != "???" {
		t.Errorf("LastInstruction = %q, want \"???\"", c.State.LastInstruction)
	}
}

func TestIllegalCallVariantDoesNotCall(t *testing.T) {
	c, mem := newTestCPU()
	c.State.SP = 0xFFFE
	mem.data[0x0100] = 0xDD // looks like CALL's z/q pattern but undefined
	mem.data[0x0101] = 0x34
	mem.data[0x0102] = 0x12
	c.State.PC = 0x0100

	if _, err := c.Step(); err != nil {
		t.Fatalf("Step returned error: %v", err)
	}

	if c.State.PC != 0x0101 {
		t.Errorf("PC = 0x%04X, want 0x0101 (no-op, single byte consumed)", c.State.PC)
	}
	if c.State.SP != 0xFFFE {
		t.Errorf("SP = 0x%04X, want 0xFFFE (nothing pushed)", c.State.SP)
	}
}

func TestInterruptOrderingVBlankOverTimer(t *testing.T) {
	c, mem := newTestCPU()
	c.State.IME = true
	c.State.PC = 0x0200
	c.State.SP = 0xFFFE
	mem.ifReg = 0x05
	mem.ieReg = 0x1F

	cycles, err := c.Step()
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}

	if cycles != 20 {
		t.Errorf("cycles = %d, want 20", cycles)
	}
	if c.State.PC != 0x0040 {
		t.Errorf("PC = 0x%04X, want 0x0040 (VBlank vector)", c.State.PC)
	}
	if mem.ifReg != 0x04 {
		t.Errorf("IF = 0x%02X, want 0x04 (only VBlank bit cleared)", mem.ifReg)
	}
}
