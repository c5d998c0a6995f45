package emulator

import (
	"bytes"
	"encoding/gob"
	"testing"
)

// minimalROM returns a 32KB mapper-less cartridge image with just enough
// header fields set for Cartridge.LoadROM to accept it.
func minimalROM() []uint8 {
	rom := make([]uint8, 0x8000)
	rom[0x0147] = 0x00 // ROM ONLY
	rom[0x0148] = 0x00 // 32KB
	rom[0x0149] = 0x00 // no RAM
	return rom
}

func TestSaveStateRoundTrip(t *testing.T) {
	src := NewEmulator()
	if err := src.LoadROM(minimalROM()); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	src.Start()

	src.CPU.State.A = 0x42
	src.CPU.State.PC = 0x1234
	src.PPU.LY = 77
	src.PPU.SCX = 10
	src.Bus.DIV = 55

	data, err := src.SaveState()
	if err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	dst := NewEmulator()
	if err := dst.LoadROM(minimalROM()); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	if err := dst.LoadState(data); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	if dst.CPU.State.A != 0x42 {
		t.Errorf("A = 0x%02X, want 0x42", dst.CPU.State.A)
	}
	if dst.CPU.State.PC != 0x1234 {
		t.Errorf("PC = 0x%04X, want 0x1234", dst.CPU.State.PC)
	}
	if dst.PPU.LY != 77 {
		t.Errorf("LY = %d, want 77", dst.PPU.LY)
	}
	if dst.PPU.SCX != 10 {
		t.Errorf("SCX = %d, want 10", dst.PPU.SCX)
	}
	if dst.Bus.DIV != 55 {
		t.Errorf("DIV = %d, want 55", dst.Bus.DIV)
	}
	if !dst.Running {
		t.Errorf("Running = false, want true (restored from snapshot)")
	}
}

func TestLoadStateRejectsWrongVersion(t *testing.T) {
	e := NewEmulator()
	if err := e.LoadROM(minimalROM()); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	bad := SaveState{
		Version:    saveStateVersion + 1,
		CPUState:   e.CPU.State,
		BusState:   e.Bus.SaveState(),
		PPUState:   e.PPU.SaveState(),
		APUState:   e.APU.SaveState(),
		InputState: e.Input.SaveState(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(bad); err != nil {
		t.Fatalf("gob encode failed: %v", err)
	}

	if err := e.LoadState(buf.Bytes()); err == nil {
		t.Errorf("LoadState accepted mismatched version, want error")
	}
}
