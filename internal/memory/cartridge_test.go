package memory

import (
	"bytes"
	"testing"
)

func TestCartridgeHeaderParsing(t *testing.T) {
	rom := buildROM(0x03, 0x00, 0x02, 0x8000) // MBC1+RAM+BATTERY, 32KB ROM, 8KB RAM
	cart := NewCartridge()
	if err := cart.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	if !cart.HasRAM || !cart.HasBattery {
		t.Errorf("HasRAM=%v HasBattery=%v, want true/true for mapper 0x03", cart.HasRAM, cart.HasBattery)
	}
	if cart.RAMSize != 0x2000 {
		t.Errorf("RAMSize = 0x%X, want 0x2000", cart.RAMSize)
	}
	if cart.EntryPoint() != 0x0100 {
		t.Errorf("EntryPoint() = 0x%04X, want 0x0100", cart.EntryPoint())
	}
}

func TestMBC1BatteryRAMRoundTrip(t *testing.T) {
	rom := buildROM(0x03, 0x00, 0x02, 0x8000)
	cart := NewCartridge()
	if err := cart.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	cart.MBC.WriteROM(0x0000, 0x0A) // enable external RAM
	cart.MBC.WriteRAM(0xA000, 0x5A)

	var buf bytes.Buffer
	if err := cart.MBC.SaveRAM(&buf); err != nil {
		t.Fatalf("SaveRAM failed: %v", err)
	}

	restored := NewCartridge()
	if err := restored.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	restored.MBC.WriteROM(0x0000, 0x0A)
	if err := restored.MBC.LoadRAM(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("LoadRAM failed: %v", err)
	}

	if got := restored.MBC.ReadRAM(0xA000); got != 0x5A {
		t.Errorf("restored RAM[0] = 0x%02X, want 0x5A", got)
	}
}

func TestUnsupportedMapperRejected(t *testing.T) {
	rom := buildROM(0xFE, 0x00, 0x00, 0x8000)
	cart := NewCartridge()
	if err := cart.LoadROM(rom); err == nil {
		t.Errorf("LoadROM with unsupported mapper 0xFE succeeded, want error")
	}
}
