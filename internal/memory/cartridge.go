package memory

import (
	"fmt"
	"io"
)

// romSizeFromHeader maps header byte 0x0148 to total ROM size in bytes.
// 0x52-0x54 are special-case sizes used by a handful of real cartridges;
// everything else follows 32KB << value.
func romSizeFromHeader(value uint8) uint32 {
	switch value {
	case 0x52:
		return 0x120000
	case 0x53:
		return 0x140000
	case 0x54:
		return 0x180000
	default:
		return 0x8000 << value
	}
}

// ramSizeTable maps header byte 0x0149 to external RAM size in bytes.
var ramSizeTable = [6]uint32{0, 0x800, 0x2000, 0x8000, 0x20000, 0x10000}

func ramSizeFromHeader(value uint8) uint32 {
	if int(value) >= len(ramSizeTable) {
		return 0
	}
	return ramSizeTable[value]
}

// Cartridge holds the raw ROM image and parsed header fields, and owns the
// MBC instance that interprets bank-switching writes for this ROM.
type Cartridge struct {
	ROMData []uint8
	ROMSize uint32

	MapperID   uint8
	RAMSize    uint32
	HasRAM     bool
	HasBattery bool

	MBC MBC
}

// NewCartridge creates an empty cartridge with no ROM loaded.
func NewCartridge() *Cartridge {
	return &Cartridge{ROMData: make([]uint8, 0)}
}

// LoadROM parses a raw .gb image (mapper type at 0x0147, ROM size at
// 0x0148, RAM size at 0x0149) and wires up the matching MBC.
func (c *Cartridge) LoadROM(data []uint8) error {
	if len(data) < 0x150 {
		return fmt.Errorf("ROM too small: %d bytes (need at least 0x150 for header)", len(data))
	}

	c.MapperID = data[0x0147]
	c.RAMSize = ramSizeFromHeader(data[0x0149])
	c.HasRAM, c.HasBattery = mapperRAMBattery(c.MapperID)

	declaredSize := romSizeFromHeader(data[0x0148])
	if int(declaredSize) > len(data) {
		// Some dumps are trimmed to the exact payload without padding;
		// fall back to what's actually present rather than failing.
		declaredSize = uint32(len(data))
	}

	c.ROMData = make([]uint8, declaredSize)
	copy(c.ROMData, data[:declaredSize])
	c.ROMSize = declaredSize

	mbc, err := newMBC(c.MapperID, c)
	if err != nil {
		return err
	}
	c.MBC = mbc
	return nil
}

// mapperRAMBattery reports whether a mapper ID implies external RAM
// and/or a battery, refining spec.md's {None, MBC1, MBC3} model with the
// has-RAM/has-battery flags original_source also tracks per mapper.
func mapperRAMBattery(id uint8) (hasRAM, hasBattery bool) {
	switch id {
	case 0x02, 0x12, 0x1A:
		return true, false
	case 0x03, 0x06, 0x09, 0x0D, 0x0F, 0x10, 0x13, 0x1B, 0x1E, 0x22, 0xFF:
		return true, true
	default:
		return false, false
	}
}

// HasROM returns true if a ROM is loaded.
func (c *Cartridge) HasROM() bool {
	return c.ROMSize > 0
}

// ReadROM reads one byte from the flat ROM backing array. Out-of-range
// reads return 0 and are not logged; bounding an address to an actual
// bank before calling this is the caller's (MBC's) responsibility.
func (c *Cartridge) ReadROM(addr uint32) uint8 {
	if addr >= c.ROMSize {
		return 0
	}
	return c.ROMData[addr]
}

// EntryPoint returns the boot entry point. Every valid DMG ROM places its
// startup code at 0x0100 (the four-byte NOP/JP stub mandated by the
// header layout), so this is a fixed fact rather than a parsed field.
func (c *Cartridge) EntryPoint() uint16 {
	return 0x0100
}

// MBC is the bank-switching interface every mapper implements. ROM reads
// and writes use cartridge-relative addresses (0x0000-0x7FFF); RAM reads
// and writes use bus addresses (0xA000-0xBFFF).
type MBC interface {
	ReadROM(addr uint16) uint8
	WriteROM(addr uint16, value uint8)
	ReadRAM(addr uint16) uint8
	WriteRAM(addr uint16, value uint8)

	// LoadRAM/SaveRAM persist battery-backed external RAM; no-ops for
	// mappers without a battery.
	LoadRAM(r io.Reader) error
	SaveRAM(w io.Writer) error
}

func newMBC(mapperID uint8, cart *Cartridge) (MBC, error) {
	switch mapperID {
	case 0x00, 0x08, 0x09:
		return &mbcNone{cart: cart}, nil
	case 0x01, 0x02, 0x03:
		return &mbc1{cart: cart, romBank: 1}, nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return &mbc3{cart: cart, romBank: 1}, nil
	default:
		return nil, fmt.Errorf("unsupported mapper type 0x%02X", mapperID)
	}
}

// mbcNone is mapper 0x00: no banking, straight-through ROM reads, optional
// unbanked 8KB RAM, all writes to the ROM region ignored.
type mbcNone struct {
	cart *Cartridge
	ram  [0x2000]uint8
}

func (m *mbcNone) ReadROM(addr uint16) uint8    { return m.cart.ReadROM(uint32(addr)) }
func (m *mbcNone) WriteROM(addr uint16, v uint8) {}

func (m *mbcNone) ReadRAM(addr uint16) uint8 {
	if !m.cart.HasRAM {
		return 0xFF
	}
	return m.ram[addr&0x1FFF]
}

func (m *mbcNone) WriteRAM(addr uint16, value uint8) {
	if !m.cart.HasRAM {
		return
	}
	m.ram[addr&0x1FFF] = value
}

func (m *mbcNone) LoadRAM(r io.Reader) error {
	if !m.cart.HasBattery {
		return nil
	}
	_, err := io.ReadFull(r, m.ram[:])
	return err
}

func (m *mbcNone) SaveRAM(w io.Writer) error {
	if !m.cart.HasBattery {
		return nil
	}
	_, err := w.Write(m.ram[:])
	return err
}

// mbc1 implements the MBC1 mapper: 5-bit ROM bank number, a 2-bit
// secondary register shared between the upper ROM-bank bits (ROM mode)
// and the RAM bank number (RAM mode), and a mode toggle selecting which
// use the secondary register serves. Grounded on original_source's
// Mappers/MBC1.h.
type mbc1 struct {
	cart *Cartridge

	romBank    uint8 // 5 bits, 0 treated as 1
	secondary  uint8 // 2 bits
	ramMode    bool  // false = ROM mode (secondary extends ROM bank), true = RAM mode
	ramEnabled bool
	ram        [0x8000]uint8 // up to 4 banks of 8KB
}

func (m *mbc1) effectiveROMBank() uint32 {
	bank := uint32(m.romBank)
	if !m.ramMode {
		bank |= uint32(m.secondary) << 5
	}
	return bank
}

func (m *mbc1) ReadROM(addr uint16) uint8 {
	if addr < 0x4000 {
		return m.cart.ReadROM(uint32(addr))
	}
	return m.cart.ReadROM(m.effectiveROMBank()*0x4000 + uint32(addr-0x4000))
}

func (m *mbc1) WriteROM(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		m.romBank = value & 0x1F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr < 0x6000:
		m.secondary = value & 0x03
	case addr < 0x8000:
		m.ramMode = value&0x01 != 0
	}
}

func (m *mbc1) ramBank() uint32 {
	if m.ramMode {
		return uint32(m.secondary)
	}
	return 0
}

func (m *mbc1) ReadRAM(addr uint16) uint8 {
	if !m.cart.HasRAM || !m.ramEnabled {
		return 0xFF
	}
	return m.ram[m.ramBank()*0x2000+uint32(addr-0xA000)]
}

func (m *mbc1) WriteRAM(addr uint16, value uint8) {
	if !m.cart.HasRAM || !m.ramEnabled {
		return
	}
	m.ram[m.ramBank()*0x2000+uint32(addr-0xA000)] = value
}

func (m *mbc1) LoadRAM(r io.Reader) error {
	if !m.cart.HasBattery {
		return nil
	}
	_, err := io.ReadFull(r, m.ram[:m.cart.RAMSize])
	return err
}

func (m *mbc1) SaveRAM(w io.Writer) error {
	if !m.cart.HasBattery {
		return nil
	}
	_, err := w.Write(m.ram[:m.cart.RAMSize])
	return err
}

// mbc3 implements the MBC3 mapper: 7-bit ROM bank number, 2-bit RAM bank.
// The RTC latch register (0x6000-0x7FFF) is a no-op, matching
// original_source's Mappers/MBC3.h, which never models a real clock.
type mbc3 struct {
	cart *Cartridge

	romBank    uint8 // 7 bits, 0 treated as 1
	ramBank    uint8 // 2 bits
	ramEnabled bool
	ram        [0x8000]uint8
}

func (m *mbc3) ReadROM(addr uint16) uint8 {
	if addr < 0x4000 {
		return m.cart.ReadROM(uint32(addr))
	}
	return m.cart.ReadROM(uint32(m.romBank)*0x4000 + uint32(addr-0x4000))
}

func (m *mbc3) WriteROM(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr < 0x6000:
		if value <= 0x03 {
			m.ramBank = value
		}
	case addr < 0x8000:
		// RTC latch write; no RTC is modeled.
	}
}

func (m *mbc3) ReadRAM(addr uint16) uint8 {
	if !m.cart.HasRAM || !m.ramEnabled {
		return 0xFF
	}
	return m.ram[uint32(m.ramBank)*0x2000+uint32(addr-0xA000)]
}

func (m *mbc3) WriteRAM(addr uint16, value uint8) {
	if !m.cart.HasRAM || !m.ramEnabled {
		return
	}
	m.ram[uint32(m.ramBank)*0x2000+uint32(addr-0xA000)] = value
}

func (m *mbc3) LoadRAM(r io.Reader) error {
	if !m.cart.HasBattery {
		return nil
	}
	_, err := io.ReadFull(r, m.ram[:m.cart.RAMSize])
	return err
}

func (m *mbc3) SaveRAM(w io.Writer) error {
	if !m.cart.HasBattery {
		return nil
	}
	_, err := w.Write(m.ram[:m.cart.RAMSize])
	return err
}
