package ppu

// Screen dimensions of the DMG LCD.
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// LY/STAT mode values.
const (
	ModeHBlank = 0
	ModeVBlank = 1
	ModeOAM    = 2
	ModeTransfer = 3
)

const (
	intVBlank = 0
	intSTAT   = 1
)

// InterruptRequester is the callback port the PPU raises IF bits through.
// The PPU never owns the bus; internal/emulator wires this to the bus at
// startup, matching spec's explicit bus-borrow model.
type InterruptRequester interface {
	RequestInterrupt(bit uint8)
}

// spriteHit is one entry of a scanline's selected-sprite list: the OAM
// index plus the four raw attribute bytes, snapshotted at selection time.
type spriteHit struct {
	oamIndex int
	y, x     uint8
	tile     uint8
	flags    uint8
}

// PPU is the DMG picture processing unit: VRAM/OAM storage, the LCDC/STAT
// register file, the per-scanline mode FSM, and the scanline-atomic
// renderer. Implements memory.IOHandler.
type PPU struct {
	VRAM [0x2000]uint8 // 0x8000-0x9FFF
	OAM  [0xA0]uint8   // 0xFE00-0xFE9F

	LCDC, STAT      uint8
	SCY, SCX        uint8
	LY, LYC         uint8
	BGP, OBP0, OBP1 uint8
	WY, WX          uint8

	Mode            int
	cycle           int
	scanline        int
	windowScanlines int
	vblank          bool

	FrameOver    bool
	ScanlineOver bool
	frameCounter uint16

	Framebuffer [ScreenHeight][ScreenWidth]uint8

	tileBuffer [64]uint8
	sprites    []spriteHit

	Interrupts InterruptRequester
}

// NewPPU creates a PPU with LCDC/BGP at the documented DMG post-boot-ROM
// values (see internal/memory.Bus.Reset, which also writes these).
func NewPPU() *PPU {
	return &PPU{
		LCDC:    0x91,
		BGP:     0xFC,
		sprites: make([]spriteHit, 0, 10),
	}
}

// SetInterruptRequester wires the callback used to raise VBlank/STAT.
func (p *PPU) SetInterruptRequester(ir InterruptRequester) {
	p.Interrupts = ir
}

func (p *PPU) requestInterrupt(bit uint8) {
	if p.Interrupts != nil {
		p.Interrupts.RequestInterrupt(bit)
	}
}

// GetScanline returns the current LY value, satisfying debug.PPUStateReader.
func (p *PPU) GetScanline() int { return p.scanline }

// GetMode returns the current FSM mode (0-3), satisfying debug.PPUStateReader.
func (p *PPU) GetMode() int { return p.Mode }

// GetVBlankFlag reports whether LY is currently in the VBlank range.
func (p *PPU) GetVBlankFlag() bool { return p.vblank }

// GetFrameCounter returns the number of frames completed since reset.
func (p *PPU) GetFrameCounter() uint16 { return p.frameCounter }

// ReadOAM reads a single OAM byte by flat offset, satisfying debug.OAMReader.
func (p *PPU) ReadOAM(offset uint8) uint8 {
	if int(offset) >= len(p.OAM) {
		return 0xFF
	}
	return p.OAM[offset]
}

// Read8 reads VRAM, OAM, or one of the LCDC/STAT/scroll/palette registers.
func (p *PPU) Read8(addr uint16) uint8 {
	switch {
	case addr >= 0x8000 && addr < 0xA000:
		return p.VRAM[addr-0x8000]
	case addr >= 0xFE00 && addr < 0xFEA0:
		return p.OAM[addr-0xFE00]
	case addr == 0xFF40:
		return p.LCDC
	case addr == 0xFF41:
		return p.STAT | 0x80
	case addr == 0xFF42:
		return p.SCY
	case addr == 0xFF43:
		return p.SCX
	case addr == 0xFF44:
		return p.LY
	case addr == 0xFF45:
		return p.LYC
	case addr == 0xFF47:
		return p.BGP
	case addr == 0xFF48:
		return p.OBP0
	case addr == 0xFF49:
		return p.OBP1
	case addr == 0xFF4A:
		return p.WY
	case addr == 0xFF4B:
		return p.WX
	default:
		return 0xFF
	}
}

// Write8 writes VRAM, OAM, or one of the LCDC/STAT/scroll/palette
// registers. LY is read-only; writes to it are ignored.
func (p *PPU) Write8(addr uint16, value uint8) {
	switch {
	case addr >= 0x8000 && addr < 0xA000:
		p.VRAM[addr-0x8000] = value
	case addr >= 0xFE00 && addr < 0xFEA0:
		p.OAM[addr-0xFE00] = value
	case addr == 0xFF40:
		p.LCDC = value
	case addr == 0xFF41:
		p.STAT = (p.STAT & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.SCY = value
	case addr == 0xFF43:
		p.SCX = value
	case addr == 0xFF45:
		p.LYC = value
	case addr == 0xFF47:
		p.BGP = value
	case addr == 0xFF48:
		p.OBP0 = value
	case addr == 0xFF49:
		p.OBP1 = value
	case addr == 0xFF4A:
		p.WY = value
	case addr == 0xFF4B:
		p.WX = value
	}
}

// Step advances the PPU by one 4-cycle quantum, called in lockstep with
// the bus and APU (see internal/clock.Scheduler). Mirrors
// original_source's ppu.h do_cycle() mode thresholds and interrupt
// triggers exactly.
func (p *PPU) Step() {
	if p.LCDC&0x80 == 0 {
		return
	}

	p.cycle += 4

	switch {
	case p.cycle < 80:
		if p.Mode != ModeOAM && p.STAT&0x20 != 0 {
			p.requestInterrupt(intSTAT)
		}
		p.Mode = ModeOAM

	case p.cycle < 252:
		p.Mode = ModeTransfer

	case p.cycle < 456:
		if p.Mode != ModeHBlank {
			p.renderScanline()
		}
		if p.Mode != ModeHBlank && p.STAT&0x08 != 0 {
			p.requestInterrupt(intSTAT)
		}
		p.Mode = ModeHBlank

	default:
		p.scanline++
		if p.LCDC&0x20 != 0 {
			p.windowScanlines++
		}

		coincidence := (p.scanline % 154) == int(p.LYC)
		if coincidence {
			p.STAT |= 0x04
		} else {
			p.STAT &^= 0x04
		}
		if coincidence && p.STAT&0x40 != 0 {
			p.requestInterrupt(intSTAT)
		}

		p.cycle = 0
		p.ScanlineOver = true
	}

	if p.scanline > 143 {
		if !p.vblank {
			p.requestInterrupt(intVBlank)
			if p.STAT&0x10 != 0 {
				p.requestInterrupt(intSTAT)
			}
		}
		p.vblank = true
		p.Mode = ModeVBlank
	}

	if p.scanline > 153 {
		p.scanline = 0
		p.windowScanlines = 0
		p.vblank = false
		p.FrameOver = true
		p.frameCounter++
	}

	p.LY = uint8(p.scanline)
	p.STAT = (p.STAT &^ 0x03) | uint8(p.Mode)
}

// renderScanline selects and sorts this line's sprites, then composites
// all 160 pixels into the framebuffer row for the current LY.
func (p *PPU) renderScanline() {
	if p.scanline > 143 {
		return
	}

	p.selectSprites()
	for x := 0; x < ScreenWidth; x++ {
		p.Framebuffer[p.scanline][x] = p.drawPixel(x)
	}
}

// selectSprites scans OAM 0..39 in order, collecting up to ten sprites
// visible on the current scanline, then stable-sorts them by ascending X
// via selection-min over the tail (ties preserve OAM order).
func (p *PPU) selectSprites() {
	p.sprites = p.sprites[:0]
	tall := p.LCDC&0x04 != 0
	dyMin := uint8(8)
	if tall {
		dyMin = 0
	}

	for i := 0; i < 40 && len(p.sprites) < 10; i++ {
		base := i * 4
		y := p.OAM[base]
		dy := int(y) - p.scanline
		if dy > int(dyMin) && dy <= 16 {
			p.sprites = append(p.sprites, spriteHit{
				oamIndex: i,
				y:        y,
				x:        p.OAM[base+1],
				tile:     p.OAM[base+2],
				flags:    p.OAM[base+3],
			})
		}
	}

	for i := range p.sprites {
		minIdx := i
		for j := i + 1; j < len(p.sprites); j++ {
			if p.sprites[j].x < p.sprites[minIdx].x {
				minIdx = j
			}
		}
		// Shift rather than swap, so entries skipped over keep their order.
		hit := p.sprites[minIdx]
		copy(p.sprites[i+1:minIdx+1], p.sprites[i:minIdx])
		p.sprites[i] = hit
	}
}

// drawPixel composites background, window, and sprite samples at column x
// of the current scanline and returns the final palette-mapped shade.
func (p *PPU) drawPixel(x int) uint8 {
	background := p.backgroundPixel(x, p.scanline)
	window := p.windowPixel(x, p.scanline)
	spritePixel, spritePriority, spritePalette := p.spritePixelAt(x, p.scanline)

	bgOrWindow := background
	if window >= 0 {
		bgOrWindow = uint8(window)
	}

	if spritePixel == 0 {
		return p.paletteLookup(p.BGP, bgOrWindow)
	}
	if spritePriority && bgOrWindow != 0 {
		return p.paletteLookup(p.BGP, bgOrWindow)
	}
	if spritePalette {
		return p.paletteLookup(p.OBP1, spritePixel)
	}
	return p.paletteLookup(p.OBP0, spritePixel)
}

func (p *PPU) paletteLookup(palette, pixel uint8) uint8 {
	return (palette >> (pixel * 2)) & 0x03
}

func (p *PPU) backgroundPixel(x, y int) uint8 {
	if p.LCDC&0x01 == 0 {
		return 0
	}
	scrolledX := (x + int(p.SCX)) % 256
	scrolledY := (y + int(p.SCY)) % 256
	base := uint16(0x9800)
	if p.LCDC&0x08 != 0 {
		base = 0x9C00
	}
	return p.sampleTilemap(base, scrolledX, scrolledY)
}

func (p *PPU) windowPixel(x, y int) int {
	if p.LCDC&0x01 == 0 || p.LCDC&0x20 == 0 {
		return -1
	}
	if x < int(p.WX)-7 || y < int(p.WY) {
		return -1
	}
	scrolledX := x + 7 - int(p.WX)
	scrolledY := y - int(p.WY)
	base := uint16(0x9800)
	if p.LCDC&0x40 != 0 {
		base = 0x9C00
	}
	return int(p.sampleTilemap(base, scrolledX, scrolledY))
}

func (p *PPU) sampleTilemap(base uint16, x, y int) uint8 {
	tileX, tileY := x/8, y/8
	fineX, fineY := x%8, y%8

	tileIndex := p.VRAM[base-0x8000+uint16(tileY*32+tileX)]
	tileAddr := p.backgroundTileAddress(tileIndex)

	low := p.VRAM[tileAddr-0x8000+uint16(2*fineY)]
	high := p.VRAM[tileAddr-0x8000+uint16(2*fineY+1)]
	return bit(low, 7-fineX) + 2*bit(high, 7-fineX)
}

// backgroundTileAddress resolves a BG/window tile index to a VRAM address
// per LCDC bit 4's addressing mode (0x8000-unsigned vs 0x9000-signed).
func (p *PPU) backgroundTileAddress(index uint8) uint16 {
	if p.LCDC&0x10 != 0 {
		return 0x8000 + 16*uint16(index)
	}
	if index > 0x7F {
		return 0x8000 + 16*uint16(index)
	}
	return 0x9000 + 16*uint16(index)
}

// spritePixelAt returns the raw (pre-palette) sprite pixel at column x of
// the current scanline, its BG-over-OBJ priority flag, and its palette
// selection. A zero pixel means no opaque sprite covers this column.
func (p *PPU) spritePixelAt(x, y int) (pixel uint8, priority bool, palette bool) {
	if p.LCDC&0x02 == 0 {
		return 0, false, false
	}

	tall := p.LCDC&0x04 != 0
	height := 8
	if tall {
		height = 16
	}

	for _, s := range p.sprites {
		dx := int(s.x) - x
		if dx <= 0 || dx > 8 {
			continue
		}

		fineX := x - (int(s.x) - 8)
		fineY := y - (int(s.y) - 16)

		if s.flags&0x20 != 0 {
			fineX = 7 - fineX
		}
		if s.flags&0x40 != 0 {
			fineY = height - 1 - fineY
		}

		var tileIndex uint8
		if height == 8 {
			tileIndex = s.tile
		} else {
			tileIndex = s.tile & 0xFE
			if fineY > 7 {
				tileIndex++
			}
		}
		p.loadTile(tileIndex)

		value := p.tileBuffer[8*(fineY%8)+fineX]
		if value != 0 {
			return value, s.flags&0x80 != 0, s.flags&0x10 != 0
		}
	}

	return 0, false, false
}

// loadTile decodes the 16-byte tile at VRAM index `index` (always via the
// unsigned 0x8000 base, which is how OAM tile indices are always
// addressed) into the 64-entry scratch pixel buffer.
func (p *PPU) loadTile(index uint8) {
	start := 16 * uint16(index)
	var raw [16]uint8
	copy(raw[:], p.VRAM[start:start+16])

	for row := 0; row < 8; row++ {
		for px := 0; px < 8; px++ {
			value := bit(raw[2*row], px) + 2*bit(raw[2*row+1], px)
			p.tileBuffer[row*8+(7-px)] = value
		}
	}
}

func bit(v uint8, n int) uint8 {
	return (v >> uint(n)) & 1
}

// State is a flat snapshot of every field a save-state needs to restore
// the PPU exactly, including the parts of the mode FSM (cycle/scanline)
// that Read8/Write8 never expose to the bus.
type State struct {
	VRAM [0x2000]uint8
	OAM  [0xA0]uint8

	LCDC, STAT      uint8
	SCY, SCX        uint8
	LY, LYC         uint8
	BGP, OBP0, OBP1 uint8
	WY, WX          uint8

	Mode            int
	Cycle           int
	Scanline        int
	WindowScanlines int
	VBlank          bool

	FrameOver    bool
	ScanlineOver bool
	FrameCounter uint16

	Framebuffer [ScreenHeight][ScreenWidth]uint8
}

// SaveState captures the complete PPU state for serialization.
func (p *PPU) SaveState() State {
	return State{
		VRAM: p.VRAM, OAM: p.OAM,
		LCDC: p.LCDC, STAT: p.STAT,
		SCY: p.SCY, SCX: p.SCX,
		LY: p.LY, LYC: p.LYC,
		BGP: p.BGP, OBP0: p.OBP0, OBP1: p.OBP1,
		WY: p.WY, WX: p.WX,
		Mode: p.Mode, Cycle: p.cycle, Scanline: p.scanline,
		WindowScanlines: p.windowScanlines, VBlank: p.vblank,
		FrameOver: p.FrameOver, ScanlineOver: p.ScanlineOver,
		FrameCounter: p.frameCounter,
		Framebuffer:  p.Framebuffer,
	}
}

// LoadState restores a previously captured snapshot.
func (p *PPU) LoadState(s State) {
	p.VRAM, p.OAM = s.VRAM, s.OAM
	p.LCDC, p.STAT = s.LCDC, s.STAT
	p.SCY, p.SCX = s.SCY, s.SCX
	p.LY, p.LYC = s.LY, s.LYC
	p.BGP, p.OBP0, p.OBP1 = s.BGP, s.OBP0, s.OBP1
	p.WY, p.WX = s.WY, s.WX
	p.Mode, p.cycle, p.scanline = s.Mode, s.Cycle, s.Scanline
	p.windowScanlines, p.vblank = s.WindowScanlines, s.VBlank
	p.FrameOver, p.ScanlineOver = s.FrameOver, s.ScanlineOver
	p.frameCounter = s.FrameCounter
	p.Framebuffer = s.Framebuffer
}
