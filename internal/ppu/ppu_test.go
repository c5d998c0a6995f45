package ppu

import "testing"

// countingRequester counts RequestInterrupt calls per bit, standing in
// for the bus during isolated PPU tests.
type countingRequester struct {
	counts map[uint8]int
}

func newCountingRequester() *countingRequester {
	return &countingRequester{counts: make(map[uint8]int)}
}

func (r *countingRequester) RequestInterrupt(bit uint8) {
	r.counts[bit]++
}

func TestFrameTiming(t *testing.T) {
	p := NewPPU()
	req := newCountingRequester()
	p.SetInterruptRequester(req)

	const cyclesPerFrame = 154 * 456 / 4 // 17556
	lyHistogram := make(map[uint8]int)
	frameOverTransitions := 0
	wasFrameOver := false

	for i := 0; i < cyclesPerFrame; i++ {
		p.Step()
		lyHistogram[p.LY]++
		if p.FrameOver && !wasFrameOver {
			frameOverTransitions++
		}
		wasFrameOver = p.FrameOver
	}

	if frameOverTransitions != 1 {
		t.Errorf("FrameOver transitioned %d times, want 1", frameOverTransitions)
	}
	if !p.FrameOver {
		t.Errorf("FrameOver not set after %d cycles", cyclesPerFrame)
	}
	if got := req.counts[intVBlank]; got != 1 {
		t.Errorf("VBlank interrupt requested %d times, want 1", got)
	}

	for ly := uint8(0); ly < 154; ly++ {
		if lyHistogram[ly] != 114 {
			t.Errorf("LY=%d observed %d times, want 114", ly, lyHistogram[ly])
		}
	}
}

func TestSpriteCapTenPerScanline(t *testing.T) {
	p := NewPPU()
	p.LCDC |= 0x02 // sprites enabled

	// Place 15 8x8 sprites all visible on scanline 10, ascending X so the
	// first ten by OAM order should also be the first ten by X order.
	// Y=19 puts dy=9 (19-10), within the required (8,16] window for 8x8 sprites.
	for i := 0; i < 15; i++ {
		base := i * 4
		p.OAM[base] = 19
		p.OAM[base+1] = uint8(8 + i)
		p.OAM[base+2] = 0
		p.OAM[base+3] = 0
	}

	p.scanline = 10
	p.selectSprites()

	if len(p.sprites) != 10 {
		t.Fatalf("selected %d sprites, want 10 (cap)", len(p.sprites))
	}
	for i, s := range p.sprites {
		if s.oamIndex != i {
			t.Errorf("sprites[%d].oamIndex = %d, want %d (ascending X matches OAM order here)", i, s.oamIndex, i)
		}
	}
}

func TestSpriteSortAscendingXWithOAMTiebreak(t *testing.T) {
	p := NewPPU()
	p.LCDC |= 0x02

	// Sprite 0 at X=50, sprite 1 at X=20, sprite 2 tied with sprite1 at X=20.
	xs := []uint8{50, 20, 20}
	for i, x := range xs {
		base := i * 4
		p.OAM[base] = 19
		p.OAM[base+1] = x
		p.OAM[base+2] = 0
		p.OAM[base+3] = 0
	}

	p.scanline = 10
	p.selectSprites()

	if len(p.sprites) != 3 {
		t.Fatalf("selected %d sprites, want 3", len(p.sprites))
	}
	if p.sprites[0].oamIndex != 1 || p.sprites[1].oamIndex != 2 {
		t.Errorf("expected OAM index 1 then 2 (tie broken by OAM order) before index 0, got %d,%d,%d",
			p.sprites[0].oamIndex, p.sprites[1].oamIndex, p.sprites[2].oamIndex)
	}
	if p.sprites[2].oamIndex != 0 {
		t.Errorf("expected OAM index 0 (X=50) last, got %d", p.sprites[2].oamIndex)
	}
}
