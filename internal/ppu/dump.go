package ppu

import (
	"image"
	"image/color"
	"io"

	"github.com/jsummers/gobmp"
	"golang.org/x/image/draw"
)

// shadeColors maps the four 2-bit DMG shades to the classic green-tinted
// palette used by reference screenshots; index 0 is lightest.
var shadeColors = color.Palette{
	color.RGBA{R: 0x9B, G: 0xBC, B: 0x0F, A: 0xFF},
	color.RGBA{R: 0x8B, G: 0xAC, B: 0x0F, A: 0xFF},
	color.RGBA{R: 0x30, G: 0x62, B: 0x30, A: 0xFF},
	color.RGBA{R: 0x0F, G: 0x38, B: 0x0F, A: 0xFF},
}

// DumpFramebufferBMP writes the current framebuffer as a BMP image via
// gobmp, for `cmd/emulator -dump-frame`.
func (p *PPU) DumpFramebufferBMP(w io.Writer) error {
	img := image.NewPaletted(image.Rect(0, 0, ScreenWidth, ScreenHeight), shadeColors)
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			img.SetColorIndex(x, y, p.Framebuffer[y][x])
		}
	}
	return gobmp.Encode(w, img)
}

// DumpFramebufferBMPScaled writes the framebuffer upscaled by an integer
// factor using nearest-neighbor resampling, so a 160x144 dump is legible
// at normal screen viewing sizes without blending DMG shade boundaries.
func (p *PPU) DumpFramebufferBMPScaled(w io.Writer, factor int) error {
	if factor < 1 {
		factor = 1
	}
	src := image.NewPaletted(image.Rect(0, 0, ScreenWidth, ScreenHeight), shadeColors)
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			src.SetColorIndex(x, y, p.Framebuffer[y][x])
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, ScreenWidth*factor, ScreenHeight*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	return gobmp.Encode(w, dst)
}
