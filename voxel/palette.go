package voxel

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
)

// PaletteSize is the number of addressable materials.
const PaletteSize = 256

// Palette maps material indices to colors. Index 0 is unused (transparent).
type Palette [PaletteSize]color.RGBA

// DefaultPalette returns the palette used when a model carries none:
// a 6x6x6 color cube for 1..216 followed by a gray ramp.
func DefaultPalette() Palette {
	var p Palette
	i := 1
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				p[i] = color.RGBA{R: uint8(r * 51), G: uint8(g * 51), B: uint8(b * 51), A: 255}
				i++
			}
		}
	}
	for ; i < PaletteSize; i++ {
		v := uint8((i - 217) * 255 / (PaletteSize - 218))
		p[i] = color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return p
}

// PaletteFromHex builds a palette from "#rrggbb" / "#rrggbbaa" strings,
// starting at index 1.
func PaletteFromHex(colors []string) (Palette, error) {
	var p Palette
	if len(colors) > PaletteSize-1 {
		return p, fmt.Errorf("palette has %d colors, at most %d fit", len(colors), PaletteSize-1)
	}
	for i, hex := range colors {
		c, err := ParseHexColor(hex)
		if err != nil {
			return p, fmt.Errorf("color %d: %w", i+1, err)
		}
		p[i+1] = c
	}
	return p, nil
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa".
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 || hex[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid hex color: %q", hex)
	}
	h := hex[1:]
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex color length: %q", hex)
	}
	var ch [4]uint8
	ch[3] = 255
	for i := 0; i < len(h)/2; i++ {
		v, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		ch[i] = uint8(v)
	}
	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

// Color returns the palette entry for material, transparent when out of range.
func (p *Palette) Color(material int) color.RGBA {
	if material < 0 || material >= PaletteSize {
		return color.RGBA{}
	}
	return p[material]
}

// Float returns the entry as linear RGBA floats in [0,1].
func (p *Palette) Float(material int) [4]float32 {
	c := p.Color(material)
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

// Translucent reports whether any material in use has alpha below 255.
func (p *Palette) Translucent(used []uint8) bool {
	for _, i := range used {
		if i != 0 && p[i].A < 255 {
			return true
		}
	}
	return false
}

// Texture renders the palette as a 256x1 image, one texel per material.
// Meshes address it through UV so one draw call covers every material.
func (p *Palette) Texture() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, PaletteSize, 1))
	for i, c := range p {
		img.SetRGBA(i, 0, c)
	}
	return img
}

// UV returns the horizontal texture strip of material: u in [u0,u1], v in [0,1].
func UV(material uint8) (u0, u1 float32) {
	return float32(material) / PaletteSize, float32(int(material)+1) / PaletteSize
}
