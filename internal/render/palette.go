package render

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/andyrewlee/ncte/internal/vterm"
)

// Palette is the 16-color reference table colors are quantized against.
type Palette [16]vterm.Color

// DefaultPalette returns the emulator's ANSI reference colors, so SGR 30-37
// and 90-97 always quantize exactly.
func DefaultPalette() Palette {
	return Palette(vterm.ANSIColors())
}

// ParsePalette builds a palette from exactly 16 "#rrggbb" strings. An empty
// list yields DefaultPalette.
func ParsePalette(hex []string) (Palette, error) {
	if len(hex) == 0 {
		return DefaultPalette(), nil
	}
	if len(hex) != len(Palette{}) {
		return Palette{}, fmt.Errorf("palette needs 16 colors, got %d", len(hex))
	}
	var p Palette
	for i, s := range hex {
		c, err := colorful.Hex(s)
		if err != nil {
			return Palette{}, fmt.Errorf("palette[%d]: %w", i, err)
		}
		r, g, b := c.RGB255()
		p[i] = vterm.RGB(r, g, b)
	}
	return p, nil
}
