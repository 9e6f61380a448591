package vterm

// Color is a resolved cell color. Indexed colors are converted to RGB when
// they are set, so consumers only ever see RGB or the default sentinel.
type Color struct {
	R, G, B uint8
	Default bool
}

// DefaultColor is the sentinel for the display's own foreground/background.
var DefaultColor = Color{Default: true}

// RGB returns an explicit color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Attrs is a bit set of rendition attributes.
type Attrs uint16

const (
	AttrBold Attrs = 1 << iota
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrItalic
	AttrDim
	AttrStrike
	AttrHidden
)

// Has reports whether all bits of a are set.
func (a Attrs) Has(mask Attrs) bool {
	return a&mask == mask
}

// Cell represents a single character cell.
type Cell struct {
	Runes []rune // base rune followed by combining marks; empty when erased
	Width int    // 1 normal, 2 wide, 0 continuation
	Fg    Color
	Bg    Color
	Attrs Attrs
}

// Erased reports whether the cell holds no glyph.
func (c Cell) Erased() bool {
	return len(c.Runes) == 0
}

// String returns the glyph, or a space for an erased cell.
func (c Cell) String() string {
	if c.Erased() {
		return " "
	}
	return string(c.Runes)
}

func blankCell(bg Color) Cell {
	return Cell{Width: 1, Fg: DefaultColor, Bg: bg}
}

func makeLine(cols int, bg Color) []Cell {
	line := make([]Cell, cols)
	for i := range line {
		line[i] = blankCell(bg)
	}
	return line
}

// normalizeLine ensures wide characters (Width==2) and continuation cells
// (Width==0) stay paired after in-place line edits.
func normalizeLine(line []Cell) {
	for i := 0; i < len(line); i++ {
		switch line[i].Width {
		case 0:
			if i == 0 || line[i-1].Width != 2 {
				line[i] = blankCell(line[i].Bg)
			}
		case 2:
			if i+1 >= len(line) || line[i+1].Width != 0 {
				line[i] = blankCell(line[i].Bg)
			}
		}
	}
}
