// Package render draws the emulator grid onto a display surface: colors are
// quantized onto the 16-color palette and 81 color pairs, attributes are
// mapped, and columns are optionally mirrored.
package render

import (
	"github.com/andyrewlee/ncte/internal/display"
	"github.com/andyrewlee/ncte/internal/logging"
	"github.com/andyrewlee/ncte/internal/vterm"
)

// Grid is the emulator state the bridge reads from.
type Grid interface {
	Size() (rows, cols int)
	CellAt(row, col int) (vterm.Cell, bool)
	Cursor() vterm.Pos
	CursorVisible() bool
}

// Options configure a Bridge.
type Options struct {
	Mirror  bool
	Palette Palette
}

// Bridge receives emulator callbacks and paints the surface.
type Bridge struct {
	surface display.Surface
	grid    Grid
	palette Palette
	mirror  bool

	damaged bool
	shape   display.CursorShape
	blink   bool
}

// New returns a bridge. A zero Options.Palette selects DefaultPalette.
func New(surface display.Surface, grid Grid, opts Options) *Bridge {
	palette := opts.Palette
	if palette == (Palette{}) {
		palette = DefaultPalette()
	}
	return &Bridge{
		surface: surface,
		grid:    grid,
		palette: palette,
		mirror:  opts.Mirror,
		shape:   display.CursorBlock,
		blink:   true,
	}
}

// Init registers the color pairs with the surface.
func (b *Bridge) Init() error {
	return RegisterPairs(b.surface)
}

// Callbacks returns the emulator hooks bound to this bridge.
func (b *Bridge) Callbacks() vterm.Callbacks {
	return vterm.Callbacks{
		Damage:      b.Damage,
		MoveCursor:  b.MoveCursor,
		Bell:        b.Bell,
		SetProperty: b.SetProperty,
	}
}

// Damage accepts fine-grained damage from the emulator. Painting is driven
// by the refresh policy through DamageAll and Redraw instead.
func (b *Bridge) Damage(vterm.Rect) {}

// DamageAll marks the whole grid for the next Redraw.
func (b *Bridge) DamageAll() {
	b.damaged = true
}

// Redraw paints every cell of the grid and places the cursor when the grid
// has been damaged since the last Redraw.
func (b *Bridge) Redraw() {
	if !b.damaged {
		return
	}
	b.damaged = false

	rows, cols := b.grid.Size()
	for row := range rows {
		for col := range cols {
			cell, ok := b.grid.CellAt(row, col)
			if !ok {
				continue
			}
			b.drawCell(row, col, cell)
		}
	}
	b.placeCursor(b.grid.Cursor(), b.grid.CursorVisible())
}

// DisplayCol maps a grid column to its display column.
func (b *Bridge) DisplayCol(col, width int) int {
	if !b.mirror {
		return col
	}
	return width - 1 - col
}

func (b *Bridge) inBounds(row, col int) bool {
	rows, cols := b.surface.Size()
	return row >= 0 && row < rows && col >= 0 && col < cols
}

func (b *Bridge) drawCell(row, col int, cell vterm.Cell) {
	if cell.Width == 0 {
		return
	}
	_, width := b.surface.Size()
	dcol := b.DisplayCol(col, width)
	if b.mirror && cell.Width == 2 {
		// The right half lands leftmost once mirrored.
		dcol = b.DisplayCol(col+1, width)
	}
	if !b.inBounds(row, dcol) {
		logging.Debug("render: dropped cell %d,%d (display col %d) outside display", row, col, dcol)
		return
	}

	mainc, comb := ' ', []rune(nil)
	if !cell.Erased() && !cell.Attrs.Has(vterm.AttrHidden) {
		mainc, comb = cell.Runes[0], cell.Runes[1:]
	}
	fg := b.quantize(cell.Fg)
	bg := b.quantize(cell.Bg)
	b.surface.SetCell(row, dcol, mainc, comb, PairID(fg, bg), Attrs(cell.Attrs, fg))
}

func (b *Bridge) quantize(c vterm.Color) Bucket {
	bucket, exact := b.palette.Quantize(c)
	if !exact && logging.Enabled(logging.LevelDebug) {
		logging.Debug("render: approximated #%02x%02x%02x as color %d", c.R, c.G, c.B, bucket)
	}
	return bucket
}

// Attrs maps cell attributes to display attributes. A bright foreground is
// rendered bold since only eight base colors are paired.
func Attrs(a vterm.Attrs, fg Bucket) display.Attr {
	var out display.Attr
	if a.Has(vterm.AttrBold) || fg.Bright() {
		out |= display.AttrBold
	}
	if a.Has(vterm.AttrUnderline) {
		out |= display.AttrUnderline
	}
	if a.Has(vterm.AttrBlink) {
		out |= display.AttrBlink
	}
	if a.Has(vterm.AttrReverse) {
		out |= display.AttrReverse
	}
	return out
}

// MoveCursor places the display cursor at the mirrored position.
func (b *Bridge) MoveCursor(pos, _ vterm.Pos, visible bool) {
	b.placeCursor(pos, visible)
}

func (b *Bridge) placeCursor(pos vterm.Pos, visible bool) {
	_, width := b.surface.Size()
	col := b.DisplayCol(pos.Col, width)
	if !b.inBounds(pos.Row, col) {
		logging.Debug("render: cursor %d,%d outside display", pos.Row, col)
		return
	}
	b.surface.MoveCursor(pos.Row, col)
	b.surface.SetCursorVisible(visible)
}

// Bell rings the display bell.
func (b *Bridge) Bell() {
	b.surface.Beep()
}

// SetProperty applies cursor properties; the rest are logged and ignored.
func (b *Bridge) SetProperty(prop vterm.Prop, val vterm.Value) {
	switch prop {
	case vterm.PropCursorVisible:
		b.surface.SetCursorVisible(val.Bool)
	case vterm.PropCursorBlink:
		b.blink = val.Bool
		b.surface.SetCursorStyle(b.shape, b.blink)
	case vterm.PropCursorShape:
		b.shape = cursorShape(vterm.CursorShape(val.Int))
		b.surface.SetCursorStyle(b.shape, b.blink)
	default:
		logging.Debug("render: ignoring property %s = %+v", prop, val)
	}
}

func cursorShape(s vterm.CursorShape) display.CursorShape {
	switch s {
	case vterm.CursorUnderline:
		return display.CursorUnderline
	case vterm.CursorBar:
		return display.CursorBar
	default:
		return display.CursorBlock
	}
}
