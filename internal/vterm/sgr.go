package vterm

import "github.com/charmbracelet/x/ansi"

func (t *Terminal) executeSGR(params ansi.Params) {
	if len(params) == 0 {
		t.resetPen()
		return
	}

	for i := 0; i < len(params); i++ {
		p := param(params, i, 0)
		switch {
		case p == 0:
			t.resetPen()
		case p == 1:
			t.pen.Attrs |= AttrBold
		case p == 2:
			t.pen.Attrs |= AttrDim
		case p == 3:
			t.pen.Attrs |= AttrItalic
		case p == 4:
			t.pen.Attrs |= AttrUnderline
		case p == 5, p == 6:
			t.pen.Attrs |= AttrBlink
		case p == 7:
			t.pen.Attrs |= AttrReverse
		case p == 8:
			t.pen.Attrs |= AttrHidden
		case p == 9:
			t.pen.Attrs |= AttrStrike
		case p == 21, p == 22:
			t.pen.Attrs &^= AttrBold | AttrDim
		case p == 23:
			t.pen.Attrs &^= AttrItalic
		case p == 24:
			t.pen.Attrs &^= AttrUnderline
		case p == 25:
			t.pen.Attrs &^= AttrBlink
		case p == 27:
			t.pen.Attrs &^= AttrReverse
		case p == 28:
			t.pen.Attrs &^= AttrHidden
		case p == 29:
			t.pen.Attrs &^= AttrStrike
		case p >= 30 && p <= 37:
			t.pen.Fg = IndexedColor(p - 30)
		case p == 38:
			i = parseExtendedColor(params, i, &t.pen.Fg)
		case p == 39:
			t.pen.Fg = DefaultColor
		case p >= 40 && p <= 47:
			t.pen.Bg = IndexedColor(p - 40)
		case p == 48:
			i = parseExtendedColor(params, i, &t.pen.Bg)
		case p == 49:
			t.pen.Bg = DefaultColor
		case p >= 90 && p <= 97:
			t.pen.Fg = IndexedColor(p - 90 + 8)
		case p >= 100 && p <= 107:
			t.pen.Bg = IndexedColor(p - 100 + 8)
		}
	}
}

func (t *Terminal) resetPen() {
	t.pen.Fg, t.pen.Bg, t.pen.Attrs = DefaultColor, DefaultColor, 0
}

// parseExtendedColor handles 38/48;5;n and 38/48;2;r;g;b and returns the
// index of the last parameter consumed.
func parseExtendedColor(params ansi.Params, i int, color *Color) int {
	if i+1 >= len(params) {
		return i
	}
	switch param(params, i+1, 0) {
	case 2:
		if i+4 < len(params) {
			r := clampByte(param(params, i+2, 0))
			g := clampByte(param(params, i+3, 0))
			b := clampByte(param(params, i+4, 0))
			*color = RGB(r, g, b)
			return i + 4
		}
	case 5:
		if i+2 < len(params) {
			*color = IndexedColor(param(params, i+2, 0))
			return i + 2
		}
	}
	return i + 1
}

func clampByte(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}
