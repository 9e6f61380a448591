package vterm

import (
	"github.com/charmbracelet/x/ansi"

	"github.com/andyrewlee/ncte/internal/logging"
)

// param returns parameter i, or def when it is missing or absent.
func param(params ansi.Params, i, def int) int {
	v, _, ok := params.Param(i, def)
	if !ok {
		return def
	}
	return v
}

// count returns parameter i as a repeat count, where 0 means 1.
func count(params ansi.Params, i int) int {
	return max(param(params, i, 1), 1)
}

func (t *Terminal) executeCSI() {
	cmd := ansi.Cmd(t.parser.Command())
	params := t.parser.Params()

	switch cmd.Prefix() {
	case '?':
		t.executePrivateCSI(cmd, params)
		return
	case '>':
		if cmd.Final() == 'c' { // secondary DA
			t.respond([]byte("\x1b[>1;10;0c"))
		}
		return
	case 0:
	default:
		return
	}

	switch cmd.Intermediate() {
	case ' ':
		if cmd.Final() == 'q' {
			t.setCursorStyle(param(params, 0, 0))
		}
		return
	case '!':
		if cmd.Final() == 'p' {
			t.softReset()
		}
		return
	case 0:
	default:
		return
	}

	switch cmd.Final() {
	case 'A': // CUU
		t.cursorUp(count(params, 0))
	case 'B', 'e': // CUD, VPR
		t.cursorDown(count(params, 0))
	case 'C', 'a': // CUF, HPR
		t.wrapNext = false
		t.cursor.Col = min(t.cursor.Col+count(params, 0), t.cols-1)
	case 'D': // CUB
		t.wrapNext = false
		t.cursor.Col = max(t.cursor.Col-count(params, 0), 0)
	case 'E': // CNL
		t.cursorDown(count(params, 0))
		t.cursor.Col = 0
	case 'F': // CPL
		t.cursorUp(count(params, 0))
		t.cursor.Col = 0
	case 'G', '`': // CHA, HPA
		t.wrapNext = false
		t.cursor.Col = min(max(count(params, 0)-1, 0), t.cols-1)
	case 'H', 'f': // CUP
		t.setCursorPos(count(params, 0), count(params, 1))
	case 'd': // VPA
		t.setCursorPos(count(params, 0), t.cursor.Col+1)
	case 'I': // CHT
		t.wrapNext = false
		for range count(params, 0) {
			t.cursor.Col = min((t.cursor.Col/8+1)*8, t.cols-1)
		}
	case 'Z': // CBT
		t.wrapNext = false
		for range count(params, 0) {
			t.cursor.Col = max((t.cursor.Col-1)/8*8, 0)
		}
	case 'J': // ED
		t.eraseDisplay(param(params, 0, 0))
	case 'K': // EL
		t.eraseLine(param(params, 0, 0))
	case 'L': // IL
		t.insertLines(count(params, 0))
	case 'M': // DL
		t.deleteLines(count(params, 0))
	case '@': // ICH
		t.insertChars(count(params, 0))
	case 'P': // DCH
		t.deleteChars(count(params, 0))
	case 'X': // ECH
		t.eraseChars(count(params, 0))
	case 'S': // SU
		t.scrollUp(count(params, 0))
	case 'T': // SD
		t.scrollDown(count(params, 0))
	case 'r': // DECSTBM
		t.setScrollRegion(param(params, 0, 1), param(params, 1, t.rows))
	case 'm': // SGR
		t.executeSGR(params)
	case 'n': // DSR
		t.executeDSR(param(params, 0, 0), false)
	case 'c': // primary DA
		if param(params, 0, 0) == 0 {
			t.respond([]byte("\x1b[?62;22c"))
		}
	case 's': // SCOSC
		t.saveCursor()
	case 'u': // SCORC
		t.restoreCursor()
	case 'h', 'l', 't':
		// ANSI modes and window operations are not supported.
	default:
		logging.Debug("vterm: unhandled CSI %q", string(cmd.Final()))
	}
}

func (t *Terminal) cursorUp(n int) {
	t.wrapNext = false
	limit := 0
	if t.cursor.Row >= t.top {
		limit = t.top
	}
	t.cursor.Row = max(t.cursor.Row-n, limit)
}

func (t *Terminal) cursorDown(n int) {
	t.wrapNext = false
	limit := t.rows - 1
	if t.cursor.Row < t.bottom {
		limit = t.bottom - 1
	}
	t.cursor.Row = min(t.cursor.Row+n, limit)
}

// setCursorPos sets the cursor from 1-based coordinates, relative to the
// scroll region in origin mode.
func (t *Terminal) setCursorPos(row, col int) {
	t.wrapNext = false
	if t.modes.origin {
		t.cursor.Row = min(max(t.top+row-1, t.top), t.bottom-1)
	} else {
		t.cursor.Row = min(max(row-1, 0), t.rows-1)
	}
	t.cursor.Col = min(max(col-1, 0), t.cols-1)
}

// setScrollRegion implements DECSTBM from 1-based inclusive margins.
func (t *Terminal) setScrollRegion(top, bottom int) {
	top = max(top, 1) - 1
	bottom = min(bottom, t.rows)
	if bottom == 0 {
		bottom = t.rows
	}
	if top >= bottom-1 {
		return
	}
	t.top, t.bottom = top, bottom
	t.setCursorPos(1, 1)
}

func (t *Terminal) softReset() {
	t.pen = blankCell(DefaultColor)
	t.top, t.bottom = 0, t.rows
	t.modes.origin = false
	t.modes.autowrap = true
	t.modes.cursorKeys = false
	t.wrapNext = false
	if !t.modes.cursorVisible {
		t.modes.cursorVisible = true
		t.setProperty(PropCursorVisible, Value{Bool: true})
	}
	t.saved = savedCursor{pen: t.pen}
}
