package vterm

import (
	"fmt"

	"github.com/charmbracelet/x/ansi"
)

func (t *Terminal) executePrivateCSI(cmd ansi.Cmd, params ansi.Params) {
	if cmd.Intermediate() != 0 {
		return
	}
	switch cmd.Final() {
	case 'h':
		t.setDECModes(params, true)
	case 'l':
		t.setDECModes(params, false)
	case 'n':
		t.executeDSR(param(params, 0, 0), true)
	}
}

func (t *Terminal) executeDSR(code int, private bool) {
	switch code {
	case 5:
		if !private {
			t.respond([]byte("\x1b[0n"))
		}
	case 6:
		row := t.cursor.Row + 1
		if t.modes.origin {
			row -= t.top
		}
		prefix := ""
		if private {
			prefix = "?"
		}
		t.respond(fmt.Appendf(nil, "\x1b[%s%d;%dR", prefix, row, t.cursor.Col+1))
	}
}

func (t *Terminal) setDECModes(params ansi.Params, set bool) {
	for i := range len(params) {
		switch param(params, i, 0) {
		case 1: // DECCKM
			t.modes.cursorKeys = set
		case 5: // DECSCNM
			if t.modes.reverse != set {
				t.modes.reverse = set
				t.damageAll()
				t.setProperty(PropReverse, Value{Bool: set})
			}
		case 6: // DECOM
			t.modes.origin = set
			t.setCursorPos(1, 1)
		case 7: // DECAWM
			t.modes.autowrap = set
			if !set {
				t.wrapNext = false
			}
		case 12:
			if t.modes.cursorBlink != set {
				t.modes.cursorBlink = set
				t.setProperty(PropCursorBlink, Value{Bool: set})
			}
		case 25: // DECTCEM
			if t.modes.cursorVisible != set {
				t.modes.cursorVisible = set
				t.setProperty(PropCursorVisible, Value{Bool: set})
			}
		case 47, 1047:
			t.setAltScreen(set)
		case 1048:
			if set {
				t.saveCursor()
			} else {
				t.restoreCursor()
			}
		case 1049:
			if set {
				if !t.modes.altScreen {
					t.altSaved, t.hasAltSaved = t.snapshotCursor(), true
				}
				t.setAltScreen(true)
			} else {
				t.setAltScreen(false)
				if t.hasAltSaved {
					t.applyCursor(t.altSaved)
					t.hasAltSaved = false
				}
			}
		}
	}
}

// setCursorStyle implements DECSCUSR.
func (t *Terminal) setCursorStyle(ps int) {
	var shape CursorShape
	var blink bool
	switch ps {
	case 0, 1:
		shape, blink = CursorBlock, true
	case 2:
		shape, blink = CursorBlock, false
	case 3:
		shape, blink = CursorUnderline, true
	case 4:
		shape, blink = CursorUnderline, false
	case 5:
		shape, blink = CursorBar, true
	case 6:
		shape, blink = CursorBar, false
	default:
		return
	}
	if t.shape != shape {
		t.shape = shape
		t.setProperty(PropCursorShape, Value{Int: int(shape)})
	}
	if t.modes.cursorBlink != blink {
		t.modes.cursorBlink = blink
		t.setProperty(PropCursorBlink, Value{Bool: blink})
	}
}
