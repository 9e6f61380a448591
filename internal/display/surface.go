// Package display is the curses-like output surface the pty host renders
// into: numbered color pairs, cell writes, a cursor and a key source that can
// be armed in a poll set.
package display

import "github.com/andyrewlee/ncte/internal/vterm"

// DefaultColor selects the terminal's own color in InitPair.
const DefaultColor = -1

// Attr is a display rendition bit set.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrUnderline
	AttrBlink
	AttrReverse
)

// CursorShape is the form of the hardware cursor.
type CursorShape int

const (
	CursorBlock CursorShape = iota
	CursorUnderline
	CursorBar
)

// Surface is the output device. All methods except ReadKey and Fd are called
// from the event loop only.
type Surface interface {
	Init() error
	Fini()
	Size() (rows, cols int)
	InitPair(id, fg, bg int) error
	SetCell(row, col int, mainc rune, comb []rune, pair int, attrs Attr)
	MoveCursor(row, col int)
	SetCursorVisible(visible bool)
	SetCursorStyle(shape CursorShape, blink bool)
	Show()
	Sync()
	Beep()
	// ReadKey returns the next queued keystroke without blocking.
	ReadKey() (vterm.KeyEvent, bool)
	// Fd becomes readable when keystrokes are queued.
	Fd() int
}
