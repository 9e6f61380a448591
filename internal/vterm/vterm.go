// Package vterm is a VT100/xterm-subset terminal state machine. It consumes
// the child's output, maintains the character grid and cursor, reports
// changes through Callbacks, and encodes keyboard input into the byte
// sequences the child expects.
package vterm

import (
	"github.com/charmbracelet/x/ansi"

	"github.com/andyrewlee/ncte/internal/iobuf"
	"github.com/andyrewlee/ncte/internal/logging"
)

// OutputCapacity bounds the bytes waiting to be sent to the child.
const OutputCapacity = 4096

// maxPending bounds an unterminated sequence carried between Parse calls.
const maxPending = 4096

// Pos is a zero-based grid coordinate.
type Pos struct {
	Row, Col int
}

// Rect is a half-open region of the grid.
type Rect struct {
	StartRow, EndRow int
	StartCol, EndCol int
}

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool {
	return r.StartRow >= r.EndRow || r.StartCol >= r.EndCol
}

// Union returns the smallest rect covering r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		StartRow: min(r.StartRow, o.StartRow),
		EndRow:   max(r.EndRow, o.EndRow),
		StartCol: min(r.StartCol, o.StartCol),
		EndCol:   max(r.EndCol, o.EndCol),
	}
}

// Callbacks receive state changes. Nil entries are skipped.
type Callbacks struct {
	Damage      func(rect Rect)
	MoveCursor  func(pos, old Pos, visible bool)
	Bell        func()
	SetProperty func(prop Prop, val Value)
}

type modes struct {
	cursorKeys    bool // DECCKM
	reverse       bool // DECSCNM
	origin        bool // DECOM
	autowrap      bool // DECAWM
	cursorVisible bool // DECTCEM
	cursorBlink   bool
	altScreen     bool
}

type savedCursor struct {
	pos      Pos
	pen      Cell
	origin   bool
	wrapNext bool
}

// Terminal is the emulator state. It is not safe for concurrent use.
type Terminal struct {
	rows, cols int

	screen     [][]Cell
	mainScreen [][]Cell // primary screen while the alternate one is active

	cursor   Pos
	wrapNext bool
	pen      Cell

	top, bottom int // scroll region, bottom exclusive

	modes       modes
	shape       CursorShape
	title       string
	saved       savedCursor
	altSaved    savedCursor
	hasAltSaved bool

	cb      Callbacks
	parser  *ansi.Parser
	pending []byte

	out *iobuf.Buffer

	damage      Rect
	reported    Pos
	reportedVis bool
}

// New creates a terminal of the given size. Dimensions below 1 are raised
// to 1.
func New(rows, cols int) *Terminal {
	rows, cols = max(rows, 1), max(cols, 1)
	t := &Terminal{
		rows:   rows,
		cols:   cols,
		parser: ansi.GetParser(),
		out:    iobuf.New(OutputCapacity),
	}
	t.reset()
	t.reportedVis = t.modes.cursorVisible
	return t
}

func (t *Terminal) reset() {
	t.pen = blankCell(DefaultColor)
	t.modes = modes{autowrap: true, cursorVisible: true, cursorBlink: true}
	t.shape = CursorBlock
	t.screen = t.makeScreen()
	t.mainScreen = nil
	t.cursor = Pos{}
	t.wrapNext = false
	t.top, t.bottom = 0, t.rows
	t.saved = savedCursor{pen: t.pen, wrapNext: false}
	t.hasAltSaved = false
}

func (t *Terminal) makeScreen() [][]Cell {
	screen := make([][]Cell, t.rows)
	for i := range screen {
		screen[i] = makeLine(t.cols, DefaultColor)
	}
	return screen
}

// SetCallbacks installs the change listeners.
func (t *Terminal) SetCallbacks(cb Callbacks) {
	t.cb = cb
}

// Size returns the grid dimensions.
func (t *Terminal) Size() (rows, cols int) {
	return t.rows, t.cols
}

// Cursor returns the cursor position.
func (t *Terminal) Cursor() Pos {
	return t.cursor
}

// CursorVisible reports the DECTCEM state.
func (t *Terminal) CursorVisible() bool {
	return t.modes.cursorVisible
}

// AltScreen reports whether the alternate screen is active.
func (t *Terminal) AltScreen() bool {
	return t.modes.altScreen
}

// Title returns the last window title set by the child.
func (t *Terminal) Title() string {
	return t.title
}

// CellAt returns the cell at row, col. ok is false outside the grid.
func (t *Terminal) CellAt(row, col int) (cell Cell, ok bool) {
	if row < 0 || row >= t.rows || col < 0 || col >= t.cols {
		return Cell{}, false
	}
	return t.screen[row][col], true
}

// SetSize resizes the grid, keeping the overlapping region, and reports the
// whole grid as damaged.
func (t *Terminal) SetSize(rows, cols int) {
	rows, cols = max(rows, 1), max(cols, 1)
	t.screen = resizeScreen(t.screen, rows, cols)
	if t.mainScreen != nil {
		t.mainScreen = resizeScreen(t.mainScreen, rows, cols)
	}
	t.rows, t.cols = rows, cols
	t.top, t.bottom = 0, rows
	t.cursor = t.clampPos(t.cursor)
	t.saved.pos = t.clampPos(t.saved.pos)
	t.altSaved.pos = t.clampPos(t.altSaved.pos)
	t.wrapNext = false
	logging.Debug("vterm: resized to %dx%d", rows, cols)
	t.damageAll()
	t.flush()
}

func resizeScreen(old [][]Cell, rows, cols int) [][]Cell {
	screen := make([][]Cell, rows)
	for r := range screen {
		line := makeLine(cols, DefaultColor)
		if r < len(old) {
			copy(line, old[r])
			normalizeLine(line)
		}
		screen[r] = line
	}
	return screen
}

func (t *Terminal) clampPos(p Pos) Pos {
	p.Row = min(max(p.Row, 0), t.rows-1)
	p.Col = min(max(p.Col, 0), t.cols-1)
	return p
}

func (t *Terminal) damageCells(row, startCol, endCol int) {
	t.damage = t.damage.Union(Rect{StartRow: row, EndRow: row + 1, StartCol: startCol, EndCol: endCol})
}

func (t *Terminal) damageRows(startRow, endRow int) {
	t.damage = t.damage.Union(Rect{StartRow: startRow, EndRow: endRow, StartCol: 0, EndCol: t.cols})
}

func (t *Terminal) damageAll() {
	t.damageRows(0, t.rows)
}

// flush reports accumulated damage and a changed cursor.
func (t *Terminal) flush() {
	if !t.damage.Empty() {
		if t.cb.Damage != nil {
			t.cb.Damage(t.damage)
		}
		t.damage = Rect{}
	}
	vis := t.modes.cursorVisible
	if t.cursor != t.reported || vis != t.reportedVis {
		old := t.reported
		t.reported, t.reportedVis = t.cursor, vis
		if t.cb.MoveCursor != nil {
			t.cb.MoveCursor(t.cursor, old, vis)
		}
	}
}

func (t *Terminal) bell() {
	if t.cb.Bell != nil {
		t.cb.Bell()
	}
}

func (t *Terminal) setProperty(prop Prop, val Value) {
	if t.cb.SetProperty != nil {
		t.cb.SetProperty(prop, val)
	}
}

// respond queues a reply to a terminal query.
func (t *Terminal) respond(p []byte) {
	if t.out.Free() < len(p) {
		logging.Warn("vterm: output buffer full, dropped %d byte reply", len(p))
		return
	}
	t.out.Append(p)
}
