package display

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sys/unix"

	"github.com/andyrewlee/ncte/internal/logging"
	"github.com/andyrewlee/ncte/internal/safego"
	"github.com/andyrewlee/ncte/internal/vterm"
)

// maxQueuedKeys bounds keystrokes waiting for the event loop.
const maxQueuedKeys = 1024

// maxPairs is the size of the color pair table.
const maxPairs = 256

// Tcell implements Surface over a tcell.Screen. A helper goroutine moves
// tcell events into a key queue and signals a wake pipe.
type Tcell struct {
	screen tcell.Screen
	pairs  [maxPairs]tcell.Style

	cursorRow, cursorCol int
	cursorVisible        bool

	mu    sync.Mutex
	queue []vterm.KeyEvent

	wakeR, wakeW int
	onResize     atomic.Pointer[func()]
	pumpDone     <-chan struct{}

	finiOnce sync.Once
}

// NewTcell opens the controlling terminal through tcell.
func NewTcell() (*Tcell, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open display: %w", err)
	}
	return NewTcellWithScreen(screen)
}

// NewTcellWithScreen wraps an existing screen, such as a simulation screen.
func NewTcellWithScreen(screen tcell.Screen) (*Tcell, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("display wake pipe: %w", err)
	}
	d := &Tcell{screen: screen, wakeR: fds[0], wakeW: fds[1], cursorVisible: true}
	for i := range d.pairs {
		d.pairs[i] = tcell.StyleDefault
	}
	return d, nil
}

// OnResize registers fn to run on the event goroutine when the display
// reports a size change. fn must only record the event. Register it before
// Init so no resize is missed.
func (d *Tcell) OnResize(fn func()) {
	d.onResize.Store(&fn)
}

// Init takes over the terminal and starts the event pump.
func (d *Tcell) Init() error {
	if err := d.screen.Init(); err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	d.screen.Clear()
	d.pumpDone = safego.Go("display-events", d.pump)
	return nil
}

// Fini restores the terminal. Safe to call more than once.
func (d *Tcell) Fini() {
	d.finiOnce.Do(func() {
		d.screen.Fini()
		if d.pumpDone != nil {
			<-d.pumpDone
		}
		_ = unix.Close(d.wakeR)
		_ = unix.Close(d.wakeW)
	})
}

func (d *Tcell) pump() {
	for {
		ev := d.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if key, ok := convertKey(ev); ok {
				d.push(key)
			}
		case *tcell.EventResize:
			if fn := d.onResize.Load(); fn != nil {
				(*fn)()
			}
		}
	}
}

func (d *Tcell) push(key vterm.KeyEvent) {
	d.mu.Lock()
	if len(d.queue) >= maxQueuedKeys {
		d.mu.Unlock()
		logging.Warn("display: key queue full, dropped %+v", key)
		return
	}
	d.queue = append(d.queue, key)
	d.mu.Unlock()

	if _, err := unix.Write(d.wakeW, []byte{1}); err != nil && !errors.Is(err, unix.EAGAIN) {
		logging.Debug("display: wake: %v", err)
	}
}

// ReadKey pops the oldest queued keystroke. An empty queue also drains the
// wake pipe.
func (d *Tcell) ReadKey() (vterm.KeyEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		d.drainWake()
		return vterm.KeyEvent{}, false
	}
	key := d.queue[0]
	d.queue = d.queue[1:]
	if len(d.queue) == 0 {
		d.queue = nil
	}
	return key, true
}

func (d *Tcell) drainWake() {
	var scratch [64]byte
	for {
		n, err := unix.Read(d.wakeR, scratch[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Fd returns the read end of the key wake pipe.
func (d *Tcell) Fd() int {
	return d.wakeR
}

// Size returns the screen dimensions.
func (d *Tcell) Size() (rows, cols int) {
	w, h := d.screen.Size()
	return h, w
}

// InitPair defines color pair id from two palette indexes or DefaultColor.
func (d *Tcell) InitPair(id, fg, bg int) error {
	if id < 0 || id >= maxPairs {
		return fmt.Errorf("color pair %d out of range", id)
	}
	d.pairs[id] = tcell.StyleDefault.Foreground(paletteColor(fg)).Background(paletteColor(bg))
	return nil
}

func paletteColor(idx int) tcell.Color {
	if idx < 0 {
		return tcell.ColorDefault
	}
	return tcell.PaletteColor(idx)
}

// SetCell writes one glyph with the style of pair and attrs.
func (d *Tcell) SetCell(row, col int, mainc rune, comb []rune, pair int, attrs Attr) {
	style := tcell.StyleDefault
	if pair >= 0 && pair < maxPairs {
		style = d.pairs[pair]
	}
	style = style.
		Bold(attrs&AttrBold != 0).
		Underline(attrs&AttrUnderline != 0).
		Blink(attrs&AttrBlink != 0).
		Reverse(attrs&AttrReverse != 0)
	d.screen.SetContent(col, row, mainc, comb, style)
}

// MoveCursor places the cursor; a hidden cursor only records the position.
func (d *Tcell) MoveCursor(row, col int) {
	d.cursorRow, d.cursorCol = row, col
	if d.cursorVisible {
		d.screen.ShowCursor(col, row)
	}
}

// SetCursorVisible shows or hides the cursor.
func (d *Tcell) SetCursorVisible(visible bool) {
	d.cursorVisible = visible
	if visible {
		d.screen.ShowCursor(d.cursorCol, d.cursorRow)
		return
	}
	d.screen.HideCursor()
}

// SetCursorStyle sets the cursor shape and blinking.
func (d *Tcell) SetCursorStyle(shape CursorShape, blink bool) {
	d.screen.SetCursorStyle(cursorStyle(shape, blink))
}

func cursorStyle(shape CursorShape, blink bool) tcell.CursorStyle {
	switch shape {
	case CursorUnderline:
		if blink {
			return tcell.CursorStyleBlinkingUnderline
		}
		return tcell.CursorStyleSteadyUnderline
	case CursorBar:
		if blink {
			return tcell.CursorStyleBlinkingBar
		}
		return tcell.CursorStyleSteadyBar
	default:
		if blink {
			return tcell.CursorStyleBlinkingBlock
		}
		return tcell.CursorStyleSteadyBlock
	}
}

// Show flushes pending cell writes to the terminal.
func (d *Tcell) Show() {
	d.screen.Show()
}

// Sync repaints the whole terminal and picks up a new size.
func (d *Tcell) Sync() {
	d.screen.Sync()
}

// Beep rings the terminal bell.
func (d *Tcell) Beep() {
	_ = d.screen.Beep()
}
