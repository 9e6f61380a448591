package display

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sys/unix"

	"github.com/andyrewlee/ncte/internal/vterm"
)

func newSimDisplay(t *testing.T) (*Tcell, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	d, err := NewTcellWithScreen(screen)
	if err != nil {
		t.Fatalf("NewTcellWithScreen() error = %v", err)
	}
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	screen.SetSize(20, 5)
	t.Cleanup(d.Fini)
	return d, screen
}

func waitReadable(t *testing.T, fd int) {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := unix.Poll(fds, 50)
		if err != nil && err != unix.EINTR {
			t.Fatalf("poll: %v", err)
		}
		if n > 0 {
			return
		}
	}
	t.Fatal("fd never became readable")
}

func TestSize(t *testing.T) {
	d, _ := newSimDisplay(t)
	rows, cols := d.Size()
	if rows != 5 || cols != 20 {
		t.Fatalf("Size() = %d,%d, want 5,20", rows, cols)
	}
}

func TestSetCellUsesPairAndAttrs(t *testing.T) {
	d, screen := newSimDisplay(t)
	if err := d.InitPair(12, 1, DefaultColor); err != nil {
		t.Fatalf("InitPair() error = %v", err)
	}
	d.SetCell(2, 3, 'x', nil, 12, AttrBold|AttrReverse)
	d.Show()

	mainc, _, style, _ := screen.GetContent(3, 2)
	if mainc != 'x' {
		t.Fatalf("content = %q", mainc)
	}
	fg, bg, attrs := style.Decompose()
	if fg != tcell.PaletteColor(1) || bg != tcell.ColorDefault {
		t.Fatalf("colors = %v/%v", fg, bg)
	}
	if attrs&tcell.AttrBold == 0 || attrs&tcell.AttrReverse == 0 || attrs&tcell.AttrUnderline != 0 {
		t.Fatalf("attrs = %v", attrs)
	}
}

func TestInitPairRange(t *testing.T) {
	d, _ := newSimDisplay(t)
	if err := d.InitPair(maxPairs, 0, 0); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestCursor(t *testing.T) {
	d, screen := newSimDisplay(t)
	d.MoveCursor(1, 4)
	d.Show()
	x, y, visible := screen.GetCursor()
	if x != 4 || y != 1 || !visible {
		t.Fatalf("cursor = %d,%d visible=%v", x, y, visible)
	}

	d.SetCursorVisible(false)
	d.MoveCursor(2, 2)
	d.Show()
	if _, _, visible := screen.GetCursor(); visible {
		t.Fatal("cursor should stay hidden across moves")
	}
	d.SetCursorVisible(true)
	d.Show()
	if x, y, _ := screen.GetCursor(); x != 2 || y != 2 {
		t.Fatalf("re-shown cursor at %d,%d", x, y)
	}
}

func TestKeyQueue(t *testing.T) {
	d, screen := newSimDisplay(t)
	if _, ok := d.ReadKey(); ok {
		t.Fatal("queue should start empty")
	}

	screen.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	screen.InjectKey(tcell.KeyUp, 0, tcell.ModNone)
	waitReadable(t, d.Fd())

	var got []vterm.KeyEvent
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 2 && time.Now().Before(deadline) {
		if key, ok := d.ReadKey(); ok {
			got = append(got, key)
			continue
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(got) != 2 {
		t.Fatalf("got %d keys", len(got))
	}
	if got[0] != (vterm.KeyEvent{Key: vterm.KeyRune, Rune: 'a'}) {
		t.Fatalf("first key = %+v", got[0])
	}
	if got[1].Key != vterm.KeyUp {
		t.Fatalf("second key = %+v", got[1])
	}
}

func TestResizeCallback(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	d, err := NewTcellWithScreen(screen)
	if err != nil {
		t.Fatalf("NewTcellWithScreen() error = %v", err)
	}
	resized := make(chan struct{}, 8)
	d.OnResize(func() { resized <- struct{}{} })
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Fini()

	if err := screen.PostEvent(tcell.NewEventResize(30, 10)); err != nil {
		t.Fatalf("PostEvent: %v", err)
	}
	select {
	case <-resized:
	case <-time.After(2 * time.Second):
		t.Fatal("resize callback not invoked")
	}
}

func TestResizeHookReplacedWhileRunning(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	d, err := NewTcellWithScreen(screen)
	if err != nil {
		t.Fatalf("NewTcellWithScreen() error = %v", err)
	}
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Fini()

	stop := make(chan struct{})
	posted := make(chan struct{})
	go func() {
		defer close(posted)
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = screen.PostEvent(tcell.NewEventResize(30, 10))
			time.Sleep(time.Millisecond)
		}
	}()

	resized := make(chan struct{}, 1)
	d.OnResize(func() {
		select {
		case resized <- struct{}{}:
		default:
		}
	})
	select {
	case <-resized:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement resize hook not invoked")
	}
	close(stop)
	<-posted
}

func TestConvertKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want vterm.KeyEvent
	}{
		{"ctrl-c code", tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), vterm.KeyEvent{Key: vterm.KeyRune, Rune: 'c', Mod: vterm.ModCtrl}},
		{"ctrl rune", tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModCtrl), vterm.KeyEvent{Key: vterm.KeyRune, Rune: 'c', Mod: vterm.ModCtrl}},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), vterm.KeyEvent{Key: vterm.KeyEnter}},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), vterm.KeyEvent{Key: vterm.KeyRune, Rune: 'x', Mod: vterm.ModAlt}},
		{"f5", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), vterm.KeyEvent{Key: vterm.KeyF5}},
		{"backspace2", tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), vterm.KeyEvent{Key: vterm.KeyBackspace}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convertKey(tt.ev)
			if !ok || got != tt.want {
				t.Fatalf("convertKey() = %+v, %v; want %+v", got, ok, tt.want)
			}
		})
	}
}

func TestCursorStyle(t *testing.T) {
	if cursorStyle(CursorBar, false) != tcell.CursorStyleSteadyBar {
		t.Fatal("steady bar")
	}
	if cursorStyle(CursorUnderline, true) != tcell.CursorStyleBlinkingUnderline {
		t.Fatal("blinking underline")
	}
	if cursorStyle(CursorBlock, true) != tcell.CursorStyleBlinkingBlock {
		t.Fatal("blinking block")
	}
}
