package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/andyrewlee/ncte/internal/config"
	"github.com/andyrewlee/ncte/internal/display"
	"github.com/andyrewlee/ncte/internal/iobuf"
	"github.com/andyrewlee/ncte/internal/pty"
	"github.com/andyrewlee/ncte/internal/signalgate"
	"github.com/andyrewlee/ncte/internal/vterm"
)

var testRefresh = config.RefreshConfig{
	Quiescence:   10 * time.Millisecond,
	BurstCap:     300 * time.Millisecond,
	PollInterval: 5 * time.Millisecond,
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeChannel struct {
	chunks     [][]byte
	closed     bool
	written    bytes.Buffer
	sizes      [][2]int
	writeErr   error
	closeCalls int
	onRead     func()
}

func (c *fakeChannel) Fd() int { return -1 }

func (c *fakeChannel) push(s string) { c.chunks = append(c.chunks, []byte(s)) }

func (c *fakeChannel) readable() bool { return len(c.chunks) > 0 || c.closed }

func (c *fakeChannel) ReadAvailable(buf *iobuf.Buffer) error {
	if c.onRead != nil {
		c.onRead()
	}
	for len(c.chunks) > 0 && !buf.Full() {
		chunk := c.chunks[0]
		n := min(buf.Free(), len(chunk))
		buf.Append(chunk[:n])
		if n < len(chunk) {
			c.chunks[0] = chunk[n:]
			return nil
		}
		c.chunks = c.chunks[1:]
	}
	if len(c.chunks) == 0 && c.closed {
		return pty.ErrClosed
	}
	return nil
}

func (c *fakeChannel) WriteAll(p []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written.Write(p)
	return nil
}

func (c *fakeChannel) Resize(rows, cols int) error {
	c.sizes = append(c.sizes, [2]int{rows, cols})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closeCalls++
	return nil
}

type fakeSurface struct {
	clock      *fakeClock
	rows, cols int
	cells      map[[2]int]rune
	writes     int
	outOfRange int
	shows      []time.Time
	syncs      int
	finis      int
	keys       []vterm.KeyEvent
}

func newFakeSurface(clock *fakeClock, rows, cols int) *fakeSurface {
	return &fakeSurface{clock: clock, rows: rows, cols: cols, cells: map[[2]int]rune{}}
}

func (f *fakeSurface) Init() error { return nil }
func (f *fakeSurface) Fini() { f.finis++ }
func (f *fakeSurface) Size() (int, int) { return f.rows, f.cols }
func (f *fakeSurface) InitPair(id, fg, bg int) error { return nil }
func (f *fakeSurface) MoveCursor(row, col int) {}
func (f *fakeSurface) SetCursorVisible(bool) {}
func (f *fakeSurface) SetCursorStyle(display.CursorShape, bool) {}
func (f *fakeSurface) Show() { f.shows = append(f.shows, f.clock.now) }
func (f *fakeSurface) Sync() { f.syncs++ }
func (f *fakeSurface) Beep() {}
func (f *fakeSurface) Fd() int { return -1 }

func (f *fakeSurface) SetCell(row, col int, mainc rune, comb []rune, pair int, attrs display.Attr) {
	f.writes++
	if row < 0 || row >= f.rows || col < 0 || col >= f.cols {
		f.outOfRange++
		return
	}
	f.cells[[2]int{row, col}] = mainc
}

func (f *fakeSurface) ReadKey() (vterm.KeyEvent, bool) {
	if len(f.keys) == 0 {
		return vterm.KeyEvent{}, false
	}
	k := f.keys[0]
	f.keys = f.keys[1:]
	return k, true
}

func (f *fakeSurface) text(row int) string {
	var b strings.Builder
	for col := range f.cols {
		r, ok := f.cells[[2]int{row, col}]
		if !ok {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

// tick advances the fake clock by the wait's own timeout.
const tick time.Duration = -2

type waitStep struct {
	advance time.Duration
	action  func()
	err     error
}

type fakeWaiter struct {
	clock    *fakeClock
	ch       *fakeChannel
	surf     *fakeSurface
	gate     *signalgate.Gate
	steps    []waitStep
	timeouts []time.Duration
	cancel   context.CancelFunc
}

func (w *fakeWaiter) Wait(timeout time.Duration) (Ready, error) {
	w.timeouts = append(w.timeouts, timeout)
	if len(w.steps) == 0 {
		w.cancel()
		return Ready{Woken: true}, nil
	}
	st := w.steps[0]
	w.steps = w.steps[1:]

	adv := st.advance
	if adv == tick {
		if timeout == NoTimeout {
			w.cancel()
			return Ready{Woken: true}, nil
		}
		adv = timeout
	}
	w.clock.now = w.clock.now.Add(adv)
	if st.action != nil {
		st.action()
	}
	if st.err != nil {
		return Ready{}, st.err
	}
	return Ready{
		PTY:    w.ch.readable(),
		Input:  len(w.surf.keys) > 0,
		Signal: w.gate.Pending(),
	}, nil
}

func (w *fakeWaiter) Wake() {}

func (w *fakeWaiter) Close() error { return nil }

type harness struct {
	s      *Session
	clock  *fakeClock
	ch     *fakeChannel
	surf   *fakeSurface
	gate   *signalgate.Gate
	waiter *fakeWaiter
}

func newHarness(t *testing.T, rows, cols int, mirror bool) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	ch := &fakeChannel{}
	surf := newFakeSurface(clock, rows, cols)
	gate, err := signalgate.New()
	if err != nil {
		t.Fatalf("signalgate.New: %v", err)
	}
	waiter := &fakeWaiter{clock: clock, ch: ch, surf: surf, gate: gate}
	s, err := New(ch, surf, gate, Options{
		Refresh: testRefresh,
		Mirror:  mirror,
		Clock:   clock,
		Waiter:  waiter,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return &harness{s: s, clock: clock, ch: ch, surf: surf, gate: gate, waiter: waiter}
}

func (h *harness) add(steps ...waitStep) {
	h.waiter.steps = append(h.waiter.steps, steps...)
}

func (h *harness) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.waiter.cancel = cancel
	return h.s.Run(ctx)
}

func (h *harness) runCancelled(t *testing.T) {
	t.Helper()
	if err := h.run(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}

func TestScenarioABurstRedrawsOnce(t *testing.T) {
	h := newHarness(t, 24, 80, false)
	var burst strings.Builder
	for i := range 200 {
		fmt.Fprintf(&burst, "line %03d\r\n", i)
	}
	if burst.Len() != 2000 {
		t.Fatalf("burst is %d bytes", burst.Len())
	}

	h.add(
		waitStep{advance: time.Millisecond, action: func() { h.ch.push(burst.String()) }},
		waitStep{advance: tick},
		waitStep{advance: tick},
		waitStep{advance: tick},
	)
	h.runCancelled(t)

	if len(h.surf.shows) != 1 || h.s.Redraws() != 1 {
		t.Fatalf("redraws = %d (shows %d), want 1", h.s.Redraws(), len(h.surf.shows))
	}
	if got := h.surf.shows[0].Sub(time.Unix(1000, 0)); got >= testRefresh.BurstCap {
		t.Fatalf("redraw after %v, want within burst cap", got)
	}
	if got := h.surf.text(0); got != "line 177" {
		t.Fatalf("row 0 = %q", got)
	}
	if got := h.surf.text(22); got != "line 199" {
		t.Fatalf("row 22 = %q", got)
	}
	want := []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond, NoTimeout}
	if fmt.Sprint(h.waiter.timeouts) != fmt.Sprint(want) {
		t.Fatalf("timeouts = %v, want %v", h.waiter.timeouts, want)
	}
}

func TestScenarioBTypingForcesRefresh(t *testing.T) {
	h := newHarness(t, 24, 80, true)
	h.surf.keys = []vterm.KeyEvent{
		{Key: vterm.KeyRune, Rune: 'l'},
		{Key: vterm.KeyRune, Rune: 's'},
		{Key: vterm.KeyEnter},
	}

	// The keys arrive in an iteration that also refreshes on quiescence.
	var forcedAfterInput bool
	h.add(
		waitStep{advance: 11 * time.Millisecond},
		waitStep{advance: time.Millisecond, action: func() {
			forcedAfterInput = h.s.policy.Forced()
			if got := h.ch.written.String(); got != "ls\r" {
				t.Errorf("written after input batch = %q", got)
			}
		}},
	)
	h.runCancelled(t)

	if !forcedAfterInput {
		t.Fatalf("input batch should flag a forced refresh")
	}
	if got := h.ch.written.String(); got != "ls\r" {
		t.Fatalf("written = %q, want %q", got, "ls\r")
	}
	if len(h.surf.shows) != 2 {
		t.Fatalf("redraws = %d, want 2", len(h.surf.shows))
	}
	if gap := h.surf.shows[1].Sub(h.surf.shows[0]); gap != time.Millisecond {
		t.Fatalf("typed input shown %v after the previous redraw", gap)
	}
	if h.waiter.timeouts[1] != testRefresh.PollInterval {
		t.Fatalf("forced refresh must not wait indefinitely, timeout = %v", h.waiter.timeouts[1])
	}
}

func TestScenarioCChildExit(t *testing.T) {
	h := newHarness(t, 24, 80, false)
	h.add(waitStep{advance: time.Millisecond, action: func() {
		h.ch.push("bye")
		h.ch.closed = true
	}})

	if err := h.run(); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	cell, _ := h.s.Terminal().CellAt(0, 0)
	if cell.String() != "b" {
		t.Fatalf("final output was not parsed, cell = %q", cell.String())
	}

	for range 2 {
		if err := h.s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if h.surf.finis != 1 || h.ch.closeCalls != 1 {
		t.Fatalf("cleanup ran fini=%d close=%d times", h.surf.finis, h.ch.closeCalls)
	}
}

func TestScenarioDResizeDuringWait(t *testing.T) {
	h := newHarness(t, 24, 80, true)
	h.add(
		waitStep{advance: time.Millisecond, action: func() {
			h.surf.rows, h.surf.cols = 10, 40
			h.gate.Raise()
		}},
		waitStep{advance: time.Millisecond},
	)
	h.runCancelled(t)

	if rows, cols := h.s.Terminal().Size(); rows != 10 || cols != 40 {
		t.Fatalf("emulator size = %dx%d", cols, rows)
	}
	if last := h.ch.sizes[len(h.ch.sizes)-1]; last != [2]int{10, 40} {
		t.Fatalf("pty size = %v", last)
	}
	if h.surf.syncs != 1 {
		t.Fatalf("display synced %d times", h.surf.syncs)
	}
	if len(h.surf.shows) != 1 {
		t.Fatalf("redraws = %d, want 1", len(h.surf.shows))
	}
	if h.surf.writes != 10*40 || h.surf.outOfRange != 0 {
		t.Fatalf("redraw wrote %d cells, %d out of range", h.surf.writes, h.surf.outOfRange)
	}
}

func TestResizeDeferredOutsideWait(t *testing.T) {
	h := newHarness(t, 24, 80, false)
	var sizeDuringStep [2]int
	var stateDuringRead State
	h.ch.onRead = func() {
		h.ch.onRead = nil
		stateDuringRead = h.s.State()
		h.surf.rows, h.surf.cols = 12, 50
		h.gate.Raise()
	}
	h.add(
		waitStep{advance: time.Millisecond, action: func() { h.ch.push("abc") }},
		waitStep{advance: time.Millisecond, action: func() {
			r, c := h.s.Terminal().Size()
			sizeDuringStep = [2]int{r, c}
			h.surf.writes, h.surf.outOfRange = 0, 0
		}},
		waitStep{advance: tick},
	)
	h.runCancelled(t)

	if stateDuringRead != StateDrainingPTY {
		t.Fatalf("state during read = %s", stateDuringRead)
	}
	if sizeDuringStep != [2]int{24, 80} {
		t.Fatalf("resize applied outside the wait: size %v", sizeDuringStep)
	}
	if rows, cols := h.s.Terminal().Size(); rows != 12 || cols != 50 {
		t.Fatalf("emulator size = %dx%d", cols, rows)
	}
	if h.surf.writes == 0 || h.surf.outOfRange != 0 {
		t.Fatalf("after resize: %d writes, %d out of range", h.surf.writes, h.surf.outOfRange)
	}
}

func TestQuiescenceDelaysRedraw(t *testing.T) {
	tests := []struct {
		chunks int
		gap    time.Duration
	}{
		{1, time.Millisecond},
		{7, 3 * time.Millisecond},
		{50, time.Millisecond},
		{20, 9 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%v", tt.chunks, tt.gap), func(t *testing.T) {
			h := newHarness(t, 24, 80, false)
			var last time.Time
			for range tt.chunks {
				h.add(waitStep{advance: tt.gap, action: func() {
					h.ch.push("x")
					last = h.clock.now
				}})
			}
			for range 10 {
				h.add(waitStep{advance: tick})
			}
			h.runCancelled(t)

			if len(h.surf.shows) != 1 {
				t.Fatalf("redraws = %d, want 1", len(h.surf.shows))
			}
			delay := h.surf.shows[0].Sub(last)
			if delay < testRefresh.Quiescence || delay >= testRefresh.Quiescence+testRefresh.PollInterval {
				t.Fatalf("redraw %v after last byte", delay)
			}
		})
	}
}

func TestBurstCapBoundsStaleness(t *testing.T) {
	h := newHarness(t, 24, 80, false)
	for range 1000 {
		h.add(waitStep{advance: time.Millisecond, action: func() { h.ch.push("y") }})
	}
	h.runCancelled(t)

	if len(h.surf.shows) != 3 {
		t.Fatalf("redraws = %d, want 3", len(h.surf.shows))
	}
	prev := time.Unix(1000, 0)
	for _, at := range h.surf.shows {
		if gap := at.Sub(prev); gap > testRefresh.BurstCap {
			t.Fatalf("redraw gap %v exceeds burst cap", gap)
		}
		prev = at
	}
}

func TestQueryRepliesReachChild(t *testing.T) {
	h := newHarness(t, 24, 80, false)
	h.add(waitStep{advance: time.Millisecond, action: func() { h.ch.push("\x1b[6n") }})
	h.runCancelled(t)

	if got := h.ch.written.String(); got != "\x1b[1;1R" {
		t.Fatalf("reply = %q", got)
	}
}

func TestInterruptedWait(t *testing.T) {
	h := newHarness(t, 24, 80, false)
	h.add(
		waitStep{advance: time.Millisecond, err: unix.EINTR},
		waitStep{advance: time.Millisecond, err: unix.EINTR, action: func() {
			h.surf.rows, h.surf.cols = 20, 60
			h.gate.Raise()
		}},
	)
	h.runCancelled(t)

	if rows, cols := h.s.Terminal().Size(); rows != 20 || cols != 60 {
		t.Fatalf("emulator size = %dx%d", cols, rows)
	}
}

func TestFatalErrors(t *testing.T) {
	t.Run("wait", func(t *testing.T) {
		h := newHarness(t, 24, 80, false)
		h.add(waitStep{err: unix.EBADF})
		err := h.run()
		var fe *FatalError
		if !errors.As(err, &fe) || fe.Op != "wait" || !errors.Is(err, unix.EBADF) {
			t.Fatalf("Run() = %v", err)
		}
	})
	t.Run("short write", func(t *testing.T) {
		h := newHarness(t, 24, 80, false)
		h.ch.writeErr = fmt.Errorf("wrote 1 of 2 bytes: %w", pty.ErrShortWrite)
		h.surf.keys = []vterm.KeyEvent{{Key: vterm.KeyRune, Rune: 'q'}}
		h.add(waitStep{advance: time.Millisecond})
		err := h.run()
		var fe *FatalError
		if !errors.As(err, &fe) || fe.Op != "write pty" || !errors.Is(err, pty.ErrShortWrite) {
			t.Fatalf("Run() = %v", err)
		}
	})
}

func TestFatalErrorMessage(t *testing.T) {
	err := fatal("read pty", fmt.Errorf("read: %w", unix.EIO))
	msg := err.Error()
	if !strings.Contains(msg, "read pty") || !strings.Contains(msg, "input/output error") || !strings.Contains(msg, "errno 5") {
		t.Fatalf("message = %q", msg)
	}
	plain := fatal("init", errors.New("boom"))
	if plain.Error() != "init: boom" {
		t.Fatalf("message = %q", plain.Error())
	}
}

func TestStateString(t *testing.T) {
	if StateDrainingPTY.String() != "DRAINING_PTY" || State(99).String() != "UNKNOWN" {
		t.Fatalf("unexpected state names")
	}
}
