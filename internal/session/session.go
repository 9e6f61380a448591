// Package session owns one pty host session: the child's pty, the emulator,
// the render bridge, the display and the resize gate, all driven by a single
// event loop.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/andyrewlee/ncte/internal/config"
	"github.com/andyrewlee/ncte/internal/display"
	"github.com/andyrewlee/ncte/internal/iobuf"
	"github.com/andyrewlee/ncte/internal/logging"
	"github.com/andyrewlee/ncte/internal/render"
	"github.com/andyrewlee/ncte/internal/signalgate"
	"github.com/andyrewlee/ncte/internal/timer"
	"github.com/andyrewlee/ncte/internal/vterm"
)

// Channel is the child's pty as the loop uses it.
type Channel interface {
	Fd() int
	ReadAvailable(buf *iobuf.Buffer) error
	WriteAll(p []byte) error
	Resize(rows, cols int) error
	Close() error
}

// Options configure a Session.
type Options struct {
	Refresh    config.RefreshConfig
	BufferSize int
	Mirror     bool
	Palette    render.Palette
	// Clock drives the refresh timers. Nil selects timer.System.
	Clock timer.Clock
	// Waiter replaces the poll(2) wait set.
	Waiter Waiter
}

// Session is the state shared by the event loop. It is not safe for
// concurrent use; only Close may be called from another goroutine.
type Session struct {
	pty     Channel
	surface display.Surface
	gate    *signalgate.Gate
	waiter  Waiter

	term   *vterm.Terminal
	bridge *render.Bridge
	policy *RefreshPolicy

	readBuf  *iobuf.Buffer
	writeBuf *iobuf.Buffer

	state   State
	redraws int

	closeOnce sync.Once
	closeErr  error
}

// New builds a session around an initialized surface. The emulator takes
// the surface's current size.
func New(ch Channel, surface display.Surface, gate *signalgate.Gate, opts Options) (*Session, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = iobuf.DefaultCapacity
	}
	rows, cols := surface.Size()
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("display too small: %dx%d", cols, rows)
	}

	term := vterm.New(rows, cols)
	bridge := render.New(surface, term, render.Options{Mirror: opts.Mirror, Palette: opts.Palette})
	if err := bridge.Init(); err != nil {
		return nil, fmt.Errorf("init color pairs: %w", err)
	}
	term.SetCallbacks(bridge.Callbacks())
	if err := ch.Resize(rows, cols); err != nil {
		return nil, fatal("resize pty", err)
	}

	waiter := opts.Waiter
	if waiter == nil {
		pw, err := NewPollWaiter(ch.Fd(), surface.Fd(), gate.Fd())
		if err != nil {
			return nil, err
		}
		waiter = pw
	}

	s := &Session{
		pty:      ch,
		surface:  surface,
		gate:     gate,
		waiter:   waiter,
		term:     term,
		bridge:   bridge,
		policy:   NewRefreshPolicy(opts.Refresh, opts.Clock),
		readBuf:  iobuf.New(opts.BufferSize),
		writeBuf: iobuf.New(vterm.OutputCapacity),
	}
	logging.Info("session: %dx%d, mirror=%v", cols, rows, opts.Mirror)
	return s, nil
}

// Terminal returns the session's emulator.
func (s *Session) Terminal() *vterm.Terminal {
	return s.term
}

// State returns the loop's current phase.
func (s *Session) State() State {
	return s.state
}

// Redraws returns how many refreshes the loop has performed.
func (s *Session) Redraws() int {
	return s.redraws
}

// applyResize reads the display's new size and propagates it to the pty and
// the emulator. It only runs between loop iterations.
func (s *Session) applyResize() error {
	s.surface.Sync()
	rows, cols := s.surface.Size()
	if rows < 1 || cols < 1 {
		logging.Warn("session: ignoring resize to %dx%d", cols, rows)
		return nil
	}
	if r, c := s.term.Size(); r == rows && c == cols {
		s.policy.Force()
		return nil
	}
	if err := s.pty.Resize(rows, cols); err != nil {
		return fatal("resize pty", err)
	}
	s.term.SetSize(rows, cols)
	s.bridge.DamageAll()
	s.policy.Force()
	logging.Debug("session: resized to %dx%d", cols, rows)
	return nil
}

// Close tears the session down once: the display is restored first so
// later failures are visible on a sane terminal.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.surface.Fini()
		s.gate.Stop()
		s.closeErr = errors.Join(s.waiter.Close(), s.pty.Close())
	})
	return s.closeErr
}
