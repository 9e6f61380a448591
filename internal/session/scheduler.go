package session

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/andyrewlee/ncte/internal/logging"
	"github.com/andyrewlee/ncte/internal/perf"
	"github.com/andyrewlee/ncte/internal/pty"
)

// State is the loop's current phase.
type State int

const (
	StateWaiting State = iota
	StateDrainingPTY
	StateRefreshDecision
	StateDrainingInput
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateDrainingPTY:
		return "DRAINING_PTY"
	case StateRefreshDecision:
		return "REFRESH_DECISION"
	case StateDrainingInput:
		return "DRAINING_INPUT"
	default:
		return "UNKNOWN"
	}
}

// Run drives the session until the child's pty closes (nil), ctx is
// cancelled (ctx.Err()) or a fatal error occurs (*FatalError).
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.waiter.Wake)
	defer stop()
	defer perf.Flush("session")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := s.step()
		if err != nil {
			logging.Error("session: %v", err)
			return err
		}
		if done {
			logging.Info("session: pty closed")
			return nil
		}
	}
}

// step runs one loop iteration. done reports that the pty has closed.
func (s *Session) step() (done bool, err error) {
	s.state = StateWaiting
	timeout := s.policy.Timeout()

	// The resize gate is open only while waiting.
	s.gate.Unblock()
	ready, err := s.waiter.Wait(timeout)
	s.gate.Block()

	if err != nil {
		if !errors.Is(err, unix.EINTR) {
			return false, fatal("wait", err)
		}
		return false, s.handleResize()
	}
	if ready.Signal || s.gate.Pending() {
		return false, s.handleResize()
	}

	if ready.PTY {
		s.state = StateDrainingPTY
		if done, err := s.drainPTY(); done || err != nil {
			return done, err
		}
	}

	s.state = StateRefreshDecision
	if reason := s.policy.Decide(); reason != ReasonNone {
		s.refresh(reason)
	} else {
		s.policy.Skipped()
	}

	if ready.Input {
		s.state = StateDrainingInput
		if done, err := s.drainInput(); done || err != nil {
			return done, err
		}
	}
	return false, nil
}

func (s *Session) handleResize() error {
	if !s.gate.Take() {
		return nil
	}
	return s.applyResize()
}

// drainPTY reads what the child has produced, up to the buffer capacity,
// and feeds it to the emulator.
func (s *Session) drainPTY() (bool, error) {
	s.readBuf.Reset()
	readErr := s.pty.ReadAvailable(s.readBuf)
	if n := s.readBuf.Len(); n > 0 {
		s.term.Parse(s.readBuf.Bytes())
		s.policy.OutputSeen()
		perf.Count("pty_bytes", int64(n))
	}
	// Query replies (DSR, DA) go back before anything else is read.
	if done, err := s.flushOutput(); done || err != nil {
		return done, err
	}

	switch {
	case readErr == nil:
		return false, nil
	case errors.Is(readErr, pty.ErrClosed):
		return true, nil
	default:
		return false, fatal("read pty", readErr)
	}
}

// drainInput encodes queued keys while the emulator has room and writes
// the result to the child. Typed input always forces the next refresh.
func (s *Session) drainInput() (bool, error) {
	keys := 0
	for s.term.EncodeRemaining() > 0 {
		key, ok := s.surface.ReadKey()
		if !ok {
			break
		}
		s.term.EncodeInput(key)
		keys++
	}
	perf.Count("keys", int64(keys))

	done, err := s.flushOutput()
	s.policy.Force()
	return done, err
}

// flushOutput moves encoded bytes from the emulator to the pty.
func (s *Session) flushOutput() (bool, error) {
	for s.term.EncodePending() > 0 {
		s.writeBuf.Reset()
		s.writeBuf.Append(s.term.EncodeDrain(s.writeBuf.Cap()))
		if err := s.pty.WriteAll(s.writeBuf.Bytes()); err != nil {
			if errors.Is(err, pty.ErrClosed) {
				return true, nil
			}
			return false, fatal("write pty", err)
		}
	}
	return false, nil
}

func (s *Session) refresh(reason Reason) {
	done := perf.Time("redraw")
	s.bridge.DamageAll()
	s.bridge.Redraw()
	s.surface.Show()
	done()

	s.policy.Refreshed()
	s.redraws++
	perf.Count("redraws", 1)
	if logging.Enabled(logging.LevelDebug) {
		logging.Debug("session: refresh (%s)", reason)
	}
}
