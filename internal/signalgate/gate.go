// Package signalgate turns SIGWINCH into a pending flag plus a readable
// descriptor, so the resize is handled on the event loop between iterations
// rather than inside a signal context.
package signalgate

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/andyrewlee/ncte/internal/logging"
	"github.com/andyrewlee/ncte/internal/safego"
)

// Gate records resize notifications. It starts blocked: a raise while blocked
// only sets the pending flag, and Unblock delivers it.
type Gate struct {
	pending atomic.Bool
	blocked atomic.Bool
	closed  atomic.Bool

	readFd  int
	writeFd int

	mu      sync.Mutex
	sigCh   chan os.Signal
	done    <-chan struct{}
	stopped bool
}

// New creates a blocked gate with its wake pipe.
func New() (*Gate, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("signal gate pipe: %w", err)
	}
	g := &Gate{readFd: fds[0], writeFd: fds[1]}
	g.blocked.Store(true)
	return g, nil
}

// Start subscribes to SIGWINCH. Other subscribers keep receiving it.
func (g *Gate) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sigCh != nil || g.stopped {
		return
	}
	g.sigCh = make(chan os.Signal, 1)
	signal.Notify(g.sigCh, syscall.SIGWINCH)
	ch := g.sigCh
	g.done = safego.Go("sigwinch", func() {
		for range ch {
			g.Raise()
		}
	})
}

// Raise marks a resize as pending and wakes the waiter unless blocked.
func (g *Gate) Raise() {
	g.pending.Store(true)
	if !g.blocked.Load() {
		g.wake()
	}
}

// Block defers delivery of raises until Unblock.
func (g *Gate) Block() {
	g.blocked.Store(true)
}

// Unblock allows delivery and re-delivers a raise that arrived while blocked.
func (g *Gate) Unblock() {
	g.blocked.Store(false)
	if g.pending.Load() {
		g.wake()
	}
}

// Pending reports whether a resize is waiting to be taken.
func (g *Gate) Pending() bool {
	return g.pending.Load()
}

// Take clears the wake pipe and the pending flag, reporting whether a resize
// was pending.
func (g *Gate) Take() bool {
	var scratch [64]byte
	for {
		n, err := unix.Read(g.readFd, scratch[:])
		if n <= 0 || err != nil {
			if err != nil && !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
				logging.Debug("signalgate: drain: %v", err)
			}
			break
		}
	}
	return g.pending.Swap(false)
}

// Fd returns the descriptor that becomes readable when a raise is delivered.
func (g *Gate) Fd() int {
	return g.readFd
}

// Stop unsubscribes from SIGWINCH and closes the pipe.
func (g *Gate) Stop() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.stopped = true
	ch, done := g.sigCh, g.done
	g.mu.Unlock()

	if ch != nil {
		signal.Stop(ch)
		close(ch)
		<-done
	}
	g.closed.Store(true)
	_ = unix.Close(g.readFd)
	_ = unix.Close(g.writeFd)
}

func (g *Gate) wake() {
	if g.closed.Load() {
		return
	}
	_, err := unix.Write(g.writeFd, []byte{1})
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		logging.Debug("signalgate: wake: %v", err)
	}
}
