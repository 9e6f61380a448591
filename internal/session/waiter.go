package session

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Ready reports which sources a wait returned for.
type Ready struct {
	PTY    bool
	Input  bool
	Signal bool
	Woken  bool
}

// Waiter blocks until one of the loop's sources is readable or the timeout
// passes. A negative timeout waits indefinitely. An interrupted wait returns
// unix.EINTR.
type Waiter interface {
	Wait(timeout time.Duration) (Ready, error)
	// Wake makes a blocked or future Wait return with Ready.Woken. It is
	// safe to call from any goroutine.
	Wake()
	Close() error
}

const (
	slotPTY = iota
	slotInput
	slotSignal
	slotWake
)

// PollWaiter waits on the pty, key queue, signal gate and its own wake pipe
// with poll(2).
type PollWaiter struct {
	fds    [4]unix.PollFd
	wakeR  int
	wakeW  int
	closed atomic.Bool
}

// NewPollWaiter arms the wait set. A negative descriptor is never ready.
func NewPollWaiter(ptyFd, inputFd, signalFd int) (*PollWaiter, error) {
	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("waiter pipe: %w", err)
	}
	w := &PollWaiter{wakeR: pipe[0], wakeW: pipe[1]}
	for i, fd := range []int{ptyFd, inputFd, signalFd, w.wakeR} {
		w.fds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}
	return w, nil
}

// Wait polls the wait set.
func (w *PollWaiter) Wait(timeout time.Duration) (Ready, error) {
	for i := range w.fds {
		w.fds[i].Revents = 0
	}
	n, err := unix.Poll(w.fds[:], pollMillis(timeout))
	if err != nil {
		return Ready{}, err
	}
	if n == 0 {
		return Ready{}, nil
	}
	r := Ready{
		PTY:    readable(w.fds[slotPTY]),
		Input:  readable(w.fds[slotInput]),
		Signal: readable(w.fds[slotSignal]),
		Woken:  readable(w.fds[slotWake]),
	}
	if r.Woken {
		w.drain()
	}
	return r, nil
}

// Hangup and error conditions count as readable so the following read
// reports them.
func readable(fd unix.PollFd) bool {
	return fd.Fd >= 0 && fd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
}

func pollMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return ms
}

func (w *PollWaiter) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Wake interrupts the current or next Wait.
func (w *PollWaiter) Wake() {
	if w.closed.Load() {
		return
	}
	_, _ = unix.Write(w.wakeW, []byte{1})
}

// Close releases the wake pipe.
func (w *PollWaiter) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	_ = unix.Close(w.wakeW)
	return unix.Close(w.wakeR)
}
