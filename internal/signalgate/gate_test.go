package signalgate

import (
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func readable(t *testing.T, fd int, timeout time.Duration) bool {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		return n > 0 && fds[0].Revents&unix.POLLIN != 0
	}
}

func newGate(t *testing.T) *Gate {
	t.Helper()
	g, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(g.Stop)
	return g
}

func TestRaiseWhileBlockedIsDeferred(t *testing.T) {
	g := newGate(t)

	g.Raise()
	if !g.Pending() {
		t.Fatal("raise should set pending")
	}
	if readable(t, g.Fd(), 0) {
		t.Fatal("blocked gate must not wake")
	}

	g.Unblock()
	if !readable(t, g.Fd(), 100*time.Millisecond) {
		t.Fatal("unblock should deliver the pending raise")
	}
	if !g.Take() {
		t.Fatal("Take() should report the pending resize")
	}
	if g.Pending() || readable(t, g.Fd(), 0) {
		t.Fatal("Take() should clear the flag and the pipe")
	}
}

func TestRaiseWhileUnblockedWakes(t *testing.T) {
	g := newGate(t)
	g.Unblock()

	g.Raise()
	g.Raise()
	if !readable(t, g.Fd(), 100*time.Millisecond) {
		t.Fatal("expected wake")
	}
	if !g.Take() {
		t.Fatal("expected pending resize")
	}
	if g.Take() {
		t.Fatal("repeated raises collapse into one pending resize")
	}
}

func TestTakeWithoutRaise(t *testing.T) {
	g := newGate(t)
	if g.Take() {
		t.Fatal("nothing pending")
	}
}

func TestStartReceivesSIGWINCH(t *testing.T) {
	g := newGate(t)
	g.Start()
	g.Unblock()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGWINCH); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if !readable(t, g.Fd(), 2*time.Second) {
		t.Fatal("SIGWINCH did not wake the gate")
	}
	if !g.Take() {
		t.Fatal("expected pending resize after SIGWINCH")
	}
}

func TestStopIdempotent(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g.Start()
	g.Stop()
	g.Stop()
}
