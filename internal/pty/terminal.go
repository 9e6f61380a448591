package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/andyrewlee/ncte/internal/iobuf"
	"github.com/andyrewlee/ncte/internal/logging"
	"github.com/andyrewlee/ncte/internal/safego"
)

// ReadChunk is the size of a single read from the master side. A read is only
// issued while the destination buffer still has ReadChunk bytes free.
const ReadChunk = 512

// writeWait bounds how long WriteAll waits for a full master to drain.
const writeWait = time.Second

var (
	// ErrClosed reports that the child side of the channel has gone away.
	ErrClosed = errors.New("pty: channel closed")
	// ErrShortWrite reports that the master accepted only part of a write.
	ErrShortWrite = errors.New("pty: short write")
)

// Options configure the child started by Start.
type Options struct {
	Command []string // argv; empty runs the user's shell
	Dir     string
	Env     []string // extra KEY=VALUE entries
	Term    string   // TERM for the child; empty inherits or falls back
	Rows    int
	Cols    int
}

// fdIO is the raw I/O surface of the master descriptor.
type fdIO interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	WaitWritable(timeout time.Duration) error
}

type rawFD int

func (f rawFD) Read(p []byte) (int, error)  { return unix.Read(int(f), p) }
func (f rawFD) Write(p []byte) (int, error) { return unix.Write(int(f), p) }

func (f rawFD) WaitWritable(timeout time.Duration) error {
	fds := []unix.PollFd{{Fd: int32(f), Events: unix.POLLOUT}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return unix.EAGAIN
		}
		return nil
	}
}

// Channel is the master side of a pseudo-terminal with a child process
// attached to the slave side. The master descriptor is non-blocking.
type Channel struct {
	ptyFile *os.File
	cmd     *exec.Cmd
	fd      int
	io      fdIO

	closeOnce sync.Once
	closeErr  error
}

// Start creates a pseudo-terminal sized rows x cols and runs the child on it.
func Start(opts Options) (*Channel, error) {
	argv := opts.Command
	if len(argv) == 0 {
		argv = []string{DefaultShell()}
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = BuildEnv(os.Environ(), opts.Term, opts.Env)

	ptmx, err := pty.StartWithSize(cmd, winsize(opts.Rows, opts.Cols))
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	// Fd() switches the file to blocking mode, so non-blocking is set after it.
	fd := int(ptmx.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("set master non-blocking: %w", err)
	}

	logging.Info("pty: started %v pid=%d size=%dx%d", argv, cmd.Process.Pid, opts.Rows, opts.Cols)
	return &Channel{ptyFile: ptmx, cmd: cmd, fd: fd, io: rawFD(fd)}, nil
}

func winsize(rows, cols int) *pty.Winsize {
	return &pty.Winsize{Rows: clampDim(rows), Cols: clampDim(cols)}
}

func clampDim(v int) uint16 {
	switch {
	case v < 1:
		return 1
	case v > 0xffff:
		return 0xffff
	}
	return uint16(v)
}

// Fd returns the master descriptor for readiness polling.
func (c *Channel) Fd() int {
	return c.fd
}

// Pid returns the child's process id.
func (c *Channel) Pid() int {
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// ReadAvailable appends everything currently readable from the master to buf.
// Reads stop when the master would block or when buf has less than ReadChunk
// bytes free. ErrClosed is returned once the child side is gone; bytes read
// before that are still in buf.
func (c *Channel) ReadAvailable(buf *iobuf.Buffer) error {
	for {
		window := buf.Window(ReadChunk)
		if window == nil {
			return nil
		}
		n, err := c.io.Read(window)
		if n > 0 {
			buf.Commit(n)
		}
		switch {
		case err == nil && n > 0:
			continue
		case err == nil:
			return ErrClosed
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil
		case errors.Is(err, unix.EIO):
			return ErrClosed
		default:
			return fmt.Errorf("read pty master: %w", err)
		}
	}
}

// WriteAll writes p to the master in a single write. A full master is waited
// on; a partial write is not retried and yields ErrShortWrite.
func (c *Channel) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := c.io.Write(p)
		switch {
		case err == nil && n == len(p):
			return nil
		case err == nil || (n > 0 && n < len(p)):
			return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(p))
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if werr := c.io.WaitWritable(writeWait); werr != nil {
				return fmt.Errorf("write pty master: %w", werr)
			}
			continue
		case errors.Is(err, unix.EIO):
			return ErrClosed
		default:
			return fmt.Errorf("write pty master: %w", err)
		}
	}
	return nil
}

// Resize updates the window size of the pseudo-terminal; the kernel delivers
// SIGWINCH to the child's foreground process group.
func (c *Channel) Resize(rows, cols int) error {
	if c.ptyFile == nil {
		return nil
	}
	if err := pty.Setsize(c.ptyFile, winsize(rows, cols)); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	return unix.SetNonblock(c.fd, true)
}

// Close closes the master and reaps the child. A child that survives the
// hangup of its terminal has its process group signalled. Safe to call more
// than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		if c.ptyFile != nil {
			c.closeErr = c.ptyFile.Close()
		}
		if c.cmd == nil || c.cmd.Process == nil {
			return
		}
		reaped := safego.Go("pty-reap", func() { _ = c.cmd.Wait() })
		select {
		case <-reaped:
			return
		case <-time.After(closeGrace):
		}
		if err := hangupGroup(c.cmd.Process.Pid, closeGrace); err != nil {
			logging.Warn("pty: signal child group: %v", err)
		}
		<-reaped
	})
	return c.closeErr
}

// ExitCode returns the child's exit status once it has been reaped, or -1.
func (c *Channel) ExitCode() int {
	if c.cmd == nil || c.cmd.ProcessState == nil {
		return -1
	}
	return c.cmd.ProcessState.ExitCode()
}
