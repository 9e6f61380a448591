package pty

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// closeGrace is how long the child gets to exit after each hangup step.
const closeGrace = 200 * time.Millisecond

// hangupGroup sends SIGHUP to the process group led by pid, as a vanishing
// terminal would, then SIGKILL if the group outlives grace.
func hangupGroup(pid int, grace time.Duration) error {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}

	if err := unix.Kill(-pgid, unix.SIGHUP); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if err := unix.Kill(-pgid, 0); errors.Is(err, unix.ESRCH) {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	// EPERM: the group emptied and its id was reused during the grace period.
	err = unix.Kill(-pgid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) && !errors.Is(err, unix.EPERM) {
		return err
	}
	return nil
}
