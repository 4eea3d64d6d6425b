//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package executil

import (
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"code-intelligence.com/crashtriage/pkg/log"
)

func (c *Cmd) TerminateProcessGroup(pgid int) {
	log.Debugf("Sending SIGTERM to process group %d", pgid)
	// We ignore errors here because the process group might not exist
	// anymore at this point.
	_ = unix.Kill(-pgid, unix.SIGTERM) // note the minus sign

	select {
	case <-time.After(c.gracePeriod()):
		log.Debugf("Sending SIGKILL to process group %d", pgid)
		_ = unix.Kill(-pgid, unix.SIGKILL)
	case <-c.waitDone:
		// The process has already exited. Other members of the process
		// group which ignored the SIGTERM are killed anyway, no process
		// may outlive the call which started it.
		_ = unix.Kill(-pgid, unix.SIGKILL)
	}
}

func (c *Cmd) prepareProcessGroupTermination() {
	// Set PGID so that we're able to terminate the process group on timeout
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.Setpgid = true
}

func (c *Cmd) getpgid() (int, error) {
	pgid, err := unix.Getpgid(c.Process.Pid)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return pgid, nil
}
