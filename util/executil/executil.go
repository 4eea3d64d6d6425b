package executil

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"

	"code-intelligence.com/crashtriage/pkg/log"
)

// DefaultTerminationGracePeriod is the duration we wait after sending a
// SIGTERM to the process group before we send a SIGKILL.
const DefaultTerminationGracePeriod = 3 * time.Second

// Cmd provides the same functionality as exec.Cmd plus termination of
// the whole process group when the context is done.
type Cmd struct {
	*exec.Cmd
	ctx      context.Context
	waitDone chan struct{}
	// When TerminateProcessGroupWhenContextDone is set to true,
	// Cmd.Start() will terminate the process group when the command did
	// not complete before the context is done. In that case,
	// TerminatedAfterContextDone() will return true.
	TerminateProcessGroupWhenContextDone bool
	// TerminationGracePeriod overrides DefaultTerminationGracePeriod
	// if non-zero.
	TerminationGracePeriod time.Duration

	terminatedAfterContextDone      bool
	terminatedAfterContextDoneMutex sync.Mutex
}

func CommandContext(ctx context.Context, name string, arg ...string) *Cmd {
	return &Cmd{Cmd: exec.CommandContext(ctx, name, arg...), ctx: ctx}
}

func (c *Cmd) gracePeriod() time.Duration {
	if c.TerminationGracePeriod > 0 {
		return c.TerminationGracePeriod
	}
	return DefaultTerminationGracePeriod
}

// Start does the same as exec.Cmd.Start() but, if requested, sets up
// the termination of the process group once the context is done.
func (c *Cmd) Start() error {
	if c.Process != nil {
		return errors.New("exec: already started")
	}

	if c.TerminateProcessGroupWhenContextDone {
		c.prepareProcessGroupTermination()
		// The process group is terminated by us below, so the default
		// behavior of exec.CommandContext (killing only the process
		// itself) is disabled. WaitDelay makes sure that Wait doesn't
		// block forever on pipes inherited by processes which escaped
		// the process group.
		c.Cmd.Cancel = func() error { return nil }
		c.Cmd.WaitDelay = c.gracePeriod() + time.Second
	}

	err := c.Cmd.Start()
	if err != nil {
		return errors.WithStack(err)
	}

	if c.TerminateProcessGroupWhenContextDone && c.ctx != nil {
		pgid, err := c.getpgid()
		if err != nil {
			return err
		}

		c.waitDone = make(chan struct{})
		go func() {
			select {
			case <-c.ctx.Done():
				c.terminatedAfterContextDoneMutex.Lock()
				c.terminatedAfterContextDone = true
				c.terminatedAfterContextDoneMutex.Unlock()
				log.Debugf("Terminating process %d: %s", c.Process.Pid, c.ctx.Err().Error())
				c.TerminateProcessGroup(pgid)
			case <-c.waitDone:
			}
		}()
	}

	return nil
}

func (c *Cmd) TerminatedAfterContextDone() bool {
	c.terminatedAfterContextDoneMutex.Lock()
	defer c.terminatedAfterContextDoneMutex.Unlock()
	return c.terminatedAfterContextDone
}

// Wait does the same as exec.Cmd.Wait() and stops the process group
// watcher started by Start().
func (c *Cmd) Wait() error {
	err := c.Cmd.Wait()
	if c.waitDone != nil {
		close(c.waitDone)
	}
	return errors.WithStack(err)
}

// Run is the same as exec.Cmd.Run() but uses the wrapper methods of
// this struct.
func (c *Cmd) Run() error {
	err := c.Start()
	if err != nil {
		return err
	}

	return c.Wait()
}
