package executil

import (
	"os"
	"os/exec"
	"strconv"
)

func (c *Cmd) TerminateProcessGroup(int) {
	// Based on https://stackoverflow.com/a/44551450/2804197
	// Original author: https://stackoverflow.com/users/301049/rots
	kill := exec.Command("TASKKILL", "/T", "/F", "/PID", strconv.Itoa(c.Process.Pid))
	kill.Stderr = os.Stderr
	kill.Stdout = os.Stderr
	_ = kill.Run()
}

func (c *Cmd) prepareProcessGroupTermination() {}

func (c *Cmd) getpgid() (int, error) {
	// Process groups are not used on Windows, TASKKILL /T terminates
	// the whole process tree
	return 0, nil
}
