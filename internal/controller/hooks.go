package controller

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// SetHooks installs the shell commands to run after every scene/level
// change, reinstating the original's updateEnvironment/shell-hook
// convention (radiora2.cpp:updateEnvironment, invoked from cmd.cpp).
func (c *Controller) SetHooks(hooks []string) {
	c.hooks = hooks
}

// RunHooks execs every configured hook command with OUTPUTS set to a
// space-separated "<id>=<level>" dump of every known output, in ascending
// id order. Hooks run detached (os/exec, not awaited) so a slow or wedged
// script never stalls the reactor goroutine.
func (c *Controller) RunHooks() {
	if len(c.hooks) == 0 {
		return
	}
	env := "OUTPUTS=" + c.outputsEnv()
	for _, hook := range c.hooks {
		cmd := exec.Command("/bin/sh", "-c", hook) //nolint:gosec // hook commands come from the site-description file, a trusted local config
		cmd.Env = append(cmd.Environ(), env)
		if err := cmd.Start(); err != nil {
			c.log.Warn("hook failed to start", "hook", hook, "error", err)
			continue
		}
		go func(cmd *exec.Cmd, hook string) {
			if err := cmd.Wait(); err != nil {
				c.log.Warn("hook exited with error", "hook", hook, "error", err)
			}
		}(cmd, hook)
	}
}

func (c *Controller) outputsEnv() string {
	ids := make([]int, 0, len(c.store.Outputs))
	for id := range c.store.Outputs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d=%d", id, int(c.store.Outputs[id].Level)))
	}
	return strings.Join(parts, " ")
}
