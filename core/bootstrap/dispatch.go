package bootstrap

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/pkg/errors"

	"github.com/mikanhq/launcher/core"
)

// Role selects which long-running process this container becomes. Each role
// is terminal: dispatch replaces the process image and never returns.
type Role string

const (
	RoleHTTP      Role = "http"
	RoleRealtime  Role = "realtime"
	RoleWorker    Role = "worker"
	RoleScheduler Role = "scheduler"
)

var validRoles = []Role{RoleHTTP, RoleRealtime, RoleWorker, RoleScheduler}

// ParseRole resolves a role token; an empty token means http. Unknown tokens
// are rejected before any dependency waiting happens.
func ParseRole(token string) (Role, error) {
	switch Role(core.CleanString(token, true)) {
	case "":
		return RoleHTTP, nil
	case RoleHTTP:
		return RoleHTTP, nil
	case RoleRealtime:
		return RoleRealtime, nil
	case RoleWorker:
		return RoleWorker, nil
	case RoleScheduler:
		return RoleScheduler, nil
	}
	return "", errors.Errorf("unknown role %q (valid roles: %v)", token, validRoles)
}

// mockable
var (
	lookPathFunc = exec.LookPath
	execFunc     = syscall.Exec
)

// Dispatcher hands the process over to the selected role binary via
// exec-replacement; the launcher's own exit code is moot after a successful
// handoff.
type Dispatcher struct {
	conf   *core.Config
	logger core.Logger
}

func NewDispatcher(conf *core.Config, logger core.Logger) *Dispatcher {
	return &Dispatcher{conf: conf, logger: logger}
}

func (d *Dispatcher) Exec(role Role) error {
	command, args, err := d.argv(role)
	if err != nil {
		return err
	}

	path, err := lookPathFunc(command)
	if err != nil {
		return errors.Wrapf(err, "locating %s", command)
	}

	d.logger.Info(fmt.Sprintf("handing off to %s: %s %v", role, command, args))
	if err := execFunc(path, append([]string{command}, args...), os.Environ()); err != nil {
		return errors.Wrapf(err, "replacing process with %s", command)
	}
	return nil
}

func (d *Dispatcher) argv(role Role) (string, []string, error) {
	switch role {
	case RoleHTTP:
		args := []string{"serve", "-bind", d.conf.Server.Bind}
		if d.conf.Server.ConfigFile != "" {
			args = append(args, "-config", d.conf.Server.ConfigFile)
		}
		return d.conf.Server.Command, args, nil

	case RoleRealtime:
		args := []string{
			"-bind", d.conf.Realtime.Bind,
			"-max-body-size", strconv.FormatInt(d.conf.Realtime.MaxBodySize, 10),
			"-idle-timeout", d.conf.Realtime.IdleTimeout.String(),
		}
		if d.conf.Realtime.Compression {
			args = append(args, "-compression")
		}
		return d.conf.Realtime.Command, args, nil

	case RoleWorker:
		// peer coordination stays off: a single always-available broker makes
		// gossip, mingle and heartbeats pure overhead
		args := []string{
			"-concurrency", strconv.Itoa(d.conf.Worker.Concurrency),
			"-max-tasks-per-child", strconv.Itoa(d.conf.Worker.MaxTasksPerChild),
			"-max-memory-per-child", strconv.Itoa(d.conf.Worker.MaxMemPerChildKB),
			"-without-gossip",
			"-without-mingle",
			"-without-heartbeat",
		}
		return d.conf.Worker.Command, args, nil

	case RoleScheduler:
		// no built-in mutual exclusion; deployment keeps this at one replica
		args := []string{"-schedule", d.conf.Scheduler.ScheduleFile}
		return d.conf.Scheduler.Command, args, nil
	}
	return "", nil, errors.Errorf("unknown role %q (valid roles: %v)", role, validRoles)
}
