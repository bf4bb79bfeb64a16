package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/common"
)

// Go cannot fork a running runtime, so detaching is done by re-executing the
// binary twice. The first child starts a new session; the second is no longer
// a session leader and can never reacquire a controlling terminal.
const (
	stageLeader   = "1"
	stageDetached = "2"
)

// reexec starts a copy of this binary and does not wait for it. Tests replace
// it.
var reexec = func(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Detach moves the process into the background. It returns true in the final
// detached process, which should carry on; every other caller should exit
// with status 0 as soon as Detach returns false without error.
func Detach() (bool, error) {
	var next string
	var attr *syscall.SysProcAttr
	switch stage := os.Getenv(common.DaemonStageEnv); stage {
	case "":
		next = stageLeader
		attr = &syscall.SysProcAttr{Setsid: true}
	case stageLeader:
		next = stageDetached
	case stageDetached:
		return true, nil
	default:
		return false, errors.Errorf("supervisor: unknown daemon stage %q", stage)
	}

	exe, err := os.Executable()
	if err != nil {
		return false, errors.Wrap(err, "supervisor: locate executable")
	}
	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return false, errors.Wrap(err, "supervisor: open null device")
	}
	defer null.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), common.DaemonStageEnv+"="+next)
	cmd.Stdin = null
	cmd.Stdout = null
	cmd.Stderr = null
	cmd.Dir = "/"
	cmd.SysProcAttr = attr
	if err := reexec(cmd); err != nil {
		return false, errors.Wrapf(err, "supervisor: daemon stage %s", next)
	}
	logrus.Debugf("supervisor: handed off to daemon stage %s", next)
	return false, nil
}
