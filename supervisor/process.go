package supervisor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/common"
)

// ProcessLauncher runs each generation as a fresh copy of this binary with
// the worker role set in its environment, so a crash or leaked descriptor
// never outlives its generation.
type ProcessLauncher struct {
	// Path defaults to os.Executable().
	Path string
	// Args defaults to os.Args[1:].
	Args []string
	// Env is added to os.Environ().
	Env []string

	Stdout, Stderr io.Writer
}

// Launch implements Launcher. Cancelling ctx sends SIGTERM to the worker.
func (p *ProcessLauncher) Launch(ctx context.Context) <-chan ExitStatus {
	ch := make(chan ExitStatus, 1)

	path := p.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			ch <- ExitStatus{Code: 1, Err: err}
			return ch
		}
		path = exe
	}
	args := p.Args
	if args == nil {
		args = os.Args[1:]
	}
	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Env = append(cmd.Env, common.RoleEnv+"="+common.RoleWorker)
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr

	if err := cmd.Start(); err != nil {
		ch <- ExitStatus{Code: ExitCode(err), Err: err}
		return ch
	}
	logrus.Debugf("supervisor: started worker pid %d", cmd.Process.Pid)

	go func() {
		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = cmd.Process.Signal(syscall.SIGTERM)
			case <-stop:
			}
		}()
		err := cmd.Wait()
		close(stop)
		if _, ok := err.(*exec.ExitError); ok {
			err = nil
		}
		ch <- statusFromProcess(cmd.ProcessState, err)
	}()
	return ch
}

// IsWorker reports whether this process was started by a ProcessLauncher.
func IsWorker() bool {
	return os.Getenv(common.RoleEnv) == common.RoleWorker
}
