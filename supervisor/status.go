package supervisor

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ExitStatus is how one generation ended.
type ExitStatus struct {
	Generation int

	// Code is the exit code, or -1 if the worker was killed by a signal.
	Code int
	// Signal is the terminating signal, zero if the worker exited.
	Signal syscall.Signal
	// Err is the launch failure or the error returned by an in-process
	// generation.
	Err error
}

// Success reports whether the generation ended cleanly.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == 0 && s.Err == nil
}

func (s ExitStatus) String() string {
	var out string
	if s.Signal != 0 {
		out = fmt.Sprintf("exited with signal %d (%s)", int(s.Signal), s.Signal)
	} else {
		out = fmt.Sprintf("exited with status %d", s.Code)
	}
	if s.Err != nil {
		out += ": " + s.Err.Error()
	}
	return out
}

func statusFromProcess(ps *os.ProcessState, err error) ExitStatus {
	if ps == nil {
		return ExitStatus{Code: ExitCode(err), Err: err}
	}
	st := ExitStatus{Code: ps.ExitCode()}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		st.Signal = ws.Signal()
	}
	return st
}

// ExitCode maps a generation's result to a process exit code: 0 for nil, the
// errno when err wraps a syscall.Errno, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 && int(errno) < 256 {
		return int(errno)
	}
	return 1
}
