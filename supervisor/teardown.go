package supervisor

import (
	"errors"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/common"
)

// Phase is a step of a Teardown.
type Phase int

// Teardown phases, in order.
const (
	GraceWait Phase = iota
	ForceKill
	Released
)

func (p Phase) String() string {
	switch p {
	case GraceWait:
		return "grace-wait"
	case ForceKill:
		return "force-kill"
	case Released:
		return "released"
	}
	return "unknown"
}

// ProcessGroup is the set of processes a generation must not leave behind.
type ProcessGroup interface {
	// Signal delivers sig to every member of the group.
	Signal(sig syscall.Signal) error
	// Exited reports whether the group is empty.
	Exited() bool
	// Stragglers lists descendants of the group leader that moved to
	// another process group.
	Stragglers() []int
}

// Teardown ends a generation: SIGTERM to the group, up to Attempts polls
// Interval apart, then SIGKILL to the group and its stragglers. Release
// functions run exactly once, after the group is gone or killed.
type Teardown struct {
	Group    ProcessGroup
	Attempts int
	Interval time.Duration
	Release  []func() error

	// OnTransition, if non-nil, is called on every phase change with the
	// number of polls made so far.
	OnTransition func(from, to Phase, polls int)

	mu         sync.Mutex
	started    bool
	phase      Phase
	polls      int
	releaseErr error
}

// Phase returns the current phase.
func (t *Teardown) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Run drives the teardown to Released and returns the first release error.
// Calling Run again after it finished is a no-op.
func (t *Teardown) Run() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.started = true
		if t.Attempts <= 0 {
			t.Attempts = common.DefaultTeardownAttempts
		}
		if t.Interval <= 0 {
			t.Interval = common.DefaultTeardownInterval
		}
		if err := t.Group.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			logrus.Errorf("supervisor: terminate group: %s", err)
		}
	}
	for t.phase != Released {
		t.step()
	}
	return t.releaseErr
}

func (t *Teardown) step() {
	switch t.phase {
	case GraceWait:
		if t.Group.Exited() {
			t.release()
			return
		}
		if t.polls >= t.Attempts {
			t.moveTo(ForceKill)
			return
		}
		t.polls++
		time.Sleep(t.Interval)
	case ForceKill:
		logrus.Warnf("supervisor: group survived %d polls, killing", t.polls)
		for _, pid := range t.Group.Stragglers() {
			if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
				logrus.Errorf("supervisor: kill straggler %d: %s", pid, err)
			}
		}
		if err := t.Group.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			logrus.Errorf("supervisor: kill group: %s", err)
		}
		t.release()
	}
}

func (t *Teardown) release() {
	t.moveTo(Released)
	for _, f := range t.Release {
		if err := f(); err != nil && t.releaseErr == nil {
			t.releaseErr = err
		}
	}
}

func (t *Teardown) moveTo(p Phase) {
	logrus.Debugf("supervisor: teardown %s -> %s after %d polls", t.phase, p, t.polls)
	if t.OnTransition != nil {
		t.OnTransition(t.phase, p, t.polls)
	}
	t.phase = p
}
