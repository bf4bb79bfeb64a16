package supervisor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

type processGroup struct {
	pgid int
	done <-chan struct{}
}

// NewProcessGroup returns the group led by pgid. If done is non-nil the group
// is not considered exited until done is closed, which lets the caller's
// reaper finish before the group is reported empty.
func NewProcessGroup(pgid int, done <-chan struct{}) ProcessGroup {
	return &processGroup{pgid: pgid, done: done}
}

func (g *processGroup) Signal(sig syscall.Signal) error {
	return unix.Kill(-g.pgid, sig)
}

func (g *processGroup) Exited() bool {
	if g.done != nil {
		select {
		case <-g.done:
		default:
			return false
		}
	}
	return unix.Kill(-g.pgid, 0) == unix.ESRCH
}

func (g *processGroup) Stragglers() []int {
	var out []int
	for _, pid := range descendants(g.pgid) {
		pg, err := unix.Getpgid(pid)
		if err != nil || pg == g.pgid {
			continue
		}
		out = append(out, pid)
	}
	return out
}
