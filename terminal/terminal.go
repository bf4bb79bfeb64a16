// Package terminal owns the pseudo-terminal and the shell attached to it.
package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"sync"

	"github.com/AstromechZA/etcpwdparse"
	"github.com/creack/pty"
	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/common"
	"seijaku.dev/seijaku/pkg/combinators"
)

// ErrNoShell is returned when Options.Shell is empty.
var ErrNoShell = errors.New("terminal: no shell configured")

// Options describe the shell to start.
type Options struct {
	Shell string
	Args  []string
	Term  string
	Dir   string

	// Size is the initial window size. Nil leaves the kernel default.
	Size *pty.Winsize
}

// Session is a pty controller plus the single shell process attached to its
// subordinate side. The shell is a session and process group leader, so
// signalling -Pid() reaches it and everything it spawned without a setsid of
// its own.
type Session struct {
	// Pty is the controller side of the terminal.
	Pty *os.File

	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

// Start allocates a pty and starts the shell on it.
func Start(opts Options) (*Session, error) {
	if opts.Shell == "" {
		return nil, ErrNoShell
	}
	c := exec.Command(opts.Shell, opts.Args...)
	c.Env = append(os.Environ(), "TERM="+combinators.StringOr(opts.Term, common.DefaultTerm))
	c.Dir = opts.Dir

	var f *os.File
	var err error
	// pty.Start sets Setsid and Setctty, making the tty the shell's
	// controlling terminal and stdin/stdout/stderr.
	if opts.Size != nil {
		f, err = pty.StartWithSize(c, opts.Size)
	} else {
		f, err = pty.Start(c)
	}
	if err != nil {
		return nil, fmt.Errorf("terminal: starting %s: %w", opts.Shell, err)
	}
	s := &Session{
		Pty:  f,
		cmd:  c,
		done: make(chan struct{}),
	}
	logrus.Infof("terminal: started %s as pid %d on %s", opts.Shell, s.Pid(), f.Name())

	go func() {
		s.waitErr = c.Wait()
		logrus.Debugf("terminal: pid %d reaped: %v", c.Process.Pid, s.waitErr)
		close(s.done)
	}()
	return s, nil
}

// Pid returns the shell's process id, which is also its process group id.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// Done is closed once the shell has exited and been reaped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the shell exits and returns its exit error.
func (s *Session) Wait() error {
	<-s.done
	return s.waitErr
}

// Resize sets the terminal window size.
func (s *Session) Resize(rows, cols uint16) error {
	logrus.Debugf("terminal: resize to %dx%d", rows, cols)
	return pty.Setsize(s.Pty, &pty.Winsize{Rows: rows, Cols: cols})
}

// Close releases the controller descriptor. It is safe to call more than
// once; only the first call closes.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Pty.Close()
	})
	return s.closeErr
}

// LoginShell returns the login shell of the user running this process as
// recorded in /etc/passwd, or common.DefaultShell when it cannot be found.
func LoginShell() string {
	u, err := user.Current()
	if err != nil {
		return common.DefaultShell
	}
	cache, err := etcpwdparse.NewLoadedEtcPasswdCache()
	if err != nil {
		logrus.Debugf("terminal: loading /etc/passwd: %s", err)
		return common.DefaultShell
	}
	entry, ok := cache.LookupUserByName(u.Username)
	if !ok || entry.Shell() == "" {
		return common.DefaultShell
	}
	return entry.Shell()
}
