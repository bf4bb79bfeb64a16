// Package relay moves bytes between the transport socket and the terminal
// controller, encrypting towards the transport and decrypting towards the
// terminal.
//
// The loop is single threaded: it blocks in poll(2) on exactly two
// descriptors and services whichever is ready. Each direction preserves byte
// order; there is no ordering between directions.
package relay

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"seijaku.dev/seijaku/common"
	"seijaku.dev/seijaku/keystream"
	"seijaku.dev/seijaku/pkg/combinators"
)

// State is the relay's position in its lifecycle.
type State int

// Relay states.
const (
	Relaying State = iota
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Relaying:
		return "RELAYING"
	case Draining:
		return "DRAINING"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Relay is one session's duplex loop. Net and Term are raw descriptors that
// remain owned by the caller; Run switches them to non-blocking mode.
type Relay struct {
	Net  int
	Term int

	// Send encrypts terminal output before it goes to Net. Recv decrypts
	// what arrives on Net.
	Send *keystream.State
	Recv *keystream.State

	// BufferSize bounds one read. Zero means common.DefaultBufferSize.
	BufferSize int

	// OnResize is called for each resize sequence found in the decrypted
	// transport stream, before the surrounding bytes reach the terminal. An
	// error is logged and otherwise ignored.
	OnResize func(Resize) error

	state State
}

// State returns the current state.
func (r *Relay) State() State {
	return r.state
}

func (r *Relay) transition(s State) {
	logrus.Debugf("relay: %s -> %s", r.state, s)
	r.state = s
}

// Run relays until either side reaches end of file, then half-closes the
// transport. It returns nil on an orderly close and a wrapped error for any
// other failure, in which case the transport has not been shut down.
func (r *Relay) Run() error {
	if r.Send == nil || r.Recv == nil {
		return errors.New("relay: missing cipher state")
	}
	for _, fd := range []int{r.Net, r.Term} {
		if err := unix.SetNonblock(fd, true); err != nil {
			return errors.Wrapf(err, "relay: set nonblock on fd %d", fd)
		}
	}
	buf := make([]byte, combinators.Or(r.BufferSize, common.DefaultBufferSize))
	fds := []unix.PollFd{
		{Fd: int32(r.Net), Events: unix.POLLIN},
		{Fd: int32(r.Term), Events: unix.POLLIN},
	}

	r.state = Relaying
	for r.state == Relaying {
		fds[0].Revents, fds[1].Revents = 0, 0
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return errors.Wrap(err, "relay: poll")
		}
		if fds[0].Revents != 0 {
			eof, err := r.fromNet(buf)
			if err != nil {
				return err
			}
			if eof {
				logrus.Info("relay: transport closed by peer")
				r.transition(Draining)
				break
			}
		}
		if fds[1].Revents != 0 {
			eof, err := r.fromTerm(buf)
			if err != nil {
				return err
			}
			if eof {
				logrus.Info("relay: terminal closed")
				r.transition(Draining)
			}
		}
	}

	if err := unix.Shutdown(r.Net, unix.SHUT_WR); err != nil && err != unix.ENOTCONN {
		return errors.Wrap(err, "relay: shutdown transport")
	}
	r.transition(Closed)
	return nil
}

// fromNet drains the transport into the terminal.
func (r *Relay) fromNet(buf []byte) (bool, error) {
	for {
		n, err := read(r.Net, buf)
		if err == unix.EAGAIN {
			return false, nil
		}
		if err != nil {
			return false, errors.Wrap(err, "relay: read transport")
		}
		if n == 0 {
			return true, nil
		}
		chunk := buf[:n]
		r.Recv.XORKeyStream(chunk, chunk)
		chunk, resizes := FilterResize(chunk)
		for _, rs := range resizes {
			if r.OnResize == nil {
				continue
			}
			if err := r.OnResize(rs); err != nil {
				logrus.Warnf("relay: resize to %s: %s", rs, err)
			}
		}
		if err := writeAll(r.Term, chunk); err != nil {
			return false, errors.Wrap(err, "relay: write terminal")
		}
		if n < len(buf) {
			return false, nil
		}
	}
}

// fromTerm drains the terminal into the transport. A pty controller reports
// EIO once the last subordinate descriptor is closed; that is end of file.
func (r *Relay) fromTerm(buf []byte) (bool, error) {
	for {
		n, err := read(r.Term, buf)
		if err == unix.EAGAIN {
			return false, nil
		}
		if err == unix.EIO {
			return true, nil
		}
		if err != nil {
			return false, errors.Wrap(err, "relay: read terminal")
		}
		if n == 0 {
			return true, nil
		}
		chunk := buf[:n]
		r.Send.XORKeyStream(chunk, chunk)
		if err := writeAll(r.Net, chunk); err != nil {
			return false, errors.Wrap(err, "relay: write transport")
		}
		if n < len(buf) {
			return false, nil
		}
	}
}

func read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// writeAll writes all of p to a non-blocking fd, waiting for POLLOUT when the
// kernel buffer is full.
func writeAll(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			if err := waitWritable(fd); err != nil {
				return err
			}
			continue
		case err != nil:
			return err
		}
		p = p[n:]
	}
	return nil
}

func waitWritable(fd int) error {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
