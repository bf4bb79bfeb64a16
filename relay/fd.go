package relay

import (
	"syscall"

	"github.com/pkg/errors"
)

// Fd returns the descriptor behind c, which may be a *net.TCPConn or an
// *os.File. The descriptor remains owned by c and is only valid while c is
// open; callers must keep c reachable for as long as they use it.
func Fd(c syscall.Conn) (int, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return -1, errors.Wrap(err, "relay: syscall conn")
	}
	fd := -1
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return -1, errors.Wrap(err, "relay: control")
	}
	return fd, nil
}
