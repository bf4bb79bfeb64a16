// Package listener is the operator's end of a session: it accepts a TCP
// connection, recognises the initiator's tag and exposes the encrypted
// stream as a plain io.ReadWriter.
package listener

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/handshake"
	"seijaku.dev/seijaku/relay"
)

// Listener accepts sessions on one TCP socket.
type Listener struct {
	Keys      map[string][]byte
	Tolerance time.Duration
	Format    handshake.TagFormat

	ln net.Listener
}

// Listen binds addr.
func Listen(addr string, keys map[string][]byte, tolerance time.Duration, f handshake.TagFormat) (*Listener, error) {
	if len(keys) == 0 {
		return nil, handshake.ErrEmptySecret
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listener: bind %s", addr)
	}
	logrus.Infof("listener: waiting on %s", ln.Addr())
	return &Listener{
		Keys:      keys,
		Tolerance: tolerance,
		Format:    f,
		ln:        ln,
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Accept waits for one connection and completes the handshake on it. A
// connection whose tag matches no key is closed and reported as
// handshake.ErrInvalidTag; the listener stays usable.
func (l *Listener) Accept() (*Conn, error) {
	raw, err := l.ln.Accept()
	if err != nil {
		return nil, errors.Wrap(err, "listener: accept")
	}
	logrus.Infof("listener: connection from %s", raw.RemoteAddr())

	peer, err := handshake.Accept(raw, l.Keys, l.Tolerance, l.Format)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return &Conn{Conn: raw, Peer: peer}, nil
}

// Conn is an established session. Reads are decrypted and writes encrypted
// with the peer's keystreams. Read must not be called concurrently with
// itself; Write may be.
type Conn struct {
	net.Conn
	Peer *handshake.Peer

	wmu sync.Mutex
	buf []byte
}

// Read implements io.Reader.
func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.Peer.Recv.XORKeyStream(p[:n], p[:n])
	return n, err
}

// Write implements io.Writer. The keystream advances only over bytes that
// were actually written, so a short write leaves the session unusable and
// is reported as an error.
func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if cap(c.buf) < len(p) {
		c.buf = make([]byte, len(p))
	}
	out := c.buf[:len(p)]
	c.Peer.Send.XORKeyStream(out, p)
	n, err := c.Conn.Write(out)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Resize asks the remote terminal to change its window size.
func (c *Conn) Resize(rows, cols uint16) error {
	logrus.Debugf("listener: requesting resize to %dx%d", rows, cols)
	_, err := c.Write(relay.EncodeResize(rows, cols))
	return err
}

// CloseWrite half-closes the session so the remote shell sees end of input.
func (c *Conn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.Conn.Close()
}

// Bridge copies in to the session and the session to out until the remote
// side closes. When in is exhausted the session is half-closed. Bridge
// returns once the remote stream ends; the goroutine reading in may still be
// blocked on it.
func (c *Conn) Bridge(in io.Reader, out io.Writer) error {
	go func() {
		if _, err := io.Copy(c, in); err != nil {
			logrus.Debugf("listener: local input: %s", err)
		}
		if err := c.CloseWrite(); err != nil {
			logrus.Debugf("listener: half-close: %s", err)
		}
	}()
	_, err := io.Copy(out, c)
	return err
}
