// Package client runs one generation of the initiator: it connects out,
// sends the tag, starts a shell on a fresh terminal and relays until either
// side hangs up, then tears the shell's process group down.
package client

import (
	"context"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"seijaku.dev/seijaku/config"
	"seijaku.dev/seijaku/handshake"
	"seijaku.dev/seijaku/pkg/combinators"
	"seijaku.dev/seijaku/relay"
	"seijaku.dev/seijaku/supervisor"
	"seijaku.dev/seijaku/terminal"
)

// Generation is a single connect-relay-teardown cycle. It holds no state
// between runs; the watchdog creates the next generation from scratch.
type Generation struct {
	Config *config.Config
}

// Run performs one generation. The returned error wraps the errno of the
// failure, if any, so supervisor.ExitCode can report it.
func (g *Generation) Run(ctx context.Context) error {
	cfg := g.Config
	secret, err := cfg.SecretBytes()
	if err != nil {
		return err
	}
	format, err := cfg.Format()
	if err != nil {
		return err
	}

	conn, err := g.dial(ctx)
	if err != nil {
		return err
	}
	sess, err := handshake.Initiate(conn, secret, format)
	if err != nil {
		conn.Close()
		return err
	}

	shell := combinators.StringOr(cfg.Shell, terminal.LoginShell())
	term, err := terminal.Start(terminal.Options{
		Shell: shell,
		Args:  cfg.ShellArgs,
		Term:  cfg.Term,
	})
	if err != nil {
		conn.Close()
		return err
	}

	td := &supervisor.Teardown{
		Group:    supervisor.NewProcessGroup(term.Pid(), term.Done()),
		Attempts: cfg.TeardownAttempts,
		Interval: time.Duration(cfg.TeardownInterval),
		Release:  []func() error{term.Close, conn.Close},
	}
	defer func() {
		if err := td.Run(); err != nil {
			logrus.Debugf("client: release: %s", err)
		}
	}()

	netFd, err := relay.Fd(conn.(syscall.Conn))
	if err != nil {
		return err
	}
	termFd, err := relay.Fd(term.Pty)
	if err != nil {
		return err
	}

	// Cancellation looks like the operator hanging up.
	stop := context.AfterFunc(ctx, func() {
		_ = unix.Shutdown(netFd, unix.SHUT_RDWR)
	})
	defer stop()

	r := &relay.Relay{
		Net:        netFd,
		Term:       termFd,
		Send:       sess.Send,
		Recv:       sess.Recv,
		BufferSize: cfg.BufferSize,
		OnResize: func(rs relay.Resize) error {
			return term.Resize(rs.Rows, rs.Cols)
		},
	}
	return r.Run()
}

// dial resolves the configured host, retrying resolution failures every
// ResolveRetry until ctx is done, and connects to the first address.
// Connection failures are not retried here.
func (g *Generation) dial(ctx context.Context) (net.Conn, error) {
	cfg := g.Config
	var addrs []string
	for {
		var err error
		addrs, err = net.DefaultResolver.LookupHost(ctx, cfg.Host)
		if err == nil && len(addrs) > 0 {
			break
		}
		logrus.Warnf("client: resolving %s: %v, retrying in %s", cfg.Host, err, time.Duration(cfg.ResolveRetry))
		t := time.NewTimer(time.Duration(cfg.ResolveRetry))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	d := net.Dialer{
		Timeout:   time.Duration(cfg.DialTimeout),
		KeepAlive: time.Duration(cfg.KeepAlive),
	}
	addr := net.JoinHostPort(addrs[0], strconv.Itoa(cfg.Port))
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "client: connect %s", addr)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(cfg.NoDelay); err != nil {
			logrus.Debugf("client: set nodelay: %s", err)
		}
	}
	logrus.Infof("client: connected to %s", addr)
	return conn, nil
}
