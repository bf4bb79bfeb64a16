package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"seijaku.dev/seijaku/flags"
	"seijaku.dev/seijaku/listener"
	"seijaku.dev/seijaku/pkg/must"
)

func main() {
	f, err := flags.ParseListenArgs(os.Args)
	if err != nil {
		logrus.Error(err)
		os.Exit(2)
	}
	if f.GenKey {
		var key [32]byte
		must.ReadRandom(key[:])
		fmt.Println(hex.EncodeToString(key[:]))
		return
	}

	cfg, err := flags.LoadListenConfigFromFlags(f)
	if err != nil {
		logrus.Fatalf("error loading config: %s", err)
	}
	level, _ := cfg.Level()
	logrus.SetLevel(level)
	format, _ := cfg.Format()
	keys, err := cfg.ListenerKeys()
	if err != nil {
		logrus.Fatal(err)
	}

	l, err := listener.Listen(cfg.Listener.Address, keys, time.Duration(cfg.Listener.Tolerance), format)
	if err != nil {
		logrus.Fatal(err)
	}
	var c *listener.Conn
	for c == nil {
		c, err = l.Accept()
		if err != nil {
			logrus.Warn(err)
		}
	}
	l.Close()
	defer c.Close()
	logrus.Infof("session with %s using key %q", c.RemoteAddr(), c.Peer.Name)

	if err := serve(c); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func serve(c *listener.Conn) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return c.Bridge(os.Stdin, os.Stdout)
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)
	// Raw mode leaves no room for log lines.
	logrus.SetOutput(io.Discard)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	defer signal.Stop(ch)
	go func() {
		for range ch {
			ws, err := pty.GetsizeFull(os.Stdin)
			if err != nil {
				continue
			}
			if err := c.Resize(ws.Rows, ws.Cols); err != nil {
				return
			}
		}
	}()
	ch <- syscall.SIGWINCH // Initial resize.

	return c.Bridge(os.Stdin, os.Stdout)
}
