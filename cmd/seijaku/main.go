package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"seijaku.dev/seijaku/client"
	"seijaku.dev/seijaku/config"
	"seijaku.dev/seijaku/flags"
	"seijaku.dev/seijaku/supervisor"
)

func main() {
	f, err := flags.ParseClientArgs(os.Args)
	if err != nil {
		logrus.Error(err)
		os.Exit(2)
	}

	// cfg will be result of merging config file settings and flags
	cfg, err := flags.LoadClientConfigFromFlags(f)
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logrus.SetLevel(level)
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	if cfg.Daemonize {
		logrus.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if supervisor.IsWorker() {
		err := (&client.Generation{Config: cfg}).Run(ctx)
		if err != nil {
			logrus.Errorf("worker: %s", err)
		}
		stop()
		os.Exit(supervisor.ExitCode(err))
	}

	if cfg.Daemonize {
		cont, err := supervisor.Detach()
		if err != nil {
			os.Exit(supervisor.ExitCode(err))
		}
		if !cont {
			return
		}
	}

	os.Exit(supervise(ctx, f, cfg))
}

func supervise(ctx context.Context, f *flags.ClientFlags, cfg *config.Config) int {
	var launcher supervisor.Launcher
	if f.InProcess {
		launcher = supervisor.FuncLauncher((&client.Generation{Config: cfg}).Run)
	} else {
		launcher = &supervisor.ProcessLauncher{Stdout: os.Stdout, Stderr: os.Stderr}
	}
	w := &supervisor.Watchdog{
		Launcher: launcher,
		Delay:    time.Duration(cfg.RestartDelay),
		Quiet:    cfg.Daemonize,
	}
	logrus.Infof("supervising connections to %s", cfg.Address())
	if err := w.Run(ctx); err != nil {
		logrus.Infof("supervisor stopped: %s", err)
	}
	return 0
}
