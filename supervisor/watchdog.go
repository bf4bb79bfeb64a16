// Package supervisor owns the process lifecycle around a relay: detaching
// from the terminal, restarting generations forever, and tearing down the
// shell's process group when a generation ends.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Launcher starts one generation and reports its end on the returned channel.
// The channel receives exactly one value.
type Launcher interface {
	Launch(ctx context.Context) <-chan ExitStatus
}

// FuncLauncher runs a generation as a goroutine in this process. A panic is
// reported as exit code 2.
type FuncLauncher func(ctx context.Context) error

// Launch implements Launcher.
func (f FuncLauncher) Launch(ctx context.Context) <-chan ExitStatus {
	ch := make(chan ExitStatus, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- ExitStatus{Code: 2, Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		err := f(ctx)
		ch <- ExitStatus{Code: ExitCode(err), Err: err}
	}()
	return ch
}

// Watchdog relaunches generations until its context is cancelled, waiting
// Delay between the end of one generation and the start of the next.
type Watchdog struct {
	Launcher Launcher
	Delay    time.Duration

	// Quiet suppresses the per-generation exit log.
	Quiet bool

	// OnExit, if non-nil, observes every generation's status.
	OnExit func(ExitStatus)
}

// Run blocks until ctx is done. It always returns ctx.Err().
func (w *Watchdog) Run(ctx context.Context) error {
	for gen := 1; ; gen++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logrus.Debugf("supervisor: spawning generation %d", gen)
		st := <-w.Launcher.Launch(ctx)
		st.Generation = gen
		if !w.Quiet {
			logrus.WithField("generation", gen).Warnf("supervisor: worker %s", st)
		}
		if w.OnExit != nil {
			w.OnExit(st)
		}

		t := time.NewTimer(w.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
