package supervisor

import (
	"context"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/goleak"
	"gotest.tools/assert"
)

func TestWatchdogRestartsOnSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	const restarts = 5
	const delay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var starts []time.Time
	var statuses []ExitStatus
	w := &Watchdog{
		Launcher: FuncLauncher(func(context.Context) error {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			return errors.Wrap(syscall.ECONNREFUSED, "dial")
		}),
		Delay: delay,
		Quiet: true,
		OnExit: func(st ExitStatus) {
			statuses = append(statuses, st)
			if len(statuses) == restarts {
				cancel()
			}
		},
	}
	err := w.Run(ctx)
	assert.Equal(t, err, context.Canceled)

	assert.Equal(t, len(starts), restarts)
	elapsed := starts[restarts-1].Sub(starts[0])
	assert.Assert(t, elapsed >= (restarts-1)*delay, "elapsed %s", elapsed)
	assert.Assert(t, elapsed < (restarts-1)*delay+time.Second, "elapsed %s", elapsed)

	for i, st := range statuses {
		assert.Equal(t, st.Generation, i+1)
		assert.Equal(t, st.Code, int(syscall.ECONNREFUSED))
		assert.Assert(t, !st.Success())
	}
}

func TestWatchdogStopsBeforeLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &Watchdog{
		Launcher: FuncLauncher(func(context.Context) error {
			t.Fatal("launched after cancel")
			return nil
		}),
	}
	assert.Equal(t, w.Run(ctx), context.Canceled)
}

func TestFuncLauncherRecoversPanic(t *testing.T) {
	st := <-FuncLauncher(func(context.Context) error {
		panic("boom")
	}).Launch(context.Background())
	assert.Equal(t, st.Code, 2)
	assert.ErrorContains(t, st.Err, "boom")
}

func TestProcessLauncher(t *testing.T) {
	sh, err := exec.LookPath("sh")
	assert.NilError(t, err)

	st := <-(&ProcessLauncher{Path: sh, Args: []string{"-c", `test "$SEIJAKU_ROLE" = worker && exit 7`}}).Launch(context.Background())
	assert.NilError(t, st.Err)
	assert.Equal(t, st.Code, 7)
	assert.Equal(t, st.String(), "exited with status 7")

	ctx, cancel := context.WithCancel(context.Background())
	ch := (&ProcessLauncher{Path: sh, Args: []string{"-c", "exec sleep 30"}}).Launch(ctx)
	cancel()
	st = <-ch
	assert.Equal(t, st.Signal, syscall.SIGTERM)
	assert.Equal(t, st.Code, -1)
	assert.Equal(t, st.String(), "exited with signal 15 (terminated)")
}

func TestProcessLauncherMissingBinary(t *testing.T) {
	st := <-(&ProcessLauncher{Path: "/nonexistent/seijaku", Args: []string{}}).Launch(context.Background())
	assert.ErrorContains(t, st.Err, "/nonexistent/seijaku")
	assert.Equal(t, st.Code, int(syscall.ENOENT))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitCode(nil), 0)
	assert.Equal(t, ExitCode(errors.New("plain")), 1)
	assert.Equal(t, ExitCode(errors.Wrap(syscall.EHOSTUNREACH, "connect")), int(syscall.EHOSTUNREACH))
}
