package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

type fakeHandle struct {
	pid     int
	killed  bool
	killErr error
	exited  bool
	code    int
	done    chan struct{}
}

func newFakeHandle(pid int) *fakeHandle {
	return &fakeHandle{pid: pid, done: make(chan struct{})}
}

func (h *fakeHandle) Pid() int { return h.pid }

func (h *fakeHandle) Kill() error {
	if h.killErr != nil {
		return h.killErr
	}
	h.killed = true
	h.finish(-1)
	return nil
}

func (h *fakeHandle) Poll() (bool, int) { return h.exited, h.code }

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) finish(code int) {
	if h.exited {
		return
	}
	h.exited = true
	h.code = code
	close(h.done)
}

type fakeSpawner struct {
	handles []*fakeHandle
	err     error
	onSpawn func()
}

func (s *fakeSpawner) Spawn(context.Context) (Handle, error) {
	if s.onSpawn != nil {
		s.onSpawn()
	}
	if s.err != nil {
		return nil, s.err
	}
	h := newFakeHandle(100 + len(s.handles))
	s.handles = append(s.handles, h)
	return h, nil
}

func TestStartTwiceSpawnsOnce(t *testing.T) {
	sp := &fakeSpawner{}
	c := New(Options{Spawner: sp})
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Start(ctx))

	assert.Len(t, sp.handles, 1)
	assert.Equal(t, 1, c.Spawns())
	assert.Equal(t, model.Running, c.State())
	assert.Equal(t, "Status: Running (pid 100)", c.Status())
}

func TestStartResetsLogBeforeSpawn(t *testing.T) {
	var order []string
	sp := &fakeSpawner{onSpawn: func() { order = append(order, "spawn") }}
	c := New(Options{Spawner: sp, Reset: func() error {
		order = append(order, "reset")
		return nil
	}})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"reset", "spawn"}, order)
}

func TestStartFailureStaysIdle(t *testing.T) {
	sp := &fakeSpawner{err: errors.New("exec: not found")}
	c := New(Options{Spawner: sp, Name: "traffic"})

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, model.Idle, c.State())
	assert.False(t, c.Running())
	assert.Contains(t, c.Status(), "ERROR: could not start traffic")
	assert.Contains(t, c.Status(), "not found")
}

func TestResetFailurePreventsSpawn(t *testing.T) {
	sp := &fakeSpawner{}
	c := New(Options{Spawner: sp, Reset: func() error { return errors.New("read-only") }})

	require.Error(t, c.Start(context.Background()))
	assert.Empty(t, sp.handles)
	assert.Equal(t, model.Idle, c.State())
}

func TestStopKillsAndIsIdempotent(t *testing.T) {
	sp := &fakeSpawner{}
	c := New(Options{Spawner: sp})
	ctx := context.Background()

	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, model.Idle, c.State())

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Stop(ctx))
	assert.True(t, sp.handles[0].killed)
	assert.Equal(t, model.Stopped, c.State())
	assert.Equal(t, "Status: Stopped", c.Status())

	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, model.Stopped, c.State())
	assert.False(t, c.CheckExited())
}

func TestStopKeepsHandleWhenKillFails(t *testing.T) {
	sp := &fakeSpawner{}
	c := New(Options{Spawner: sp})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	sp.handles[0].killErr = errors.New("operation not permitted")

	err := c.Stop(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation not permitted")
	assert.True(t, c.Running())
	assert.Equal(t, model.Running, c.State())
	assert.Equal(t, 100, c.Pid())

	require.NoError(t, c.Start(ctx))
	assert.Len(t, sp.handles, 1)
	assert.Equal(t, 1, c.Spawns())

	sp.handles[0].killErr = nil
	require.NoError(t, c.Stop(ctx))
	assert.True(t, sp.handles[0].killed)
	assert.Equal(t, model.Stopped, c.State())
}

func TestStopAfterExitReportsFinished(t *testing.T) {
	sp := &fakeSpawner{}
	c := New(Options{Spawner: sp})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	sp.handles[0].finish(3)

	require.NoError(t, c.Stop(ctx))
	assert.False(t, sp.handles[0].killed)
	assert.False(t, c.Running())
	assert.Equal(t, model.Finished, c.State())
	assert.Equal(t, 3, c.ExitCode())
	assert.Equal(t, "Status: Finished (exit code 3)", c.Status())
}

func TestCheckExitedReportsFinished(t *testing.T) {
	sp := &fakeSpawner{}
	c := New(Options{Spawner: sp})
	require.NoError(t, c.Start(context.Background()))

	assert.False(t, c.CheckExited())
	sp.handles[0].finish(0)
	assert.True(t, c.CheckExited())
	assert.Equal(t, model.Finished, c.State())
	assert.False(t, c.Running())
	assert.Equal(t, "Status: Finished", c.Status())
	assert.False(t, c.CheckExited())

	require.NoError(t, c.Start(context.Background()))
	sp.handles[1].finish(3)
	assert.True(t, c.CheckExited())
	assert.Equal(t, "Status: Finished (exit code 3)", c.Status())
}

func TestRestartLeavesOneLiveHandleAndFreshLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic_data.csv")
	header := "cycle,road,arrived,passed,waiting,emergency,adaptive_green\n"
	reset := func() error { return os.WriteFile(path, []byte(header), 0o644) }
	sp := &fakeSpawner{}
	c := New(Options{Spawner: sp, Reset: reset})
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, os.WriteFile(path, []byte(header+"1,1,5,4,1,0,30\n"), 0o644))

	require.NoError(t, c.Restart(ctx))
	require.Len(t, sp.handles, 2)
	assert.True(t, sp.handles[0].killed)
	assert.False(t, sp.handles[1].killed)
	assert.Equal(t, 101, c.Pid())
	assert.Equal(t, model.Running, c.State())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, header, string(data))
}

func TestUsageWithoutProcess(t *testing.T) {
	c := New(Options{Spawner: &fakeSpawner{}})
	_, ok := c.Usage()
	assert.False(t, ok)
}

func TestExecSpawnerLifecycle(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()

	out := filepath.Join(t.TempDir(), "sim.out")
	c := New(Options{Spawner: ExecSpawner{Path: sh, Args: []string{"-c", "read n; echo roads=$n; exit 4"}, Input: "3\n", Output: out}})
	require.NoError(t, c.Start(ctx))
	deadline := time.Now().Add(5 * time.Second)
	for !c.CheckExited() {
		if time.Now().After(deadline) {
			t.Fatalf("process did not exit")
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 4, c.ExitCode())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "roads=3\n", string(data))

	c = New(Options{Spawner: ExecSpawner{Path: sh, Args: []string{"-c", "sleep 30"}}})
	require.NoError(t, c.Start(ctx))
	assert.Greater(t, c.Pid(), 0)
	_, ok := c.Usage()
	assert.True(t, ok)
	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, model.Stopped, c.State())
}

func TestExecSpawnerMissingExecutable(t *testing.T) {
	c := New(Options{Spawner: ExecSpawner{Path: filepath.Join(t.TempDir(), "missing")}})
	require.Error(t, c.Start(context.Background()))
	assert.Equal(t, model.Idle, c.State())
}
