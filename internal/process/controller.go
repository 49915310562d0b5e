package process

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

const defaultKillTimeout = 2 * time.Second

// Options configures a Controller.
type Options struct {
	Spawner Spawner
	// Reset reinitializes the log before every spawn.
	Reset func() error
	// Name is shown in status messages.
	Name        string
	KillTimeout time.Duration
	Logger      *slog.Logger
}

// Controller owns at most one simulation process.
type Controller struct {
	spawner     Spawner
	reset       func() error
	name        string
	killTimeout time.Duration
	logger      *slog.Logger

	handle   Handle
	state    model.ProcessState
	err      error
	exitCode int
	spawns   int
}

// New builds an idle Controller.
func New(opts Options) *Controller {
	c := &Controller{
		spawner:     opts.Spawner,
		reset:       opts.Reset,
		name:        opts.Name,
		killTimeout: opts.KillTimeout,
		logger:      opts.Logger,
		state:       model.Idle,
	}
	if c.killTimeout <= 0 {
		c.killTimeout = defaultKillTimeout
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.name == "" {
		c.name = "simulation"
	}
	return c
}

// Start resets the log and spawns the process. It is a no-op while a
// process is owned. Failures leave the controller Idle with Err set.
func (c *Controller) Start(ctx context.Context) error {
	if c.handle != nil {
		return nil
	}
	c.err = nil
	c.exitCode = 0
	if c.reset != nil {
		if err := c.reset(); err != nil {
			return c.fail(err)
		}
	}
	if c.spawner == nil {
		return c.fail(fmt.Errorf("no spawner configured"))
	}
	h, err := c.spawner.Spawn(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.handle = h
	c.state = model.Running
	c.spawns++
	c.logger.Info("simulation started", "name", c.name, "pid", h.Pid())
	return nil
}

func (c *Controller) fail(err error) error {
	c.state = model.Idle
	c.err = fmt.Errorf("could not start %s: %w", c.name, err)
	c.logger.Error("simulation start failed", "name", c.name, "err", err)
	return c.err
}

// Stop kills the owned process and waits for it to be reaped, bounded by
// the kill timeout. It is a no-op when nothing is running. A process that
// already exited is recorded as Finished. The handle is kept if Kill fails.
func (c *Controller) Stop(ctx context.Context) error {
	if c.handle == nil || c.CheckExited() {
		return nil
	}
	h := c.handle
	if err := h.Kill(); err != nil {
		c.logger.Error("simulation kill failed", "pid", h.Pid(), "err", err)
		return fmt.Errorf("failed to kill %s: %w", c.name, err)
	}
	c.handle = nil
	c.state = model.Stopped
	waitCtx, cancel := context.WithTimeout(ctx, c.killTimeout)
	defer cancel()
	select {
	case <-h.Done():
	case <-waitCtx.Done():
		c.logger.Warn("simulation not reaped after kill", "pid", h.Pid())
	}
	c.logger.Info("simulation stopped", "pid", h.Pid())
	return nil
}

// Restart stops and then starts the process.
func (c *Controller) Restart(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	return c.Start(ctx)
}

// CheckExited probes the owned process. If it exited on its own the handle
// is released, the state becomes Finished, and true is returned.
func (c *Controller) CheckExited() bool {
	if c.handle == nil {
		return false
	}
	exited, code := c.handle.Poll()
	if !exited {
		return false
	}
	c.logger.Info("simulation finished", "pid", c.handle.Pid(), "code", code)
	c.handle = nil
	c.state = model.Finished
	c.exitCode = code
	return true
}

// State returns the lifecycle state.
func (c *Controller) State() model.ProcessState {
	return c.state
}

// Err returns the last start failure, if any.
func (c *Controller) Err() error {
	return c.err
}

// ExitCode returns the exit code of the last finished process.
func (c *Controller) ExitCode() int {
	return c.exitCode
}

// Running reports whether a process handle is owned.
func (c *Controller) Running() bool {
	return c.handle != nil
}

// Pid returns the pid of the owned process or 0.
func (c *Controller) Pid() int {
	if c.handle == nil {
		return 0
	}
	return c.handle.Pid()
}

// Spawns returns how many processes have been started.
func (c *Controller) Spawns() int {
	return c.spawns
}

// Status renders the user-facing status text.
func (c *Controller) Status() string {
	if c.err != nil {
		return "ERROR: " + c.err.Error()
	}
	switch c.state {
	case model.Running:
		return fmt.Sprintf("Status: Running (pid %d)", c.Pid())
	case model.Finished:
		if c.exitCode != 0 {
			return fmt.Sprintf("Status: Finished (exit code %d)", c.exitCode)
		}
		return "Status: Finished"
	default:
		return "Status: " + c.state.String()
	}
}
