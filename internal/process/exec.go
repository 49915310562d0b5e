// Package process owns the simulation process lifecycle.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Handle is a spawned process.
type Handle interface {
	Pid() int
	// Kill terminates the process forcibly.
	Kill() error
	// Poll reports, without blocking, whether the process has exited.
	Poll() (exited bool, code int)
	// Done is closed once the process has been reaped.
	Done() <-chan struct{}
}

// Spawner starts the external process.
type Spawner interface {
	Spawn(ctx context.Context) (Handle, error)
}

// ExecSpawner runs an executable with os/exec.
type ExecSpawner struct {
	Path string
	Args []string
	Dir  string
	// Input is written to the process stdin; the simulator reads its run
	// parameters from there.
	Input string
	// Output receives stdout and stderr. Empty discards them.
	Output string
}

// Spawn starts the executable. The process outlives ctx; use Kill to stop it.
func (s ExecSpawner) Spawn(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Path) == "" {
		return nil, fmt.Errorf("executable is empty")
	}
	cmd := exec.Command(s.Path, s.Args...)
	cmd.Dir = s.Dir
	if s.Input != "" {
		cmd.Stdin = strings.NewReader(s.Input)
	}
	var out *os.File
	if s.Output != "" {
		f, err := os.OpenFile(s.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open output file: %w", err)
		}
		out = f
		cmd.Stdout = f
		cmd.Stderr = f
	}
	if err := cmd.Start(); err != nil {
		if out != nil {
			_ = out.Close()
		}
		return nil, err
	}
	h := &execHandle{cmd: cmd, out: out, done: make(chan struct{})}
	go h.wait()
	return h, nil
}

type execHandle struct {
	cmd  *exec.Cmd
	out  *os.File
	done chan struct{}
	code int
}

func (h *execHandle) wait() {
	err := h.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	if h.out != nil {
		_ = h.out.Close()
	}
	h.code = code
	close(h.done)
}

func (h *execHandle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execHandle) Kill() error {
	if exited, _ := h.Poll(); exited {
		return nil
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (h *execHandle) Poll() (bool, int) {
	select {
	case <-h.done:
		return true, h.code
	default:
		return false, 0
	}
}

func (h *execHandle) Done() <-chan struct{} {
	return h.done
}
