package foreman

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/forgeq/forgeq/internal/bugcheck"
	"github.com/forgeq/forgeq/internal/events"
	"github.com/forgeq/forgeq/internal/factory"
	"github.com/forgeq/forgeq/internal/job"
)

// Sentinel is the argument forgeq's own binary recognizes as "act as a
// re-exec'd job child, not the worker reservation loop".
const Sentinel = "forgeq-job-exec"

// ReexecForeman implements Foreman by spawning a fresh copy of the
// currently running binary with Sentinel as its last argument, handing
// the job descriptor to the child on stdin.
type ReexecForeman struct {
	// BinaryPath is the executable to spawn. Defaults to os.Executable()
	// when empty.
	BinaryPath string
}

// NewReexecForeman builds a ReexecForeman that re-execs the currently
// running binary.
func NewReexecForeman() *ReexecForeman {
	return &ReexecForeman{}
}

func (f *ReexecForeman) binaryPath() (string, error) {
	if f.BinaryPath != "" {
		return f.BinaryPath, nil
	}
	return os.Executable()
}

func (f *ReexecForeman) Fork(ctx context.Context, d *job.Descriptor) (Child, error) {
	bin, err := f.binaryPath()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve executable: %v", ErrForkUnsupported, err)
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("foreman: encode descriptor for child: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, Sentinel)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start child: %v", ErrForkUnsupported, err)
	}

	return &reexecChild{cmd: cmd}, nil
}

type reexecChild struct {
	cmd *exec.Cmd
}

func (c *reexecChild) PID() int { return c.cmd.Process.Pid }

func (c *reexecChild) Wait() (int, error) {
	err := c.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus(), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (c *reexecChild) Kill() error {
	if c.cmd.Process == nil {
		return nil
	}
	return c.cmd.Process.Signal(syscall.SIGKILL)
}

// RunChild is the child-side entry point: invoked by cmd/worker's main
// when os.Args carries Sentinel. It reads the descriptor from stdin,
// dispatches worker-after-fork, materialises and runs the Executable,
// and exits the process — it never returns.
func RunChild(reg *factory.Registry, bus *events.Bus, workerID string) {
	os.Exit(runChild(reg, bus, workerID, os.Stdin))
}

func runChild(reg *factory.Registry, bus *events.Bus, workerID string, stdin *os.File) int {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stdin); err != nil {
		fmt.Fprintf(os.Stderr, "forgeq: child: read descriptor: %v\n", err)
		return 1
	}

	var d job.Descriptor
	if err := json.Unmarshal(buf.Bytes(), &d); err != nil {
		fmt.Fprintf(os.Stderr, "forgeq: child: decode descriptor: %v\n", err)
		return 1
	}

	if bus != nil {
		bus.Dispatch(events.Event{Kind: events.WorkerAfterFork, At: time.Now(), WorkerID: workerID, Descriptor: &d})
	}

	executable, err := reg.Create(&d)
	if err != nil {
		fmt.Fprintf(os.Stderr, "forgeq: child: %v\n", err)
		return 1
	}

	if perr := performRecovered(executable); perr != nil {
		fmt.Fprintf(os.Stderr, "forgeq: child: %v\n", perr)
		return 1
	}
	return 0
}

func performRecovered(executable factory.Executable) (err error) {
	defer func() {
		if p := bugcheck.RecoverJobPanic(); p != nil {
			err = p
		}
	}()
	return executable.Perform()
}
