package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/santiagomed/assetpipe/logger"
)

// Command is a single external process invocation.
type Command struct {
	// Tool is the logical tool name, used in errors and logs.
	Tool  string
	Path  string
	Args  []string
	Stdin []byte
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Result captures the output of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// ExitError reports a process that could not be started, exited with a
// non-zero status or ran past its timeout. ExitCode is -1 when the process
// never produced an exit status.
type ExitError struct {
	Tool     string
	Path     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	cmd := Command{Path: e.Path, Args: e.Args}.String()
	msg := fmt.Sprintf("%s: %s", e.Tool, cmd)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s: exit status %d", msg, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ErrTimeout is wrapped by ExitError when a process exceeds its time budget.
var ErrTimeout = errors.New("process timed out")

// Executor runs external processes from a working directory, one blocking
// call per invocation, each bounded by Timeout.
type Executor struct {
	Dir     string
	Timeout time.Duration
	Logger  logger.Logger
}

// NewExecutor returns an Executor running processes in dir.
func NewExecutor(dir string, timeout time.Duration, l logger.Logger) *Executor {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Executor{Dir: dir, Timeout: timeout, Logger: l}
}

// Run starts cmd, feeds it Stdin and waits for it to exit. Any failure is
// returned as an *ExitError.
func (e *Executor) Run(ctx context.Context, cmd Command) (*Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = e.Dir
	c.WaitDelay = time.Second
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	e.Logger.Debug(fmt.Sprintf("Running %s", cmd))
	start := time.Now()
	err := c.Run()
	duration := time.Since(start)

	if err != nil {
		exitErr := &ExitError{
			Tool:     cmd.Tool,
			Path:     cmd.Path,
			Args:     cmd.Args,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var procErr *exec.ExitError
		if errors.As(err, &procErr) {
			exitErr.ExitCode = procErr.ExitCode()
		}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			exitErr.ExitCode = -1
			exitErr.Err = fmt.Errorf("%w after %s", ErrTimeout, e.Timeout)
		case errors.Is(ctx.Err(), context.Canceled):
			exitErr.ExitCode = -1
			exitErr.Err = ctx.Err()
		}
		e.Logger.Debug(fmt.Sprintf("%s failed after %v: %v", cmd.Tool, duration, exitErr))
		return nil, exitErr
	}

	e.Logger.Debug(fmt.Sprintf("%s finished in %v", cmd.Tool, duration))
	return &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: duration}, nil
}
