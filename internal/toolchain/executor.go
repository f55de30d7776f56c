// Package toolchain invokes the external shader compilers.
//
// Two programs are driven, each as an opaque subprocess with a fixed
// command-line contract:
//
//	glslc <source> -o <spirv>
//	spirv-cross <spirv> --hlsl --flip-vert-y --shader-model <profile> --output <hlsl>
//
// Their output is never parsed; stdout and stderr are captured and handed
// back for diagnostics.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Invocation is a single external program call.
type Invocation struct {
	// Stage names the pipeline step for error reporting.
	Stage string

	Bin  string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout bounds the call. Zero means wait indefinitely.
	Timeout time.Duration
}

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout []byte
	Stderr []byte

	// ExitCode is the process exit status; 0 means success.
	ExitCode int
}

// Runner executes invocations. *Executor is the production implementation;
// tests substitute fakes that never spawn a process.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, inv Invocation) (*Result, error) { return f(ctx, inv) }

// Executor runs invocations as child processes in their own process group,
// so cancellation kills the compiler and anything it spawned.
type Executor struct{}

// NewExecutor returns the subprocess Runner.
func NewExecutor() *Executor { return &Executor{} }

// Run starts the program and blocks until it exits, the timeout elapses or
// ctx is cancelled.
//
// A non-zero exit is not an error: it is reported through Result.ExitCode.
// Errors are returned only when the process could not be started, was
// killed by the timeout (*TimeoutError) or by ctx.
func (e *Executor) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.Bin == "" {
		return nil, fmt.Errorf("%s: empty program path", inv.Stage)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.Command(inv.Bin, inv.Args...)
	cmd.Dir = inv.Dir
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", inv.Bin, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-runCtx.Done():
		killProcessGroup(cmd)
		<-done
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Stage: inv.Stage, Bin: inv.Bin, Timeout: inv.Timeout}
		}
		return nil, fmt.Errorf("%s cancelled: %w", inv.Bin, ctx.Err())
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", inv.Bin, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}
