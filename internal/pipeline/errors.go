package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"refreshc/internal/shader"
	"refreshc/internal/toolchain"
)

// Stable failure reasons recorded in the execution trace.
const (
	ReasonUnsupportedStage = "UnsupportedStage"
	ReasonCompileError     = "CompileError"
	ReasonTimeout          = "Timeout"
	ReasonCancelled        = "Cancelled"
	ReasonIOError          = "IOError"
	ReasonUpstreamFailed   = "UpstreamFailed"
)

// FileError is a per-file failure together with the state the file had
// reached when it failed.
type FileError struct {
	Path  string
	State FileState
	Err   error
}

func (e *FileError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Path + ": failed"
	}
	// Every wrapped error in this module already names its path.
	if strings.Contains(e.Err.Error(), e.Path) {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Reason classifies the failure into a stable trace code.
func (e *FileError) Reason() string {
	return reasonOf(e.Err)
}

func reasonOf(err error) string {
	var (
		unsupported *shader.UnsupportedStageError
		compile     *toolchain.CompileError
		timeout     *toolchain.TimeoutError
	)
	switch {
	case errors.As(err, &unsupported):
		return ReasonUnsupportedStage
	case errors.As(err, &compile):
		return ReasonCompileError
	case errors.As(err, &timeout):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	default:
		return ReasonIOError
	}
}

// RunError aggregates every file failure of a keep-going run, in
// enumeration order.
type RunError struct {
	Failures []*FileError
}

func (e *RunError) Error() string {
	if e == nil || len(e.Failures) == 0 {
		return ""
	}
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d files failed to compile:", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n  ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes every failure to errors.Is and errors.As. The first
// failure is matched first.
func (e *RunError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}
