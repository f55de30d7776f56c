package toolchain

import (
	"fmt"
	"strings"
	"time"
)

const (
	StageBytecode     = "bytecode"
	StageCrossCompile = "cross-compile"
)

// CompileError reports an external compiler that exited with a non-zero
// status. The captured output is attached verbatim.
type CompileError struct {
	Stage    string
	Path     string
	ExitCode int
	Args     []string
	Stdout   []byte
	Stderr   []byte
}

func (e *CompileError) Error() string {
	if e == nil {
		return ""
	}
	cmd := strings.Join(e.Args, " ")
	return fmt.Sprintf("%s: %s (%s exited with status %d)", e.Path, e.Summary(), cmd, e.ExitCode)
}

// Summary is the one-line diagnostic for the failing step.
func (e *CompileError) Summary() string {
	switch e.Stage {
	case StageBytecode:
		return "could not compile GLSL code"
	case StageCrossCompile:
		return "could not convert SPIR-V to HLSL"
	default:
		return e.Stage + " failed"
	}
}

// Output returns stdout followed by stderr, trimmed.
func (e *CompileError) Output() string {
	return strings.TrimSpace(string(e.Stdout) + string(e.Stderr))
}

// TimeoutError reports an external compiler killed after exceeding its
// configured time limit.
type TimeoutError struct {
	Stage   string
	Bin     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s timed out after %s", e.Stage, e.Bin, e.Timeout)
}
