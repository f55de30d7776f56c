package pipeline

import "fmt"

// FileState is the pipeline state of one source file.
type FileState string

const (
	StateStart            FileState = "START"
	StateStageDetected    FileState = "STAGE_DETECTED"
	StateBytecodeCompiled FileState = "BYTECODE_COMPILED"
	StateNativeCompiled   FileState = "NATIVE_COMPILED"
	StateContainerWritten FileState = "CONTAINER_WRITTEN"
	StateDone             FileState = "DONE"
	StateFailed           FileState = "FAILED"
)

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s FileState) bool {
	return s == StateDone || s == StateFailed
}

// Transition validates a single step of the per-file state machine.
func Transition(from, to FileState) error {
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", from, to)
	}
	return nil
}

func isAllowedTransition(from, to FileState) bool {
	if to == StateFailed {
		return !IsTerminal(from) && from != ""
	}
	switch from {
	case StateStart:
		return to == StateStageDetected
	case StateStageDetected:
		return to == StateBytecodeCompiled
	case StateBytecodeCompiled:
		return to == StateNativeCompiled || to == StateContainerWritten
	case StateNativeCompiled:
		return to == StateContainerWritten
	case StateContainerWritten:
		return to == StateDone
	default:
		return false
	}
}
