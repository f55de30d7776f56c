// Package pipeline drives one compiler run: stage detection, bytecode
// compilation, optional cross-compilation and container writing, for a
// single source file or for every entry of a directory.
//
// Files are processed strictly sequentially. Each file moves through a
// validated state machine:
//
//	START -> STAGE_DETECTED -> BYTECODE_COMPILED -> [NATIVE_COMPILED] -> CONTAINER_WRITTEN -> DONE
//
// and any non-terminal state may move to FAILED. In directory mode the run
// stops at the first failing file unless keep-going is requested; files not
// attempted are recorded as skipped in the trace.
package pipeline
