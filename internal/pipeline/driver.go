package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"refreshc/internal/container"
	"refreshc/internal/shader"
	"refreshc/internal/toolchain"
	"refreshc/internal/trace"
	"refreshc/internal/workspace"
)

// Compiler is the external compiler adapter the driver needs.
// *toolchain.Compiler implements it.
type Compiler interface {
	CompileToBytecode(ctx context.Context, sourcePath, destPath string) error
	CrossCompileToNative(ctx context.Context, bytecodePath, destPath string) error
}

var _ Compiler = (*toolchain.Compiler)(nil)

// Request is the validated, immutable description of a run.
type Request struct {
	Backends  shader.BackendSet
	InputPath string
	OutputDir string
	KeepGoing bool
}

// Deps are the collaborators of a Driver. Trace and Logger are optional.
type Deps struct {
	Compiler  Compiler
	Workspace *workspace.Manager
	Trace     trace.Sink
	Logger    *slog.Logger
}

// FileResult describes what happened to one source file.
type FileResult struct {
	Path   string
	Stage  shader.StageKind
	State  FileState
	Output string
}

// RunResult collects the per-file outcomes of a run in enumeration order.
type RunResult struct {
	Files    []*FileResult
	Failures []*FileError
	Skipped  []string
}

// Written returns the container paths produced by the run.
func (r *RunResult) Written() []string {
	var out []string
	for _, f := range r.Files {
		if f.State == StateDone {
			out = append(out, f.Output)
		}
	}
	return out
}

// Driver runs the per-file state machine. It is not safe for concurrent
// use; files are compiled one at a time.
type Driver struct {
	req  Request
	deps Deps
	log  *slog.Logger
	sink trace.Sink

	next int
}

// NewDriver binds a request to its collaborators.
func NewDriver(req Request, deps Deps) *Driver {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	sink := deps.Trace
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &Driver{req: req, deps: deps, log: log, sink: sink}
}

// fileRun tracks one file through the state machine.
type fileRun struct {
	d     *Driver
	index int
	res   *FileResult
}

func (f *fileRun) advance(to FileState) error {
	if err := Transition(f.res.State, to); err != nil {
		return fmt.Errorf("%s: %w", f.res.Path, err)
	}
	f.res.State = to
	return nil
}

func (f *fileRun) record(e trace.Event) {
	e.Index = f.index
	e.File = f.res.Path
	trace.SafeRecord(f.d.sink, e)
}

func (f *fileRun) fail(err error) (*FileResult, error) {
	ferr := &FileError{Path: f.res.Path, State: f.res.State, Err: err}
	f.res.State = StateFailed
	f.record(trace.Event{Kind: trace.EventFileFailed, Reason: ferr.Reason()})
	f.d.report(ferr)
	return f.res, ferr
}

// CompileFile runs the whole state machine for one source file. On failure
// the returned error is a *FileError and the result's State is FAILED.
func (d *Driver) CompileFile(ctx context.Context, path string) (*FileResult, error) {
	f := &fileRun{d: d, index: d.next, res: &FileResult{Path: path, State: StateStart}}
	d.next++

	if err := ctx.Err(); err != nil {
		return f.fail(err)
	}

	stage, err := shader.DetectStage(path)
	if err != nil {
		return f.fail(err)
	}
	f.res.Stage = stage
	if err := f.advance(StateStageDetected); err != nil {
		return f.fail(err)
	}
	f.record(trace.Event{Kind: trace.EventStageDetected, Stage: stage.String()})

	if d.deps.Workspace == nil || d.deps.Compiler == nil {
		return f.fail(errors.New("driver has no workspace or compiler"))
	}
	h, err := d.deps.Workspace.Acquire()
	if err != nil {
		return f.fail(err)
	}
	arts, err := h.Artifacts(path)
	if err != nil {
		return f.fail(err)
	}
	d.log.Debug("intermediates", "root", h.Root(), "dir", filepath.Base(arts.Dir))

	backends := d.req.Backends
	if backends.NeedsBytecode() {
		if err := d.deps.Compiler.CompileToBytecode(ctx, path, arts.Bytecode); err != nil {
			return f.fail(err)
		}
		if err := f.advance(StateBytecodeCompiled); err != nil {
			return f.fail(err)
		}
		f.record(trace.Event{Kind: trace.EventBytecodeCompiled})
	}

	if backends.Has(shader.BackendNativeShader) {
		if err := d.deps.Compiler.CrossCompileToNative(ctx, arts.Bytecode, arts.Native); err != nil {
			return f.fail(err)
		}
		if err := f.advance(StateNativeCompiled); err != nil {
			return f.fail(err)
		}
		f.record(trace.Event{Kind: trace.EventNativeCompiled})
	}

	records := make([]container.Record, 0, 2)
	for _, b := range backends.Ordered() {
		switch b {
		case shader.BackendBytecodeIR:
			records = append(records, container.Record{Backend: b, Path: arts.Bytecode})
		case shader.BackendNativeShader:
			records = append(records, container.Record{Backend: b, Path: arts.Native})
		}
	}
	out := filepath.Join(d.req.OutputDir, shader.ContainerFileName(path))
	if err := container.WriteContainer(stage, records, out); err != nil {
		return f.fail(err)
	}
	f.res.Output = out
	if err := f.advance(StateContainerWritten); err != nil {
		return f.fail(err)
	}
	f.record(trace.Event{Kind: trace.EventContainerWritten, Output: out})

	if err := f.advance(StateDone); err != nil {
		return f.fail(err)
	}
	d.log.Debug("wrote container", "path", path, "output", out, "backends", backends.String())
	return f.res, nil
}

// Run compiles the request's input. A file is compiled directly; a
// directory has every entry attempted in lexicographic order, except hidden
// entries whose name starts with a dot.
//
// By default the run stops at the first failure and returns its
// *FileError. With KeepGoing every entry is attempted and a *RunError lists
// all failures. Cancellation always stops the run. The result is non-nil
// whenever enumeration succeeded.
func (d *Driver) Run(ctx context.Context) (*RunResult, error) {
	info, err := os.Stat(d.req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		res := &RunResult{}
		fr, err := d.CompileFile(ctx, d.req.InputPath)
		res.Files = append(res.Files, fr)
		if err != nil {
			var ferr *FileError
			errors.As(err, &ferr)
			res.Failures = append(res.Failures, ferr)
			return res, err
		}
		return res, nil
	}

	entries, err := os.ReadDir(d.req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	res := &RunResult{}
	stopReason := ""
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(d.req.InputPath, e.Name())
		if stopReason != "" {
			d.skip(res, path, stopReason)
			continue
		}

		d.log.Info("Compiling file: " + path)
		fr, err := d.CompileFile(ctx, path)
		res.Files = append(res.Files, fr)
		if err != nil {
			var ferr *FileError
			errors.As(err, &ferr)
			res.Failures = append(res.Failures, ferr)
			switch {
			case ctx.Err() != nil:
				stopReason = ReasonCancelled
			case !d.req.KeepGoing:
				stopReason = ReasonUpstreamFailed
			}
		}
	}

	switch {
	case len(res.Failures) == 0:
		return res, nil
	case d.req.KeepGoing:
		return res, &RunError{Failures: res.Failures}
	default:
		return res, res.Failures[0]
	}
}

func (d *Driver) skip(res *RunResult, path, reason string) {
	res.Skipped = append(res.Skipped, path)
	trace.SafeRecord(d.sink, trace.Event{
		Kind:   trace.EventFileSkipped,
		Index:  d.next,
		File:   path,
		Reason: reason,
	})
	d.next++
	d.log.Debug("skipped", "path", path, "reason", reason)
}

// report emits the diagnostic lines for a failed file.
func (d *Driver) report(ferr *FileError) {
	var ce *toolchain.CompileError
	if errors.As(ferr.Err, &ce) {
		d.log.Error(ce.Error(), "step", string(ferr.State))
		if out := ce.Output(); out != "" {
			d.log.Error(out)
		}
		return
	}
	d.log.Error(ferr.Error(), "step", string(ferr.State))
}
