package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"refreshc/internal/container"
	"refreshc/internal/pipeline"
	"refreshc/internal/toolchain"
	"refreshc/internal/trace"
	"refreshc/internal/workspace"
)

// CLIResult is the outcome of Execute.
type CLIResult struct {
	ExitCode  int
	Run       *pipeline.RunResult
	Container *container.Container

	// TraceDigest is the sha256 of the trace file, when one was written.
	TraceDigest string
}

// Execute runs a request against the real external compilers.
func Execute(ctx context.Context, req CompileRequest) (CLIResult, error) {
	return ExecuteWithRunner(ctx, req, toolchain.NewExecutor())
}

// ExecuteWithRunner maps a CompileRequest to a pipeline run using runner for
// every external process.
//
// Responsibilities:
//   - Release the temp workspace exactly once, on every path, honouring
//     PreserveTemp.
//   - Write the trace file before and after the run, even on failure.
//   - Translate outcomes to exit codes.
func ExecuteWithRunner(ctx context.Context, req CompileRequest, runner toolchain.Runner) (res CLIResult, execErr error) {
	log := slog.Default()
	res.ExitCode = ExitFailure
	if runner == nil {
		return res, errors.New("nil runner")
	}
	if req.Inspect {
		return inspect(req, log)
	}

	ws := workspace.New(workspace.DefaultRoot(req.WorkDir))
	defer func() {
		if err := ws.Release(req.PreserveTemp); err != nil {
			log.Error(err.Error())
			if execErr == nil {
				execErr = err
				res.ExitCode = ExitFailure
			}
			return
		}
		if req.PreserveTemp && ws.Acquired() {
			log.Debug("kept temp dir", "path", ws.Root())
		}
	}()

	rec := trace.NewRecorder()
	tw, err := newTraceWriter(req.TracePath, req.Backends.String())
	if err != nil {
		log.Error(err.Error())
		return res, err
	}
	defer func() {
		digest, err := tw.Finalize(rec)
		if err != nil {
			log.Error(err.Error())
			if execErr == nil {
				execErr = err
				res.ExitCode = ExitFailure
			}
			return
		}
		if digest != "" {
			res.TraceDigest = digest
			log.Debug("wrote trace", "path", req.TracePath, "sha256", digest)
		}
	}()

	drv := pipeline.NewDriver(
		pipeline.Request{
			Backends:  req.Backends,
			InputPath: req.InputPath,
			OutputDir: req.OutputDir,
			KeepGoing: req.KeepGoing,
		},
		pipeline.Deps{
			Compiler:  toolchain.NewCompiler(req.Tools, runner, log),
			Workspace: ws,
			Trace:     rec,
			Logger:    log,
		},
	)

	run, err := drv.Run(ctx)
	res.Run = run
	res.ExitCode = ExitCode(err)
	if err != nil {
		reportRunError(log, err)
	}
	if run != nil {
		if n := len(run.Skipped); n > 0 {
			log.Warn(fmt.Sprintf("%d remaining file(s) not compiled", n), "first", run.Skipped[0])
		}
		log.Debug("run finished", "written", len(run.Written()), "failed", len(run.Failures))
	}
	return res, err
}

// reportRunError logs errors the driver has not already reported per file.
func reportRunError(log *slog.Logger, err error) {
	var (
		ferr   *pipeline.FileError
		runErr *pipeline.RunError
	)
	switch {
	case errors.As(err, &runErr):
		log.Error(fmt.Sprintf("%d of the files failed to compile", len(runErr.Failures)))
	case errors.As(err, &ferr):
		// reported by the driver
	default:
		log.Error(err.Error())
	}
}

func inspect(req CompileRequest, log *slog.Logger) (CLIResult, error) {
	c, err := container.ReadFile(req.InputPath)
	if err != nil {
		log.Error(err.Error())
		return CLIResult{ExitCode: ExitFailure}, err
	}
	log.Info(fmt.Sprintf("%s: magic %s, stage %s", req.InputPath, container.Magic, c.Stage))
	for _, p := range c.Payloads {
		log.Info(fmt.Sprintf("  %s: %d bytes", p.Backend, len(p.Data)))
	}
	return CLIResult{ExitCode: ExitSuccess, Container: c}, nil
}
