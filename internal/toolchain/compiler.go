package toolchain

import (
	"context"
	"fmt"
	"log/slog"

	"refreshc/internal/config"
)

// Compiler is the adapter over the two external programs.
type Compiler struct {
	tools  config.Tools
	runner Runner
	log    *slog.Logger
}

// NewCompiler binds a toolchain configuration to a Runner. A nil logger
// selects slog.Default().
func NewCompiler(tools config.Tools, runner Runner, log *slog.Logger) *Compiler {
	if log == nil {
		log = slog.Default()
	}
	return &Compiler{tools: tools.Clone(), runner: runner, log: log}
}

// BytecodeArgs returns the bytecode compiler arguments:
// [extra...] <source> -o <dest>.
func BytecodeArgs(tools config.Tools, sourcePath, destPath string) []string {
	args := append([]string(nil), tools.Bytecode.Args...)
	return append(args, sourcePath, "-o", destPath)
}

// CrossArgs returns the cross-compiler arguments requesting HLSL with the
// vertical flip correction and the configured shader model.
func CrossArgs(tools config.Tools, bytecodePath, destPath string) []string {
	args := append([]string(nil), tools.Cross.Args...)
	return append(args,
		bytecodePath,
		"--hlsl",
		"--flip-vert-y",
		"--shader-model", tools.ShaderProfile,
		"--output", destPath,
	)
}

// CompileToBytecode compiles a GLSL source file to SPIR-V at destPath.
func (c *Compiler) CompileToBytecode(ctx context.Context, sourcePath, destPath string) error {
	inv := Invocation{
		Stage:   StageBytecode,
		Bin:     c.tools.Bytecode.Bin,
		Args:    BytecodeArgs(c.tools, sourcePath, destPath),
		Timeout: c.tools.Timeout,
	}
	return c.run(ctx, sourcePath, inv)
}

// CrossCompileToNative translates a SPIR-V file to HLSL at destPath.
func (c *Compiler) CrossCompileToNative(ctx context.Context, bytecodePath, destPath string) error {
	inv := Invocation{
		Stage:   StageCrossCompile,
		Bin:     c.tools.Cross.Bin,
		Args:    CrossArgs(c.tools, bytecodePath, destPath),
		Timeout: c.tools.Timeout,
	}
	return c.run(ctx, bytecodePath, inv)
}

func (c *Compiler) run(ctx context.Context, path string, inv Invocation) error {
	c.log.Debug("exec", "stage", inv.Stage, "bin", inv.Bin, "args", inv.Args)

	res, err := c.runner.Run(ctx, inv)
	if err != nil {
		return fmt.Errorf("%s: %w", inv.Stage, err)
	}
	if res == nil {
		return fmt.Errorf("%s: runner returned no result", inv.Stage)
	}
	if res.ExitCode != 0 {
		return &CompileError{
			Stage:    inv.Stage,
			Path:     path,
			ExitCode: res.ExitCode,
			Args:     append([]string{inv.Bin}, inv.Args...),
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	if len(res.Stdout) > 0 || len(res.Stderr) > 0 {
		c.log.Debug("tool output", "stage", inv.Stage, "stdout", string(res.Stdout), "stderr", string(res.Stderr))
	}
	return nil
}
