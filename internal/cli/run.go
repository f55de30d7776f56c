package cli

import (
	"context"

	"refreshc/internal/logx"
	"refreshc/internal/toolchain"
)

// Run is the high-level entrypoint used by main. args excludes argv[0];
// workDir is the absolute directory the tool runs in.
func Run(ctx context.Context, args []string, workDir string) (CLIResult, error) {
	return RunWithRunner(ctx, args, workDir, toolchain.NewExecutor())
}

// RunWithRunner is Run with the external process runner replaced, for
// black-box tests. The default logger's level is taken from -v and -q.
func RunWithRunner(ctx context.Context, args []string, workDir string, runner toolchain.Runner) (CLIResult, error) {
	req, err := ParseInvocation(args, workDir)
	if err != nil {
		return CLIResult{ExitCode: ExitCode(err)}, err
	}
	logx.UserLevel.Set(req.LogLevel)
	return ExecuteWithRunner(ctx, req, runner)
}
