package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"refreshc/internal/config"
	"refreshc/internal/logx"
	"refreshc/internal/pipeline"
	"refreshc/internal/shader"
	"refreshc/internal/toolchain"
)

const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitUsage       = 1
	ExitInterrupted = 130
)

// HelpText is printed when the tool is invoked without arguments or with -h.
const HelpText = `Usage: refreshc <path-to-glsl-source | directory-with-glsl-source-files>
Options:
  --vulkan           Emit shader compatible with the Refresh Vulkan backend
  --d3d11            Emit shader compatible with the Refresh D3D11 backend
  --out dir          Write output file(s) to the directory ` + "`dir`" + `
  --preserve-temp    Do not delete the temp directory after compilation. Useful for debugging.
  --keep-going       Compile every file of a directory and report all failures
  --config file      Load tool settings from a .toml or .yaml file
  --timeout d        Kill an external compiler running longer than d (e.g. 30s)
  --trace file       Write a deterministic JSON trace of the run to file
  --inspect          Decode the given container file and print its records
  -v                 Verbose output
  -q                 Only print errors
`

// CompileRequest is the validated, immutable description of one invocation.
//
// All paths are Clean and relative paths are resolved against WorkDir, so
// nothing after parsing depends on the process working directory.
type CompileRequest struct {
	Backends     shader.BackendSet
	InputPath    string
	OutputDir    string
	WorkDir      string
	PreserveTemp bool
	KeepGoing    bool
	TracePath    string
	Inspect      bool
	Tools        config.Tools
	LogLevel     slog.Level
}

// InvocationError is a usage or validation error. Help marks the help
// text itself; it goes to stdout rather than the error stream.
type InvocationError struct {
	ExitCode int
	Message  string
	Help     bool
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func usagef(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation turns argv (without the program name) into a
// CompileRequest. Flags and the single positional path may appear in any
// order. workDir must be absolute; it anchors relative paths and the temp
// directory.
//
// Checks run in this order: backends, output directory, input path.
func ParseInvocation(args []string, workDir string) (CompileRequest, error) {
	if len(args) == 0 {
		return CompileRequest{}, &InvocationError{ExitCode: ExitUsage, Message: HelpText, Help: true}
	}

	fs := flag.NewFlagSet("refreshc", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var (
		vulkan, d3d11         bool
		outDir                string
		preserve, keepGoing   bool
		configPath, tracePath string
		timeout               time.Duration
		inspect               bool
		verbose, quiet        bool
	)
	fs.BoolVar(&vulkan, "vulkan", false, "")
	fs.BoolVar(&d3d11, "d3d11", false, "")
	fs.StringVar(&outDir, "out", "", "")
	fs.BoolVar(&preserve, "preserve-temp", false, "")
	fs.BoolVar(&keepGoing, "keep-going", false, "")
	fs.StringVar(&configPath, "config", "", "")
	fs.DurationVar(&timeout, "timeout", 0, "")
	fs.StringVar(&tracePath, "trace", "", "")
	fs.BoolVar(&inspect, "inspect", false, "")
	fs.BoolVar(&verbose, "v", false, "")
	fs.BoolVar(&quiet, "q", false, "")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return CompileRequest{}, &InvocationError{ExitCode: ExitSuccess, Message: HelpText, Help: true}
		}
		return CompileRequest{}, err
	}
	if len(positional) > 1 {
		return CompileRequest{}, usagef("Unknown parameter: %s", positional[1])
	}

	workDir = filepath.Clean(workDir)
	if !filepath.IsAbs(workDir) {
		return CompileRequest{}, usagef("working directory must be absolute (got %q)", workDir)
	}

	req := CompileRequest{
		WorkDir:      workDir,
		PreserveTemp: preserve,
		KeepGoing:    keepGoing,
		Inspect:      inspect,
		LogLevel:     logx.LevelFromFlags(verbose, quiet),
	}

	if !inspect {
		req.Backends, err = shader.ParseBackendSet(vulkan, d3d11)
		if err != nil {
			return CompileRequest{}, usagef("No platforms selected!")
		}

		req.OutputDir = workDir
		if outDir != "" {
			req.OutputDir = resolveUnderWorkDir(workDir, outDir)
		}
		if fi, err := os.Stat(req.OutputDir); err != nil || !fi.IsDir() {
			return CompileRequest{}, usagef("Output directory '%s' does not exist!", displayPath(outDir, req.OutputDir))
		}
	}

	if len(positional) == 0 {
		return CompileRequest{}, usagef("No input file or directory given!")
	}
	req.InputPath = resolveUnderWorkDir(workDir, positional[0])
	if _, err := os.Stat(req.InputPath); err != nil {
		return CompileRequest{}, usagef("GLSL source file or directory '%s' does not exist!", positional[0])
	}

	req.Tools = config.Default()
	if configPath != "" {
		req.Tools, err = config.Load(resolveUnderWorkDir(workDir, configPath))
		if err != nil {
			return CompileRequest{}, usagef("%v", err)
		}
	}
	if flagSet(fs, "timeout") {
		if timeout < 0 {
			return CompileRequest{}, usagef("--timeout must not be negative")
		}
		req.Tools.Timeout = timeout
	}

	if strings.TrimSpace(tracePath) != "" {
		req.TracePath = resolveUnderWorkDir(workDir, tracePath)
	}
	return req, nil
}

// parseInterspersed runs fs.Parse repeatedly so flags may follow the
// positional path, as in "refreshc a.vert --vulkan".
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, usagef("%s", unknownParameter(err, rest))
		}
		rest = fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
}

// unknownParameter reports the offending token as the user typed it;
// flag strips the dashes and any "=value" from the name.
func unknownParameter(err error, args []string) string {
	msg := err.Error()
	name, ok := strings.CutPrefix(msg, "flag provided but not defined: -")
	if !ok {
		return msg
	}
	for _, a := range args {
		flagName, _, _ := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if strings.HasPrefix(a, "-") && flagName == name {
			return "Unknown parameter: " + a
		}
	}
	return "Unknown parameter: -" + name
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func resolveUnderWorkDir(workDir, p string) string {
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return clean
	}
	return filepath.Join(workDir, clean)
}

func displayPath(given, resolved string) string {
	if given != "" {
		return given
	}
	return resolved
}

// ExitCode maps an invocation or run error to the process exit status.
//
//   - nil: 0
//   - usage errors: their own code (help on request: 0)
//   - interruption: 130
//   - keep-going runs: the code of the first failure
//   - external compiler failures: the tool's exit status, or 1 if it has none
//   - everything else: 1
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 || invErr.Help {
			return invErr.ExitCode
		}
		return ExitUsage
	}
	// A keep-going run exits with its first failure's code, whatever kind
	// of failure that was.
	var runErr *pipeline.RunError
	if errors.As(err, &runErr) && len(runErr.Failures) > 0 {
		return ExitCode(runErr.Failures[0])
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	var ce *toolchain.CompileError
	if errors.As(err, &ce) && ce.ExitCode > 0 {
		return ce.ExitCode
	}
	return ExitFailure
}
