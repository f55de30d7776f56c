// Package config holds the external toolchain configuration: which binaries
// compile GLSL to SPIR-V and SPIR-V to HLSL, and how they are invoked.
//
// The configuration is explicit. It is built from Default() and optionally
// overlaid by a TOML or YAML file named on the command line; no environment
// variables are consulted.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultBytecodeBin   = "glslc"
	DefaultCrossBin      = "spirv-cross"
	DefaultShaderProfile = "50"
)

// ToolSpec describes one external program.
type ToolSpec struct {
	// Bin is the executable name or path. Resolved through PATH by the
	// executor when it contains no separator.
	Bin string

	// Args are extra arguments inserted before the fixed contract arguments.
	Args []string
}

// Tools is the immutable toolchain configuration for a run.
type Tools struct {
	Bytecode ToolSpec
	Cross    ToolSpec

	// ShaderProfile is the HLSL shader model passed to the cross-compiler
	// ("50" selects Shader Model 5.0, the D3D11 baseline).
	ShaderProfile string

	// Timeout bounds every external invocation. Zero means no limit.
	Timeout time.Duration
}

// Default returns the toolchain used when no configuration file is given.
func Default() Tools {
	return Tools{
		Bytecode:      ToolSpec{Bin: DefaultBytecodeBin},
		Cross:         ToolSpec{Bin: DefaultCrossBin},
		ShaderProfile: DefaultShaderProfile,
	}
}

// Validate checks that every required field is populated.
func (t Tools) Validate() error {
	var errs []error
	if t.Bytecode.Bin == "" {
		errs = append(errs, errors.New("bytecode compiler binary is empty"))
	}
	if t.Cross.Bin == "" {
		errs = append(errs, errors.New("cross-compiler binary is empty"))
	}
	if t.ShaderProfile == "" {
		errs = append(errs, errors.New("shader profile is empty"))
	}
	if t.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative (got %s)", t.Timeout))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy so callers can never alias the argument slices.
func (t Tools) Clone() Tools {
	c := t
	c.Bytecode.Args = append([]string(nil), t.Bytecode.Args...)
	c.Cross.Args = append([]string(nil), t.Cross.Args...)
	return c
}
