package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk schema. Every field is optional; empty values
// keep the defaults.
//
//	[bytecode]
//	bin  = "~/VulkanSDK/bin/glslc"
//	args = "-O --target-env=vulkan1.1"
//
//	[cross]
//	bin = "spirv-cross"
//
//	shader_profile = "50"
//	timeout        = "30s"
type fileConfig struct {
	Bytecode      toolFile `toml:"bytecode" yaml:"bytecode"`
	Cross         toolFile `toml:"cross" yaml:"cross"`
	ShaderProfile string   `toml:"shader_profile" yaml:"shader_profile"`
	Timeout       string   `toml:"timeout" yaml:"timeout"`
}

type toolFile struct {
	Bin  string `toml:"bin" yaml:"bin"`
	Args string `toml:"args" yaml:"args"`
}

// Load reads a configuration file and overlays it on Default().
// The format is chosen by extension: .toml, .yaml or .yml.
func Load(path string) (Tools, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tools{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = decodeTOML(data, &fc)
	case ".yaml", ".yml":
		err = decodeYAML(data, &fc)
	default:
		return Tools{}, fmt.Errorf("config %s: unsupported format %q (expected .toml, .yaml or .yml)", path, ext)
	}
	if err != nil {
		return Tools{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	tools, err := fc.apply(Default())
	if err != nil {
		return Tools{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := tools.Validate(); err != nil {
		return Tools{}, fmt.Errorf("config %s: %w", path, err)
	}
	return tools, nil
}

func decodeTOML(data []byte, fc *fileConfig) error {
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(fc)
}

func decodeYAML(data []byte, fc *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (fc fileConfig) apply(t Tools) (Tools, error) {
	var err error
	if t.Bytecode, err = fc.Bytecode.apply(t.Bytecode); err != nil {
		return Tools{}, fmt.Errorf("bytecode: %w", err)
	}
	if t.Cross, err = fc.Cross.apply(t.Cross); err != nil {
		return Tools{}, fmt.Errorf("cross: %w", err)
	}
	if p := strings.TrimSpace(fc.ShaderProfile); p != "" {
		t.ShaderProfile = p
	}
	if s := strings.TrimSpace(fc.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Tools{}, fmt.Errorf("timeout: %w", err)
		}
		t.Timeout = d
	}
	return t, nil
}

func (tf toolFile) apply(spec ToolSpec) (ToolSpec, error) {
	if bin := strings.TrimSpace(tf.Bin); bin != "" {
		expanded, err := ExpandBin(bin)
		if err != nil {
			return ToolSpec{}, err
		}
		spec.Bin = expanded
	}
	if strings.TrimSpace(tf.Args) != "" {
		args, err := shellwords.Parse(tf.Args)
		if err != nil {
			return ToolSpec{}, fmt.Errorf("args %q: %w", tf.Args, err)
		}
		spec.Args = args
	}
	return spec, nil
}

// ExpandBin expands a leading ~ in a tool path to the user's home directory.
func ExpandBin(bin string) (string, error) {
	p, err := homedir.Expand(bin)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", bin, err)
	}
	return p, nil
}
