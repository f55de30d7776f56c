package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, "glslc", d.Bytecode.Bin)
	assert.Equal(t, "spirv-cross", d.Cross.Bin)
	assert.Equal(t, "50", d.ShaderProfile)
	assert.Zero(t, d.Timeout)
	assert.NoError(t, d.Validate())
}

func TestLoad_TOML(t *testing.T) {
	p := writeConfig(t, "tools.toml", `
shader_profile = "51"
timeout = "30s"

[bytecode]
bin = "/opt/vulkan/bin/glslc"
args = "-O --target-env=vulkan1.1 \"-DNAME=a b\""

[cross]
args = "--no-es"
`)
	tools, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "/opt/vulkan/bin/glslc", tools.Bytecode.Bin)
	assert.Equal(t, []string{"-O", "--target-env=vulkan1.1", "-DNAME=a b"}, tools.Bytecode.Args)
	assert.Equal(t, "spirv-cross", tools.Cross.Bin)
	assert.Equal(t, []string{"--no-es"}, tools.Cross.Args)
	assert.Equal(t, "51", tools.ShaderProfile)
	assert.Equal(t, 30*time.Second, tools.Timeout)
}

func TestLoad_YAML(t *testing.T) {
	p := writeConfig(t, "tools.yml", `
bytecode:
  bin: glslangValidator
cross:
  bin: ~/bin/spirv-cross
timeout: 2m
`)
	tools, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "glslangValidator", tools.Bytecode.Bin)

	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "bin", "spirv-cross"), tools.Cross.Bin)
	assert.Equal(t, DefaultShaderProfile, tools.ShaderProfile)
	assert.Equal(t, 2*time.Minute, tools.Timeout)
}

func TestLoad_EmptyYAMLKeepsDefaults(t *testing.T) {
	tools, err := Load(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), tools)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]struct {
		name string
		body string
	}{
		"unknown toml key": {"a.toml", "colour = \"red\"\n"},
		"unknown yaml key": {"a.yaml", "colour: red\n"},
		"bad duration":     {"a.toml", "timeout = \"soon\"\n"},
		"negative timeout": {"a.toml", "timeout = \"-1s\"\n"},
		"bad shell args":   {"a.toml", "[cross]\nargs = \"--x 'unterminated\"\n"},
		"bad extension":    {"a.json", "{}"},
		"malformed toml":   {"a.toml", "[bytecode\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.name, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestClone_DoesNotAlias(t *testing.T) {
	a := Default()
	a.Bytecode.Args = []string{"-O"}
	b := a.Clone()
	b.Bytecode.Args[0] = "-g"
	assert.Equal(t, "-O", a.Bytecode.Args[0])
}
