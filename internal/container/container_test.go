package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refreshc/internal/shader"
)

func writeArtifact(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteContainer_ExactBytes(t *testing.T) {
	dir := t.TempDir()
	spv := writeArtifact(t, dir, "a.spv", []byte{0x03, 0x02, 0x23, 0x07})
	hlsl := writeArtifact(t, dir, "a.hlsl", []byte("float4 main()"))
	out := filepath.Join(dir, "a.frag.refresh")

	err := WriteContainer(shader.StageFragment, []Record{
		{Backend: shader.BackendBytecodeIR, Path: spv},
		{Backend: shader.BackendNativeShader, Path: hlsl},
	}, out)
	require.NoError(t, err)

	var want bytes.Buffer
	want.WriteString("RFSH")
	want.Write([]byte{1, 0, 0, 0})
	want.Write([]byte{0, 4, 0, 0, 0})
	want.Write([]byte{0x03, 0x02, 0x23, 0x07})
	want.Write([]byte{1, 13, 0, 0, 0})
	want.WriteString("float4 main()")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want.Bytes(), got)
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	big := bytes.Repeat([]byte{0xAB, 0xCD}, 70000)
	cases := []struct {
		name    string
		stage   shader.StageKind
		records map[shader.BackendTarget][]byte
	}{
		{"vertex spirv", shader.StageVertex, map[shader.BackendTarget][]byte{shader.BackendBytecodeIR: big}},
		{"compute hlsl", shader.StageCompute, map[shader.BackendTarget][]byte{shader.BackendNativeShader: []byte("[numthreads(1,1,1)]")}},
		{"fragment both", shader.StageFragment, map[shader.BackendTarget][]byte{
			shader.BackendBytecodeIR:   {1, 2, 3},
			shader.BackendNativeShader: {},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var recs []Record
			for _, b := range []shader.BackendTarget{shader.BackendBytecodeIR, shader.BackendNativeShader} {
				if data, ok := tc.records[b]; ok {
					recs = append(recs, Record{Backend: b, Path: writeArtifact(t, dir, tc.name+b.String(), data)})
				}
			}
			out := filepath.Join(dir, tc.name+".refresh")
			require.NoError(t, WriteContainer(tc.stage, recs, out))

			c, err := ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, tc.stage, c.Stage)
			require.Len(t, c.Payloads, len(tc.records))
			for b, data := range tc.records {
				got, ok := c.Payload(b)
				require.True(t, ok, b.String())
				assert.True(t, bytes.Equal(data, got), b.String())
			}
		})
	}
}

func TestWriteContainer_Deterministic(t *testing.T) {
	dir := t.TempDir()
	spv := writeArtifact(t, dir, "x.spv", []byte("spirv-bytes"))
	recs := []Record{{Backend: shader.BackendBytecodeIR, Path: spv}}

	a := filepath.Join(dir, "a.refresh")
	b := filepath.Join(dir, "b.refresh")
	require.NoError(t, WriteContainer(shader.StageVertex, recs, a))
	require.NoError(t, WriteContainer(shader.StageVertex, recs, b))

	ab, _ := os.ReadFile(a)
	bb, _ := os.ReadFile(b)
	assert.Equal(t, ab, bb)
}

func TestWriteContainer_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	spv := writeArtifact(t, dir, "x.spv", []byte("s"))
	out := filepath.Join(dir, "x.refresh")

	err := WriteContainer(shader.StageVertex, nil, out)
	assert.ErrorIs(t, err, ErrNoRecords)

	err = WriteContainer(shader.StageKind(9), []Record{{Backend: shader.BackendBytecodeIR, Path: spv}}, out)
	assert.Error(t, err)

	err = WriteContainer(shader.StageVertex, []Record{
		{Backend: shader.BackendNativeShader, Path: spv},
		{Backend: shader.BackendBytecodeIR, Path: spv},
	}, out)
	var oe *OrderError
	assert.True(t, errors.As(err, &oe))

	assert.NoFileExists(t, out)
	assert.Equal(t, []string{"x.spv"}, listDir(t, dir))
}

func TestWriteContainer_NoPartialFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	spv := writeArtifact(t, dir, "x.spv", []byte("spirv"))
	out := filepath.Join(dir, "x.frag.refresh")

	err := WriteContainer(shader.StageFragment, []Record{
		{Backend: shader.BackendBytecodeIR, Path: spv},
		{Backend: shader.BackendNativeShader, Path: filepath.Join(dir, "missing.hlsl")},
	}, out)
	require.Error(t, err)
	assert.NoFileExists(t, out)
	assert.Equal(t, []string{"x.spv"}, listDir(t, dir), "temporary file must be removed")
}

func TestWriteContainer_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	out := writeArtifact(t, dir, "x.vert.refresh", []byte("stale"))
	spv := writeArtifact(t, dir, "x.spv", []byte("new"))

	require.NoError(t, WriteContainer(shader.StageVertex, []Record{{Backend: shader.BackendBytecodeIR, Path: spv}}, out))
	c, err := ReadFile(out)
	require.NoError(t, err)
	data, _ := c.Payload(shader.BackendBytecodeIR)
	assert.Equal(t, []byte("new"), data)
}

func TestWriteContainer_MissingOutputDir(t *testing.T) {
	dir := t.TempDir()
	spv := writeArtifact(t, dir, "x.spv", []byte("s"))
	err := WriteContainer(shader.StageVertex, []Record{{Backend: shader.BackendBytecodeIR, Path: spv}}, filepath.Join(dir, "nope", "x.refresh"))
	assert.Error(t, err)
}

func header(stage uint32) []byte {
	b := []byte("RFSH\x00\x00\x00\x00")
	binary.LittleEndian.PutUint32(b[4:], stage)
	return b
}

func TestRead_Errors(t *testing.T) {
	rec := func(tag byte, n uint32, payload string) []byte {
		b := []byte{tag, 0, 0, 0, 0}
		binary.LittleEndian.PutUint32(b[1:], n)
		return append(b, payload...)
	}
	cat := func(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

	cases := map[string]struct {
		data []byte
		want error
	}{
		"empty":             {nil, ErrTruncated},
		"short header":      {[]byte("RFS"), ErrTruncated},
		"bad magic":         {cat([]byte("NOPE"), []byte{0, 0, 0, 0}), ErrBadMagic},
		"no records":        {header(0), ErrNoRecords},
		"short record head": {cat(header(0), []byte{0, 1}), ErrTruncated},
		"short payload":     {cat(header(0), rec(0, 10, "abc")), ErrTruncated},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tc.data))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := Read(bytes.NewReader(header(7)))
	assert.Error(t, err, "unknown stage")

	_, err = Read(bytes.NewReader(cat(header(1), rec(5, 0, ""))))
	assert.Error(t, err, "unknown backend")

	_, err = Read(bytes.NewReader(cat(header(1), rec(1, 1, "h"), rec(0, 1, "s"))))
	var oe *OrderError
	assert.True(t, errors.As(err, &oe), "out of order")

	_, err = Read(bytes.NewReader(cat(header(1), rec(0, 1, "s"), rec(0, 1, "s"))))
	assert.True(t, errors.As(err, &oe), "duplicate")
}
