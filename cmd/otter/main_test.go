package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/bytecode/binary"
)

func writeModule(t *testing.T, fn *bytecode.Function) string {
	t.Helper()
	data := binary.Encode(&bytecode.Module{Functions: []*bytecode.Function{fn}})
	path := filepath.Join(t.TempDir(), "main.otbc")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDoMain_usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitUsage, doMain(nil, &stdout, &stderr))
	require.Equal(t, exitUsage, doMain([]string{"frobnicate"}, &stdout, &stderr))
	require.Equal(t, exitUsage, doMain([]string{"run"}, &stdout, &stderr))
}

func TestDoMain_version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitSuccess, doMain([]string{"version"}, &stdout, &stderr))
	require.NotEmpty(t, stdout.String())
}

func TestDoMain_runPrintsResult(t *testing.T) {
	path := writeModule(t, &bytecode.Function{
		RegisterCount: 3,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpLoadInt8, Dst: 0, JumpDelta: 2},
			{Op: bytecode.OpLoadInt8, Dst: 1, JumpDelta: 3},
			{Op: bytecode.OpAddInt32, Dst: 2, Src1: 0, Src2: 1},
			{Op: bytecode.OpReturn, Src1: 2},
		},
	})
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitSuccess, doMain([]string{"run", "-no-jit", "-print", path}, &stdout, &stderr))
	require.Equal(t, "5\n", stdout.String())
}

func TestDoMain_runUncaughtThrow(t *testing.T) {
	path := writeModule(t, &bytecode.Function{
		RegisterCount: 1,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpLoadInt8, Dst: 0, JumpDelta: 7},
			{Op: bytecode.OpThrow, Src1: 0},
		},
	})
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitUncaught, doMain([]string{"run", "-no-jit", path}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Uncaught 7")
}

func TestDoMain_checkRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.otbc")
	require.NoError(t, os.WriteFile(path, []byte("not a module"), 0o600))
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitBadInput, doMain([]string{"check", path}, &stdout, &stderr))

	good := writeModule(t, &bytecode.Function{
		RegisterCount: 1,
		Instructions:  []bytecode.Instruction{{Op: bytecode.OpReturnUndefined}},
	})
	require.Equal(t, exitSuccess, doMain([]string{"check", good}, &stdout, &stderr))
}
