package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/octofhir/otter-vm/internal/bytecode"
	"github.com/octofhir/otter-vm/internal/bytecode/binary"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsparser"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// addModule builds a one-function module (r0=2; r1=3; return r0+r1)
// round-tripped through the binary format, exercising LoadModule's
// decode+validate path end to end rather than constructing a
// bytecode.Module by hand.
func addModule() []byte {
	fn := &bytecode.Function{
		RegisterCount: 3,
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpLoadInt8, Dst: 0, JumpDelta: 2},
			{Op: bytecode.OpLoadInt8, Dst: 1, JumpDelta: 3},
			{Op: bytecode.OpAddInt32, Dst: 2, Src1: 0, Src2: 1},
			{Op: bytecode.OpReturn, Src1: 2},
		},
	}
	return binary.Encode(&bytecode.Module{Functions: []*bytecode.Function{fn}})
}

func TestLoadModuleAndRun(t *testing.T) {
	vc := New(Config{DisableJIT: true})
	defer vc.Close()

	mod, err := vc.LoadModule("main", addModule())
	require.NoError(t, err)

	result, err := vc.RunModule(context.Background(), mod)
	require.NoError(t, err)
	n, ok := result.AsNumber()
	require.True(t, ok)
	require.Equal(t, float64(5), n)
}

func TestLoadSourceThroughFrontend(t *testing.T) {
	vc := New(Config{DisableJIT: true})
	defer vc.Close()

	decoded, err := binary.Decode(addModule())
	require.NoError(t, err)
	fe := jsparser.Precompiled{"main.js": decoded}

	mod, err := vc.LoadSource(jsparser.Source{Name: "main.js", Text: "2 + 3"}, fe)
	require.NoError(t, err)
	result, err := vc.RunModule(context.Background(), mod)
	require.NoError(t, err)
	n, ok := result.AsNumber()
	require.True(t, ok)
	require.Equal(t, float64(5), n)

	_, err = vc.LoadSource(jsparser.Source{Name: "missing.js"}, fe)
	require.ErrorIs(t, err, jsparser.ErrUnknownSource)
}

func TestLoadModuleRejectsGarbage(t *testing.T) {
	vc := New(Config{DisableJIT: true})
	defer vc.Close()

	_, err := vc.LoadModule("bad", []byte("not a module"))
	require.Error(t, err)
}

type stubExtension struct {
	installed bool
}

func (s *stubExtension) Name() string { return "stub" }

func (s *stubExtension) Install(rc *RegistrationContext) error {
	s.installed = true
	rc.DefineGlobal("stubGlobal", jsvalue.Number(42))
	return nil
}

func (s *stubExtension) Specifiers() []string { return []string{"stub"} }

func (s *stubExtension) LoadModule(specifier string, rc *RegistrationContext) (jsvalue.Value, error) {
	return rc.NewModuleNamespace(map[string]jsvalue.Value{"value": jsvalue.Number(7)}), nil
}

func TestNativeContextSurface(t *testing.T) {
	vc := New(Config{DisableJIT: true})
	defer vc.Close()

	nc := (&RegistrationContext{vc: vc}).Native()
	require.Equal(t, float64(3), nc.ToNumberValue(jsvalue.Number(3)))
	require.Equal(t, "3", nc.ToStringValue(jsvalue.Number(3)))
	require.Equal(t, vc.Thread.GlobalValue, nc.Global())
	require.Same(t, vc.Thread.Microtasks, nc.Jobs())

	require.Equal(t, int64(0), nc.PendingAsyncOps())
	nc.AddAsyncOp()
	require.Equal(t, int64(1), nc.PendingAsyncOps())
	nc.DoneAsyncOp()
	require.Equal(t, int64(0), nc.PendingAsyncOps())
}

func TestExtensionInstallAndRequire(t *testing.T) {
	ext := &stubExtension{}
	vc := New(Config{DisableJIT: true, Extensions: []Extension{ext}})
	defer vc.Close()

	require.True(t, ext.installed)

	ns, err := vc.Require(context.Background(), "stub")
	require.NoError(t, err)
	v := vc.Thread.GetProperty(ns, jsobject.StringKey(jsvalue.Intern("value")))
	n, ok := v.AsNumber()
	require.True(t, ok)
	require.Equal(t, float64(7), n)
}
