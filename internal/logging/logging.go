// Package logging gives embedders a way to observe engine-internal
// events (GC pauses, JIT compilation, JIT bailouts) without the
// engine's own packages (internal/jsgc, internal/jit) depending on any
// particular logging/metrics library, the same "independent package to
// avoid dependency cycles" role the teacher's own internal/logging
// plays for host-call logging.
package logging

import (
	"fmt"
	"io"
)

// GCPauseEvent reports one completed mark/sweep cycle (internal/jsgc
// section 4.B). Fields mirror jsgc.Stats' delta for this cycle rather
// than embedding that type directly, so this package never imports
// internal/jsgc.
type GCPauseEvent struct {
	PauseNanos     int64
	ReclaimedBytes uint64
	ReclaimedCells uint64
	Collection     uint64 // jsgc.Stats.Collections after this cycle
}

// JITCompileEvent reports one internal/jit.Engine.Compile attempt,
// successful or declined.
type JITCompileEvent struct {
	FunctionName string
	Compiled     bool // false means the translator declined fn, it stays interpreted
}

// BailoutEvent reports a compiled function falling back to the
// interpreter mid-call (spec.md section 4.G's deopt protocol).
type BailoutEvent struct {
	FunctionName string
	AtPC         int
}

// VmListener is the embedder-facing hook interface, the same role the
// teacher's experimental.FunctionListener plays for host function
// calls, repurposed for this engine's own internal events instead of
// Wasm host/guest calls.
type VmListener interface {
	OnGCPause(GCPauseEvent)
	OnJITCompile(JITCompileEvent)
	OnBailout(BailoutEvent)
}

// NopListener implements VmListener by discarding every event; the
// zero-cost default every jsgc.Registry/jit.Engine falls back to when
// no listener is configured.
type NopListener struct{}

func (NopListener) OnGCPause(GCPauseEvent)       {}
func (NopListener) OnJITCompile(JITCompileEvent) {}
func (NopListener) OnBailout(BailoutEvent)       {}

// Writer is the minimal sink WriterListener needs, satisfied by
// *bufio.Writer, *os.File, or any io.Writer wrapped in bufio.NewWriter.
type Writer interface {
	io.Writer
	io.StringWriter
}

// NewWriterListener returns a VmListener that formats every event as a
// single line to w, the engine-event analogue of the teacher's
// NewLoggingListenerFactory.
func NewWriterListener(w Writer) VmListener {
	return &writerListener{w: w}
}

type writerListener struct{ w Writer }

func (l *writerListener) OnGCPause(e GCPauseEvent) {
	l.w.WriteString(fmt.Sprintf("gc: pause=%dns reclaimed=%d bytes (%d cells) collection=#%d\n",
		e.PauseNanos, e.ReclaimedBytes, e.ReclaimedCells, e.Collection))
}

func (l *writerListener) OnJITCompile(e JITCompileEvent) {
	status := "compiled"
	if !e.Compiled {
		status = "declined"
	}
	l.w.WriteString(fmt.Sprintf("jit: %s %s\n", status, e.FunctionName))
}

func (l *writerListener) OnBailout(e BailoutEvent) {
	l.w.WriteString(fmt.Sprintf("jit: bailout %s at pc=%d\n", e.FunctionName, e.AtPC))
}
