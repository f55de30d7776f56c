// Package trace records what a compiler run did, file by file, as a
// deterministic document.
//
// The trace captures logical pipeline transitions only: no timestamps, no
// durations, no tool output. Two runs over the same inputs with the same
// tool behaviour produce byte-identical canonical JSON.
package trace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ExecutionTrace is the canonical record of one run.
type ExecutionTrace struct {
	// Backends is the selected backend set, e.g. "spirv+hlsl".
	Backends string
	Events   []Event
}

// EventKind is the stable discriminator of an Event. The string values are
// part of the canonical bytes; do not rename.
type EventKind string

const (
	EventStageDetected    EventKind = "StageDetected"
	EventBytecodeCompiled EventKind = "BytecodeCompiled"
	EventNativeCompiled   EventKind = "NativeCompiled"
	EventContainerWritten EventKind = "ContainerWritten"
	EventFileFailed       EventKind = "FileFailed"
	EventFileSkipped      EventKind = "FileSkipped"
)

// Event is a single transition of one input file.
//
// Determinism constraints:
//   - No timestamps.
//   - No error strings; Reason is a stable code.
//   - Index is the file's position in enumeration order.
type Event struct {
	Kind EventKind

	// Index orders files; File is the input path as enumerated.
	Index int
	File  string

	// Stage is set on StageDetected ("vertex", ...).
	Stage string

	// Reason is a stable failure code on FileFailed and FileSkipped
	// (e.g. "UnsupportedStage", "CompileError", "UpstreamFailed").
	Reason string

	// Output is the container path on ContainerWritten.
	Output string
}

// Validate checks basic invariants and returns a descriptive error.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.File == "" {
			return fmt.Errorf("events[%d].file is required", i)
		}
		if e.Index < 0 {
			return fmt.Errorf("events[%d].index is negative", i)
		}
		if (e.Kind == EventFileFailed || e.Kind == EventFileSkipped) && e.Reason == "" {
			return fmt.Errorf("events[%d].reason is required for kind %q", i, e.Kind)
		}
	}
	return nil
}

// Canonicalize sorts events by (index, kind order, reason, output). Files
// keep their enumeration order; within a file, events follow the pipeline.
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.Output < b.Output
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventStageDetected:
		return 10
	case EventBytecodeCompiled:
		return 20
	case EventNativeCompiled:
		return 30
	case EventContainerWritten:
		return 40
	case EventFileFailed:
		return 50
	case EventFileSkipped:
		return 60
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy so the caller's slice is not reordered.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	c := ExecutionTrace{Backends: t.Backends}
	c.Events = make([]Event, len(t.Events))
	copy(c.Events, t.Events)
	c.Canonicalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&c)
}

// Digest is the sha256 of a canonical encoding, hex encoded. Equal traces
// have equal digests, so it identifies a run's behaviour in one line.
func Digest(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// MarshalJSON fixes field order.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"backends":`)
	bb, _ := json.Marshal(t.Backends)
	buf.Write(bb)
	buf.WriteString(`,"events":[`)
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, "kind", string(e.Kind), true)
	fmt.Fprintf(&buf, `,"index":%d`, e.Index)
	writeField(&buf, "file", e.File, false)
	writeField(&buf, "stage", e.Stage, false)
	writeField(&buf, "reason", e.Reason, false)
	writeField(&buf, "output", e.Output, false)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key, value string, first bool) {
	if value == "" && !first {
		return
	}
	if !first {
		buf.WriteByte(',')
	}
	kb, _ := json.Marshal(key)
	vb, _ := json.Marshal(value)
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
}
