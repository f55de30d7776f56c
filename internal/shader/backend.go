package shader

import (
	"errors"
	"fmt"
	"strings"
)

// BackendTarget is a compiled representation a container may carry.
type BackendTarget uint8

const (
	// BackendBytecodeIR is SPIR-V, consumed directly by the Vulkan backend.
	BackendBytecodeIR BackendTarget = 0
	// BackendNativeShader is HLSL cross-compiled from the SPIR-V, consumed by
	// the D3D11 backend.
	BackendNativeShader BackendTarget = 1
)

// canonicalBackends is the order records appear in a container.
var canonicalBackends = []BackendTarget{BackendBytecodeIR, BackendNativeShader}

// ErrNoBackends is returned when a request selects no backend at all.
var ErrNoBackends = errors.New("no platforms selected")

// Tag returns the 1-byte wire value preceding a record.
func (b BackendTarget) Tag() uint8 { return uint8(b) }

// Valid reports whether b is one of the known backends.
func (b BackendTarget) Valid() bool {
	return b == BackendBytecodeIR || b == BackendNativeShader
}

func (b BackendTarget) String() string {
	switch b {
	case BackendBytecodeIR:
		return "spirv"
	case BackendNativeShader:
		return "hlsl"
	default:
		return fmt.Sprintf("backend(%d)", uint8(b))
	}
}

// BackendFromTag maps a wire tag back to a BackendTarget.
func BackendFromTag(tag uint8) (BackendTarget, error) {
	b := BackendTarget(tag)
	if !b.Valid() {
		return 0, fmt.Errorf("unknown backend tag %d", tag)
	}
	return b, nil
}

// BackendSet is an immutable, non-empty subset of the backend targets.
// The zero value is empty and rejected by ParseBackendSet.
type BackendSet struct {
	bits uint8
}

// NewBackendSet builds a set from the given backends. Duplicates are ignored.
func NewBackendSet(backends ...BackendTarget) (BackendSet, error) {
	var s BackendSet
	for _, b := range backends {
		if !b.Valid() {
			return BackendSet{}, fmt.Errorf("invalid backend %s", b)
		}
		s.bits |= 1 << b
	}
	if s.bits == 0 {
		return BackendSet{}, ErrNoBackends
	}
	return s, nil
}

// ParseBackendSet maps the --vulkan and --d3d11 switches to a set.
func ParseBackendSet(vulkan, d3d11 bool) (BackendSet, error) {
	var bs []BackendTarget
	if vulkan {
		bs = append(bs, BackendBytecodeIR)
	}
	if d3d11 {
		bs = append(bs, BackendNativeShader)
	}
	return NewBackendSet(bs...)
}

// Has reports whether b is in the set.
func (s BackendSet) Has(b BackendTarget) bool { return s.bits&(1<<b) != 0 }

// Empty reports whether no backend is selected.
func (s BackendSet) Empty() bool { return s.bits == 0 }

// NeedsBytecode reports whether the bytecode compiler must run. The
// cross-compiler only accepts SPIR-V, so either backend requires it.
func (s BackendSet) NeedsBytecode() bool {
	return s.Has(BackendBytecodeIR) || s.Has(BackendNativeShader)
}

// Ordered returns the selected backends in canonical container order.
func (s BackendSet) Ordered() []BackendTarget {
	out := make([]BackendTarget, 0, len(canonicalBackends))
	for _, b := range canonicalBackends {
		if s.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s BackendSet) String() string {
	names := make([]string, 0, 2)
	for _, b := range s.Ordered() {
		names = append(names, b.String())
	}
	return strings.Join(names, "+")
}
